package pipeline

import (
	"context"
	"time"

	"github.com/scholarstream/literature-review-service/internal/pool"
)

// Default stage runner intervals.
const (
	DefaultPollInterval      = time.Second
	DefaultHeartbeatInterval = 25 * time.Second
)

// StageRunner executes blocking stage work on the shared worker pool
// while keeping the event stream alive. Whenever the stream has been
// silent for a full heartbeat interval it emits a heartbeat event.
type StageRunner struct {
	workers           *pool.Pool
	pollInterval      time.Duration
	heartbeatInterval time.Duration
}

// NewStageRunner creates a StageRunner. Non-positive intervals fall
// back to the defaults.
func NewStageRunner(workers *pool.Pool, pollInterval, heartbeatInterval time.Duration) *StageRunner {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	return &StageRunner{
		workers:           workers,
		pollInterval:      pollInterval,
		heartbeatInterval: heartbeatInterval,
	}
}

// Run schedules work on the pool and blocks until it completes,
// periodically checking whether a heartbeat is due. emit delivers a
// heartbeat to the stream and reports whether the stream is still
// consuming; when it is not, or when ctx ends, Run returns immediately
// while the scheduled work keeps running to completion on the pool.
//
// work communicates its outcome through captured variables; Run itself
// only reports scheduling and cancellation errors.
func (r *StageRunner) Run(ctx context.Context, emit func(Event) bool, work func()) error {
	done, err := r.workers.Submit(ctx, work)
	if err != nil {
		return err
	}
	return r.wait(ctx, emit, done)
}

// RunNested is Run for stage work that schedules its own tasks on the
// shared pool (retrieval branches, summarization workers). Such work
// runs in a plain goroutine instead of occupying a pool slot while it
// waits on nested submissions, which could otherwise exhaust the pool.
func (r *StageRunner) RunNested(ctx context.Context, emit func(Event) bool, work func()) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		work()
	}()
	return r.wait(ctx, emit, done)
}

func (r *StageRunner) wait(ctx context.Context, emit func(Event) bool, done <-chan struct{}) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	lastEmit := time.Now()
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Since(lastEmit) < r.heartbeatInterval {
				continue
			}
			if !emit(Event{Type: EventHeartbeat, Content: " "}) {
				return context.Canceled
			}
			lastEmit = time.Now()
		}
	}
}
