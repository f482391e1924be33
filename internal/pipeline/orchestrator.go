package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scholarstream/literature-review-service/internal/analysis"
	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/language"
	"github.com/scholarstream/literature-review-service/internal/observability"
)

// DefaultJobTimeout bounds the wall-clock time of a whole review job.
const DefaultJobTimeout = 30 * time.Minute

// Retriever builds the paper corpus for a query.
type Retriever interface {
	HybridRetrieve(ctx context.Context, queryText string, keywords []string) ([]*domain.Paper, error)
}

// Analyzer runs the LLM-backed stages. Degrading stages handle their
// own failures; only hard-stop stages return errors.
type Analyzer interface {
	AnalyzeIntent(ctx context.Context, q domain.Query) (*analysis.Intent, error)
	ExtractKeywords(ctx context.Context, q domain.Query) ([]string, error)
	AnalyzeDomain(ctx context.Context, q domain.Query, keywords []string) (string, error)
	ClassifyPapers(ctx context.Context, q domain.Query, papers []*domain.Paper) []*domain.Paper
	SummarizePapers(ctx context.Context, q domain.Query, papers []*domain.Paper) []string
	ClusterTopics(ctx context.Context, q domain.Query, summaries []string) string
	AnalyzeTrends(ctx context.Context, q domain.Query, papers []*domain.Paper) string
	GenerateReview(ctx context.Context, q domain.Query, summaries []string, topics, trends string, papers []*domain.Paper) (string, error)
}

// Orchestrator drives review jobs through the stage sequence and turns
// each job into an ordered event stream.
type Orchestrator struct {
	retriever  Retriever
	analyzer   Analyzer
	runner     *StageRunner
	metrics    *observability.Metrics
	logger     zerolog.Logger
	jobTimeout time.Duration
}

// NewOrchestrator creates an Orchestrator. A non-positive jobTimeout
// falls back to DefaultJobTimeout.
func NewOrchestrator(retriever Retriever, analyzer Analyzer, runner *StageRunner, metrics *observability.Metrics, logger zerolog.Logger, jobTimeout time.Duration) *Orchestrator {
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &Orchestrator{
		retriever:  retriever,
		analyzer:   analyzer,
		runner:     runner,
		metrics:    metrics,
		logger:     logger.With().Str("component", "pipeline").Logger(),
		jobTimeout: jobTimeout,
	}
}

// Run starts a review job for the query text and returns its event
// stream. Events arrive in FIFO order and the channel is closed after
// the final Done event. Cancelling ctx stops emission; work already
// scheduled on the pool runs to completion and is discarded.
func (o *Orchestrator) Run(ctx context.Context, queryText string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)

		lang := language.Detect(queryText)
		jobID := uuid.NewString()

		jobCtx, cancel := context.WithTimeout(ctx, o.jobTimeout)
		defer cancel()

		logger := observability.WithJobContext(o.logger, jobID, string(lang))
		if reqID := observability.RequestIDFromContext(ctx); reqID != "" {
			logger = logger.With().Str("request_id", reqID).Logger()
		}

		j := &job{
			o:      o,
			ctx:    ctx,
			jobCtx: jobCtx,
			q:      domain.NewQuery(queryText, lang),
			msgs:   messagesFor(lang),
			events: events,
			logger: logger,
			start:  time.Now(),
		}
		j.execute()
	}()
	return events
}

// job carries the per-run state of one review.
type job struct {
	o      *Orchestrator
	ctx    context.Context // client lifetime, governs emission
	jobCtx context.Context // ctx plus the job timeout, governs work
	q      domain.Query
	msgs   *messages
	events chan<- Event
	logger zerolog.Logger
	start  time.Time
}

// execute walks the stage sequence. Degrading stages absorb their own
// failures inside the stage closure; every early return goes through a
// terminal helper so the stream always ends with Done.
func (j *job) execute() {
	j.o.metrics.RecordJobStarted()
	j.logger.Info().Str("query", j.q.Text).Msg("review job started")

	// Intent analysis. Degrades to no intent.
	var intent *analysis.Intent
	if err := j.runStage(StageIntentAnalysis, func() {
		var stageErr error
		intent, stageErr = j.o.analyzer.AnalyzeIntent(j.jobCtx, j.q)
		if stageErr != nil {
			j.logger.Warn().Err(stageErr).Msg("intent analysis failed, continuing without intent")
			intent = nil
		}
	}); err != nil {
		j.terminal(err)
		return
	}

	// Keyword extraction. Degrades to the intent's recommended
	// keywords, or to the raw query.
	var keywords []string
	if err := j.runStage(StageKeywordExtraction, func() {
		var stageErr error
		keywords, stageErr = j.o.analyzer.ExtractKeywords(j.jobCtx, j.q)
		if stageErr != nil {
			j.logger.Warn().Err(stageErr).Msg("keyword extraction failed, continuing without keywords")
			keywords = nil
		}
		if len(keywords) == 0 && intent != nil {
			keywords = intent.RecommendedKeywords
		}
	}); err != nil {
		j.terminal(err)
		return
	}

	// Domain analysis. Result feeds logging only; degrades to empty.
	if err := j.runStage(StageDomainAnalysis, func() {
		domainAnalysis, stageErr := j.o.analyzer.AnalyzeDomain(j.jobCtx, j.q, keywords)
		if stageErr != nil {
			j.logger.Warn().Err(stageErr).Msg("domain analysis failed, continuing without it")
			return
		}
		j.logger.Debug().Str("domain_analysis", domainAnalysis).Msg("domain analysis completed")
	}); err != nil {
		j.terminal(err)
		return
	}

	if !j.emit(Event{Type: EventProgress, Content: j.msgs.step1}) {
		j.cancelled()
		return
	}

	// Retrieval. The engine never hard-fails; an empty corpus does.
	var papers []*domain.Paper
	if err := j.runNestedStage(StageRetrieval, func() {
		var stageErr error
		papers, stageErr = j.o.retriever.HybridRetrieve(j.jobCtx, j.q.Text, keywords)
		if stageErr != nil {
			j.logger.Warn().Err(stageErr).Msg("retrieval aborted")
			papers = nil
		}
	}); err != nil {
		j.terminal(err)
		return
	}

	if !j.emit(Event{Type: EventProgress, Content: j.msgs.step2(len(papers))}) {
		j.cancelled()
		return
	}
	if len(papers) == 0 {
		j.logger.Warn().Err(domain.ErrNoResults).Msg("empty corpus, stopping job")
		j.fail(j.msgs.errNoPapers)
		return
	}

	// Classification. Degrades internally to a corpus prefix.
	var classified []*domain.Paper
	if err := j.runStage(StageClassification, func() {
		classified = j.o.analyzer.ClassifyPapers(j.jobCtx, j.q, papers)
	}); err != nil {
		j.terminal(err)
		return
	}
	if !j.emit(Event{Type: EventProgress, Content: j.msgs.step3}) {
		j.cancelled()
		return
	}

	// Summarization. Per-paper failures are dropped inside the stage.
	if !j.emit(Event{Type: EventProgress, Content: j.msgs.step4}) ||
		!j.emit(Event{Type: EventProgress, Content: j.msgs.summarizing}) {
		j.cancelled()
		return
	}
	var summaries []string
	if err := j.runNestedStage(StageSummarization, func() {
		summaries = j.o.analyzer.SummarizePapers(j.jobCtx, j.q, classified)
	}); err != nil {
		j.terminal(err)
		return
	}

	// Topic clustering and trend analysis. Both degrade to empty.
	if !j.emit(Event{Type: EventProgress, Content: j.msgs.step5}) ||
		!j.emit(Event{Type: EventProgress, Content: j.msgs.clustering}) {
		j.cancelled()
		return
	}
	var topics string
	if err := j.runStage(StageTopicClustering, func() {
		topics = j.o.analyzer.ClusterTopics(j.jobCtx, j.q, summaries)
	}); err != nil {
		j.terminal(err)
		return
	}
	var trends string
	if err := j.runStage(StageTrendAnalysis, func() {
		trends = j.o.analyzer.AnalyzeTrends(j.jobCtx, j.q, classified)
	}); err != nil {
		j.terminal(err)
		return
	}

	// Generation. A failed or empty review is terminal.
	if !j.emit(Event{Type: EventProgress, Content: j.msgs.step6}) ||
		!j.emit(Event{Type: EventProgress, Content: j.msgs.generating}) {
		j.cancelled()
		return
	}
	var review string
	var genErr error
	if err := j.runStage(StageGeneration, func() {
		review, genErr = j.o.analyzer.GenerateReview(j.jobCtx, j.q, summaries, topics, trends, classified)
	}); err != nil {
		j.terminal(err)
		return
	}
	if genErr != nil {
		j.logger.Error().Err(genErr).Msg("review generation failed")
		j.fail(j.msgs.errGeneration)
		return
	}

	j.complete(review)
}

// runStage executes work on the shared pool via the stage runner and
// records the stage duration.
func (j *job) runStage(stage Stage, work func()) error {
	start := time.Now()
	err := j.o.runner.Run(j.jobCtx, j.emit, work)
	j.o.metrics.RecordStageDuration(string(stage), time.Since(start).Seconds())
	stageLogger := observability.WithStageContext(j.logger, string(stage))
	stageLogger.Debug().
		Dur("elapsed", time.Since(start)).
		Msg("stage finished")
	return err
}

// runNestedStage is runStage for work that fans out onto the pool
// itself.
func (j *job) runNestedStage(stage Stage, work func()) error {
	start := time.Now()
	err := j.o.runner.RunNested(j.jobCtx, j.emit, work)
	j.o.metrics.RecordStageDuration(string(stage), time.Since(start).Seconds())
	stageLogger := observability.WithStageContext(j.logger, string(stage))
	stageLogger.Debug().
		Dur("elapsed", time.Since(start)).
		Msg("stage finished")
	return err
}

// emit delivers an event and reports whether the consumer is still
// there. Heartbeats are counted as they pass through.
func (j *job) emit(ev Event) bool {
	if ev.Type == EventHeartbeat {
		j.o.metrics.RecordHeartbeat()
	}
	select {
	case j.events <- ev:
		return true
	case <-j.ctx.Done():
		return false
	}
}

// terminal handles a stage runner error: either the client went away or
// the job timed out.
func (j *job) terminal(err error) {
	if j.ctx.Err() != nil {
		j.cancelled()
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		j.logger.Warn().Dur("timeout", j.o.jobTimeout).Msg("job timed out")
		j.fail(j.msgs.errTimeout(int(j.o.jobTimeout.Seconds())))
		return
	}
	j.logger.Error().Err(err).Msg("job failed")
	j.fail(j.msgs.errGeneral(err))
}

// fail streams a readable error block followed by Done.
func (j *job) fail(content string) {
	j.emit(Event{Type: EventError, Content: content})
	j.emit(Event{Type: EventDone})
	j.o.metrics.RecordJobFailed(time.Since(j.start).Seconds())
}

// cancelled records a client disconnect. Nothing is emitted; nobody is
// listening.
func (j *job) cancelled() {
	j.logger.Info().Msg("client disconnected, abandoning job")
	j.o.metrics.RecordJobCancelled()
}

// complete streams the review payload followed by Done.
func (j *job) complete(review string) {
	if !j.emit(Event{Type: EventProgress, Content: j.msgs.finalTitle}) {
		j.cancelled()
		return
	}
	if !j.emit(Event{Type: EventResult, Content: review}) {
		j.cancelled()
		return
	}
	j.emit(Event{Type: EventDone})
	j.o.metrics.RecordJobCompleted(time.Since(j.start).Seconds())
	j.logger.Info().Dur("elapsed", time.Since(j.start)).Msg("review job completed")
}
