package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the literature review
// service, organized by subsystem: jobs, pipeline stages, paper
// searches and LLM operations. Everything is registered via promauto
// with the default Prometheus registry.
//
// All Record methods are safe to call on a nil *Metrics; a nil receiver
// disables recording.
type Metrics struct {
	// JobsStarted counts review jobs initiated.
	JobsStarted prometheus.Counter

	// JobsCompleted counts review jobs that streamed a final review.
	JobsCompleted prometheus.Counter

	// JobsFailed counts review jobs that ended with a terminal error.
	JobsFailed prometheus.Counter

	// JobsCancelled counts review jobs abandoned by the client.
	JobsCancelled prometheus.Counter

	// JobDuration observes end-to-end job duration in seconds.
	JobDuration prometheus.Histogram

	// StageDuration observes per-stage duration in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec

	// HeartbeatsEmitted counts heartbeat events sent to keep streams alive.
	HeartbeatsEmitted prometheus.Counter

	// SearchesStarted counts searches initiated, labeled by paper source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful searches, labeled by paper source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed searches, labeled by paper source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by paper source.
	SearchDuration *prometheus.HistogramVec

	// PapersPerSearch observes papers returned per search, labeled by source.
	PapersPerSearch *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// SourceFallbacks counts fallback substitutions, labeled by the
	// primary source that was substituted.
	SourceFallbacks *prometheus.CounterVec

	// PapersMerged counts papers that survived dedup into a job corpus.
	PapersMerged prometheus.Counter

	// PapersDuplicate counts papers dropped during dedup.
	PapersDuplicate prometheus.Counter

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds.
	LLMRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics
// initialized. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of review jobs started",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of review jobs completed successfully",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of review jobs that failed",
		}),
		JobsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_cancelled_total",
			Help:      "Total number of review jobs cancelled by the client",
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "End-to-end duration of review jobs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		HeartbeatsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heartbeats_emitted_total",
			Help:      "Total number of stream heartbeats emitted",
		}),

		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of paper searches started by source",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of paper searches completed by source",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of paper searches that failed by source",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of paper searches in seconds by source",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		PapersPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per search by source",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
		}, []string{"source"}),
		SourceFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fallbacks_total",
			Help:      "Total number of fallback substitutions by primary source",
		}, []string{"source"}),

		PapersMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_merged_total",
			Help:      "Total number of unique papers merged into job corpora",
		}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers dropped during dedup",
		}),

		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by operation",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by operation",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation", "model"}),
	}
}

// RecordJobStarted records that a review job has started.
func (m *Metrics) RecordJobStarted() {
	if m == nil {
		return
	}
	m.JobsStarted.Inc()
}

// RecordJobCompleted records that a review job has completed.
func (m *Metrics) RecordJobCompleted(durationSeconds float64) {
	if m == nil {
		return
	}
	m.JobsCompleted.Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordJobFailed records that a review job has failed.
func (m *Metrics) RecordJobFailed(durationSeconds float64) {
	if m == nil {
		return
	}
	m.JobsFailed.Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordJobCancelled records that a review job was abandoned by the client.
func (m *Metrics) RecordJobCancelled() {
	if m == nil {
		return
	}
	m.JobsCancelled.Inc()
}

// RecordStageDuration records how long a pipeline stage took.
func (m *Metrics) RecordStageDuration(stage string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordHeartbeat records an emitted stream heartbeat.
func (m *Metrics) RecordHeartbeat() {
	if m == nil {
		return
	}
	m.HeartbeatsEmitted.Inc()
}

// RecordSearchStarted records that a search has started.
func (m *Metrics) RecordSearchStarted(source string) {
	if m == nil {
		return
	}
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records that a search has completed.
func (m *Metrics) RecordSearchCompleted(source string, paperCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSearch.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSearchFailed records that a search has failed.
func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordSourceFallback records a substitution of the primary source.
func (m *Metrics) RecordSourceFallback(primary string) {
	if m == nil {
		return
	}
	m.SourceFallbacks.WithLabelValues(primary).Inc()
}

// RecordCorpusMerge records dedup results for one job corpus.
func (m *Metrics) RecordCorpusMerge(merged, duplicates int) {
	if m == nil {
		return
	}
	m.PapersMerged.Add(float64(merged))
	m.PapersDuplicate.Add(float64(duplicates))
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	if m == nil {
		return
	}
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}
