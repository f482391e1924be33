// Package observability provides logging and metrics support for the
// literature review service.
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("job_id", jobID).Msg("review job started")
//
// Add job context to a logger:
//
//	logger = observability.WithJobContext(logger, jobID, "en")
//
// # Metrics
//
// Initialize metrics once at startup:
//
//	metrics := observability.NewMetrics("literature_review")
//
// Record metrics:
//
//	metrics.RecordJobStarted()
//	metrics.RecordSearchCompleted("semantic_scholar", 20, 1.2)
//	metrics.RecordStageDuration("summarization", 34.5)
//
// # Standard Fields
//
// Common log fields used across the service:
//
//   - job_id: Review job identifier
//   - request_id: HTTP request identifier
//   - stage: Pipeline stage name
//   - query: Search query text
//   - source: Paper source (semantic_scholar, openalex)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
