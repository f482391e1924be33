// Package pipeline drives a literature review job through its stage
// sequence and exposes the job's progress as an ordered event stream.
package pipeline

// EventType discriminates pipeline events.
type EventType string

const (
	// EventProgress carries a localized progress message.
	EventProgress EventType = "progress"

	// EventHeartbeat keeps the stream alive during long stages. Its
	// content is a single space.
	EventHeartbeat EventType = "heartbeat"

	// EventResult carries the final review text. At most one per job.
	EventResult EventType = "result"

	// EventError carries a terminal, human-readable error block.
	EventError EventType = "error"

	// EventDone closes the stream. Always the last event.
	EventDone EventType = "done"
)

// Event is one element of a job's FIFO event stream.
type Event struct {
	Type    EventType
	Content string
}

// Stage names the pipeline stages in execution order. Used for logging
// and stage duration metrics.
type Stage string

const (
	StageInit              Stage = "init"
	StageIntentAnalysis    Stage = "intent_analysis"
	StageKeywordExtraction Stage = "keyword_extraction"
	StageDomainAnalysis    Stage = "domain_analysis"
	StageRetrieval         Stage = "retrieval"
	StageClassification    Stage = "classification"
	StageSummarization     Stage = "summarization"
	StageTopicClustering   Stage = "topic_clustering"
	StageTrendAnalysis     Stage = "trend_analysis"
	StageGeneration        Stage = "generation"
	StageDone              Stage = "done"
)
