package events

import (
	"time"
)

// EventType represents different types of pipeline events
type EventType string

const (
	// Inbound: a test's answer sheets finished ingestion and the
	// analysis pipeline should run.
	EventTestIngested EventType = "test.ingested"

	// Outbound pipeline events
	EventAnalysisStarted   EventType = "analysis.started"
	EventAnalysisCompleted EventType = "analysis.completed"
	EventAnalysisFailed    EventType = "analysis.failed"
)

// PipelineEvent is the base event structure for all pipeline events
type PipelineEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TestIngestedEvent is the inbound trigger payload.
type TestIngestedEvent struct {
	TestID     uint      `json:"test_id"`
	ClassID    uint      `json:"class_id"`
	TestNum    int       `json:"test_num"`
	IngestedAt time.Time `json:"ingested_at"`
}

// AnalysisStartedEvent signals the pipeline accepted a run.
type AnalysisStartedEvent struct {
	ClassID   uint      `json:"class_id"`
	TestID    uint      `json:"test_id"`
	StartedAt time.Time `json:"started_at"`
}

// AnalysisCompletedEvent signals a terminal successful run.
type AnalysisCompletedEvent struct {
	ClassID     uint      `json:"class_id"`
	TestID      uint      `json:"test_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// AnalysisFailedEvent signals a terminal failed run.
type AnalysisFailedEvent struct {
	ClassID  uint      `json:"class_id"`
	TestID   uint      `json:"test_id"`
	Stage    string    `json:"stage"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}
