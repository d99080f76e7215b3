package services

import (
	"errors"
	"fmt"
)

// ===== COMMON SERVICE ERRORS =====

var (
	ErrTestNotFound    = errors.New("test not found")
	ErrAnalysisRunning = errors.New("analysis already running for this test")
	ErrInsightNotFound = errors.New("insight not found")
)

// ===== CUSTOM ERROR TYPES =====

// PipelineError wraps a fatal failure of one pipeline stage so the
// orchestrator can mark the unit terminal-failed with context.
type PipelineError struct {
	Stage   string `json:"stage"`
	ClassID uint   `json:"class_id"`
	TestID  uint   `json:"test_id"`
	Err     error  `json:"-"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed (class=%d test=%d): %v",
		e.Stage, e.ClassID, e.TestID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewPipelineError(stage string, classID, testID uint, err error) *PipelineError {
	return &PipelineError{Stage: stage, ClassID: classID, TestID: testID, Err: err}
}
