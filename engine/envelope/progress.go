package envelope

import "time"

// EventType discriminates progress stream events.
type EventType string

const (
	// EventProgress is a mid-run status update from a stage.
	EventProgress EventType = "progress"
	// EventResult is the terminal sentinel carrying the final artifact.
	EventResult EventType = "result"
	// EventError is the terminal sentinel carrying a run failure.
	EventError EventType = "error"
)

// ProgressEvent is one entry in a run's ordered progress stream.
// Seq increases monotonically per run; events are consumed exactly once.
// A stream ends with exactly one EventResult or EventError sentinel.
type ProgressEvent struct {
	Type      EventType      `json:"type"`
	Stage     string         `json:"stage,omitempty"`
	Message   string         `json:"message,omitempty"`
	Seq       int            `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Artifact  *FinalArtifact `json:"artifact,omitempty"` // set on EventResult
	Err       string         `json:"error,omitempty"`    // set on EventError
}

// Terminal reports whether the event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventResult || e.Type == EventError
}
