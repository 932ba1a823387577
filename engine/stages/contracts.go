// Package stages provides the Stage abstraction and the concrete pipeline
// stages: resume parser, level classifier, the two deliberation evaluators,
// the consensus reducer, the four job scouts, the self-healing validator
// and the formatter.
//
// A stage wraps one call (or a small number of calls) to the completion
// service, validates or repairs its output against the expected shape, and
// reports progress. Stages running concurrently in the same group only read
// the context snapshot they were handed; their outputs are merged by the
// scheduler after the group completes.
package stages

import (
	"context"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// OutputShape is the requested completion output shape.
type OutputShape string

const (
	// ShapeJSON requests structured fields; the stage parses the reply.
	ShapeJSON OutputShape = "json"
	// ShapeText requests free text returned verbatim.
	ShapeText OutputShape = "text"
)

// Request is one completion-service invocation.
type Request struct {
	Model       string
	Prompt      string
	Shape       OutputShape
	Temperature *float64
	MaxTokens   *int
}

// CompletionClient is the boundary to the external reasoning backend.
// Implementations must distinguish transient failures (rate limits,
// timeouts, network) via Transient wrapping so the scheduler can retry.
type CompletionClient interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Logger is the engine-wide structured logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Bind(fields ...any) Logger
}

// EventSink receives mid-run progress messages from stages. The scheduler's
// emitter implements it; tests substitute a mock.
type EventSink interface {
	Emit(stage, message string)
}

// NopSink discards events. Useful where progress reporting is not wired.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(stage, message string) {}

// Stage is the atomic unit of pipeline work.
//
// Execute runs against a read-only context snapshot and returns the stage's
// result; it must not mutate the snapshot's typed fields. Apply merges a
// previously produced result into the live context; the scheduler calls it
// single-threaded after the stage's group completes.
type Stage interface {
	Name() string
	Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error)
	Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error
}
