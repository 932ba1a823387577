package stages

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/careerscout-labs/resumeanalysis/engine/observability"
)

var tracer = otel.Tracer("resumeanalysis/stages")

// base carries the wiring every completion-backed stage shares.
type base struct {
	name        string
	outputKey   string
	model       string
	shape       OutputShape
	client      CompletionClient
	logger      Logger
	events      EventSink
	temperature *float64
	maxTokens   *int
}

func newBase(name, outputKey, model string, shape OutputShape, client CompletionClient, logger Logger, events EventSink) base {
	if events == nil {
		events = NopSink{}
	}
	return base{
		name:      name,
		outputKey: outputKey,
		model:     model,
		shape:     shape,
		client:    client,
		logger:    logger.Bind("stage", name),
		events:    events,
	}
}

// Name returns the stage identifier.
func (b *base) Name() string { return b.name }

// complete invokes the completion service with tracing and metrics.
func (b *base) complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "stage.complete",
		trace.WithAttributes(
			attribute.String("stage.name", b.name),
			attribute.String("completion.model", b.model),
		),
	)
	defer span.End()

	start := time.Now()
	text, err := b.client.Complete(ctx, Request{
		Model:       b.model,
		Prompt:      prompt,
		Shape:       b.shape,
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	})
	durationMS := int(time.Since(start).Milliseconds())

	if err != nil {
		observability.RecordCompletionCall(b.model, "error", durationMS)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.Error("completion_failed", "model", b.model, "error", err.Error(), "duration_ms", durationMS)
		return "", err
	}

	observability.RecordCompletionCall(b.model, "success", durationMS)
	span.SetStatus(codes.Ok, "success")
	b.logger.Debug("completion_ok",
		"model", b.model,
		"duration_ms", durationMS,
		"response_length", len(text),
		"response_preview", truncate(text, 200),
	)
	return text, nil
}

// classify attaches the stage's failure classification. Cancellation
// propagates untouched so the scheduler sees it as such; deadline and
// completion-boundary transients are retryable, everything else terminal.
func (b *base) classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || IsTransient(err) {
		return NewTransient(b.name, err)
	}
	return NewTerminal(b.name, err)
}

// preview emits a short progress message with the stage's raw output.
func (b *base) preview(text string) {
	b.events.Emit(b.name, truncate(text, 150))
}
