package stages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// Healer validates a recommendation batch and repairs tiers with broken
// links. The heal package provides the production implementation.
type Healer interface {
	Heal(ctx context.Context, snap *envelope.PipelineContext, batch *envelope.RecommendationBatch) (*envelope.RecommendationBatch, error)
}

// ValidatorStage runs the self-healing link validation over the scout
// batch. It never shrinks the batch: tiers that cannot be repaired come
// back degraded, not removed.
type ValidatorStage struct {
	name      string
	outputKey string
	healer    Healer
	logger    Logger
	events    EventSink
}

// NewValidatorStage builds the validation stage around a Healer.
func NewValidatorStage(healer Healer, logger Logger, events EventSink) *ValidatorStage {
	if events == nil {
		events = NopSink{}
	}
	return &ValidatorStage{
		name:      StageURLValidator,
		outputKey: KeyValidatedJobs,
		healer:    healer,
		logger:    logger.Bind("stage", StageURLValidator),
		events:    events,
	}
}

// Name implements Stage.
func (s *ValidatorStage) Name() string { return s.name }

// Execute implements Stage.
func (s *ValidatorStage) Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error) {
	start := time.Now()
	if snap.Batch == nil {
		return nil, NewTerminal(s.name, fmt.Errorf("no recommendation batch on context"))
	}

	validated, err := s.healer.Heal(ctx, snap, snap.Batch)
	if err != nil {
		return nil, s.classifyErr(err)
	}
	if got := validated.Size(); got != len(envelope.Tiers()) {
		return nil, NewTerminal(s.name, fmt.Errorf("validated batch has %d tiers, want %d", got, len(envelope.Tiers())))
	}

	degraded := 0
	for _, t := range envelope.Tiers() {
		if rec := validated.Get(t); rec != nil && rec.Degraded {
			degraded++
		}
	}
	s.events.Emit(s.name, fmt.Sprintf("%d/%d tiers validated, %d degraded",
		validated.Size()-degraded, validated.Size(), degraded))

	return envelope.NewStructuredResult(s.name, validated, time.Since(start)), nil
}

func (s *ValidatorStage) classifyErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if IsTransient(err) {
		return NewTransient(s.name, err)
	}
	return NewTerminal(s.name, err)
}

// Apply implements Stage.
func (s *ValidatorStage) Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error {
	batch, ok := res.Structured.(*envelope.RecommendationBatch)
	if !ok {
		return fmt.Errorf("stage %s: unexpected result type %T", s.name, res.Structured)
	}
	pc.Batch = batch
	pc.SetOutput(s.outputKey, batch)
	return nil
}
