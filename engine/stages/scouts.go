package stages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// ScoutStage finds one job posting for its tier. Tiers are independent:
// a scout that fails for any reason other than cancellation degrades its
// own tier with a placeholder instead of failing the run, so its siblings'
// results survive.
type ScoutStage struct {
	base
	tier envelope.Tier
}

// NewScoutStage builds the scout for a tier.
func NewScoutStage(tier envelope.Tier, model string, client CompletionClient, logger Logger, events EventSink) *ScoutStage {
	name := string(tier) + "_scout"
	key := string(tier) + "_job"
	return &ScoutStage{
		base: newBase(name, key, model, ShapeJSON, client, logger, events),
		tier: tier,
	}
}

// Tier returns the scout's tier.
func (s *ScoutStage) Tier() envelope.Tier { return s.tier }

// Scout runs one completion attempt for the tier. avoid lists companies a
// repair attempt must not resurface. The self-healing validator calls this
// directly when repairing a tier.
func (s *ScoutStage) Scout(ctx context.Context, snap *envelope.PipelineContext, avoid []string) (*envelope.JobRecommendation, error) {
	text, err := s.complete(ctx, buildScoutPrompt(s.tier, snap, avoid))
	if err != nil {
		return nil, s.classify(err)
	}
	rec, err := decodeStructured[envelope.JobRecommendation](text)
	if err != nil {
		return nil, NewTerminal(s.name, err)
	}
	rec.Tier = s.tier
	if rec.SearchURL == "" {
		return nil, NewTerminal(s.name, fmt.Errorf("scout returned no search_url"))
	}
	s.preview(text)
	return rec, nil
}

// Execute implements Stage.
func (s *ScoutStage) Execute(ctx context.Context, snap *envelope.PipelineContext) (*envelope.StageResult, error) {
	start := time.Now()
	rec, err := s.Scout(ctx, snap, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			cause = err
		}
		s.logger.Warn("scout_degraded", "tier", string(s.tier), "error", err.Error())
		rec = s.DegradedRecommendation(fmt.Sprintf("scout failed: %v", cause))
	}
	return envelope.NewStructuredResult(s.name, rec, time.Since(start)), nil
}

// Apply implements Stage.
func (s *ScoutStage) Apply(pc *envelope.PipelineContext, res *envelope.StageResult) error {
	rec, ok := res.Structured.(*envelope.JobRecommendation)
	if !ok {
		return fmt.Errorf("stage %s: unexpected result type %T", s.name, res.Structured)
	}
	if pc.Batch == nil {
		pc.Batch = &envelope.RecommendationBatch{}
	}
	pc.Batch.Set(s.tier, rec)
	pc.SetOutput(s.outputKey, rec)
	return nil
}

// DegradedRecommendation builds the placeholder recommendation for a tier
// whose scout could not produce a usable posting.
func (s *ScoutStage) DegradedRecommendation(caveat string) *envelope.JobRecommendation {
	return &envelope.JobRecommendation{
		Tier:     s.tier,
		Degraded: true,
		Caveat:   caveat,
	}
}
