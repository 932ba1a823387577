// Package heal implements the self-healing link validation loop: every
// recommendation's link is probed, and broken, missing or pre-degraded
// tiers are re-scouted with an avoid-list of companies that already
// failed. Tiers that stay broken after the retry budget come back degraded
// with a caveat instead of being dropped. The output batch always carries
// all four tiers.
package heal

import (
	"context"
	"errors"
	"fmt"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/observability"
	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

// Scout re-runs one tier's search during a repair attempt. *stages.ScoutStage
// satisfies it.
type Scout interface {
	Scout(ctx context.Context, snap *envelope.PipelineContext, avoid []string) (*envelope.JobRecommendation, error)
}

// Validator heals a recommendation batch.
type Validator struct {
	checker LinkChecker
	scouts  map[envelope.Tier]Scout
	retries int
	logger  stages.Logger
}

// NewValidator builds a Validator. retries bounds repair attempts per tier;
// 0 means validate-only (broken tiers degrade immediately).
func NewValidator(checker LinkChecker, scouts map[envelope.Tier]Scout, retries int, logger stages.Logger) *Validator {
	return &Validator{
		checker: checker,
		scouts:  scouts,
		retries: retries,
		logger:  logger.Bind("component", "heal"),
	}
}

// Heal implements stages.Healer. Tiers are processed in presentation order
// so the avoid-list accumulated from earlier failures reaches later repair
// attempts. The input batch is not mutated.
func (v *Validator) Heal(ctx context.Context, snap *envelope.PipelineContext, batch *envelope.RecommendationBatch) (*envelope.RecommendationBatch, error) {
	out := batch.Clone()
	if out == nil {
		out = &envelope.RecommendationBatch{}
	}

	var avoid []string
	for _, tier := range envelope.Tiers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := v.healTier(ctx, snap, tier, out.Get(tier), &avoid)
		if err != nil {
			return nil, err
		}
		out.Set(tier, rec)
	}
	return out, nil
}

func (v *Validator) healTier(ctx context.Context, snap *envelope.PipelineContext, tier envelope.Tier, rec *envelope.JobRecommendation, avoid *[]string) (*envelope.JobRecommendation, error) {
	// A tier that arrives missing or already degraded (its scout failed
	// during the fan-out) still gets the full repair budget here.
	if rec == nil || rec.Degraded {
		repaired, err := v.repair(ctx, snap, tier, avoid)
		if err != nil {
			return nil, err
		}
		if repaired != nil {
			observability.RecordHealOutcome(string(tier), "repaired")
			return repaired, nil
		}
		observability.RecordHealOutcome(string(tier), "degraded")
		if rec != nil {
			return rec, nil
		}
		return &envelope.JobRecommendation{
			Tier:     tier,
			Degraded: true,
			Caveat:   "no recommendation produced for this tier",
		}, nil
	}

	checkErr := v.checker.Check(ctx, rec.SearchURL)
	if checkErr == nil {
		observability.RecordHealOutcome(string(tier), "valid")
		return rec, nil
	}
	if errors.Is(checkErr, context.Canceled) {
		return nil, checkErr
	}
	v.logger.Warn("link_broken", "tier", string(tier), "url", rec.SearchURL, "error", checkErr.Error())
	if rec.Company != "" {
		*avoid = append(*avoid, rec.Company)
	}

	repaired, err := v.repair(ctx, snap, tier, avoid)
	if err != nil {
		return nil, err
	}
	if repaired != nil {
		observability.RecordHealOutcome(string(tier), "repaired")
		return repaired, nil
	}

	observability.RecordHealOutcome(string(tier), "degraded")
	degraded := *rec
	degraded.Degraded = true
	degraded.Caveat = fmt.Sprintf("link could not be verified after %d repair attempts: %v", v.retries, checkErr)
	return &degraded, nil
}

// repair re-runs the tier's scout up to the retry budget, probing each
// candidate's link. Returns nil when the budget is exhausted or no scout is
// registered for the tier; the caller decides how the tier degrades.
func (v *Validator) repair(ctx context.Context, snap *envelope.PipelineContext, tier envelope.Tier, avoid *[]string) (*envelope.JobRecommendation, error) {
	scout, ok := v.scouts[tier]
	if !ok {
		return nil, nil
	}
	for attempt := 1; attempt <= v.retries; attempt++ {
		repaired, err := scout.Scout(ctx, snap, *avoid)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			v.logger.Warn("repair_attempt_failed", "tier", string(tier), "attempt", attempt, "error", err.Error())
			continue
		}
		if err := v.checker.Check(ctx, repaired.SearchURL); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			v.logger.Warn("repaired_link_broken", "tier", string(tier), "attempt", attempt, "url", repaired.SearchURL)
			if repaired.Company != "" {
				*avoid = append(*avoid, repaired.Company)
			}
			continue
		}
		v.logger.Info("tier_repaired", "tier", string(tier), "attempt", attempt, "company", repaired.Company)
		return repaired, nil
	}
	return nil, nil
}
