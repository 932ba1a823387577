package service

import (
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/config"
	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/heal"
	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

// Pipeline and group names.
const (
	PipelineAnalysis   = "resume_analysis"
	PipelineRefinement = "refinement"
)

// runStages is one run's assembled stage set. Stages are rebuilt per run
// because model names resolve from the requested tier.
type runStages struct {
	byName map[string]stages.Stage
	scouts map[envelope.Tier]heal.Scout
}

// buildStages assembles every stage with models resolved for the tier.
func (a *Analyzer) buildStages(tier config.Tier, sink stages.EventSink) *runStages {
	models := a.cfg.Tiers.Resolve(tier)
	flash := models.Model(config.RoleFlash)
	lite := models.Model(config.RoleLite)

	rs := &runStages{
		byName: make(map[string]stages.Stage),
		scouts: make(map[envelope.Tier]heal.Scout),
	}
	add := func(st stages.Stage) { rs.byName[st.Name()] = st }

	add(stages.NewParserStage(flash, a.client, a.logger, sink))
	add(stages.NewClassifierStage(flash, a.client, a.logger, sink))
	add(stages.NewConservativeStage(flash, a.client, a.logger, sink))
	add(stages.NewOptimisticStage(flash, a.client, a.logger, sink))
	add(stages.NewConsensusStage(a.logger, sink))

	for _, t := range envelope.Tiers() {
		scout := stages.NewScoutStage(t, flash, a.client, a.logger, sink)
		add(scout)
		rs.scouts[t] = scout
	}

	healer := heal.NewValidator(a.checker, rs.scouts, a.cfg.HealRetries, a.logger)
	add(stages.NewValidatorStage(healer, a.logger, sink))
	add(stages.NewFormatterStage(lite, a.client, a.logger, sink))
	return rs
}

// scoutGroup is the bounded, staggered fan-out over all four tiers. With
// the default concurrency of 2 and a 2s stagger this reproduces the
// batched 2+2 launch pattern the completion service's rate limit asks for.
func (a *Analyzer) scoutGroup() config.StageGroup {
	names := make([]string, 0, len(envelope.Tiers()))
	for _, t := range envelope.Tiers() {
		names = append(names, string(t)+"_scout")
	}
	return config.StageGroup{
		Name:           "job_scouts",
		Mode:           config.ModeParallel,
		Stages:         names,
		MaxConcurrency: a.cfg.ScoutConcurrency,
		Stagger:        a.cfg.ScoutStagger,
	}
}

func (a *Analyzer) analysisConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		Name: PipelineAnalysis,
		Groups: []config.StageGroup{
			{Name: "parse", Mode: config.ModeSequential, Stages: []string{stages.StageResumeParser}},
			{Name: "classify", Mode: config.ModeSequential, Stages: []string{stages.StageLevelClassifier}},
			{Name: "deliberation", Mode: config.ModeParallel, MaxConcurrency: 2,
				Stages: []string{stages.StageConservative, stages.StageOptimistic}},
			{Name: "consensus", Mode: config.ModeSequential, Stages: []string{stages.StageConsensus}},
			a.scoutGroup(),
			{Name: "validate", Mode: config.ModeSequential, Stages: []string{stages.StageURLValidator}},
			{Name: "format", Mode: config.ModeSequential, Stages: []string{stages.StageFormatter}},
		},
		RunTimeout:   a.cfg.RunTimeout,
		RetryBackoff: a.cfg.RetryBackoff,
	}
}

// refinementConfig reuses the back half of the pipeline: the stored
// context already carries the parsed resume and calibrated level, so only
// the scouts, the validator and the formatter run again.
func (a *Analyzer) refinementConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		Name: PipelineRefinement,
		Groups: []config.StageGroup{
			a.scoutGroup(),
			{Name: "validate", Mode: config.ModeSequential, Stages: []string{stages.StageURLValidator}},
			{Name: "format", Mode: config.ModeSequential, Stages: []string{stages.StageFormatter}},
		},
		RunTimeout:   a.cfg.RunTimeout,
		RetryBackoff: a.cfg.RetryBackoff,
	}
}

func newArtifact(pc *envelope.PipelineContext, started time.Time) *envelope.FinalArtifact {
	return &envelope.FinalArtifact{
		SessionID: pc.SessionID,
		RunID:     pc.RunID,
		Markdown:  pc.FormattedOutput,
		Consensus: pc.Consensus,
		ElapsedMS: int(time.Since(started).Milliseconds()),
		CreatedAt: time.Now().UTC(),
	}
}
