// Package service exposes the resume analysis engine to hosts: start a
// run, refine an existing session's results, and walk the session's
// result history. Each run streams ordered progress events and terminates
// the stream with exactly one result or error sentinel.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careerscout-labs/resumeanalysis/engine/config"
	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/experience"
	"github.com/careerscout-labs/resumeanalysis/engine/heal"
	"github.com/careerscout-labs/resumeanalysis/engine/scheduler"
	"github.com/careerscout-labs/resumeanalysis/engine/session"
	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

var (
	// ErrResumeTooShort rejects input below the configured minimum before
	// any completion call is made.
	ErrResumeTooShort = errors.New("resume text too short to analyze")
	// ErrNoAnalysis is returned when refinement is requested for a session
	// that has no completed run to refine.
	ErrNoAnalysis = errors.New("session has no completed analysis to refine")
)

// Analyzer is the engine facade.
type Analyzer struct {
	cfg     *config.EngineConfig
	client  stages.CompletionClient
	checker heal.LinkChecker
	store   *session.Store
	logger  stages.Logger
}

// NewAnalyzer wires the engine together. The link checker defaults to the
// HTTP HEAD prober when nil.
func NewAnalyzer(cfg *config.EngineConfig, client stages.CompletionClient, checker heal.LinkChecker, logger stages.Logger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if checker == nil {
		checker = heal.NewHTTPChecker(10 * time.Second)
	}
	return &Analyzer{
		cfg:     cfg,
		client:  client,
		checker: checker,
		store:   session.NewStore(cfg.SessionTTL, logger),
		logger:  logger.Bind("component", "analyzer"),
	}, nil
}

// Start begins background maintenance (session expiry) until ctx is done.
func (a *Analyzer) Start(ctx context.Context) {
	a.store.StartSweeper(ctx, time.Minute)
}

// StartRun launches a full analysis for sessionID and returns the run's
// progress stream. Validation failures are returned synchronously; once a
// channel is returned, all outcomes arrive as stream sentinels. Runs on
// the same session are serialized.
func (a *Analyzer) StartRun(ctx context.Context, sessionID, resumeText string, tier config.Tier) (<-chan envelope.ProgressEvent, error) {
	if len(resumeText) < a.cfg.MinResumeLength {
		return nil, fmt.Errorf("%w: %d chars, need at least %d", ErrResumeTooShort, len(resumeText), a.cfg.MinResumeLength)
	}
	a.store.CreateOrGet(sessionID)

	pc := envelope.NewPipelineContext(sessionID, resumeText)
	pc.Experience = experience.Summarize(resumeText)

	emitter := scheduler.NewEmitter(scheduler.DefaultEventBuffer)
	prepare := func() (*envelope.PipelineContext, error) { return pc, nil }
	go a.execute(ctx, sessionID, prepare, tier, a.analysisConfig(), emitter, func(e *scheduler.Emitter) {
		exp := pc.Experience
		e.Emit("career_analytics", fmt.Sprintf("total %.1f years over %d roles, %.1f years avg tenure",
			exp.TotalYears, exp.NumRoles, exp.AvgTenureYears))
	})
	return emitter.Events(), nil
}

// Refine re-runs the job search half of the pipeline against the session's
// stored context, filtered by the feedback text. The level classification
// from the original run is kept.
func (a *Analyzer) Refine(ctx context.Context, sessionID, feedback string, tier config.Tier) (<-chan envelope.ProgressEvent, error) {
	stored, err := a.store.Context(sessionID)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Consensus == nil {
		return nil, ErrNoAnalysis
	}

	// The snapshot above only validates the request synchronously. The
	// context the refinement actually runs on is re-read under the run
	// lock, so a run finishing after this check is never read stale.
	prepare := func() (*envelope.PipelineContext, error) {
		pc, err := a.store.Context(sessionID)
		if err != nil {
			return nil, err
		}
		if pc == nil || pc.Consensus == nil {
			return nil, ErrNoAnalysis
		}
		pc.RunID = uuid.NewString()
		pc.Feedback = feedback
		return pc, nil
	}

	emitter := scheduler.NewEmitter(scheduler.DefaultEventBuffer)
	go a.execute(ctx, sessionID, prepare, tier, a.refinementConfig(), emitter, nil)
	return emitter.Events(), nil
}

// execute owns one run end to end: session serialization, scheduling,
// persistence, and the stream's terminal sentinel. prepare runs after the
// session's run lock is held, so contexts derived from stored state see
// the result of whatever run held the lock before.
func (a *Analyzer) execute(ctx context.Context, sessionID string, prepare func() (*envelope.PipelineContext, error), tier config.Tier, cfg *config.PipelineConfig, emitter *scheduler.Emitter, preamble func(*scheduler.Emitter)) {
	release := a.store.Acquire(sessionID)
	defer release()

	pc, err := prepare()
	if err != nil {
		emitter.Fail("", err)
		return
	}

	started := time.Now()
	if preamble != nil {
		preamble(emitter)
	}

	rs := a.buildStages(tier, emitter)
	sched, err := scheduler.NewScheduler(cfg, rs.byName, a.logger)
	if err != nil {
		emitter.Fail("", err)
		return
	}

	if err := sched.Run(ctx, pc, emitter); err != nil {
		emitter.Fail(stages.StageOf(err), err)
		return
	}

	artifact := newArtifact(pc, started)
	if err := a.store.SaveResult(pc.SessionID, pc, artifact); err != nil {
		emitter.Fail("", err)
		return
	}
	emitter.Done(artifact)
}

// Current returns the artifact at the session's history cursor.
func (a *Analyzer) Current(sessionID string) (*envelope.FinalArtifact, error) {
	return a.store.Current(sessionID)
}

// Back steps the session's history cursor to the previous result.
func (a *Analyzer) Back(sessionID string) (*envelope.FinalArtifact, error) {
	return a.store.Back(sessionID)
}

// Forward steps the session's history cursor to the next result.
func (a *Analyzer) Forward(sessionID string) (*envelope.FinalArtifact, error) {
	return a.store.Forward(sessionID)
}

// HistoryLen returns the session's stored result count.
func (a *Analyzer) HistoryLen(sessionID string) (int, error) {
	return a.store.HistoryLen(sessionID)
}

// Expire discards a session immediately.
func (a *Analyzer) Expire(sessionID string) {
	a.store.Expire(sessionID)
}
