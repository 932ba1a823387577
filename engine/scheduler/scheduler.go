// Package scheduler runs a pipeline configuration over one context: groups
// in declared order, sequential stages on the live context, parallel stages
// fanned out against snapshots with a concurrency bound and an inter-launch
// stagger, one retry for transient failures, and merge of parallel outputs
// in declared order after the whole group succeeds.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/careerscout-labs/resumeanalysis/engine/config"
	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/observability"
	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

// Scheduler executes pipeline runs.
type Scheduler struct {
	cfg    *config.PipelineConfig
	stages map[string]stages.Stage
	logger stages.Logger
}

// NewScheduler builds a scheduler for a validated pipeline configuration.
// Every stage the configuration names must be present in the stage map.
func NewScheduler(cfg *config.PipelineConfig, stageMap map[string]stages.Stage, logger stages.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, name := range cfg.StageNames() {
		if _, ok := stageMap[name]; !ok {
			return nil, fmt.Errorf("pipeline '%s' names unknown stage '%s'", cfg.Name, name)
		}
	}
	return &Scheduler{
		cfg:    cfg,
		stages: stageMap,
		logger: logger.Bind("pipeline", cfg.Name),
	}, nil
}

// Run executes all groups in order against pc, emitting progress to sink.
// On failure the context keeps outputs from completed groups only; a failed
// parallel group contributes nothing, even from siblings that succeeded.
func (s *Scheduler) Run(ctx context.Context, pc *envelope.PipelineContext, sink stages.EventSink) error {
	if sink == nil {
		sink = stages.NopSink{}
	}
	start := time.Now()
	logger := s.logger.Bind("run_id", pc.RunID)

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	logger.Info("run_started", "session_id", pc.SessionID, "groups", len(s.cfg.Groups))

	var runErr error
	for i := range s.cfg.Groups {
		g := &s.cfg.Groups[i]
		switch g.Mode {
		case config.ModeSequential:
			runErr = s.runSequential(ctx, g, pc, sink, logger)
		case config.ModeParallel:
			runErr = s.runParallel(ctx, g, pc, sink, logger)
		}
		if runErr != nil {
			break
		}
	}

	durationMS := int(time.Since(start).Milliseconds())
	status := "success"
	switch {
	case errors.Is(runErr, context.Canceled):
		status = "cancelled"
	case runErr != nil:
		status = "error"
	}
	observability.RecordRunExecution(s.cfg.Name, status, durationMS)
	if runErr != nil {
		logger.Error("run_failed", "status", status, "duration_ms", durationMS, "error", runErr.Error())
		return runErr
	}
	logger.Info("run_completed", "duration_ms", durationMS)
	return nil
}

func (s *Scheduler) runSequential(ctx context.Context, g *config.StageGroup, pc *envelope.PipelineContext, sink stages.EventSink, logger stages.Logger) error {
	st := s.stages[g.Stages[0]]
	res, err := s.runStage(ctx, st, pc, sink, logger)
	if err != nil {
		return err
	}
	return st.Apply(pc, res)
}

type stageOutcome struct {
	res *envelope.StageResult
	err error
}

func (s *Scheduler) runParallel(ctx context.Context, g *config.StageGroup, pc *envelope.PipelineContext, sink stages.EventSink, logger stages.Logger) error {
	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// All siblings observe the context as it stood at group start.
	snap := pc.Clone()
	sem := semaphore.NewWeighted(int64(g.MaxConcurrency))
	outcomes := make([]stageOutcome, len(g.Stages))

	var wg sync.WaitGroup
	for i, name := range g.Stages {
		if i > 0 && g.Stagger > 0 {
			if err := sleepCtx(groupCtx, g.Stagger); err != nil {
				break
			}
		}
		if err := sem.Acquire(groupCtx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(idx int, st stages.Stage) {
			defer wg.Done()
			defer sem.Release(1)
			res, err := s.runStage(groupCtx, st, snap.Clone(), sink, logger)
			outcomes[idx] = stageOutcome{res: res, err: err}
			if err != nil {
				cancel()
			}
		}(i, s.stages[name])
	}
	wg.Wait()

	// Report the failure that triggered the group's cancellation, not a
	// sibling's cancellation fallout: a cancelled sibling returns a bare
	// context.Canceled with no stage provenance.
	var groupErr error
	for i := range g.Stages {
		err := outcomes[i].err
		if err == nil {
			continue
		}
		if groupErr == nil {
			groupErr = err
		}
		if !errors.Is(err, context.Canceled) {
			groupErr = err
			break
		}
	}
	if groupErr != nil {
		// Siblings that finished are discarded with the group.
		return groupErr
	}
	for i, name := range g.Stages {
		if outcomes[i].res == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("group '%s': stage '%s' never ran", g.Name, name)
		}
	}

	// Merge in declared order, single-threaded.
	for i, name := range g.Stages {
		if err := s.stages[name].Apply(pc, outcomes[i].res); err != nil {
			return err
		}
	}
	return nil
}

// runStage executes one stage with a start event, metrics, and a single
// retry after RetryBackoff when the failure is transient and the run is
// still live.
func (s *Scheduler) runStage(ctx context.Context, st stages.Stage, snap *envelope.PipelineContext, sink stages.EventSink, logger stages.Logger) (*envelope.StageResult, error) {
	name := st.Name()
	sink.Emit(name, "started")
	logger.Info("stage_started", "stage", name)

	start := time.Now()
	res, err := st.Execute(ctx, snap)
	if err != nil && stages.IsTransient(err) && ctx.Err() == nil {
		observability.RecordStageExecution(name, "retried", int(time.Since(start).Milliseconds()))
		logger.Warn("stage_retrying", "stage", name, "backoff", s.cfg.RetryBackoff.String(), "error", err.Error())
		if serr := sleepCtx(ctx, s.cfg.RetryBackoff); serr != nil {
			return nil, serr
		}
		res, err = st.Execute(ctx, snap)
	}
	durationMS := int(time.Since(start).Milliseconds())

	if err != nil {
		observability.RecordStageExecution(name, "error", durationMS)
		logger.Error("stage_failed", "stage", name, "duration_ms", durationMS, "error", err.Error())
		return nil, err
	}
	observability.RecordStageExecution(name, "success", durationMS)
	logger.Info("stage_completed", "stage", name, "duration_ms", durationMS)
	return res, nil
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
