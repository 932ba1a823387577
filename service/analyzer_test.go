package service_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerscout-labs/resumeanalysis/engine/config"
	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/session"
	"github.com/careerscout-labs/resumeanalysis/engine/stages"
	"github.com/careerscout-labs/resumeanalysis/engine/testutil"
	"github.com/careerscout-labs/resumeanalysis/service"
)

const sampleResume = `Jane Doe
Senior Software Engineer, Acme Corp
January 2020 - Present

Software Engineer, Widgets Inc
March 2016 - December 2019

Skills: Go, distributed systems, Kubernetes. 8+ years of experience building backend platforms.`

func fastConfig() *config.EngineConfig {
	cfg := config.DefaultEngineConfig()
	cfg.ScoutStagger = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RunTimeout = 10 * time.Second
	return cfg
}

// fullClient scripts every completion-backed stage of the main pipeline.
func fullClient() *testutil.MockCompletionClient {
	return testutil.NewMockCompletionClient().
		WithResponse("resume parser",
			`{"current_title": "Senior Software Engineer", "current_company": "Acme Corp", "total_yoe": 10.3, "skills": ["Go", "Kubernetes"], "qualitative_trend": "IC growth", "inferred_direction": "Staff Engineer"}`).
		WithResponse("level classifier",
			`{"profession": "Software Engineering", "normalized_level": 5, "level_title": "Senior Engineer", "confidence": 0.8, "reasoning": "scope and tenure"}`).
		WithResponse("conservative evaluator",
			`{"conservative_level": 5, "title": "Senior Engineer", "confidence": 0.7, "rationale": "solid but unexceptional"}`).
		WithResponse("optimistic evaluator",
			`{"optimistic_level": 6, "title": "Staff Engineer", "confidence": 0.6, "rationale": "trajectory"}`).
		WithResponse("YOUR TIER: EXACT MATCH",
			`{"title": "Senior Engineer", "company": "Stripe", "search_url": "https://www.google.com/search?q=Stripe+Senior+Engineer+careers", "fit_score": 9}`).
		WithResponse("YOUR TIER: LEVEL UP",
			`{"title": "Staff Engineer", "company": "Datadog", "search_url": "https://www.google.com/search?q=Datadog+Staff+Engineer+careers", "fit_score": 8}`).
		WithResponse("YOUR TIER: STRETCH",
			`{"title": "Principal Engineer", "company": "Rippling", "search_url": "https://www.google.com/search?q=Rippling+Principal+Engineer+careers", "fit_score": 7}`).
		WithResponse("YOUR TIER: TRAJECTORY",
			`{"title": "Head of Platform", "company": "Vercel", "search_url": "https://www.google.com/search?q=Vercel+Head+of+Platform+careers", "fit_score": 6}`).
		WithResponse("final resume-analysis report",
			"## RESUME ANALYSIS\n\nSenior Software Engineer at Acme Corp.\n\n## LEVEL CLASSIFICATION RESULT\n\nL5 Senior Engineer.")
}

func newAnalyzer(t *testing.T, client *testutil.MockCompletionClient) *service.Analyzer {
	t.Helper()
	a, err := service.NewAnalyzer(fastConfig(), client, testutil.NewMockLinkChecker(), testutil.NewMockLogger())
	require.NoError(t, err)
	return a
}

func collect(t *testing.T, ch <-chan envelope.ProgressEvent) []envelope.ProgressEvent {
	t.Helper()
	var out []envelope.ProgressEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("run never terminated")
		}
	}
}

func TestStartRunFullPipeline(t *testing.T) {
	a := newAnalyzer(t, fullClient())

	events, err := a.StartRun(context.Background(), "sess-1", sampleResume, config.TierStandard)
	require.NoError(t, err)

	all := collect(t, events)
	require.NotEmpty(t, all)
	last := all[len(all)-1]
	require.Equal(t, envelope.EventResult, last.Type, "run should end with a result sentinel, got: %+v", last)

	t.Run("artifact carries the formatted report and consensus", func(t *testing.T) {
		require.NotNil(t, last.Artifact)
		assert.Contains(t, last.Artifact.Markdown, "## RESUME ANALYSIS")
		require.NotNil(t, last.Artifact.Consensus)
		assert.Equal(t, 5, last.Artifact.Consensus.FinalLevel)
		assert.Equal(t, 2, last.Artifact.Consensus.Agreement)
		assert.Equal(t, "sess-1", last.Artifact.SessionID)
	})

	t.Run("stream is ordered and terminal exactly once", func(t *testing.T) {
		terminals := 0
		for i, ev := range all {
			if i > 0 {
				assert.Greater(t, ev.Seq, all[i-1].Seq)
			}
			if ev.Terminal() {
				terminals++
			}
		}
		assert.Equal(t, 1, terminals)
		assert.True(t, all[len(all)-1].Terminal())
	})

	t.Run("progress covers the pipeline stages", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, ev := range all {
			seen[ev.Stage] = true
		}
		for _, stage := range []string{"career_analytics", "resume_parser", "level_classifier", "consensus", "url_validator", "formatter"} {
			assert.True(t, seen[stage], "no progress event from %s", stage)
		}
	})

	t.Run("result is stored in session history", func(t *testing.T) {
		n, err := a.HistoryLen("sess-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		cur, err := a.Current("sess-1")
		require.NoError(t, err)
		assert.Equal(t, last.Artifact.RunID, cur.RunID)
	})
}

func TestStartRunRejectsShortResume(t *testing.T) {
	a := newAnalyzer(t, fullClient())

	_, err := a.StartRun(context.Background(), "sess", "too short", config.TierStandard)
	assert.ErrorIs(t, err, service.ErrResumeTooShort)
}

func TestStartRunFailureSentinel(t *testing.T) {
	// A classifier that never returns valid JSON makes the run fail
	// terminally; the failure must arrive as a stream sentinel.
	client := fullClient().WithResponse("level classifier", "I refuse to answer in JSON")
	a := newAnalyzer(t, client)

	events, err := a.StartRun(context.Background(), "sess", sampleResume, config.TierStandard)
	require.NoError(t, err)

	all := collect(t, events)
	last := all[len(all)-1]
	require.Equal(t, envelope.EventError, last.Type)
	assert.Equal(t, "level_classifier", last.Stage)
	assert.NotEmpty(t, last.Err)

	// A failed run stores nothing.
	n, err := a.HistoryLen("sess")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRefine(t *testing.T) {
	a := newAnalyzer(t, fullClient())

	first, err := a.StartRun(context.Background(), "sess", sampleResume, config.TierStandard)
	require.NoError(t, err)
	firstEvents := collect(t, first)
	require.Equal(t, envelope.EventResult, firstEvents[len(firstEvents)-1].Type)

	events, err := a.Refine(context.Background(), "sess", "remote only", config.TierStandard)
	require.NoError(t, err)
	all := collect(t, events)
	last := all[len(all)-1]
	require.Equal(t, envelope.EventResult, last.Type)

	t.Run("refinement skips the analysis half", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, ev := range all {
			seen[ev.Stage] = true
		}
		assert.False(t, seen["resume_parser"])
		assert.False(t, seen["level_classifier"])
		assert.True(t, seen["url_validator"])
		assert.True(t, seen["formatter"])
	})

	t.Run("refinement appends to history", func(t *testing.T) {
		n, err := a.HistoryLen("sess")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// Undo returns the original run, redo the refinement.
		prev, err := a.Back("sess")
		require.NoError(t, err)
		assert.Equal(t, firstEvents[len(firstEvents)-1].Artifact.RunID, prev.RunID)

		next, err := a.Forward("sess")
		require.NoError(t, err)
		assert.Equal(t, last.Artifact.RunID, next.RunID)
	})

	t.Run("refinement keeps the original consensus", func(t *testing.T) {
		assert.Equal(t, firstEvents[len(firstEvents)-1].Artifact.Consensus.FinalLevel,
			last.Artifact.Consensus.FinalLevel)
	})
}

func TestRefineErrors(t *testing.T) {
	a := newAnalyzer(t, fullClient())

	t.Run("unknown session", func(t *testing.T) {
		_, err := a.Refine(context.Background(), "ghost", "remote", config.TierStandard)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("session without a completed run", func(t *testing.T) {
		// Start a run that fails, leaving the session without analysis.
		client := fullClient().WithResponse("resume parser", "garbage")
		b := newAnalyzer(t, client)
		events, err := b.StartRun(context.Background(), "sess", sampleResume, config.TierStandard)
		require.NoError(t, err)
		collect(t, events)

		_, err = b.Refine(context.Background(), "sess", "remote", config.TierStandard)
		assert.ErrorIs(t, err, service.ErrNoAnalysis)
	})
}

func TestTierSelectsModels(t *testing.T) {
	client := fullClient()
	a := newAnalyzer(t, client)

	events, err := a.StartRun(context.Background(), "sess", sampleResume, config.TierFast)
	require.NoError(t, err)
	collect(t, events)

	models := make(map[string]bool)
	for _, call := range client.Calls() {
		models[call.Model] = true
	}
	assert.True(t, models["gemini-2.5-flash"], "fast tier should use the fast flash model, saw %v", models)
	assert.True(t, models["gemini-2.5-flash-lite"], "formatter should use the lite slot")
}

func TestExpire(t *testing.T) {
	a := newAnalyzer(t, fullClient())

	events, err := a.StartRun(context.Background(), "sess", sampleResume, config.TierStandard)
	require.NoError(t, err)
	collect(t, events)

	a.Expire("sess")
	_, err = a.Current("sess")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// holdingClient scripts the pipeline like fullClient but classifies level 6
// from the second classifier call onward, and parks the second formatter
// call until the test opens the gate.
type holdingClient struct {
	inner          *testutil.MockCompletionClient
	classifierHits atomic.Int32
	formatterHits  atomic.Int32
	entered        chan struct{}
	gate           chan struct{}
}

func newHoldingClient() *holdingClient {
	return &holdingClient{
		inner:   fullClient(),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (h *holdingClient) Complete(ctx context.Context, req stages.Request) (string, error) {
	if strings.Contains(req.Prompt, "level classifier") && h.classifierHits.Add(1) > 1 {
		// Still record the call through the inner mock for bookkeeping.
		if _, err := h.inner.Complete(ctx, req); err != nil {
			return "", err
		}
		return `{"profession": "Software Engineering", "normalized_level": 6, "level_title": "Staff Engineer", "confidence": 0.8, "reasoning": "scope and tenure"}`, nil
	}
	if strings.Contains(req.Prompt, "final resume-analysis report") && h.formatterHits.Add(1) == 2 {
		close(h.entered)
		select {
		case <-h.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return h.inner.Complete(ctx, req)
}

func TestRefineReadsContextSavedByInFlightRun(t *testing.T) {
	// A refinement requested while another run holds the session's run lock
	// must operate on the context that run saves, not on a snapshot taken
	// before the lock was acquired.
	client := newHoldingClient()
	a, err := service.NewAnalyzer(fastConfig(), client, testutil.NewMockLinkChecker(), testutil.NewMockLogger())
	require.NoError(t, err)

	// Run 1 completes normally: classifier votes 5, consensus lands on 5.
	first, err := a.StartRun(context.Background(), "sess", sampleResume, config.TierStandard)
	require.NoError(t, err)
	firstEvents := collect(t, first)
	require.Equal(t, envelope.EventResult, firstEvents[len(firstEvents)-1].Type)
	assert.Equal(t, 5, firstEvents[len(firstEvents)-1].Artifact.Consensus.FinalLevel)

	// Run 2 classifies level 6 and parks at its formatter call, holding
	// the session's run lock with its result not yet saved.
	second, err := a.StartRun(context.Background(), "sess", sampleResume, config.TierStandard)
	require.NoError(t, err)
	select {
	case <-client.entered:
	case <-time.After(10 * time.Second):
		t.Fatal("second run never reached the formatter")
	}

	refined, err := a.Refine(context.Background(), "sess", "remote only", config.TierStandard)
	require.NoError(t, err)

	// Let run 2 finish; it saves the level-6 context and releases the lock.
	close(client.gate)
	secondEvents := collect(t, second)
	require.Equal(t, envelope.EventResult, secondEvents[len(secondEvents)-1].Type)
	assert.Equal(t, 6, secondEvents[len(secondEvents)-1].Artifact.Consensus.FinalLevel)

	refinedEvents := collect(t, refined)
	last := refinedEvents[len(refinedEvents)-1]
	require.Equal(t, envelope.EventResult, last.Type)
	assert.Equal(t, 6, last.Artifact.Consensus.FinalLevel,
		"refinement should carry the consensus saved by the run that held the lock")

	n, err := a.HistoryLen("sess")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestScoutStaggerRespectedInRealPipeline(t *testing.T) {
	cfg := fastConfig()
	cfg.ScoutStagger = 25 * time.Millisecond

	client := fullClient()
	a, err := service.NewAnalyzer(cfg, client, testutil.NewMockLinkChecker(), testutil.NewMockLogger())
	require.NoError(t, err)

	events, err := a.StartRun(context.Background(), "sess", sampleResume, config.TierStandard)
	require.NoError(t, err)
	all := collect(t, events)
	require.Equal(t, envelope.EventResult, all[len(all)-1].Type)

	// Scout completion calls must be spread out, not simultaneous.
	var scoutTimes []time.Time
	for _, call := range client.Calls() {
		if strings.Contains(call.Prompt, "YOUR TIER:") {
			scoutTimes = append(scoutTimes, call.At)
		}
	}
	require.Len(t, scoutTimes, 4)
	span := scoutTimes[3].Sub(scoutTimes[0])
	if span < 0 {
		span = -span
	}
	assert.GreaterOrEqual(t, span, 50*time.Millisecond)
}
