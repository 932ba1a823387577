// Package testutil provides shared mocks for testing the analysis engine
// in isolation: a completion client with prefix-routed canned replies, a
// recording logger, a recording event sink, and a scriptable link checker.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

// =============================================================================
// MOCK COMPLETION CLIENT
// =============================================================================

// CompletionCall records a single completion call for assertion.
type CompletionCall struct {
	Model  string
	Prompt string
	Shape  stages.OutputShape
	At     time.Time
}

// MockCompletionClient implements stages.CompletionClient for testing.
// Configure replies by prompt substring or use DefaultResponse.
type MockCompletionClient struct {
	// Responses maps prompt substrings to replies. First match wins,
	// checked in insertion order.
	keys      []string
	responses map[string]string

	// DefaultResponse is returned when no substring matches.
	DefaultResponse string

	// Delay simulates completion latency.
	Delay time.Duration

	// Err causes Complete to return this error.
	Err error

	// FailuresBeforeSuccess makes the first N calls fail with Err, then
	// succeed. Used for retry tests.
	FailuresBeforeSuccess int

	mu    sync.Mutex
	calls []CompletionCall
}

// NewMockCompletionClient creates a mock with an empty JSON default reply.
func NewMockCompletionClient() *MockCompletionClient {
	return &MockCompletionClient{
		responses:       make(map[string]string),
		DefaultResponse: `{}`,
	}
}

// WithResponse routes prompts containing substr to reply.
func (m *MockCompletionClient) WithResponse(substr, reply string) *MockCompletionClient {
	if _, ok := m.responses[substr]; !ok {
		m.keys = append(m.keys, substr)
	}
	m.responses[substr] = reply
	return m
}

// WithError configures every call to fail.
func (m *MockCompletionClient) WithError(err error) *MockCompletionClient {
	m.Err = err
	return m
}

// WithDelay adds latency simulation.
func (m *MockCompletionClient) WithDelay(d time.Duration) *MockCompletionClient {
	m.Delay = d
	return m
}

// Complete implements stages.CompletionClient.
func (m *MockCompletionClient) Complete(ctx context.Context, req stages.Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CompletionCall{Model: req.Model, Prompt: req.Prompt, Shape: req.Shape, At: time.Now()})
	n := len(m.calls)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if m.Err != nil {
		if m.FailuresBeforeSuccess == 0 || n <= m.FailuresBeforeSuccess {
			return "", m.Err
		}
	}

	for _, key := range m.keys {
		if strings.Contains(req.Prompt, key) {
			return m.responses[key], nil
		}
	}
	return m.DefaultResponse, nil
}

// CallCount returns the number of calls made so far.
func (m *MockCompletionClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls.
func (m *MockCompletionClient) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionCall(nil), m.calls...)
}

// =============================================================================
// MOCK LOGGER
// =============================================================================

// LogEntry records one log call.
type LogEntry struct {
	Level  string
	Msg    string
	Fields []any
}

// MockLogger implements stages.Logger, recording entries for assertion.
// Bind shares the entry slice with the parent so a test sees everything.
type MockLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	bound   []any
}

// NewMockLogger creates a recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (l *MockLogger) log(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fields := append(append([]any(nil), l.bound...), kv...)
	*l.entries = append(*l.entries, LogEntry{Level: level, Msg: msg, Fields: fields})
}

func (l *MockLogger) Debug(msg string, kv ...any) { l.log("debug", msg, kv) }
func (l *MockLogger) Info(msg string, kv ...any)  { l.log("info", msg, kv) }
func (l *MockLogger) Warn(msg string, kv ...any)  { l.log("warn", msg, kv) }
func (l *MockLogger) Error(msg string, kv ...any) { l.log("error", msg, kv) }

// Bind implements stages.Logger.
func (l *MockLogger) Bind(fields ...any) stages.Logger {
	return &MockLogger{
		mu:      l.mu,
		entries: l.entries,
		bound:   append(append([]any(nil), l.bound...), fields...),
	}
}

// Entries returns a copy of everything logged through this logger tree.
func (l *MockLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), *l.entries...)
}

// HasMessage reports whether any entry carries msg.
func (l *MockLogger) HasMessage(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range *l.entries {
		if e.Msg == msg {
			return true
		}
	}
	return false
}

// =============================================================================
// MOCK EVENT SINK
// =============================================================================

// SinkEvent records one Emit call.
type SinkEvent struct {
	Stage   string
	Message string
}

// MockEventSink implements stages.EventSink, recording events in order.
type MockEventSink struct {
	mu     sync.Mutex
	events []SinkEvent
}

// NewMockEventSink creates a recording sink.
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

// Emit implements stages.EventSink.
func (s *MockEventSink) Emit(stage, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, SinkEvent{Stage: stage, Message: message})
}

// Events returns a copy of everything emitted.
func (s *MockEventSink) Events() []SinkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SinkEvent(nil), s.events...)
}

// StagesSeen returns distinct stage names in first-emit order.
func (s *MockEventSink) StagesSeen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.events {
		if !seen[e.Stage] {
			seen[e.Stage] = true
			out = append(out, e.Stage)
		}
	}
	return out
}

// =============================================================================
// MOCK LINK CHECKER
// =============================================================================

// MockLinkChecker scripts link-check outcomes by URL. Unlisted URLs pass.
type MockLinkChecker struct {
	mu      sync.Mutex
	broken  map[string]error
	checked []string
}

// NewMockLinkChecker creates a checker where every URL is valid.
func NewMockLinkChecker() *MockLinkChecker {
	return &MockLinkChecker{broken: make(map[string]error)}
}

// WithBroken marks a URL as failing with err.
func (c *MockLinkChecker) WithBroken(url string, err error) *MockLinkChecker {
	c.broken[url] = err
	return c
}

// Check implements heal.LinkChecker.
func (c *MockLinkChecker) Check(ctx context.Context, link string) error {
	c.mu.Lock()
	c.checked = append(c.checked, link)
	err := c.broken[link]
	c.mu.Unlock()
	return err
}

// Checked returns every URL probed, in order.
func (c *MockLinkChecker) Checked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.checked...)
}

// =============================================================================
// FIXTURES
// =============================================================================

// SampleVotes returns a vote triple with the given levels, in
// most-likely/conservative/optimistic order.
func SampleVotes(mostLikely, conservative, optimistic int) [3]envelope.EvaluatorVote {
	return [3]envelope.EvaluatorVote{
		{Role: envelope.RoleMostLikely, Level: mostLikely, Title: "Most Likely", Confidence: 0.8},
		{Role: envelope.RoleConservative, Level: conservative, Title: "Conservative", Confidence: 0.7},
		{Role: envelope.RoleOptimistic, Level: optimistic, Title: "Optimistic", Confidence: 0.7},
	}
}

// SampleBatch returns a fully populated recommendation batch whose URLs
// embed the tier name.
func SampleBatch() *envelope.RecommendationBatch {
	b := &envelope.RecommendationBatch{}
	for _, t := range envelope.Tiers() {
		b.Set(t, &envelope.JobRecommendation{
			Tier:      t,
			Title:     "Engineer",
			Company:   string(t) + " co",
			SearchURL: "https://www.google.com/search?q=" + string(t),
			FitScore:  8,
		})
	}
	return b
}
