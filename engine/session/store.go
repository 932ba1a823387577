// Package session provides the in-memory session store: per-session run
// serialization, the persisted pipeline context used by refinement, and a
// linear result history with an undo/redo cursor.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/observability"
	"github.com/careerscout-labs/resumeanalysis/engine/stages"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = time.Hour

var (
	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrNoHistory is returned when the cursor cannot move further.
	ErrNoHistory = errors.New("no history entry in that direction")
)

// session is one live session. The run mutex serializes runs and
// refinements; the store's mutex only guards the map.
type session struct {
	id         string
	runMu      sync.Mutex
	mu         sync.Mutex
	createdAt  time.Time
	lastAccess time.Time
	pc         *envelope.PipelineContext
	history    []*envelope.FinalArtifact
	cursor     int // index into history; -1 when empty
}

// Store holds sessions keyed by ID and expires idle ones.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	logger   stages.Logger
	now      func() time.Time
}

// NewStore creates a store with the given idle TTL (DefaultTTL if zero).
func NewStore(ttl time.Duration, logger stages.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		logger:   logger.Bind("component", "session_store"),
		now:      time.Now,
	}
}

// CreateOrGet returns the session for id, creating it if absent.
func (s *Store) CreateOrGet(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(id)
}

func (s *Store) getOrCreateLocked(id string) *session {
	if sess, ok := s.sessions[id]; ok {
		sess.mu.Lock()
		sess.lastAccess = s.now()
		sess.mu.Unlock()
		return sess
	}
	now := s.now()
	sess := &session{
		id:         id,
		createdAt:  now,
		lastAccess: now,
		cursor:     -1,
	}
	s.sessions[id] = sess
	observability.SetActiveSessions(len(s.sessions))
	s.logger.Info("session_created", "session_id", id)
	return sess
}

func (s *Store) get(id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.mu.Lock()
	sess.lastAccess = s.now()
	sess.mu.Unlock()
	return sess, nil
}

// Acquire takes the session's run lock, creating the session if needed.
// The returned release function must be called when the run finishes.
// Runs and refinements on the same session are serialized through it;
// different sessions never contend.
func (s *Store) Acquire(id string) func() {
	s.mu.Lock()
	sess := s.getOrCreateLocked(id)
	s.mu.Unlock()
	sess.runMu.Lock()
	return sess.runMu.Unlock
}

// Context returns a deep copy of the session's stored pipeline context.
// Refinement runs start from it. Returns ErrNotFound for unknown sessions
// and a nil context when no run has completed yet.
func (s *Store) Context(id string) (*envelope.PipelineContext, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pc == nil {
		return nil, nil
	}
	return sess.pc.Clone(), nil
}

// SaveResult persists a completed run: the context is deep-copied for later
// refinement and the artifact is appended to history. Appending after undo
// discards everything past the cursor; redo entries do not survive a new
// result.
func (s *Store) SaveResult(id string, pc *envelope.PipelineContext, artifact *envelope.FinalArtifact) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.pc = pc.Clone()
	sess.history = sess.history[:sess.cursor+1]
	sess.history = append(sess.history, artifact)
	sess.cursor = len(sess.history) - 1
	return nil
}

// Current returns the artifact at the cursor.
func (s *Store) Current(id string) (*envelope.FinalArtifact, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cursor < 0 {
		return nil, ErrNoHistory
	}
	return sess.history[sess.cursor], nil
}

// Back moves the cursor one step earlier and returns that artifact.
func (s *Store) Back(id string) (*envelope.FinalArtifact, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cursor <= 0 {
		return nil, ErrNoHistory
	}
	sess.cursor--
	return sess.history[sess.cursor], nil
}

// Forward moves the cursor one step later and returns that artifact.
func (s *Store) Forward(id string) (*envelope.FinalArtifact, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cursor >= len(sess.history)-1 {
		return nil, ErrNoHistory
	}
	sess.cursor++
	return sess.history[sess.cursor], nil
}

// HistoryLen returns the number of stored artifacts, including entries
// ahead of the cursor that a new result would truncate.
func (s *Store) HistoryLen(id string) (int, error) {
	sess, err := s.get(id)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.history), nil
}

// Expire removes a session immediately.
func (s *Store) Expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	observability.SetActiveSessions(len(s.sessions))
	s.logger.Info("session_expired", "session_id", id, "reason", "explicit")
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle past the TTL and returns how many it removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastAccess.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
			s.logger.Info("session_expired", "session_id", id, "reason", "ttl")
		}
	}
	if removed > 0 {
		observability.SetActiveSessions(len(s.sessions))
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}
