package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// DraftStore persists one AttemptDraft per user+test. Save and Clear are
// best-effort: the draft is a convenience, not the source of truth, so
// implementations swallow their own failures. Load returns nil for missing,
// corrupt, or version-mismatched drafts.
type DraftStore interface {
	Save(ctx context.Context, userID, testID uuid.UUID, draft *model.AttemptDraft)
	Load(ctx context.Context, userID, testID uuid.UUID) *model.AttemptDraft
	Clear(ctx context.Context, userID, testID uuid.UUID)
}

// Submission is the finalized output of a session handed to the Submitter.
type Submission struct {
	UserID     uuid.UUID
	TestID     uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Score      int
	Records    []model.AnswerRecord
}

// Submitter writes one Attempt plus its AnswerRecords to durable storage and
// returns the new attempt's ID. It is the only coupling between a session
// and the persistence layer.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (uuid.UUID, error)
}

// Event is a user action applied to a running session.
type Event struct {
	Type       EventType `json:"type" binding:"required,oneof=select clear mark navigate"`
	QuestionID uuid.UUID `json:"question_id,omitempty"`
	Option     int       `json:"option,omitempty"`
	Index      int       `json:"index,omitempty"`
}

type EventType string

const (
	EventSelect   EventType = "select"
	EventClear    EventType = "clear"
	EventMark     EventType = "mark"
	EventNavigate EventType = "navigate"
)

// ErrNoSession is returned for operations on a test the user has no active
// session for.
var ErrNoSession = fmt.Errorf("no active session")

// activeSession pairs a runner with its timer goroutine and watchers.
// The mutex serializes ticks, user events, and submission, giving the
// runner its run-to-completion execution model.
type activeSession struct {
	mu        sync.Mutex
	runner    *Runner
	userID    uuid.UUID
	testID    uuid.UUID
	startedAt time.Time
	attemptID *uuid.UUID

	stop     chan struct{}
	stopOnce sync.Once

	watchMu     sync.Mutex
	watchers    map[int]chan Snapshot
	nextWatchID int
}

func (s *activeSession) stopTicker() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *activeSession) snapshotLocked() Snapshot {
	snap := s.runner.snapshot()
	snap.TestID = s.testID
	snap.AttemptID = s.attemptID
	return snap
}

// Manager owns all in-flight quiz sessions: one runner per user+test, a
// 1 Hz ticker per session, draft persistence after every mutation, and
// submission (manual or one-shot automatic on timer exhaustion).
type Manager struct {
	store         DraftStore
	submitter     Submitter
	submitTimeout time.Duration
	log           zerolog.Logger

	// tickEvery is one second in production; tests shorten it.
	tickEvery time.Duration

	mu       sync.RWMutex
	sessions map[string]*activeSession
}

// NewManager creates a session manager. The draft store and submitter are
// injected so the manager stays testable with fakes.
func NewManager(store DraftStore, submitter Submitter, submitTimeout time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		store:         store,
		submitter:     submitter,
		submitTimeout: submitTimeout,
		log:           log.With().Str("component", "session_manager").Logger(),
		tickEvery:     time.Second,
		sessions:      make(map[string]*activeSession),
	}
}

func sessionKey(userID, testID uuid.UUID) string {
	return userID.String() + ":" + testID.String()
}

// Start begins (or resumes) a session for user+test over the given question
// set. If a session is already active in memory it is returned as-is; if a
// prior draft exists in the store, state is restored from it verbatim.
func (m *Manager) Start(ctx context.Context, userID, testID uuid.UUID, questions []model.Question, durationMinutes int) (Snapshot, error) {
	key := sessionKey(userID, testID)

	m.mu.Lock()
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.snapshotLocked(), nil
	}

	runner, err := NewRunner(questions, durationMinutes)
	if err != nil {
		m.mu.Unlock()
		return Snapshot{}, err
	}
	runner.RestoreDraft(m.store.Load(ctx, userID, testID))

	s := &activeSession{
		runner:    runner,
		userID:    userID,
		testID:    testID,
		startedAt: time.Now(),
		stop:      make(chan struct{}),
		watchers:  make(map[int]chan Snapshot),
	}
	m.sessions[key] = s
	m.mu.Unlock()

	s.mu.Lock()
	draft := runner.Draft()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	m.store.Save(ctx, userID, testID, draft)

	go m.runTicker(s)

	m.log.Info().
		Str("user_id", userID.String()).
		Str("test_id", testID.String()).
		Int("questions", len(questions)).
		Int("seconds_left", snap.SecondsLeft).
		Msg("Session started")

	return snap, nil
}

// Get returns the current snapshot of an active session.
func (m *Manager) Get(userID, testID uuid.UUID) (Snapshot, error) {
	s, ok := m.lookup(userID, testID)
	if !ok {
		return Snapshot{}, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// Apply runs one user event against the session and persists the draft.
func (m *Manager) Apply(ctx context.Context, userID, testID uuid.UUID, ev Event) (Snapshot, error) {
	s, ok := m.lookup(userID, testID)
	if !ok {
		return Snapshot{}, ErrNoSession
	}

	s.mu.Lock()
	var err error
	switch ev.Type {
	case EventSelect:
		err = s.runner.Select(ev.QuestionID, ev.Option)
	case EventClear:
		err = s.runner.Clear(ev.QuestionID)
	case EventMark:
		err = s.runner.ToggleMark(ev.QuestionID)
	case EventNavigate:
		err = s.runner.Navigate(ev.Index)
	default:
		err = fmt.Errorf("unknown event type %q", ev.Type)
	}
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	draft := s.runner.Draft()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	m.store.Save(ctx, userID, testID, draft)
	m.broadcast(s, snap)
	return snap, nil
}

// Submit finalizes a session on the user's explicit request (the client
// confirms before calling). On success the draft is cleared and the session
// removed; on failure the session stays retryable with all state intact.
func (m *Manager) Submit(ctx context.Context, userID, testID uuid.UUID) (uuid.UUID, error) {
	s, ok := m.lookup(userID, testID)
	if !ok {
		return uuid.Nil, ErrNoSession
	}
	return m.submitSession(ctx, s)
}

// submitSession runs the Submitting transition under the session lock.
func (m *Manager) submitSession(ctx context.Context, s *activeSession) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.runner.BeginSubmit(); err != nil {
		return uuid.Nil, err
	}
	m.broadcast(s, s.snapshotLocked())

	submitCtx, cancel := context.WithTimeout(ctx, m.submitTimeout)
	defer cancel()

	attemptID, err := m.submitter.Submit(submitCtx, Submission{
		UserID:     s.userID,
		TestID:     s.testID,
		StartedAt:  s.startedAt,
		FinishedAt: time.Now(),
		Score:      s.runner.Score(),
		Records:    s.runner.Records(),
	})
	if err != nil {
		// Local draft untouched: the user retries without losing answers.
		s.runner.FailSubmit()
		m.broadcast(s, s.snapshotLocked())
		m.log.Error().Err(err).
			Str("user_id", s.userID.String()).
			Str("test_id", s.testID.String()).
			Msg("Attempt submission failed")
		return uuid.Nil, fmt.Errorf("submit attempt: %w", err)
	}

	s.attemptID = &attemptID
	s.runner.CompleteSubmit()
	s.stopTicker()
	m.store.Clear(context.Background(), s.userID, s.testID)
	m.broadcast(s, s.snapshotLocked())
	m.remove(s)

	m.log.Info().
		Str("user_id", s.userID.String()).
		Str("test_id", s.testID.String()).
		Str("attempt_id", attemptID.String()).
		Int("score", s.runner.Score()).
		Msg("Attempt submitted")

	return attemptID, nil
}

// runTicker is the per-session timer loop: one Tick per interval while the
// session lives. The ticker is stopped before auto-submission fires so no
// late tick can mutate a terminal session.
func (m *Manager) runTicker(s *activeSession) {
	ticker := time.NewTicker(m.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.runner.State() != StateRunning {
				s.mu.Unlock()
				continue
			}
			expired := s.runner.Tick()
			draft := s.runner.Draft()
			snap := s.snapshotLocked()
			s.mu.Unlock()

			m.store.Save(context.Background(), s.userID, s.testID, draft)
			m.broadcast(s, snap)

			if expired {
				s.stopTicker()
				if _, err := m.submitSession(context.Background(), s); err != nil {
					m.log.Warn().Err(err).
						Str("user_id", s.userID.String()).
						Str("test_id", s.testID.String()).
						Msg("Auto-submission failed; session awaits manual retry")
				}
				return
			}
		}
	}
}

// Watch subscribes to per-tick snapshots for a session. The returned cancel
// function must be called when the watcher goes away. Slow watchers miss
// snapshots rather than blocking the session.
func (m *Manager) Watch(userID, testID uuid.UUID) (<-chan Snapshot, func(), error) {
	s, ok := m.lookup(userID, testID)
	if !ok {
		return nil, nil, ErrNoSession
	}

	ch := make(chan Snapshot, 8)

	s.watchMu.Lock()
	id := s.nextWatchID
	s.nextWatchID++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	cancel := func() {
		s.watchMu.Lock()
		if _, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
		}
		s.watchMu.Unlock()
	}
	return ch, cancel, nil
}

// Close stops all tickers and persists every in-flight draft. Called on
// graceful shutdown so no running attempt loses progress.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*activeSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*activeSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.stopTicker()
		s.mu.Lock()
		draft := s.runner.Draft()
		s.mu.Unlock()
		m.store.Save(ctx, s.userID, s.testID, draft)
	}

	if len(sessions) > 0 {
		m.log.Info().Int("count", len(sessions)).Msg("Persisted in-flight session drafts")
	}
}

func (m *Manager) lookup(userID, testID uuid.UUID) (*activeSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionKey(userID, testID)]
	return s, ok
}

func (m *Manager) remove(s *activeSession) {
	m.mu.Lock()
	delete(m.sessions, sessionKey(s.userID, s.testID))
	m.mu.Unlock()

	s.watchMu.Lock()
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.watchMu.Unlock()
}

func (m *Manager) broadcast(s *activeSession, snap Snapshot) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default: // drop for slow watchers
		}
	}
}
