package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

type fakeDraftStore struct {
	mu     sync.Mutex
	drafts map[string]*model.AttemptDraft
	saves  int
	clears int
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: make(map[string]*model.AttemptDraft)}
}

func (f *fakeDraftStore) Save(_ context.Context, userID, testID uuid.UUID, draft *model.AttemptDraft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[sessionKey(userID, testID)] = draft
	f.saves++
}

func (f *fakeDraftStore) Load(_ context.Context, userID, testID uuid.UUID) *model.AttemptDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[sessionKey(userID, testID)]
}

func (f *fakeDraftStore) Clear(_ context.Context, userID, testID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, sessionKey(userID, testID))
	f.clears++
}

func (f *fakeDraftStore) get(userID, testID uuid.UUID) *model.AttemptDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[sessionKey(userID, testID)]
}

type fakeSubmitter struct {
	mu       sync.Mutex
	err      error
	calls    int
	last     Submission
	returned uuid.UUID
}

func (f *fakeSubmitter) Submit(_ context.Context, sub Submission) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = sub
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.returned = uuid.New()
	return f.returned, nil
}

func (f *fakeSubmitter) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSubmitter) lastSubmission() Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func newTestManager(store DraftStore, sub Submitter) *Manager {
	return NewManager(store, sub, 5*time.Second, zerolog.Nop())
}

func TestManagerStartFreshSession(t *testing.T) {
	store := newFakeDraftStore()
	m := newTestManager(store, &fakeSubmitter{})
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(3)

	snap, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, testID, snap.TestID)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 30*60, snap.SecondsLeft)

	// The opening draft is persisted immediately so a crash loses nothing.
	assert.NotNil(t, store.get(userID, testID))
}

func TestManagerStartRejectsEmptyQuestionSet(t *testing.T) {
	m := newTestManager(newFakeDraftStore(), &fakeSubmitter{})

	_, err := m.Start(context.Background(), uuid.New(), uuid.New(), nil, 30)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestManagerStartReturnsExistingSessionAsIs(t *testing.T) {
	m := newTestManager(newFakeDraftStore(), &fakeSubmitter{})
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(2)

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)
	_, err = m.Apply(context.Background(), userID, testID, Event{Type: EventSelect, QuestionID: qs[0].ID, Option: 0})
	assert.NoError(t, err)

	snap, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)
	assert.Equal(t, 1, snap.Answered, "re-start must not reset the in-memory session")
}

func TestManagerStartResumesFromDraft(t *testing.T) {
	store := newFakeDraftStore()
	m := newTestManager(store, &fakeSubmitter{})
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(2)

	store.Save(context.Background(), userID, testID, &model.AttemptDraft{
		Version:     model.DraftVersion,
		Index:       1,
		SecondsLeft: 300,
		Answers:     map[string]*int{qs[0].ID.String(): intPtr(2)},
		Marked:      map[string]bool{qs[1].ID.String(): true},
		TimeSpent:   map[string]int{qs[0].ID.String(): 40},
	})

	snap, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 300, snap.SecondsLeft)
	assert.Equal(t, 1, snap.Answered)
	assert.True(t, snap.Palette[1].Marked)
}

func TestManagerGetUnknownSession(t *testing.T) {
	m := newTestManager(newFakeDraftStore(), &fakeSubmitter{})

	_, err := m.Get(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerApplyPersistsDraft(t *testing.T) {
	store := newFakeDraftStore()
	m := newTestManager(store, &fakeSubmitter{})
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(2)

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)

	snap, err := m.Apply(context.Background(), userID, testID, Event{Type: EventSelect, QuestionID: qs[1].ID, Option: 3})
	assert.NoError(t, err)
	assert.Equal(t, 1, snap.Answered)

	d := store.get(userID, testID)
	assert.NotNil(t, d)
	assert.Equal(t, intPtr(3), d.Answers[qs[1].ID.String()])

	snap, err = m.Apply(context.Background(), userID, testID, Event{Type: EventNavigate, Index: 1})
	assert.NoError(t, err)
	assert.Equal(t, 1, snap.Index)
}

func TestManagerApplyInvalidEvent(t *testing.T) {
	m := newTestManager(newFakeDraftStore(), &fakeSubmitter{})
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(2)

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)

	_, err = m.Apply(context.Background(), userID, testID, Event{Type: EventNavigate, Index: 9})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = m.Apply(context.Background(), uuid.New(), testID, Event{Type: EventNavigate, Index: 0})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerSubmitSuccessClearsDraftAndSession(t *testing.T) {
	store := newFakeDraftStore()
	sub := &fakeSubmitter{}
	m := newTestManager(store, sub)
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(3)

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)
	_, err = m.Apply(context.Background(), userID, testID, Event{Type: EventSelect, QuestionID: qs[0].ID, Option: 0})
	assert.NoError(t, err)

	attemptID, err := m.Submit(context.Background(), userID, testID)
	assert.NoError(t, err)
	assert.Equal(t, sub.returned, attemptID)

	got := sub.lastSubmission()
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, testID, got.TestID)
	assert.Equal(t, 1, got.Score)
	assert.Len(t, got.Records, 3)

	assert.Nil(t, store.get(userID, testID))
	_, err = m.Get(userID, testID)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerSubmitFailureKeepsSessionRetryable(t *testing.T) {
	store := newFakeDraftStore()
	sub := &fakeSubmitter{}
	sub.setErr(errors.New("storage down"))
	m := newTestManager(store, sub)
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(2)

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)
	_, err = m.Apply(context.Background(), userID, testID, Event{Type: EventSelect, QuestionID: qs[0].ID, Option: 0})
	assert.NoError(t, err)

	_, err = m.Submit(context.Background(), userID, testID)
	assert.Error(t, err)

	// Session and draft survive the failure with all answers intact.
	snap, err := m.Get(userID, testID)
	assert.NoError(t, err)
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, 1, snap.Answered)
	assert.NotNil(t, store.get(userID, testID))

	sub.setErr(nil)
	attemptID, err := m.Submit(context.Background(), userID, testID)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, attemptID)
	assert.Equal(t, 2, sub.callCount())
}

func TestManagerSubmitUnknownSession(t *testing.T) {
	m := newTestManager(newFakeDraftStore(), &fakeSubmitter{})

	_, err := m.Submit(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerAutoSubmitOnTimerExhaustion(t *testing.T) {
	store := newFakeDraftStore()
	sub := &fakeSubmitter{}
	m := newTestManager(store, sub)
	m.tickEvery = time.Millisecond
	userID, testID := uuid.New(), uuid.New()

	// Seed a draft with two seconds left so exhaustion happens quickly.
	qs := makeQuestions(1)
	store.Save(context.Background(), userID, testID, &model.AttemptDraft{
		Version:     model.DraftVersion,
		SecondsLeft: 2,
		Answers:     map[string]*int{qs[0].ID.String(): intPtr(0)},
		Marked:      map[string]bool{},
		TimeSpent:   map[string]int{},
	})

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := m.Get(userID, testID)
		return errors.Is(err, ErrNoSession)
	}, 2*time.Second, 5*time.Millisecond, "auto-submit must remove the session")

	assert.Equal(t, 1, sub.callCount())
	got := sub.lastSubmission()
	assert.Equal(t, 1, got.Score)
}

func TestManagerWatchReceivesSnapshotsAndCloses(t *testing.T) {
	sub := &fakeSubmitter{}
	m := newTestManager(newFakeDraftStore(), sub)
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(2)

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)

	ch, cancel, err := m.Watch(userID, testID)
	assert.NoError(t, err)
	defer cancel()

	_, err = m.Apply(context.Background(), userID, testID, Event{Type: EventSelect, QuestionID: qs[0].ID, Option: 1})
	assert.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, 1, snap.Answered)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot after Apply")
	}

	_, err = m.Submit(context.Background(), userID, testID)
	assert.NoError(t, err)

	// Drain until the channel closes: submission removes the session and
	// closes every watcher.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watcher channel not closed after submit")
		}
	}
}

func TestManagerWatchUnknownSession(t *testing.T) {
	m := newTestManager(newFakeDraftStore(), &fakeSubmitter{})

	_, _, err := m.Watch(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerClosePersistsDrafts(t *testing.T) {
	store := newFakeDraftStore()
	m := newTestManager(store, &fakeSubmitter{})
	userID, testID := uuid.New(), uuid.New()
	qs := makeQuestions(2)

	_, err := m.Start(context.Background(), userID, testID, qs, 30)
	assert.NoError(t, err)
	_, err = m.Apply(context.Background(), userID, testID, Event{Type: EventSelect, QuestionID: qs[1].ID, Option: 2})
	assert.NoError(t, err)

	m.Close(context.Background())

	d := store.get(userID, testID)
	assert.NotNil(t, d)
	assert.Equal(t, intPtr(2), d.Answers[qs[1].ID.String()])

	_, err = m.Get(userID, testID)
	assert.ErrorIs(t, err, ErrNoSession)
}
