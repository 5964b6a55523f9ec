package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, model.Question{
			ID:           uuid.New(),
			Topic:        "General",
			Text:         "question",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
		})
	}
	return qs
}

func intPtr(v int) *int { return &v }

func TestNewRunnerRejectsEmptyQuestionSet(t *testing.T) {
	r, err := NewRunner(nil, 30)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestNewRunnerStartsRunningWithFullTimer(t *testing.T) {
	r, err := NewRunner(makeQuestions(3), 30)
	assert.NoError(t, err)
	assert.Equal(t, StateRunning, r.State())
	assert.Equal(t, 30*60, r.SecondsLeft())
	assert.Equal(t, 0, r.Index())
}

func TestNewRunnerClampsDuration(t *testing.T) {
	r, err := NewRunner(makeQuestions(1), 0)
	assert.NoError(t, err)
	assert.Equal(t, model.DefaultDurationMinutes*60, r.SecondsLeft())

	r, err = NewRunner(makeQuestions(1), 10000)
	assert.NoError(t, err)
	assert.Equal(t, model.MaxDurationMinutes*60, r.SecondsLeft())
}

func TestTickCountsDownAndAttributesTime(t *testing.T) {
	qs := makeQuestions(3)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)

	assert.False(t, r.Tick())
	assert.False(t, r.Tick())
	assert.NoError(t, r.Navigate(2))
	assert.False(t, r.Tick())

	assert.Equal(t, 30*60-3, r.SecondsLeft())
	assert.Equal(t, 2, r.timeSpent[qs[0].ID])
	assert.Equal(t, 0, r.timeSpent[qs[1].ID])
	assert.Equal(t, 1, r.timeSpent[qs[2].ID])
}

func TestTickFiresAutoSubmitExactlyOnce(t *testing.T) {
	r, err := NewRunner(makeQuestions(1), model.MinDurationMinutes)
	assert.NoError(t, err)
	r.remaining = 2

	assert.False(t, r.Tick())
	assert.True(t, r.Tick(), "the exhausting tick signals auto-submit")
	assert.Equal(t, 0, r.SecondsLeft())

	// The timer floors at zero and never signals again.
	assert.False(t, r.Tick())
	assert.Equal(t, 0, r.SecondsLeft())
}

func TestTickIgnoredOutsideRunning(t *testing.T) {
	qs := makeQuestions(1)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)
	assert.NoError(t, r.BeginSubmit())

	assert.False(t, r.Tick())
	assert.Equal(t, 30*60, r.SecondsLeft())
	assert.Equal(t, 0, r.timeSpent[qs[0].ID])
}

func TestNavigateBounds(t *testing.T) {
	r, err := NewRunner(makeQuestions(3), 30)
	assert.NoError(t, err)

	assert.NoError(t, r.Navigate(2))
	assert.Equal(t, 2, r.Index())

	assert.ErrorIs(t, r.Navigate(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, r.Navigate(3), ErrIndexOutOfRange)
	assert.Equal(t, 2, r.Index())
}

func TestSelectClearAndMark(t *testing.T) {
	qs := makeQuestions(2)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)

	assert.NoError(t, r.Select(qs[1].ID, 3))
	snap := r.snapshot()
	assert.Equal(t, 1, snap.Answered)
	assert.Equal(t, intPtr(3), snap.Palette[1].ChosenIndex)

	assert.ErrorIs(t, r.Select(qs[0].ID, 4), ErrOptionOutOfRange)
	assert.ErrorIs(t, r.Select(qs[0].ID, -1), ErrOptionOutOfRange)
	assert.ErrorIs(t, r.Select(uuid.New(), 0), ErrUnknownQuestion)

	assert.NoError(t, r.Clear(qs[1].ID))
	assert.Equal(t, 0, r.snapshot().Answered)
	assert.ErrorIs(t, r.Clear(uuid.New()), ErrUnknownQuestion)

	assert.NoError(t, r.ToggleMark(qs[0].ID))
	assert.True(t, r.snapshot().Palette[0].Marked)
	assert.NoError(t, r.ToggleMark(qs[0].ID))
	assert.False(t, r.snapshot().Palette[0].Marked)
	assert.ErrorIs(t, r.ToggleMark(uuid.New()), ErrUnknownQuestion)
}

func TestEventsRejectedAfterTerminal(t *testing.T) {
	qs := makeQuestions(1)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)
	assert.NoError(t, r.BeginSubmit())
	r.CompleteSubmit()

	assert.ErrorIs(t, r.Navigate(0), ErrNotRunning)
	assert.ErrorIs(t, r.Select(qs[0].ID, 0), ErrNotRunning)
	assert.ErrorIs(t, r.Clear(qs[0].ID), ErrNotRunning)
	assert.ErrorIs(t, r.ToggleMark(qs[0].ID), ErrNotRunning)
}

func TestSubmitTransitions(t *testing.T) {
	r, err := NewRunner(makeQuestions(1), 30)
	assert.NoError(t, err)

	assert.NoError(t, r.BeginSubmit())
	assert.Equal(t, StateSubmitting, r.State())
	assert.ErrorIs(t, r.BeginSubmit(), ErrSubmitInFlight)

	r.CompleteSubmit()
	assert.Equal(t, StateSubmitted, r.State())
	assert.ErrorIs(t, r.BeginSubmit(), ErrAlreadyTerminal)
}

func TestFailSubmitResumesRunningBeforeExhaustion(t *testing.T) {
	r, err := NewRunner(makeQuestions(1), 30)
	assert.NoError(t, err)

	assert.NoError(t, r.BeginSubmit())
	r.FailSubmit()
	assert.Equal(t, StateRunning, r.State())

	// The session stays fully usable after a failed manual submit.
	assert.NoError(t, r.Navigate(0))
	assert.NoError(t, r.BeginSubmit())
}

func TestFailSubmitParksErroredAfterExhaustion(t *testing.T) {
	r, err := NewRunner(makeQuestions(1), 30)
	assert.NoError(t, err)
	r.remaining = 1
	assert.True(t, r.Tick())

	assert.NoError(t, r.BeginSubmit())
	r.FailSubmit()
	assert.Equal(t, StateErrored, r.State())

	// Errored allows only a retried submit, not further events.
	assert.ErrorIs(t, r.Navigate(0), ErrNotRunning)
	assert.NoError(t, r.BeginSubmit())
}

func TestScoreUnansweredNeverCounts(t *testing.T) {
	qs := makeQuestions(4) // correct indexes 0,1,2,3
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)

	assert.NoError(t, r.Select(qs[0].ID, 0)) // correct
	assert.NoError(t, r.Select(qs[1].ID, 0)) // wrong
	assert.NoError(t, r.Select(qs[2].ID, 2)) // correct
	// qs[3] unanswered

	assert.Equal(t, 2, r.Score())

	assert.NoError(t, r.Clear(qs[0].ID))
	assert.Equal(t, 1, r.Score())
}

func TestDraftRoundTrip(t *testing.T) {
	qs := makeQuestions(3)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)

	assert.NoError(t, r.Select(qs[0].ID, 1))
	assert.NoError(t, r.ToggleMark(qs[2].ID))
	assert.NoError(t, r.Navigate(1))
	r.Tick()
	r.Tick()

	d := r.Draft()
	assert.Equal(t, model.DraftVersion, d.Version)

	restored, err := NewRunner(qs, 30)
	assert.NoError(t, err)
	restored.RestoreDraft(d)

	assert.Equal(t, r.Index(), restored.Index())
	assert.Equal(t, r.SecondsLeft(), restored.SecondsLeft())
	assert.Equal(t, r.Score(), restored.Score())
	assert.Equal(t, r.snapshot(), restored.snapshot())
}

func TestRestoreDraftClampsAndDropsStaleEntries(t *testing.T) {
	qs := makeQuestions(2)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)

	staleID := uuid.New().String()
	r.RestoreDraft(&model.AttemptDraft{
		Version:     model.DraftVersion,
		Index:       99,
		SecondsLeft: -5,
		Answers: map[string]*int{
			qs[0].ID.String(): intPtr(7), // out of option range, dropped
			qs[1].ID.String(): intPtr(2),
			staleID:           intPtr(0), // question no longer in the set
		},
		Marked:    map[string]bool{staleID: true, qs[0].ID.String(): true},
		TimeSpent: map[string]int{qs[0].ID.String(): -3, qs[1].ID.String(): 12},
	})

	assert.Equal(t, 1, r.Index())
	assert.Equal(t, 0, r.SecondsLeft())

	snap := r.snapshot()
	assert.Nil(t, snap.Palette[0].ChosenIndex)
	assert.Equal(t, intPtr(2), snap.Palette[1].ChosenIndex)
	assert.True(t, snap.Palette[0].Marked)
	assert.False(t, snap.Palette[1].Marked)
	assert.Equal(t, 0, r.timeSpent[qs[0].ID])
	assert.Equal(t, 12, r.timeSpent[qs[1].ID])
}

func TestRestoreDraftNilIsNoop(t *testing.T) {
	r, err := NewRunner(makeQuestions(2), 30)
	assert.NoError(t, err)
	before := r.snapshot()

	r.RestoreDraft(nil)
	assert.Equal(t, before, r.snapshot())
}

func TestRecordsInQuestionOrderWithClampedTime(t *testing.T) {
	qs := makeQuestions(2)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)

	assert.NoError(t, r.Select(qs[1].ID, 1))
	r.timeSpent[qs[0].ID] = model.MaxTimeSpentSec + 500

	records := r.Records()
	assert.Len(t, records, 2)

	assert.Equal(t, qs[0].ID, records[0].QuestionID)
	assert.Nil(t, records[0].ChosenIndex)
	assert.False(t, records[0].IsCorrect)
	assert.Equal(t, model.MaxTimeSpentSec, records[0].TimeSpentSec)

	assert.Equal(t, qs[1].ID, records[1].QuestionID)
	assert.Equal(t, intPtr(1), records[1].ChosenIndex)
	assert.True(t, records[1].IsCorrect)
}

func TestSnapshotCopiesChosenIndex(t *testing.T) {
	qs := makeQuestions(1)
	r, err := NewRunner(qs, 30)
	assert.NoError(t, err)
	assert.NoError(t, r.Select(qs[0].ID, 1))

	snap := r.snapshot()
	*snap.Palette[0].ChosenIndex = 3

	// Mutating a snapshot never leaks back into the runner.
	assert.Equal(t, intPtr(1), r.answers[qs[0].ID])
}
