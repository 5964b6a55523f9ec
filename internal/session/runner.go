package session

import (
	"errors"

	"github.com/google/uuid"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// State enumerates the lifecycle of a quiz session.
type State string

const (
	StateRunning    State = "RUNNING"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
	StateErrored    State = "ERRORED"
)

// Runner errors.
var (
	ErrNoQuestions      = errors.New("no questions available")
	ErrNotRunning       = errors.New("session is not running")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrUnknownQuestion  = errors.New("question does not belong to this session")
	ErrOptionOutOfRange = errors.New("option index out of range")
	ErrAlreadyTerminal  = errors.New("session already submitted")
	ErrSubmitInFlight   = errors.New("submission already in progress")
)

// Runner drives a single timed attempt over an immutable, ordered question
// list: countdown, per-question elapsed time, answer and review-mark state,
// palette navigation, and the submit transitions.
//
// Runner itself is not goroutine safe. The Manager serializes every event
// (timer ticks and user actions) per session, so each method runs to
// completion before the next fires.
type Runner struct {
	questions []model.Question
	byID      map[uuid.UUID]int

	state     State
	idx       int
	remaining int
	answers   map[uuid.UUID]*int
	marked    map[uuid.UUID]bool
	timeSpent map[uuid.UUID]int
	autoFired bool
}

// NewRunner builds a fresh Running session with the timer set to the full
// duration and the current index at 0. An empty question set refuses to
// start.
func NewRunner(questions []model.Question, durationMinutes int) (*Runner, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	r := &Runner{
		questions: questions,
		byID:      make(map[uuid.UUID]int, len(questions)),
		state:     StateRunning,
		remaining: model.ClampDuration(durationMinutes) * 60,
		answers:   make(map[uuid.UUID]*int, len(questions)),
		marked:    make(map[uuid.UUID]bool, len(questions)),
		timeSpent: make(map[uuid.UUID]int, len(questions)),
	}
	for i, q := range questions {
		r.byID[q.ID] = i
		r.answers[q.ID] = nil
		r.marked[q.ID] = false
		r.timeSpent[q.ID] = 0
	}
	return r, nil
}

// RestoreDraft overwrites the runner's state from a previously saved draft.
// The index is clamped to the valid range and the three maps are backfilled
// so every question in the set has an entry. Entries for questions no longer
// in the set are dropped. A nil draft is a no-op.
func (r *Runner) RestoreDraft(d *model.AttemptDraft) {
	if d == nil {
		return
	}

	r.idx = d.Index
	if r.idx < 0 {
		r.idx = 0
	}
	if r.idx >= len(r.questions) {
		r.idx = len(r.questions) - 1
	}

	r.remaining = d.SecondsLeft
	if r.remaining < 0 {
		r.remaining = 0
	}

	for _, q := range r.questions {
		key := q.ID.String()

		if chosen, ok := d.Answers[key]; ok && chosen != nil && *chosen >= 0 && *chosen < len(q.Options) {
			v := *chosen
			r.answers[q.ID] = &v
		} else {
			r.answers[q.ID] = nil
		}
		r.marked[q.ID] = d.Marked[key]

		spent := d.TimeSpent[key]
		if spent < 0 {
			spent = 0
		}
		r.timeSpent[q.ID] = spent
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// SecondsLeft returns the remaining countdown in seconds.
func (r *Runner) SecondsLeft() int {
	return r.remaining
}

// Index returns the currently displayed question index.
func (r *Runner) Index() int {
	return r.idx
}

// Tick advances the countdown by one second and attributes that second to
// whichever question is currently displayed. The countdown floors at zero.
// It returns true exactly once, on the tick at which the timer is exhausted:
// the signal for the one-shot auto-submission. Ticks outside Running are
// ignored.
func (r *Runner) Tick() bool {
	if r.state != StateRunning {
		return false
	}

	if r.remaining > 0 {
		r.remaining--
	}
	r.timeSpent[r.questions[r.idx].ID]++

	if r.remaining == 0 && !r.autoFired {
		r.autoFired = true
		return true
	}
	return false
}

// Navigate moves the current index to i.
func (r *Runner) Navigate(i int) error {
	if r.state != StateRunning {
		return ErrNotRunning
	}
	if i < 0 || i >= len(r.questions) {
		return ErrIndexOutOfRange
	}
	r.idx = i
	return nil
}

// Select records the chosen option for a question. The question does not
// have to be the currently displayed one.
func (r *Runner) Select(questionID uuid.UUID, option int) error {
	if r.state != StateRunning {
		return ErrNotRunning
	}
	i, ok := r.byID[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if option < 0 || option >= len(r.questions[i].Options) {
		return ErrOptionOutOfRange
	}
	v := option
	r.answers[questionID] = &v
	return nil
}

// Clear resets a question's chosen option to unanswered.
func (r *Runner) Clear(questionID uuid.UUID) error {
	if r.state != StateRunning {
		return ErrNotRunning
	}
	if _, ok := r.byID[questionID]; !ok {
		return ErrUnknownQuestion
	}
	r.answers[questionID] = nil
	return nil
}

// ToggleMark flips a question's marked-for-review flag.
func (r *Runner) ToggleMark(questionID uuid.UUID) error {
	if r.state != StateRunning {
		return ErrNotRunning
	}
	if _, ok := r.byID[questionID]; !ok {
		return ErrUnknownQuestion
	}
	r.marked[questionID] = !r.marked[questionID]
	return nil
}

// BeginSubmit transitions Running (or retryable Errored) into Submitting.
func (r *Runner) BeginSubmit() error {
	switch r.state {
	case StateRunning, StateErrored:
		r.state = StateSubmitting
		return nil
	case StateSubmitting:
		return ErrSubmitInFlight
	default:
		return ErrAlreadyTerminal
	}
}

// CompleteSubmit marks the session terminally Submitted.
func (r *Runner) CompleteSubmit() {
	r.state = StateSubmitted
}

// FailSubmit returns a failed submission to a retryable state without
// discarding any answer state. A manual submission failure resumes Running
// (the timer has time left); a failure after timer exhaustion parks the
// session in Errored, where only a retried submit is possible.
func (r *Runner) FailSubmit() {
	if r.autoFired {
		r.state = StateErrored
		return
	}
	r.state = StateRunning
}

// Score counts questions whose chosen option equals the correct option.
// Unanswered questions never count.
func (r *Runner) Score() int {
	score := 0
	for _, q := range r.questions {
		if chosen := r.answers[q.ID]; chosen != nil && *chosen == q.CorrectIndex {
			score++
		}
	}
	return score
}

// Draft captures the full session state as a versioned AttemptDraft.
func (r *Runner) Draft() *model.AttemptDraft {
	d := &model.AttemptDraft{
		Version:     model.DraftVersion,
		Index:       r.idx,
		SecondsLeft: r.remaining,
		Answers:     make(map[string]*int, len(r.questions)),
		Marked:      make(map[string]bool, len(r.questions)),
		TimeSpent:   make(map[string]int, len(r.questions)),
	}
	for _, q := range r.questions {
		key := q.ID.String()
		if chosen := r.answers[q.ID]; chosen != nil {
			v := *chosen
			d.Answers[key] = &v
		} else {
			d.Answers[key] = nil
		}
		d.Marked[key] = r.marked[q.ID]
		d.TimeSpent[key] = r.timeSpent[q.ID]
	}
	return d
}

// Records materializes one AnswerRecord per question, in question order,
// with per-question time clamped.
func (r *Runner) Records() []model.AnswerRecord {
	records := make([]model.AnswerRecord, 0, len(r.questions))
	for _, q := range r.questions {
		var chosen *int
		if v := r.answers[q.ID]; v != nil {
			c := *v
			chosen = &c
		}
		records = append(records, model.AnswerRecord{
			QuestionID:   q.ID,
			ChosenIndex:  chosen,
			IsCorrect:    chosen != nil && *chosen == q.CorrectIndex,
			TimeSpentSec: model.ClampTimeSpent(r.timeSpent[q.ID]),
		})
	}
	return records
}

// QuestionStatus is one palette cell: answered/marked state for a question.
type QuestionStatus struct {
	QuestionID  uuid.UUID `json:"question_id"`
	Answered    bool      `json:"answered"`
	Marked      bool      `json:"marked"`
	ChosenIndex *int      `json:"chosen_index"`
}

// Snapshot is the user-facing view of a session at a point in time.
type Snapshot struct {
	TestID      uuid.UUID        `json:"test_id"`
	State       State            `json:"state"`
	Index       int              `json:"index"`
	SecondsLeft int              `json:"seconds_left"`
	Total       int              `json:"total"`
	Answered    int              `json:"answered"`
	Palette     []QuestionStatus `json:"palette"`
	AttemptID   *uuid.UUID       `json:"attempt_id,omitempty"`
}

// snapshot builds the palette view. The Manager fills TestID/AttemptID.
func (r *Runner) snapshot() Snapshot {
	snap := Snapshot{
		State:       r.state,
		Index:       r.idx,
		SecondsLeft: r.remaining,
		Total:       len(r.questions),
		Palette:     make([]QuestionStatus, 0, len(r.questions)),
	}
	for _, q := range r.questions {
		chosen := r.answers[q.ID]
		var chosenCopy *int
		if chosen != nil {
			v := *chosen
			chosenCopy = &v
			snap.Answered++
		}
		snap.Palette = append(snap.Palette, QuestionStatus{
			QuestionID:  q.ID,
			Answered:    chosen != nil,
			Marked:      r.marked[q.ID],
			ChosenIndex: chosenCopy,
		})
	}
	return snap
}
