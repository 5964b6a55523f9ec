package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxTimeSpentSec is the upper clamp for per-question time (10 hours).
const MaxTimeSpentSec = 36000

// Attempt represents one finished run of a test by a user.
// Immutable once finished.
type Attempt struct {
	ID         uuid.UUID `json:"id"`
	TestID     uuid.UUID `json:"test_id"`
	UserID     uuid.UUID `json:"user_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Score      int       `json:"score"`
}

// AnswerRecord is one per-question row of a finished attempt.
// ChosenIndex is nil for unanswered questions; those are never correct.
type AnswerRecord struct {
	AttemptID    uuid.UUID `json:"attempt_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	ChosenIndex  *int      `json:"chosen_index"`
	IsCorrect    bool      `json:"is_correct"`
	TimeSpentSec int       `json:"time_spent_sec"`
}

// ClampTimeSpent bounds a per-question elapsed time into [0, MaxTimeSpentSec].
func ClampTimeSpent(sec int) int {
	if sec < 0 {
		return 0
	}
	if sec > MaxTimeSpentSec {
		return MaxTimeSpentSec
	}
	return sec
}

// AttemptSummary is an attempt joined with its test for listings.
type AttemptSummary struct {
	Attempt
	TestSlug string   `json:"test_slug"`
	TestName string   `json:"test_name"`
	TestKind TestKind `json:"test_kind"`
	Total    int      `json:"total"`
}

// AnswerDetail is an answer record joined with its question for the
// results view, explanation included.
type AnswerDetail struct {
	AnswerRecord
	Topic        string   `json:"topic"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  *string  `json:"explanation,omitempty"`
}

// TopicStat is a per-user per-topic accuracy aggregate, maintained by the
// stats worker after each submission.
type TopicStat struct {
	Topic     string `json:"topic"`
	Attempted int    `json:"attempted"`
	Correct   int    `json:"correct"`
}
