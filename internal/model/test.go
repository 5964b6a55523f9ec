package model

import (
	"time"

	"github.com/google/uuid"
)

// TestKind distinguishes curated mock tests from ad-hoc practice sets.
type TestKind string

const (
	TestKindMock     TestKind = "mock"
	TestKindPractice TestKind = "practice"
)

const (
	// Duration bounds applied when a test is loaded into a session.
	MinDurationMinutes     = 5
	MaxDurationMinutes     = 180
	DefaultDurationMinutes = 30
)

// Test represents a quiz: a named, ordered set of questions with a time limit.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Slug            string     `json:"slug"`
	Name            string     `json:"name"`
	DurationMinutes int        `json:"duration_minutes"`
	Kind            TestKind   `json:"kind"`
	QuestionCount   int        `json:"question_count"`
	CreatedBy       *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ClampDuration normalizes a stored duration into the allowed range.
// Zero (unset) falls back to the default.
func ClampDuration(minutes int) int {
	if minutes == 0 {
		return DefaultDurationMinutes
	}
	if minutes < MinDurationMinutes {
		return MinDurationMinutes
	}
	if minutes > MaxDurationMinutes {
		return MaxDurationMinutes
	}
	return minutes
}

// TestPaper is the Redis-cached payload served to a user starting a test:
// the ordered question list with correct answers stripped.
type TestPaper struct {
	TestID          uuid.UUID         `json:"test_id"`
	Slug            string            `json:"slug"`
	Name            string            `json:"name"`
	DurationMinutes int               `json:"duration_minutes"`
	Questions       []QuestionForUser `json:"questions"`
}

// CreateTestRequest is the payload for creating a mock test.
type CreateTestRequest struct {
	Slug            string `json:"slug" binding:"required,min=3,max=100,lowercase"`
	Name            string `json:"name" binding:"required,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=5,max=180"`
}

// UpdateTestRequest is the payload for updating a mock test.
type UpdateTestRequest struct {
	Name            string `json:"name" binding:"omitempty,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=5,max=180"`
}

// AttachQuestionsRequest replaces a test's question list in the given order.
type AttachQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"required,min=1,dive,required"`
}

// StartPracticeRequest builds an ad-hoc practice test from a topic.
type StartPracticeRequest struct {
	Topic           string `json:"topic" binding:"required,min=1,max=100"`
	Count           int    `json:"count" binding:"omitempty,min=1,max=100"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=5,max=180"`
}
