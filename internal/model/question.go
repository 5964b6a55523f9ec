package model

import (
	"github.com/google/uuid"
)

// Question represents a single multiple-choice question. Options is an
// ordered list (variable length, typically 4); CorrectIndex points into it.
// Questions are immutable once loaded into a quiz session.
type Question struct {
	ID           uuid.UUID `json:"id"`
	Topic        string    `json:"topic"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Explanation  *string   `json:"explanation,omitempty"`
}

// QuestionForUser is a question with the correct answer stripped,
// as served inside a test paper.
type QuestionForUser struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Options []string  `json:"options"`
}

// Topic is a distinct question topic together with its question count.
type Topic struct {
	Topic         string `json:"topic"`
	QuestionCount int    `json:"question_count"`
}

// AddQuestionRequest is the payload for adding a single question.
type AddQuestionRequest struct {
	Topic        string   `json:"topic" binding:"required,min=2,max=100"`
	Text         string   `json:"text" binding:"required,min=1,max=2000"`
	Options      []string `json:"options" binding:"required,min=2,max=8,dive,required,max=500"`
	CorrectIndex int      `json:"correct_index" binding:"min=0"`
	Explanation  *string  `json:"explanation" binding:"omitempty,max=2000"`
}
