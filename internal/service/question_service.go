package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
)

// ErrCorrectIndexOutOfRange is returned when a question's correct answer
// does not point into its options.
var ErrCorrectIndexOutOfRange = errors.New("correct_index out of range for options")

// QuestionService handles question bank management and topic listings.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// Add inserts a single question after validating the answer index.
func (s *QuestionService) Add(ctx context.Context, req *model.AddQuestionRequest) (*model.Question, error) {
	if req.CorrectIndex < 0 || req.CorrectIndex >= len(req.Options) {
		return nil, ErrCorrectIndexOutOfRange
	}

	q := &model.Question{
		Topic:        req.Topic,
		Text:         req.Text,
		Options:      req.Options,
		CorrectIndex: req.CorrectIndex,
		Explanation:  req.Explanation,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ListTopics returns all topics with their question counts.
func (s *QuestionService) ListTopics(ctx context.Context) ([]model.Topic, error) {
	return s.questionRepo.ListTopics(ctx)
}

// List retrieves questions with an optional topic filter.
func (s *QuestionService) List(ctx context.Context, topic *string, limit, offset int) ([]model.Question, int, error) {
	return s.questionRepo.ListPaginated(ctx, topic, limit, offset)
}

// ListByTest retrieves a test's questions in order, answers included.
// Admin use only.
func (s *QuestionService) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByTest(ctx, testID)
}
