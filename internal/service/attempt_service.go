package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/model"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
	"github.com/hsscguru/hssc-guru-backend/internal/session"
)

// ErrNotAttemptOwner is returned when a user requests another user's attempt.
var ErrNotAttemptOwner = errors.New("attempt belongs to another user")

// AttemptResult is a finished attempt with its full per-question breakdown.
type AttemptResult struct {
	model.AttemptSummary
	Answers []model.AnswerDetail `json:"answers"`
}

// AttemptService persists finished sessions and serves result views. It is
// the session manager's Submitter.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	draftRepo   *repository.DraftRepository
	statsRepo   *repository.StatsRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(attemptRepo *repository.AttemptRepository, draftRepo *repository.DraftRepository, statsRepo *repository.StatsRepository, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		draftRepo:   draftRepo,
		statsRepo:   statsRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// Submit writes the attempt and its answers transactionally, then queues the
// attempt for topic-stats aggregation and drops the mirrored draft. Only the
// transactional write can fail the submission; the rest is best-effort.
func (s *AttemptService) Submit(ctx context.Context, sub session.Submission) (uuid.UUID, error) {
	attemptID, err := s.attemptRepo.Submit(ctx, sub.UserID, sub.TestID,
		sub.StartedAt, sub.FinishedAt, sub.Score, len(sub.Records), sub.Records)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistStatsQueue, attemptID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("stats queue push failed")
	}
	if err := s.draftRepo.Delete(ctx, sub.UserID, sub.TestID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("draft mirror cleanup failed")
	}

	return attemptID, nil
}

// GetResult retrieves an attempt with its answer breakdown. Users can only
// read their own attempts.
func (s *AttemptService) GetResult(ctx context.Context, userID, attemptID uuid.UUID) (*AttemptResult, error) {
	summary, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if summary.UserID != userID {
		return nil, ErrNotAttemptOwner
	}

	answers, err := s.attemptRepo.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	return &AttemptResult{AttemptSummary: *summary, Answers: answers}, nil
}

// ListByUser retrieves a user's past attempts, newest first.
func (s *AttemptService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AttemptSummary, int, error) {
	return s.attemptRepo.ListByUser(ctx, userID, limit, offset)
}

// TopicStats retrieves a user's per-topic accuracy, weakest first.
func (s *AttemptService) TopicStats(ctx context.Context, userID uuid.UUID) ([]model.TopicStat, error) {
	return s.statsRepo.ListByUser(ctx, userID)
}
