package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/model"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
)

// ErrNoQuestionsForTopic is returned when a practice request matches no
// questions.
var ErrNoQuestionsForTopic = errors.New("no questions available for this topic")

// paperCacheTTL bounds how long a built paper stays in Redis. Writes to a
// test's question list invalidate it early.
const paperCacheTTL = 6 * time.Hour

// TestService handles test CRUD, paper building and caching, and ad-hoc
// practice test creation.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(testRepo *repository.TestRepository, questionRepo *repository.QuestionRepository, rdb *redis.Client, log zerolog.Logger) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "test_service").Logger(),
	}
}

// Create registers a new mock test.
func (s *TestService) Create(ctx context.Context, req *model.CreateTestRequest, createdBy uuid.UUID) (*model.Test, error) {
	t := &model.Test{
		Slug:            req.Slug,
		Name:            req.Name,
		Kind:            model.TestKindMock,
		DurationMinutes: model.ClampDuration(req.DurationMinutes),
		CreatedBy:       &createdBy,
	}
	if err := s.testRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update changes a test's name and duration and invalidates its cached paper.
func (s *TestService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	current, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := current.Name
	if req.Name != "" {
		name = req.Name
	}
	duration := current.DurationMinutes
	if req.DurationMinutes != 0 {
		duration = model.ClampDuration(req.DurationMinutes)
	}

	if err := s.testRepo.Update(ctx, id, name, duration); err != nil {
		return nil, err
	}
	s.invalidatePaper(ctx, id)
	return s.testRepo.GetByID(ctx, id)
}

// Delete removes a test and its cached paper.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.testRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidatePaper(ctx, id)
	return nil
}

// Get retrieves a test by id.
func (s *TestService) Get(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// GetBySlug retrieves a test by slug.
func (s *TestService) GetBySlug(ctx context.Context, slug string) (*model.Test, error) {
	return s.testRepo.GetBySlug(ctx, slug)
}

// List retrieves tests with an optional kind filter.
func (s *TestService) List(ctx context.Context, kind *model.TestKind, limit, offset int) ([]model.Test, int, error) {
	return s.testRepo.List(ctx, kind, limit, offset)
}

// AttachQuestions replaces a test's question list and invalidates its
// cached paper.
func (s *TestService) AttachQuestions(ctx context.Context, testID uuid.UUID, questionIDs []uuid.UUID) error {
	if _, err := s.testRepo.GetByID(ctx, testID); err != nil {
		return err
	}
	if err := s.testRepo.ReplaceQuestions(ctx, testID, questionIDs); err != nil {
		return err
	}
	s.invalidatePaper(ctx, testID)
	return nil
}

// CreatePracticeTest builds an ephemeral practice test from random questions
// of one topic.
func (s *TestService) CreatePracticeTest(ctx context.Context, userID uuid.UUID, req *model.StartPracticeRequest) (*model.Test, error) {
	count := req.Count
	if count == 0 {
		count = 10
	}

	questions, err := s.questionRepo.RandomByTopic(ctx, req.Topic, count)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestionsForTopic
	}

	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	t := &model.Test{
		Slug:            "practice-" + uuid.New().String()[:8],
		Name:            "Practice: " + req.Topic,
		Kind:            model.TestKindPractice,
		DurationMinutes: model.ClampDuration(req.DurationMinutes),
		CreatedBy:       &userID,
	}
	if err := s.testRepo.CreatePracticeTest(ctx, t, ids); err != nil {
		return nil, err
	}
	return t, nil
}

// GetPaper returns the answer-stripped paper for a test, cache first.
func (s *TestService) GetPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	paperKey := config.CacheKey.TestPaperKey(testID.String())

	cached, err := s.rdb.Get(ctx, paperKey).Result()
	if err == nil {
		paper := &model.TestPaper{}
		if err := json.Unmarshal([]byte(cached), paper); err == nil {
			return paper, nil
		}
		// Corrupt cache entry, rebuild below.
		s.rdb.Del(ctx, paperKey)
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("paper cache read failed")
	}

	paper, _, err := s.buildAndCachePaper(ctx, testID)
	return paper, err
}

// GetSessionQuestions returns a test's full questions and effective duration
// in minutes for running a session. It recombines the cached paper with the
// cached answer key and falls back to Postgres on any miss.
func (s *TestService) GetSessionQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, int, error) {
	key := testID.String()
	paperRaw, errPaper := s.rdb.Get(ctx, config.CacheKey.TestPaperKey(key)).Result()
	answersRaw, errAnswers := s.rdb.Get(ctx, config.CacheKey.TestAnswerKeyKey(key)).Result()
	durationRaw, errDuration := s.rdb.Get(ctx, config.CacheKey.TestDurationKey(key)).Result()

	if errPaper == nil && errAnswers == nil && errDuration == nil {
		paper := &model.TestPaper{}
		answerKey := map[string]int{}
		duration, convErr := strconv.Atoi(durationRaw)
		if json.Unmarshal([]byte(paperRaw), paper) == nil &&
			json.Unmarshal([]byte(answersRaw), &answerKey) == nil &&
			convErr == nil {
			questions := make([]model.Question, 0, len(paper.Questions))
			complete := true
			for _, q := range paper.Questions {
				correct, ok := answerKey[q.ID.String()]
				if !ok {
					complete = false
					break
				}
				questions = append(questions, model.Question{
					ID:           q.ID,
					Text:         q.Text,
					Options:      q.Options,
					CorrectIndex: correct,
				})
			}
			if complete {
				return questions, duration, nil
			}
		}
	}

	// Cache miss or inconsistency, rebuild from Postgres and re-prime.
	_, built, err := s.buildAndCachePaper(ctx, testID)
	if err != nil {
		return nil, 0, err
	}
	return built.questions, built.durationMinutes, nil
}

type builtPaper struct {
	questions       []model.Question
	durationMinutes int
}

func (s *TestService) buildAndCachePaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, *builtPaper, error) {
	t, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, nil, err
	}

	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, nil, err
	}

	duration := model.ClampDuration(t.DurationMinutes)
	paper := &model.TestPaper{
		TestID:          t.ID,
		Slug:            t.Slug,
		Name:            t.Name,
		DurationMinutes: duration,
		Questions:       make([]model.QuestionForUser, len(questions)),
	}
	answerKey := make(map[string]int, len(questions))
	for i, q := range questions {
		paper.Questions[i] = model.QuestionForUser{ID: q.ID, Text: q.Text, Options: q.Options}
		answerKey[q.ID.String()] = q.CorrectIndex
	}

	if err := s.cachePaper(ctx, testID, paper, answerKey, duration); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("paper cache write failed")
	}

	return paper, &builtPaper{questions: questions, durationMinutes: duration}, nil
}

func (s *TestService) cachePaper(ctx context.Context, testID uuid.UUID, paper *model.TestPaper, answerKey map[string]int, durationMinutes int) error {
	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	answersJSON, err := json.Marshal(answerKey)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	key := testID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPaperKey(key), paperJSON, paperCacheTTL)
	pipe.Set(ctx, config.CacheKey.TestAnswerKeyKey(key), answersJSON, paperCacheTTL)
	pipe.Set(ctx, config.CacheKey.TestDurationKey(key), strconv.Itoa(durationMinutes), paperCacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *TestService) invalidatePaper(ctx context.Context, testID uuid.UUID) {
	key := testID.String()
	if err := s.rdb.Del(ctx,
		config.CacheKey.TestPaperKey(key),
		config.CacheKey.TestAnswerKeyKey(key),
		config.CacheKey.TestDurationKey(key),
	).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("paper cache invalidation failed")
	}
}
