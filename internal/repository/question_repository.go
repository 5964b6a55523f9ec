package repository

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// QuestionRepository handles question data access. Options are stored as
// JSONB; pgx's JSON codec maps them to []string directly.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a single question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (topic, text, options, correct_index, explanation)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		q.Topic, q.Text, q.Options, q.CorrectIndex, q.Explanation,
	).Scan(&q.ID)
}

// BulkInsert inserts a batch of questions in one round trip.
func (r *QuestionRepository) BulkInsert(ctx context.Context, questions []model.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(
			`INSERT INTO questions (topic, text, options, correct_index, explanation)
			 VALUES ($1, $2, $3, $4, $5)`,
			q.Topic, q.Text, q.Options, q.CorrectIndex, q.Explanation,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range questions {
		if _, err := results.Exec(); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// ListTopics returns the distinct topics with their question counts.
func (r *QuestionRepository) ListTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT topic, COUNT(*) FROM questions GROUP BY topic ORDER BY topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.Topic, &t.QuestionCount); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// ListByTest retrieves a test's questions ordered by their order_index.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.topic, q.text, q.options, q.correct_index, q.explanation
		 FROM test_questions tq
		 JOIN questions q ON q.id = tq.question_id
		 WHERE tq.test_id = $1
		 ORDER BY tq.order_index`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// RandomByTopic picks up to limit random questions for a topic
// (case-insensitive match).
func (r *QuestionRepository) RandomByTopic(ctx context.Context, topic string, limit int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, topic, text, options, correct_index, explanation
		 FROM questions
		 WHERE topic ILIKE $1
		 ORDER BY random()
		 LIMIT $2`, topic, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// ListPaginated retrieves questions with optional topic filter.
func (r *QuestionRepository) ListPaginated(ctx context.Context, topic *string, limit, offset int) ([]model.Question, int, error) {
	countQuery := `SELECT COUNT(*) FROM questions`
	var countArgs []interface{}
	if topic != nil {
		countQuery += ` WHERE topic ILIKE $1`
		countArgs = append(countArgs, *topic)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, topic, text, options, correct_index, explanation FROM questions`
	var args []interface{}
	argIdx := 1

	if topic != nil {
		query += ` WHERE topic ILIKE $1`
		args = append(args, *topic)
		argIdx++
	}

	query += ` ORDER BY topic, id LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Topic, &q.Text, &q.Options, &q.CorrectIndex, &q.Explanation); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
