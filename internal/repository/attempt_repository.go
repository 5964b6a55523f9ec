package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// ErrAttemptNotFound is returned when no attempt matches the given id.
var ErrAttemptNotFound = errors.New("attempt not found")

// AttemptRepository handles finished attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Submit writes an attempt and its per-question answers in one transaction
// and returns the new attempt id.
func (r *AttemptRepository) Submit(ctx context.Context, userID, testID uuid.UUID, startedAt, finishedAt time.Time, score, total int, records []model.AnswerRecord) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	var attemptID uuid.UUID
	if err := tx.QueryRow(ctx,
		`INSERT INTO attempts (user_id, test_id, started_at, finished_at, score, total)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		userID, testID, startedAt, finishedAt, score, total,
	).Scan(&attemptID); err != nil {
		return uuid.Nil, err
	}

	if len(records) > 0 {
		questionIDs := make([]uuid.UUID, len(records))
		chosen := make([]*int, len(records))
		correct := make([]bool, len(records))
		spent := make([]int, len(records))
		for i, rec := range records {
			questionIDs[i] = rec.QuestionID
			chosen[i] = rec.ChosenIndex
			correct[i] = rec.IsCorrect
			spent[i] = rec.TimeSpentSec
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO attempt_answers (attempt_id, question_id, chosen_index, is_correct, time_spent_sec)
			 SELECT $1, qid, ch, ok, ts
			 FROM UNNEST($2::uuid[], $3::int[], $4::bool[], $5::int[]) AS u(qid, ch, ok, ts)`,
			attemptID, questionIDs, chosen, correct, spent,
		); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return attemptID, nil
}

// GetByID retrieves an attempt with its test name.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AttemptSummary, error) {
	s := &model.AttemptSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.user_id, a.test_id, t.slug, t.name, t.kind, a.started_at, a.finished_at, a.score, a.total
		 FROM attempts a
		 JOIN tests t ON t.id = a.test_id
		 WHERE a.id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.TestID, &s.TestSlug, &s.TestName, &s.TestKind, &s.StartedAt, &s.FinishedAt, &s.Score, &s.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListByUser retrieves a user's attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AttemptSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.test_id, t.slug, t.name, t.kind, a.started_at, a.finished_at, a.score, a.total
		 FROM attempts a
		 JOIN tests t ON t.id = a.test_id
		 WHERE a.user_id = $1
		 ORDER BY a.finished_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var attempts []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.TestID, &s.TestSlug, &s.TestName, &s.TestKind, &s.StartedAt, &s.FinishedAt, &s.Score, &s.Total); err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, s)
	}
	return attempts, total, rows.Err()
}

// ListAnswers retrieves an attempt's answers joined with their questions,
// in the test's question order.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerDetail, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT aa.question_id, q.topic, q.text, q.options, q.correct_index, q.explanation,
		        aa.chosen_index, aa.is_correct, aa.time_spent_sec
		 FROM attempt_answers aa
		 JOIN questions q ON q.id = aa.question_id
		 JOIN attempts a ON a.id = aa.attempt_id
		 LEFT JOIN test_questions tq ON tq.test_id = a.test_id AND tq.question_id = aa.question_id
		 WHERE aa.attempt_id = $1
		 ORDER BY tq.order_index`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []model.AnswerDetail
	for rows.Next() {
		var d model.AnswerDetail
		if err := rows.Scan(&d.QuestionID, &d.Topic, &d.Text, &d.Options, &d.CorrectIndex, &d.Explanation,
			&d.ChosenIndex, &d.IsCorrect, &d.TimeSpentSec); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
