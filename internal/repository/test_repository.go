package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

var (
	// ErrTestNotFound is returned when no test matches the given id or slug.
	ErrTestNotFound = errors.New("test not found")
	// ErrDuplicateSlug is returned when a test slug already exists.
	ErrDuplicateSlug = errors.New("test slug already exists")
)

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tests (slug, name, kind, duration_minutes, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.Slug, t.Name, t.Kind, t.DurationMinutes, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

// GetByID retrieves a test by id.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return r.getOne(ctx, `WHERE t.id = $1`, id)
}

// GetBySlug retrieves a test by slug.
func (r *TestRepository) GetBySlug(ctx context.Context, slug string) (*model.Test, error) {
	return r.getOne(ctx, `WHERE t.slug = $1`, slug)
}

func (r *TestRepository) getOne(ctx context.Context, where string, arg interface{}) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.slug, t.name, t.kind, t.duration_minutes, t.created_by, t.created_at,
		        (SELECT COUNT(*) FROM test_questions tq WHERE tq.test_id = t.id)
		 FROM tests t `+where, arg,
	).Scan(&t.ID, &t.Slug, &t.Name, &t.Kind, &t.DurationMinutes, &t.CreatedBy, &t.CreatedAt, &t.QuestionCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves tests with an optional kind filter, newest first.
func (r *TestRepository) List(ctx context.Context, kind *model.TestKind, limit, offset int) ([]model.Test, int, error) {
	countQuery := `SELECT COUNT(*) FROM tests`
	query := `SELECT t.id, t.slug, t.name, t.kind, t.duration_minutes, t.created_by, t.created_at,
	                 (SELECT COUNT(*) FROM test_questions tq WHERE tq.test_id = t.id)
	          FROM tests t`

	var args []interface{}
	var countArgs []interface{}
	if kind != nil {
		countQuery += ` WHERE kind = $1`
		query += ` WHERE t.kind = $1`
		countArgs = append(countArgs, *kind)
		args = append(args, *kind)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if kind != nil {
		query += ` ORDER BY t.created_at DESC LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY t.created_at DESC LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.Kind, &t.DurationMinutes, &t.CreatedBy, &t.CreatedAt, &t.QuestionCount); err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// Update changes a test's name and duration.
func (r *TestRepository) Update(ctx context.Context, id uuid.UUID, name string, durationMinutes int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tests SET name = $2, duration_minutes = $3 WHERE id = $1`,
		id, name, durationMinutes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}
	return nil
}

// Delete removes a test and its question links.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}
	return nil
}

// ReplaceQuestions swaps a test's question list atomically, preserving the
// given order.
func (r *TestRepository) ReplaceQuestions(ctx context.Context, testID uuid.UUID, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM test_questions WHERE test_id = $1`, testID); err != nil {
		return err
	}

	orderIndexes := make([]int, len(questionIDs))
	for i := range questionIDs {
		orderIndexes[i] = i
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO test_questions (test_id, question_id, order_index)
		 SELECT $1, qid, idx
		 FROM UNNEST($2::uuid[], $3::int[]) AS u(qid, idx)`,
		testID, questionIDs, orderIndexes,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreatePracticeTest creates an ephemeral practice test bound to the given
// questions in one transaction.
func (r *TestRepository) CreatePracticeTest(ctx context.Context, t *model.Test, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO tests (slug, name, kind, duration_minutes, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.Slug, t.Name, t.Kind, t.DurationMinutes, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt); err != nil {
		return err
	}

	orderIndexes := make([]int, len(questionIDs))
	for i := range questionIDs {
		orderIndexes[i] = i
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO test_questions (test_id, question_id, order_index)
		 SELECT $1, qid, idx
		 FROM UNNEST($2::uuid[], $3::int[]) AS u(qid, idx)`,
		t.ID, questionIDs, orderIndexes,
	); err != nil {
		return err
	}

	t.QuestionCount = len(questionIDs)
	return tx.Commit(ctx)
}
