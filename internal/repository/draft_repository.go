package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// DraftRepository mirrors in-progress attempt drafts into Postgres so a
// draft survives Redis eviction and restarts.
type DraftRepository struct {
	pool *pgxpool.Pool
}

// NewDraftRepository creates a new DraftRepository.
func NewDraftRepository(pool *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{pool: pool}
}

// Upsert writes the latest draft snapshot for a (user, test) pair.
// Last write wins.
func (r *DraftRepository) Upsert(ctx context.Context, userID, testID uuid.UUID, draft *model.AttemptDraft) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_drafts (user_id, test_id, payload, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, test_id)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		userID, testID, draft,
	)
	return err
}

// Get retrieves the mirrored draft, or nil when none exists.
func (r *DraftRepository) Get(ctx context.Context, userID, testID uuid.UUID) (*model.AttemptDraft, error) {
	draft := &model.AttemptDraft{}
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM attempt_drafts WHERE user_id = $1 AND test_id = $2`,
		userID, testID,
	).Scan(draft)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return draft, nil
}

// Delete removes the mirrored draft after a successful submission.
func (r *DraftRepository) Delete(ctx context.Context, userID, testID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM attempt_drafts WHERE user_id = $1 AND test_id = $2`,
		userID, testID,
	)
	return err
}
