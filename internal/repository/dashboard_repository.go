package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// DashboardRepository serves the aggregate counts shown on the user and
// admin dashboards.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// UserSummary returns a user's headline numbers.
func (r *DashboardRepository) UserSummary(ctx context.Context, userID uuid.UUID) (*model.UserDashboard, error) {
	d := &model.UserDashboard{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(score), 0),
		        COALESCE(SUM(total), 0),
		        COALESCE(MAX(CASE WHEN total > 0 THEN score::float / total END), 0)
		 FROM attempts
		 WHERE user_id = $1`, userID,
	).Scan(&d.AttemptCount, &d.TotalScore, &d.TotalQuestions, &d.BestAccuracy)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RecentAttempts returns a user's latest finished attempts.
func (r *DashboardRepository) RecentAttempts(ctx context.Context, userID uuid.UUID, limit int) ([]model.AttemptSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.test_id, t.slug, t.name, t.kind, a.started_at, a.finished_at, a.score, a.total
		 FROM attempts a
		 JOIN tests t ON t.id = a.test_id
		 WHERE a.user_id = $1
		 ORDER BY a.finished_at DESC
		 LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.TestID, &s.TestSlug, &s.TestName, &s.TestKind, &s.StartedAt, &s.FinishedAt, &s.Score, &s.Total); err != nil {
			return nil, err
		}
		attempts = append(attempts, s)
	}
	return attempts, rows.Err()
}

// AdminSummary returns platform-wide counts for the admin dashboard.
func (r *DashboardRepository) AdminSummary(ctx context.Context) (*model.AdminDashboard, error) {
	d := &model.AdminDashboard{}
	err := r.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM users),
		        (SELECT COUNT(*) FROM questions),
		        (SELECT COUNT(DISTINCT topic) FROM questions),
		        (SELECT COUNT(*) FROM tests WHERE kind = 'mock'),
		        (SELECT COUNT(*) FROM attempts)`,
	).Scan(&d.UserCount, &d.QuestionCount, &d.TopicCount, &d.MockTestCount, &d.AttemptCount)
	if err != nil {
		return nil, err
	}
	return d, nil
}
