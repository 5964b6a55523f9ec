package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// StatsRepository maintains per-user per-topic accuracy aggregates. Rows are
// folded in from finished attempts by the stats worker.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// ApplyAttempts folds the answers of the given attempts into user_topic_stats
// in a single statement. Re-applying an attempt double counts, so callers
// must pass each attempt at most once.
func (r *StatsRepository) ApplyAttempts(ctx context.Context, attemptIDs []uuid.UUID) error {
	if len(attemptIDs) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_topic_stats (user_id, topic, attempted, correct)
		 SELECT a.user_id, q.topic,
		        COUNT(*) FILTER (WHERE aa.chosen_index IS NOT NULL),
		        COUNT(*) FILTER (WHERE aa.is_correct)
		 FROM attempt_answers aa
		 JOIN attempts a ON a.id = aa.attempt_id
		 JOIN questions q ON q.id = aa.question_id
		 WHERE aa.attempt_id = ANY($1)
		 GROUP BY a.user_id, q.topic
		 ON CONFLICT (user_id, topic)
		 DO UPDATE SET attempted = user_topic_stats.attempted + EXCLUDED.attempted,
		               correct = user_topic_stats.correct + EXCLUDED.correct,
		               updated_at = NOW()`,
		attemptIDs,
	)
	return err
}

// ListByUser retrieves a user's topic aggregates, weakest accuracy first.
func (r *StatsRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TopicStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT topic, attempted, correct
		 FROM user_topic_stats
		 WHERE user_id = $1 AND attempted > 0
		 ORDER BY correct::float / attempted, topic`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.TopicStat
	for rows.Next() {
		var s model.TopicStat
		if err := rows.Scan(&s.Topic, &s.Attempted, &s.Correct); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
