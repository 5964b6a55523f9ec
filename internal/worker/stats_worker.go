package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// StatsWorker consumes persist_stats_queue and folds finished attempts into
// the per-user per-topic aggregates. Attempt IDs are collected into batches
// so a burst of submissions costs one aggregate statement.
type StatsWorker struct {
	statsRepo *repository.StatsRepository
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewStatsWorker creates a new StatsWorker.
func NewStatsWorker(statsRepo *repository.StatsRepository, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		statsRepo: statsRepo,
		rdb:       rdb,
		log:       log.With().Str("component", "stats_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	batch := make([]uuid.UUID, 0, StatsBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.PersistStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			attemptID, err := uuid.Parse(item[1])
			if err != nil {
				w.log.Error().Err(err).Str("raw", item[1]).Msg("Invalid attempt id payload")
				continue
			}

			batch = append(batch, attemptID)
		}
	}
}

// flushSafe applies the batch in one statement, falling back to per-attempt
// application so one bad id cannot poison the rest. Attempts that still fail
// are requeued.
func (w *StatsWorker) flushSafe(ctx context.Context, batch []uuid.UUID) {
	if len(batch) == 0 {
		return
	}

	if err := w.statsRepo.ApplyAttempts(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk stats update failed, using fallback")

		for _, id := range batch {
			if err := w.statsRepo.ApplyAttempts(ctx, []uuid.UUID{id}); err != nil {
				w.log.Error().Err(err).Str("attempt_id", id.String()).Msg("stats apply failed — requeueing")
				w.rdb.RPush(ctx, config.WorkerKey.PersistStatsQueue, id.String())
			}
		}
	}
}
