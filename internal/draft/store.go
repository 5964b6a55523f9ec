// Package draft persists in-progress attempt drafts, one entry per
// user+test: a Redis hot copy rewritten every second, mirrored into
// Postgres by the draft worker. Persistence is best-effort and
// last-write-wins: the draft is a resume convenience, never the source
// of truth for a finished attempt.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/model"
)

// draftTTL keeps abandoned drafts from accumulating forever. Any live
// session rewrites its draft every second, so the TTL only ever expires
// drafts nobody came back for.
const draftTTL = 48 * time.Hour

// Mirror is the durable draft copy behind the hot store. The draft worker
// keeps it current; Load falls back to it when the Redis copy is gone.
type Mirror interface {
	Get(ctx context.Context, userID, testID uuid.UUID) (*model.AttemptDraft, error)
}

// Store reads and writes versioned AttemptDraft JSON in Redis. Every write
// is additionally queued for the draft worker's PostgreSQL mirror.
type Store struct {
	rdb    *redis.Client
	mirror Mirror
	log    zerolog.Logger
}

// NewStore creates a draft store over the given Redis client and mirror.
func NewStore(rdb *redis.Client, mirror Mirror, log zerolog.Logger) *Store {
	return &Store{
		rdb:    rdb,
		mirror: mirror,
		log:    log.With().Str("component", "draft_store").Logger(),
	}
}

// queuedDraft is the payload pushed to the persistence queue.
type queuedDraft struct {
	UserID string             `json:"user_id"`
	TestID string             `json:"test_id"`
	Draft  model.AttemptDraft `json:"draft"`
}

// Save serializes and overwrites the draft for user+test. Failures (Redis
// down, marshal error) are logged and swallowed: a failed draft write must
// never interrupt a running session.
func (s *Store) Save(ctx context.Context, userID, testID uuid.UUID, draft *model.AttemptDraft) {
	if draft == nil {
		return
	}

	data, err := json.Marshal(draft)
	if err != nil {
		s.log.Error().Err(err).Msg("Draft marshal failed")
		return
	}

	key := config.CacheKey.AttemptDraftKey(userID.String(), testID.String())
	if err := s.rdb.Set(ctx, key, data, draftTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Draft save failed")
		return
	}

	queued, err := json.Marshal(queuedDraft{
		UserID: userID.String(),
		TestID: testID.String(),
		Draft:  *draft,
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistDraftsQueue, queued).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Draft queue push failed")
	}
}

// Load deserializes the draft for user+test. When the Redis copy is gone
// (evicted, flushed) it falls back to the Postgres mirror and re-primes
// Redis so the next load is fast. Missing, corrupt, or version-mismatched
// drafts all come back nil: the session simply starts fresh, and the
// condition is never surfaced to the user.
func (s *Store) Load(ctx context.Context, userID, testID uuid.UUID) *model.AttemptDraft {
	key := config.CacheKey.AttemptDraftKey(userID.String(), testID.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		draft := s.loadMirror(ctx, userID, testID)
		if draft != nil {
			s.prime(ctx, key, draft)
		}
		return draft
	case err != nil:
		s.log.Warn().Err(err).Str("key", key).Msg("Draft load failed")
		return s.loadMirror(ctx, userID, testID)
	}

	draft, err := decodeDraft(data)
	if err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("Unusable draft ignored")
		return nil
	}
	return draft
}

// Clear removes the draft for user+test. Best-effort; failures ignored.
// The mirror row is deleted by the submitter, not here.
func (s *Store) Clear(ctx context.Context, userID, testID uuid.UUID) {
	key := config.CacheKey.AttemptDraftKey(userID.String(), testID.String())
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Draft clear failed")
	}
}

// decodeDraft parses a stored draft payload. Corrupt JSON and drafts
// carrying any other version tag are unusable.
func decodeDraft(data []byte) (*model.AttemptDraft, error) {
	var draft model.AttemptDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("corrupt draft: %w", err)
	}
	if draft.Version != model.DraftVersion {
		return nil, fmt.Errorf("draft version %d not supported", draft.Version)
	}
	return &draft, nil
}

// loadMirror reads the durable copy after a Redis miss. Mirror failures
// degrade to a fresh session rather than an error.
func (s *Store) loadMirror(ctx context.Context, userID, testID uuid.UUID) *model.AttemptDraft {
	draft, err := s.mirror.Get(ctx, userID, testID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Draft mirror read failed")
		return nil
	}
	if draft == nil {
		return nil
	}
	if draft.Version != model.DraftVersion {
		s.log.Debug().Int("version", draft.Version).Msg("Mirrored draft version mismatch ignored")
		return nil
	}
	return draft
}

// prime rewrites the hot copy from a mirrored draft.
func (s *Store) prime(ctx context.Context, key string, draft *model.AttemptDraft) {
	data, err := json.Marshal(draft)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, draftTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Draft re-prime failed")
	}
}
