// Package idempotency dedupes side-effecting commands by a caller-supplied key.
//
// Records live in Redis with a bounded TTL (order of minutes): command effects
// must be safe to treat as final within that window. Replays are surfaced as a
// conflict carrying the originally cached response, never silently re-executed.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/campusreserve/pkg/cache"
)

// Sentinel errors surfaced to callers. Use errors.Is() to check these.
var (
	// ErrKeyMissing indicates a mutating command arrived without an idempotency key.
	ErrKeyMissing = errors.New("idempotency key missing")

	// ErrReplay indicates the key was already completed; the cached response applies.
	ErrReplay = errors.New("idempotency key replayed")

	// ErrInFlight indicates another execution with the same key has claimed it
	// but not yet completed.
	ErrInFlight = errors.New("idempotency key execution in flight")
)

const keyPrefix = "idem:"

// Record is the cached outcome of a completed command execution.
type Record struct {
	Status    int             `json:"status"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
}

// claimMarker distinguishes an in-flight claim from a completed record.
const claimMarker = `{"__claim":true}`

// Store persists idempotency records in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns a Store with the given record TTL.
func NewStore(r *cache.RedisClient, ttl time.Duration) *Store {
	return &Store{client: r.Client(), ttl: ttl}
}

// Claim attempts to take ownership of key.
//
// Returns (nil, nil) when the claim succeeds and the caller must execute the
// command. Returns (record, ErrReplay) when a completed record exists, and
// (nil, ErrInFlight) when another execution currently holds the claim.
func (s *Store) Claim(ctx context.Context, key string) (*Record, error) {
	if key == "" {
		return nil, ErrKeyMissing
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+key, claimMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("idempotency: claim: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Claim expired between SetNX and Get; treat as in flight and let
			// the caller retry.
			return nil, ErrInFlight
		}
		return nil, fmt.Errorf("idempotency: read record: %w", err)
	}
	if string(raw) == claimMarker {
		return nil, ErrInFlight
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return &rec, ErrReplay
}

// Complete stores the command outcome under key, replacing the claim marker.
// The TTL window restarts from completion time.
func (s *Store) Complete(ctx context.Context, key string, status int, body []byte) error {
	rec := Record{Status: status, Body: body, CreatedAt: time.Now().UTC()}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("idempotency: encode record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: store record: %w", err)
	}
	return nil
}

// Release drops the claim so a failed execution can be retried with the same key.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}

// Execute wraps a non-HTTP command (e.g. a bus consumer side effect) with the
// guard. fn runs at most once per key within the TTL window; replays return
// the cached payload with replayed=true and no re-execution.
func (s *Store) Execute(ctx context.Context, key string, fn func(ctx context.Context) ([]byte, error)) (result []byte, replayed bool, err error) {
	rec, err := s.Claim(ctx, key)
	switch {
	case errors.Is(err, ErrReplay):
		return rec.Body, true, nil
	case errors.Is(err, ErrInFlight):
		return nil, false, ErrInFlight
	case err != nil:
		return nil, false, err
	}

	out, err := fn(ctx)
	if err != nil {
		if relErr := s.Release(ctx, key); relErr != nil {
			return nil, false, errors.Join(err, relErr)
		}
		return nil, false, err
	}
	if err := s.Complete(ctx, key, 0, out); err != nil {
		return nil, false, err
	}
	return out, false, nil
}
