// Package redisstore provides a Redis-backed implementation of run.Store for
// multi-node deployments where run metadata must be visible across process
// boundaries (e.g., a build orchestrator and a separate status API reading
// the same run records).
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devagent/orchestrator/run"
)

const defaultKeyPrefix = "devagent:run:"

// Store persists run.Record values as JSON strings in Redis, keyed by
// RunID. Safe for concurrent use; all state lives in Redis.
type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures a Store.
type Options struct {
	// KeyPrefix namespaces run keys. Defaults to "devagent:run:".
	KeyPrefix string
	// TTL expires run records after inactivity. Zero means no expiry.
	TTL time.Duration
}

// New constructs a Store backed by rdb.
func New(rdb *redis.Client, opts Options) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: opts.TTL}, nil
}

// Upsert writes r to Redis as a JSON blob. A zero StartedAt is taken from
// any existing record (or set to now on first insert); a zero UpdatedAt is
// set to now.
func (s *Store) Upsert(ctx context.Context, r run.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := s.key(r.RunID)
	if existing, err := s.load(ctx, key); err == nil && r.StartedAt.IsZero() {
		r.StartedAt = existing.StartedAt
	} else if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run record %q: %w", r.RunID, err)
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store run record %q: %w", r.RunID, err)
	}
	return nil
}

// Load retrieves the run record for runID, returning run.ErrNotFound if no
// key exists.
func (s *Store) Load(ctx context.Context, runID string) (run.Record, error) {
	if err := ctx.Err(); err != nil {
		return run.Record{}, err
	}
	return s.load(ctx, s.key(runID))
}

func (s *Store) load(ctx context.Context, key string) (run.Record, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return run.Record{}, run.ErrNotFound
	}
	if err != nil {
		return run.Record{}, fmt.Errorf("lookup run record %q: %w", key, err)
	}
	var r run.Record
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return run.Record{}, fmt.Errorf("unmarshal run record %q: %w", key, err)
	}
	return r, nil
}

func (s *Store) key(runID string) string {
	return s.prefix + runID
}

var _ run.Store = (*Store)(nil)
