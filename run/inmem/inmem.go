// Package inmem provides an in-memory implementation of run.Store for tests
// and local development, with no persistence across process restarts.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/devagent/orchestrator/run"
)

// Store implements run.Store in memory. All operations are thread-safe via
// sync.RWMutex; records are defensively copied on read and write.
type Store struct {
	mu      sync.RWMutex
	records map[string]run.Record
}

// New constructs an empty Store, ready for immediate use.
func New() *Store {
	return &Store{records: make(map[string]run.Record)}
}

// Upsert inserts or updates the run record keyed by r.RunID. StartedAt is
// preserved across updates and defaulted to now on first insert; UpdatedAt
// always advances to now when left zero.
func (s *Store) Upsert(_ context.Context, r run.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[r.RunID]
	if ok && r.StartedAt.IsZero() {
		r.StartedAt = existing.StartedAt
	} else if !ok && r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	r.Labels = cloneLabels(r.Labels)
	r.Metadata = cloneMetadata(r.Metadata)
	s.records[r.RunID] = r
	return nil
}

// Load retrieves the run record for runID, returning run.ErrNotFound if it
// does not exist.
func (s *Store) Load(_ context.Context, runID string) (run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[runID]
	if !ok {
		return run.Record{}, run.ErrNotFound
	}
	r.Labels = cloneLabels(r.Labels)
	r.Metadata = cloneMetadata(r.Metadata)
	return r, nil
}

// Reset clears all stored records. Useful for test isolation; not part of
// run.Store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]run.Record)
}

func cloneLabels(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
