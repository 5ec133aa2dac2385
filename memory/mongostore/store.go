package mongostore

import (
	"context"
	"errors"

	"github.com/devagent/orchestrator/memory"
)

// StoreOptions configures the Store wrapper.
type StoreOptions struct {
	Client Client
}

// Store implements memory.Store by delegating to a Mongo Client.
type Store struct {
	client Client
}

// NewStore builds a Mongo-backed memory store using the provided client.
func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: opts.Client}, nil
}

// LoadRun implements memory.Store.
func (s *Store) LoadRun(ctx context.Context, agentID, runID string) (memory.Snapshot, error) {
	return s.client.LoadRun(ctx, agentID, runID)
}

// AppendEvents implements memory.Store.
func (s *Store) AppendEvents(ctx context.Context, agentID, runID string, events ...memory.Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.client.AppendEvents(ctx, agentID, runID, events)
}

var _ memory.Store = (*Store)(nil)
