// Package run defines primitives for tracking session run executions: the
// Context passed through a session for the duration of one invocation, the
// durable Record a Store persists for observability, and the Store
// interface itself (see the inmem and redis sub-packages for concrete
// backends).
package run

import (
	"context"
	"errors"
	"time"
)

type (
	// Context carries execution metadata for the current run invocation. It
	// is threaded through the Session Runner and stamped onto every hook
	// event so subscribers can correlate activity back to a run.
	Context struct {
		// RunID uniquely identifies this run.
		RunID string
		// SessionID associates related runs into a conversation or task
		// thread. Multiple subtask runs share the same SessionID.
		SessionID string
		// TurnID identifies a conversational turn within a session.
		// Optional.
		TurnID string
		// Attempt counts how many times the run has been attempted.
		Attempt int
		// Labels carries caller-provided metadata (subtask ID, phase, tier).
		Labels map[string]string
	}

	// Record captures persistent metadata for an agent run, the durable
	// record a Store keeps for observability and lifecycle tracking.
	Record struct {
		AgentID   string
		RunID     string
		SessionID string
		TurnID    string
		Status    Status
		StartedAt time.Time
		UpdatedAt time.Time
		Labels    map[string]string
		Metadata  map[string]any
	}

	// Store persists run metadata for observability and lookup.
	Store interface {
		Upsert(ctx context.Context, record Record) error
		Load(ctx context.Context, runID string) (Record, error)
	}

	// Status represents the coarse-grained lifecycle state of a run.
	Status string
)

// ErrNotFound indicates that no run record exists for the given identifier.
var ErrNotFound = errors.New("run not found")

const (
	// StatusPending indicates the run has been accepted but not started.
	StatusPending Status = "pending"
	// StatusRunning indicates the run is actively executing.
	StatusRunning Status = "running"
	// StatusCompleted indicates the run finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the run failed permanently.
	StatusFailed Status = "failed"
	// StatusCanceled indicates the run was canceled externally.
	StatusCanceled Status = "canceled"
)
