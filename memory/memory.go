// Package memory exposes the append-only transcript store that session
// runs write to and planners read from: a chronological log of messages,
// tool calls, and results, keyed by agent and run.
package memory

import (
	"context"
	"time"
)

type (
	// Store persists run history so planners and tooling can inspect prior
	// turns. Implementations must be safe for concurrent use.
	Store interface {
		// LoadRun retrieves the snapshot for agentID/runID. Returns an empty
		// snapshot, not an error, if the run has no history yet.
		LoadRun(ctx context.Context, agentID, runID string) (Snapshot, error)
		// AppendEvents appends events to the run's history.
		AppendEvents(ctx context.Context, agentID, runID string, events ...Event) error
	}

	// Snapshot captures the durable state of a run at a point in time.
	Snapshot struct {
		AgentID string
		RunID   string
		Events  []Event
		Meta    map[string]any
	}

	// Event describes a single entry persisted to the memory store.
	Event struct {
		Type      EventType
		Timestamp time.Time
		Data      any
		Labels    map[string]string
	}
)

// EventType enumerates persisted memory event categories.
type EventType string

const (
	// EventUserMessage records an end-user input message.
	EventUserMessage EventType = "user_message"
	// EventAssistantMessage records an assistant response.
	EventAssistantMessage EventType = "assistant_message"
	// EventToolCall records a tool invocation request.
	EventToolCall EventType = "tool_call"
	// EventToolResult records the outcome of a tool invocation.
	EventToolResult EventType = "tool_result"
	// EventPlannerNote records reasoning annotations emitted by the model.
	EventPlannerNote EventType = "planner_note"
	// EventAnnotation records arbitrary annotations injected by policy or
	// hooks for observability.
	EventAnnotation EventType = "annotation"
)
