// Package worker implements the Worker Bridge: it isolates one
// session.Runner invocation in a dedicated goroutine with its own
// cancellable context and a buffered outbound event channel, so a crash or
// hang in one session can never corrupt another's state. Configuration is
// deep-copied in before the goroutine starts. The terminal result is built
// inside the worker and is not copied on the way out: the result message
// and Handle.Result share the same session.Result, including its Messages.
package worker

import (
	"context"
	"time"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/run"
	"github.com/devagent/orchestrator/session"
)

// MessageType enumerates the tagged variants a worker emits to its
// controller.
type MessageType string

const (
	MessageLog               MessageType = "log"
	MessageError             MessageType = "error"
	MessageStreamEvent       MessageType = "stream_event"
	MessageExecutionProgress MessageType = "execution_progress"
	MessageTaskEvent         MessageType = "task_event"
	MessageResult            MessageType = "result"
	MessageExit              MessageType = "exit"
)

// TaskEvent carries an orchestrator-level lifecycle notice (e.g. a
// Build/Spec Orchestrator phase change) through the worker boundary
// alongside the raw session stream.
type TaskEvent struct {
	Name string
	Data map[string]any
}

// Message is the tagged union a Handle's event channel carries. Exactly
// one field is meaningful per Type.
type Message struct {
	Type     MessageType
	WorkerID string

	Log string

	Err *agenterrors.Error

	StreamEvent *session.StreamEvent

	Task *TaskEvent

	Result *session.Result

	ExitCode int
}

// ExecutorConfig configures one Bridge.Spawn invocation.
type ExecutorConfig struct {
	RunID   string
	AgentID string

	// SessionConfig is copied before the worker goroutine starts; mutating
	// it after Spawn returns has no effect on the running worker.
	SessionConfig session.Config

	// Runner executes SessionConfig. A nil Runner gets a default
	// session.New built with the Bridge's Bus and Logger.
	Runner *session.Runner

	// NewClient reconstructs the model handle and resolves credentials
	// inside the worker goroutine; credentials are never passed across the
	// boundary in ExecutorConfig itself.
	NewClient func(ctx context.Context) (model.Client, error)

	// OnAuthRefresh and OnModelRefresh are forwarded to the session.Runner's
	// Callbacks unchanged; both run inside the worker goroutine.
	OnAuthRefresh  func(ctx context.Context) (string, error)
	OnModelRefresh func(ctx context.Context, token string) (model.Client, error)

	// GraceTimeout bounds how long Terminate waits for a graceful exit
	// after cancelling the run's context before giving up and returning.
	// Zero means the 1500ms default.
	GraceTimeout time.Duration

	// EventBuffer sizes the outbound Message channel. Zero means a default
	// of 256.
	EventBuffer int

	// Store, if non-nil, receives lifecycle Upserts (running, then
	// completed/failed/canceled) so a host can observe worker state without
	// draining the event channel.
	Store run.Store
}
