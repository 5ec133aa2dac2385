// Package session implements the Session Runner: the prompt → stream →
// tool-call loop that drives a single model conversation on behalf of one
// agent role. It forwards every stream item to the caller and to the
// internal hook bus, enforces the configured step ceiling, and classifies
// the run's outcome exactly once per invocation (completed, max_steps,
// rate_limited, auth_failure, cancelled, or error).
package session

import (
	"context"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/toolregistry"
)

// ToolContext is the per-call execution environment a bound tool closes
// over. toolregistry owns the type (Registry.ToolsForAgent needs it); this
// alias lets a session Config reference it without forcing every caller to
// import toolregistry directly.
type ToolContext = toolregistry.ToolContext

// Outcome classifies how a Run invocation terminated. Exactly one Outcome
// is produced per call.
type Outcome string

const (
	// OutcomeCompleted means the model produced a final response with no
	// pending tool calls.
	OutcomeCompleted Outcome = "completed"
	// OutcomeMaxSteps means the step ceiling was reached before the model
	// produced a final response.
	OutcomeMaxSteps Outcome = "max_steps"
	// OutcomeError covers any non-retryable or unclassified failure.
	OutcomeError Outcome = "error"
	// OutcomeRateLimited means the provider rejected a call for rate
	// limiting; the caller should back off and retry the whole session.
	OutcomeRateLimited Outcome = "rate_limited"
	// OutcomeAuthFailure means authentication failed and either no refresh
	// callback was configured or the refreshed credentials still failed.
	OutcomeAuthFailure Outcome = "auth_failure"
	// OutcomeCancelled means the caller's context was cancelled mid-run.
	OutcomeCancelled Outcome = "cancelled"
)

// Config configures one Runner.Run invocation.
type Config struct {
	RunID   string
	AgentID string
	Role    toolregistry.AgentRole
	// Phase and Subtask seed the ProgressTracker's initial state and are
	// stamped onto the RunStarted hook event.
	Phase   string
	Subtask string

	Model      string
	ModelClass model.ModelClass

	SystemPrompt string
	// Messages is the conversation history preceding this call. The Runner
	// appends to a copy; the slice passed in is never mutated.
	Messages []*model.Message
	// Tools is the set of tools bound to this agent by the toolregistry,
	// already scoped to ToolContext and the security hook.
	Tools       []toolregistry.BoundTool
	ToolContext ToolContext

	// MaxSteps is the step ceiling; zero means unlimited.
	MaxSteps int
	// MaxToolCalls and MaxConsecutiveFailures feed the policy engine's caps
	// bookkeeping; zero means unlimited for each.
	MaxToolCalls           int
	MaxConsecutiveFailures int

	ThinkingLevel toolregistry.ThinkingLevel
	Labels        map[string]string
}

// StreamEventType enumerates the StreamEvent variants a Runner emits.
type StreamEventType string

const (
	StreamEventTextDelta     StreamEventType = "text_delta"
	StreamEventThinkingDelta StreamEventType = "thinking_delta"
	StreamEventToolCall      StreamEventType = "tool_call"
	StreamEventToolResult    StreamEventType = "tool_result"
	StreamEventStepFinish    StreamEventType = "step_finish"
	StreamEventUsageUpdate   StreamEventType = "usage_update"
	StreamEventError         StreamEventType = "error"
	// StreamEventProgress carries a ProgressTracker snapshot, emitted
	// independent of the raw model stream.
	StreamEventProgress StreamEventType = "execution_progress"
)

// StreamEvent is the tagged union forwarded to Callbacks.OnEvent for every
// item the Runner consumes from the model stream, plus the derived
// execution-progress events.
type StreamEvent struct {
	Type    StreamEventType
	RunID   string
	AgentID string
	Step    int

	Text string

	ToolCall   *model.ToolCall
	ToolName   string
	ToolCallID string
	Result     any

	Err *agenterrors.Error

	Usage model.TokenUsage

	Progress *ProgressState
}

// Callbacks lets the caller observe the stream and react to a mid-run
// authentication failure.
type Callbacks struct {
	// OnEvent is invoked for every StreamEvent, in stream order. A nil
	// value simply discards events.
	OnEvent func(StreamEvent)
	// OnAuthRefresh is invoked at most once, the first time a model call
	// fails with an authentication error, to obtain a fresh credential
	// token. A nil value means no refresh is attempted: the first auth
	// failure is terminal.
	OnAuthRefresh func(ctx context.Context) (string, error)
	// OnModelRefresh exchanges a freshly obtained token for a new model
	// Client bound to it. Called only after OnAuthRefresh succeeds; its
	// result replaces the Client used for the remainder of the run.
	OnModelRefresh func(ctx context.Context, token string) (model.Client, error)
}

// Result is the outcome of one Runner.Run invocation.
type Result struct {
	Outcome       Outcome
	Messages      []*model.Message
	Usage         model.TokenUsage
	StepsExecuted int
	ToolCallCount int
	DurationMs    int64
	Error         *agenterrors.Error
}
