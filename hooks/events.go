package hooks

import (
	"time"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/policy"
	"github.com/devagent/orchestrator/telemetry"
)

// EventType enumerates the well-known events broadcast on the hook bus.
type EventType string

const (
	// RunStarted fires when a session Runner begins a run.
	RunStarted EventType = "run_started"
	// RunCompleted fires after a run finishes, successfully or not.
	RunCompleted EventType = "run_completed"
	// ToolCallScheduled fires when the Runner dispatches a tool call to the
	// toolregistry for execution.
	ToolCallScheduled EventType = "tool_call_scheduled"
	// ToolResultReceived fires when a tool call completes, with a result or
	// an error.
	ToolResultReceived EventType = "tool_result_received"
	// PlannerNote fires when the model emits reasoning/thinking content the
	// Runner surfaces as an annotation rather than user-visible text.
	PlannerNote EventType = "planner_note"
	// AssistantMessage fires when the model produces user-facing text.
	AssistantMessage EventType = "assistant_message"
	// RetryHintIssued fires when the policy Engine suggests a retry-time
	// adjustment (disabling a failing tool, lowering remaining caps).
	RetryHintIssued EventType = "retry_hint_issued"
	// MemoryAppended fires after the memory.Store subscriber successfully
	// persists a batch of events.
	MemoryAppended EventType = "memory_appended"
	// PolicyDecision fires when the policy Engine returns a decision for a
	// turn, recording the allowlist and caps applied.
	PolicyDecision EventType = "policy_decision"
	// CapabilityDropped fires when the toolregistry cannot satisfy a role's
	// declared tool capability (e.g. no browser automation backend
	// available) and drops it rather than silently degrading.
	CapabilityDropped EventType = "capability_dropped"
)

type (
	// Event is the interface every hook event implements.
	Event interface {
		Type() EventType
		RunID() string
		AgentID() string
		Timestamp() int64
	}

	// RunStartedEvent fires when a run begins execution.
	RunStartedEvent struct {
		baseEvent
		Phase   string
		Subtask string
	}

	// RunCompletedEvent fires after a run finishes.
	RunCompletedEvent struct {
		baseEvent
		Outcome string
		Error   *agenterrors.Error
	}

	// ToolCallScheduledEvent fires when a tool call is dispatched.
	ToolCallScheduledEvent struct {
		baseEvent
		ToolCallID string
		ToolName   string
		Payload    any
	}

	// ToolResultReceivedEvent fires when a tool call completes.
	ToolResultReceivedEvent struct {
		baseEvent
		ToolName  string
		Result    any
		Duration  time.Duration
		Telemetry *telemetry.ToolTelemetry
		Error     *agenterrors.Error
	}

	// PlannerNoteEvent fires when the model emits reasoning content.
	PlannerNoteEvent struct {
		baseEvent
		Note   string
		Labels map[string]string
	}

	// AssistantMessageEvent fires when the model produces user-facing text.
	AssistantMessageEvent struct {
		baseEvent
		Message string
	}

	// RetryHintIssuedEvent fires when the policy Engine suggests a retry
	// adjustment.
	RetryHintIssuedEvent struct {
		baseEvent
		Reason   policy.RetryReason
		ToolName string
		Message  string
	}

	// MemoryAppendedEvent fires after events are persisted to memory.Store.
	MemoryAppendedEvent struct {
		baseEvent
		EventCount int
	}

	// PolicyDecisionEvent captures the outcome of a policy evaluation.
	PolicyDecisionEvent struct {
		baseEvent
		AllowedTools []string
		Caps         policy.CapsState
		Labels       map[string]string
	}

	// CapabilityDroppedEvent fires when the toolregistry cannot satisfy a
	// declared tool capability for the current project and drops that tool
	// from the agent's toolset rather than silently omitting it.
	CapabilityDroppedEvent struct {
		baseEvent
		Capability string
		ToolName   string
		Reason     string
	}

	baseEvent struct {
		eventType EventType
		runID     string
		agentID   string
		timestamp int64
	}
)

func newBaseEvent(t EventType, runID, agentID string) baseEvent {
	return baseEvent{eventType: t, runID: runID, agentID: agentID, timestamp: time.Now().UnixMilli()}
}

func (e baseEvent) Type() EventType   { return e.eventType }
func (e baseEvent) RunID() string     { return e.runID }
func (e baseEvent) AgentID() string   { return e.agentID }
func (e baseEvent) Timestamp() int64  { return e.timestamp }

// NewRunStartedEvent constructs a RunStartedEvent.
func NewRunStartedEvent(runID, agentID, phase, subtask string) *RunStartedEvent {
	return &RunStartedEvent{baseEvent: newBaseEvent(RunStarted, runID, agentID), Phase: phase, Subtask: subtask}
}

// NewRunCompletedEvent constructs a RunCompletedEvent. err may be nil.
func NewRunCompletedEvent(runID, agentID, outcome string, err *agenterrors.Error) *RunCompletedEvent {
	return &RunCompletedEvent{baseEvent: newBaseEvent(RunCompleted, runID, agentID), Outcome: outcome, Error: err}
}

// NewToolCallScheduledEvent constructs a ToolCallScheduledEvent.
func NewToolCallScheduledEvent(runID, agentID, toolCallID, toolName string, payload any) *ToolCallScheduledEvent {
	return &ToolCallScheduledEvent{
		baseEvent:  newBaseEvent(ToolCallScheduled, runID, agentID),
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Payload:    payload,
	}
}

// NewToolResultReceivedEvent constructs a ToolResultReceivedEvent.
func NewToolResultReceivedEvent(runID, agentID, toolName string, result any, duration time.Duration, tel *telemetry.ToolTelemetry, err *agenterrors.Error) *ToolResultReceivedEvent {
	return &ToolResultReceivedEvent{
		baseEvent: newBaseEvent(ToolResultReceived, runID, agentID),
		ToolName:  toolName,
		Result:    result,
		Duration:  duration,
		Telemetry: tel,
		Error:     err,
	}
}

// NewPlannerNoteEvent constructs a PlannerNoteEvent.
func NewPlannerNoteEvent(runID, agentID, note string, labels map[string]string) *PlannerNoteEvent {
	return &PlannerNoteEvent{baseEvent: newBaseEvent(PlannerNote, runID, agentID), Note: note, Labels: labels}
}

// NewAssistantMessageEvent constructs an AssistantMessageEvent.
func NewAssistantMessageEvent(runID, agentID, message string) *AssistantMessageEvent {
	return &AssistantMessageEvent{baseEvent: newBaseEvent(AssistantMessage, runID, agentID), Message: message}
}

// NewRetryHintIssuedEvent constructs a RetryHintIssuedEvent.
func NewRetryHintIssuedEvent(runID, agentID string, reason policy.RetryReason, toolName, message string) *RetryHintIssuedEvent {
	return &RetryHintIssuedEvent{baseEvent: newBaseEvent(RetryHintIssued, runID, agentID), Reason: reason, ToolName: toolName, Message: message}
}

// NewMemoryAppendedEvent constructs a MemoryAppendedEvent.
func NewMemoryAppendedEvent(runID, agentID string, count int) *MemoryAppendedEvent {
	return &MemoryAppendedEvent{baseEvent: newBaseEvent(MemoryAppended, runID, agentID), EventCount: count}
}

// NewPolicyDecisionEvent constructs a PolicyDecisionEvent.
func NewPolicyDecisionEvent(runID, agentID string, allowed []string, caps policy.CapsState, labels map[string]string) *PolicyDecisionEvent {
	return &PolicyDecisionEvent{baseEvent: newBaseEvent(PolicyDecision, runID, agentID), AllowedTools: allowed, Caps: caps, Labels: labels}
}

// NewCapabilityDroppedEvent constructs a CapabilityDroppedEvent.
func NewCapabilityDroppedEvent(runID, agentID, capability, toolName, reason string) *CapabilityDroppedEvent {
	return &CapabilityDroppedEvent{
		baseEvent:  newBaseEvent(CapabilityDropped, runID, agentID),
		Capability: capability,
		ToolName:   toolName,
		Reason:     reason,
	}
}
