// Package stream defines the caller-facing event types a Sink delivers to
// clients (SSE, WebSocket, or an in-process channel) — distinct from the
// internal hooks.Event set, which carries richer fields than a UI needs.
package stream

import (
	"context"
	"time"

	"github.com/devagent/orchestrator/telemetry"
)

type (
	// Sink delivers streaming updates to clients.
	Sink interface {
		Send(ctx context.Context, event Event) error
		Close(ctx context.Context) error
	}

	// EventType enumerates stream payload flavors.
	EventType string

	// Event is the payload sent across the streaming channel.
	Event struct {
		Type    EventType
		RunID   string
		AgentID string
		Payload any
	}

	// ToolStartPayload describes a tool call as it is dispatched.
	ToolStartPayload struct {
		ToolCallID string
		ToolName   string
		Payload    any
	}

	// ToolEndPayload describes a tool call's completion.
	ToolEndPayload struct {
		ToolCallID string
		ToolName   string
		Result     any
		Duration   time.Duration
		Telemetry  *telemetry.ToolTelemetry
		Error      error
	}

	// AssistantReplyPayload carries user-facing assistant text.
	AssistantReplyPayload struct {
		Text string
	}

	// PlannerThoughtPayload carries a reasoning annotation.
	PlannerThoughtPayload struct {
		Note string
	}
)

const (
	// EventToolStart streams a tool call being dispatched.
	EventToolStart EventType = "tool_start"
	// EventToolEnd streams a tool call's completion.
	EventToolEnd EventType = "tool_end"
	// EventAssistantReply streams assistant responses.
	EventAssistantReply EventType = "assistant_reply"
	// EventPlannerThought streams planner reasoning snippets.
	EventPlannerThought EventType = "planner_thought"
)
