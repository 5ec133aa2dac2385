// Package policy evaluates which tools remain available to a session on
// each turn and enforces the step/tool-call caps a session.Config declares.
// The Session Runner calls Engine.Decide before each model turn; the
// default Engine does cap bookkeeping and honors retry hints, with no
// allow/deny-list opinions of its own.
package policy

import (
	"context"
	"time"

	"github.com/devagent/orchestrator/tools"
)

type (
	// Engine decides which tools remain available to a session's model for
	// the current turn and returns the caps to enforce afterward.
	Engine interface {
		// Decide evaluates policy constraints and returns the decision for
		// this turn. Implementations should be fast; heavy external calls
		// block the Runner's step loop.
		Decide(ctx context.Context, input Input) (Decision, error)
	}

	// Input groups what the policy engine needs to decide a turn.
	Input struct {
		RunID         string
		AgentID       string
		Tools         []ToolMetadata
		RetryHint     *RetryHint
		RemainingCaps CapsState
		Requested     []tools.Ident
		Labels        map[string]string
	}

	// Decision captures a policy evaluation's outcome for one turn.
	Decision struct {
		AllowedTools []tools.Ident
		Caps         CapsState
		DisableTools bool
		Labels       map[string]string
		Metadata     map[string]any
	}

	// ToolMetadata describes a candidate tool available to the session.
	ToolMetadata struct {
		Name        tools.Ident
		Description string
		Tags        []string
	}

	// CapsState tracks the remaining execution budget for a run. The
	// session Runner decrements these as steps and tool calls execute.
	CapsState struct {
		MaxSteps     int
		StepsRemaining int

		MaxToolCalls       int
		ToolCallsRemaining int

		MaxConsecutiveFailures       int
		ConsecutiveFailuresRemaining int

		ExpiresAt time.Time
	}
)

// RetryReason categorizes why a tool call failed, as reported back to the
// policy engine so it can adjust the allowlist or caps on the next turn.
type RetryReason string

const (
	RetryReasonInvalidArguments  RetryReason = "invalid_arguments"
	RetryReasonMalformedResponse RetryReason = "malformed_response"
	RetryReasonTimeout           RetryReason = "timeout"
	RetryReasonRateLimited       RetryReason = "rate_limited"
	RetryReasonToolUnavailable   RetryReason = "tool_unavailable"
	RetryReasonRepeatedFailure   RetryReason = "repeated_failure"
)

// RetryHint communicates why the previous tool call failed so the policy
// engine can adjust the allowlist or caps before the next turn.
type RetryHint struct {
	Reason         RetryReason
	Tool           tools.Ident
	RestrictToTool bool
	Message        string
}
