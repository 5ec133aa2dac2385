package security

import (
	"context"
	"strings"
)

// EvalRequest describes a tool call the static dispatch table could not
// classify and is handing to an Evaluator for an allow/ask verdict.
type EvalRequest struct {
	ToolName  string
	ToolInput map[string]any
	Cwd       string
}

// EvalVerdict is the Evaluator's allow/ask classification, deliberately
// narrower than Decision: an Evaluator never produces a hard deny, only a
// recommendation to allow or to ask a human.
type EvalVerdict string

const (
	VerdictAllow EvalVerdict = "allow"
	VerdictAsk   EvalVerdict = "ask"
)

// EvalResponse is an Evaluator's rendered verdict and its rationale.
type EvalResponse struct {
	Verdict EvalVerdict
	Reason  string
}

// Evaluator renders an allow/ask verdict for a tool call the static
// dispatch table in Validate cannot classify on its own. It is an escape
// hatch, not a replacement for the dispatch table: Validate never calls an
// Evaluator itself, a host wires one in explicitly via ValidateWithEvaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvalRequest) (EvalResponse, error)
}

// ValidateWithEvaluator runs Validate first; if Validate denies the call
// because the head command is outside the allowed union, and evaluator is
// non-nil, it defers to the evaluator for a second opinion. An evaluator
// error or an "ask" verdict preserves the original deny; an "allow" verdict
// overrides it. Evaluator-specific validator denials (pkill target,
// protected-branch push, and the like) are never overridden: those reflect
// a decision already made by this project's own allowlist, not an unknown
// command.
func ValidateWithEvaluator(ctx context.Context, call ToolCall, profile Profile, evaluator Evaluator) Decision {
	decision := Validate(call, profile)
	if decision.Allow || evaluator == nil {
		return decision
	}
	if !strings.Contains(decision.Reason, "is not in the allowed commands") {
		return decision
	}

	resp, err := evaluator.Evaluate(ctx, EvalRequest{ToolName: call.ToolName, ToolInput: call.ToolInput, Cwd: call.Cwd})
	if err != nil || resp.Verdict != VerdictAllow {
		return decision
	}
	return allow()
}
