// Package build implements the Build Orchestrator (spec.md §4.6):
// planning → subtask iteration → QA loop for a single specification.
package build

import (
	"time"

	"github.com/devagent/orchestrator/qa"
)

// Policy exposes the Build Orchestrator's retry/delay knobs.
type Policy struct {
	// MaxRetries bounds a single subtask's coder attempts before it is
	// added to the stuck list. Default 3.
	MaxRetries int
	// MaxPhaseRetries bounds planner-session attempts before the planning
	// phase surfaces as a terminal error. Default 2.
	MaxPhaseRetries int
	// AutoContinueDelay is waited between Subtask Iterator loop
	// iterations, honoring cancellation. Default 0 (no delay), useful for
	// tests; a host typically sets a small positive value to avoid
	// hammering the model provider between subtasks.
	AutoContinueDelay time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.MaxPhaseRetries <= 0 {
		p.MaxPhaseRetries = 2
	}
	return p
}

// OutcomeKind is the orchestrator's terminal classification, matching the
// outcomes the iterator and QA loop can return to the caller.
type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "success"
	OutcomePlanningFailed OutcomeKind = "planning_failed"
	OutcomeCancelled      OutcomeKind = "cancelled"
	OutcomeRateLimited    OutcomeKind = "rate_limited"
	OutcomeAuthFailure    OutcomeKind = "auth_failure"
	OutcomeQARejected     OutcomeKind = "qa_rejected"
)

// Outcome is the Build Orchestrator's terminal result (spec.md §4.6:
// {success, totalIterations, durationMs, error?}).
type Outcome struct {
	Success         bool
	Kind            OutcomeKind
	TotalIterations int
	DurationMs      int64
	StuckSubtasks   []string
	QAOutcome       *qa.Outcome
	Error           error
}
