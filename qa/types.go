// Package qa implements the QA Loop (spec.md §4.5): repeated
// review/fix cycles against a spec directory's qa_report.md artifact,
// with recurring-issue detection and escalation.
package qa

import (
	"github.com/devagent/orchestrator/specdir"
)

// Policy exposes the QA Loop's thresholds, resolving the Open Question in
// spec.md §9 (hard-coded thresholds) as injectable fields defaulted to
// spec.md's own values.
type Policy struct {
	// MaxIterations bounds the review/fix cycle count. Default 50.
	MaxIterations int
	// RecurringThreshold is how many similar occurrences of an issue
	// trigger escalation. Default 3.
	RecurringThreshold int
	// SimilarityThreshold is the Jaccard overlap at or above which two
	// issues are considered the same recurring issue. Default 0.8.
	SimilarityThreshold float64
}

// DefaultPolicy returns spec.md's own threshold values.
func DefaultPolicy() Policy {
	return Policy{MaxIterations: 50, RecurringThreshold: 3, SimilarityThreshold: 0.8}
}

func (p Policy) withDefaults() Policy {
	if p.MaxIterations <= 0 {
		p.MaxIterations = 50
	}
	if p.RecurringThreshold <= 0 {
		p.RecurringThreshold = 3
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = 0.8
	}
	return p
}

// IterationStatus classifies one loop iteration's result.
type IterationStatus string

const (
	IterationApproved IterationStatus = "approved"
	IterationRejected IterationStatus = "rejected"
	IterationError    IterationStatus = "error"
)

// IterationRecord captures one pass through the loop body for the
// escalation report and the recurring-issue check.
type IterationRecord struct {
	Iteration int
	Status    IterationStatus
	Issues    []specdir.QAIssue
	Err       error
}

// OutcomeKind is the loop's terminal classification.
type OutcomeKind string

const (
	OutcomeApproved      OutcomeKind = "approved"
	OutcomeEscalated     OutcomeKind = "escalated"
	OutcomeMaxIterations OutcomeKind = "max_iterations"
	OutcomeCancelled     OutcomeKind = "cancelled"
)

// Outcome is the QA Loop's terminal result (spec.md §4.5:
// {approved, totalIterations, durationMs, error?}).
type Outcome struct {
	Approved        bool
	Kind            OutcomeKind
	TotalIterations int
	DurationMs      int64
	Iterations      []IterationRecord
	Error           error
}
