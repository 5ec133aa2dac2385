// Package specpipeline implements the Spec Orchestrator (spec.md §4.7):
// a complexity-adaptive sequence of spec-authoring phases with per-phase
// retries.
package specpipeline

import (
	"github.com/devagent/orchestrator/specdir"
)

// Phase names the spec-authoring phases the pipeline can run.
type Phase string

const (
	PhaseDiscovery            Phase = "discovery"
	PhaseRequirements         Phase = "requirements"
	PhaseComplexityAssessment Phase = "complexity_assessment"
	PhaseQuickSpec            Phase = "quick_spec"
	PhaseResearch             Phase = "research"
	PhaseContext              Phase = "context"
	PhaseSpecWriting          Phase = "spec_writing"
	PhaseSelfCritique         Phase = "self_critique"
	PhasePlanning             Phase = "planning"
	PhaseValidation           Phase = "validation"
)

// Policy exposes the per-phase retry budget.
type Policy struct {
	// MaxPhaseRetries bounds retries per phase; each phase is attempted up
	// to MaxPhaseRetries+1 times. Default 2.
	MaxPhaseRetries int
}

func (p Policy) withDefaults() Policy {
	if p.MaxPhaseRetries <= 0 {
		p.MaxPhaseRetries = 2
	}
	return p
}

// OutcomeKind is the pipeline's terminal classification.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeCancelled   OutcomeKind = "cancelled"
	OutcomeAuthFailure OutcomeKind = "auth_failure"
	OutcomeFailed      OutcomeKind = "failed"
)

// Outcome is the Spec Orchestrator's terminal result.
type Outcome struct {
	Success        bool
	Kind           OutcomeKind
	Complexity     specdir.Complexity
	PhasesExecuted []Phase
	DurationMs     int64
	Error          error
}

// phasesForComplexity returns the remaining phase sequence after the
// fixed discovery → requirements → complexity_assessment prefix, per the
// table in spec.md §4.7, with research/self_critique inserted when the
// assessment flags request them.
func phasesForComplexity(c specdir.Complexity, needsResearch, needsSelfCritique bool) []Phase {
	switch c {
	case specdir.ComplexitySimple:
		return []Phase{PhaseQuickSpec, PhaseValidation}
	case specdir.ComplexityComplex:
		return []Phase{PhaseResearch, PhaseContext, PhaseSpecWriting, PhaseSelfCritique, PhasePlanning, PhaseValidation}
	default: // ComplexityStandard, and the missing/invalid-assessment fallback
		phases := make([]Phase, 0, 6)
		if needsResearch {
			phases = append(phases, PhaseResearch)
		}
		phases = append(phases, PhaseContext, PhaseSpecWriting)
		if needsSelfCritique {
			phases = append(phases, PhaseSelfCritique)
		}
		phases = append(phases, PhasePlanning, PhaseValidation)
		return phases
	}
}
