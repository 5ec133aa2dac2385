package specpipeline

import (
	"context"
	"time"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/telemetry"
)

// SessionRunner runs one agent session for the named phase and attempt.
// For PhaseComplexityAssessment this runs the spec_gatherer session that
// is expected to emit complexity_assessment.json; the Pipeline reads that
// file itself afterward rather than having the runner parse it, so a host
// implementation only needs to know how to launch a session per phase.
type SessionRunner interface {
	RunPhase(ctx context.Context, phase Phase, attempt int) (session.Outcome, error)
}

// Pipeline is the Spec Orchestrator (spec.md §4.7).
type Pipeline struct {
	dir    specdir.Dir
	runner SessionRunner
	policy Policy
	logger telemetry.Logger
}

// Options configures a Pipeline.
type Options struct {
	Dir    specdir.Dir
	Runner SessionRunner
	Policy Policy
	Logger telemetry.Logger
}

// New constructs a Pipeline from opts.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Pipeline{dir: opts.Dir, runner: opts.Runner, policy: opts.Policy.withDefaults(), logger: logger}
}

// Run executes the fixed discovery → requirements prefix, the single
// complexity-assessment phase, then the complexity-adaptive remainder,
// retrying each phase up to Policy.MaxPhaseRetries+1 times.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	start := time.Now()
	var executed []Phase

	for _, phase := range []Phase{PhaseDiscovery, PhaseRequirements} {
		if outcome, err := p.runPhaseWithRetry(ctx, phase); outcome != OutcomeSuccess {
			return p.finish(executed, start, outcome, err)
		}
		executed = append(executed, phase)
	}

	assessmentOutcome, err := p.runPhaseWithRetry(ctx, PhaseComplexityAssessment)
	if assessmentOutcome != OutcomeSuccess {
		return p.finish(executed, start, assessmentOutcome, err)
	}
	executed = append(executed, PhaseComplexityAssessment)

	complexity, needsResearch, needsSelfCritique := p.resolveComplexity()

	for _, phase := range phasesForComplexity(complexity, needsResearch, needsSelfCritique) {
		if outcome, err := p.runPhaseWithRetry(ctx, phase); outcome != OutcomeSuccess {
			result := p.finish(executed, start, outcome, err)
			result.Complexity = complexity
			return result
		}
		executed = append(executed, phase)
	}

	result := p.finish(executed, start, OutcomeSuccess, nil)
	result.Complexity = complexity
	return result
}

// resolveComplexity reads complexity_assessment.json, defaulting to
// standard with no flags when the file is missing or invalid (spec.md
// §4.7).
func (p *Pipeline) resolveComplexity() (specdir.Complexity, bool, bool) {
	data, ok := specdir.ReadComplexityAssessment(p.dir)
	if !ok {
		p.logger.Warn(context.Background(), "complexity assessment missing or invalid, defaulting to standard")
		return specdir.ComplexityStandard, false, false
	}
	return data.Complexity, data.NeedsResearch, data.NeedsSelfCritique
}

// runPhaseWithRetry attempts phase up to Policy.MaxPhaseRetries+1 times,
// mapping the inner session.Outcome per spec.md §4.7: completed/max_steps
// ⇒ success; cancelled ⇒ pipeline cancelled; auth_failure ⇒ pipeline
// failure (non-retryable); anything else ⇒ retryable.
func (p *Pipeline) runPhaseWithRetry(ctx context.Context, phase Phase) (OutcomeKind, error) {
	var lastErr error
	for attempt := 1; attempt <= p.policy.MaxPhaseRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return OutcomeCancelled, agenterrors.New(agenterrors.KindCancelled, "Cancelled")
		}

		outcome, err := p.runner.RunPhase(ctx, phase, attempt)
		if err != nil {
			lastErr = err
			p.logger.Warn(ctx, "spec phase session failed", "phase", phase, "attempt", attempt, "error", err)
			continue
		}

		switch outcome {
		case session.OutcomeCompleted, session.OutcomeMaxSteps:
			return OutcomeSuccess, nil
		case session.OutcomeCancelled:
			return OutcomeCancelled, agenterrors.New(agenterrors.KindCancelled, "Cancelled")
		case session.OutcomeAuthFailure:
			return OutcomeAuthFailure, agenterrors.New(agenterrors.KindAuth, "auth_failure")
		default:
			lastErr = agenterrors.Errorf(agenterrors.KindTransient, "specpipeline: phase %s returned retryable outcome %s", phase, outcome)
		}
	}
	if lastErr == nil {
		lastErr = agenterrors.Errorf(agenterrors.KindTransient, "specpipeline: phase %s exhausted retries", phase)
	}
	return OutcomeFailed, lastErr
}

func (p *Pipeline) finish(executed []Phase, start time.Time, kind OutcomeKind, err error) Outcome {
	return Outcome{
		Success:        kind == OutcomeSuccess,
		Kind:           kind,
		PhasesExecuted: executed,
		DurationMs:     time.Since(start).Milliseconds(),
		Error:          err,
	}
}
