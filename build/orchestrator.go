package build

import (
	"context"
	"os"
	"time"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/plan"
	"github.com/devagent/orchestrator/qa"
	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/telemetry"
)

// PlannerRunner runs one planner session attempt.
type PlannerRunner interface {
	RunPlanner(ctx context.Context, attempt int) error
}

// Orchestrator is the Build Orchestrator (spec.md §4.6): planning →
// coding → qa for a single specification, with the spec directory as the
// sole authoritative state between phases.
type Orchestrator struct {
	dir     specdir.Dir
	planner PlannerRunner
	coder   CoderRunner
	qaLoop  *qa.Loop
	policy  Policy
	logger  telemetry.Logger
}

// Options configures an Orchestrator.
type Options struct {
	Dir     specdir.Dir
	Planner PlannerRunner
	Coder   CoderRunner
	QALoop  *qa.Loop
	Policy  Policy
	Logger  telemetry.Logger
}

// New constructs an Orchestrator from opts.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Orchestrator{
		dir:     opts.Dir,
		planner: opts.Planner,
		coder:   opts.Coder,
		qaLoop:  opts.QALoop,
		policy:  opts.Policy.withDefaults(),
		logger:  logger,
	}
}

// Run sequences planning → coding → qa exactly as spec.md §4.6 describes,
// resuming from an existing plan file when one is already present
// (spec.md §4.6 Invariants).
func (o *Orchestrator) Run(ctx context.Context) Outcome {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return o.finish(false, OutcomeCancelled, start, nil, err)
	}

	if err := o.ensurePlan(ctx); err != nil {
		return o.finish(false, OutcomePlanningFailed, start, nil, err)
	}

	iterator := NewIterator(o.dir, o.coder, o.policy)
	iterResult := iterator.Run(ctx)

	switch {
	case iterResult.Err != nil:
		return o.finish(false, OutcomePlanningFailed, start, iterResult.StuckSubtasks, iterResult.Err)
	case iterResult.Cancelled:
		return o.finish(false, OutcomeCancelled, start, iterResult.StuckSubtasks, agenterrors.New(agenterrors.KindCancelled, "Cancelled"))
	case iterResult.Terminal != "":
		return o.finish(false, iterResult.Terminal, start, iterResult.StuckSubtasks, nil)
	}

	qaOutcome := o.qaLoop.Run(ctx)
	out := o.finish(qaOutcome.Approved, kindForQA(qaOutcome), start, iterResult.StuckSubtasks, qaOutcome.Error)
	out.TotalIterations = qaOutcome.TotalIterations
	out.QAOutcome = &qaOutcome
	return out
}

// ensurePlan resumes from an existing implementation_plan.json if one is
// present; otherwise it runs the planner session up to
// Policy.MaxPhaseRetries+1 times until a well-formed (non-empty) plan
// exists.
func (o *Orchestrator) ensurePlan(ctx context.Context) error {
	if _, err := os.Stat(o.dir.ImplementationPlanPath()); err == nil {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= o.policy.MaxPhaseRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.planner.RunPlanner(ctx, attempt); err != nil {
			lastErr = err
			o.logger.Warn(ctx, "planner session failed", "attempt", attempt, "error", err)
			continue
		}
		p, err := plan.Load(o.dir.ImplementationPlanPath())
		if err != nil {
			lastErr = err
			o.logger.Warn(ctx, "implementation plan parse failed", "attempt", attempt, "error", err)
			continue
		}
		if p.IsEmpty() {
			lastErr = agenterrors.New(agenterrors.KindParse, "build: planner produced an implementation plan with no subtasks")
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = agenterrors.New(agenterrors.KindParse, "build: planning phase exhausted retries")
	}
	return lastErr
}

func kindForQA(outcome qa.Outcome) OutcomeKind {
	if outcome.Approved {
		return OutcomeSuccess
	}
	if outcome.Kind == qa.OutcomeCancelled {
		return OutcomeCancelled
	}
	return OutcomeQARejected
}

func (o *Orchestrator) finish(success bool, kind OutcomeKind, start time.Time, stuck []string, err error) Outcome {
	return Outcome{
		Success:       success,
		Kind:          kind,
		DurationMs:    time.Since(start).Milliseconds(),
		StuckSubtasks: stuck,
		Error:         err,
	}
}
