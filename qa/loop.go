package qa

import (
	"context"
	"time"

	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/telemetry"
)

// SessionRunner runs the qa_reviewer and qa_fixer agent sessions the loop
// body needs. Implementations are expected to spawn the session via a
// worker.Bridge and report the terminal outcome; the loop itself never
// touches session.Config or worker.Handle directly, matching spec.md
// §4.6's observation that each orchestrator phase runs exactly one agent
// session at a time through the Worker Bridge.
type SessionRunner interface {
	// RunReviewer runs one qa_reviewer session for the given iteration
	// number and returns a non-nil error when the session itself failed —
	// session-level failure, not report content, is what the error
	// communicates. The review report is read separately from the spec
	// directory afterward.
	RunReviewer(ctx context.Context, iteration int) error
	// RunFixer runs one qa_fixer session keyed to report.
	RunFixer(ctx context.Context, iteration int, report specdir.QAReport) error
}

// Loop runs the review/fix cycle described in spec.md §4.5.
type Loop struct {
	dir    specdir.Dir
	runner SessionRunner
	policy Policy
	logger telemetry.Logger
}

// Options configures a Loop.
type Options struct {
	Dir    specdir.Dir
	Runner SessionRunner
	Policy Policy
	Logger telemetry.Logger
}

// New constructs a Loop from opts.
func New(opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Loop{
		dir:    opts.Dir,
		runner: opts.Runner,
		policy: opts.Policy.withDefaults(),
		logger: logger,
	}
}

// Run iterates the review/fix cycle until approval, a recurring issue
// triggers escalation, the iteration cap is hit, or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) Outcome {
	start := time.Now()
	var history []specdir.QAIssue
	var records []IterationRecord

	for iteration := 1; iteration <= l.policy.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return l.finish(OutcomeCancelled, false, records, start, err)
		}

		if err := l.runner.RunReviewer(ctx, iteration); err != nil {
			records = append(records, IterationRecord{Iteration: iteration, Status: IterationError, Err: err})
			l.logger.Warn(ctx, "qa reviewer session failed", "iteration", iteration, "error", err)
			continue
		}

		report, err := specdir.ParseQAReport(l.dir)
		if err != nil {
			records = append(records, IterationRecord{Iteration: iteration, Status: IterationError, Err: err})
			l.logger.Warn(ctx, "qa report parse failed", "iteration", iteration, "error", err)
			continue
		}

		if report.Approved {
			records = append(records, IterationRecord{Iteration: iteration, Status: IterationApproved})
			return l.finish(OutcomeApproved, true, records, start, nil)
		}

		records = append(records, IterationRecord{Iteration: iteration, Status: IterationRejected, Issues: report.Issues})
		history = append(history, report.Issues...)

		if recurring, ok := l.findRecurring(history); ok {
			if escErr := specdir.WriteQAEscalation(l.dir, recurring, history); escErr != nil {
				l.logger.Error(ctx, "failed to write qa escalation report", "error", escErr)
			}
			return l.finish(OutcomeEscalated, false, records, start, nil)
		}

		if err := ctx.Err(); err != nil {
			return l.finish(OutcomeCancelled, false, records, start, err)
		}
		if err := l.runner.RunFixer(ctx, iteration, report); err != nil {
			l.logger.Warn(ctx, "qa fixer session failed", "iteration", iteration, "error", err)
		}
	}

	return l.finish(OutcomeMaxIterations, false, records, start, nil)
}

// findRecurring scans history for an issue with at least
// RecurringThreshold similar occurrences, returning the first such issue
// encountered (in history order) and true.
func (l *Loop) findRecurring(history []specdir.QAIssue) (specdir.QAIssue, bool) {
	for i, candidate := range history {
		count := 0
		for _, other := range history {
			if similar(candidate, other, l.policy.SimilarityThreshold) {
				count++
			}
		}
		if count >= l.policy.RecurringThreshold {
			return history[i], true
		}
	}
	return specdir.QAIssue{}, false
}

func (l *Loop) finish(kind OutcomeKind, approved bool, records []IterationRecord, start time.Time, err error) Outcome {
	return Outcome{
		Approved:        approved,
		Kind:            kind,
		TotalIterations: len(records),
		DurationMs:      time.Since(start).Milliseconds(),
		Iterations:      records,
		Error:           err,
	}
}
