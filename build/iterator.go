package build

import (
	"context"
	"time"

	"github.com/devagent/orchestrator/plan"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/specdir"
)

// CoderRunner runs one coder session kicked off for the named subtask.
// The session itself transitions the subtask's status by writing the
// plan file (spec.md §4.6); the iterator only inspects the terminal
// session.Outcome to decide how to proceed.
type CoderRunner interface {
	RunCoder(ctx context.Context, subtaskID string, attempt int) (session.Outcome, error)
}

// IteratorResult is the Subtask Iterator's terminal result.
type IteratorResult struct {
	// Cancelled is true when a coder session returned session.OutcomeCancelled.
	Cancelled bool
	// Terminal is set to OutcomeRateLimited or OutcomeAuthFailure when a
	// coder session returns one of those outcomes; the caller owns backoff.
	Terminal OutcomeKind
	// StuckSubtasks lists subtask ids that exceeded Policy.MaxRetries.
	StuckSubtasks []string
	Err           error
}

// Iterator is the Subtask Iterator (spec.md §4.6 "Coding phase").
type Iterator struct {
	dir    specdir.Dir
	coder  CoderRunner
	policy Policy
}

// NewIterator constructs an Iterator.
func NewIterator(dir specdir.Dir, coder CoderRunner, policy Policy) *Iterator {
	return &Iterator{dir: dir, coder: coder, policy: policy.withDefaults()}
}

// Run loops: reload the plan file, find the next eligible subtask, run a
// coder session for it, and repeat until no pending/in-progress subtask
// remains (success), a session is cancelled, or one returns a terminal
// outcome the caller must back off on.
func (it *Iterator) Run(ctx context.Context) IteratorResult {
	attempts := make(map[string]int)
	stuck := make(map[string]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return IteratorResult{Cancelled: true, StuckSubtasks: stuckList(stuck)}
		}

		p, err := plan.Load(it.dir.ImplementationPlanPath())
		if err != nil {
			return IteratorResult{Err: err, StuckSubtasks: stuckList(stuck)}
		}

		pi, si, found := p.NextPending(stuck)
		if !found {
			return IteratorResult{StuckSubtasks: stuckList(stuck)}
		}
		sub := p.Phases[pi].Subtasks[si]

		attempts[sub.ID]++
		if attempts[sub.ID] > it.policy.MaxRetries {
			stuck[sub.ID] = struct{}{}
			continue
		}

		outcome, runErr := it.coder.RunCoder(ctx, sub.ID, attempts[sub.ID])
		if runErr != nil {
			// Session-level error: the subtask remains pending/in_progress
			// and is retried next loop iteration, per spec.md §4.6.
			continue
		}

		switch outcome {
		case session.OutcomeCancelled:
			return IteratorResult{Cancelled: true, StuckSubtasks: stuckList(stuck)}
		case session.OutcomeRateLimited:
			return IteratorResult{Terminal: OutcomeRateLimited, StuckSubtasks: stuckList(stuck)}
		case session.OutcomeAuthFailure:
			return IteratorResult{Terminal: OutcomeAuthFailure, StuckSubtasks: stuckList(stuck)}
		case session.OutcomeError:
			// Remains pending/in_progress; retried next loop iteration.
		default: // OutcomeCompleted, OutcomeMaxSteps: agent already
			// transitioned status by writing the plan file.
		}

		if it.policy.AutoContinueDelay > 0 {
			timer := time.NewTimer(it.policy.AutoContinueDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return IteratorResult{Cancelled: true, StuckSubtasks: stuckList(stuck)}
			}
		}
	}
}

func stuckList(stuck map[string]struct{}) []string {
	out := make([]string, 0, len(stuck))
	for id := range stuck {
		out = append(out, id)
	}
	return out
}
