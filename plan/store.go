package plan

import (
	"encoding/json"

	"github.com/devagent/orchestrator/atomicfile"
	agenterrors "github.com/devagent/orchestrator/errors"
)

// Load reads and parses the implementation plan at path. A missing file is
// returned unchanged (via atomicfile.Read) so callers can branch on
// os.IsNotExist to distinguish "no plan yet" from a parse failure.
func Load(path string) (ImplementationPlan, error) {
	data, err := atomicfile.Read(path)
	if err != nil {
		return ImplementationPlan{}, err
	}
	var p ImplementationPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return ImplementationPlan{}, agenterrors.Wrap(agenterrors.KindParse, "plan: parse implementation plan", err)
	}
	if err := Validate(p); err != nil {
		return ImplementationPlan{}, err
	}
	return p, nil
}

// Save validates p and atomically writes it to path as indented JSON.
func Save(path string, p ImplementationPlan) error {
	if err := Validate(p); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return agenterrors.Wrap(agenterrors.KindParse, "plan: marshal implementation plan", err)
	}
	return atomicfile.Write(path, data)
}

// Validate checks the invariant spec.md §3 names: subtask ids are unique
// across the whole plan, not merely within a phase.
func Validate(p ImplementationPlan) error {
	seen := make(map[string]struct{})
	for _, phase := range p.Phases {
		for _, sub := range phase.Subtasks {
			if sub.ID == "" {
				return agenterrors.New(agenterrors.KindValidation, "plan: subtask with empty id")
			}
			if _, dup := seen[sub.ID]; dup {
				return agenterrors.Errorf(agenterrors.KindValidation, "plan: duplicate subtask id %q", sub.ID)
			}
			seen[sub.ID] = struct{}{}
		}
	}
	return nil
}

// IsEmpty reports whether p has no subtasks at all, the edge case spec.md
// §4.6 calls out: a build orchestrator run against an empty plan reports
// success with zero subtasks executed.
func (p ImplementationPlan) IsEmpty() bool {
	for _, phase := range p.Phases {
		if len(phase.Subtasks) > 0 {
			return false
		}
	}
	return true
}

// AllCompleted reports whether every subtask in p has status completed.
func (p ImplementationPlan) AllCompleted() bool {
	for _, phase := range p.Phases {
		for _, sub := range phase.Subtasks {
			if sub.Status != StatusCompleted {
				return false
			}
		}
	}
	return true
}

// NextPending returns the first subtask with status pending or in_progress
// whose id is not in stuck, scanning phases and subtasks in order, and
// reports whether one was found. The Build Orchestrator's Subtask Iterator
// uses this to pick the next unit of coding work each loop iteration.
func (p ImplementationPlan) NextPending(stuck map[string]struct{}) (phaseIndex, subtaskIndex int, found bool) {
	for pi, phase := range p.Phases {
		for si, sub := range phase.Subtasks {
			if sub.Status != StatusPending && sub.Status != StatusInProgress {
				continue
			}
			if _, isStuck := stuck[sub.ID]; isStuck {
				continue
			}
			return pi, si, true
		}
	}
	return 0, 0, false
}

// Find returns the subtask with the given id and whether it exists.
func (p ImplementationPlan) Find(id string) (Subtask, bool) {
	for _, phase := range p.Phases {
		for _, sub := range phase.Subtasks {
			if sub.ID == id {
				return sub, true
			}
		}
	}
	return Subtask{}, false
}

// errUnknownSubtask is returned by mutation helpers given an id the plan
// does not contain.
func errUnknownSubtask(id string) error {
	return agenterrors.Errorf(agenterrors.KindValidation, "plan: unknown subtask id %q", id)
}

// WithStatus returns a copy of p with the named subtask's status set to
// status. The plan is copied phase-by-phase and subtask-by-subtask so the
// caller's original value is never mutated in place.
func (p ImplementationPlan) WithStatus(id string, status Status) (ImplementationPlan, error) {
	out := ImplementationPlan{Phases: make([]Phase, len(p.Phases))}
	found := false
	for pi, phase := range p.Phases {
		out.Phases[pi] = Phase{Name: phase.Name, Subtasks: make([]Subtask, len(phase.Subtasks))}
		for si, sub := range phase.Subtasks {
			if sub.ID == id {
				sub.Status = status
				found = true
			}
			out.Phases[pi].Subtasks[si] = sub
		}
	}
	if !found {
		return ImplementationPlan{}, errUnknownSubtask(id)
	}
	return out, nil
}
