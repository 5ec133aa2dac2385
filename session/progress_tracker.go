package session

import "strings"

// ProgressState is a snapshot of user-facing execution progress, derived
// from the event stream rather than carried on it directly.
type ProgressState struct {
	CurrentPhase    string
	CurrentSubtask  string
	CurrentMessage  string
	CompletedPhases []string
}

// phaseRule marks a phase complete when a tool call matching toolName is
// observed with a payload containing pathContains. An empty pathContains
// matches any payload.
type phaseRule struct {
	toolName     string
	pathContains string
	completes    string
}

// defaultPhaseRules encodes the well-known spec-directory artifacts whose
// creation signals a phase boundary (spec.md §4.3.1's example: a write to
// implementation_plan.json ends the planning phase).
var defaultPhaseRules = []phaseRule{
	{toolName: "fs.write_file", pathContains: "implementation_plan.json", completes: "planning"},
	{toolName: "fs.write_file", pathContains: "complexity_assessment.json", completes: "discovery"},
	{toolName: "fs.write_file", pathContains: "qa_report.md", completes: "qa_review"},
	{toolName: "fs.write_file", pathContains: "MANUAL_TEST_PLAN.md", completes: "qa_review"},
}

// ProgressTracker maintains the derived currentPhase/currentSubtask/
// currentMessage/completedPhases state the Runner exposes as
// execution-progress stream events, updated by inspecting tool calls
// against a small rule table and by orchestrator-driven phase/subtask
// transitions, independent of the raw model stream.
type ProgressTracker struct {
	rules     []phaseRule
	state     ProgressState
	completed map[string]struct{}
	dirty     bool
}

// NewProgressTracker seeds a tracker with the run's starting phase and
// subtask.
func NewProgressTracker(phase, subtask string) *ProgressTracker {
	return &ProgressTracker{
		rules:     defaultPhaseRules,
		state:     ProgressState{CurrentPhase: phase, CurrentSubtask: subtask},
		completed: make(map[string]struct{}),
	}
}

// ObserveMessage records the latest assistant text as the current
// user-facing message.
func (t *ProgressTracker) ObserveMessage(text string) {
	if text == "" || text == t.state.CurrentMessage {
		return
	}
	t.state.CurrentMessage = text
	t.dirty = true
}

// ObserveToolCall inspects a scheduled tool call's name and raw JSON
// payload against the rule table, marking any matching phase complete.
func (t *ProgressTracker) ObserveToolCall(toolName string, payload []byte) {
	for _, rule := range t.rules {
		if rule.toolName != toolName {
			continue
		}
		if rule.pathContains != "" && !strings.Contains(string(payload), rule.pathContains) {
			continue
		}
		t.markComplete(rule.completes)
	}
}

// SetPhase transitions the tracker to a new current phase, driven by
// orchestrator-emitted phase-change events rather than tool inspection.
func (t *ProgressTracker) SetPhase(phase string) {
	if phase == "" || phase == t.state.CurrentPhase {
		return
	}
	t.state.CurrentPhase = phase
	t.dirty = true
}

// SetSubtask transitions the tracker to a new current subtask.
func (t *ProgressTracker) SetSubtask(subtask string) {
	if subtask == t.state.CurrentSubtask {
		return
	}
	t.state.CurrentSubtask = subtask
	t.dirty = true
}

func (t *ProgressTracker) markComplete(phase string) {
	if _, ok := t.completed[phase]; ok {
		return
	}
	t.completed[phase] = struct{}{}
	t.state.CompletedPhases = append(t.state.CompletedPhases, phase)
	t.dirty = true
}

// Drain returns a copy of the current state if it changed since the last
// Drain call, or nil when nothing changed — the Runner only emits a
// StreamEventProgress item when this returns non-nil.
func (t *ProgressTracker) Drain() *ProgressState {
	if !t.dirty {
		return nil
	}
	t.dirty = false
	snapshot := t.state
	snapshot.CompletedPhases = append([]string{}, t.state.CompletedPhases...)
	return &snapshot
}
