package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/session"
)

func TestProgressTrackerDrainReturnsNilWithoutChanges(t *testing.T) {
	tracker := session.NewProgressTracker("planning", "subtask-1")
	assert.Nil(t, tracker.Drain())
}

func TestProgressTrackerObserveMessageMarksDirty(t *testing.T) {
	tracker := session.NewProgressTracker("planning", "")
	tracker.ObserveMessage("working on it")

	snapshot := tracker.Drain()
	require.NotNil(t, snapshot)
	assert.Equal(t, "working on it", snapshot.CurrentMessage)
	assert.Nil(t, tracker.Drain())
}

func TestProgressTrackerCompletesPlanningOnImplementationPlanWrite(t *testing.T) {
	tracker := session.NewProgressTracker("planning", "")
	tracker.ObserveToolCall("fs.write_file", []byte(`{"path":"/spec/implementation_plan.json","content":"{}"}`))

	snapshot := tracker.Drain()
	require.NotNil(t, snapshot)
	assert.Contains(t, snapshot.CompletedPhases, "planning")
}

func TestProgressTrackerIgnoresUnrelatedToolCalls(t *testing.T) {
	tracker := session.NewProgressTracker("coding", "")
	tracker.ObserveToolCall("fs.read_file", []byte(`{"path":"/src/main.go"}`))

	assert.Nil(t, tracker.Drain())
}

func TestProgressTrackerDoesNotDuplicateCompletedPhase(t *testing.T) {
	tracker := session.NewProgressTracker("planning", "")
	tracker.ObserveToolCall("fs.write_file", []byte(`{"path":"implementation_plan.json"}`))
	tracker.Drain()
	tracker.ObserveToolCall("fs.write_file", []byte(`{"path":"implementation_plan.json"}`))

	assert.Nil(t, tracker.Drain())
}

func TestProgressTrackerSetPhaseAndSubtaskMarkDirty(t *testing.T) {
	tracker := session.NewProgressTracker("planning", "")
	tracker.SetPhase("coding")
	tracker.SetSubtask("subtask-2")

	snapshot := tracker.Drain()
	require.NotNil(t, snapshot)
	assert.Equal(t, "coding", snapshot.CurrentPhase)
	assert.Equal(t, "subtask-2", snapshot.CurrentSubtask)
}
