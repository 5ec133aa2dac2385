package plan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/plan"
)

func samplePlan() plan.ImplementationPlan {
	return plan.ImplementationPlan{
		Phases: []plan.Phase{
			{
				Name: "scaffolding",
				Subtasks: []plan.Subtask{
					{ID: "S1", Description: "create package skeleton", Status: plan.StatusCompleted},
					{ID: "S2", Description: "wire routes", Status: plan.StatusPending, FilesToCreate: []string{"router.go"}},
				},
			},
			{
				Name: "tests",
				Subtasks: []plan.Subtask{
					{ID: "S3", Description: "add unit tests", Status: plan.StatusInProgress, FilesToModify: []string{"router_test.go"}},
				},
			},
		},
	}
}

func TestValidateRejectsDuplicateSubtaskIDsAcrossPhases(t *testing.T) {
	p := plan.ImplementationPlan{Phases: []plan.Phase{
		{Name: "a", Subtasks: []plan.Subtask{{ID: "S1", Status: plan.StatusPending}}},
		{Name: "b", Subtasks: []plan.Subtask{{ID: "S1", Status: plan.StatusPending}}},
	}}
	err := plan.Validate(p)
	require.Error(t, err)
	var agentErr *agenterrors.Error
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, agenterrors.KindValidation, agentErr.Kind)
}

func TestValidateRejectsEmptySubtaskID(t *testing.T) {
	p := plan.ImplementationPlan{Phases: []plan.Phase{
		{Name: "a", Subtasks: []plan.Subtask{{ID: "", Status: plan.StatusPending}}},
	}}
	require.Error(t, plan.Validate(p))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "implementation_plan.json")
	p := samplePlan()

	require.NoError(t, plan.Save(path, p))

	loaded, err := plan.Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestSaveRejectsInvalidPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "implementation_plan.json")
	invalid := plan.ImplementationPlan{Phases: []plan.Phase{
		{Name: "a", Subtasks: []plan.Subtask{{ID: "S1"}, {ID: "S1"}}},
	}}
	err := plan.Save(path, invalid)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadSurfacesParseFailureAsKindParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "implementation_plan.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := plan.Load(path)
	require.Error(t, err)
	var agentErr *agenterrors.Error
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, agenterrors.KindParse, agentErr.Kind)
}

func TestIsEmptyAndAllCompleted(t *testing.T) {
	empty := plan.ImplementationPlan{Phases: []plan.Phase{{Name: "a"}}}
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.AllCompleted())

	p := samplePlan()
	assert.False(t, p.IsEmpty())
	assert.False(t, p.AllCompleted())
}

func TestNextPendingSkipsStuckAndCompleted(t *testing.T) {
	p := samplePlan()

	pi, si, found := p.NextPending(nil)
	require.True(t, found)
	assert.Equal(t, "S2", p.Phases[pi].Subtasks[si].ID)

	stuck := map[string]struct{}{"S2": {}}
	pi, si, found = p.NextPending(stuck)
	require.True(t, found)
	assert.Equal(t, "S3", p.Phases[pi].Subtasks[si].ID)

	stuck["S3"] = struct{}{}
	_, _, found = p.NextPending(stuck)
	assert.False(t, found)
}

func TestWithStatusDoesNotMutateReceiverAndRejectsUnknownID(t *testing.T) {
	p := samplePlan()

	updated, err := p.WithStatus("S2", plan.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPending, p.Phases[0].Subtasks[1].Status, "original plan must not be mutated")
	assert.Equal(t, plan.StatusCompleted, updated.Phases[0].Subtasks[1].Status)

	_, err = p.WithStatus("does-not-exist", plan.StatusCompleted)
	require.Error(t, err)
}

func TestFindReturnsSubtaskAndOK(t *testing.T) {
	p := samplePlan()

	sub, ok := p.Find("S3")
	require.True(t, ok)
	assert.Equal(t, plan.StatusInProgress, sub.Status)

	_, ok = p.Find("missing")
	assert.False(t, ok)
}
