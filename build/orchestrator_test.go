package build_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/build"
	"github.com/devagent/orchestrator/plan"
	"github.com/devagent/orchestrator/qa"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/specdir"
)

type scriptedPlanner struct {
	writes []plan.ImplementationPlan // one entry consumed per call, in order
	errs   map[int]error
	dir    specdir.Dir
	calls  int
}

func (p *scriptedPlanner) RunPlanner(ctx context.Context, attempt int) error {
	p.calls++
	if err, ok := p.errs[attempt]; ok {
		return err
	}
	idx := attempt - 1
	if idx >= len(p.writes) {
		return nil
	}
	return plan.Save(p.dir.ImplementationPlanPath(), p.writes[idx])
}

func passingQAReviewer(dir specdir.Dir) *qa.Loop {
	return qa.New(qa.Options{Dir: dir, Runner: passRunner{dir: dir}})
}

type passRunner struct{ dir specdir.Dir }

func (r passRunner) RunReviewer(ctx context.Context, iteration int) error {
	return os.WriteFile(r.dir.QAReportPath(), []byte("Status: PASSED\n"), 0o644)
}
func (r passRunner) RunFixer(ctx context.Context, iteration int, report specdir.QAReport) error {
	return nil
}

func TestOrchestratorPlanningFailsAfterExhaustingRetries(t *testing.T) {
	dir := specdir.New(t.TempDir())
	planner := &scriptedPlanner{dir: dir, errs: map[int]error{1: errors.New("boom"), 2: errors.New("boom"), 3: errors.New("boom")}}
	coder := newScriptedCoder()

	orch := build.New(build.Options{
		Dir:     dir,
		Planner: planner,
		Coder:   coder,
		QALoop:  passingQAReviewer(dir),
		Policy:  build.Policy{MaxPhaseRetries: 2},
	})

	outcome := orch.Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, build.OutcomePlanningFailed, outcome.Kind)
	assert.Equal(t, 3, planner.calls)
}

func TestOrchestratorHappyPathWithOneStuckSubtask(t *testing.T) {
	dir := specdir.New(t.TempDir())
	planner := &scriptedPlanner{dir: dir, writes: []plan.ImplementationPlan{twoSubtaskPlan()}}
	coder := newScriptedCoder()
	coder.outcomes["S1"] = []coderStep{{outcome: session.OutcomeCompleted, completes: true, dir: dir}}
	coder.outcomes["S2"] = []coderStep{{outcome: session.OutcomeError}, {outcome: session.OutcomeError}}

	orch := build.New(build.Options{
		Dir:     dir,
		Planner: planner,
		Coder:   coder,
		QALoop:  passingQAReviewer(dir),
		Policy:  build.Policy{MaxRetries: 2},
	})

	outcome := orch.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Equal(t, build.OutcomeSuccess, outcome.Kind)
	assert.Contains(t, outcome.StuckSubtasks, "S2")
	require.NotNil(t, outcome.QAOutcome)
	assert.Equal(t, 1, outcome.QAOutcome.TotalIterations)
}

func TestOrchestratorResumesFromExistingPlanFileWithoutInvokingPlanner(t *testing.T) {
	dir := specdir.New(t.TempDir())
	require.NoError(t, plan.Save(dir.ImplementationPlanPath(), plan.ImplementationPlan{
		Phases: []plan.Phase{{Name: "only", Subtasks: []plan.Subtask{{ID: "S1", Status: plan.StatusCompleted}}}},
	}))
	planner := &scriptedPlanner{dir: dir}
	coder := newScriptedCoder()

	orch := build.New(build.Options{Dir: dir, Planner: planner, Coder: coder, QALoop: passingQAReviewer(dir)})
	outcome := orch.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Zero(t, planner.calls)
}

func TestOrchestratorResumesFromExistingEmptyPlanReportsSuccessWithZeroSubtasks(t *testing.T) {
	dir := specdir.New(t.TempDir())
	require.NoError(t, plan.Save(dir.ImplementationPlanPath(), plan.ImplementationPlan{
		Phases: []plan.Phase{{Name: "only"}},
	}))
	planner := &scriptedPlanner{dir: dir}
	coder := newScriptedCoder()

	orch := build.New(build.Options{Dir: dir, Planner: planner, Coder: coder, QALoop: passingQAReviewer(dir)})
	outcome := orch.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Empty(t, outcome.StuckSubtasks)
}

func TestOrchestratorReportsCancelledWithoutMutatingPlanFurther(t *testing.T) {
	dir := specdir.New(t.TempDir())
	planner := &scriptedPlanner{dir: dir, writes: []plan.ImplementationPlan{twoSubtaskPlan()}}
	coder := newScriptedCoder()
	coder.outcomes["S1"] = []coderStep{{outcome: session.OutcomeCancelled}}

	orch := build.New(build.Options{Dir: dir, Planner: planner, Coder: coder, QALoop: passingQAReviewer(dir)})
	outcome := orch.Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, build.OutcomeCancelled, outcome.Kind)
	assert.Error(t, outcome.Error)
}

func TestOrchestratorReturnsRateLimitedForCallerBackoffWithoutRunningQA(t *testing.T) {
	dir := specdir.New(t.TempDir())
	planner := &scriptedPlanner{dir: dir, writes: []plan.ImplementationPlan{twoSubtaskPlan()}}
	coder := newScriptedCoder()
	coder.outcomes["S1"] = []coderStep{{outcome: session.OutcomeRateLimited}}

	orch := build.New(build.Options{Dir: dir, Planner: planner, Coder: coder, QALoop: passingQAReviewer(dir)})
	outcome := orch.Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, build.OutcomeRateLimited, outcome.Kind)
	assert.Nil(t, outcome.QAOutcome)
}
