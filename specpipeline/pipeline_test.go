package specpipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/specpipeline"
)

type scriptedRunner struct {
	outcomes map[specpipeline.Phase][]session.Outcome
	errs     map[specpipeline.Phase][]error
	calls    map[specpipeline.Phase]int
	dir      specdir.Dir
	onAssess func()
}

func newScriptedRunner(dir specdir.Dir) *scriptedRunner {
	return &scriptedRunner{
		outcomes: make(map[specpipeline.Phase][]session.Outcome),
		errs:     make(map[specpipeline.Phase][]error),
		calls:    make(map[specpipeline.Phase]int),
		dir:      dir,
	}
}

func (r *scriptedRunner) RunPhase(ctx context.Context, phase specpipeline.Phase, attempt int) (session.Outcome, error) {
	r.calls[phase]++
	idx := r.calls[phase] - 1

	if phase == specpipeline.PhaseComplexityAssessment && r.onAssess != nil {
		r.onAssess()
	}

	if errs := r.errs[phase]; idx < len(errs) && errs[idx] != nil {
		return "", errs[idx]
	}
	outcomes := r.outcomes[phase]
	if idx < len(outcomes) {
		return outcomes[idx], nil
	}
	return session.OutcomeCompleted, nil
}

func writeAssessment(t *testing.T, dir specdir.Dir, c specdir.Complexity, needsResearch, needsSelfCritique bool) {
	t.Helper()
	require.NoError(t, specdir.WriteComplexityAssessment(dir, specdir.ComplexityAssessmentData{
		Complexity:        c,
		Confidence:        0.9,
		NeedsResearch:     needsResearch,
		NeedsSelfCritique: needsSelfCritique,
	}))
}

func TestPipelineSimpleHappyPath(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	runner.onAssess = func() { writeAssessment(t, dir, specdir.ComplexitySimple, false, false) }

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner})
	outcome := pipe.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Equal(t, specdir.ComplexitySimple, outcome.Complexity)
	assert.Equal(t, []specpipeline.Phase{
		specpipeline.PhaseDiscovery,
		specpipeline.PhaseRequirements,
		specpipeline.PhaseComplexityAssessment,
		specpipeline.PhaseQuickSpec,
		specpipeline.PhaseValidation,
	}, outcome.PhasesExecuted)
}

func TestPipelineStandardWithResearchFlagInsertsResearchBeforeContext(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	runner.onAssess = func() { writeAssessment(t, dir, specdir.ComplexityStandard, true, false) }

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner})
	outcome := pipe.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Equal(t, []specpipeline.Phase{
		specpipeline.PhaseDiscovery,
		specpipeline.PhaseRequirements,
		specpipeline.PhaseComplexityAssessment,
		specpipeline.PhaseResearch,
		specpipeline.PhaseContext,
		specpipeline.PhaseSpecWriting,
		specpipeline.PhasePlanning,
		specpipeline.PhaseValidation,
	}, outcome.PhasesExecuted)
}

func TestPipelineComplexRunsFullTable(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	runner.onAssess = func() { writeAssessment(t, dir, specdir.ComplexityComplex, false, false) }

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner})
	outcome := pipe.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Equal(t, []specpipeline.Phase{
		specpipeline.PhaseDiscovery,
		specpipeline.PhaseRequirements,
		specpipeline.PhaseComplexityAssessment,
		specpipeline.PhaseResearch,
		specpipeline.PhaseContext,
		specpipeline.PhaseSpecWriting,
		specpipeline.PhaseSelfCritique,
		specpipeline.PhasePlanning,
		specpipeline.PhaseValidation,
	}, outcome.PhasesExecuted)
}

func TestPipelineDefaultsToStandardWhenAssessmentMissing(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	// onAssess intentionally nil: no complexity_assessment.json is ever written.

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner})
	outcome := pipe.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Equal(t, specdir.ComplexityStandard, outcome.Complexity)
	assert.Contains(t, outcome.PhasesExecuted, specpipeline.PhaseContext)
	assert.Contains(t, outcome.PhasesExecuted, specpipeline.PhaseSpecWriting)
}

func TestPipelineRetriesFailedPhaseThenSucceeds(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	runner.outcomes[specpipeline.PhaseDiscovery] = []session.Outcome{session.OutcomeError, session.OutcomeCompleted}
	runner.onAssess = func() { writeAssessment(t, dir, specdir.ComplexitySimple, false, false) }

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner, Policy: specpipeline.Policy{MaxPhaseRetries: 2}})
	outcome := pipe.Run(context.Background())

	require.True(t, outcome.Success)
	assert.Equal(t, 2, runner.calls[specpipeline.PhaseDiscovery])
}

func TestPipelineAuthFailureIsNonRetryable(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	runner.outcomes[specpipeline.PhaseRequirements] = []session.Outcome{session.OutcomeAuthFailure}

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner, Policy: specpipeline.Policy{MaxPhaseRetries: 2}})
	outcome := pipe.Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, specpipeline.OutcomeAuthFailure, outcome.Kind)
	assert.Equal(t, 1, runner.calls[specpipeline.PhaseRequirements])
}

func TestPipelineCancelledOutcomeAbortsPipeline(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	runner.outcomes[specpipeline.PhaseDiscovery] = []session.Outcome{session.OutcomeCancelled}

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner})
	outcome := pipe.Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, specpipeline.OutcomeCancelled, outcome.Kind)
}

func TestPipelineExhaustsRetriesAndFails(t *testing.T) {
	dir := specdir.New(t.TempDir())
	runner := newScriptedRunner(dir)
	runner.outcomes[specpipeline.PhaseDiscovery] = []session.Outcome{
		session.OutcomeError, session.OutcomeError, session.OutcomeError,
	}

	pipe := specpipeline.New(specpipeline.Options{Dir: dir, Runner: runner, Policy: specpipeline.Policy{MaxPhaseRetries: 2}})
	outcome := pipe.Run(context.Background())

	assert.False(t, outcome.Success)
	assert.Equal(t, specpipeline.OutcomeFailed, outcome.Kind)
	assert.Equal(t, 3, runner.calls[specpipeline.PhaseDiscovery])
	assert.Empty(t, outcome.PhasesExecuted)
}
