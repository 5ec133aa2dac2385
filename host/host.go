// Package host wires the orchestration core's narrow runner interfaces
// (build.PlannerRunner, build.CoderRunner, qa.SessionRunner,
// specpipeline.SessionRunner) to the Worker Bridge: every call spawns
// exactly one session through worker.Bridge.Spawn, drains its event
// channel, and waits for the terminal session.Result, matching
// worker.Bridge's own documented spawn-then-drain contract.
package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/qa"
	"github.com/devagent/orchestrator/run"
	"github.com/devagent/orchestrator/security"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/specpipeline"
	"github.com/devagent/orchestrator/telemetry"
	"github.com/devagent/orchestrator/toolregistry"
	"github.com/devagent/orchestrator/worker"
)

// ModelResolver constructs the model.Client a role's session should use.
// Implementations typically branch on the role's default thinking level to
// pick a provider and model tier; credentials are resolved inside
// NewClient, never passed through Host itself.
type ModelResolver interface {
	NewClient(ctx context.Context, role toolregistry.AgentRole) (model.Client, error)
}

// Host holds the shared wiring every spawned session needs: the bridge that
// isolates it, the registry that binds its tools, the spec directory and
// project working directory it operates against, and the security profile
// gating its Bash calls.
type Host struct {
	Bridge     *worker.Bridge
	Registry   *toolregistry.Registry
	Models     ModelResolver
	Dir        specdir.Dir
	ProjectDir string
	Security   security.Profile

	ProjectKind toolregistry.ProjectKind
	Store       run.Store
	Logger      telemetry.Logger

	MaxSteps               int
	MaxToolCalls           int
	MaxConsecutiveFailures int

	// OnEvent, if set, receives every StreamEvent emitted by a spawned
	// session, across every role — a single hook point for a CLI progress
	// renderer or a telemetry sink that wants the raw stream.
	OnEvent func(session.StreamEvent)
}

func (h *Host) logger() telemetry.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return telemetry.NewNoopLogger()
}

// runSession spawns one session for role/phase/subtask and blocks until its
// terminal result is available.
func (h *Host) runSession(ctx context.Context, role toolregistry.AgentRole, phase, subtask string, attempt int, systemPrompt, userPrompt string) (session.Result, error) {
	runID := fmt.Sprintf("%s-%s-%d-%s", phase, subtask, attempt, uuid.NewString())
	agentID := string(role)

	toolCtx := toolregistry.ToolContext{
		Cwd:             h.ProjectDir,
		ProjectDir:      h.ProjectDir,
		SpecDir:         h.Dir.Root(),
		SecurityProfile: h.Security,
		ProjectKind:     h.ProjectKind,
		CancelSignal:    ctx,
	}
	tools := h.Registry.ToolsForAgent(ctx, toolregistry.Request{
		RunID: runID, AgentID: agentID, Role: role, Context: toolCtx,
	})

	cfg := session.Config{
		RunID:        runID,
		AgentID:      agentID,
		Role:         role,
		Phase:        phase,
		Subtask:      subtask,
		ModelClass:   modelClassForRole(role),
		SystemPrompt: systemPrompt,
		Messages: []*model.Message{{
			Role:  model.ConversationRoleUser,
			Parts: []model.Part{model.TextPart{Text: userPrompt}},
		}},
		Tools:                  tools,
		ToolContext:            toolCtx,
		MaxSteps:               h.MaxSteps,
		MaxToolCalls:           h.MaxToolCalls,
		MaxConsecutiveFailures: h.MaxConsecutiveFailures,
		ThinkingLevel:          thinkingLevelForRole(role),
	}

	handle, err := h.Bridge.Spawn(ctx, worker.ExecutorConfig{
		RunID:         runID,
		AgentID:       agentID,
		SessionConfig: cfg,
		NewClient:     func(ctx context.Context) (model.Client, error) { return h.Models.NewClient(ctx, role) },
		Store:         h.Store,
	})
	if err != nil {
		return session.Result{}, err
	}

	for msg := range handle.Events() {
		if msg.Type == worker.MessageStreamEvent && msg.StreamEvent != nil && h.OnEvent != nil {
			h.OnEvent(*msg.StreamEvent)
		}
	}

	result, ok := handle.Result()
	if !ok {
		return session.Result{}, agenterrors.New(agenterrors.KindWorkerCrash, "host: worker closed its event channel without producing a result")
	}
	if result.Outcome != session.OutcomeCompleted {
		h.logger().Warn(ctx, "host: session ended without completing", "role", string(role), "phase", phase, "subtask", subtask, "outcome", string(result.Outcome))
	}
	return result, nil
}

func requireCompleted(result session.Result) error {
	switch result.Outcome {
	case session.OutcomeCompleted, session.OutcomeMaxSteps:
		return nil
	default:
		if result.Error != nil {
			return result.Error
		}
		return agenterrors.Errorf(agenterrors.KindTransient, "host: session ended with outcome %s", result.Outcome)
	}
}

// RunPlanner implements build.PlannerRunner.
func (h *Host) RunPlanner(ctx context.Context, attempt int) error {
	result, err := h.runSession(ctx, toolregistry.RolePlanner, "planning", "", attempt, plannerSystemPrompt, plannerUserPrompt(h.Dir))
	if err != nil {
		return err
	}
	return requireCompleted(result)
}

// RunCoder implements build.CoderRunner.
func (h *Host) RunCoder(ctx context.Context, subtaskID string, attempt int) (session.Outcome, error) {
	result, err := h.runSession(ctx, toolregistry.RoleCoder, "coding", subtaskID, attempt, coderSystemPrompt, coderUserPrompt(h.Dir, subtaskID))
	if err != nil {
		return session.OutcomeError, err
	}
	return result.Outcome, nil
}

// RunReviewer implements qa.SessionRunner.
func (h *Host) RunReviewer(ctx context.Context, iteration int) error {
	result, err := h.runSession(ctx, toolregistry.RoleQAReviewer, "qa_review", "", iteration, qaReviewerSystemPrompt, qaReviewerUserPrompt(h.Dir))
	if err != nil {
		return err
	}
	return requireCompleted(result)
}

// RunFixer implements qa.SessionRunner.
func (h *Host) RunFixer(ctx context.Context, iteration int, report specdir.QAReport) error {
	result, err := h.runSession(ctx, toolregistry.RoleQAFixer, "qa_fix", "", iteration, qaFixerSystemPrompt, qaFixerUserPrompt(h.Dir, report))
	if err != nil {
		return err
	}
	return requireCompleted(result)
}

// RunPhase implements specpipeline.SessionRunner.
func (h *Host) RunPhase(ctx context.Context, phase specpipeline.Phase, attempt int) (session.Outcome, error) {
	role, ok := roleForPhase[phase]
	if !ok {
		return session.OutcomeError, agenterrors.Errorf(agenterrors.KindValidation, "host: no agent role mapped for phase %s", phase)
	}
	result, err := h.runSession(ctx, role, string(phase), "", attempt, specPhaseSystemPrompt(phase), specPhaseUserPrompt(h.Dir, phase))
	if err != nil {
		return session.OutcomeError, err
	}
	return result.Outcome, nil
}

var _ qa.SessionRunner = (*Host)(nil)
var _ specpipeline.SessionRunner = (*Host)(nil)

// roleForPhase maps each Spec Orchestrator phase to the agent role that
// runs it. PhaseComplexityAssessment deliberately reuses the requirements
// phase's spec_gatherer role: that session is the one expected to emit
// complexity_assessment.json, per specpipeline.SessionRunner's own contract.
var roleForPhase = map[specpipeline.Phase]toolregistry.AgentRole{
	specpipeline.PhaseDiscovery:            toolregistry.RoleSpecDiscovery,
	specpipeline.PhaseRequirements:         toolregistry.RoleSpecGatherer,
	specpipeline.PhaseComplexityAssessment: toolregistry.RoleSpecGatherer,
	specpipeline.PhaseQuickSpec:            toolregistry.RoleSpecWriter,
	specpipeline.PhaseResearch:             toolregistry.RoleSpecResearcher,
	specpipeline.PhaseContext:              toolregistry.RoleSpecContext,
	specpipeline.PhaseSpecWriting:          toolregistry.RoleSpecWriter,
	specpipeline.PhaseSelfCritique:         toolregistry.RoleSpecCritic,
	specpipeline.PhasePlanning:             toolregistry.RolePlanner,
	specpipeline.PhaseValidation:           toolregistry.RoleSpecValidation,
}

// modelClassForRole picks the reasoning tier spec.md's phase descriptions
// imply: the planner, coder, QA fixer, spec writer, spec researcher and spec
// critic get the high-reasoning model; every other role (QA reviewer, spec
// gatherer, discovery, context and validation) gets the default tier.
func modelClassForRole(role toolregistry.AgentRole) model.ModelClass {
	switch role {
	case toolregistry.RolePlanner, toolregistry.RoleCoder, toolregistry.RoleQAFixer,
		toolregistry.RoleSpecWriter, toolregistry.RoleSpecResearcher, toolregistry.RoleSpecCritic:
		return model.ModelClassHighReasoning
	default:
		return model.ModelClassDefault
	}
}

// thinkingLevelForRole defers to the same default role table the registry
// itself falls back to, so a host that never customizes RoleTable gets the
// thinking budget spec.md's role descriptions imply without the two tables
// drifting apart.
func thinkingLevelForRole(role toolregistry.AgentRole) toolregistry.ThinkingLevel {
	if row, ok := toolregistry.DefaultRoleTable()[role]; ok {
		return row.DefaultThinkingLevel
	}
	return toolregistry.ThinkingMedium
}
