// Package temporal adapts a single session.Runner invocation to Temporal as
// a durable alternative to worker.Bridge's in-process goroutine isolation.
// Where Bridge trades durability for simplicity (a crashed host loses every
// in-flight worker), this engine lets a host resume a session's retry
// bookkeeping across process restarts by handing it to a Temporal workflow.
//
// The workflow/activity boundary only carries the session's scalar
// identifiers and a flattened prompt string, not the full model.Message
// part union: Temporal's data converter round-trips every argument through
// JSON, and model.Part is a marker interface with no custom (un)marshaling,
// so a multi-part conversation history cannot survive that boundary intact.
// A session run through this engine is therefore a single durable
// prompt-in, summary-out unit of work, not a multi-turn tool loop spanning
// separate workflow/activity invocations.
package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/security"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/telemetry"
	"github.com/devagent/orchestrator/toolregistry"
)

// WorkflowName and ActivityName identify the registrations this engine
// installs on the Temporal worker it manages.
const (
	WorkflowName = "devagent.RunSession"
	ActivityName = "devagent.RunSessionActivity"
)

// Options configures an Engine.
type Options struct {
	// Client is a pre-configured Temporal client; required.
	Client client.Client
	// TaskQueue is the queue this engine's worker polls and the queue
	// StartSession schedules workflow executions on.
	TaskQueue string
	// Registry resolves the tools bound to each session's role and
	// ToolContext, exactly as worker.ExecutorConfig does for the in-process
	// bridge.
	Registry *toolregistry.Registry
	// NewClient constructs the model.Client used by the activity. Called
	// inside the activity, not the workflow, so credentials never cross the
	// workflow's durable history.
	NewClient func(ctx context.Context) (model.Client, error)
	Logger    telemetry.Logger
	// ActivityTimeout bounds a single activity attempt. Zero means 10
	// minutes.
	ActivityTimeout time.Duration
}

// Engine manages the Temporal worker and workflow/activity registration for
// running sessions durably.
type Engine struct {
	client     client.Client
	taskQueue  string
	registry   *toolregistry.Registry
	newClient  func(ctx context.Context) (model.Client, error)
	logger     telemetry.Logger
	actTimeout time.Duration

	w         worker.Worker
	startOnce sync.Once
}

// New constructs an Engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("temporal engine: Client is required")
	}
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal engine: TaskQueue is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("temporal engine: Registry is required")
	}
	if opts.NewClient == nil {
		return nil, fmt.Errorf("temporal engine: NewClient is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	actTimeout := opts.ActivityTimeout
	if actTimeout <= 0 {
		actTimeout = 10 * time.Minute
	}

	e := &Engine{
		client:     opts.Client,
		taskQueue:  opts.TaskQueue,
		registry:   opts.Registry,
		newClient:  opts.NewClient,
		logger:     logger,
		actTimeout: actTimeout,
	}

	w := worker.New(opts.Client, opts.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(RunSessionWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(e.runSessionActivity, activity.RegisterOptions{Name: ActivityName})
	e.w = w

	return e, nil
}

// Start launches the Temporal worker in the background. Call Stop during
// shutdown to drain in-flight activities.
func (e *Engine) Start() error {
	var startErr error
	e.startOnce.Do(func() {
		go func() {
			if err := e.w.Run(worker.InterruptCh()); err != nil {
				e.logger.Error(context.Background(), "temporal session worker exited", "task_queue", e.taskQueue, "err", err)
			}
		}()
	})
	return startErr
}

// Stop gracefully stops the worker.
func (e *Engine) Stop() {
	e.w.Stop()
}

// StartSession schedules req as a new durable workflow execution and
// returns its run handle without waiting for completion. A zero
// req.ActivityTimeout is filled in from the Engine's configured default
// before scheduling, since the workflow itself has no access to Engine
// state.
func (e *Engine) StartSession(ctx context.Context, req SessionRequest) (client.WorkflowRun, error) {
	if req.ActivityTimeout <= 0 {
		req.ActivityTimeout = e.actTimeout
	}
	opts := client.StartWorkflowOptions{
		ID:        "devagent-session-" + req.RunID,
		TaskQueue: e.taskQueue,
	}
	return e.client.ExecuteWorkflow(ctx, opts, WorkflowName, req)
}

// RunSessionWorkflow is the durable entry point: it delegates to the
// RunSession activity with a retry policy derived from the structured error
// taxonomy (validation, auth, worker-crash and cancelled failures are never
// retried; everything else is retried with Temporal's default backoff up to
// five attempts).
func RunSessionWorkflow(ctx workflow.Context, req SessionRequest) (SessionResponse, error) {
	timeout := req.ActivityTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{string(agenterrors.KindValidation), string(agenterrors.KindAuth), string(agenterrors.KindWorkerCrash), string(agenterrors.KindCancelled)},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var resp SessionResponse
	err := workflow.ExecuteActivity(ctx, ActivityName, req).Get(ctx, &resp)
	if err != nil {
		return SessionResponse{}, err
	}
	return resp, nil
}

// runSessionActivity rebuilds a session.Config from req inside the worker
// process — where the Engine's Registry and NewClient live — runs it to
// completion, and flattens the result to a SessionResponse. A session
// failure is converted to a temporal.ApplicationError carrying the
// structured Kind as its type and non-retryable flag, so the workflow's
// RetryPolicy can branch on it without parsing an error string.
func (e *Engine) runSessionActivity(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	treq := toolregistry.Request{
		RunID:   req.RunID,
		AgentID: req.AgentID,
		Role:    toolregistry.AgentRole(req.Role),
		Context: toolregistry.ToolContext{
			Cwd:             req.Cwd,
			ProjectDir:      req.ProjectDir,
			SpecDir:         req.SpecDir,
			SecurityProfile: security.UnmarshalLists(req.SecurityBase, req.SecurityStack, req.SecurityScript, req.SecurityCustom, req.SecurityScriptNames),
			ProjectKind:     toolregistry.ProjectKind(req.ProjectKind),
			CancelSignal:    ctx,
		},
	}
	tools := e.registry.ToolsForAgent(ctx, treq)

	modelClient, err := e.newClient(ctx)
	if err != nil {
		return SessionResponse{}, temporal.NewApplicationErrorWithOptions(
			"construct model client: "+err.Error(), string(agenterrors.KindTransient),
			temporal.ApplicationErrorOptions{NonRetryable: false})
	}

	cfg := session.Config{
		RunID:        req.RunID,
		AgentID:      req.AgentID,
		Role:         treq.Role,
		Phase:        req.Phase,
		Subtask:      req.Subtask,
		Model:        req.Model,
		ModelClass:   model.ModelClass(req.ModelClass),
		SystemPrompt: req.SystemPrompt,
		Messages: []*model.Message{{
			Role:  model.ConversationRoleUser,
			Parts: []model.Part{model.TextPart{Text: req.Prompt}},
		}},
		Tools:                  tools,
		ToolContext:            treq.Context,
		MaxSteps:               req.MaxSteps,
		MaxToolCalls:           req.MaxToolCalls,
		MaxConsecutiveFailures: req.MaxConsecutiveFailures,
		ThinkingLevel:          toolregistry.ThinkingLevel(req.ThinkingLevel),
		Labels:                 req.Labels,
	}

	runner := session.New(session.Options{Logger: e.logger})
	result, runErr := runner.Run(ctx, modelClient, cfg, session.Callbacks{})
	if runErr != nil {
		structured := agenterrors.FromError(runErr)
		return SessionResponse{}, temporal.NewApplicationErrorWithOptions(
			structured.Error(), string(structured.Kind),
			temporal.ApplicationErrorOptions{NonRetryable: !structured.Retryable()})
	}

	return toSessionResponse(result), nil
}

func toSessionResponse(result session.Result) SessionResponse {
	resp := SessionResponse{
		Outcome:       string(result.Outcome),
		InputTokens:   result.Usage.InputTokens,
		OutputTokens:  result.Usage.OutputTokens,
		TotalTokens:   result.Usage.TotalTokens,
		StepsExecuted: result.StepsExecuted,
		ToolCallCount: result.ToolCallCount,
		DurationMs:    result.DurationMs,
	}
	if result.Error != nil {
		resp.ErrorKind = string(result.Error.Kind)
		resp.ErrorMessage = result.Error.Message
	}
	if len(result.Messages) > 0 {
		resp.FinalText = finalText(result.Messages[len(result.Messages)-1])
	}
	return resp
}

func finalText(msg *model.Message) string {
	if msg == nil {
		return ""
	}
	var text string
	for _, part := range msg.Parts {
		if tp, ok := part.(model.TextPart); ok {
			text += tp.Text
		}
	}
	return text
}
