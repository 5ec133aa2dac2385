package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/hooks"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/policy"
	"github.com/devagent/orchestrator/telemetry"
	"github.com/devagent/orchestrator/tools"
	"github.com/devagent/orchestrator/toolregistry"
)

// Options configures a Runner.
type Options struct {
	// Policy decides which tools remain available each turn and tracks
	// cap bookkeeping. Defaults to policy.New(policy.Options{}).
	Policy policy.Engine
	// Bus receives internal lifecycle events (RunStarted, ToolCallScheduled,
	// PolicyDecision, ...). Optional; a nil Bus means events are only
	// delivered through Callbacks.OnEvent.
	Bus    hooks.Bus
	Logger telemetry.Logger
}

// Runner drives the prompt → stream → tool-call loop for one session
// invocation against an injected model.Client.
type Runner struct {
	policy policy.Engine
	bus    hooks.Bus
	logger telemetry.Logger
}

// New constructs a Runner from opts.
func New(opts Options) *Runner {
	pol := opts.Policy
	if pol == nil {
		pol = policy.New(policy.Options{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Runner{policy: pol, bus: opts.Bus, logger: logger}
}

// Run executes cfg's conversation against client until a terminal outcome
// is reached. Exactly one terminal event (the returned Result, plus a
// RunCompleted hook event) is produced per call; the step counter never
// exceeds cfg.MaxSteps.
func (r *Runner) Run(ctx context.Context, client model.Client, cfg Config, cb Callbacks) (Result, error) {
	start := time.Now()
	tracker := NewProgressTracker(cfg.Phase, cfg.Subtask)
	messages := append([]*model.Message{}, cfg.Messages...)
	toolIndex := indexTools(cfg.Tools)

	caps := policy.CapsState{
		MaxToolCalls:                 cfg.MaxToolCalls,
		ToolCallsRemaining:           cfg.MaxToolCalls,
		MaxConsecutiveFailures:       cfg.MaxConsecutiveFailures,
		ConsecutiveFailuresRemaining: cfg.MaxConsecutiveFailures,
	}

	emit := func(ev StreamEvent) {
		if cb.OnEvent == nil {
			return
		}
		ev.RunID = cfg.RunID
		ev.AgentID = cfg.AgentID
		cb.OnEvent(ev)
	}
	publish := func(ev hooks.Event) {
		if r.bus == nil {
			return
		}
		if err := r.bus.Publish(ctx, ev); err != nil {
			r.logger.Warn(ctx, "session: hook publish failed", "run_id", cfg.RunID, "error", err.Error())
		}
	}
	emitProgress := func() {
		if snapshot := tracker.Drain(); snapshot != nil {
			emit(StreamEvent{Type: StreamEventProgress, Progress: snapshot})
		}
	}

	publish(hooks.NewRunStartedEvent(cfg.RunID, cfg.AgentID, cfg.Phase, cfg.Subtask))

	finish := func(outcome Outcome, steps, toolCalls int, usage model.TokenUsage, errOut *agenterrors.Error) (Result, error) {
		publish(hooks.NewRunCompletedEvent(cfg.RunID, cfg.AgentID, string(outcome), errOut))
		return Result{
			Outcome:       outcome,
			Messages:      messages,
			Usage:         usage,
			StepsExecuted: steps,
			ToolCallCount: toolCalls,
			DurationMs:    time.Since(start).Milliseconds(),
			Error:         errOut,
		}, nil
	}

	var usage model.TokenUsage
	var toolCallCount int
	authRefreshed := false
	step := 0

	for {
		if ctx.Err() != nil {
			return finish(OutcomeCancelled, step, toolCallCount, usage, nil)
		}
		if cfg.MaxSteps > 0 && step >= cfg.MaxSteps {
			return finish(OutcomeMaxSteps, step, toolCallCount, usage, nil)
		}
		step++

		req := &model.Request{
			RunID:      cfg.RunID,
			Model:      cfg.Model,
			ModelClass: cfg.ModelClass,
			Messages:   buildRequestMessages(cfg.SystemPrompt, messages),
			Tools:      toolDefinitions(cfg.Tools),
			Stream:     true,
		}

		streamer, err := client.Stream(ctx, req)
		if err == nil {
			var out stepOutput
			out, err = consumeStream(ctx, streamer, emit, &usage)
			_ = streamer.Close()
			if err == nil {
				var terminal Outcome
				var terminalErr *agenterrors.Error
				terminal, terminalErr, toolCallCount = r.advanceStep(ctx, cfg, out, tracker, toolIndex, &messages, &caps, emit, publish, emitProgress, step, toolCallCount)
				if terminal != "" {
					return finish(terminal, step, toolCallCount, usage, terminalErr)
				}
				continue
			}
		}

		outcome, classified, refreshed := r.classifyAndMaybeRefresh(ctx, err, &authRefreshed, cb, &client)
		if refreshed {
			step--
			continue
		}
		emit(StreamEvent{Type: StreamEventError, Step: step, Err: classified})
		return finish(outcome, step, toolCallCount, usage, classified)
	}
}

// stepOutput captures everything consumed from one streaming model call.
type stepOutput struct {
	text          string
	thinkingNotes []string
	toolCalls     []model.ToolCall
}

// advanceStep applies one consumed step to the running conversation: it
// records the assistant text and planner notes, then — if the model
// requested tool calls — runs policy, executes the allowed calls, and
// appends the resulting messages. It returns a non-empty terminal Outcome
// when the step ends the run (a final response with no tool calls, or a
// policy/cap failure); an empty Outcome means the loop should continue.
func (r *Runner) advanceStep(
	ctx context.Context,
	cfg Config,
	out stepOutput,
	tracker *ProgressTracker,
	toolIndex map[tools.Ident]toolregistry.BoundTool,
	messages *[]*model.Message,
	caps *policy.CapsState,
	emit func(StreamEvent),
	publish func(hooks.Event),
	emitProgress func(),
	step, toolCallCount int,
) (Outcome, *agenterrors.Error, int) {
	if out.text != "" {
		*messages = append(*messages, &model.Message{
			Role:  model.ConversationRoleAssistant,
			Parts: []model.Part{model.TextPart{Text: out.text}},
		})
		publish(hooks.NewAssistantMessageEvent(cfg.RunID, cfg.AgentID, out.text))
		tracker.ObserveMessage(out.text)
	}
	for _, note := range out.thinkingNotes {
		publish(hooks.NewPlannerNoteEvent(cfg.RunID, cfg.AgentID, note, nil))
	}
	emit(StreamEvent{Type: StreamEventStepFinish, Step: step})
	emitProgress()

	if len(out.toolCalls) == 0 {
		if out.text == "" {
			return OutcomeError, agenterrors.New(agenterrors.KindTransient, "model returned neither tool calls nor a final response"), toolCallCount
		}
		return OutcomeCompleted, nil, toolCallCount
	}

	decision, err := r.policy.Decide(ctx, policy.Input{
		RunID:         cfg.RunID,
		AgentID:       cfg.AgentID,
		Tools:         toolMetadataFor(cfg.Tools),
		RemainingCaps: *caps,
		Requested:     toolIdents(out.toolCalls),
		Labels:        cfg.Labels,
	})
	if err != nil {
		return OutcomeError, agenterrors.Wrap(agenterrors.KindTransient, "policy decision failed", err), toolCallCount
	}
	*caps = decision.Caps
	publish(hooks.NewPolicyDecisionEvent(cfg.RunID, cfg.AgentID, identsToStrings(decision.AllowedTools), decision.Caps, decision.Labels))

	if decision.DisableTools {
		return OutcomeError, agenterrors.New(agenterrors.KindTransient, "tool execution disabled by policy"), toolCallCount
	}

	allowed := filterToolCalls(out.toolCalls, decision.AllowedTools)
	if len(allowed) == 0 {
		return OutcomeError, agenterrors.New(agenterrors.KindTransient, "no tools allowed for execution"), toolCallCount
	}

	*messages = append(*messages, &model.Message{Role: model.ConversationRoleAssistant, Parts: toolUseParts(allowed)})

	resultParts := make([]model.Part, 0, len(allowed))
	for _, call := range allowed {
		toolCallCount++
		publish(hooks.NewToolCallScheduledEvent(cfg.RunID, cfg.AgentID, call.ID, string(call.Name), call.Payload))
		emit(StreamEvent{Type: StreamEventToolCall, Step: step, ToolCall: &call, ToolName: string(call.Name), ToolCallID: call.ID})
		tracker.ObserveToolCall(string(call.Name), call.Payload)

		callStart := time.Now()
		resultPayload, callErr := executeTool(ctx, toolIndex, call)
		duration := time.Since(callStart)

		failed := callErr != nil
		var structuredErr *agenterrors.Error
		var decoded any
		if failed {
			structuredErr = agenterrors.FromError(callErr)
			decoded = map[string]any{"error": structuredErr.Error()}
		} else {
			decoded = decodeToolResult(resultPayload)
		}
		*caps = policy.DecrementToolCall(*caps, failed)

		publish(hooks.NewToolResultReceivedEvent(cfg.RunID, cfg.AgentID, string(call.Name), decoded, duration, nil, structuredErr))
		emit(StreamEvent{Type: StreamEventToolResult, Step: step, ToolName: string(call.Name), ToolCallID: call.ID, Result: decoded, Err: structuredErr})
		emitProgress()

		resultParts = append(resultParts, model.ToolResultPart{ToolUseID: call.ID, Content: decoded, IsError: failed})

		if caps.MaxConsecutiveFailures > 0 && caps.ConsecutiveFailuresRemaining <= 0 {
			*messages = append(*messages, &model.Message{Role: model.ConversationRoleUser, Parts: resultParts})
			return OutcomeError, agenterrors.New(agenterrors.KindTransient, "consecutive failed tool call cap exceeded"), toolCallCount
		}
	}
	*messages = append(*messages, &model.Message{Role: model.ConversationRoleUser, Parts: resultParts})
	return "", nil, toolCallCount
}

// classifyAndMaybeRefresh classifies a model call/stream error into a
// terminal Outcome, attempting a one-shot auth refresh first when the
// failure looks like an expired token and both refresh callbacks are
// configured. A true refreshed return means the caller should retry the
// same step with the replaced *client.
func (r *Runner) classifyAndMaybeRefresh(ctx context.Context, err error, authRefreshed *bool, cb Callbacks, client *model.Client) (Outcome, *agenterrors.Error, bool) {
	if ctx.Err() != nil {
		return OutcomeCancelled, nil, false
	}
	if stderrors.Is(err, model.ErrRateLimited) {
		return OutcomeRateLimited, agenterrors.Wrap(agenterrors.KindTransient, "model call rate limited", err).WithRetryable(true), false
	}
	structured := agenterrors.FromError(err)
	if structured.Kind != agenterrors.KindAuth {
		return OutcomeError, structured, false
	}
	if *authRefreshed || cb.OnAuthRefresh == nil || cb.OnModelRefresh == nil {
		return OutcomeAuthFailure, structured, false
	}
	*authRefreshed = true
	token, refreshErr := cb.OnAuthRefresh(ctx)
	if refreshErr != nil {
		return OutcomeAuthFailure, structured, false
	}
	newClient, refreshErr := cb.OnModelRefresh(ctx, token)
	if refreshErr != nil {
		return OutcomeAuthFailure, structured, false
	}
	*client = newClient
	return "", nil, true
}

// consumeStream drains streamer until io.EOF, forwarding every chunk as a
// StreamEvent and accumulating usage.
func consumeStream(ctx context.Context, streamer model.Streamer, emit func(StreamEvent), usage *model.TokenUsage) (stepOutput, error) {
	var out stepOutput
	var text strings.Builder
	for {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		chunk, err := streamer.Recv()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		switch chunk.Type {
		case model.ChunkTypeText:
			delta := textFromMessage(chunk.Message)
			text.WriteString(delta)
			emit(StreamEvent{Type: StreamEventTextDelta, Text: delta})
		case model.ChunkTypeThinking:
			out.thinkingNotes = append(out.thinkingNotes, chunk.Thinking)
			emit(StreamEvent{Type: StreamEventThinkingDelta, Text: chunk.Thinking})
		case model.ChunkTypeToolCall:
			if chunk.ToolCall != nil {
				out.toolCalls = append(out.toolCalls, *chunk.ToolCall)
			}
		case model.ChunkTypeToolCallDelta:
			if chunk.ToolCallDelta != nil {
				emit(StreamEvent{
					Type:       StreamEventToolCall,
					ToolName:   string(chunk.ToolCallDelta.Name),
					ToolCallID: chunk.ToolCallDelta.ID,
					Text:       chunk.ToolCallDelta.Delta,
				})
			}
		case model.ChunkTypeUsage:
			if chunk.UsageDelta != nil {
				usage.InputTokens += chunk.UsageDelta.InputTokens
				usage.OutputTokens += chunk.UsageDelta.OutputTokens
				usage.TotalTokens += chunk.UsageDelta.TotalTokens
				usage.CacheReadTokens += chunk.UsageDelta.CacheReadTokens
				usage.CacheWriteTokens += chunk.UsageDelta.CacheWriteTokens
				emit(StreamEvent{Type: StreamEventUsageUpdate, Usage: *usage})
			}
		case model.ChunkTypeStop:
			// the loop terminates on the following Recv returning io.EOF.
		}
	}
	out.text = text.String()
	return out, nil
}

func executeTool(ctx context.Context, index map[tools.Ident]toolregistry.BoundTool, call model.ToolCall) ([]byte, error) {
	bound, ok := index[call.Name]
	if !ok {
		return nil, agenterrors.New(agenterrors.KindValidation, fmt.Sprintf("tool %q is not bound for this agent", call.Name))
	}
	if bound.Execute == nil {
		return nil, agenterrors.New(agenterrors.KindValidation, fmt.Sprintf("tool %q has no executor bound", call.Name))
	}
	return bound.Execute(ctx, call.Payload)
}

func buildRequestMessages(systemPrompt string, history []*model.Message) []*model.Message {
	if systemPrompt == "" {
		return history
	}
	system := &model.Message{Role: model.ConversationRoleSystem, Parts: []model.Part{model.TextPart{Text: systemPrompt}}}
	return append([]*model.Message{system}, history...)
}

func textFromMessage(msg *model.Message) string {
	if msg == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range msg.Parts {
		if tp, ok := part.(model.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

func toolDefinitions(bound []toolregistry.BoundTool) []*model.ToolDefinition {
	defs := make([]*model.ToolDefinition, 0, len(bound))
	for _, b := range bound {
		defs = append(defs, &model.ToolDefinition{
			Name:        string(b.Name),
			Description: b.Description,
			InputSchema: b.Payload.Schema,
		})
	}
	return defs
}

func toolMetadataFor(bound []toolregistry.BoundTool) []policy.ToolMetadata {
	meta := make([]policy.ToolMetadata, 0, len(bound))
	for _, b := range bound {
		meta = append(meta, policy.ToolMetadata{Name: b.Name, Description: b.Description, Tags: b.Tags})
	}
	return meta
}

func indexTools(bound []toolregistry.BoundTool) map[tools.Ident]toolregistry.BoundTool {
	index := make(map[tools.Ident]toolregistry.BoundTool, len(bound))
	for _, b := range bound {
		index[b.Name] = b
	}
	return index
}

func toolIdents(calls []model.ToolCall) []tools.Ident {
	idents := make([]tools.Ident, 0, len(calls))
	for _, c := range calls {
		idents = append(idents, c.Name)
	}
	return idents
}

func identsToStrings(idents []tools.Ident) []string {
	out := make([]string, 0, len(idents))
	for _, id := range idents {
		out = append(out, string(id))
	}
	return out
}

func filterToolCalls(calls []model.ToolCall, allowed []tools.Ident) []model.ToolCall {
	allowedSet := make(map[tools.Ident]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	filtered := make([]model.ToolCall, 0, len(calls))
	for _, c := range calls {
		if _, ok := allowedSet[c.Name]; ok {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func toolUseParts(calls []model.ToolCall) []model.Part {
	parts := make([]model.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, model.ToolUsePart{ID: c.ID, Name: string(c.Name), Input: c.Payload})
	}
	return parts
}

func decodeToolResult(payload []byte) any {
	decoded, err := tools.AnyJSONCodec.FromJSON(payload)
	if err != nil {
		return string(payload)
	}
	return decoded
}
