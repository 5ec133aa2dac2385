package session_test

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/tools"
	"github.com/devagent/orchestrator/toolregistry"
)

// scriptedStreamer replays a fixed list of chunks, then io.EOF.
type scriptedStreamer struct {
	chunks []model.Chunk
	pos    int
}

func (s *scriptedStreamer) Recv() (model.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return model.Chunk{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *scriptedStreamer) Close() error             { return nil }
func (s *scriptedStreamer) Metadata() map[string]any { return nil }

// step is one scripted client.Stream call: either a streamer to return or
// an error.
type step struct {
	streamer *scriptedStreamer
	err      error
}

// scriptedClient returns each configured step's streamer/error in order,
// one per Stream call. The last step repeats once exhausted.
type scriptedClient struct {
	steps []step
	calls int
}

func (c *scriptedClient) Complete(context.Context, *model.Request) (*model.Response, error) {
	return nil, nil
}

func (c *scriptedClient) Stream(context.Context, *model.Request) (model.Streamer, error) {
	idx := c.calls
	if idx >= len(c.steps) {
		idx = len(c.steps) - 1
	}
	c.calls++
	s := c.steps[idx]
	if s.err != nil {
		return nil, s.err
	}
	return s.streamer, nil
}

func textChunk(text string) model.Chunk {
	return model.Chunk{Type: model.ChunkTypeText, Message: &model.Message{Parts: []model.Part{model.TextPart{Text: text}}}}
}

func toolCallChunk(id string, name tools.Ident, payload string) model.Chunk {
	return model.Chunk{Type: model.ChunkTypeToolCall, ToolCall: &model.ToolCall{ID: id, Name: name, Payload: json.RawMessage(payload)}}
}

func usageChunk(in, out int) model.Chunk {
	return model.Chunk{Type: model.ChunkTypeUsage, UsageDelta: &model.TokenUsage{InputTokens: in, OutputTokens: out}}
}

func echoTool(executed *int) toolregistry.BoundTool {
	return toolregistry.BoundTool{ToolSpec: tools.ToolSpec{
		Name: tools.Ident("fs.write_file"),
		Execute: func(context.Context, []byte) ([]byte, error) {
			if executed != nil {
				*executed++
			}
			return []byte(`{"ok":true}`), nil
		},
	}}
}

func baseConfig(boundTools ...toolregistry.BoundTool) session.Config {
	return session.Config{
		RunID:    "run-1",
		AgentID:  "agent-1",
		Role:     toolregistry.RoleCoder,
		Phase:    "planning",
		MaxSteps: 10,
		Tools:    boundTools,
	}
}

func TestRunCompletesOnFinalTextWithNoToolCalls(t *testing.T) {
	client := &scriptedClient{steps: []step{
		{streamer: &scriptedStreamer{chunks: []model.Chunk{textChunk("all done"), usageChunk(10, 5)}}},
	}}
	runner := session.New(session.Options{})

	var events []session.StreamEvent
	result, err := runner.Run(context.Background(), client, baseConfig(), session.Callbacks{
		OnEvent: func(ev session.StreamEvent) { events = append(events, ev) },
	})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, result.StepsExecuted)
	assert.Equal(t, 15, result.Usage.InputTokens+result.Usage.OutputTokens)
	require.Len(t, result.Messages, 1)
	assert.NotEmpty(t, events)
}

func TestRunExecutesToolCallThenCompletes(t *testing.T) {
	var executed int
	client := &scriptedClient{steps: []step{
		{streamer: &scriptedStreamer{chunks: []model.Chunk{toolCallChunk("call-1", tools.Ident("fs.write_file"), `{"path":"implementation_plan.json"}`)}}},
		{streamer: &scriptedStreamer{chunks: []model.Chunk{textChunk("finished")}}},
	}}
	runner := session.New(session.Options{})

	var progressEvents []session.StreamEvent
	result, err := runner.Run(context.Background(), client, baseConfig(echoTool(&executed)), session.Callbacks{
		OnEvent: func(ev session.StreamEvent) {
			if ev.Type == session.StreamEventProgress {
				progressEvents = append(progressEvents, ev)
			}
		},
	})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, result.Outcome)
	assert.Equal(t, 1, executed)
	assert.Equal(t, 1, result.ToolCallCount)
	assert.Equal(t, 2, result.StepsExecuted)
	require.NotEmpty(t, progressEvents)
	last := progressEvents[len(progressEvents)-1].Progress
	require.NotNil(t, last)
	assert.Contains(t, last.CompletedPhases, "planning")
}

func TestRunStopsAtMaxSteps(t *testing.T) {
	client := &scriptedClient{steps: []step{
		{streamer: &scriptedStreamer{chunks: []model.Chunk{toolCallChunk("call-1", tools.Ident("fs.write_file"), `{}`)}}},
	}}
	var executed int
	runner := session.New(session.Options{})
	cfg := baseConfig(echoTool(&executed))
	cfg.MaxSteps = 1

	result, err := runner.Run(context.Background(), client, cfg, session.Callbacks{})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeMaxSteps, result.Outcome)
	assert.Equal(t, 1, result.StepsExecuted)
}

func TestRunClassifiesRateLimitedError(t *testing.T) {
	client := &scriptedClient{steps: []step{{err: model.ErrRateLimited}}}
	runner := session.New(session.Options{})

	result, err := runner.Run(context.Background(), client, baseConfig(), session.Callbacks{})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRateLimited, result.Outcome)
	require.NotNil(t, result.Error)
	assert.True(t, result.Error.Retryable())
}

func TestRunRefreshesAuthOnceThenSucceeds(t *testing.T) {
	authErr := agenterrors.New(agenterrors.KindAuth, "token expired")
	client := &scriptedClient{steps: []step{{err: authErr}}}
	refreshedClient := &scriptedClient{steps: []step{{streamer: &scriptedStreamer{chunks: []model.Chunk{textChunk("ok")}}}}}

	runner := session.New(session.Options{})
	var refreshCalled, modelRefreshCalled bool
	result, err := runner.Run(context.Background(), client, baseConfig(), session.Callbacks{
		OnAuthRefresh: func(context.Context) (string, error) {
			refreshCalled = true
			return "fresh-token", nil
		},
		OnModelRefresh: func(_ context.Context, token string) (model.Client, error) {
			modelRefreshCalled = true
			assert.Equal(t, "fresh-token", token)
			return refreshedClient, nil
		},
	})

	require.NoError(t, err)
	assert.True(t, refreshCalled)
	assert.True(t, modelRefreshCalled)
	assert.Equal(t, session.OutcomeCompleted, result.Outcome)
}

func TestRunReturnsAuthFailureWithoutRefreshCallback(t *testing.T) {
	authErr := agenterrors.New(agenterrors.KindAuth, "token expired")
	client := &scriptedClient{steps: []step{{err: authErr}}}
	runner := session.New(session.Options{})

	result, err := runner.Run(context.Background(), client, baseConfig(), session.Callbacks{})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeAuthFailure, result.Outcome)
}

func TestRunReturnsCancelledWhenContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &scriptedClient{steps: []step{{streamer: &scriptedStreamer{}}}}
	runner := session.New(session.Options{})

	result, err := runner.Run(ctx, client, baseConfig(), session.Callbacks{})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCancelled, result.Outcome)
}

func TestRunDeniesToolWithoutAnExecutor(t *testing.T) {
	unbound := toolregistry.BoundTool{ToolSpec: tools.ToolSpec{Name: tools.Ident("bash.run")}}
	client := &scriptedClient{steps: []step{
		{streamer: &scriptedStreamer{chunks: []model.Chunk{toolCallChunk("call-1", tools.Ident("bash.run"), `{}`)}}},
	}}
	runner := session.New(session.Options{})

	var toolResults []session.StreamEvent
	result, err := runner.Run(context.Background(), client, baseConfig(unbound), session.Callbacks{
		OnEvent: func(ev session.StreamEvent) {
			if ev.Type == session.StreamEventToolResult {
				toolResults = append(toolResults, ev)
			}
		},
	})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeError, result.Outcome)
	require.Len(t, toolResults, 1)
	require.NotNil(t, toolResults[0].Err)
	assert.Equal(t, agenterrors.KindValidation, toolResults[0].Err.Kind)
}

func TestRunFiltersToolCallNotInSessionMetadata(t *testing.T) {
	client := &scriptedClient{steps: []step{
		{streamer: &scriptedStreamer{chunks: []model.Chunk{toolCallChunk("call-1", tools.Ident("bash.run"), `{}`)}}},
	}}
	runner := session.New(session.Options{})

	result, err := runner.Run(context.Background(), client, baseConfig(), session.Callbacks{})

	require.NoError(t, err)
	assert.Equal(t, session.OutcomeError, result.Outcome)
	require.NotNil(t, result.Error)
}
