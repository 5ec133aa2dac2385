package temporal

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/telemetry"
	"github.com/devagent/orchestrator/toolregistry"
)

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

type stubClient struct {
	streamer *scriptedStreamer
	err      error
}

func (c *stubClient) Complete(context.Context, *model.Request) (*model.Response, error) {
	return nil, nil
}

func (c *stubClient) Stream(context.Context, *model.Request) (model.Streamer, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.streamer, nil
}

func textChunk(text string) model.Chunk {
	return model.Chunk{Type: model.ChunkTypeText, Message: &model.Message{Parts: []model.Part{model.TextPart{Text: text}}}}
}

func newTestEngine(t *testing.T, newClient func(context.Context) (model.Client, error)) *Engine {
	t.Helper()
	registry := toolregistry.New(toolregistry.Options{})
	return &Engine{
		registry:   registry,
		newClient:  newClient,
		logger:     telemetry.NewNoopLogger(),
		actTimeout: 0,
	}
}

func TestRunSessionActivityReturnsCompletedResponse(t *testing.T) {
	engine := newTestEngine(t, func(context.Context) (model.Client, error) {
		return &stubClient{streamer: &scriptedStreamer{chunks: []model.Chunk{textChunk("done")}}}, nil
	})

	resp, err := engine.runSessionActivity(context.Background(), SessionRequest{
		RunID:    "run-1",
		AgentID:  "agent-1",
		Role:     string(toolregistry.RoleCoder),
		Prompt:   "do the thing",
		MaxSteps: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, string(session.OutcomeCompleted), resp.Outcome)
	assert.Equal(t, "done", resp.FinalText)
	assert.Empty(t, resp.ErrorKind)
}

func TestRunSessionActivityWrapsModelClientConstructionError(t *testing.T) {
	engine := newTestEngine(t, func(context.Context) (model.Client, error) {
		return nil, assertErr{"boom"}
	})

	_, err := engine.runSessionActivity(context.Background(), SessionRequest{RunID: "run-1", Role: string(toolregistry.RoleCoder)})
	require.Error(t, err)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func TestToSessionResponseMapsUsageAndError(t *testing.T) {
	result := session.Result{
		Outcome:       session.OutcomeError,
		Usage:         model.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		StepsExecuted: 3,
		ToolCallCount: 1,
		DurationMs:    500,
		Error:         agenterrors.New(agenterrors.KindTransient, "boom"),
	}

	resp := toSessionResponse(result)
	assert.Equal(t, "error", resp.Outcome)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 20, resp.OutputTokens)
	assert.Equal(t, 30, resp.TotalTokens)
	assert.Equal(t, "transient", resp.ErrorKind)
	assert.Equal(t, "boom", resp.ErrorMessage)
}

func TestFinalTextConcatenatesTextParts(t *testing.T) {
	msg := &model.Message{Parts: []model.Part{
		model.TextPart{Text: "hello "},
		model.ThinkingPart{Text: "ignored"},
		model.TextPart{Text: "world"},
	}}
	assert.Equal(t, "hello world", finalText(msg))
}

func TestFinalTextHandlesNilMessage(t *testing.T) {
	assert.Equal(t, "", finalText(nil))
}
