package host_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/host"
	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/plantools"
	"github.com/devagent/orchestrator/session"
	"github.com/devagent/orchestrator/specdir"
	"github.com/devagent/orchestrator/specpipeline"
	"github.com/devagent/orchestrator/tools"
	"github.com/devagent/orchestrator/toolregistry"
	"github.com/devagent/orchestrator/worker"
)

type textStreamer struct {
	text string
	sent bool
}

func (s *textStreamer) Recv() (model.Chunk, error) {
	if s.sent {
		return model.Chunk{}, io.EOF
	}
	s.sent = true
	return model.Chunk{Type: model.ChunkTypeText, Message: &model.Message{Parts: []model.Part{model.TextPart{Text: s.text}}}}, nil
}
func (s *textStreamer) Close() error             { return nil }
func (s *textStreamer) Metadata() map[string]any { return nil }

type stubClient struct{ text string }

func (c *stubClient) Complete(context.Context, *model.Request) (*model.Response, error) { return nil, nil }
func (c *stubClient) Stream(context.Context, *model.Request) (model.Streamer, error) {
	return &textStreamer{text: c.text}, nil
}

type stubResolver struct{ text string }

func (r *stubResolver) NewClient(context.Context, toolregistry.AgentRole) (model.Client, error) {
	return &stubClient{text: r.text}, nil
}

func newTestHost(t *testing.T, resolverText string) *host.Host {
	t.Helper()
	dir := t.TempDir()
	registry := toolregistry.New(toolregistry.Options{
		Catalog:  append(tools.BuiltinCatalog(), plantools.Catalog()...),
		Builders: mergeBuilders(tools.BuiltinBuilders(0), plantools.Builders()),
	})
	return &host.Host{
		Bridge:     worker.NewBridge(worker.Options{}),
		Registry:   registry,
		Models:     &stubResolver{text: resolverText},
		Dir:        specdir.New(dir),
		ProjectDir: dir,
	}
}

func mergeBuilders(maps ...map[tools.Ident]tools.Builder) map[tools.Ident]tools.Builder {
	out := make(map[tools.Ident]tools.Builder)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func TestRunPlannerSucceedsOnCompletedOutcome(t *testing.T) {
	h := newTestHost(t, "plan written")
	err := h.RunPlanner(context.Background(), 1)
	require.NoError(t, err)
}

func TestRunCoderReturnsSessionOutcome(t *testing.T) {
	h := newTestHost(t, "done")
	outcome, err := h.RunCoder(context.Background(), "task-1", 1)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, outcome)
}

func TestRunPhaseReturnsErrorForUnmappedPhase(t *testing.T) {
	h := newTestHost(t, "x")
	_, err := h.RunPhase(context.Background(), specpipeline.Phase("unknown"), 1)
	require.Error(t, err)
}

func TestRunPhaseRunsMappedRole(t *testing.T) {
	h := newTestHost(t, "discovered")
	outcome, err := h.RunPhase(context.Background(), specpipeline.PhaseDiscovery, 1)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCompleted, outcome)
}

func TestRunReviewerAndRunFixer(t *testing.T) {
	h := newTestHost(t, "reviewed")
	require.NoError(t, h.RunReviewer(context.Background(), 1))

	report := specdir.QAReport{Issues: []specdir.QAIssue{{Title: "bug", Location: "main.go:1"}}}
	require.NoError(t, h.RunFixer(context.Background(), 1, report))
}
