package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/model"
)

func TestSanitizeToolNameStripsToolsetPrefix(t *testing.T) {
	assert.Equal(t, "read_file", sanitizeToolName("fs.read_file"))
	assert.Equal(t, "run", sanitizeToolName("bash.run"))
}

func TestSanitizeToolNameReplacesDisallowedRunes(t *testing.T) {
	assert.Equal(t, "re_ad_file", sanitizeToolName("fs.re ad/file"))
}

func TestEncodeMessagesRejectsUnknownToolUse(t *testing.T) {
	_, _, err := encodeMessages([]*model.Message{
		{
			Role: model.ConversationRoleAssistant,
			Parts: []model.Part{
				model.ToolUsePart{ID: "tu1", Name: "fs.read_file", Input: map[string]any{"path": "main.go"}},
			},
		},
	}, map[string]string{})
	require.Error(t, err)
}

func TestEncodeMessagesAcceptsKnownToolUse(t *testing.T) {
	nameMap := map[string]string{"fs.read_file": "read_file"}
	msgs, _, err := encodeMessages([]*model.Message{
		{
			Role: model.ConversationRoleAssistant,
			Parts: []model.Part{
				model.ToolUsePart{ID: "tu1", Name: "fs.read_file", Input: map[string]any{"path": "main.go"}},
			},
		},
	}, nameMap)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestEncodeMessagesSplitsSystemRole(t *testing.T) {
	conversation, system, err := encodeMessages([]*model.Message{
		{Role: model.ConversationRoleSystem, Parts: []model.Part{model.TextPart{Text: "you are a coding agent"}}},
		{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: "hello"}}},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, system, 1)
	assert.Len(t, conversation, 1)
}

func TestResolveModelIDPrefersExplicitModel(t *testing.T) {
	c := &Client{defaultModel: "claude-default", highModel: "claude-high", smallModel: "claude-small"}
	assert.Equal(t, "claude-explicit", c.resolveModelID(&model.Request{Model: "claude-explicit"}))
	assert.Equal(t, "claude-high", c.resolveModelID(&model.Request{ModelClass: model.ModelClassHighReasoning}))
	assert.Equal(t, "claude-small", c.resolveModelID(&model.Request{ModelClass: model.ModelClassSmall}))
	assert.Equal(t, "claude-default", c.resolveModelID(&model.Request{}))
}
