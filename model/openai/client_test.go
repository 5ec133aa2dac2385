package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/model"
)

func TestEncodeMessagesBuildsSystemUserAssistantTurn(t *testing.T) {
	out, err := encodeMessages([]*model.Message{
		{Role: model.ConversationRoleSystem, Parts: []model.Part{model.TextPart{Text: "you are a coding agent"}}},
		{Role: model.ConversationRoleUser, Parts: []model.Part{model.TextPart{Text: "fix the bug"}}},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestEncodeMessagesRejectsEmptyTranscript(t *testing.T) {
	_, err := encodeMessages(nil)
	require.Error(t, err)
}

func TestEncodeMessagesRejectsUnsupportedRole(t *testing.T) {
	_, err := encodeMessages([]*model.Message{{Role: "narrator", Parts: []model.Part{model.TextPart{Text: "x"}}}})
	require.Error(t, err)
}

func TestStreamReturnsUnsupportedError(t *testing.T) {
	c := &Client{defaultModel: "gpt-5"}
	_, err := c.Stream(nil, &model.Request{})
	require.ErrorIs(t, err, model.ErrStreamingUnsupported)
}
