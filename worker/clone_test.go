package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/security"
	"github.com/devagent/orchestrator/session"
)

func TestCloneSessionConfigDoesNotAliasMessages(t *testing.T) {
	original := &model.Message{
		Role:  model.ConversationRoleUser,
		Parts: []model.Part{model.TextPart{Text: "hello"}},
	}
	cfg := session.Config{Messages: []*model.Message{original}}

	clone := cloneSessionConfig(cfg)
	require.Len(t, clone.Messages, 1)
	require.NotSame(t, original, clone.Messages[0])

	// Mutating the original message after cloning must not reach the clone.
	original.Parts[0] = model.TextPart{Text: "mutated"}
	clonedText := clone.Messages[0].Parts[0].(model.TextPart).Text
	assert.Equal(t, "hello", clonedText)
}

func TestCloneSessionConfigRoundTripsSecurityProfile(t *testing.T) {
	cfg := session.Config{}
	cfg.ToolContext.SecurityProfile = security.Profile{
		Base:        []string{"ls", "cat"},
		Stack:       []string{"go"},
		Script:      []string{"./scripts/run.sh"},
		Custom:      []string{"custom-cmd"},
		ScriptNames: []string{"run.sh"},
	}

	clone := cloneSessionConfig(cfg)

	require.ElementsMatch(t, cfg.ToolContext.SecurityProfile.Base, clone.ToolContext.SecurityProfile.Base)
	require.ElementsMatch(t, cfg.ToolContext.SecurityProfile.Stack, clone.ToolContext.SecurityProfile.Stack)
	require.ElementsMatch(t, cfg.ToolContext.SecurityProfile.ScriptNames, clone.ToolContext.SecurityProfile.ScriptNames)

	// Mutating the original's backing array must not affect the clone.
	cfg.ToolContext.SecurityProfile.Base[0] = "mutated"
	assert.Equal(t, "ls", clone.ToolContext.SecurityProfile.Base[0])
}

func TestCloneSessionConfigCopiesLabels(t *testing.T) {
	cfg := session.Config{Labels: map[string]string{"phase": "coding"}}
	clone := cloneSessionConfig(cfg)

	cfg.Labels["phase"] = "mutated"
	assert.Equal(t, "coding", clone.Labels["phase"])
}
