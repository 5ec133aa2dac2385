package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/policy"
	"github.com/devagent/orchestrator/tools"
)

func TestEngineFiltersByTags(t *testing.T) {
	engine := policy.New(policy.Options{AllowTags: []string{"trusted"}, BlockTags: []string{"deprecated"}})
	decision, err := engine.Decide(context.Background(), policy.Input{
		Tools: []policy.ToolMetadata{
			{Name: "read_file", Tags: []string{"trusted"}},
			{Name: "old_tool", Tags: []string{"deprecated"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, decision.AllowedTools, 1)
	assert.Equal(t, tools.Ident("read_file"), decision.AllowedTools[0])
}

func TestEngineRestrictsViaRetryHint(t *testing.T) {
	engine := policy.New(policy.Options{})
	decision, err := engine.Decide(context.Background(), policy.Input{
		Tools:         []policy.ToolMetadata{{Name: "read_file"}, {Name: "bash"}},
		RetryHint:     &policy.RetryHint{Tool: "bash", RestrictToTool: true},
		RemainingCaps: policy.CapsState{MaxToolCalls: 5, ToolCallsRemaining: 5},
	})
	require.NoError(t, err)
	require.Len(t, decision.AllowedTools, 1)
	assert.Equal(t, tools.Ident("bash"), decision.AllowedTools[0])
}

func TestEngineRemovesToolUnavailableHint(t *testing.T) {
	engine := policy.New(policy.Options{})
	decision, err := engine.Decide(context.Background(), policy.Input{
		Tools:     []policy.ToolMetadata{{Name: "read_file"}, {Name: "bash"}},
		RetryHint: &policy.RetryHint{Tool: "bash", Reason: policy.RetryReasonToolUnavailable},
	})
	require.NoError(t, err)
	require.Len(t, decision.AllowedTools, 1)
	assert.Equal(t, tools.Ident("read_file"), decision.AllowedTools[0])
}

func TestEngineDisablesToolsWhenCapsExhausted(t *testing.T) {
	engine := policy.New(policy.Options{})
	decision, err := engine.Decide(context.Background(), policy.Input{
		Tools:         []policy.ToolMetadata{{Name: "bash"}},
		RemainingCaps: policy.CapsState{MaxToolCalls: 5, ToolCallsRemaining: 0},
	})
	require.NoError(t, err)
	assert.True(t, decision.DisableTools)
}

func TestEngineEmitsLabelMetadata(t *testing.T) {
	engine := policy.New(policy.Options{Label: "custom"})
	decision, err := engine.Decide(context.Background(), policy.Input{
		Tools: []policy.ToolMetadata{{Name: "bash"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", decision.Metadata["engine"])
	assert.Equal(t, "custom", decision.Labels["policy_engine"])
}

func TestDecrementToolCallResetsConsecutiveFailuresOnSuccess(t *testing.T) {
	caps := policy.CapsState{MaxToolCalls: 10, ToolCallsRemaining: 10, MaxConsecutiveFailures: 3, ConsecutiveFailuresRemaining: 1}
	caps = policy.DecrementToolCall(caps, false)
	assert.Equal(t, 9, caps.ToolCallsRemaining)
	assert.Equal(t, 3, caps.ConsecutiveFailuresRemaining)
}

func TestDecrementToolCallDecrementsConsecutiveFailuresOnFailure(t *testing.T) {
	caps := policy.CapsState{MaxToolCalls: 10, ToolCallsRemaining: 10, MaxConsecutiveFailures: 3, ConsecutiveFailuresRemaining: 3}
	caps = policy.DecrementToolCall(caps, true)
	assert.Equal(t, 2, caps.ConsecutiveFailuresRemaining)
}
