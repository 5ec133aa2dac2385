package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/config"
)

func TestNewHostWiresPlanToolsAlongsideBuiltins(t *testing.T) {
	projectDir := t.TempDir()
	specDir := t.TempDir()

	h, cleanup, err := newHost(context.Background(), config.Settings{}, projectDir, specDir, runOptions{maxSteps: 10})
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, h.Registry)
	assert.Equal(t, projectDir, h.ProjectDir)
	assert.Equal(t, specDir, h.Dir.Root())
	assert.NotEmpty(t, h.Security.Base)
	assert.NotNil(t, h.Store)
	assert.NotNil(t, h.Bridge)
}

func TestNewHostFallsBackToInMemoryStoresWithNoBackendConfigured(t *testing.T) {
	_, cleanup, err := newHost(context.Background(), config.Settings{}, t.TempDir(), t.TempDir(), runOptions{})
	require.NoError(t, err)
	cleanup()
}
