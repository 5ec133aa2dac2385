package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_GENERATIVE_AI_API_KEY",
		"AZURE_OPENAI_API_KEY", "MISTRAL_API_KEY", "GROQ_API_KEY", "XAI_API_KEY",
		"ANTHROPIC_BASE_URL", "OPENAI_BASE_URL", "AZURE_OPENAI_ENDPOINT", "DEFAULT_BRANCH",
		"AWS_REGION", "BEDROCK_MODEL_ID",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadResolvesFromProcessEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("DEFAULT_BRANCH", "develop")

	dir := t.TempDir()
	settings, err := config.Load(
		config.WithDotenvPath(filepath.Join(dir, "missing.env")),
		config.WithSettingsFile(filepath.Join(dir, "missing.yaml")),
	)
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", settings.AnthropicAPIKey)
	assert.Equal(t, "develop", settings.DefaultBranch)
}

func TestLoadDefaultsBranchToMainWhenUnset(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	settings, err := config.Load(
		config.WithDotenvPath(filepath.Join(dir, "missing.env")),
		config.WithSettingsFile(filepath.Join(dir, "missing.yaml")),
	)
	require.NoError(t, err)

	assert.Equal(t, "main", settings.DefaultBranch)
	assert.Empty(t, settings.AnthropicAPIKey)
}

func TestLoadReadsDotenvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("OPENAI_API_KEY=sk-from-dotenv\n"), 0o644))

	settings, err := config.Load(
		config.WithDotenvPath(envPath),
		config.WithSettingsFile(filepath.Join(dir, "missing.yaml")),
	)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-dotenv", settings.OpenAIAPIKey)
}

func TestLoadReadsYAMLSettingsFileForDefaultBranch(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "devagent.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("default_branch: trunk\n"), 0o644))

	settings, err := config.Load(
		config.WithDotenvPath(filepath.Join(dir, "missing.env")),
		config.WithSettingsFile(yamlPath),
	)
	require.NoError(t, err)

	assert.Equal(t, "trunk", settings.DefaultBranch)
}

func TestLoadResolvesBedrockSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0")
	dir := t.TempDir()

	settings, err := config.Load(
		config.WithDotenvPath(filepath.Join(dir, "missing.env")),
		config.WithSettingsFile(filepath.Join(dir, "missing.yaml")),
	)
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", settings.AWSRegion)
	assert.Equal(t, "anthropic.claude-3-5-sonnet-20241022-v2:0", settings.BedrockModelID)
}

func TestLoadEnvironmentTakesPrecedenceOverYAMLDefaultBranch(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_BRANCH", "release")
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "devagent.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("default_branch: trunk\n"), 0o644))

	settings, err := config.Load(
		config.WithDotenvPath(filepath.Join(dir, "missing.env")),
		config.WithSettingsFile(yamlPath),
	)
	require.NoError(t, err)

	assert.Equal(t, "release", settings.DefaultBranch)
}
