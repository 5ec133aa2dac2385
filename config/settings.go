// Package config resolves the orchestrator's environment-level settings:
// model provider credentials, provider base-URL overrides, and the default
// git branch new worktrees are cut from. Values are sourced from an
// optional YAML settings file, a .env file (if present), and process
// environment variables, in that order of increasing precedence, following
// the teacher-pack's godotenv+viper idiom.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the injected environment-level configuration value. It is
// constructed once at host startup (config.Load) and threaded explicitly
// into model client constructors and the worker bridge — never accessed as
// a package-level singleton.
type Settings struct {
	AnthropicAPIKey       string
	OpenAIAPIKey          string
	GoogleGenerativeAIKey string
	AzureOpenAIAPIKey     string
	MistralAPIKey         string
	GroqAPIKey            string
	XAIAPIKey             string
	AnthropicBaseURL      string
	OpenAIBaseURL         string
	AzureOpenAIEndpoint   string
	DefaultBranch         string

	// AWSRegion, when set, enables the Bedrock provider adapter; credentials
	// are resolved through the AWS SDK's default credential chain rather
	// than a dedicated settings field.
	AWSRegion      string
	BedrockModelID string
}

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	dotenvPath   string
	settingsFile string
}

// WithDotenvPath overrides the .env file path Load attempts to read before
// falling back to the process environment. Missing files are silently
// ignored, matching godotenv's conventional use in CLI entrypoints.
func WithDotenvPath(path string) Option {
	return func(o *loadOptions) { o.dotenvPath = path }
}

// WithSettingsFile points Load at an optional YAML settings file (for
// DefaultBranch and any future non-secret setting). Missing files are
// silently ignored. Keys are matched case-insensitively against every name
// Load resolves, so a provider credential present in this file is read too;
// an environment variable of the same name takes precedence over it.
func WithSettingsFile(path string) Option {
	return func(o *loadOptions) { o.settingsFile = path }
}

// Load resolves Settings from (in increasing precedence) an optional YAML
// settings file, a .env file, and the process environment. Every field
// resolves to "" (or the documented default) when its source is entirely
// absent — Load never errors on a missing or incomplete environment, since
// which providers are actually needed depends on which model adapters the
// host wires up.
func Load(opts ...Option) (Settings, error) {
	lo := loadOptions{dotenvPath: ".env", settingsFile: "devagent.yaml"}
	for _, opt := range opts {
		opt(&lo)
	}

	// godotenv.Load populates the process environment; a missing file is
	// not an error here since production deployments set real env vars.
	if err := godotenv.Load(lo.dotenvPath); err != nil && !os.IsNotExist(err) {
		return Settings{}, err
	}

	v := viper.New()
	v.SetConfigFile(lo.settingsFile)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	v.SetDefault("default_branch", "main")

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) && !os.IsNotExist(err) {
		return Settings{}, err
	}

	return Settings{
		AnthropicAPIKey:       v.GetString("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:          v.GetString("OPENAI_API_KEY"),
		GoogleGenerativeAIKey: v.GetString("GOOGLE_GENERATIVE_AI_API_KEY"),
		AzureOpenAIAPIKey:     v.GetString("AZURE_OPENAI_API_KEY"),
		MistralAPIKey:         v.GetString("MISTRAL_API_KEY"),
		GroqAPIKey:            v.GetString("GROQ_API_KEY"),
		XAIAPIKey:             v.GetString("XAI_API_KEY"),
		AnthropicBaseURL:      v.GetString("ANTHROPIC_BASE_URL"),
		OpenAIBaseURL:         v.GetString("OPENAI_BASE_URL"),
		AzureOpenAIEndpoint:   v.GetString("AZURE_OPENAI_ENDPOINT"),
		DefaultBranch:         firstNonEmpty(v.GetString("DEFAULT_BRANCH"), v.GetString("default_branch")),
		AWSRegion:             v.GetString("AWS_REGION"),
		BedrockModelID:        v.GetString("BEDROCK_MODEL_ID"),
	}, nil
}

var envKeys = []string{
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
	"GOOGLE_GENERATIVE_AI_API_KEY",
	"AZURE_OPENAI_API_KEY",
	"MISTRAL_API_KEY",
	"GROQ_API_KEY",
	"XAI_API_KEY",
	"ANTHROPIC_BASE_URL",
	"OPENAI_BASE_URL",
	"AZURE_OPENAI_ENDPOINT",
	"DEFAULT_BRANCH",
	"AWS_REGION",
	"BEDROCK_MODEL_ID",
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
