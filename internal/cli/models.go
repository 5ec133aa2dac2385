package cli

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/devagent/orchestrator/config"
	"github.com/devagent/orchestrator/model"
	devagentanthropic "github.com/devagent/orchestrator/model/anthropic"
	devagentbedrock "github.com/devagent/orchestrator/model/bedrock"
	devagentopenai "github.com/devagent/orchestrator/model/openai"
	"github.com/devagent/orchestrator/model/ratelimit"
	"github.com/devagent/orchestrator/toolregistry"
)

// providerModels resolves one model.Client per provider and caches it for
// the lifetime of a run: every role sharing a provider shares its client,
// since model/anthropic, model/openai, and model/bedrock pick their model
// tier from model.Request.ModelClass rather than from the caller's role.
// Each cached client is wrapped in its own ratelimit.Limiter so a burst of
// concurrent roles against one provider backs off together instead of each
// role discovering the provider's rate limit independently.
type providerModels struct {
	settings config.Settings

	anthropicClient model.Client
	anthropicErr    error
	anthropicTried  bool

	openaiClient model.Client
	openaiErr    error
	openaiTried  bool

	bedrockClient model.Client
	bedrockErr    error
	bedrockTried  bool
}

// newProviderModels constructs a host.ModelResolver over settings. Anthropic
// is preferred whenever its API key is present, then OpenAI, then Bedrock
// (enabled by AWS_REGION). Clients are built lazily on first use so a host
// that only ever runs roles resolving to one provider never requires the
// other providers' credentials.
func newProviderModels(settings config.Settings) *providerModels {
	return &providerModels{settings: settings}
}

func (m *providerModels) NewClient(ctx context.Context, role toolregistry.AgentRole) (model.Client, error) {
	if m.settings.AnthropicAPIKey != "" {
		return m.anthropic()
	}
	if m.settings.OpenAIAPIKey != "" {
		return m.openai()
	}
	if m.settings.AWSRegion != "" {
		return m.bedrock(ctx)
	}
	return nil, fmt.Errorf("no model provider configured for role %s: set ANTHROPIC_API_KEY, OPENAI_API_KEY, or AWS_REGION", role)
}

func (m *providerModels) anthropic() (model.Client, error) {
	if !m.anthropicTried {
		m.anthropicTried = true
		opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(m.settings.AnthropicAPIKey)}
		if m.settings.AnthropicBaseURL != "" {
			opts = append(opts, anthropicopt.WithBaseURL(m.settings.AnthropicBaseURL))
		}
		ac := sdk.NewClient(opts...)
		c, err := devagentanthropic.New(&ac.Messages, devagentanthropic.Options{
			DefaultModel:   "claude-sonnet-4-5",
			HighModel:      "claude-opus-4-1",
			SmallModel:     "claude-3-5-haiku-latest",
			MaxTokens:      8192,
			ThinkingBudget: 4096,
		})
		if err == nil {
			c = ratelimit.New(60000, 120000).Middleware()(c)
		}
		m.anthropicClient, m.anthropicErr = c, err
	}
	return m.anthropicClient, m.anthropicErr
}

func (m *providerModels) openai() (model.Client, error) {
	if !m.openaiTried {
		m.openaiTried = true
		opts := []openaiopt.RequestOption{openaiopt.WithAPIKey(m.settings.OpenAIAPIKey)}
		if m.settings.OpenAIBaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(m.settings.OpenAIBaseURL))
		}
		oc := openai.NewClient(opts...)
		c, err := devagentopenai.New(&oc.Chat.Completions, devagentopenai.Options{DefaultModel: "gpt-4.1", MaxTokens: 8192})
		if err == nil {
			c = ratelimit.New(60000, 120000).Middleware()(c)
		}
		m.openaiClient, m.openaiErr = c, err
	}
	return m.openaiClient, m.openaiErr
}

func (m *providerModels) bedrock(ctx context.Context) (model.Client, error) {
	if !m.bedrockTried {
		m.bedrockTried = true
		m.bedrockClient, m.bedrockErr = m.newBedrockClient(ctx)
	}
	return m.bedrockClient, m.bedrockErr
}

func (m *providerModels) newBedrockClient(ctx context.Context) (model.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(m.settings.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config for bedrock: %w", err)
	}
	defaultModel := m.settings.BedrockModelID
	if defaultModel == "" {
		defaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	rt := bedrockruntime.NewFromConfig(awsCfg)
	c, err := devagentbedrock.New(rt, devagentbedrock.Options{
		DefaultModel: defaultModel,
		MaxTokens:    8192,
	})
	if err != nil {
		return nil, err
	}
	// Bedrock's own per-model throttling is tighter than the major
	// providers' direct APIs, so the adaptive budget starts lower.
	return ratelimit.New(20000, 60000).Middleware()(c), nil
}
