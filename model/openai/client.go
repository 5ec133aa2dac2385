// Package openai provides a model.Client implementation backed by the
// OpenAI Chat Completions API using github.com/openai/openai-go. It
// translates orchestrator requests into ChatCompletionNewParams calls and
// maps responses back into the generic session types. Unlike the Anthropic
// adapter, this adapter does not yet support streaming; Stream returns
// model.ErrStreamingUnsupported and callers fall back to Complete.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/devagent/orchestrator/model"
	"github.com/devagent/orchestrator/tools"
)

// ChatClient captures the subset of the openai-go client used by the
// adapter. Satisfied by the Chat.Completions service on a real client, or a
// stub in tests.
type ChatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int64
	Temperature  float64
}

// Client implements model.Client via the OpenAI Chat Completions API.
type Client struct {
	chat         ChatClient
	defaultModel string
	maxTokens    int64
	temperature  float64
}

// New builds an OpenAI-backed model client from the provided chat completion
// client and options.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai chat client is required")
	}
	modelID := strings.TrimSpace(opts.DefaultModel)
	if modelID == "" {
		return nil, errors.New("default model is required")
	}
	return &Client{chat: chat, defaultModel: modelID, maxTokens: opts.MaxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default openai-go HTTP client,
// reading OPENAI_API_KEY and OPENAI_BASE_URL from the environment via the
// SDK's option helpers.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("api key is required")
	}
	oc := openai.NewClient(option.WithAPIKey(apiKey))
	return New(&oc.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Complete renders a chat completion using the configured OpenAI client.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.chat.New(ctx, *params)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	return translateResponse(resp), nil
}

// Stream is not implemented for the OpenAI adapter; callers fall back to
// Complete.
func (c *Client) Stream(context.Context, *model.Request) (model.Streamer, error) {
	return nil, model.ErrStreamingUnsupported
}

func (c *Client) prepareRequest(req *model.Request) (*openai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	messages, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	toolParams, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelID),
		Messages: messages,
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}
	if maxTokens := c.effectiveMaxTokens(req.MaxTokens); maxTokens > 0 {
		params.MaxTokens = openai.Int(maxTokens)
	}
	if temp := c.effectiveTemperature(req.Temperature); temp > 0 {
		params.Temperature = openai.Float(temp)
	}
	return &params, nil
}

func (c *Client) effectiveMaxTokens(requested int) int64 {
	if requested > 0 {
		return int64(requested)
	}
	return c.maxTokens
}

func (c *Client) effectiveTemperature(requested float32) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return c.temperature
}

func encodeMessages(msgs []*model.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		text := collectText(m.Parts)
		switch m.Role {
		case model.ConversationRoleSystem:
			if text != "" {
				out = append(out, openai.SystemMessage(text))
			}
		case model.ConversationRoleUser:
			for _, part := range m.Parts {
				if v, ok := part.(model.ToolResultPart); ok {
					out = append(out, openai.ToolMessage(encodeToolResultContent(v), v.ToolUseID))
				}
			}
			if text != "" {
				out = append(out, openai.UserMessage(text))
			}
		case model.ConversationRoleAssistant:
			assistantMsg := openai.AssistantMessage(text)
			calls := assistantToolCalls(m.Parts)
			if len(calls) > 0 {
				assistantMsg.OfAssistant.ToolCalls = calls
			}
			out = append(out, assistantMsg)
		default:
			return nil, fmt.Errorf("openai: unsupported message role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("openai: at least one message is required")
	}
	return out, nil
}

func collectText(parts []model.Part) string {
	var b strings.Builder
	for _, part := range parts {
		if v, ok := part.(model.TextPart); ok {
			b.WriteString(v.Text)
		}
	}
	return b.String()
}

func assistantToolCalls(parts []model.Part) []openai.ChatCompletionMessageToolCallParam {
	var calls []openai.ChatCompletionMessageToolCallParam
	for _, part := range parts {
		v, ok := part.(model.ToolUsePart)
		if !ok {
			continue
		}
		args, err := json.Marshal(v.Input)
		if err != nil {
			continue
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID: v.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      v.Name,
				Arguments: string(args),
			},
		})
	}
	return calls
}

func encodeToolResultContent(v model.ToolResultPart) string {
	switch c := v.Content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func encodeTools(defs []*model.ToolDefinition) ([]openai.ChatCompletionToolParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	toolParams := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		var schema map[string]any
		if def.InputSchema != nil {
			data, err := json.Marshal(def.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("openai: marshal tool %s schema: %w", def.Name, err)
			}
			if err := json.Unmarshal(data, &schema); err != nil {
				return nil, fmt.Errorf("openai: tool %s schema is not a JSON object: %w", def.Name, err)
			}
		}
		toolParams = append(toolParams, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  shared.FunctionParameters(schema),
			},
		})
	}
	return toolParams, nil
}

func translateResponse(resp *openai.ChatCompletion) *model.Response {
	out := &model.Response{}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	if choice.Message.Content != "" {
		out.Content = append(out.Content, model.Message{
			Role:  model.ConversationRoleAssistant,
			Parts: []model.Part{model.TextPart{Text: choice.Message.Content}},
		})
	}
	for _, call := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			Name:    tools.Ident(call.Function.Name),
			Payload: json.RawMessage(call.Function.Arguments),
			ID:      call.ID,
		})
	}
	out.Usage = model.TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	out.StopReason = string(choice.FinishReason)
	return out
}

func isRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
