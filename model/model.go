// Package model defines the provider-agnostic message and streaming types
// used by the session Runner and its provider adapters. Messages are typed
// parts (text, thinking, tool use/result) rather than flattened strings, so
// a Runner can drive any provider through the same Client/Streamer pair.
package model

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/devagent/orchestrator/tools"
)

// ConversationRole is the role for a message in a conversation.
type ConversationRole string

type (
	// Part is a marker interface implemented by all message parts.
	Part interface {
		isPart()
	}

	// ImageFormat identifies the on-wire format of an image part.
	ImageFormat string

	// TextPart is a plain text content block in a message.
	TextPart struct {
		Text string
	}

	// ImagePart carries image bytes attached to a user message (e.g. a
	// screenshot a QA agent attaches to a failing-test report).
	ImagePart struct {
		Format ImageFormat
		Bytes  []byte
	}

	// ThinkingPart represents provider-issued reasoning content. Callers
	// treat Signature/Redacted as opaque and surface Text according to UI
	// policy (the session Runner forwards it as a ThinkingDelta stream
	// event, never to the tool-execution path).
	ThinkingPart struct {
		Text      string
		Signature string
		Redacted  []byte
		Index     int
		Final     bool
	}

	// ToolUsePart declares a tool invocation by the assistant. The Runner
	// turns these into ToolCall stream events and dispatches them through
	// the toolregistry.
	ToolUsePart struct {
		ID    string
		Name  string
		Input any
	}

	// ToolResultPart carries a tool result produced by a prior ToolUsePart.
	// Attached to the next user-role message so the model can read it.
	ToolResultPart struct {
		ToolUseID string
		Content   any
		IsError   bool
	}

	// CacheCheckpointPart marks a cache boundary in a message. Provider
	// adapters translate this to provider-specific caching directives (e.g.
	// Bedrock's cachePoint); adapters without cache support ignore it.
	CacheCheckpointPart struct{}

	// Message is a single chat message. Parts preserve structure rather
	// than flattening to a plain string.
	Message struct {
		Role  ConversationRole
		Parts []Part
		Meta  map[string]any
	}

	// ToolDefinition describes a tool exposed to the model, derived from a
	// tools.ToolSpec by the toolregistry.
	ToolDefinition struct {
		Name        string
		Description string
		InputSchema any
	}

	// ToolCall is a requested tool invocation from the model. Payload is
	// canonical JSON; the toolregistry decodes it according to the tool's
	// TypeSpec, never Go-unmarshaling it itself.
	ToolCall struct {
		Name    tools.Ident
		Payload json.RawMessage
		ID      string
	}

	// ToolCallDelta is an incremental tool-call payload fragment streamed
	// by providers while still constructing the tool input JSON. Best
	// effort; the canonical payload is always the final ToolCall.
	ToolCallDelta struct {
		Name  tools.Ident
		ID    string
		Delta string
	}

	// ToolChoiceMode controls how the model uses tools for a request.
	ToolChoiceMode string

	// ToolChoice configures optional tool-use behavior for a Request.
	ToolChoice struct {
		Mode ToolChoiceMode
		Name string
	}

	// TokenUsage tracks token counts for a model call.
	TokenUsage struct {
		InputTokens      int
		OutputTokens     int
		TotalTokens      int
		CacheReadTokens  int
		CacheWriteTokens int
	}

	// Request captures inputs for a model invocation.
	Request struct {
		RunID       string
		Model       string
		ModelClass  ModelClass
		Messages    []*Message
		Temperature float32
		Tools       []*ToolDefinition
		ToolChoice  *ToolChoice
		MaxTokens   int
		Stream      bool
		Thinking    *ThinkingOptions
		Cache       *CacheOptions
	}

	// Response is the result of a non-streaming invocation.
	Response struct {
		Content    []Message
		ToolCalls  []ToolCall
		Usage      TokenUsage
		StopReason string
	}

	// Chunk is a streaming event from the model, classified by Type.
	Chunk struct {
		Type          string
		Message       *Message
		Thinking      string
		ToolCall      *ToolCall
		ToolCallDelta *ToolCallDelta
		UsageDelta    *TokenUsage
		StopReason    string
	}

	// ThinkingOptions configures provider thinking/reasoning behavior.
	ThinkingOptions struct {
		Enable       bool
		Interleaved  bool
		BudgetTokens int
	}

	// CacheOptions configures prompt caching behavior for a request.
	// Providers without cache support ignore these flags.
	CacheOptions struct {
		AfterSystem bool
		AfterTools  bool
	}

	// ModelClass identifies a model family (e.g. high-reasoning for
	// planning, small for cheap classification calls); adapters map
	// classes to concrete provider model identifiers.
	ModelClass string

	// Client is the provider-agnostic model client used by session.Runner.
	Client interface {
		Complete(ctx context.Context, req *Request) (*Response, error)
		Stream(ctx context.Context, req *Request) (Streamer, error)
	}

	// Streamer delivers incremental model output. Callers drain Recv until
	// it returns io.EOF or another terminal error, then call Close.
	Streamer interface {
		Recv() (Chunk, error)
		Close() error
		Metadata() map[string]any
	}
)

const (
	ConversationRoleSystem    ConversationRole = "system"
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
)

const (
	// ToolChoiceModeAuto lets the provider decide whether to call tools.
	// Default when ToolChoice is nil.
	ToolChoiceModeAuto ToolChoiceMode = "auto"
	// ToolChoiceModeNone disables tool use for the request.
	ToolChoiceModeNone ToolChoiceMode = "none"
	// ToolChoiceModeAny forces the model to request at least one tool.
	ToolChoiceModeAny ToolChoiceMode = "any"
	// ToolChoiceModeTool forces the specific tool named by ToolChoice.Name.
	ToolChoiceModeTool ToolChoiceMode = "tool"
)

const (
	ChunkTypeText          = "text"
	ChunkTypeToolCall      = "tool_call"
	ChunkTypeToolCallDelta = "tool_call_delta"
	ChunkTypeThinking      = "thinking"
	ChunkTypeUsage         = "usage"
	ChunkTypeStop          = "stop"
)

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatWEBP ImageFormat = "webp"
)

const (
	// ModelClassHighReasoning selects a high-reasoning model family; the
	// host uses it for planning, coding, QA fixing and spec-writing
	// sessions.
	ModelClassHighReasoning ModelClass = "high-reasoning"
	// ModelClassDefault selects the default model family; the host uses it
	// for QA review and the remaining spec-pipeline roles.
	ModelClassDefault ModelClass = "default"
	// ModelClassSmall selects a small/cheap model family for
	// classification-style calls. The host's role mapping never selects it;
	// a request must set it explicitly.
	ModelClassSmall ModelClass = "small"
)

// ErrStreamingUnsupported indicates the provider does not support streaming.
var ErrStreamingUnsupported = errors.New("model: streaming not supported")

// ErrRateLimited indicates the provider rejected the request due to rate
// limiting. Callers must not retry in a tight loop; session.Runner
// classifies this into a rate_limited Outcome and leaves backoff to the
// caller (see errors.Kind's Retryable policy).
var ErrRateLimited = errors.New("model: rate limited")

func (TextPart) isPart()           {}
func (ImagePart) isPart()          {}
func (ThinkingPart) isPart()       {}
func (ToolUsePart) isPart()        {}
func (ToolResultPart) isPart()     {}
func (CacheCheckpointPart) isPart() {}
