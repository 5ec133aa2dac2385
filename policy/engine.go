package policy

import (
	"context"
	"strings"

	"github.com/devagent/orchestrator/tools"
)

// Options configures the default Engine.
type Options struct {
	// AllowTags restricts tool execution to metadata tags. Empty means no
	// tag filter.
	AllowTags []string
	// BlockTags excludes tools carrying any of these tags.
	BlockTags []string
	// DisableRetryHints turns off automatic allowlist narrowing from
	// RetryHint. Enabled by default.
	DisableRetryHints bool
	// Label annotates emitted policy decision labels; defaults to "default".
	Label string
}

// Engine is the default policy.Engine: it applies optional tag filters,
// narrows the allowlist when a RetryHint names the failing tool, and
// disables tools once CapsState is exhausted. Decide returns the caps it
// was given unchanged; per-call bookkeeping is DecrementToolCall's job.
type Engine struct {
	allowTags  map[string]struct{}
	blockTags  map[string]struct{}
	honorHints bool
	label      string
}

// New builds a default Engine from opts.
func New(opts Options) *Engine {
	label := strings.TrimSpace(opts.Label)
	if label == "" {
		label = "default"
	}
	return &Engine{
		allowTags:  toSet(opts.AllowTags),
		blockTags:  toSet(opts.BlockTags),
		honorHints: !opts.DisableRetryHints,
		label:      label,
	}
}

// Decide implements Engine.
func (e *Engine) Decide(_ context.Context, input Input) (Decision, error) {
	meta := indexMetadata(input.Tools)
	candidates := candidateHandles(input, meta)
	allowed := e.filterAllowed(candidates, meta)
	caps := input.RemainingCaps

	if e.honorHints && input.RetryHint != nil {
		allowed, caps = e.applyRetryHint(allowed, meta, caps, input.RetryHint)
	}

	if caps.MaxToolCalls > 0 && caps.ToolCallsRemaining <= 0 {
		return Decision{DisableTools: true, Caps: caps, Labels: map[string]string{"policy_engine": e.label}}, nil
	}
	if caps.MaxConsecutiveFailures > 0 && caps.ConsecutiveFailuresRemaining <= 0 {
		return Decision{DisableTools: true, Caps: caps, Labels: map[string]string{"policy_engine": e.label}}, nil
	}

	labels := map[string]string{"policy_engine": e.label}
	if input.RetryHint != nil && e.honorHints {
		labels["policy_hint"] = string(input.RetryHint.Reason)
	}
	return Decision{
		AllowedTools: allowed,
		Caps:         caps,
		Labels:       labels,
		Metadata:     map[string]any{"engine": e.label},
	}, nil
}

func (e *Engine) filterAllowed(handles []tools.Ident, meta map[tools.Ident]ToolMetadata) []tools.Ident {
	filtered := make([]tools.Ident, 0, len(handles))
	seen := make(map[tools.Ident]struct{}, len(handles))
	for _, handle := range handles {
		if _, ok := seen[handle]; ok {
			continue
		}
		md, ok := meta[handle]
		if !ok {
			continue
		}
		if !e.isAllowed(md) {
			continue
		}
		filtered = append(filtered, handle)
		seen[handle] = struct{}{}
	}
	return filtered
}

func (e *Engine) isAllowed(meta ToolMetadata) bool {
	if len(e.blockTags) > 0 {
		for _, tag := range meta.Tags {
			if _, blocked := e.blockTags[tag]; blocked {
				return false
			}
		}
	}
	if len(e.allowTags) > 0 {
		for _, tag := range meta.Tags {
			if _, ok := e.allowTags[tag]; ok {
				return true
			}
		}
		return false
	}
	return true
}

func (e *Engine) applyRetryHint(allowed []tools.Ident, meta map[tools.Ident]ToolMetadata, caps CapsState, hint *RetryHint) ([]tools.Ident, CapsState) {
	if hint == nil || hint.Tool == "" {
		return allowed, caps
	}
	switch {
	case hint.RestrictToTool:
		if _, ok := meta[hint.Tool]; ok {
			allowed = []tools.Ident{hint.Tool}
		} else {
			allowed = nil
		}
	case hint.Reason == RetryReasonToolUnavailable || hint.Reason == RetryReasonRepeatedFailure:
		allowed = removeHandle(allowed, hint.Tool)
	}
	return allowed, caps
}

func candidateHandles(input Input, meta map[tools.Ident]ToolMetadata) []tools.Ident {
	if len(input.Requested) > 0 {
		out := make([]tools.Ident, len(input.Requested))
		copy(out, input.Requested)
		return out
	}
	handles := make([]tools.Ident, 0, len(meta))
	for id := range meta {
		handles = append(handles, id)
	}
	return handles
}

func removeHandle(handles []tools.Ident, id tools.Ident) []tools.Ident {
	filtered := handles[:0]
	for _, handle := range handles {
		if handle == id {
			continue
		}
		filtered = append(filtered, handle)
	}
	return filtered
}

func indexMetadata(list []ToolMetadata) map[tools.Ident]ToolMetadata {
	index := make(map[tools.Ident]ToolMetadata, len(list))
	for _, meta := range list {
		index[meta.Name] = meta
	}
	return index
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// DecrementToolCall applies the result of one tool call to caps, resetting
// the consecutive-failure counter on success and decrementing it on
// failure. Call counts are decremented unconditionally.
func DecrementToolCall(caps CapsState, failed bool) CapsState {
	if caps.MaxToolCalls > 0 && caps.ToolCallsRemaining > 0 {
		caps.ToolCallsRemaining--
	}
	if caps.MaxConsecutiveFailures > 0 {
		if failed {
			if caps.ConsecutiveFailuresRemaining > 0 {
				caps.ConsecutiveFailuresRemaining--
			}
		} else {
			caps.ConsecutiveFailuresRemaining = caps.MaxConsecutiveFailures
		}
	}
	return caps
}
