package tools

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	agenterrors "github.com/devagent/orchestrator/errors"
)

// JSONCodec serializes and deserializes strongly typed values to and from
// JSON. The session runner decodes each raw tool result with
// AnyJSONCodec.FromJSON and attaches the decoded value (maps, slices and
// scalars) to its hook and stream events.
type JSONCodec[T any] struct {
	ToJSON   func(T) ([]byte, error)
	FromJSON func([]byte) (T, error)
}

// AnyJSONCodec is the default codec used by tools that do not need a typed
// payload, backed by the standard library encoder.
var AnyJSONCodec = JSONCodec[any]{
	ToJSON: json.Marshal,
	FromJSON: func(data []byte) (any, error) {
		if len(data) == 0 {
			return nil, nil
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	},
}

// TypeSpec describes the payload or result schema for a tool. Schema is a
// compiled JSON Schema document; Validate reports a *errors.Error of
// KindValidation when a candidate payload does not conform.
type TypeSpec struct {
	// Name is the Go-facing identifier for the type (e.g. "ReadFileInput").
	Name string
	// Schema is the compiled JSON Schema describing the payload shape. Nil
	// means the tool accepts any JSON value.
	Schema *jsonschema.Schema
	// Codec serializes and deserializes values matching the type.
	Codec JSONCodec[any]
}

// Validate checks raw against the schema, if one is set. A schema-compiled
// tool spec rejects malformed input before the executor ever runs.
func (t TypeSpec) Validate(raw []byte) error {
	if t.Schema == nil {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return agenterrors.Wrap(agenterrors.KindParse, "tool payload is not valid JSON", err)
	}
	if err := t.Schema.Validate(doc); err != nil {
		return agenterrors.Wrap(agenterrors.KindValidation, "tool payload failed schema validation", err)
	}
	return nil
}

// Permission classifies a tool's effect on project state.
type Permission string

const (
	// PermissionReadOnly tools never mutate filesystem or external state.
	PermissionReadOnly Permission = "read_only"
	// PermissionRequiresWrite tools may mutate the filesystem, run
	// subprocesses, or otherwise change external state.
	PermissionRequiresWrite Permission = "requires_write"
)

// Executor runs a tool's side effect and produces a raw JSON result. It
// receives the tool-scoped context assembled by the toolregistry (working
// directory, security profile, cancellation) rather than the broad
// session.Config, so a tool cannot reach outside its granted capabilities.
type Executor func(ctx context.Context, payload []byte) ([]byte, error)

// ToolSpec enumerates the metadata, schema, and executor for one tool.
type ToolSpec struct {
	// Name is the globally unique tool identifier.
	Name Ident
	// Toolset groups related tools for registry bookkeeping and logging
	// (e.g. "fs", "bash", "web", "plan").
	Toolset string
	// Description is surfaced to the model as part of the tool definition.
	Description string
	// Tags carries optional metadata labels consumed by policy or UI
	// layers (e.g. "mutates-filesystem", "network").
	Tags []string
	// RequiresCapability names an external capability the registry must
	// have available to offer this tool (e.g. "browser", "network"). Empty
	// means the tool is always available.
	RequiresCapability string
	// Permission classifies whether the tool only reads or may mutate
	// state, consumed by the toolregistry's role capability table.
	Permission Permission
	// Payload describes and validates the tool's input schema.
	Payload TypeSpec
	// Result describes the tool's output schema, for documentation only;
	// results are not validated against it before being streamed back.
	Result TypeSpec
	// Execute runs the tool. Set by the toolregistry when binding a spec to
	// an agent's ToolContext; nil on the catalog-level spec.
	Execute Executor
}

// WithExecutor returns a copy of the spec bound to the given executor,
// leaving the catalog-level spec (held by the registry) untouched.
func (t ToolSpec) WithExecutor(exec Executor) ToolSpec {
	t.Execute = exec
	return t
}
