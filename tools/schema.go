package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CompileSchema compiles a raw JSON Schema document into the form TypeSpec
// expects. Built-in tool specs call this once at registration time; the
// resulting *jsonschema.Schema is reused across every validation of that
// tool's payload.
func CompileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	resource := name + ".json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// MustCompileSchema panics if the schema fails to compile. Used for package
// init-time construction of built-in tool specs where a bad literal schema
// is a programming error, not a runtime condition.
func MustCompileSchema(name string, raw []byte) *jsonschema.Schema {
	schema, err := CompileSchema(name, raw)
	if err != nil {
		panic(err)
	}
	return schema
}
