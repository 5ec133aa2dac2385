package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agenterrors "github.com/devagent/orchestrator/errors"
	"github.com/devagent/orchestrator/tools"
)

const readFileSchema = `{
	"type": "object",
	"properties": {"path": {"type": "string"}},
	"required": ["path"],
	"additionalProperties": false
}`

func TestTypeSpecValidateAcceptsConformingPayload(t *testing.T) {
	schema := tools.MustCompileSchema("read_file_input", []byte(readFileSchema))
	spec := tools.TypeSpec{Name: "ReadFileInput", Schema: schema, Codec: tools.AnyJSONCodec}

	err := spec.Validate([]byte(`{"path": "main.go"}`))
	assert.NoError(t, err)
}

func TestTypeSpecValidateRejectsNonConformingPayload(t *testing.T) {
	schema := tools.MustCompileSchema("read_file_input", []byte(readFileSchema))
	spec := tools.TypeSpec{Name: "ReadFileInput", Schema: schema, Codec: tools.AnyJSONCodec}

	err := spec.Validate([]byte(`{"cwd": "/tmp"}`))
	require.Error(t, err)

	var structured *agenterrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, agenterrors.KindValidation, structured.Kind)
}

func TestTypeSpecValidateRejectsMalformedJSON(t *testing.T) {
	schema := tools.MustCompileSchema("read_file_input", []byte(readFileSchema))
	spec := tools.TypeSpec{Name: "ReadFileInput", Schema: schema}

	err := spec.Validate([]byte(`{not json`))
	require.Error(t, err)

	var structured *agenterrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, agenterrors.KindParse, structured.Kind)
}

func TestTypeSpecValidateNoSchemaAllowsAnything(t *testing.T) {
	spec := tools.TypeSpec{Name: "Freeform"}
	assert.NoError(t, spec.Validate([]byte(`{"anything": true}`)))
}

func TestWithExecutorDoesNotMutateCatalogSpec(t *testing.T) {
	catalog := tools.ToolSpec{Name: "fs.read_file", Toolset: "fs"}
	bound := catalog.WithExecutor(func(context.Context, []byte) ([]byte, error) {
		return []byte(`{"content":"ok"}`), nil
	})

	assert.Nil(t, catalog.Execute)
	require.NotNil(t, bound.Execute)

	out, err := bound.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"ok"}`, string(out))
}
