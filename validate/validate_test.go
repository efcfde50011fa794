package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebcgates/llmstruct"
)

func newTestValidator() *Validator {
	return New(llmstruct.DefaultLanguageTable())
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		name          string
		rendered      string
		expectedShape llmstruct.Shape
		valid         bool
		errorType     llmstruct.ErrorType
	}{
		{
			name:          "valid object",
			rendered:      `{"a": 1}`,
			expectedShape: llmstruct.ShapeObject,
			valid:         true,
		},
		{
			name:          "valid array",
			rendered:      `[1, 2, 3]`,
			expectedShape: llmstruct.ShapeArray,
			valid:         true,
		},
		{
			name:          "unconstrained shape accepts anything",
			rendered:      `"just a string"`,
			expectedShape: llmstruct.ShapeNone,
			valid:         true,
		},
		{
			name:          "malformed json is a decode error",
			rendered:      `{"a": 1,}`,
			expectedShape: llmstruct.ShapeObject,
			valid:         false,
			errorType:     llmstruct.ErrorDecode,
		},
		{
			name:          "array where object expected",
			rendered:      `[1, 2, 3]`,
			expectedShape: llmstruct.ShapeObject,
			valid:         false,
			errorType:     llmstruct.ErrorStructureShape,
		},
		{
			name:          "object where array expected",
			rendered:      `{"a": 1}`,
			expectedShape: llmstruct.ShapeArray,
			valid:         false,
			errorType:     llmstruct.ErrorStructureShape,
		},
	}

	validator := newTestValidator()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			vr := validator.Output(context.Background(), test.rendered,
				llmstruct.FormatJSON, test.expectedShape)
			assert.Equal(t, test.valid, vr.Valid)
			if !test.valid {
				assert.Equal(t, test.errorType, vr.ErrorType)
				assert.NotEmpty(t, vr.Message)
			}
		})
	}
}

func TestValidateJSONDecodePosition(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(), "{\n  \"a\": 1,\n}",
		llmstruct.FormatJSON, llmstruct.ShapeObject)
	require.False(t, vr.Valid)
	require.Equal(t, llmstruct.ErrorDecode, vr.ErrorType)
	require.NotNil(t, vr.Pos)
	assert.Equal(t, 3, vr.Pos.Line)
	assert.Contains(t, vr.Message, "line 3")
}

func TestValidateShapeErrorMessage(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(), `[1, 2, 3]`,
		llmstruct.FormatJSON, llmstruct.ShapeObject)
	require.False(t, vr.Valid)
	assert.Equal(t, "expected a JSON object, but got a JSON array", vr.Message)
}

func TestValidateJSONSchema(t *testing.T) {
	schema, err := CompileSchema([]byte(`{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}}
	}`))
	require.NoError(t, err)

	validator := newTestValidator().WithSchema(schema)

	vr := validator.Output(context.Background(), `{"name": "John"}`,
		llmstruct.FormatJSON, llmstruct.ShapeObject)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(), `{"age": 35}`,
		llmstruct.FormatJSON, llmstruct.ShapeObject)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorStructureShape, vr.ErrorType)
}

func TestValidateYAML(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(), "name: John\nage: 35",
		llmstruct.FormatYAML, llmstruct.ShapeObject)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(), "name: [unclosed",
		llmstruct.FormatYAML, llmstruct.ShapeObject)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorDecode, vr.ErrorType)
}

func TestValidateHTML(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(), "<ul><li>one</li></ul>",
		llmstruct.FormatHTML, llmstruct.ShapeNone)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(), "no tags at all",
		llmstruct.FormatHTML, llmstruct.ShapeNone)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorDecode, vr.ErrorType)
	assert.True(t, vr.FallbackAllowed)
}

func TestValidateXML(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(), "<person><name>John</name></person>",
		llmstruct.FormatXML, llmstruct.ShapeNone)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(), "<person><name>John</person>",
		llmstruct.FormatXML, llmstruct.ShapeNone)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorDecode, vr.ErrorType)
	assert.True(t, vr.FallbackAllowed)
}

func TestValidatePython(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(),
		"def add(a, b):\n    return a + b\n",
		llmstruct.FormatPython, llmstruct.ShapeNone)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(),
		"def add(a, b:\n    return a + b\n",
		llmstruct.FormatPython, llmstruct.ShapeNone)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorDecode, vr.ErrorType)
}

func TestValidateJavaScript(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(),
		"function add(a, b) { return a + b; }",
		llmstruct.FormatJavaScript, llmstruct.ShapeNone)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(),
		"function add(a, b { return a + b; }",
		llmstruct.FormatJavaScript, llmstruct.ShapeNone)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorDecode, vr.ErrorType)
}

func TestValidateGo(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(),
		"func add(a, b int) int {\n\treturn a + b\n}\n",
		llmstruct.FormatGo, llmstruct.ShapeNone)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(),
		"func add(a, b int int {\n\treturn a + b\n}\n",
		llmstruct.FormatGo, llmstruct.ShapeNone)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorDecode, vr.ErrorType)
	assert.NotNil(t, vr.Pos)
}

func TestValidateCodeWithoutGrammar(t *testing.T) {
	validator := newTestValidator()

	// Languages without a grammar only get a non-emptiness check.
	vr := validator.Output(context.Background(),
		"SELECT * FROM users;",
		llmstruct.FormatSQL, llmstruct.ShapeNone)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(), "   ",
		llmstruct.FormatSQL, llmstruct.ShapeNone)
	require.False(t, vr.Valid)
	assert.Equal(t, llmstruct.ErrorParseFailure, vr.ErrorType)
}

func TestValidatePlainText(t *testing.T) {
	validator := newTestValidator()

	vr := validator.Output(context.Background(), "some prose",
		llmstruct.FormatPlainText, llmstruct.ShapeNone)
	assert.True(t, vr.Valid)

	vr = validator.Output(context.Background(), "",
		llmstruct.FormatPlainText, llmstruct.ShapeNone)
	assert.False(t, vr.Valid)
}
