package render

import (
	"encoding/json"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/calebcgates/llmstruct"
)

func newTestRegistry() *Registry {
	return NewRegistry(llmstruct.DefaultLanguageTable())
}

// assertTextEqual fails with a unified diff, which reads better than a
// single-line mismatch for multi-line rendered output.
func assertTextEqual(t *testing.T, expected, actual string) {
	t.Helper()
	if expected == actual {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	t.Errorf("rendered output mismatch:\n%s", diff)
}

func TestRegistryResolution(t *testing.T) {
	registry := newTestRegistry()

	for _, format := range llmstruct.DefaultLanguageTable().All() {
		_, err := registry.For(format)
		assert.NoError(t, err, "format %s should have a renderer", format)
	}

	_, err := registry.For(llmstruct.Format("cobol"))
	assert.ErrorIs(t, err, llmstruct.ErrNoRenderer)
}

type upperRenderer struct{}

func (upperRenderer) CanHandle(f llmstruct.Format) bool { return f == llmstruct.FormatPlainText }

func (upperRenderer) Render(
	rep *llmstruct.CanonicalRepresentation,
	_ llmstruct.Format,
	_ llmstruct.Intent,
) (string, error) {
	return "custom:" + rep.Text, nil
}

func TestRegistryCustomRendererTakesPrecedence(t *testing.T) {
	registry := newTestRegistry()
	registry.Register(upperRenderer{})

	out, err := registry.Render(
		&llmstruct.CanonicalRepresentation{Text: "hello"},
		llmstruct.FormatPlainText, llmstruct.IntentNone)
	require.NoError(t, err)
	assert.Equal(t, "custom:hello", out)
}

func TestDataRenderer(t *testing.T) {
	tests := []struct {
		name     string
		rep      *llmstruct.CanonicalRepresentation
		format   llmstruct.Format
		expected string
	}{
		{
			name: "json object",
			rep: &llmstruct.CanonicalRepresentation{
				StructuredData: map[string]any{"name": "John", "age": 35},
			},
			format:   llmstruct.FormatJSON,
			expected: "{\n  \"age\": 35,\n  \"name\": \"John\"\n}",
		},
		{
			name: "json array",
			rep: &llmstruct.CanonicalRepresentation{
				StructuredData: []any{1, 2, 3},
			},
			format:   llmstruct.FormatJSON,
			expected: "[\n  1,\n  2,\n  3\n]",
		},
		{
			name: "yaml mapping",
			rep: &llmstruct.CanonicalRepresentation{
				StructuredData: map[string]any{"name": "John"},
			},
			format:   llmstruct.FormatYAML,
			expected: "name: John",
		},
		{
			name: "text payload serialized as value",
			rep: &llmstruct.CanonicalRepresentation{
				Text: "no data here",
			},
			format:   llmstruct.FormatJSON,
			expected: `"no data here"`,
		},
	}

	registry := newTestRegistry()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := registry.Render(test.rep, test.format, llmstruct.IntentNone)
			require.NoError(t, err)
			assertTextEqual(t, test.expected, out)
		})
	}
}

func TestMarkupRendererPassthrough(t *testing.T) {
	registry := newTestRegistry()

	out, err := registry.Render(
		&llmstruct.CanonicalRepresentation{Markup: "<ul><li>one</li></ul>"},
		llmstruct.FormatHTML, llmstruct.IntentNone)
	require.NoError(t, err)
	assert.Equal(t, "<ul><li>one</li></ul>", out)
}

func TestMarkupRendererReflow(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name: "rows of objects become a table",
			data: []any{
				map[string]any{"name": "John", "age": 35},
				map[string]any{"name": "Jane", "age": 28},
			},
			expected: "<table>\n" +
				"  <tr><th>age</th><th>name</th></tr>\n" +
				"  <tr><td>35</td><td>John</td></tr>\n" +
				"  <tr><td>28</td><td>Jane</td></tr>\n" +
				"</table>",
		},
		{
			name:     "scalar slice becomes a list",
			data:     []any{"one", "two"},
			expected: "<ul>\n  <li>one</li>\n  <li>two</li>\n</ul>",
		},
		{
			name: "object becomes a key-value table",
			data: map[string]any{"name": "John"},
			expected: "<table>\n" +
				"  <tr><th>name</th><td>John</td></tr>\n" +
				"</table>",
		},
		{
			name:     "scalar becomes a paragraph",
			data:     42,
			expected: "<p>42</p>",
		},
	}

	registry := newTestRegistry()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := registry.Render(
				&llmstruct.CanonicalRepresentation{StructuredData: test.data},
				llmstruct.FormatHTML, llmstruct.IntentNone)
			require.NoError(t, err)
			assertTextEqual(t, test.expected, out)
		})
	}
}

func TestMarkupRendererEscapesTextFallback(t *testing.T) {
	registry := newTestRegistry()

	out, err := registry.Render(
		&llmstruct.CanonicalRepresentation{Text: `1 < 2 & "so on"`},
		llmstruct.FormatHTML, llmstruct.IntentNone)
	require.NoError(t, err)
	assert.Equal(t, "<p>1 &lt; 2 &amp; &#34;so on&#34;</p>", out)
}

func TestMarkupRendererXML(t *testing.T) {
	registry := newTestRegistry()

	out, err := registry.Render(
		&llmstruct.CanonicalRepresentation{
			StructuredData: map[string]any{"name": "John", "tags": []any{"a", "b"}},
		},
		llmstruct.FormatXML, llmstruct.IntentNone)
	require.NoError(t, err)
	assert.Equal(t,
		"<response><name>John</name><tags><item>a</item><item>b</item></tags></response>",
		out)
}

func TestCodeRenderer(t *testing.T) {
	rep := &llmstruct.CanonicalRepresentation{
		CodeFragments: []string{"a = 1", "b = 2"},
		Text:          "First set a.\nThen set b.",
	}

	registry := newTestRegistry()

	t.Run("code only", func(t *testing.T) {
		out, err := registry.Render(rep, llmstruct.FormatPython, llmstruct.IntentCodeOnly)
		require.NoError(t, err)
		assertTextEqual(t, "a = 1\n\nb = 2", out)
	})

	t.Run("with explanation as line comments", func(t *testing.T) {
		out, err := registry.Render(rep, llmstruct.FormatPython, llmstruct.IntentCodeWithExplanation)
		require.NoError(t, err)
		assertTextEqual(t, "# First set a.\n# Then set b.\n\na = 1\n\nb = 2", out)
	})

	t.Run("with explanation as block comment", func(t *testing.T) {
		cssRep := &llmstruct.CanonicalRepresentation{
			CodeFragments: []string{"body { margin: 0; }"},
			Text:          "Reset the margin.",
		}
		out, err := registry.Render(cssRep, llmstruct.FormatCSS, llmstruct.IntentCodeWithExplanation)
		require.NoError(t, err)
		assertTextEqual(t, "/*\nReset the margin.\n*/\n\nbody { margin: 0; }", out)
	})

	t.Run("no fragments is an error", func(t *testing.T) {
		_, err := registry.Render(
			&llmstruct.CanonicalRepresentation{Text: "nothing"},
			llmstruct.FormatPython, llmstruct.IntentCodeOnly)
		assert.ErrorIs(t, err, llmstruct.ErrNoCodeFound)
	})
}

func TestTextRenderer(t *testing.T) {
	registry := newTestRegistry()

	out, err := registry.Render(
		&llmstruct.CanonicalRepresentation{Text: "plain prose"},
		llmstruct.FormatPlainText, llmstruct.IntentNone)
	require.NoError(t, err)
	assert.Equal(t, "plain prose", out)

	_, err = registry.Render(
		&llmstruct.CanonicalRepresentation{},
		llmstruct.FormatPlainText, llmstruct.IntentNone)
	assert.ErrorIs(t, err, llmstruct.ErrNothingExtracted)
}

// genJSONValue draws a small JSON-like tree.
func genJSONValue() *rapid.Generator[any] {
	scalar := rapid.OneOf(
		rapid.Map(rapid.String(), func(s string) any { return s }),
		rapid.Map(rapid.Float64Range(-1e6, 1e6), func(f float64) any { return f }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
	)
	return rapid.OneOf(
		scalar,
		rapid.Map(rapid.SliceOfN(scalar, 0, 4), func(items []any) any {
			out := make([]any, len(items))
			copy(out, items)
			return out
		}),
		rapid.Map(rapid.MapOfN(rapid.StringMatching(`[a-z]{1,8}`), scalar, 0, 4),
			func(m map[string]any) any {
				out := make(map[string]any, len(m))
				for k, v := range m {
					out[k] = v
				}
				return out
			}),
	)
}

func TestDataRendererOutputAlwaysReparses(t *testing.T) {
	registry := newTestRegistry()

	rapid.Check(t, func(t *rapid.T) {
		data := genJSONValue().Draw(t, "data")
		rep := &llmstruct.CanonicalRepresentation{StructuredData: data}

		jsonOut, err := registry.Render(rep, llmstruct.FormatJSON, llmstruct.IntentNone)
		if err != nil {
			t.Fatalf("json render: %v", err)
		}
		var back any
		if err := json.Unmarshal([]byte(jsonOut), &back); err != nil {
			t.Fatalf("rendered JSON does not reparse: %v\n%s", err, jsonOut)
		}

		yamlOut, err := registry.Render(rep, llmstruct.FormatYAML, llmstruct.IntentNone)
		if err != nil {
			t.Fatalf("yaml render: %v", err)
		}
		if err := yaml.Unmarshal([]byte(yamlOut), &back); err != nil {
			t.Fatalf("rendered YAML does not reparse: %v\n%s", err, yamlOut)
		}
	})
}
