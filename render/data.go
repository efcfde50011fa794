package render

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/calebcgates/llmstruct"
)

// dataRenderer serializes structured data as JSON or YAML.
type dataRenderer struct{}

func (d *dataRenderer) CanHandle(format llmstruct.Format) bool {
	return format == llmstruct.FormatJSON || format == llmstruct.FormatYAML
}

func (d *dataRenderer) Render(
	rep *llmstruct.CanonicalRepresentation,
	format llmstruct.Format,
	_ llmstruct.Intent,
) (string, error) {
	data := rep.StructuredData
	if data == nil {
		// Nothing was extracted. Serialize the text payload as a value so
		// the output is well-formed even before correction runs.
		data = rep.Text
	}

	if format == llmstruct.FormatYAML {
		out, err := yaml.Marshal(data)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(out), "\n"), nil
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
