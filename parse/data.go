package parse

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/calebcgates/llmstruct"
)

// parseData extracts a structured-data tree from raw text. Extraction is
// layered: strict parse of the sanitized text, then a balanced-literal scan
// through surrounding prose, then nothing.
func (p *Parser) parseData(raw string, format llmstruct.Format) *llmstruct.CanonicalRepresentation {
	if data, ok := Data(raw, format); ok {
		return &llmstruct.CanonicalRepresentation{StructuredData: data}
	}
	return &llmstruct.CanonicalRepresentation{
		Text: llmstruct.SanitizeDataArtifacts(raw),
		Flag: llmstruct.ErrNothingExtracted,
	}
}

// Data extracts a structured-data tree from text, reporting whether
// anything parsed. Used by the parser and by the correction heuristics.
func Data(text string, format llmstruct.Format) (any, bool) {
	sanitized := llmstruct.SanitizeDataArtifacts(text)
	if data, ok := decodeData(sanitized, format); ok {
		return unwrapResult(data), true
	}

	// Models often wrap the payload in prose. Pull out the first balanced
	// object or array literal and try again.
	if candidate := extractBalanced(text); candidate != "" {
		if data, ok := decodeData(candidate, format); ok {
			return unwrapResult(data), true
		}
	}
	return nil, false
}

// decodeData strictly parses text for the given data format. YAML scalars do
// not count as structured data.
func decodeData(text string, format llmstruct.Format) (any, bool) {
	if text == "" {
		return nil, false
	}

	var data any
	if format == llmstruct.FormatYAML {
		if err := yaml.Unmarshal([]byte(text), &data); err != nil {
			return nil, false
		}
		switch data.(type) {
		case map[string]any, []any:
			return data, true
		default:
			return nil, false
		}
	}

	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, false
	}
	return data, true
}
