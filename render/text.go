package render

import (
	"strings"

	"github.com/calebcgates/llmstruct"
)

// textRenderer passes plain text through.
type textRenderer struct{}

func (t *textRenderer) CanHandle(format llmstruct.Format) bool {
	return format == llmstruct.FormatPlainText
}

func (t *textRenderer) Render(
	rep *llmstruct.CanonicalRepresentation,
	_ llmstruct.Format,
	_ llmstruct.Intent,
) (string, error) {
	if rep.Text != "" {
		return rep.Text, nil
	}
	if len(rep.CodeFragments) > 0 {
		return strings.Join(rep.CodeFragments, "\n\n"), nil
	}
	return "", llmstruct.ErrNothingExtracted
}
