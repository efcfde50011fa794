package render

import (
	"strings"

	"github.com/calebcgates/llmstruct"
)

// codeRenderer produces source code for every code-family format. With
// [llmstruct.IntentCodeOnly] the fragments are joined bare; with
// [llmstruct.IntentCodeWithExplanation] the surrounding prose is wrapped in
// the target language's comment syntax above the code.
type codeRenderer struct {
	langs *llmstruct.LanguageTable
}

func (c *codeRenderer) CanHandle(format llmstruct.Format) bool {
	switch c.langs.Family(format) {
	case llmstruct.FamilyScripting, llmstruct.FamilyImperative,
		llmstruct.FamilyStyling, llmstruct.FamilyQuery:
		return true
	}
	return false
}

func (c *codeRenderer) Render(
	rep *llmstruct.CanonicalRepresentation,
	format llmstruct.Format,
	intent llmstruct.Intent,
) (string, error) {
	code := strings.Join(rep.CodeFragments, "\n\n")
	if code == "" {
		return "", llmstruct.ErrNoCodeFound
	}

	if intent != llmstruct.IntentCodeWithExplanation || strings.TrimSpace(rep.Text) == "" {
		return code, nil
	}

	cfg, _ := c.langs.Lookup(format)
	commented := commentWrap(rep.Text, cfg)
	if commented == "" {
		return code, nil
	}
	return commented + "\n\n" + code, nil
}

// commentWrap turns prose into a comment block using the language's line or
// block comment syntax.
func commentWrap(prose string, cfg llmstruct.LanguageConfig) string {
	lines := strings.Split(strings.TrimSpace(prose), "\n")

	if cfg.LineComment != "" {
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				out = append(out, cfg.LineComment)
				continue
			}
			out = append(out, cfg.LineComment+" "+line)
		}
		return strings.Join(out, "\n")
	}

	if cfg.BlockCommentOpen != "" {
		return cfg.BlockCommentOpen + "\n" +
			strings.TrimSpace(prose) + "\n" +
			cfg.BlockCommentClose
	}
	return ""
}
