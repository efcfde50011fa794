package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/calebcgates/llmstruct"
)

var indentedLinePattern = regexp.MustCompile(`^( {4}|\t)`)

// parseCode extracts code fragments and surrounding prose from raw text.
// Fenced blocks win regardless of intent. Without fences, code-only intent
// keeps the whole text as one fragment when it reads as code, while the
// explanation intent separates indented blocks from prose. When no code is
// found at all, the fragment list gets a single commented placeholder so
// renderers never emit an empty program, and the representation is flagged.
func (p *Parser) parseCode(
	raw string,
	format llmstruct.Format,
	intent llmstruct.Intent,
) *llmstruct.CanonicalRepresentation {
	trimmed := strings.TrimSpace(raw)

	if blocks := fencedBlocks(trimmed); len(blocks) > 0 {
		fragments := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if b.body != "" {
				fragments = append(fragments, b.body)
			}
		}
		if len(fragments) > 0 {
			return &llmstruct.CanonicalRepresentation{
				CodeFragments: fragments,
				Text:          stripFences(trimmed),
			}
		}
	}

	if intent == llmstruct.IntentCodeOnly {
		if p.looksLikeCode(trimmed, format) {
			return &llmstruct.CanonicalRepresentation{
				CodeFragments: []string{trimmed},
			}
		}
	} else {
		if fragments, prose := splitIndentedBlocks(trimmed); len(fragments) > 0 {
			// Unindented lines carrying language keywords are code, not
			// prose: the text is one bare snippet, not prose around code.
			if p.containsKeyword(prose, format) {
				return &llmstruct.CanonicalRepresentation{
					CodeFragments: []string{trimmed},
				}
			}
			return &llmstruct.CanonicalRepresentation{
				CodeFragments: fragments,
				Text:          prose,
			}
		}
		if p.looksLikeCode(trimmed, format) {
			return &llmstruct.CanonicalRepresentation{
				CodeFragments: []string{trimmed},
			}
		}
	}

	return &llmstruct.CanonicalRepresentation{
		CodeFragments: []string{p.placeholderFragment(format, trimmed)},
		Text:          trimmed,
		Flag:          llmstruct.ErrNoCodeFound,
	}
}

// looksLikeCode reports whether unfenced text carries fingerprints of the
// target language: its keywords, or indented lines.
func (p *Parser) looksLikeCode(text string, format llmstruct.Format) bool {
	if p.containsKeyword(text, format) {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		if indentedLinePattern.MatchString(line) {
			return true
		}
	}
	return false
}

func (p *Parser) containsKeyword(text string, format llmstruct.Format) bool {
	cfg, _ := p.langs.Lookup(format)
	for _, kw := range cfg.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// splitIndentedBlocks separates runs of indented lines (code) from
// unindented lines (prose).
func splitIndentedBlocks(text string) (fragments []string, prose string) {
	var block []string
	var proseLines []string

	flush := func() {
		if len(block) > 0 {
			fragments = append(fragments, strings.Join(block, "\n"))
			block = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if indentedLinePattern.MatchString(line) {
			block = append(block, strings.TrimPrefix(strings.TrimPrefix(line, "    "), "\t"))
			continue
		}
		flush()
		if strings.TrimSpace(line) != "" {
			proseLines = append(proseLines, line)
		}
	}
	flush()
	return fragments, strings.Join(proseLines, "\n")
}

// placeholderSnippetLimit bounds how much of the original response a
// placeholder fragment embeds.
const placeholderSnippetLimit = 500

// placeholderFragment builds a commented stand-in for a response that
// contained no code. The original prose rides along inside the comment,
// truncated, so it survives rendering paths that keep only fragments.
func (p *Parser) placeholderFragment(format llmstruct.Format, original string) string {
	const msg = "No code was produced for this request."

	snippet := strings.TrimSpace(original)
	if len(snippet) > placeholderSnippetLimit {
		snippet = snippet[:placeholderSnippetLimit]
	}

	cfg, ok := p.langs.Lookup(format)
	if !ok {
		return msg
	}
	switch {
	case cfg.LineComment != "":
		lines := []string{msg}
		if snippet != "" {
			lines = append(lines, "Original response:")
			lines = append(lines, strings.Split(snippet, "\n")...)
		}
		for i, line := range lines {
			lines[i] = strings.TrimRight(cfg.LineComment+" "+line, " ")
		}
		return strings.Join(lines, "\n")
	case cfg.BlockCommentOpen != "":
		if snippet == "" {
			return fmt.Sprintf("%s %s %s", cfg.BlockCommentOpen, msg, cfg.BlockCommentClose)
		}
		return fmt.Sprintf("%s %s\nOriginal response:\n%s %s",
			cfg.BlockCommentOpen, msg, snippet, cfg.BlockCommentClose)
	default:
		return msg
	}
}
