// Package parse extracts canonical representations from raw model output.
//
// A parser never fails outright: when the raw text contains nothing usable
// for the requested format it returns a representation with an empty payload
// and a non-nil Flag, and the caller decides whether to repair, reprompt, or
// fall back.
package parse

import (
	"strings"

	"github.com/calebcgates/llmstruct"
)

// Parser extracts a [llmstruct.CanonicalRepresentation] from raw model text
// for a target format.
type Parser struct {
	langs *llmstruct.LanguageTable
}

// New creates a parser using langs for family dispatch and comment syntax.
func New(langs *llmstruct.LanguageTable) *Parser {
	return &Parser{langs: langs}
}

// Parse extracts the representation for the requested format. Intent only
// affects code formats; the verdict is the analyzer's classification of raw
// and is attached to the result. Disclaimers and "Here is the result:"
// lead-ins are stripped before any extractor runs.
func (p *Parser) Parse(
	raw string,
	format llmstruct.Format,
	intent llmstruct.Intent,
	verdict llmstruct.StructureVerdict,
) *llmstruct.CanonicalRepresentation {
	raw = stripBoilerplate(raw)

	var rep *llmstruct.CanonicalRepresentation

	switch p.langs.Family(format) {
	case llmstruct.FamilyData:
		rep = p.parseData(raw, format)
	case llmstruct.FamilyMarkup:
		rep = p.parseMarkup(raw, format)
	case llmstruct.FamilyScripting, llmstruct.FamilyImperative,
		llmstruct.FamilyStyling, llmstruct.FamilyQuery:
		rep = p.parseCode(raw, format, intent)
	default:
		rep = p.parseText(raw)
	}

	rep.Structure = verdict
	return rep
}

func (p *Parser) parseText(raw string) *llmstruct.CanonicalRepresentation {
	text := strings.TrimSpace(raw)
	rep := &llmstruct.CanonicalRepresentation{Text: text}
	if text == "" {
		rep.Flag = llmstruct.ErrNothingExtracted
	}
	return rep
}
