package parse

import (
	"encoding/xml"
	"strings"

	"golang.org/x/net/html"

	"github.com/calebcgates/llmstruct"
)

// parseMarkup extracts the markup portion of raw text. A fenced block tagged
// html or xml wins; otherwise the whole text is kept when it contains real
// elements. Text with no elements is carried as plain text with a flag so
// the renderer can produce an escaped fallback.
func (p *Parser) parseMarkup(raw string, format llmstruct.Format) *llmstruct.CanonicalRepresentation {
	trimmed := strings.TrimSpace(raw)

	for _, block := range fencedBlocks(trimmed) {
		if block.lang == "html" || block.lang == "xml" || block.lang == "" {
			if hasMarkupElements(block.body, format) {
				return &llmstruct.CanonicalRepresentation{Markup: block.body}
			}
		}
	}

	if hasMarkupElements(trimmed, format) {
		return &llmstruct.CanonicalRepresentation{Markup: trimmed}
	}

	rep := &llmstruct.CanonicalRepresentation{
		Text: stripFences(trimmed),
		Flag: llmstruct.ErrNothingExtracted,
	}
	if rep.Text == "" {
		rep.Text = trimmed
	}
	return rep
}

// hasMarkupElements reports whether text contains at least one element of
// the given markup dialect.
func hasMarkupElements(text string, format llmstruct.Format) bool {
	if format == llmstruct.FormatXML {
		dec := xml.NewDecoder(strings.NewReader(text))
		for {
			tok, err := dec.Token()
			if err != nil {
				return false
			}
			if _, ok := tok.(xml.StartElement); ok {
				return true
			}
		}
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return false
	}
	found := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html", "head", "body":
				// Synthesized by the lenient parser around bare text.
			default:
				found = true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}
