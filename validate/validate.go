// Package validate checks rendered output against its format's contract
// before it reaches the caller.
//
// Validation is strict on syntax and shape but deliberate about severity:
// markup failures allow a fallback result, while data and code failures
// demand correction. Every failure carries the error classification the
// corrector keys its strategy on.
package validate

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/calebcgates/llmstruct"
)

// Validator checks rendered output for one request. Construct with [New];
// attach a schema with [Validator.WithSchema] when the caller constrains
// structured output beyond its top-level shape.
type Validator struct {
	langs  *llmstruct.LanguageTable
	schema *jsonschema.Schema
}

// New creates a validator for the formats in langs.
func New(langs *llmstruct.LanguageTable) *Validator {
	return &Validator{langs: langs}
}

// WithSchema sets a compiled JSON Schema applied to structured-data output
// after the shape check. Returns the receiver for chaining.
func (v *Validator) WithSchema(schema *jsonschema.Schema) *Validator {
	v.schema = schema
	return v
}

// Output validates rendered text against the format's contract. The
// expected shape constrains structured-data output only; pass
// [llmstruct.ShapeNone] when unconstrained.
func (v *Validator) Output(
	ctx context.Context,
	rendered string,
	format llmstruct.Format,
	expectedShape llmstruct.Shape,
) llmstruct.ValidationResult {
	switch v.langs.Family(format) {
	case llmstruct.FamilyData:
		return v.validateData(rendered, format, expectedShape)
	case llmstruct.FamilyMarkup:
		return v.validateMarkup(rendered, format)
	case llmstruct.FamilyScripting, llmstruct.FamilyImperative,
		llmstruct.FamilyStyling, llmstruct.FamilyQuery:
		return v.validateCode(ctx, rendered, format)
	}

	if strings.TrimSpace(rendered) == "" {
		return llmstruct.Invalid(llmstruct.ErrorParseFailure, "output is empty")
	}
	return llmstruct.Valid()
}

func (v *Validator) validateData(
	rendered string,
	format llmstruct.Format,
	expectedShape llmstruct.Shape,
) llmstruct.ValidationResult {
	var data any

	if format == llmstruct.FormatYAML {
		if err := yaml.Unmarshal([]byte(rendered), &data); err != nil {
			return llmstruct.Invalid(llmstruct.ErrorDecode, err.Error())
		}
	} else {
		if err := json.Unmarshal([]byte(rendered), &data); err != nil {
			vr := llmstruct.Invalid(llmstruct.ErrorDecode, err.Error())
			if synErr, ok := err.(*json.SyntaxError); ok {
				vr.Pos = positionAt(rendered, synErr.Offset)
				vr.Message = fmt.Sprintf("%s at line %d, column %d",
					synErr.Error(), vr.Pos.Line, vr.Pos.Column)
			}
			return vr
		}
	}

	if expectedShape != llmstruct.ShapeNone {
		got := shapeOf(data)
		if got != expectedShape {
			err := &llmstruct.StructureShapeError{Want: expectedShape, Got: got}
			return llmstruct.Invalid(llmstruct.ErrorStructureShape, err.Error())
		}
	}

	if v.schema != nil {
		if err := v.schema.Validate(data); err != nil {
			return llmstruct.Invalid(llmstruct.ErrorStructureShape, err.Error())
		}
	}
	return llmstruct.Valid()
}

func (v *Validator) validateMarkup(rendered string, format llmstruct.Format) llmstruct.ValidationResult {
	if format == llmstruct.FormatXML {
		dec := xml.NewDecoder(strings.NewReader(rendered))
		sawElement := false
		for {
			tok, err := dec.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				vr := llmstruct.Invalid(llmstruct.ErrorDecode, err.Error())
				vr.FallbackAllowed = true
				return vr
			}
			if _, ok := tok.(xml.StartElement); ok {
				sawElement = true
			}
		}
		if !sawElement {
			vr := llmstruct.Invalid(llmstruct.ErrorDecode, "output contains no XML elements")
			vr.FallbackAllowed = true
			return vr
		}
		return llmstruct.Valid()
	}

	if countHTMLElements(rendered) == 0 {
		vr := llmstruct.Invalid(llmstruct.ErrorDecode, "output contains no HTML elements")
		vr.FallbackAllowed = true
		return vr
	}
	return llmstruct.Valid()
}

// countHTMLElements counts real elements in leniently parsed HTML,
// excluding the html, head, and body wrappers the parser synthesizes.
func countHTMLElements(text string) int {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return 0
	}
	count := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html", "head", "body":
			default:
				count++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return count
}

// positionAt converts a byte offset into a 1-based line and column.
func positionAt(text string, offset int64) *llmstruct.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	prefix := text[:offset]
	line := strings.Count(prefix, "\n") + 1
	col := int(offset) - strings.LastIndexByte(prefix, '\n')
	return &llmstruct.Position{Line: line, Column: col, Offset: offset}
}

func shapeOf(v any) llmstruct.Shape {
	switch v.(type) {
	case map[string]any:
		return llmstruct.ShapeObject
	case []any:
		return llmstruct.ShapeArray
	default:
		return llmstruct.ShapeNone
	}
}
