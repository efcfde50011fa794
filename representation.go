package llmstruct

import (
	"github.com/google/uuid"
)

// Format identifies a target output format tag. The set of known formats is
// closed; see [DefaultLanguageTable] for the family each format belongs to.
type Format string

const (
	FormatPlainText  Format = "plaintext"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatHTML       Format = "html"
	FormatXML        Format = "xml"
	FormatPython     Format = "python"
	FormatJavaScript Format = "javascript"
	FormatTypeScript Format = "typescript"
	FormatRuby       Format = "ruby"
	FormatPHP        Format = "php"
	FormatBash       Format = "bash"
	FormatR          Format = "r"
	FormatJava       Format = "java"
	FormatC          Format = "c"
	FormatCPP        Format = "cpp"
	FormatCSharp     Format = "csharp"
	FormatGo         Format = "go"
	FormatSwift      Format = "swift"
	FormatKotlin     Format = "kotlin"
	FormatCSS        Format = "css"
	FormatSQL        Format = "sql"
)

// Family groups formats that share rendering behavior, such as how prose is
// wrapped into comments around code fragments.
type Family string

const (
	FamilyData       Family = "data"
	FamilyMarkup     Family = "markup"
	FamilyScripting  Family = "scripting"
	FamilyImperative Family = "imperative"
	FamilyStyling    Family = "styling"
	FamilyQuery      Family = "query"

	// FamilyNone is the family of plaintext and unknown formats.
	FamilyNone Family = ""
)

// Intent describes what the caller wants from a code-format response.
type Intent string

const (
	// IntentNone is the zero intent, used for formats where intent does not
	// apply.
	IntentNone Intent = ""

	// IntentCodeOnly renders code fragments joined with blank lines and no
	// commentary.
	IntentCodeOnly Intent = "code_only"

	// IntentCodeWithExplanation renders surrounding prose as comments around
	// the code fragments.
	IntentCodeWithExplanation Intent = "code_with_explanation"
)

// Surface distinguishes the two classification surfaces. Input and output
// categories are disjoint sets; a (surface, category) pair keys the
// confidence store.
type Surface string

const (
	SurfaceInput  Surface = "input"
	SurfaceOutput Surface = "output"
)

// Category is a structural classification produced by the [Analyzer].
// Categories are closed per-surface sets.
type Category string

// Input-surface categories.
const (
	CategoryJSONInput         Category = "json_input"
	CategoryJSONLikeInput     Category = "json_like_text_input"
	CategoryCSVInput          Category = "csv_input"
	CategoryFormInput         Category = "form_urlencoded_input"
	CategoryXMLInput          Category = "xml_input"
	CategoryTabularTextInput  Category = "tabular_text_input"
	CategoryListTextInput     Category = "list_text_input"
	CategoryCodeTextInput     Category = "code_like_text_input"
	CategoryUnstructuredInput Category = "unstructured_text_input"
	CategoryOtherInput        Category = "other_input"
)

// Output-surface categories.
const (
	CategoryValidJSONOutput     Category = "valid_json_output"
	CategoryJSONLikeOutput      Category = "json_like_output"
	CategoryInvalidJSONOutput   Category = "invalid_json_output"
	CategoryHTMLTableOutput     Category = "html_table_output"
	CategoryHTMLListOutput      Category = "html_list_output"
	CategoryHTMLParagraphOutput Category = "html_paragraph_output"
	CategoryGenericHTMLOutput   Category = "generic_html_output"
	CategoryHTMLFailedOutput    Category = "html_failed_output"
	CategoryCodeOutput          Category = "code_output"
	CategoryNoCodeOutput        Category = "no_code_output"
	CategoryTextListOutput      Category = "text_list_output"
	CategoryTextTableOutput     Category = "text_table_like_output"
	CategoryTextParagraphOutput Category = "text_paragraph_output"
	CategoryUnknownOutput       Category = "unknown_output"
)

// Shape is the top-level container kind of structured data.
type Shape string

const (
	ShapeNone   Shape = ""
	ShapeObject Shape = "object"
	ShapeArray  Shape = "array"
)

// StructureVerdict is a classification plus confidence score describing the
// shape of a piece of text.
//
// Confidence is in [0, 1]. The analyzer computes it from a heuristic base
// score shifted by the stored bias for (Surface, Category); only the
// [Recorder] moves the stored bias, never the analyzer itself.
type StructureVerdict struct {
	Surface    Surface
	Category   Category
	Confidence float64

	// Features holds boolean/numeric signals the heuristics observed, such
	// as "is_valid_json" or "column_count".
	Features map[string]any

	// Metadata holds format-specific extras, such as CSV headers or HTML
	// table dimensions.
	Metadata map[string]any
}

// CanonicalRepresentation is the single intermediate artifact between
// parsing and rendering. Exactly the fields relevant to the requested format
// are populated; unused fields stay zero so renderers can detect that
// nothing usable was extracted and fall back safely.
//
// Text and StructuredData are mutually exclusive in practice but this is not
// enforced. A representation is created fresh per request and discarded once
// the response is produced.
type CanonicalRepresentation struct {
	// Text is the plain-text payload.
	Text string

	// StructuredData is a decoded JSON-like tree: map[string]any, []any, or
	// a scalar.
	StructuredData any

	// CodeFragments are extracted code blocks in source order.
	CodeFragments []string

	// Markup is the markup-language payload.
	Markup string

	// Structure is the analyzer's verdict for the raw model text this
	// representation was parsed from.
	Structure StructureVerdict

	// Flag is set when parsing detected a format mismatch it could not
	// fully resolve. Downstream correction decides what to do with it; a
	// representation with no populated field must carry a non-nil Flag.
	Flag error
}

// Empty reports whether no payload field is populated.
func (r *CanonicalRepresentation) Empty() bool {
	return r.Text == "" && r.StructuredData == nil &&
		len(r.CodeFragments) == 0 && r.Markup == ""
}

// DataShape returns the container kind of StructuredData, or ShapeNone for
// scalars and unset data.
func (r *CanonicalRepresentation) DataShape() Shape {
	switch r.StructuredData.(type) {
	case map[string]any:
		return ShapeObject
	case []any:
		return ShapeArray
	default:
		return ShapeNone
	}
}

// RequestContext carries per-request state through the pipeline. It is owned
// exclusively by the request's processing lifetime and never shared across
// requests.
type RequestContext struct {
	// ID identifies the request in feedback records.
	ID uuid.UUID

	// Prompt is the caller's original prompt text. May be empty when the
	// caller did not supply it; correction prompts degrade gracefully.
	Prompt string

	Format Format
	Intent Intent

	// Inbound is the structure verdict for the caller's input text.
	Inbound StructureVerdict

	// ExpectedShape is the top-level container kind the caller expects from
	// structured-data output, or ShapeNone when unconstrained.
	ExpectedShape Shape

	// Attempts is the running history of rendered attempts, including the
	// initial render and every correction round.
	Attempts []Attempt

	// Reprompts counts correction round-trips to the model so far.
	Reprompts int
}

// Attempt is one rendered output and its validation outcome.
type Attempt struct {
	// Reprompt is 0 for the initial render (and heuristic repairs), k for
	// the k-th correction round-trip.
	Reprompt   int
	Output     string
	Validation ValidationResult
}

// NewRequestContext creates a request context for one pipeline run.
func NewRequestContext(
	prompt string,
	format Format,
	intent Intent,
	inbound StructureVerdict,
) *RequestContext {
	return &RequestContext{
		ID:      uuid.New(),
		Prompt:  prompt,
		Format:  format,
		Intent:  intent,
		Inbound: inbound,
	}
}

// RecordAttempt appends an attempt to the running history.
func (c *RequestContext) RecordAttempt(reprompt int, output string, vr ValidationResult) {
	c.Attempts = append(c.Attempts, Attempt{
		Reprompt:   reprompt,
		Output:     output,
		Validation: vr,
	})
}
