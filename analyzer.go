package llmstruct

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// biasWeight scales how far a stored bias can shift a heuristic base score.
// A fully confident bias (1.0) shifts the base by +0.1, a fully distrusted
// one (0.0) by -0.1.
const biasWeight = 0.2

// Analyzer classifies raw text into a structural category with a confidence
// score, for both inbound caller text and outbound model text.
//
// Classification is layered: a strict parse for the hinted family first,
// structural fingerprints (balanced delimiters, tag density, keyword
// density, row consistency) on failure, and an explicit catch-all category
// when nothing matches. Both methods are pure functions of their arguments
// plus a read of the [ConfidenceStore]; the analyzer never writes the store.
type Analyzer struct {
	store *ConfidenceStore
	langs *LanguageTable
}

// NewAnalyzer creates an analyzer reading biases from store and keyword
// lists from langs.
func NewAnalyzer(store *ConfidenceStore, langs *LanguageTable) *Analyzer {
	return &Analyzer{store: store, langs: langs}
}

// verdict assembles a StructureVerdict, shifting the heuristic base score by
// the stored bias for (surface, category).
func (a *Analyzer) verdict(
	surface Surface,
	category Category,
	base float64,
	features map[string]any,
	metadata map[string]any,
) StructureVerdict {
	if features == nil {
		features = map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	bias := a.store.Bias(surface, category)
	return StructureVerdict{
		Surface:    surface,
		Category:   category,
		Confidence: clamp01(base + (bias-NeutralBias)*biasWeight),
		Features:   features,
		Metadata:   metadata,
	}
}

var (
	tabularKeywords = []string{"table", "tabular", "row", "column"}
	listKeywords    = []string{"list", "item", "number", "bullet"}

	indentPattern    = regexp.MustCompile(`(?m)^( {2,}|\t+)`)
	listLinePattern  = regexp.MustCompile(`(?m)^\s*([-*]|\d+\.)\s`)
	tableLinePattern = regexp.MustCompile(`\|.*?\|.*?\|`)
	fencePattern     = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// AnalyzeInput classifies the caller's input text using the content-type
// hint and structural heuristics. The result is never empty: unrecognized
// shapes map to an explicit unstructured or other category.
func (a *Analyzer) AnalyzeInput(text, contentTypeHint string) StructureVerdict {
	hint := strings.ToLower(strings.TrimSpace(contentTypeHint))
	if i := strings.IndexByte(hint, ';'); i >= 0 {
		hint = strings.TrimSpace(hint[:i])
	}

	switch {
	case hint == "application/json":
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			features := map[string]any{"is_valid_json": true}
			if shape := shapeOf(parsed); shape != ShapeNone {
				features["json_type"] = string(shape)
			}
			return a.verdict(SurfaceInput, CategoryJSONInput, 0.95, features, nil)
		}
		return a.verdict(SurfaceInput, CategoryJSONLikeInput, 0.6,
			map[string]any{"is_valid_json": false}, nil)

	case hint == "text/csv":
		features, metadata := csvFingerprint(text)
		return a.verdict(SurfaceInput, CategoryCSVInput, 0.9, features, metadata)

	case hint == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(text)
		if err != nil {
			return a.verdict(SurfaceInput, CategoryFormInput, 0.5, nil, nil)
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		return a.verdict(SurfaceInput, CategoryFormInput, 0.9,
			map[string]any{"key_value_pair_count": len(values)},
			map[string]any{"form_keys": keys})

	case hint == "application/xml" || hint == "text/xml":
		if hasXMLRoot(text) {
			return a.verdict(SurfaceInput, CategoryXMLInput, 0.8,
				map[string]any{"has_root_element": true}, nil)
		}
		return a.verdict(SurfaceInput, CategoryXMLInput, 0.4,
			map[string]any{"is_valid_xml": false}, nil)

	case hint == "" || strings.HasPrefix(hint, "text/plain"):
		lower := strings.ToLower(text)
		switch {
		case containsAny(lower, tabularKeywords):
			return a.verdict(SurfaceInput, CategoryTabularTextInput, 0.7, nil, nil)
		case containsAny(lower, listKeywords):
			return a.verdict(SurfaceInput, CategoryListTextInput, 0.7, nil, nil)
		case a.looksLikeCode(text):
			return a.verdict(SurfaceInput, CategoryCodeTextInput, 0.7,
				map[string]any{"keywords": a.codeKeywordsFound(text)}, nil)
		default:
			return a.verdict(SurfaceInput, CategoryUnstructuredInput, 0.7, nil, nil)
		}

	default:
		return a.verdict(SurfaceInput, CategoryOtherInput, 0.1, nil, nil)
	}
}

// AnalyzeOutput classifies raw model output text against the requested
// format. When the format is unknown the analyzer still fingerprints the
// text rather than failing.
func (a *Analyzer) AnalyzeOutput(text string, requestedFormat Format) StructureVerdict {
	switch a.langs.Family(requestedFormat) {
	case FamilyData:
		return a.analyzeDataOutput(text, requestedFormat)
	case FamilyMarkup:
		return a.analyzeMarkupOutput(text)
	case FamilyScripting, FamilyImperative, FamilyStyling, FamilyQuery:
		return a.analyzeCodeOutput(text, requestedFormat)
	}

	if requestedFormat == FormatPlainText {
		return a.analyzePlainTextOutput(text)
	}

	// Unknown format: fingerprint anyway.
	sanitized := SanitizeDataArtifacts(text)
	switch {
	case isBalancedDataLiteral(sanitized):
		return a.verdict(SurfaceOutput, CategoryJSONLikeOutput, 0.6, nil, nil)
	case looksLikeMarkup(text):
		return a.verdict(SurfaceOutput, CategoryGenericHTMLOutput, 0.6, nil, nil)
	case a.looksLikeCode(text):
		return a.verdict(SurfaceOutput, CategoryCodeOutput, 0.6, nil, nil)
	default:
		return a.verdict(SurfaceOutput, CategoryUnknownOutput, 0.1, nil, nil)
	}
}

func (a *Analyzer) analyzeDataOutput(text string, format Format) StructureVerdict {
	sanitized := SanitizeDataArtifacts(text)

	var parsed any
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal([]byte(sanitized), &parsed)
		// A bare string unmarshals as a YAML scalar; that is not
		// structured output.
		if _, isScalar := parsed.(string); err == nil && isScalar {
			err = io.ErrUnexpectedEOF
		}
	} else {
		err = json.Unmarshal([]byte(sanitized), &parsed)
	}

	if err == nil {
		features := map[string]any{"is_valid_json": true}
		if shape := shapeOf(parsed); shape != ShapeNone {
			features["json_type"] = string(shape)
		}
		return a.verdict(SurfaceOutput, CategoryValidJSONOutput, 0.95, features, nil)
	}

	if isBalancedDataLiteral(sanitized) {
		return a.verdict(SurfaceOutput, CategoryJSONLikeOutput, 0.6,
			map[string]any{"is_valid_json": false}, nil)
	}
	return a.verdict(SurfaceOutput, CategoryInvalidJSONOutput, 0.2,
		map[string]any{"is_valid_json": false}, nil)
}

func (a *Analyzer) analyzeMarkupOutput(text string) StructureVerdict {
	outline := markupOutline(text)

	switch {
	case outline.tables > 0:
		return a.verdict(SurfaceOutput, CategoryHTMLTableOutput, 0.9,
			map[string]any{"has_table": true},
			map[string]any{
				"html_table_headers":   outline.tableHeaders,
				"html_table_row_count": outline.tableRows,
				"html_table_col_count": outline.tableCols,
			})
	case outline.lists > 0:
		return a.verdict(SurfaceOutput, CategoryHTMLListOutput, 0.8,
			map[string]any{"has_list": true}, nil)
	case outline.paragraphs > 0:
		return a.verdict(SurfaceOutput, CategoryHTMLParagraphOutput, 0.8,
			map[string]any{"has_paragraphs": true}, nil)
	case outline.elements > 0:
		return a.verdict(SurfaceOutput, CategoryGenericHTMLOutput, 0.7, nil, nil)
	default:
		return a.verdict(SurfaceOutput, CategoryHTMLFailedOutput, 0.2, nil, nil)
	}
}

func (a *Analyzer) analyzeCodeOutput(text string, format Format) StructureVerdict {
	cfg, _ := a.langs.Lookup(format)
	found := keywordsFound(text, cfg.Keywords)

	if len(found) > 0 || indentPattern.MatchString(text) {
		snippets := fencePattern.FindAllString(text, -1)
		return a.verdict(SurfaceOutput, CategoryCodeOutput, 0.8,
			map[string]any{
				"keywords":      found,
				"fenced_blocks": len(snippets),
			}, nil)
	}
	return a.verdict(SurfaceOutput, CategoryNoCodeOutput, 0.2, nil, nil)
}

func (a *Analyzer) analyzePlainTextOutput(text string) StructureVerdict {
	switch {
	case listLinePattern.MatchString(text):
		return a.verdict(SurfaceOutput, CategoryTextListOutput, 0.7, nil, nil)
	case tableLinePattern.MatchString(text):
		return a.verdict(SurfaceOutput, CategoryTextTableOutput, 0.6, nil, nil)
	default:
		return a.verdict(SurfaceOutput, CategoryTextParagraphOutput, 0.8, nil, nil)
	}
}

// looksLikeCode reports whether text carries code fingerprints: keywords
// from any configured language, or consistent leading indentation.
func (a *Analyzer) looksLikeCode(text string) bool {
	if indentPattern.MatchString(text) {
		return true
	}
	return len(a.codeKeywordsFound(text)) > 0
}

// codeKeywordsFound collects keywords from every configured language that
// appear in the text, deduplicated.
func (a *Analyzer) codeKeywordsFound(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, format := range a.langs.All() {
		cfg, _ := a.langs.Lookup(format)
		for _, kw := range keywordsFound(text, cfg.Keywords) {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Structural fingerprints
// -----------------------------------------------------------------------------

// SanitizeDataArtifacts removes generation artifacts that break strict
// structured-data parsing: markdown code fences, a single trailing '%'
// (shell prompt artifact), and surrounding whitespace.
func SanitizeDataArtifacts(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "%")
	return strings.TrimSpace(trimmed)
}

// isBalancedDataLiteral reports whether text starts and ends like a JSON
// object or array and all braces/brackets outside quoted strings balance.
func isBalancedDataLiteral(text string) bool {
	if len(text) < 2 {
		return false
	}
	first, last := text[0], text[len(text)-1]
	if !((first == '{' && last == '}') || (first == '[' && last == ']')) {
		return false
	}

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return false
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if (c == '}' && open != '{') || (c == ']' && open != '[') {
				return false
			}
		}
	}
	return len(stack) == 0 && !inString
}

// looksLikeMarkup reports whether text contains common structural HTML tags.
func looksLikeMarkup(text string) bool {
	lower := strings.ToLower(text)
	for _, tag := range []string{"<html", "<body", "<div", "<table", "<p", "<ul", "<ol"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func keywordsFound(text string, keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func shapeOf(v any) Shape {
	switch v.(type) {
	case map[string]any:
		return ShapeObject
	case []any:
		return ShapeArray
	default:
		return ShapeNone
	}
}

// csvFingerprint extracts header and row-consistency features from CSV-ish
// text without a full CSV parse.
func csvFingerprint(text string) (map[string]any, map[string]any) {
	features := map[string]any{}
	metadata := map[string]any{}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return features, metadata
	}

	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	metadata["csv_headers"] = headers
	features["column_count"] = len(headers)
	features["row_count"] = len(lines) - 1

	if len(lines) > 1 {
		want := len(strings.Split(lines[1], ","))
		consistent := true
		for _, line := range lines[1:] {
			if len(strings.Split(line, ",")) != want {
				consistent = false
				break
			}
		}
		features["is_consistent_columns"] = consistent
	}
	return features, metadata
}

// hasXMLRoot reports whether the text contains at least one well-formed XML
// start element.
func hasXMLRoot(text string) bool {
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

// markupSummary describes the element outline of parsed markup.
type markupSummary struct {
	elements     int
	tables       int
	lists        int
	paragraphs   int
	tableHeaders []string
	tableRows    int
	tableCols    int
}

// markupOutline parses text leniently as HTML and counts the structural
// elements present in the source. The html, head, and body elements the
// parser synthesizes around bare text are not counted.
func markupOutline(text string) markupSummary {
	var summary markupSummary

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return summary
	}

	var firstTable *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html", "head", "body":
				// Synthesized wrappers.
			case "table":
				summary.elements++
				summary.tables++
				if firstTable == nil {
					firstTable = n
				}
			case "ul", "ol":
				summary.elements++
				summary.lists++
			case "p":
				summary.elements++
				summary.paragraphs++
			default:
				summary.elements++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if firstTable != nil {
		summary.tableHeaders, summary.tableRows, summary.tableCols = tableDimensions(firstTable)
	}
	return summary
}

// tableDimensions extracts header texts and row/column counts from a parsed
// table element.
func tableDimensions(table *html.Node) ([]string, int, int) {
	var headers []string
	rows := 0
	firstRowCells := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "th":
				headers = append(headers, strings.TrimSpace(nodeText(n)))
			case "tr":
				rows++
				if rows == 1 && firstRowCells == 0 {
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
							firstRowCells++
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)

	cols := len(headers)
	if cols == 0 {
		cols = firstRowCells
	}
	if len(headers) > 0 && rows > 0 {
		rows-- // Exclude the header row from the data row count.
	}
	return headers, rows, cols
}

// nodeText concatenates the text content beneath a node.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
