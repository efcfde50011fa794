package render

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/calebcgates/llmstruct"
)

// markupRenderer produces HTML or XML. Extracted markup passes through
// untouched; structured data is reflowed into tables and lists; bare text
// becomes an escaped paragraph so the output is never empty and never
// injects unescaped content.
type markupRenderer struct{}

func (m *markupRenderer) CanHandle(format llmstruct.Format) bool {
	return format == llmstruct.FormatHTML || format == llmstruct.FormatXML
}

func (m *markupRenderer) Render(
	rep *llmstruct.CanonicalRepresentation,
	format llmstruct.Format,
	_ llmstruct.Intent,
) (string, error) {
	if rep.Markup != "" {
		return rep.Markup, nil
	}

	if format == llmstruct.FormatXML {
		return m.renderXML(rep), nil
	}

	if rep.StructuredData != nil {
		return reflowHTML(rep.StructuredData), nil
	}
	return fmt.Sprintf("<p>%s</p>", html.EscapeString(rep.Text)), nil
}

func (m *markupRenderer) renderXML(rep *llmstruct.CanonicalRepresentation) string {
	var sb strings.Builder
	sb.WriteString("<response>")
	if rep.StructuredData != nil {
		writeXMLValue(&sb, rep.StructuredData)
	} else {
		sb.WriteString(html.EscapeString(rep.Text))
	}
	sb.WriteString("</response>")
	return sb.String()
}

func writeXMLValue(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(val) {
			fmt.Fprintf(sb, "<%s>", xmlName(k))
			writeXMLValue(sb, val[k])
			fmt.Fprintf(sb, "</%s>", xmlName(k))
		}
	case []any:
		for _, item := range val {
			sb.WriteString("<item>")
			writeXMLValue(sb, item)
			sb.WriteString("</item>")
		}
	default:
		sb.WriteString(html.EscapeString(fmt.Sprint(val)))
	}
}

// xmlName sanitizes a map key into a usable element name.
func xmlName(k string) string {
	var sb strings.Builder
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	name := sb.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return name
}

// reflowHTML renders a structured-data tree as HTML: a table for rows of
// objects or a single object, a list for scalar slices, a paragraph for
// scalars.
func reflowHTML(data any) string {
	switch val := data.(type) {
	case []any:
		if rows, ok := objectRows(val); ok {
			return renderTable(rows)
		}
		return renderList(val)
	case map[string]any:
		return renderKeyValueTable(val)
	default:
		return fmt.Sprintf("<p>%s</p>", html.EscapeString(fmt.Sprint(val)))
	}
}

// objectRows reports whether every element is an object, returning the
// typed rows when so.
func objectRows(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, m)
	}
	return rows, true
}

func renderTable(rows []map[string]any) string {
	headerSet := map[string]bool{}
	for _, row := range rows {
		for k := range row {
			headerSet[k] = true
		}
	}
	headers := make([]string, 0, len(headerSet))
	for k := range headerSet {
		headers = append(headers, k)
	}
	sort.Strings(headers)

	var sb strings.Builder
	sb.WriteString("<table>\n  <tr>")
	for _, h := range headers {
		fmt.Fprintf(&sb, "<th>%s</th>", html.EscapeString(h))
	}
	sb.WriteString("</tr>\n")
	for _, row := range rows {
		sb.WriteString("  <tr>")
		for _, h := range headers {
			cell := ""
			if v, ok := row[h]; ok && v != nil {
				cell = fmt.Sprint(v)
			}
			fmt.Fprintf(&sb, "<td>%s</td>", html.EscapeString(cell))
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>")
	return sb.String()
}

func renderKeyValueTable(obj map[string]any) string {
	var sb strings.Builder
	sb.WriteString("<table>\n")
	for _, k := range sortedKeys(obj) {
		fmt.Fprintf(&sb, "  <tr><th>%s</th><td>%s</td></tr>\n",
			html.EscapeString(k), html.EscapeString(fmt.Sprint(obj[k])))
	}
	sb.WriteString("</table>")
	return sb.String()
}

func renderList(items []any) string {
	var sb strings.Builder
	sb.WriteString("<ul>\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "  <li>%s</li>\n", html.EscapeString(fmt.Sprint(item)))
	}
	sb.WriteString("</ul>")
	return sb.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
