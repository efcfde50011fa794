package parse

import (
	"regexp"
	"strings"
)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```([a-zA-Z0-9+-]*)[ \\t]*\\n?(.*?)```")
	blankRunPattern    = regexp.MustCompile(`\n{3,}`)

	// Conversational filler models wrap around the payload they were asked
	// for. The lead-in pattern is anchored so it only eats a prefix and
	// never lines inside extracted code.
	disclaimerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bas an AI(?: language)? model\b[^.!\n]*[.!]?[ \t]*`),
		regexp.MustCompile(`(?i)\bI(?:'m| am)(?: just)? an AI(?: language)? model\b[^.!\n]*[.!]?[ \t]*`),
	}
	leadInPattern = regexp.MustCompile(`(?i)^(?:(?:sure|okay|certainly|of course)[,!. ]+)?here(?:'s| is| are)\b[^:\n]*:[ \t]*\n?`)
)

// stripBoilerplate removes AI self-disclaimers and a leading "Here is the
// result:" style lead-in from text, leaving the payload for the extractors.
func stripBoilerplate(text string) string {
	for _, pattern := range disclaimerPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)
	text = leadInPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// fencedBlock is one markdown code fence with its language tag.
type fencedBlock struct {
	lang string
	body string
}

// fencedBlocks extracts every markdown code fence from text, in order.
func fencedBlocks(text string) []fencedBlock {
	matches := fencedBlockPattern.FindAllStringSubmatch(text, -1)
	blocks := make([]fencedBlock, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, fencedBlock{
			lang: strings.ToLower(m[1]),
			body: strings.Trim(m[2], "\n"),
		})
	}
	return blocks
}

// stripFences removes all code fences from text, leaving the prose between
// them. Blank runs left behind by removed fences collapse to one blank
// line.
func stripFences(text string) string {
	stripped := fencedBlockPattern.ReplaceAllString(text, "")
	stripped = blankRunPattern.ReplaceAllString(stripped, "\n\n")
	return strings.TrimSpace(stripped)
}

// extractBalanced returns the first balanced JSON object or array literal in
// text, scanning quote-aware so braces inside strings do not count. Returns
// "" when no balanced literal exists.
func extractBalanced(text string) string {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
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
				return ""
			}
			open := stack[len(stack)-1]
			if (c == '}' && open != '{') || (c == ']' && open != '[') {
				return ""
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// unwrapResult removes a single-key {"result": ...} wrapper some models add
// around the payload they were asked for.
func unwrapResult(data any) any {
	m, ok := data.(map[string]any)
	if !ok || len(m) != 1 {
		return data
	}
	inner, ok := m["result"]
	if !ok {
		return data
	}
	return inner
}
