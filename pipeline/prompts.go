package pipeline

import (
	"fmt"
	"strings"

	"github.com/calebcgates/llmstruct"
)

// correctionPrompt builds the reprompt text for a failed attempt. The
// instruction is selected by error class and format family; the original
// prompt and the failed output are included when available so the model has
// the full picture.
func correctionPrompt(
	req *llmstruct.RequestContext,
	failedOutput string,
	vr llmstruct.ValidationResult,
) string {
	var sb strings.Builder

	if req.Prompt != "" {
		sb.WriteString("The original request was:\n\n")
		sb.WriteString(req.Prompt)
		sb.WriteString("\n\n")
	}
	if failedOutput != "" {
		sb.WriteString("Your previous response was:\n\n")
		sb.WriteString(failedOutput)
		sb.WriteString("\n\n")
	}

	sb.WriteString(correctionInstruction(req, vr))
	return sb.String()
}

func correctionInstruction(req *llmstruct.RequestContext, vr llmstruct.ValidationResult) string {
	format := string(req.Format)

	switch vr.ErrorType {
	case llmstruct.ErrorStructureShape:
		want := "object"
		if req.ExpectedShape == llmstruct.ShapeArray {
			want = "array"
		}
		return fmt.Sprintf(
			"The response had the wrong structure: %s. "+
				"Respond again with a single JSON %s. "+
				"Return only the %s, with no surrounding prose or code fences.",
			vr.Message, want, format)

	case llmstruct.ErrorDecode:
		switch {
		case isDataFormat(req.Format):
			msg := fmt.Sprintf(
				"The response was not valid %s: %s. "+
					"Respond again with only valid %s and nothing else.",
				format, vr.Message, format)
			return msg
		case isMarkupFormat(req.Format):
			return fmt.Sprintf(
				"The response did not contain valid %s markup: %s. "+
					"Respond again with well-formed %s only.",
				format, vr.Message, format)
		default:
			return fmt.Sprintf(
				"The %s code in the response has a syntax error: %s. "+
					"Respond again with corrected, syntactically valid %s code.%s",
				format, vr.Message, format, codeOnlySuffix(req.Intent))
		}

	case llmstruct.ErrorParseFailure:
		switch {
		case isDataFormat(req.Format):
			return fmt.Sprintf(
				"The response did not contain usable %s. "+
					"Respond again with only valid %s and nothing else.",
				format, format)
		case isMarkupFormat(req.Format):
			return fmt.Sprintf(
				"The response did not contain %s markup. "+
					"Respond again with well-formed %s only.",
				format, format)
		default:
			return fmt.Sprintf(
				"The response did not contain any %s code. "+
					"Respond again with working %s code.%s",
				format, format, codeOnlySuffix(req.Intent))
		}

	default:
		return fmt.Sprintf(
			"The previous response could not be used: %s. "+
				"Please answer the request again in valid %s.",
			vr.Message, format)
	}
}

func codeOnlySuffix(intent llmstruct.Intent) string {
	if intent == llmstruct.IntentCodeOnly {
		return " Return only the code, with no additional text."
	}
	return ""
}

func isDataFormat(f llmstruct.Format) bool {
	return f == llmstruct.FormatJSON || f == llmstruct.FormatYAML
}

func isMarkupFormat(f llmstruct.Format) bool {
	return f == llmstruct.FormatHTML || f == llmstruct.FormatXML
}

var arrayPromptHints = []string{"list of", "array", "rows", "items", "entries"}

// promptWantsArray reports whether the prompt wording asks for multiple
// records rather than a single one.
func promptWantsArray(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, hint := range arrayPromptHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
