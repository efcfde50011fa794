package llmstruct

import (
	"errors"
	"fmt"
)

// ErrorType classifies a pipeline failure. The corrector selects its repair
// strategy from this classification, so decode failures (malformed syntax)
// must never be reported as shape failures and vice versa.
type ErrorType string

const (
	// ErrorDecode is malformed syntax in the rendered output. Carries
	// position information where the format's parser provides it.
	ErrorDecode ErrorType = "decode"

	// ErrorStructureShape is well-formed output with the wrong top-level
	// container kind (object vs array), or a schema violation.
	ErrorStructureShape ErrorType = "structure_shape"

	// ErrorParseFailure means an extractor found nothing usable in the raw
	// model text.
	ErrorParseFailure ErrorType = "parse_failure"

	// ErrorGeneration is a failed or timed-out call to the model.
	ErrorGeneration ErrorType = "generation"

	// ErrorSink is a failed append to the feedback sink. Always swallowed
	// after logging; never surfaces to the caller.
	ErrorSink ErrorType = "sink"
)

// Parse and rendering errors.
var (
	// ErrNoRenderer is returned when no renderer is registered for a format
	// tag. The caller must treat this as an error; there is no fallback
	// renderer.
	ErrNoRenderer = errors.New("llmstruct: no renderer registered for format")

	// ErrNothingExtracted flags a representation whose extractor found no
	// usable content in the raw text.
	ErrNothingExtracted = errors.New("llmstruct: extractor found nothing usable")

	// ErrNoCodeFound flags a code-format representation whose fragments had
	// to be synthesized because the raw text contained no code.
	ErrNoCodeFound = errors.New("llmstruct: no code fragments found in model output")
)

// Position locates a syntax error in rendered text. Line and Column are
// 1-based; Offset is the 0-based byte offset.
type Position struct {
	Line   int
	Column int
	Offset int64
}

// DecodeError reports malformed syntax for a specific format.
type DecodeError struct {
	Format Format
	Msg    string
	Pos    *Position
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s decode error at line %d, column %d: %s",
			e.Format, e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return fmt.Sprintf("%s decode error: %s", e.Format, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StructureShapeError reports well-formed structured data with the wrong
// top-level container kind.
type StructureShapeError struct {
	Want Shape
	Got  Shape
}

func (e *StructureShapeError) Error() string {
	return fmt.Sprintf("expected a JSON %s, but got a JSON %s", e.Want, e.Got)
}

// ValidationResult is the outcome of validating rendered output. The zero
// value is not meaningful; use [Valid] or [Invalid].
type ValidationResult struct {
	Valid bool

	// ErrorType classifies the failure. Unset when Valid.
	ErrorType ErrorType

	// Message is a human-readable description of the failure, suitable for
	// inclusion in a correction prompt.
	Message string

	// Pos locates the failure when the format's parser reports one.
	Pos *Position

	// FallbackAllowed signals formats (markup) where a structurally
	// imperfect but non-empty result may still be accepted rather than
	// triggering another correction round.
	FallbackAllowed bool
}

// Valid returns a passing validation result.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid returns a failing validation result.
func Invalid(errType ErrorType, message string) ValidationResult {
	return ValidationResult{ErrorType: errType, Message: message}
}
