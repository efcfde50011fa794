package llmstruct

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Generator produces raw model text for a prompt. Implementations must
// honor ctx cancellation and return a [GenerationError] on failure so the
// corrector can distinguish model failures from validation failures.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationErrorKind tells the corrector what went wrong at the model
// boundary.
type GenerationErrorKind string

const (
	// GenerationTimeout means the call exceeded its deadline.
	GenerationTimeout GenerationErrorKind = "timeout"

	// GenerationTransport means the call failed before producing a
	// completion.
	GenerationTransport GenerationErrorKind = "transport"

	// GenerationMalformed means the call succeeded but produced an
	// unusable completion, such as an empty string.
	GenerationMalformed GenerationErrorKind = "malformed"
)

// GenerationError is a failed model call.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("llmstruct: generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// LangChainGenerator adapts any langchaingo [llms.Model] to the [Generator]
// interface.
type LangChainGenerator struct {
	model    llms.Model
	timeout  time.Duration
	callOpts []llms.CallOption
}

// NewLangChainGenerator creates a generator backed by model.
func NewLangChainGenerator(model llms.Model) *LangChainGenerator {
	return &LangChainGenerator{model: model}
}

// WithTimeout sets a per-call deadline. Zero means no deadline beyond the
// caller's ctx. Returns the receiver for chaining.
func (g *LangChainGenerator) WithTimeout(d time.Duration) *LangChainGenerator {
	g.timeout = d
	return g
}

// WithCallOptions sets langchaingo call options applied to every call.
// Returns the receiver for chaining.
func (g *LangChainGenerator) WithCallOptions(opts ...llms.CallOption) *LangChainGenerator {
	g.callOpts = opts
	return g
}

// Generate calls the model with a single prompt and returns its completion.
func (g *LangChainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, g.callOpts...)
	if err != nil {
		kind := GenerationTransport
		if errors.Is(err, context.DeadlineExceeded) {
			kind = GenerationTimeout
		}
		return "", &GenerationError{Kind: kind, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &GenerationError{
			Kind: GenerationMalformed,
			Err:  errors.New("model returned an empty completion"),
		}
	}
	return out, nil
}
