// Package pipeline orchestrates one request through analysis, parsing,
// rendering, validation, and correction.
//
// The pipeline always returns some text. Correction is bounded: cheap local
// repairs first, then at most a configured number of round-trips back to
// the model, then a deliberate fallback. The caller reads the returned
// validation result to decide how much to trust the text.
package pipeline

import (
	"context"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/calebcgates/llmstruct"
	"github.com/calebcgates/llmstruct/parse"
	"github.com/calebcgates/llmstruct/render"
	"github.com/calebcgates/llmstruct/validate"
)

// DefaultMaxReprompts is the default bound on correction round-trips to the
// model per request.
const DefaultMaxReprompts = 4

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithMaxRepromptAttempts bounds correction round-trips to the model.
// Negative values are treated as zero.
func WithMaxRepromptAttempts(n int) Option {
	return func(p *Pipeline) {
		if n < 0 {
			n = 0
		}
		p.maxReprompts = n
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithSink sets the feedback sink records are appended to.
func WithSink(sink llmstruct.Sink) Option {
	return func(p *Pipeline) { p.sink = sink }
}

// WithSinkWriter is shorthand for WithSink(llmstruct.NewJSONLinesSink(w)).
func WithSinkWriter(w io.Writer) Option {
	return func(p *Pipeline) { p.sink = llmstruct.NewJSONLinesSink(w) }
}

// WithConfidenceStore sets the confidence store shared with the caller's
// analyzer. Defaults to a fresh store.
func WithConfidenceStore(store *llmstruct.ConfidenceStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithLanguageTable overrides the language table. Defaults to
// [llmstruct.DefaultLanguageTable].
func WithLanguageTable(langs *llmstruct.LanguageTable) Option {
	return func(p *Pipeline) { p.langs = langs }
}

// WithSchema applies a compiled JSON Schema to structured-data output.
func WithSchema(schema *jsonschema.Schema) Option {
	return func(p *Pipeline) { p.schema = schema }
}

// Pipeline processes raw model output into validated text in a requested
// format. Construct with [New]; a pipeline is safe for concurrent use.
type Pipeline struct {
	gen   llmstruct.Generator
	langs *llmstruct.LanguageTable
	store *llmstruct.ConfidenceStore
	sink  llmstruct.Sink
	log   *zap.Logger

	schema       *jsonschema.Schema
	maxReprompts int

	analyzer  *llmstruct.Analyzer
	parser    *parse.Parser
	renderers *render.Registry
	validator *validate.Validator
	recorder  *llmstruct.Recorder
}

// New creates a pipeline that reprompts through gen when local repairs are
// not enough.
func New(gen llmstruct.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:          gen,
		maxReprompts: DefaultMaxReprompts,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.langs == nil {
		p.langs = llmstruct.DefaultLanguageTable()
	}
	if p.store == nil {
		p.store = llmstruct.NewConfidenceStore()
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}

	p.analyzer = llmstruct.NewAnalyzer(p.store, p.langs)
	p.parser = parse.New(p.langs)
	p.renderers = render.NewRegistry(p.langs)
	p.validator = validate.New(p.langs)
	if p.schema != nil {
		p.validator.WithSchema(p.schema)
	}
	p.recorder = llmstruct.NewRecorder(p.store, p.sink, p.log)
	return p
}

// Renderers exposes the renderer registry so callers can register custom
// renderers before the first request.
func (p *Pipeline) Renderers() *render.Registry { return p.renderers }

// Run processes raw model output for a request without an original prompt.
// Correction prompts degrade gracefully when the prompt is unknown; use
// [Pipeline.RunWithContext] to supply it.
func (p *Pipeline) Run(
	ctx context.Context,
	raw string,
	format llmstruct.Format,
	intent llmstruct.Intent,
	inbound llmstruct.StructureVerdict,
) (string, llmstruct.ValidationResult) {
	req := llmstruct.NewRequestContext("", format, intent, inbound)
	return p.RunWithContext(ctx, req, raw)
}

// RunWithContext processes raw model output for a fully populated request
// context. The returned string is always non-empty for non-empty input;
// the validation result reports whether it met the format's contract.
func (p *Pipeline) RunWithContext(
	ctx context.Context,
	req *llmstruct.RequestContext,
	raw string,
) (string, llmstruct.ValidationResult) {
	if req.ExpectedShape == llmstruct.ShapeNone &&
		p.langs.Family(req.Format) == llmstruct.FamilyData {
		req.ExpectedShape = expectedShape(req)
	}

	att := p.attempt(ctx, req, raw, 0)
	if !att.vr.Valid {
		att = p.correct(ctx, req, att)
	}

	p.recorder.Record(req, llmstruct.Outcome{
		Success:   att.vr.Valid,
		ErrorType: att.vr.ErrorType,
		Outbound:  att.verdict,
	})

	p.log.Debug("request completed",
		zap.String("request_id", req.ID.String()),
		zap.String("format", string(req.Format)),
		zap.Bool("valid", att.vr.Valid),
		zap.Int("reprompts", req.Reprompts))
	return att.output, att.vr
}

// attemptState is the working state of one render attempt.
type attemptState struct {
	rep     *llmstruct.CanonicalRepresentation
	verdict llmstruct.StructureVerdict
	output  string
	vr      llmstruct.ValidationResult
}

// attempt runs one pass of analyze, parse, render, validate over raw text
// and appends the outcome to the request history.
func (p *Pipeline) attempt(
	ctx context.Context,
	req *llmstruct.RequestContext,
	raw string,
	reprompt int,
) attemptState {
	verdict := p.analyzer.AnalyzeOutput(raw, req.Format)
	rep := p.parser.Parse(raw, req.Format, req.Intent, verdict)

	output, err := p.renderers.Render(rep, req.Format, req.Intent)
	var vr llmstruct.ValidationResult
	if err != nil {
		vr = llmstruct.Invalid(llmstruct.ErrorParseFailure, err.Error())
		output = rep.Text
	} else {
		vr = p.validator.Output(ctx, output, req.Format, req.ExpectedShape)
	}

	req.RecordAttempt(reprompt, output, vr)
	return attemptState{rep: rep, verdict: verdict, output: output, vr: vr}
}

// rerender re-renders and re-validates a locally repaired representation
// without consuming a reprompt.
func (p *Pipeline) rerender(
	ctx context.Context,
	req *llmstruct.RequestContext,
	att attemptState,
	reprompt int,
) attemptState {
	output, err := p.renderers.Render(att.rep, req.Format, req.Intent)
	if err != nil {
		att.vr = llmstruct.Invalid(llmstruct.ErrorParseFailure, err.Error())
		req.RecordAttempt(reprompt, att.output, att.vr)
		return att
	}
	att.output = output
	att.vr = p.validator.Output(ctx, output, req.Format, req.ExpectedShape)
	req.RecordAttempt(reprompt, output, att.vr)
	return att
}

// expectedShape derives the expected top-level container for structured
// output from the inbound classification and the prompt wording.
func expectedShape(req *llmstruct.RequestContext) llmstruct.Shape {
	switch req.Inbound.Category {
	case llmstruct.CategoryCSVInput, llmstruct.CategoryTabularTextInput,
		llmstruct.CategoryListTextInput:
		return llmstruct.ShapeArray
	}
	if t, ok := req.Inbound.Features["json_type"].(string); ok &&
		llmstruct.Shape(t) == llmstruct.ShapeArray {
		return llmstruct.ShapeArray
	}
	if promptWantsArray(req.Prompt) {
		return llmstruct.ShapeArray
	}
	return llmstruct.ShapeObject
}
