// Package llmstruct turns raw, often malformed language-model output into
// valid text in a caller-requested format.
//
// The library sits between a caller that wants a specific output shape
// (structured data, markup, source code, or prose) and a model that produces
// free text. It infers the structural shape of the raw text, coerces it into
// a canonical representation, renders that representation into the requested
// format, validates the result, and repairs failures with local heuristics
// followed by bounded re-prompting of the model. Outcomes feed a confidence
// store that biases future structural guesses.
//
// # Quick Start
//
//	store := llmstruct.NewConfidenceStore()
//	langs := llmstruct.DefaultLanguageTable()
//	analyzer := llmstruct.NewAnalyzer(store, langs)
//
//	gen := llmstruct.NewLangChainGenerator(model).
//	    WithTimeout(60 * time.Second)
//
//	p := pipeline.New(gen,
//	    pipeline.WithConfidenceStore(store),
//	    pipeline.WithMaxRepromptAttempts(4),
//	    pipeline.WithSink(llmstruct.NewJSONLinesSink(logFile)),
//	)
//
//	inbound := analyzer.AnalyzeInput(userText, "text/plain")
//	final, result := p.Run(ctx, rawModelText, llmstruct.FormatJSON,
//	    llmstruct.IntentNone, inbound)
//
// Run always returns some text. The ValidationResult tells the caller whether
// the text is trustworthy; deciding the final status code is the caller's job.
//
// # Components
//
// The root package holds the data model and the leaf components:
//
//   - [Analyzer] classifies text shape on both surfaces (caller input,
//     model output) with a confidence score.
//   - [ConfidenceStore] holds per-(surface, category) confidence biases,
//     read by the analyzer and adjusted by the [Recorder].
//   - [Recorder] applies outcome feedback to the store and appends an
//     immutable record of each interaction to a [Sink].
//   - [Generator] is the outbound boundary to the model. The
//     [LangChainGenerator] adapter wraps any langchaingo [llms.Model].
//   - [LanguageTable] is the immutable per-format configuration (family,
//     keywords, comment syntax) shared by the analyzer and renderers.
//
// Format-specific strategies live in subpackages: parse (raw text to
// [CanonicalRepresentation]), render (representation to final text),
// validate (format rules), and pipeline (orchestration and correction).
package llmstruct
