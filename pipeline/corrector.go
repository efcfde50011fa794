package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/calebcgates/llmstruct"
	"github.com/calebcgates/llmstruct/parse"
)

// correct runs the escalation ladder over a failed attempt: heuristic
// repairs first, then bounded reprompting, then the exhausted fallback.
// Generation failures during reprompting consume an attempt and the loop
// continues; only context cancellation stops it early.
func (p *Pipeline) correct(
	ctx context.Context,
	req *llmstruct.RequestContext,
	att attemptState,
) attemptState {
	var ok bool
	if att, ok = p.repairLocally(ctx, req, att); ok {
		return att
	}

	for !att.vr.Valid && req.Reprompts < p.maxReprompts {
		if ctx.Err() != nil {
			break
		}

		prompt := correctionPrompt(req, att.output, att.vr)
		req.Reprompts++

		raw, err := p.gen.Generate(ctx, prompt)
		if err != nil {
			vr := llmstruct.Invalid(llmstruct.ErrorGeneration, err.Error())
			req.RecordAttempt(req.Reprompts, att.output, vr)
			p.log.Warn("correction reprompt failed",
				zap.String("request_id", req.ID.String()),
				zap.Int("reprompt", req.Reprompts),
				zap.Error(err))
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				att.vr = vr
				break
			}
			continue
		}

		att = p.attempt(ctx, req, raw, req.Reprompts)
		if !att.vr.Valid {
			if att, ok = p.repairLocally(ctx, req, att); ok {
				return att
			}
		}
	}

	if att.vr.Valid {
		return att
	}
	return p.exhausted(req, att)
}

// repairLocally applies model-free repairs to a failed data-format attempt:
// promoting text that parses as structured data, and fixing top-level
// container mismatches by wrapping or unwrapping. Reports whether the
// repaired attempt now validates.
func (p *Pipeline) repairLocally(
	ctx context.Context,
	req *llmstruct.RequestContext,
	att attemptState,
) (attemptState, bool) {
	if p.langs.Family(req.Format) != llmstruct.FamilyData {
		return att, false
	}

	repaired := false

	if att.rep.StructuredData == nil && att.rep.Text != "" {
		if data, ok := parse.Data(att.rep.Text, req.Format); ok {
			att.rep.StructuredData = data
			att.rep.Flag = nil
			repaired = true
		}
	}

	if att.vr.ErrorType == llmstruct.ErrorStructureShape || repaired {
		if reshapeData(att.rep, req.ExpectedShape) {
			repaired = true
		}
	}

	if !repaired {
		return att, false
	}
	att = p.rerender(ctx, req, att, currentReprompt(req))
	return att, att.vr.Valid
}

// reshapeData coerces the top-level container of structured data toward the
// expected shape: wrapping a lone object into an array, or unwrapping a
// single-object array.
func reshapeData(rep *llmstruct.CanonicalRepresentation, want llmstruct.Shape) bool {
	if rep.StructuredData == nil || want == llmstruct.ShapeNone {
		return false
	}
	got := rep.DataShape()
	if got == want {
		return false
	}

	switch want {
	case llmstruct.ShapeArray:
		rep.StructuredData = []any{rep.StructuredData}
		return true
	case llmstruct.ShapeObject:
		arr, ok := rep.StructuredData.([]any)
		if !ok || len(arr) != 1 {
			return false
		}
		obj, ok := arr[0].(map[string]any)
		if !ok {
			return false
		}
		rep.StructuredData = obj
		return true
	}
	return false
}

// exhausted picks the final answer once correction gives up: the first
// fallback-allowed attempt if any, otherwise the most recent attempt with
// output.
func (p *Pipeline) exhausted(req *llmstruct.RequestContext, att attemptState) attemptState {
	for _, a := range req.Attempts {
		if a.Validation.FallbackAllowed && a.Output != "" {
			att.output = a.Output
			att.vr = a.Validation
			p.log.Info("correction exhausted, using fallback attempt",
				zap.String("request_id", req.ID.String()),
				zap.Int("reprompts", req.Reprompts))
			return att
		}
	}

	for i := len(req.Attempts) - 1; i >= 0; i-- {
		if req.Attempts[i].Output != "" {
			att.output = req.Attempts[i].Output
			att.vr = req.Attempts[i].Validation
			break
		}
	}
	p.log.Info("correction exhausted",
		zap.String("request_id", req.ID.String()),
		zap.Int("reprompts", req.Reprompts),
		zap.String("error_type", string(att.vr.ErrorType)))
	return att
}

// currentReprompt returns the reprompt index of the most recent attempt, so
// local repairs are recorded against the round that produced them.
func currentReprompt(req *llmstruct.RequestContext) int {
	if len(req.Attempts) == 0 {
		return 0
	}
	return req.Attempts[len(req.Attempts)-1].Reprompt
}
