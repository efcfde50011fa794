package llmstruct

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRequest(inCat Category) *RequestContext {
	return NewRequestContext("prompt", FormatJSON, IntentNone, StructureVerdict{
		Surface:  SurfaceInput,
		Category: inCat,
	})
}

func TestRecorderAdjustsBiases(t *testing.T) {
	tests := []struct {
		name        string
		inCat       Category
		outCat      Category
		outcome     Outcome
		expectedIn  float64
		expectedOut float64
	}{
		{
			name:        "success raises both surfaces",
			inCat:       CategoryJSONInput,
			outCat:      CategoryValidJSONOutput,
			outcome:     Outcome{Success: true},
			expectedIn:  0.55,
			expectedOut: 0.55,
		},
		{
			name:        "failure lowers both surfaces",
			inCat:       CategoryJSONInput,
			outCat:      CategoryInvalidJSONOutput,
			outcome:     Outcome{Success: false, ErrorType: ErrorParseFailure},
			expectedIn:  0.40,
			expectedOut: 0.40,
		},
		{
			name:        "tabular input takes extra penalty on structural failure",
			inCat:       CategoryTabularTextInput,
			outCat:      CategoryInvalidJSONOutput,
			outcome:     Outcome{Success: false, ErrorType: ErrorStructureShape},
			expectedIn:  0.30,
			expectedOut: 0.40,
		},
		{
			name:        "tabular input takes no extra penalty on decode failure",
			inCat:       CategoryTabularTextInput,
			outCat:      CategoryInvalidJSONOutput,
			outcome:     Outcome{Success: false, ErrorType: ErrorDecode},
			expectedIn:  0.40,
			expectedOut: 0.40,
		},
		{
			name:        "table-like output takes extra penalty on structural failure",
			inCat:       CategoryUnstructuredInput,
			outCat:      CategoryTextTableOutput,
			outcome:     Outcome{Success: false, ErrorType: ErrorParseFailure},
			expectedIn:  0.40,
			expectedOut: 0.30,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			store := NewConfidenceStore()
			recorder := NewRecorder(store, nil, zap.NewNop())

			req := testRequest(test.inCat)
			test.outcome.Outbound = StructureVerdict{
				Surface:  SurfaceOutput,
				Category: test.outCat,
			}
			rec := recorder.Record(req, test.outcome)

			assert.InDelta(t, test.expectedIn, store.Bias(SurfaceInput, test.inCat), 1e-9)
			assert.InDelta(t, test.expectedOut, store.Bias(SurfaceOutput, test.outCat), 1e-9)
			assert.InDelta(t, test.expectedIn, rec.InputBias, 1e-9)
			assert.InDelta(t, test.expectedOut, rec.OutputBias, 1e-9)
		})
	}
}

func TestRecorderWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	store := NewConfidenceStore()
	recorder := NewRecorder(store, NewJSONLinesSink(&buf), nil)

	req := testRequest(CategoryJSONInput)
	req.Reprompts = 2
	recorder.Record(req, Outcome{
		Success:   false,
		ErrorType: ErrorStructureShape,
		Outbound:  StructureVerdict{Surface: SurfaceOutput, Category: CategoryValidJSONOutput},
	})

	line := buf.Bytes()
	require.NotEmpty(t, line)
	assert.Equal(t, byte('\n'), line[len(line)-1])

	var rec Record
	require.NoError(t, json.Unmarshal(line, &rec))
	assert.Equal(t, req.ID, rec.RequestID)
	assert.Equal(t, FormatJSON, rec.Format)
	assert.Equal(t, CategoryJSONInput, rec.InputCategory)
	assert.Equal(t, CategoryValidJSONOutput, rec.OutputCategory)
	assert.False(t, rec.Success)
	assert.Equal(t, ErrorStructureShape, rec.ErrorType)
	assert.Equal(t, 2, rec.Reprompts)
}

type failingSink struct{}

func (failingSink) Append(Record) error { return errors.New("disk full") }

func TestRecorderSwallowsSinkFailure(t *testing.T) {
	store := NewConfidenceStore()
	recorder := NewRecorder(store, failingSink{}, zap.NewNop())

	req := testRequest(CategoryJSONInput)
	assert.NotPanics(t, func() {
		recorder.Record(req, Outcome{
			Success:  true,
			Outbound: StructureVerdict{Surface: SurfaceOutput, Category: CategoryValidJSONOutput},
		})
	})

	// The adjustment still lands even when the sink fails.
	assert.InDelta(t, 0.55, store.Bias(SurfaceInput, CategoryJSONInput), 1e-9)
}
