package llmstruct

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bias deltas applied by the recorder. A success nudges both surfaces up, a
// failure pushes them down twice as hard. Table-like text categories take an
// extra penalty on structural failures, since tabular-looking prose is
// easily mistaken for real structured data.
const (
	SuccessDelta      = 0.05
	FailureDelta      = -0.10
	TabularExtraDelta = -0.10
)

// Record is one feedback entry describing a completed request. Records are
// append-only; a sink must never mutate or reorder them.
type Record struct {
	RequestID      uuid.UUID `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	Format         Format    `json:"format"`
	InputCategory  Category  `json:"input_category"`
	OutputCategory Category  `json:"output_category"`
	Success        bool      `json:"success"`
	ErrorType      ErrorType `json:"error_type,omitempty"`
	Reprompts      int       `json:"reprompts"`
	InputBias      float64   `json:"input_bias"`
	OutputBias     float64   `json:"output_bias"`
}

// Sink receives feedback records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Append(rec Record) error
}

// JSONLinesSink appends records to a writer as one JSON object per line.
type JSONLinesSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLinesSink creates a sink writing JSON lines to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{w: w}
}

// Append writes one record as a JSON line.
func (s *JSONLinesSink) Append(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(line)
	return err
}

// Recorder turns request outcomes into confidence adjustments and feedback
// records. It is the only writer of the [ConfidenceStore].
//
// Record runs exactly once per request, after the terminal outcome is known.
// Sink failures are logged and swallowed; feedback durability never blocks
// or fails a caller's request.
type Recorder struct {
	store *ConfidenceStore
	sink  Sink
	log   *zap.Logger
}

// NewRecorder creates a recorder adjusting store. A nil sink disables
// persistence; a nil logger disables logging.
func NewRecorder(store *ConfidenceStore, sink Sink, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, sink: sink, log: log}
}

// Outcome describes the terminal result of one request for feedback
// purposes.
type Outcome struct {
	Success   bool
	ErrorType ErrorType
	Outbound  StructureVerdict
}

// Record applies confidence deltas for the request's inbound and outbound
// categories and appends a feedback record to the sink.
func (r *Recorder) Record(req *RequestContext, out Outcome) Record {
	delta := SuccessDelta
	if !out.Success {
		delta = FailureDelta
	}

	inDelta := delta
	outDelta := delta
	if !out.Success && out.ErrorType != ErrorDecode {
		// Structural failures implicate the classification itself, not
		// just the model's syntax.
		if isTabularText(req.Inbound.Category) {
			inDelta += TabularExtraDelta
		}
		if isTabularText(out.Outbound.Category) {
			outDelta += TabularExtraDelta
		}
	}

	inBias := r.store.Adjust(SurfaceInput, req.Inbound.Category, inDelta)
	outBias := r.store.Adjust(SurfaceOutput, out.Outbound.Category, outDelta)

	rec := Record{
		RequestID:      req.ID,
		Timestamp:      time.Now().UTC(),
		Format:         req.Format,
		InputCategory:  req.Inbound.Category,
		OutputCategory: out.Outbound.Category,
		Success:        out.Success,
		ErrorType:      out.ErrorType,
		Reprompts:      req.Reprompts,
		InputBias:      inBias,
		OutputBias:     outBias,
	}

	if r.sink != nil {
		if err := r.sink.Append(rec); err != nil {
			r.log.Warn("feedback sink append failed",
				zap.String("request_id", req.ID.String()),
				zap.Error(err))
		}
	}
	return rec
}

func isTabularText(c Category) bool {
	return c == CategoryTabularTextInput || c == CategoryTextTableOutput
}
