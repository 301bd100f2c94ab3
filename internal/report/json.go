package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/reconscan/internal/engine"
	"github.com/nao1215/reconscan/internal/value"
)

// JSONWriter writes one JSON object per line. Values use the canonical
// record format so the output can be fed back as seeds.
type JSONWriter struct {
	baseWriter

	// withParent includes the parent value record in every line.
	withParent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithParent includes the value each result was derived from.
func WithParent() JSONWriterOption {
	return func(w *JSONWriter) {
		w.withParent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type entryLine struct {
	Value  json.RawMessage `json:"value"`
	Depth  int             `json:"depth"`
	Origin string          `json:"origin,omitempty"`
	Parent json.RawMessage `json:"parent,omitempty"`
}

type summaryLine struct {
	Summary summaryRecord `json:"summary"`
}

type summaryRecord struct {
	Roots       int            `json:"roots"`
	Discovered  int            `json:"discovered"`
	Duplicates  int            `json:"duplicates"`
	OutOfScope  int            `json:"out_of_scope"`
	Violations  int            `json:"contract_violations"`
	Invocations map[string]int `json:"invocations"`
	Skipped     int            `json:"skipped"`
	SinkErrors  int            `json:"sink_errors"`
	Cancelled   bool           `json:"cancelled"`
	Started     time.Time      `json:"started"`
	DurationMS  int64          `json:"duration_ms"`
}

func newSummaryRecord(s *engine.Summary) summaryRecord {
	inv := make(map[string]int, len(s.Invocations))
	for state, n := range s.Invocations {
		inv[state.String()] = n
	}
	return summaryRecord{
		Roots:       s.Roots,
		Discovered:  s.Discovered,
		Duplicates:  s.Duplicates,
		OutOfScope:  s.OutOfScope,
		Violations:  s.Violations,
		Invocations: inv,
		Skipped:     s.Skipped,
		SinkErrors:  s.SinkErrors,
		Cancelled:   s.Cancelled,
		Started:     s.Started,
		DurationMS:  s.Duration.Milliseconds(),
	}
}

// Emit implements engine.Sink.
func (w *JSONWriter) Emit(e engine.Entry) error {
	raw, err := value.Marshal(e.Value)
	if err != nil {
		return err
	}
	line := entryLine{Value: raw, Depth: e.Depth, Origin: e.Origin}
	if w.withParent && e.Parent != nil {
		if line.Parent, err = value.Marshal(e.Parent); err != nil {
			return err
		}
	}
	return w.writeLine(line)
}

// WriteSummary writes the summary as a final {"summary": ...} line.
func (w *JSONWriter) WriteSummary(s *engine.Summary) error {
	return w.writeLine(summaryLine{Summary: newSummaryRecord(s)})
}

func (w *JSONWriter) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.output.Write(append(data, '\n'))
	return err
}
