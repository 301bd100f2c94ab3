package report

import (
	"errors"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/reconscan/internal/engine"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// Writer receives the values of a run as they are accepted and the summary
// once it is finished.
type Writer interface {
	engine.Sink

	// WriteSummary outputs the run summary. It is called once, after the
	// last Emit.
	WriteSummary(s *engine.Summary) error
}

// MultiWriter writes to multiple Writers. Every writer sees every call even
// when an earlier one fails; the errors are joined.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Emit implements engine.Sink.
func (m *MultiWriter) Emit(e engine.Entry) error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.Emit(e))
	}
	return errors.Join(errs...)
}

// WriteSummary writes the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(s *engine.Summary) error {
	var errs []error
	for _, w := range m.writers {
		errs = append(errs, w.WriteSummary(s))
	}
	return errors.Join(errs...)
}

// Collector keeps the entries of a run in acceptance order.
type Collector struct {
	mu      sync.Mutex
	entries []engine.Entry
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit implements engine.Sink.
func (c *Collector) Emit(e engine.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

// WriteSummary implements Writer. The Collector has nothing to write.
func (c *Collector) WriteSummary(*engine.Summary) error { return nil }

// Entries returns a copy of the collected entries.
func (c *Collector) Entries() []engine.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

// Values returns the collected values.
func (c *Collector) Values() []value.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]value.Value, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Value
	}
	return out
}

// ByKind groups the collected entries by value kind.
func (c *Collector) ByKind() map[value.Kind][]engine.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[value.Kind][]engine.Entry)
	for _, e := range c.entries {
		out[e.Value.Kind()] = append(out[e.Value.Kind()], e)
	}
	return out
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// acronyms are kinds whose display name is not title cased.
var acronyms = map[value.Kind]string{
	value.KindIP:  "IP",
	value.KindURL: "URL",
}

// KindTitle returns a display name for a kind, e.g. "Open Port".
func KindTitle(k value.Kind) string {
	if a, ok := acronyms[k]; ok {
		return a
	}
	// a Caser is stateful and cannot be shared between goroutines
	return cases.Title(language.English).String(strings.ReplaceAll(k.String(), "_", " "))
}

// statusText describes how the run ended.
func statusText(s *engine.Summary) string {
	if s.Cancelled {
		return "Cancelled (partial results)"
	}
	return "Complete"
}

// terminalStates are the invocation states reported in summaries.
var terminalStates = []worker.State{worker.StateCompleted, worker.StateFailed, worker.StateTimedOut, worker.StateCancelled}
