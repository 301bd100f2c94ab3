package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/reconscan/internal/engine"
)

// SimpleWriter outputs one human-readable line per value and a summary
// block at the end.
type SimpleWriter struct {
	baseWriter

	// verbose adds the depth and the producing worker to each line.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Emit implements engine.Sink.
func (w *SimpleWriter) Emit(e engine.Entry) error {
	line := fmt.Sprintf("[+] %-14s %s", KindTitle(e.Value.Kind()), e.Value)
	if w.verbose {
		origin := e.Origin
		if origin == "" {
			origin = "root"
		}
		line += fmt.Sprintf("  (depth %d, via %s)", e.Depth, origin)
	}
	_, err := fmt.Fprintln(w.output, line)
	return err
}

// WriteSummary writes the run summary block.
func (w *SimpleWriter) WriteSummary(s *engine.Summary) error {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "  Status:       %s\n", statusText(s))
	fmt.Fprintf(&sb, "  Started:      %s\n", s.Started.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "  Duration:     %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "  Roots:        %d\n", s.Roots)
	fmt.Fprintf(&sb, "  Discovered:   %d\n", s.Discovered)
	fmt.Fprintf(&sb, "  Duplicates:   %d\n", s.Duplicates)
	fmt.Fprintf(&sb, "  Out of scope: %d\n", s.OutOfScope)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "  Invocations:  %d\n", s.Total())
	for _, state := range terminalStates {
		fmt.Fprintf(&sb, "    %-10s %d\n", state.String()+":", s.Invocations[state])
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&sb, "    %-10s %d\n", "skipped:", s.Skipped)
	}
	if s.Violations > 0 {
		fmt.Fprintf(&sb, "\n  [!] %d value(s) dropped for undeclared output types\n", s.Violations)
	}
	if s.SinkErrors > 0 {
		fmt.Fprintf(&sb, "  [!] %d value(s) could not be stored\n", s.SinkErrors)
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w.output, sb.String())
	return err
}
