package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/reconscan/internal/engine"
	"github.com/nao1215/reconscan/internal/value"
	"github.com/nao1215/reconscan/internal/worker"
)

// MarkdownWriter collects the values of a run and writes a GitHub Flavored
// Markdown report once the summary is known.
type MarkdownWriter struct {
	baseWriter
	*Collector
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		Collector:  NewCollector(),
	}
}

// WriteSummary writes the whole report.
func (w *MarkdownWriter) WriteSummary(s *engine.Summary) error {
	md := markdown.NewMarkdown(w.output)
	byKind := w.ByKind()

	w.writeHeader(md, s)
	w.writeValueSummary(md, byKind)
	w.writeInvocations(md, s)
	w.writeValues(md, byKind)
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *engine.Summary) {
	md.H1("reconscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", s.Started.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
			{"Roots", strconv.Itoa(s.Roots)},
			{"Discovered", strconv.Itoa(s.Discovered)},
			{"Status", w.getStatusText(s)},
		},
	})
	md.PlainText("")

	switch {
	case s.Cancelled:
		md.Cautionf("The run was cancelled after %s. Results are partial.", s.Duration.Round(time.Millisecond))
	case s.Violations > 0:
		md.Warningf("%d value(s) were dropped because a worker emitted an undeclared type.", s.Violations)
	case s.Invocations[worker.StateFailed]+s.Invocations[worker.StateTimedOut] > 0:
		md.Note("Some invocations failed or timed out. See the invocation table below.")
	default:
		md.Tip("All invocations completed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) getStatusText(s *engine.Summary) string {
	if s.Cancelled {
		return "⚠️ " + statusText(s)
	}
	return "✅ " + statusText(s)
}

// writeValueSummary writes the count of values per kind and a pie chart.
func (w *MarkdownWriter) writeValueSummary(md *markdown.Markdown, byKind map[value.Kind][]engine.Entry) {
	md.H2("Discovered Values")
	md.PlainText("")

	if len(byKind) == 0 {
		md.PlainText("No values discovered.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Values by Type"),
		piechart.WithShowData(true),
	)

	var rows [][]string
	for _, k := range value.Kinds() {
		n := len(byKind[k])
		if n == 0 {
			continue
		}
		rows = append(rows, []string{KindTitle(k), strconv.Itoa(n)})
		chart.LabelAndIntValue(KindTitle(k), uint64(n))
	}

	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeInvocations(md *markdown.Markdown, s *engine.Summary) {
	md.H2("Invocations")
	md.PlainText("")

	rows := make([][]string, 0, len(terminalStates)+2)
	for _, state := range terminalStates {
		rows = append(rows, []string{state.String(), strconv.Itoa(s.Invocations[state])})
	}
	rows = append(rows,
		[]string{"skipped", strconv.Itoa(s.Skipped)},
		[]string{"**total**", "**" + strconv.Itoa(s.Total()) + "**"},
	)
	md.Table(markdown.TableSet{
		Header: []string{"State", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeValues writes one table per kind.
func (w *MarkdownWriter) writeValues(md *markdown.Markdown, byKind map[value.Kind][]engine.Entry) {
	for _, k := range value.Kinds() {
		entries := byKind[k]
		if len(entries) == 0 {
			continue
		}
		md.H3(KindTitle(k))
		md.PlainText("")

		rows := make([][]string, len(entries))
		for i, e := range entries {
			origin := e.Origin
			if origin == "" {
				origin = "root"
			}
			rows[i] = []string{
				"`" + truncateString(e.Value.String(), 80) + "`",
				origin,
				strconv.Itoa(e.Depth),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Value", "Found by", "Depth"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [reconscan](https://github.com/nao1215/reconscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
