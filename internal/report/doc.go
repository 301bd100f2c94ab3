// Package report writes the results of a run.
//
// Every writer is an engine.Sink that receives accepted values as they are
// discovered, plus WriteSummary for the finished run:
//   - SimpleWriter: human-readable lines for terminal display
//   - JSONWriter: one JSON record per line for tool integration
//   - MarkdownWriter: a Markdown report written once the run is over
//
// MultiWriter fans out to several writers, e.g. terminal plus file.
package report
