package engine

// Sink receives every accepted value of a run, roots included. The engine
// serializes calls, so implementations need no locking of their own.
type Sink interface {
	Emit(e Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Entry) error

// Emit implements Sink.
func (f SinkFunc) Emit(e Entry) error {
	return f(e)
}

type discardSink struct{}

func (discardSink) Emit(Entry) error { return nil }
