package engine

import (
	"context"
	"sync"

	"github.com/nao1215/reconscan/internal/value"
)

// Entry is an accepted value waiting to be dispatched.
type Entry struct {
	Value value.Value

	// Depth is 0 for roots and one more than the parent otherwise.
	Depth int

	// Origin is the id of the worker that produced the value, empty for roots.
	Origin string

	// Parent is the input of the invocation that produced the value.
	Parent value.Value
}

// frontier is the FIFO queue of entries plus a count of running tasks. It
// has many producers and a single consumer, the dispatch loop.
type frontier struct {
	mu       sync.Mutex
	queue    []Entry
	inflight int
	notify   chan struct{}
}

func newFrontier() *frontier {
	return &frontier{notify: make(chan struct{}, 1)}
}

func (f *frontier) push(e Entry) {
	f.mu.Lock()
	f.queue = append(f.queue, e)
	f.mu.Unlock()
	f.signal()
}

// start records a task about to be launched. It must be called before the
// task is started so that next never sees an idle frontier in between.
func (f *frontier) start() {
	f.mu.Lock()
	f.inflight++
	f.mu.Unlock()
}

func (f *frontier) done() {
	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	f.signal()
}

func (f *frontier) signal() {
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// next blocks until an entry is available. It returns false once the queue
// is empty with nothing in flight, or when ctx is done.
func (f *frontier) next(ctx context.Context) (Entry, bool) {
	for {
		if ctx.Err() != nil {
			return Entry{}, false
		}

		f.mu.Lock()
		if len(f.queue) > 0 {
			e := f.queue[0]
			f.queue[0] = Entry{}
			f.queue = f.queue[1:]
			f.mu.Unlock()
			return e, true
		}
		idle := f.inflight == 0
		f.mu.Unlock()

		if idle {
			return Entry{}, false
		}

		select {
		case <-ctx.Done():
			return Entry{}, false
		case <-f.notify:
		}
	}
}

func (f *frontier) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
