package session

import (
	"context"
	"sync"

	"github.com/roach88/jeamlit/internal/engine"
)

type requestKind int

const (
	requestAttach requestKind = iota + 1
	requestRerun
	requestEvent
	requestInspect
)

func (k requestKind) String() string {
	switch k {
	case requestAttach:
		return "attach"
	case requestRerun:
		return "rerun"
	case requestEvent:
		return "event"
	case requestInspect:
		return "inspect"
	default:
		return "unknown"
	}
}

// request is one unit of work for a session worker.
type request struct {
	ctx      context.Context
	kind     requestKind
	widgetID string
	value    any
	inspect  func(*engine.Session)
	reply    chan reply
}

type reply struct {
	result engine.Result
	err    error
}

// requestQueue is a thread-safe FIFO queue of requests for one session.
//
// The queue is unbounded: events arriving while a run is in progress are
// queued, never dropped. A signal channel lets the worker wait with a
// context.
type requestQueue struct {
	mu       sync.Mutex
	requests []request
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]request, 0, 8),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)

	// Non-blocking: the size 1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return request{}, false
	}
	r := q.requests[0]
	q.requests[0] = request{} // release references held by the slot
	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}
	return r, true
}

// Wait returns a channel that signals when requests may be available.
// It is closed when the queue is closed.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Drained reports whether the queue is closed and empty.
func (q *requestQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.requests) == 0
}

// Close stops accepting requests and wakes the worker.
// Requests already queued are still delivered.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
