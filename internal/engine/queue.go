package engine

import "sync"

// pending is a submitted request awaiting its result.
type pending struct {
	req   Request
	reply chan Result
}

// requestQueue is a thread-safe FIFO of submitted requests.
//
// Submitters enqueue from any goroutine; only the Run loop dequeues. The
// buffered signal channel lets Run wait on the queue and a context at once.
type requestQueue struct {
	mu     sync.Mutex
	items  []pending
	closed bool
	signal chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		items:  make([]pending, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds p to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(p pending) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, p)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return pending{}, false
	}
	p := q.items[0]
	// Release the reply channel for GC.
	q.items[0] = pending{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return p, true
}

// Wait returns a channel that signals when requests may be available. It is
// closed once the queue is closed.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *requestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further requests and wakes the Run loop.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// drain answers every queued request with err.
func (q *requestQueue) drain(err error) {
	for {
		p, ok := q.TryDequeue()
		if !ok {
			return
		}
		p.reply <- Result{Err: err}
	}
}
