package engine

import "github.com/roach88/rewrite/internal/ir"

// pendingQueue is the FIFO of values waiting for dispatch.
//
// A rewrite run produces exactly one successor per step, so the queue
// holds at most one live value. It is owned by one Sequencer and needs no
// locking.
type pendingQueue struct {
	values []ir.Value
}

// newPendingQueue creates an empty queue.
func newPendingQueue() *pendingQueue {
	return &pendingQueue{values: make([]ir.Value, 0, 1)}
}

// Enqueue adds a value to the back of the queue.
func (q *pendingQueue) Enqueue(v ir.Value) {
	q.values = append(q.values, v)
}

// TryDequeue removes and returns the front value.
// Returns (ir.Value{}, false) if the queue is empty.
func (q *pendingQueue) TryDequeue() (ir.Value, bool) {
	if len(q.values) == 0 {
		return ir.Value{}, false
	}

	v := q.values[0]

	// Drop the slot so the history slice is not retained.
	q.values[0] = ir.Value{}
	if len(q.values) == 1 {
		q.values = q.values[:0]
	} else {
		q.values = q.values[1:]
	}

	return v, true
}

// Len returns the current queue length.
func (q *pendingQueue) Len() int {
	return len(q.values)
}
