package queue

import (
	"time"

	"github.com/dialtone/callcenter/backend/internal/types"
)

// Queue is a single department's ordered collection of waiting calls.
// Ordering key: priority descending, enqueue time ascending; ties keep
// insertion order. The supervisor queue additionally supports
// front-of-queue admission for escalated calls.
type Queue struct {
	Department types.Department
	Name       string
	Waiting    []*types.Call
}

// NewQueue creates an empty queue for a department.
func NewQueue(info types.DepartmentInfo) *Queue {
	return &Queue{
		Department: info.Code,
		Name:       info.Name,
		Waiting:    make([]*types.Call, 0),
	}
}

// Enqueue inserts a call at its priority position, behind equal
// priorities (stable).
func (q *Queue) Enqueue(call *types.Call) {
	pos := len(q.Waiting)
	for i, waiting := range q.Waiting {
		if waiting.Priority < call.Priority {
			pos = i
			break
		}
	}
	q.Waiting = append(q.Waiting, nil)
	copy(q.Waiting[pos+1:], q.Waiting[pos:])
	q.Waiting[pos] = call
}

// EnqueueFront inserts a call ahead of everything already waiting.
// Used for escalated calls, which always outrank priority ordering.
func (q *Queue) EnqueueFront(call *types.Call) {
	q.Waiting = append([]*types.Call{call}, q.Waiting...)
}

// Peek returns the next call without removing it.
func (q *Queue) Peek() *types.Call {
	if len(q.Waiting) == 0 {
		return nil
	}
	return q.Waiting[0]
}

// Dequeue removes and returns the next call.
func (q *Queue) Dequeue() *types.Call {
	if len(q.Waiting) == 0 {
		return nil
	}
	call := q.Waiting[0]
	q.Waiting = q.Waiting[1:]
	return call
}

// Remove takes a specific call out of the queue, returning false if
// it is not waiting here.
func (q *Queue) Remove(callID string) bool {
	for i, call := range q.Waiting {
		if call.ID == callID {
			q.Waiting = append(q.Waiting[:i], q.Waiting[i+1:]...)
			return true
		}
	}
	return false
}

// LongestWaitSecs returns the wait time of the oldest waiting call.
func (q *Queue) LongestWaitSecs() float64 {
	longest := 0.0
	for _, call := range q.Waiting {
		if wait := time.Since(call.EnqueueTime).Seconds(); wait > longest {
			longest = wait
		}
	}
	return longest
}
