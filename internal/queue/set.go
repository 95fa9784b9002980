package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/rs/zerolog"
)

// HandleTimeSource supplies the rolling average handle time per
// department, used for wait estimation.
type HandleTimeSource interface {
	AvgHandleTime(dept types.Department) (time.Duration, bool)
}

// Set owns one queue per configured department plus the reserved
// supervisor queue. Queues are created at startup and live for the
// process lifetime; membership is mutated by the call router only.
type Set struct {
	queues     map[types.Department]*Queue
	order      []types.Department // supervisor first, then configured order
	handleTime HandleTimeSource
	minWait    time.Duration
	mu         sync.Mutex
	logger     zerolog.Logger
}

// NewSet creates queues for every configured department and the
// supervisor queue.
func NewSet(departments []types.DepartmentInfo, handleTime HandleTimeSource, minWait time.Duration, logger zerolog.Logger) *Set {
	supervisor := types.DepartmentInfo{Code: types.DeptSupervisor, Name: "Supervisors"}

	queues := make(map[types.Department]*Queue, len(departments)+1)
	order := make([]types.Department, 0, len(departments)+1)

	queues[supervisor.Code] = NewQueue(supervisor)
	order = append(order, supervisor.Code)

	for _, info := range departments {
		queues[info.Code] = NewQueue(info)
		order = append(order, info.Code)
	}

	return &Set{
		queues:     queues,
		order:      order,
		handleTime: handleTime,
		minWait:    minWait,
		logger:     logger,
	}
}

// Known reports whether a department is configured. The supervisor
// queue is internal and not a valid intake target.
func (s *Set) Known(dept types.Department) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.queues[dept]
	return ok && dept != types.DeptSupervisor
}

// Departments returns the drain order: supervisor queue first, then
// configured departments.
func (s *Set) Departments() []types.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Department, len(s.order))
	copy(out, s.order)
	return out
}

// Admit places a queued call into its department's queue.
func (s *Set) Admit(call *types.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[call.Department]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownDepartment, call.Department)
	}
	q.Enqueue(call)

	s.logger.Debug().
		Str("call_id", call.ID).
		Str("department", string(call.Department)).
		Str("priority", call.Priority.String()).
		Int("queue_depth", len(q.Waiting)).
		Msg("call admitted")
	return nil
}

// AdmitSupervisorFront places an escalated call at the head of the
// supervisor queue.
func (s *Set) AdmitSupervisorFront(call *types.Call) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[types.DeptSupervisor]
	q.EnqueueFront(call)

	s.logger.Debug().
		Str("call_id", call.ID).
		Int("queue_depth", len(q.Waiting)).
		Msg("escalated call admitted at supervisor queue head")
}

// PeekNext returns the next waiting call for a department without
// removing it.
func (s *Set) PeekNext(dept types.Department) *types.Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[dept]
	if !ok {
		return nil
	}
	return q.Peek()
}

// PopNext removes and returns the highest-priority, oldest-enqueued
// call for a department.
func (s *Set) PopNext(dept types.Department) *types.Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[dept]
	if !ok {
		return nil
	}
	return q.Dequeue()
}

// Requeue puts a popped call back at the head of its queue, undoing a
// pop whose paired agent assignment failed.
func (s *Set) Requeue(call *types.Call) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dept := call.Department
	if call.Escalated {
		dept = types.DeptSupervisor
	}
	if q, ok := s.queues[dept]; ok {
		q.EnqueueFront(call)
	}
}

// Remove takes a call out of whichever queue holds it.
func (s *Set) Remove(callID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.queues {
		if q.Remove(callID) {
			return true
		}
	}
	return false
}

// WaitingOver returns the ids of calls in normal queues that have
// waited longer than cutoff allows.
func (s *Set) WaitingOver(timeout time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-timeout)
	var overdue []string
	for dept, q := range s.queues {
		if dept == types.DeptSupervisor {
			continue
		}
		for _, call := range q.Waiting {
			if call.EnqueueTime.Before(cutoff) {
				overdue = append(overdue, call.ID)
			}
		}
	}
	return overdue
}

// EstimatedWait computes queue length times the department's rolling
// average handle time, floored at the configured minimum. The second
// return is false when no handle-time history exists yet.
func (s *Set) EstimatedWait(dept types.Department) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[dept]
	if !ok {
		return 0, false
	}

	avg, known := s.handleTime.AvgHandleTime(dept)
	if !known {
		return 0, false
	}

	estimate := time.Duration(len(q.Waiting)) * avg
	if estimate < s.minWait {
		estimate = s.minWait
	}
	return estimate, true
}

// Snapshot returns the status of every queue in drain order.
func (s *Set) Snapshot() []types.QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]types.QueueStatus, 0, len(s.order))
	for _, dept := range s.order {
		q := s.queues[dept]
		status := types.QueueStatus{
			Department:        dept,
			Name:              q.Name,
			WaitingCount:      len(q.Waiting),
			LongestWaitSecs:   q.LongestWaitSecs(),
			EstimatedWaitSecs: -1,
		}
		if avg, known := s.handleTime.AvgHandleTime(dept); known {
			estimate := time.Duration(len(q.Waiting)) * avg
			if estimate < s.minWait {
				estimate = s.minWait
			}
			status.EstimatedWaitSecs = estimate.Seconds()
			status.WaitKnown = true
		}
		statuses = append(statuses, status)
	}
	return statuses
}
