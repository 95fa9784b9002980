// Package engine owns the call lifecycle: intake, dispatch, turn
// processing, escalation and closure. All state transitions funnel
// through the Router so the lifecycle invariants hold under
// concurrent API traffic and the dispatch loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dialtone/callcenter/backend/internal/conversation"
	"github.com/dialtone/callcenter/backend/internal/metrics"
	"github.com/dialtone/callcenter/backend/internal/policy"
	"github.com/dialtone/callcenter/backend/internal/queue"
	"github.com/dialtone/callcenter/backend/internal/registry"
	"github.com/dialtone/callcenter/backend/internal/storage"
	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// callEntry pairs a call with its own lock. Per-call locking keeps
// turn processing on one call from blocking the rest of the engine;
// queue and registry locks are only ever taken while holding the
// entry lock, never the other way around.
type callEntry struct {
	mu       sync.Mutex
	call     *types.Call
	inflight bool // a turn is out at the conversation capability
}

// Router coordinates queues, the agent registry, the escalation
// policy and the conversation capability.
type Router struct {
	mu    sync.RWMutex
	calls map[string]*callEntry

	queues   *queue.Set
	agents   *registry.Registry
	policy   policy.Policy
	conv     conversation.Capability
	agg      *metrics.Aggregator
	counters *metrics.Counters
	store    storage.Store
	logger   zerolog.Logger

	waitTimeout time.Duration

	dispatchMu sync.Mutex // serializes dispatch passes
}

// New creates a Router. The store may be a NoopStore; persistence is
// best-effort and never blocks a state transition.
func New(queues *queue.Set, agents *registry.Registry, pol policy.Policy, conv conversation.Capability, agg *metrics.Aggregator, store storage.Store, waitTimeout time.Duration, logger zerolog.Logger) *Router {
	return &Router{
		calls:       make(map[string]*callEntry),
		queues:      queues,
		agents:      agents,
		policy:      pol,
		conv:        conv,
		agg:         agg,
		counters:    metrics.Get(),
		store:       store,
		logger:      logger.With().Str("component", "router").Logger(),
		waitTimeout: waitTimeout,
	}
}

// Intake registers a new call and places it in its department queue.
// The optional first utterance becomes the opening customer turn.
func (r *Router) Intake(customerID string, dept types.Department, prio types.Priority, firstUtterance string) (types.Call, error) {
	if !r.queues.Known(dept) {
		return types.Call{}, fmt.Errorf("%w: %s", types.ErrUnknownDepartment, dept)
	}

	now := time.Now()
	call := &types.Call{
		ID:           uuid.New().String(),
		CustomerID:   customerID,
		Department:   dept,
		Priority:     prio,
		State:        types.CallStateQueued,
		CreatedAt:    now,
		LastActivity: now,
		EnqueueTime:  now,
	}
	if firstUtterance != "" {
		call.Turns = append(call.Turns, types.Turn{
			Speaker:   types.SpeakerCustomer,
			Text:      firstUtterance,
			Timestamp: now,
		})
	}

	entry := &callEntry{call: call}
	r.mu.Lock()
	r.calls[call.ID] = entry
	r.mu.Unlock()

	if err := r.queues.Admit(call); err != nil {
		r.mu.Lock()
		delete(r.calls, call.ID)
		r.mu.Unlock()
		return types.Call{}, err
	}

	r.counters.RecordCallReceived()
	r.logger.Info().
		Str("call_id", call.ID).
		Str("customer_id", customerID).
		Str("department", string(dept)).
		Str("priority", prio.String()).
		Msg("call received")

	return *call, nil
}

// DispatchPending runs one dispatch pass: escalate calls that have
// outwaited the timeout, then drain the supervisor queue and each
// department queue while matching agents remain. Returns the number
// of assignments made.
func (r *Router) DispatchPending() int {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	started := time.Now()
	defer func() {
		r.counters.RecordDispatchCycle(time.Since(started))
	}()

	for _, callID := range r.queues.WaitingOver(r.waitTimeout) {
		if err := r.Escalate(callID, types.ReasonAgentUnavailable); err != nil {
			r.logger.Warn().Err(err).Str("call_id", callID).Msg("wait-timeout escalation failed")
		}
	}

	assigned := 0
	for _, dept := range r.queues.Departments() {
		for {
			call := r.queues.PopNext(dept)
			if call == nil {
				break
			}
			if r.assignPopped(call, dept) {
				assigned++
			} else {
				// No matching agent; the head goes back and the
				// department is done for this pass.
				break
			}
		}
	}
	return assigned
}

// assignPopped pairs a freshly popped call with an agent, undoing the
// pop when no agent can take it.
func (r *Router) assignPopped(call *types.Call, dept types.Department) bool {
	entry := r.entry(call.ID)
	if entry == nil {
		// Closed and forgotten while queued; nothing to roll back.
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// The call may have moved between pop and lock: abandoned, or
	// escalated through the API, which re-admits it to the supervisor
	// queue itself. Assign only while the state still matches the
	// queue it was popped from; otherwise whoever moved the call owns
	// its queue membership now and this pointer is stale.
	expected := types.CallStateQueued
	if dept == types.DeptSupervisor {
		expected = types.CallStateEscalated
	}
	if entry.call.State != expected {
		return false
	}

	agentID, ok := r.agents.FindAvailable(dept)
	if !ok {
		r.queues.Requeue(entry.call)
		return false
	}
	if err := r.agents.Assign(agentID); err != nil {
		r.logger.Error().Err(err).Str("agent_id", agentID).Msg("assignment failed after availability check")
		r.counters.RecordDispatchError()
		r.queues.Requeue(entry.call)
		return false
	}

	now := time.Now()
	entry.call.State = types.CallStateInProgress
	entry.call.AgentID = agentID
	entry.call.AssignTime = &now
	entry.call.LastActivity = now

	// An escalated call reaching a supervisor closes the loop on its
	// latest escalation event; the stored record is overwritten with
	// the supervisor filled in.
	if entry.call.Escalated && len(entry.call.Escalations) > 0 {
		event := &entry.call.Escalations[len(entry.call.Escalations)-1]
		event.SupervisorID = agentID
		r.persistEscalation(*event)
	}

	r.counters.RecordCallDispatched()
	r.logger.Info().
		Str("call_id", entry.call.ID).
		Str("agent_id", agentID).
		Str("department", string(dept)).
		Float64("wait_secs", now.Sub(entry.call.EnqueueTime).Seconds()).
		Msg("call assigned")
	return true
}

// SubmitTurn processes one customer utterance: the transcript plus
// the pending turn goes to the conversation capability, and on
// success both the customer turn and the generated reply are recorded
// before the escalation policy is applied. Upstream failures leave
// the call unchanged, so the caller can retry the same utterance.
//
// The entry lock is dropped while the upstream request is in flight;
// an inflight flag rejects overlapping turns for the same call, and
// the state is re-checked before the reply is recorded.
func (r *Router) SubmitTurn(ctx context.Context, callID, text string) (conversation.Reply, policy.Decision, error) {
	entry := r.entry(callID)
	if entry == nil {
		return conversation.Reply{}, policy.Decision{}, fmt.Errorf("%w: %s", types.ErrCallNotFound, callID)
	}

	entry.mu.Lock()
	call := entry.call
	if call.State.Terminal() {
		entry.mu.Unlock()
		return conversation.Reply{}, policy.Decision{}, fmt.Errorf("%w: %s", types.ErrCallAlreadyClosed, callID)
	}
	if call.State != types.CallStateInProgress {
		entry.mu.Unlock()
		return conversation.Reply{}, policy.Decision{}, fmt.Errorf("call %s is %s, not in progress", callID, call.State)
	}
	if entry.inflight {
		entry.mu.Unlock()
		return conversation.Reply{}, policy.Decision{}, fmt.Errorf("call %s already has a turn in flight", callID)
	}
	entry.inflight = true

	dept := call.Department
	pending := types.Turn{Speaker: types.SpeakerCustomer, Text: text, Timestamp: time.Now()}
	transcript := make([]types.Turn, 0, len(call.Turns)+1)
	transcript = append(transcript, call.Turns...)
	transcript = append(transcript, pending)
	entry.mu.Unlock()

	reply, err := r.conv.GenerateReply(ctx, dept, transcript)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.inflight = false

	if err != nil {
		switch {
		case errors.Is(err, types.ErrConversationTimeout):
			r.counters.RecordConversationTimeout()
		default:
			r.counters.RecordConversationError()
		}
		return conversation.Reply{}, policy.Decision{}, err
	}

	// The call may have closed or escalated while the request was out.
	if call.State != types.CallStateInProgress {
		if call.State.Terminal() {
			return conversation.Reply{}, policy.Decision{}, fmt.Errorf("%w: %s", types.ErrCallAlreadyClosed, callID)
		}
		return conversation.Reply{}, policy.Decision{}, fmt.Errorf("call %s is %s, not in progress", callID, call.State)
	}

	call.Turns = append(call.Turns, pending, types.Turn{
		Speaker:   types.SpeakerAgent,
		Text:      reply.Text,
		Timestamp: time.Now(),
		Score:     reply.QualityScore,
	})
	call.LastActivity = time.Now()
	r.counters.RecordTurn()

	decision := r.policy.Decide(call.CustomerTurns(), policy.Turn{
		Score:      reply.QualityScore,
		Resolved:   reply.Resolved,
		WantsHuman: reply.WantsHuman,
	})

	switch decision.Verdict {
	case policy.Escalate:
		r.escalateLocked(entry, decision.Reason)
	case policy.Complete:
		r.closeLocked(entry, types.CallStateCompleted, "resolved")
	}

	return reply, decision, nil
}

// Escalate hands the call to the supervisor queue. Escalating a call
// that already sits with a supervisor is a no-op.
func (r *Router) Escalate(callID string, reason types.EscalationReason) error {
	entry := r.entry(callID)
	if entry == nil {
		return fmt.Errorf("%w: %s", types.ErrCallNotFound, callID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.call.State.Terminal() {
		return fmt.Errorf("%w: %s", types.ErrCallAlreadyClosed, callID)
	}
	if entry.call.State == types.CallStateEscalated {
		return nil
	}

	r.escalateLocked(entry, reason)
	return nil
}

// escalateLocked moves the call into the supervisor queue. Caller
// holds the entry lock; the call is queued or in progress.
func (r *Router) escalateLocked(entry *callEntry, reason types.EscalationReason) {
	call := entry.call
	now := time.Now()

	// A supervisor escalating further stays with the supervisor queue;
	// the fresh event still front-admits for immediate pickup.
	if call.State == types.CallStateQueued || call.State == types.CallStateEscalated {
		if !r.queues.Remove(call.ID) {
			// A dispatch pass popped the call but has not locked this
			// entry yet. The state change below makes it drop that
			// stale pointer instead of assigning.
			r.logger.Debug().Str("call_id", call.ID).Msg("escalating a call held by the dispatcher")
		}
	}
	if call.AgentID != "" {
		if err := r.agents.Release(call.AgentID); err != nil {
			r.logger.Error().Err(err).Str("call_id", call.ID).Str("agent_id", call.AgentID).Msg("agent release failed during escalation")
		}
		call.AgentID = ""
		call.AssignTime = nil
	}

	event := types.EscalationEvent{
		ID:        uuid.New().String(),
		CallID:    call.ID,
		Reason:    reason,
		Timestamp: now,
	}
	call.Escalations = append(call.Escalations, event)
	call.Escalated = true
	call.State = types.CallStateEscalated
	if call.Priority < types.PriorityHigh {
		call.Priority = types.PriorityHigh
	}
	call.EnqueueTime = now
	call.LastActivity = now

	r.queues.AdmitSupervisorFront(call)
	r.counters.RecordEscalation()
	r.persistEscalation(event)

	r.logger.Info().
		Str("call_id", call.ID).
		Str("reason", string(reason)).
		Str("priority", call.Priority.String()).
		Msg("call escalated")
}

// Complete closes the call successfully.
func (r *Router) Complete(callID, outcome string) error {
	return r.close(callID, types.CallStateCompleted, outcome)
}

// Abandon closes the call on behalf of a customer who gave up.
func (r *Router) Abandon(callID string) error {
	return r.close(callID, types.CallStateAbandoned, "abandoned")
}

func (r *Router) close(callID string, state types.CallState, outcome string) error {
	entry := r.entry(callID)
	if entry == nil {
		return fmt.Errorf("%w: %s", types.ErrCallNotFound, callID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.call.State.Terminal() {
		return fmt.Errorf("%w: %s", types.ErrCallAlreadyClosed, callID)
	}
	// Completion requires an agent on the line; a waiting call can
	// only be abandoned.
	if state == types.CallStateCompleted && entry.call.State != types.CallStateInProgress {
		return fmt.Errorf("call %s is %s, not in progress", callID, entry.call.State)
	}

	r.closeLocked(entry, state, outcome)
	return nil
}

// closeLocked finalizes the call. Caller holds the entry lock.
func (r *Router) closeLocked(entry *callEntry, state types.CallState, outcome string) {
	call := entry.call
	now := time.Now()

	if call.State == types.CallStateQueued || call.State == types.CallStateEscalated {
		r.queues.Remove(call.ID)
	}
	if call.AgentID != "" {
		if err := r.agents.Release(call.AgentID); err != nil {
			r.logger.Error().Err(err).Str("call_id", call.ID).Str("agent_id", call.AgentID).Msg("agent release failed during close")
		}
	}

	call.State = state
	call.Outcome = outcome
	call.EndedAt = &now
	call.LastActivity = now

	r.agg.Record(call)
	switch state {
	case types.CallStateCompleted:
		r.counters.RecordCallCompleted()
	case types.CallStateAbandoned:
		r.counters.RecordCallAbandoned()
	}
	r.persistCallRecord(call)

	// Attribution is captured above; a terminal call carries no agent.
	call.AgentID = ""
	call.AssignTime = nil

	r.logger.Info().
		Str("call_id", call.ID).
		Str("state", string(state)).
		Str("outcome", outcome).
		Float64("duration_secs", call.Duration().Seconds()).
		Msg("call closed")
}

// Call returns a copy of the call's current state.
func (r *Router) Call(callID string) (types.Call, error) {
	entry := r.entry(callID)
	if entry == nil {
		return types.Call{}, fmt.Errorf("%w: %s", types.ErrCallNotFound, callID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copyCall(entry.call), nil
}

// SetAgentOffline removes the agent from dispatch consideration.
// Calls already assigned to the agent run to completion.
func (r *Router) SetAgentOffline(agentID string) error {
	return r.agents.MarkOffline(agentID)
}

// SetAgentOnline returns the agent to dispatch consideration.
func (r *Router) SetAgentOnline(agentID string) error {
	return r.agents.MarkOnline(agentID)
}

// QueueStatuses returns the live status of every queue.
func (r *Router) QueueStatuses() []types.QueueStatus {
	return r.queues.Snapshot()
}

// Snapshot builds a point-in-time dashboard view. Agent and queue
// snapshots are taken first; per-call copies follow under their entry
// locks, so each call appears in exactly one consistent state.
func (r *Router) Snapshot() types.DashboardSnapshot {
	snapshot := types.DashboardSnapshot{
		Type:        "snapshot",
		Timestamp:   time.Now(),
		Agents:      r.agents.Snapshot(),
		Queues:      r.queues.Snapshot(),
		StateCounts: make(map[types.CallState]int),
	}
	r.counters.UpdateAgentStats(snapshot.Agents)

	r.mu.RLock()
	entries := make([]*callEntry, 0, len(r.calls))
	for _, entry := range r.calls {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	for _, entry := range entries {
		entry.mu.Lock()
		call := entry.call
		snapshot.StateCounts[call.State]++
		if call.Escalated {
			snapshot.Escalated++
		}
		if !call.State.Terminal() {
			snapshot.ActiveCalls = append(snapshot.ActiveCalls, types.CallSummary{
				CallID:          call.ID,
				CustomerID:      call.CustomerID,
				Department:      call.Department,
				Priority:        call.Priority,
				State:           call.State,
				AgentID:         call.AgentID,
				Escalated:       call.Escalated,
				TurnCount:       len(call.Turns),
				DurationSeconds: call.Duration().Seconds(),
			})
		}
		entry.mu.Unlock()
	}

	return snapshot
}

func (r *Router) entry(callID string) *callEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls[callID]
}

func copyCall(call *types.Call) types.Call {
	out := *call
	out.Turns = append([]types.Turn(nil), call.Turns...)
	out.Escalations = append([]types.EscalationEvent(nil), call.Escalations...)
	return out
}

// persistCallRecord writes the closed call to storage on a background
// goroutine. Storage failures are logged, never surfaced to callers.
func (r *Router) persistCallRecord(call *types.Call) {
	record := types.CallRecord{
		DateKey:         call.EndedAt.Format("2006-01-02"),
		CallID:          call.ID,
		CustomerID:      call.CustomerID,
		Department:      call.Department,
		Priority:        call.Priority.String(),
		AgentID:         call.AgentID,
		Outcome:         call.Outcome,
		Escalated:       call.Escalated,
		Abandoned:       call.State == types.CallStateAbandoned,
		CreatedAt:       call.CreatedAt.Format(time.RFC3339),
		EndedAt:         call.EndedAt.Format(time.RFC3339),
		DurationSeconds: call.Duration().Seconds(),
		HandleSeconds:   call.HandleTime().Seconds(),
		TurnCount:       len(call.Turns),
		AvgQualityScore: call.AverageScore(),
		FinalScore:      call.FinalScore(),
	}

	go func() {
		if err := r.store.SaveCallRecord(record); err != nil {
			r.logger.Error().Err(err).Str("call_id", record.CallID).Msg("failed to persist call record")
		}
	}()
}

func (r *Router) persistEscalation(event types.EscalationEvent) {
	record := types.EscalationRecord{
		CallID:       event.CallID,
		EventID:      event.ID,
		Reason:       string(event.Reason),
		SupervisorID: event.SupervisorID,
		Timestamp:    event.Timestamp.Format(time.RFC3339),
	}

	go func() {
		if err := r.store.SaveEscalationEvent(record); err != nil {
			r.logger.Error().Err(err).Str("call_id", record.CallID).Msg("failed to persist escalation event")
		}
	}()
}
