package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dialtone/callcenter/backend/internal/types"
)

// Registry tracks availability and workload for all agents.
// Agents are registered at startup from configuration and are never
// removed while referenced by open calls.
type Registry struct {
	agents map[string]*types.Agent // agentID -> current state
	mu     sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		agents: make(map[string]*types.Agent),
	}
}

// Register adds or replaces an agent. Capacity below 1 is coerced to 1.
func (r *Registry) Register(agent types.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if agent.Capacity < 1 {
		agent.Capacity = 1
	}
	agent.LastActive = time.Now()
	r.agents[agent.ID] = &agent
}

// FindAvailable returns the id of an available agent affiliated with
// dept. Agents are ordered by fewest current calls, then by id, so
// the least-loaded pick is deterministic.
func (r *Registry) FindAvailable(dept types.Department) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*types.Agent
	for _, agent := range r.agents {
		if agent.Status() == types.StatusAvailable && agent.ServesDepartment(dept) {
			candidates = append(candidates, agent)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CurrentCalls != candidates[j].CurrentCalls {
			return candidates[i].CurrentCalls < candidates[j].CurrentCalls
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0].ID, true
}

// Assign increments the agent's call count. Assigning beyond capacity
// or to an unknown/offline agent fails without mutation.
func (r *Registry) Assign(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: assign to unknown agent %s", types.ErrInvariantViolation, agentID)
	}
	if agent.Offline {
		return fmt.Errorf("agent %s is offline", agentID)
	}
	if agent.CurrentCalls >= agent.Capacity {
		return fmt.Errorf("agent %s is at capacity", agentID)
	}

	agent.CurrentCalls++
	agent.TotalCalls++
	agent.LastActive = time.Now()
	return nil
}

// Release decrements the agent's call count. Releasing an agent with
// no current calls indicates a router bug.
func (r *Registry) Release(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: release of unknown agent %s", types.ErrInvariantViolation, agentID)
	}
	if agent.CurrentCalls == 0 {
		return fmt.Errorf("%w: release of idle agent %s", types.ErrInvariantViolation, agentID)
	}

	agent.CurrentCalls--
	agent.LastActive = time.Now()
	return nil
}

// MarkOffline excludes the agent from FindAvailable regardless of load.
func (r *Registry) MarkOffline(agentID string) error {
	return r.setOffline(agentID, true)
}

// MarkOnline clears a manual offline override.
func (r *Registry) MarkOnline(agentID string) error {
	return r.setOffline(agentID, false)
}

func (r *Registry) setOffline(agentID string, offline bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return fmt.Errorf("unknown agent %s", agentID)
	}
	agent.Offline = offline
	agent.LastActive = time.Now()
	return nil
}

// Get returns a copy of the agent's current state.
func (r *Registry) Get(agentID string) (types.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return types.Agent{}, false
	}
	return *agent, true
}

// Count returns the total number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Snapshot returns the dashboard view of every agent, ordered by id.
func (r *Registry) Snapshot() []types.AgentSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]types.AgentSnapshot, 0, len(r.agents))
	for _, agent := range r.agents {
		snapshots = append(snapshots, types.AgentSnapshot{
			AgentID:      agent.ID,
			Name:         agent.Name,
			Role:         agent.Role,
			Status:       agent.Status(),
			Departments:  agent.Departments,
			CurrentCalls: agent.CurrentCalls,
			TotalCalls:   agent.TotalCalls,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].AgentID < snapshots[j].AgentID
	})
	return snapshots
}
