package types

import "time"

// Department is a routing category with its own queue and affiliated agents.
type Department string

// DeptSupervisor is the reserved department backing the supervisor queue.
// Escalated calls are re-admitted here and drained before any other queue.
const DeptSupervisor Department = "supervisor"

// DeptGeneral is the catch-all department callers land in when intake
// carries no department. Only the API edge applies this default.
const DeptGeneral Department = "general"

// DepartmentInfo pairs a department code with its human-readable name.
type DepartmentInfo struct {
	Code Department `json:"code"`
	Name string     `json:"name"`
}

// Priority orders calls within a department queue.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityNormal: "normal",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "normal"
}

// ParsePriority maps a priority name to its value. Unknown or empty
// input falls back to normal.
func ParsePriority(s string) Priority {
	for p, name := range priorityNames {
		if name == s {
			return p
		}
	}
	return PriorityNormal
}

// AgentRole distinguishes agent capabilities. Routing and supervisor
// agents are regular agents with role-specific queue affiliations,
// not separate entity types.
type AgentRole string

const (
	RoleCustomerService AgentRole = "customer_service"
	RoleRouting         AgentRole = "routing"
	RoleSupervisor      AgentRole = "supervisor"
)

// AgentStatus is the derived availability of an agent.
type AgentStatus string

const (
	StatusAvailable AgentStatus = "available"
	StatusBusy      AgentStatus = "busy"
	StatusOffline   AgentStatus = "offline"
)

// Agent is a worker capable of handling calls.
type Agent struct {
	ID           string       `json:"agentId"`
	Name         string       `json:"name"`
	Role         AgentRole    `json:"role"`
	Departments  []Department `json:"departments"`
	Capacity     int          `json:"capacity"`
	CurrentCalls int          `json:"currentCalls"`
	TotalCalls   int          `json:"totalCalls"`
	Offline      bool         `json:"offline"`
	LastActive   time.Time    `json:"lastActive"`
}

// Status derives availability from the manual offline flag and load.
func (a *Agent) Status() AgentStatus {
	switch {
	case a.Offline:
		return StatusOffline
	case a.CurrentCalls >= a.Capacity:
		return StatusBusy
	default:
		return StatusAvailable
	}
}

// ServesDepartment reports whether the agent is affiliated with dept.
func (a *Agent) ServesDepartment(dept Department) bool {
	for _, d := range a.Departments {
		if d == dept {
			return true
		}
	}
	return false
}

// EscalationReason is the trigger that moved a call to a supervisor.
type EscalationReason string

const (
	ReasonLowQualityScore   EscalationReason = "low_quality_score"
	ReasonExplicitRequest   EscalationReason = "explicit_customer_request"
	ReasonTurnLimitExceeded EscalationReason = "repeated_turn_limit_exceeded"
	ReasonAgentUnavailable  EscalationReason = "agent_unavailable_timeout"
)

// EscalationEvent records a call being handed to a supervisor.
// Immutable once created; owned by the call.
type EscalationEvent struct {
	ID           string           `json:"eventId"`
	CallID       string           `json:"callId"`
	Reason       EscalationReason `json:"reason"`
	SupervisorID string           `json:"supervisorId,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}
