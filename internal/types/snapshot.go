package types

import "time"

// AgentSnapshot is the read-only dashboard view of one agent.
type AgentSnapshot struct {
	AgentID      string       `json:"agentId"`
	Name         string       `json:"name"`
	Role         AgentRole    `json:"role"`
	Status       AgentStatus  `json:"status"`
	Departments  []Department `json:"departments"`
	CurrentCalls int          `json:"currentCalls"`
	TotalCalls   int          `json:"totalCalls"`
}

// CallSummary is the per-call line shown on the active-calls board.
type CallSummary struct {
	CallID          string     `json:"callId"`
	CustomerID      string     `json:"customerId"`
	Department      Department `json:"department"`
	Priority        Priority   `json:"priority"`
	State           CallState  `json:"state"`
	AgentID         string     `json:"agentId,omitempty"`
	Escalated       bool       `json:"escalated"`
	TurnCount       int        `json:"turnCount"`
	DurationSeconds float64    `json:"durationSeconds"`
}

// QueueStatus describes one department queue for the routing view.
// EstimatedWaitSecs is negative when no handle-time history exists
// yet; WaitKnown mirrors that for JSON consumers.
type QueueStatus struct {
	Department        Department `json:"department"`
	Name              string     `json:"name"`
	WaitingCount      int        `json:"waitingCount"`
	LongestWaitSecs   float64    `json:"longestWaitSecs"`
	EstimatedWaitSecs float64    `json:"estimatedWaitSecs"`
	WaitKnown         bool       `json:"waitKnown"`
}

// DashboardSnapshot is a consistent, point-in-time read of active
// calls, agent status, and queue state for the presentation layer.
type DashboardSnapshot struct {
	Type        string              `json:"type"` // always "snapshot"
	Timestamp   time.Time           `json:"timestamp"`
	ActiveCalls []CallSummary       `json:"activeCalls"`
	Agents      []AgentSnapshot     `json:"agents"`
	Queues      []QueueStatus       `json:"queues"`
	StateCounts map[CallState]int   `json:"stateCounts"`
	Escalated   int                 `json:"escalatedCalls"`
}

// AgentMetrics is the aggregated, time-windowed performance view of
// one agent.
type AgentMetrics struct {
	AgentID          string  `json:"agentId"`
	CallsHandled     int     `json:"callsHandled"`
	Completed        int     `json:"completed"`
	Abandoned        int     `json:"abandoned"`
	Escalations      int     `json:"escalations"`
	AvgQualityScore  float64 `json:"avgQualityScore"`
	EscalationRate   float64 `json:"escalationRate"` // percent
	AvgSatisfaction  float64 `json:"avgSatisfaction"`
	AvgHandleSeconds float64 `json:"avgHandleSeconds"`
}

// PerformanceSummary is the summary(time_window) payload: per-agent
// metrics plus global averages.
type PerformanceSummary struct {
	Window          string                  `json:"window"`
	From            time.Time               `json:"from"`
	To              time.Time               `json:"to"`
	Agents          map[string]AgentMetrics `json:"agents"`
	TotalCalls      int                     `json:"totalCalls"`
	AvgQualityScore float64                 `json:"avgQualityScore"`
	EscalationRate  float64                 `json:"escalationRate"` // percent
	AvgSatisfaction float64                 `json:"avgSatisfaction"`
}
