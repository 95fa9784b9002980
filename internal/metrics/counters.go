package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dialtone/callcenter/backend/internal/types"
)

// Counters holds all application counters
type Counters struct {
	mu sync.RWMutex

	// Call lifecycle counters
	CallsReceivedTotal   int64
	CallsDispatchedTotal int64
	CallsCompletedTotal  int64
	CallsAbandonedTotal  int64
	EscalationsTotal     int64
	TurnsProcessedTotal  int64

	// Conversation upstream counters
	ConversationTimeoutsTotal int64
	ConversationErrorsTotal   int64

	// Dispatch loop counters
	DispatchCyclesTotal  int64
	DispatchErrorsTotal  int64
	lastDispatchDuration time.Duration

	// WebSocket counters
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// Agent distribution
	agentsByStatus     map[types.AgentStatus]int
	agentsByDepartment map[types.Department]int
	totalAgents        int

	// HTTP counters
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	startTime time.Time
}

// Global counters instance
var instance *Counters
var once sync.Once

// Get returns the singleton counters instance
func Get() *Counters {
	once.Do(func() {
		instance = &Counters{
			agentsByStatus:       make(map[types.AgentStatus]int),
			agentsByDepartment:   make(map[types.Department]int),
			httpRequestsTotal:    make(map[string]map[int]int64),
			httpRequestDurations: make(map[string][]float64),
			startTime:            time.Now(),
		}
	})
	return instance
}

// RecordCallReceived increments the intake counter
func (c *Counters) RecordCallReceived() {
	c.mu.Lock()
	c.CallsReceivedTotal++
	c.mu.Unlock()
}

// RecordCallDispatched increments the dispatch counter
func (c *Counters) RecordCallDispatched() {
	c.mu.Lock()
	c.CallsDispatchedTotal++
	c.mu.Unlock()
}

// RecordCallCompleted increments the completion counter
func (c *Counters) RecordCallCompleted() {
	c.mu.Lock()
	c.CallsCompletedTotal++
	c.mu.Unlock()
}

// RecordCallAbandoned increments the abandonment counter
func (c *Counters) RecordCallAbandoned() {
	c.mu.Lock()
	c.CallsAbandonedTotal++
	c.mu.Unlock()
}

// RecordEscalation increments the escalation counter
func (c *Counters) RecordEscalation() {
	c.mu.Lock()
	c.EscalationsTotal++
	c.mu.Unlock()
}

// RecordTurn increments the processed-turn counter
func (c *Counters) RecordTurn() {
	c.mu.Lock()
	c.TurnsProcessedTotal++
	c.mu.Unlock()
}

// RecordConversationTimeout increments the upstream timeout counter
func (c *Counters) RecordConversationTimeout() {
	c.mu.Lock()
	c.ConversationTimeoutsTotal++
	c.mu.Unlock()
}

// RecordConversationError increments the upstream error counter
func (c *Counters) RecordConversationError() {
	c.mu.Lock()
	c.ConversationErrorsTotal++
	c.mu.Unlock()
}

// RecordDispatchCycle records one dispatch pass
func (c *Counters) RecordDispatchCycle(duration time.Duration) {
	c.mu.Lock()
	c.DispatchCyclesTotal++
	c.lastDispatchDuration = duration
	c.mu.Unlock()
}

// RecordDispatchError increments the dispatch error counter
func (c *Counters) RecordDispatchError() {
	c.mu.Lock()
	c.DispatchErrorsTotal++
	c.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (c *Counters) RecordWebSocketConnect() {
	c.mu.Lock()
	c.WebSocketConnectionsTotal++
	c.activeConnections++
	c.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (c *Counters) RecordWebSocketDisconnect() {
	c.mu.Lock()
	c.WebSocketDisconnectionsTotal++
	c.activeConnections--
	c.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (c *Counters) RecordWebSocketMessage() {
	c.mu.Lock()
	c.WebSocketMessagesTotal++
	c.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (c *Counters) RecordWebSocketError() {
	c.mu.Lock()
	c.WebSocketErrorsTotal++
	c.mu.Unlock()
}

// UpdateAgentStats updates agent distribution counters
func (c *Counters) UpdateAgentStats(agents []types.AgentSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.agentsByStatus = make(map[types.AgentStatus]int)
	c.agentsByDepartment = make(map[types.Department]int)
	c.totalAgents = len(agents)

	for _, agent := range agents {
		c.agentsByStatus[agent.Status]++
		for _, dept := range agent.Departments {
			c.agentsByDepartment[dept]++
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (c *Counters) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpRequestsTotal[endpoint] == nil {
		c.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	c.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(c.httpRequestDurations[endpoint]) >= 100 {
		c.httpRequestDurations[endpoint] = c.httpRequestDurations[endpoint][1:]
	}
	c.httpRequestDurations[endpoint] = append(c.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (c *Counters) GetActiveConnections() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint
func (c *Counters) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.RLock()
		defer c.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("callcenter_uptime_seconds", time.Since(c.startTime).Seconds())

		// Call lifecycle
		write("callcenter_calls_received_total", c.CallsReceivedTotal)
		write("callcenter_calls_dispatched_total", c.CallsDispatchedTotal)
		write("callcenter_calls_completed_total", c.CallsCompletedTotal)
		write("callcenter_calls_abandoned_total", c.CallsAbandonedTotal)
		write("callcenter_escalations_total", c.EscalationsTotal)
		write("callcenter_turns_processed_total", c.TurnsProcessedTotal)

		uptimeSeconds := time.Since(c.startTime).Seconds()
		if uptimeSeconds > 0 {
			write("callcenter_calls_per_second", float64(c.CallsReceivedTotal)/uptimeSeconds)
		}

		// Conversation upstream
		write("callcenter_conversation_timeouts_total", c.ConversationTimeoutsTotal)
		write("callcenter_conversation_errors_total", c.ConversationErrorsTotal)

		// Dispatch loop
		write("callcenter_dispatch_cycles_total", c.DispatchCyclesTotal)
		write("callcenter_dispatch_errors_total", c.DispatchErrorsTotal)
		write("callcenter_dispatch_duration_seconds", c.lastDispatchDuration.Seconds())

		// WebSocket
		write("callcenter_websocket_connections_total", c.WebSocketConnectionsTotal)
		write("callcenter_websocket_disconnections_total", c.WebSocketDisconnectionsTotal)
		write("callcenter_websocket_active_connections", c.activeConnections)
		write("callcenter_websocket_messages_total", c.WebSocketMessagesTotal)
		write("callcenter_websocket_errors_total", c.WebSocketErrorsTotal)

		// Agents
		write("callcenter_agents_total", c.totalAgents)

		for status, count := range c.agentsByStatus {
			write("callcenter_agents_by_status", count, "status", string(status))
		}

		for dept, count := range c.agentsByDepartment {
			write("callcenter_agents_by_department", count, "department", string(dept))
		}

		// HTTP
		for endpoint, statusCodes := range c.httpRequestsTotal {
			for status, count := range statusCodes {
				write("callcenter_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
