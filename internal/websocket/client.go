package websocket

import (
	"time"

	"github.com/dialtone/callcenter/backend/internal/auth"
	"github.com/dialtone/callcenter/backend/internal/config"
	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client ID
	id string

	// The hub this client belongs to
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Configuration
	config *config.Config

	// Logger
	logger zerolog.Logger

	// User claims with allowed departments for snapshot filtering
	claims *auth.Claims
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, cfg *config.Config, logger zerolog.Logger, claims *auth.Claims) *Client {
	clientID := uuid.New().String()
	return &Client{
		id:     clientID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		config: cfg,
		logger: logger.With().Str("client_id", clientID).Logger(),
		claims: claims,
	}
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			break
		}
		c.logger.Debug().Str("message", string(message)).Msg("received message from client")
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// FilterSnapshot narrows a dashboard snapshot to the client's allowed
// departments. Returns nil if nothing is visible to this client.
func (c *Client) FilterSnapshot(snapshot *types.DashboardSnapshot) *types.DashboardSnapshot {
	// No claims means an unauthenticated dev connection; send as-is
	if c.claims == nil || c.claims.AllDepartments {
		return snapshot
	}

	var calls []types.CallSummary
	for _, call := range snapshot.ActiveCalls {
		if c.claims.IsDepartmentAllowed(call.Department) {
			calls = append(calls, call)
		}
	}

	var queues []types.QueueStatus
	for _, q := range snapshot.Queues {
		if c.claims.IsDepartmentAllowed(q.Department) {
			queues = append(queues, q)
		}
	}

	var agents []types.AgentSnapshot
	for _, agent := range snapshot.Agents {
		for _, dept := range agent.Departments {
			if c.claims.IsDepartmentAllowed(dept) {
				agents = append(agents, agent)
				break
			}
		}
	}

	if len(calls) == 0 && len(queues) == 0 && len(agents) == 0 {
		return nil
	}

	// Recalculate state counts for the visible calls
	stateCounts := make(map[types.CallState]int)
	escalated := 0
	for _, call := range calls {
		stateCounts[call.State]++
		if call.Escalated {
			escalated++
		}
	}

	return &types.DashboardSnapshot{
		Type:        snapshot.Type,
		Timestamp:   snapshot.Timestamp,
		ActiveCalls: calls,
		Agents:      agents,
		Queues:      queues,
		StateCounts: stateCounts,
		Escalated:   escalated,
	}
}
