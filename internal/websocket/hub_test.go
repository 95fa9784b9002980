package websocket

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/dialtone/callcenter/backend/internal/auth"
	"github.com/dialtone/callcenter/backend/internal/metrics"
	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/rs/zerolog"
)

func TestNewHub(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}

	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}

	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}
}

func TestHubClientCount(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	hub.mu.Lock()
	hub.clients[&Client{id: "test1"}] = true
	hub.clients[&Client{id: "test2"}] = true
	hub.mu.Unlock()

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client := &Client{
		id:   "test-client",
		hub:  hub,
		send: make(chan []byte, 1),
	}

	before := metrics.Get().GetActiveConnections()

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after register, got %d", hub.ClientCount())
	}
	if got := metrics.Get().GetActiveConnections(); got != before+1 {
		t.Errorf("active connections = %d, want %d", got, before+1)
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
	if got := metrics.Get().GetActiveConnections(); got != before {
		t.Errorf("active connections = %d, want %d", got, before)
	}
}

func TestHubBroadcastRawToMultipleClients(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	client1 := &Client{id: "client1", hub: hub, send: make(chan []byte, 10)}
	client2 := &Client{id: "client2", hub: hub, send: make(chan []byte, 10)}

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Not a snapshot, so it goes out unfiltered.
	message := []byte(`{"type":"time","serverTime":1}`)
	hub.Broadcast(message)
	time.Sleep(10 * time.Millisecond)

	for _, client := range []*Client{client1, client2} {
		select {
		case msg := <-client.send:
			if string(msg) != string(message) {
				t.Errorf("%s expected %s, got %s", client.id, message, msg)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("%s did not receive message", client.id)
		}
	}
}

func testSnapshot() *types.DashboardSnapshot {
	return &types.DashboardSnapshot{
		Type:      "snapshot",
		Timestamp: time.Now(),
		ActiveCalls: []types.CallSummary{
			{CallID: "c1", Department: "billing", State: types.CallStateInProgress},
			{CallID: "c2", Department: "sales", State: types.CallStateQueued, Escalated: true},
		},
		Agents: []types.AgentSnapshot{
			{AgentID: "a1", Departments: []types.Department{"billing"}},
			{AgentID: "a2", Departments: []types.Department{"sales"}},
		},
		Queues: []types.QueueStatus{
			{Department: "billing", WaitingCount: 1},
			{Department: "sales", WaitingCount: 2},
		},
	}
}

func TestFilterSnapshotUnrestricted(t *testing.T) {
	client := &Client{claims: &auth.Claims{Role: "admin", AllDepartments: true}}

	snapshot := testSnapshot()
	if got := client.FilterSnapshot(snapshot); got != snapshot {
		t.Error("unrestricted claims must pass the snapshot through unchanged")
	}
}

func TestFilterSnapshotByDepartment(t *testing.T) {
	client := &Client{claims: &auth.Claims{
		Role:               "agent",
		AllowedDepartments: []types.Department{"billing"},
	}}

	filtered := client.FilterSnapshot(testSnapshot())
	if filtered == nil {
		t.Fatal("expected a filtered snapshot")
	}

	if len(filtered.ActiveCalls) != 1 || filtered.ActiveCalls[0].CallID != "c1" {
		t.Errorf("calls = %+v, want only c1", filtered.ActiveCalls)
	}
	if len(filtered.Queues) != 1 || filtered.Queues[0].Department != "billing" {
		t.Errorf("queues = %+v, want only billing", filtered.Queues)
	}
	if len(filtered.Agents) != 1 || filtered.Agents[0].AgentID != "a1" {
		t.Errorf("agents = %+v, want only a1", filtered.Agents)
	}
	if filtered.Escalated != 0 {
		t.Errorf("escalated = %d, want 0 after filtering out the sales call", filtered.Escalated)
	}
}

func TestFilterSnapshotNothingVisible(t *testing.T) {
	client := &Client{claims: &auth.Claims{
		Role:               "agent",
		AllowedDepartments: []types.Department{"complaints"},
	}}

	if got := client.FilterSnapshot(testSnapshot()); got != nil {
		t.Errorf("expected nil for a client with no visible departments, got %+v", got)
	}
}

func TestHubBroadcastFiltersSnapshots(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	go hub.Run()

	billingOnly := &Client{
		id:   "billing-agent",
		hub:  hub,
		send: make(chan []byte, 10),
		claims: &auth.Claims{
			Role:               "agent",
			AllowedDepartments: []types.Department{"billing"},
		},
	}
	hub.register <- billingOnly
	time.Sleep(10 * time.Millisecond)

	data, err := json.Marshal(testSnapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	hub.Broadcast(data)
	time.Sleep(10 * time.Millisecond)

	select {
	case msg := <-billingOnly.send:
		var got types.DashboardSnapshot
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("unmarshal filtered snapshot: %v", err)
		}
		if len(got.ActiveCalls) != 1 {
			t.Errorf("active calls = %d, want 1", len(got.ActiveCalls))
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("client did not receive filtered snapshot")
	}
}
