package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dialtone/callcenter/backend/internal/conversation"
	"github.com/dialtone/callcenter/backend/internal/engine"
	"github.com/dialtone/callcenter/backend/internal/metrics"
	"github.com/dialtone/callcenter/backend/internal/policy"
	"github.com/dialtone/callcenter/backend/internal/queue"
	"github.com/dialtone/callcenter/backend/internal/registry"
	"github.com/dialtone/callcenter/backend/internal/storage"
	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type scriptedCapability struct {
	reply conversation.Reply
	err   error
}

func (s *scriptedCapability) GenerateReply(_ context.Context, _ types.Department, _ []types.Turn) (conversation.Reply, error) {
	if s.err != nil {
		return conversation.Reply{}, s.err
	}
	return s.reply, nil
}

type testServer struct {
	router *engine.Router
	agg    *metrics.Aggregator
	mux    *chi.Mux
}

func newTestServer(t *testing.T, capability conversation.Capability) *testServer {
	t.Helper()

	agg := metrics.New("hour")
	queues := queue.NewSet(
		[]types.DepartmentInfo{{Code: "billing", Name: "Billing"}},
		agg,
		time.Second,
		zerolog.Nop(),
	)
	reg := registry.New()
	reg.Register(types.Agent{
		ID:          "agent-1",
		Name:        "Agent One",
		Role:        types.RoleCustomerService,
		Departments: []types.Department{"billing"},
		Capacity:    1,
	})

	router := engine.New(
		queues,
		reg,
		policy.New(policy.Config{QualityThreshold: 2, MaxTurns: 10}),
		capability,
		agg,
		storage.NewNoopStore(),
		5*time.Minute,
		zerolog.Nop(),
	)

	calls := NewCallsHandler(router, zerolog.Nop())
	dashboard := NewDashboardHandler(router, agg, zerolog.Nop())
	agents := NewAgentsHandler(router, agg, zerolog.Nop())

	mux := chi.NewRouter()
	mux.Route("/api", func(r chi.Router) {
		r.Post("/calls/intake", calls.Intake)
		r.Post("/calls/{callId}/turns", calls.SubmitTurn)
		r.Post("/calls/{callId}/escalate", calls.Escalate)
		r.Post("/calls/{callId}/complete", calls.Complete)
		r.Post("/calls/{callId}/abandon", calls.Abandon)
		r.Get("/calls/{callId}/status", calls.Status)
		r.Get("/calls/{callId}/history", calls.History)
		r.Get("/dashboard/snapshot", dashboard.Snapshot)
		r.Get("/dashboard/summary", dashboard.Summary)
		r.Get("/routing/queue-status", dashboard.QueueStatus)
		r.Get("/agents/{agentId}/performance", agents.Performance)
		r.Post("/agents/{agentId}/offline", agents.SetOffline)
		r.Post("/agents/{agentId}/online", agents.SetOnline)
	})

	return &testServer{router: router, agg: agg, mux: mux}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) intake(t *testing.T) types.Call {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/calls/intake", intakeRequest{
		CustomerID: "cust-1",
		Department: "billing",
		Priority:   "normal",
		Text:       "hello",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("intake status = %d, body %s", rec.Code, rec.Body.String())
	}

	var call types.Call
	if err := json.Unmarshal(rec.Body.Bytes(), &call); err != nil {
		t.Fatalf("decode intake response: %v", err)
	}
	return call
}

func TestIntakeEndpoint(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{})

	call := server.intake(t)
	if call.State != types.CallStateQueued {
		t.Errorf("state = %s, want queued", call.State)
	}
	if call.ID == "" {
		t.Error("call id missing")
	}
}

func TestIntakeValidation(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{})

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"unknown department", intakeRequest{CustomerID: "c", Department: "warehouse"}, http.StatusBadRequest},
		{"missing customer", intakeRequest{Department: "billing"}, http.StatusBadRequest},
		{"garbage body", "not json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := server.do(t, http.MethodPost, "/api/calls/intake", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSubmitTurnEndpoint(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{
		reply: conversation.Reply{Text: "checking now", QualityScore: 4},
	})

	call := server.intake(t)
	server.router.DispatchPending()

	rec := server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/turns", turnRequest{Text: "my bill doubled"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp turnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ReplyText != "checking now" {
		t.Errorf("replyText = %q", resp.ReplyText)
	}
	if resp.Escalated {
		t.Error("escalated = true, want false")
	}
	if resp.State != string(types.CallStateInProgress) {
		t.Errorf("state = %s, want in_progress", resp.State)
	}
}

func TestSubmitTurnUpstreamTimeout(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{err: types.ErrConversationTimeout})

	call := server.intake(t)
	server.router.DispatchPending()

	rec := server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/turns", turnRequest{Text: "hello?"})
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestSubmitTurnUpstreamUnavailable(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{err: types.ErrUpstreamUnavailable})

	call := server.intake(t)
	server.router.DispatchPending()

	rec := server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/turns", turnRequest{Text: "hello?"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestEscalateEndpoint(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{})

	call := server.intake(t)

	rec := server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/escalate", escalateRequest{Reason: "explicit_customer_request"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got types.Call
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.State != types.CallStateEscalated {
		t.Errorf("state = %s, want escalated", got.State)
	}

	rec = server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/escalate", escalateRequest{Reason: "not_a_reason"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad reason status = %d, want 400", rec.Code)
	}
}

func TestCompleteAndConflict(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{})

	call := server.intake(t)
	server.router.DispatchPending()

	rec := server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/complete", completeRequest{Outcome: "refunded"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/complete", completeRequest{})
	if rec.Code != http.StatusConflict {
		t.Errorf("second complete status = %d, want 409", rec.Code)
	}

	rec = server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/abandon", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("abandon after complete status = %d, want 409", rec.Code)
	}
}

func TestStatusAndHistoryEndpoints(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{})

	rec := server.do(t, http.MethodGet, "/api/calls/unknown/status", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for unknown call = %d, want 404", rec.Code)
	}

	call := server.intake(t)

	rec = server.do(t, http.MethodGet, "/api/calls/"+call.ID+"/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status statusResponse
	json.Unmarshal(rec.Body.Bytes(), &status)
	if status.TurnCount != 1 {
		t.Errorf("turnCount = %d, want 1", status.TurnCount)
	}

	rec = server.do(t, http.MethodGet, "/api/calls/"+call.ID+"/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	var history historyResponse
	json.Unmarshal(rec.Body.Bytes(), &history)
	if len(history.Turns) != 1 || history.Turns[0].Text != "hello" {
		t.Errorf("history turns = %+v", history.Turns)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{})
	server.intake(t)

	rec := server.do(t, http.MethodGet, "/api/dashboard/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	var snapshot types.DashboardSnapshot
	json.Unmarshal(rec.Body.Bytes(), &snapshot)
	if len(snapshot.ActiveCalls) != 1 {
		t.Errorf("active calls = %d, want 1", len(snapshot.ActiveCalls))
	}

	rec = server.do(t, http.MethodGet, "/api/routing/queue-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("queue-status = %d", rec.Code)
	}
	var queues []types.QueueStatus
	json.Unmarshal(rec.Body.Bytes(), &queues)
	// Supervisor queue plus billing.
	if len(queues) != 2 {
		t.Errorf("queues = %d, want 2", len(queues))
	}

	rec = server.do(t, http.MethodGet, "/api/dashboard/summary?window=24h", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("summary status = %d", rec.Code)
	}

	rec = server.do(t, http.MethodGet, "/api/dashboard/summary?window=yesterday", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad window status = %d, want 400", rec.Code)
	}
}

func TestAgentEndpoints(t *testing.T) {
	server := newTestServer(t, &scriptedCapability{})

	rec := server.do(t, http.MethodGet, "/api/agents/agent-1/performance", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("performance with no history = %d, want 404", rec.Code)
	}

	call := server.intake(t)
	server.router.DispatchPending()
	server.do(t, http.MethodPost, "/api/calls/"+call.ID+"/complete", completeRequest{})

	rec = server.do(t, http.MethodGet, "/api/agents/agent-1/performance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("performance status = %d", rec.Code)
	}
	var m types.AgentMetrics
	json.Unmarshal(rec.Body.Bytes(), &m)
	if m.CallsHandled != 1 {
		t.Errorf("callsHandled = %d, want 1", m.CallsHandled)
	}

	rec = server.do(t, http.MethodPost, "/api/agents/agent-1/offline", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("offline status = %d", rec.Code)
	}
	rec = server.do(t, http.MethodPost, "/api/agents/ghost/offline", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("offline unknown agent = %d, want 404", rec.Code)
	}
	rec = server.do(t, http.MethodPost, "/api/agents/agent-1/online", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("online status = %d", rec.Code)
	}
}
