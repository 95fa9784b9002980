package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dialtone/callcenter/backend/internal/storage"
	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// archiveStore serves canned records for the admin read endpoints.
type archiveStore struct {
	storage.NoopStore
	snapshots []types.MetricSnapshotRecord
}

func (s *archiveStore) GetAgentMetricSnapshots(agentID string) ([]types.MetricSnapshotRecord, error) {
	var matched []types.MetricSnapshotRecord
	for _, record := range s.snapshots {
		if record.AgentID == agentID {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

func newAdminMux(store storage.Store) *chi.Mux {
	handler := NewAdminHandler(store, zerolog.Nop())
	mux := chi.NewRouter()
	mux.Get("/api/admin/agents/{agentId}/metric-snapshots", handler.MetricSnapshots)
	return mux
}

func TestMetricSnapshotsEndpoint(t *testing.T) {
	store := &archiveStore{
		snapshots: []types.MetricSnapshotRecord{
			{AgentID: "agent-1", Bucket: "2026-08-28T10:00:00Z", CallsHandled: 4, Escalations: 1},
			{AgentID: "agent-1", Bucket: "2026-08-28T11:00:00Z", CallsHandled: 2},
			{AgentID: "agent-2", Bucket: "2026-08-28T10:00:00Z", CallsHandled: 7},
		},
	}
	mux := newAdminMux(store)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/agents/agent-1/metric-snapshots", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AgentID   string                       `json:"agentId"`
		Count     int                          `json:"count"`
		Snapshots []types.MetricSnapshotRecord `json:"snapshots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AgentID != "agent-1" || resp.Count != 2 || len(resp.Snapshots) != 2 {
		t.Errorf("response = %+v, want 2 agent-1 snapshots", resp)
	}
	if resp.Snapshots[0].CallsHandled != 4 || resp.Snapshots[0].Escalations != 1 {
		t.Errorf("first snapshot = %+v", resp.Snapshots[0])
	}
}

func TestMetricSnapshotsEndpointEmpty(t *testing.T) {
	mux := newAdminMux(storage.NewNoopStore())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/agents/ghost/metric-snapshots", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}
