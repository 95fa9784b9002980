package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dialtone/callcenter/backend/internal/auth"
	"github.com/dialtone/callcenter/backend/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AdminHandler serves archived records and destructive resets
type AdminHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(store storage.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		store:  store,
		logger: logger.With().Str("component", "admin_api").Logger(),
	}
}

// RequireAdmin allows only the admin role through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || !auth.HasRole(claims, "admin") {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"admin role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSupervisorOrAdmin allows the supervisor and admin roles through.
func RequireSupervisorOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || (claims.Role != "admin" && claims.Role != "supervisor") {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"supervisor or admin role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CallRecords handles GET /api/admin/records?date=YYYY-MM-DD
func (h *AdminHandler) CallRecords(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "invalid date: expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetCallRecords(date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("failed to read call records")
		http.Error(w, "failed to read call records", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":    date,
		"count":   len(records),
		"records": records,
	})
}

// Escalations handles GET /api/admin/calls/{callId}/escalations
func (h *AdminHandler) Escalations(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")
	if callID == "" {
		http.Error(w, "callId is required", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetEscalations(callID)
	if err != nil {
		h.logger.Error().Err(err).Str("call_id", callID).Msg("failed to read escalation events")
		http.Error(w, "failed to read escalation events", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// MetricSnapshots handles GET /api/admin/agents/{agentId}/metric-snapshots
func (h *AdminHandler) MetricSnapshots(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")
	if agentID == "" {
		http.Error(w, "agentId is required", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetAgentMetricSnapshots(agentID)
	if err != nil {
		h.logger.Error().Err(err).Str("agent_id", agentID).Msg("failed to read metric snapshots")
		http.Error(w, "failed to read metric snapshots", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agentId":   agentID,
		"count":     len(records),
		"snapshots": records,
	})
}

// Reset handles POST /api/admin/reset, truncating all persisted data
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate storage")
		http.Error(w, "failed to truncate storage", http.StatusInternalServerError)
		return
	}

	h.logger.Warn().Msg("persisted data truncated via API")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "storage truncated"})
}
