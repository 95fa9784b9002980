package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dialtone/callcenter/backend/internal/engine"
	"github.com/dialtone/callcenter/backend/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AgentsHandler provides REST endpoints for agent availability and performance
type AgentsHandler struct {
	router *engine.Router
	agg    *metrics.Aggregator
	logger zerolog.Logger
}

// NewAgentsHandler creates a new AgentsHandler
func NewAgentsHandler(router *engine.Router, agg *metrics.Aggregator, logger zerolog.Logger) *AgentsHandler {
	return &AgentsHandler{
		router: router,
		agg:    agg,
		logger: logger.With().Str("component", "agents_api").Logger(),
	}
}

// Performance handles GET /api/agents/{agentId}/performance?window=
func (h *AgentsHandler) Performance(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	window, lookback := parseWindow(r.URL.Query().Get("window"))
	if window == "" {
		http.Error(w, "invalid window: use 1h, 24h, 7d or 30d", http.StatusBadRequest)
		return
	}

	now := time.Now()
	agentMetrics, ok := h.agg.AgentSummary(agentID, window, now.Add(-lookback), now)
	if !ok {
		http.Error(w, "no metrics recorded for agent in window", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, agentMetrics)
}

// SetOffline handles POST /api/agents/{agentId}/offline
func (h *AgentsHandler) SetOffline(w http.ResponseWriter, r *http.Request) {
	h.setAvailability(w, r, true)
}

// SetOnline handles POST /api/agents/{agentId}/online
func (h *AgentsHandler) SetOnline(w http.ResponseWriter, r *http.Request) {
	h.setAvailability(w, r, false)
}

func (h *AgentsHandler) setAvailability(w http.ResponseWriter, r *http.Request, offline bool) {
	agentID := chi.URLParam(r, "agentId")
	if agentID == "" {
		http.Error(w, "agentId is required", http.StatusBadRequest)
		return
	}

	var err error
	status := "online"
	if offline {
		status = "offline"
		err = h.router.SetAgentOffline(agentID)
	} else {
		err = h.router.SetAgentOnline(agentID)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	h.logger.Info().
		Str("agent_id", agentID).
		Str("status", status).
		Msg("agent availability changed via API")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"agentId": agentID,
		"status":  status,
	})
}
