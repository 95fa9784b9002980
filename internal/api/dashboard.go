package api

import (
	"net/http"
	"time"

	"github.com/dialtone/callcenter/backend/internal/engine"
	"github.com/dialtone/callcenter/backend/internal/metrics"
	"github.com/rs/zerolog"
)

// DashboardHandler serves point-in-time reads for the presentation layer
type DashboardHandler struct {
	router *engine.Router
	agg    *metrics.Aggregator
	logger zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(router *engine.Router, agg *metrics.Aggregator, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		router: router,
		agg:    agg,
		logger: logger.With().Str("component", "dashboard_api").Logger(),
	}
}

// Snapshot handles GET /api/dashboard/snapshot
func (h *DashboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.router.Snapshot())
}

// QueueStatus handles GET /api/routing/queue-status
func (h *DashboardHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.router.QueueStatuses())
}

// parseWindow maps ?window= values onto a lookback duration.
func parseWindow(raw string) (string, time.Duration) {
	switch raw {
	case "", "1h":
		return "1h", time.Hour
	case "24h":
		return "24h", 24 * time.Hour
	case "7d":
		return "7d", 7 * 24 * time.Hour
	case "30d":
		return "30d", 30 * 24 * time.Hour
	default:
		return "", 0
	}
}

// Summary handles GET /api/dashboard/summary?window=1h|24h|7d|30d
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	window, lookback := parseWindow(r.URL.Query().Get("window"))
	if window == "" {
		http.Error(w, "invalid window: use 1h, 24h, 7d or 30d", http.StatusBadRequest)
		return
	}

	now := time.Now()
	writeJSON(w, http.StatusOK, h.agg.Summary(window, now.Add(-lookback), now))
}
