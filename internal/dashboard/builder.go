// Package dashboard periodically publishes engine snapshots to
// websocket subscribers and flushes aggregated metrics to storage.
package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dialtone/callcenter/backend/internal/engine"
	"github.com/dialtone/callcenter/backend/internal/metrics"
	"github.com/dialtone/callcenter/backend/internal/storage"
	"github.com/dialtone/callcenter/backend/internal/websocket"
	"github.com/rs/zerolog"
)

// Builder drives the snapshot broadcast loop
type Builder struct {
	router *engine.Router
	agg    *metrics.Aggregator
	hub    *websocket.Hub
	store  storage.Store
	logger zerolog.Logger

	interval      time.Duration
	flushInterval time.Duration
}

// NewBuilder creates a new Builder
func NewBuilder(router *engine.Router, agg *metrics.Aggregator, hub *websocket.Hub, store storage.Store, interval time.Duration, logger zerolog.Logger) *Builder {
	return &Builder{
		router:        router,
		agg:           agg,
		hub:           hub,
		store:         store,
		logger:        logger.With().Str("component", "dashboard").Logger(),
		interval:      interval,
		flushInterval: 15 * time.Minute,
	}
}

// Start begins broadcasting snapshots until the context is cancelled
func (b *Builder) Start(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	flush := time.NewTicker(b.flushInterval)
	defer flush.Stop()

	b.logger.Info().Dur("interval", b.interval).Msg("dashboard builder started")

	for {
		select {
		case <-ctx.Done():
			b.flushMetrics()
			b.logger.Info().Msg("dashboard builder stopped")
			return

		case <-ticker.C:
			if b.hub.ClientCount() == 0 {
				continue
			}

			snapshot := b.router.Snapshot()
			data, err := json.Marshal(snapshot)
			if err != nil {
				b.logger.Error().Err(err).Msg("failed to marshal snapshot")
				continue
			}

			b.hub.Broadcast(data)
			b.logger.Debug().
				Int("active_calls", len(snapshot.ActiveCalls)).
				Int("clients", b.hub.ClientCount()).
				Msg("snapshot broadcast")

		case <-flush.C:
			b.flushMetrics()
		}
	}
}

// flushMetrics writes the current per-agent metric buckets to storage.
func (b *Builder) flushMetrics() {
	records := b.agg.SnapshotRecords()
	for _, record := range records {
		if err := b.store.SaveMetricSnapshot(record); err != nil {
			b.logger.Error().Err(err).Str("agent_id", record.AgentID).Msg("failed to persist metric snapshot")
			return
		}
	}
	if len(records) > 0 {
		b.logger.Debug().Int("records", len(records)).Msg("metric snapshots flushed")
	}
}
