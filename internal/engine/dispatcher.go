package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher periodically drains the queues against available agents.
type Dispatcher struct {
	router   *Router
	interval time.Duration
	logger   zerolog.Logger
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(router *Router, interval time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		router:   router,
		interval: interval,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Start runs dispatch passes until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info().Dur("interval", d.interval).Msg("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("dispatcher stopped")
			return

		case <-ticker.C:
			if assigned := d.router.DispatchPending(); assigned > 0 {
				d.logger.Debug().Int("assigned", assigned).Msg("dispatch pass completed")
			}
		}
	}
}
