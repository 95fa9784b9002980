package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dialtone/callcenter/backend/internal/api"
	"github.com/dialtone/callcenter/backend/internal/auth"
	"github.com/dialtone/callcenter/backend/internal/config"
	"github.com/dialtone/callcenter/backend/internal/conversation"
	"github.com/dialtone/callcenter/backend/internal/dashboard"
	"github.com/dialtone/callcenter/backend/internal/engine"
	"github.com/dialtone/callcenter/backend/internal/metrics"
	"github.com/dialtone/callcenter/backend/internal/policy"
	"github.com/dialtone/callcenter/backend/internal/queue"
	"github.com/dialtone/callcenter/backend/internal/registry"
	"github.com/dialtone/callcenter/backend/internal/storage"
	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/dialtone/callcenter/backend/internal/websocket"
	"github.com/dialtone/callcenter/backend/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Int("departments", len(cfg.Departments)).
		Msg("starting call routing engine")

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage (DynamoDB or noop, per DYNAMO_MODE)
	store, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	// Metrics aggregator feeds both wait estimation and reporting
	agg := metrics.New(cfg.MetricsBucket)

	// Department queues plus the reserved supervisor queue
	queues := queue.NewSet(cfg.Departments, agg, cfg.MinWaitEstimate, log.Logger)

	// Agent registry seeded from configuration
	reg := registry.New()
	for _, seed := range cfg.Agents {
		reg.Register(seedAgent(seed, cfg.AgentCapacity))
	}
	log.Info().Int("agents", reg.Count()).Msg("agent registry seeded")

	// Conversation capability
	conv := conversation.NewHTTPClient(cfg.ConversationURL, cfg.ConversationTimeout, log.Logger)

	// Escalation policy and the call router
	pol := policy.New(policy.Config{QualityThreshold: cfg.QualityThreshold, MaxTurns: cfg.MaxTurns})
	router := engine.New(queues, reg, pol, conv, agg, store, cfg.WaitTimeout, log.Logger)

	// Dispatch loop
	dispatcher := engine.NewDispatcher(router, cfg.DispatchInterval, log.Logger)
	go dispatcher.Start(ctx)

	// WebSocket hub and dashboard broadcast loop
	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	builder := dashboard.NewBuilder(router, agg, hub, store, cfg.DispatchInterval, log.Logger)
	go builder.Start(ctx)

	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)

	// HTTP handlers
	callsHandler := api.NewCallsHandler(router, log.Logger)
	dashboardHandler := api.NewDashboardHandler(router, agg, log.Logger)
	agentsHandler := api.NewAgentsHandler(router, agg, log.Logger)
	adminHandler := api.NewAdminHandler(store, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	// Add auth middleware for protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/api", func(r chi.Router) {
			r.Post("/calls/intake", callsHandler.Intake)
			r.Post("/calls/{callId}/turns", callsHandler.SubmitTurn)
			r.Post("/calls/{callId}/escalate", callsHandler.Escalate)
			r.Post("/calls/{callId}/complete", callsHandler.Complete)
			r.Post("/calls/{callId}/abandon", callsHandler.Abandon)
			r.Get("/calls/{callId}/status", callsHandler.Status)
			r.Get("/calls/{callId}/history", callsHandler.History)

			r.Get("/dashboard/snapshot", dashboardHandler.Snapshot)
			r.Get("/dashboard/summary", dashboardHandler.Summary)
			r.Get("/routing/queue-status", dashboardHandler.QueueStatus)

			r.Get("/agents/{agentId}/performance", agentsHandler.Performance)

			// Availability toggles and archive reads need supervisor rights
			r.Group(func(r chi.Router) {
				r.Use(api.RequireSupervisorOrAdmin)
				r.Post("/agents/{agentId}/offline", agentsHandler.SetOffline)
				r.Post("/agents/{agentId}/online", agentsHandler.SetOnline)
				r.Get("/admin/records", adminHandler.CallRecords)
				r.Get("/admin/calls/{callId}/escalations", adminHandler.Escalations)
				r.Get("/admin/agents/{agentId}/metric-snapshots", adminHandler.MetricSnapshots)
			})

			r.Group(func(r chi.Router) {
				r.Use(api.RequireAdmin)
				r.Post("/admin/reset", adminHandler.Reset)
			})
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the dispatch and dashboard loops
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// seedAgent builds a registry entry from a configured seed. Supervisor
// role agents also serve the reserved supervisor queue.
func seedAgent(seed config.AgentSeed, capacity int) types.Agent {
	departments := seed.Departments
	if seed.Role == types.RoleSupervisor {
		serves := false
		for _, d := range departments {
			if d == types.DeptSupervisor {
				serves = true
				break
			}
		}
		if !serves {
			departments = append([]types.Department{types.DeptSupervisor}, departments...)
		}
	}

	return types.Agent{
		ID:          seed.ID,
		Name:        seed.Name,
		Role:        seed.Role,
		Departments: departments,
		Capacity:    capacity,
	}
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"callcenter-backend"}`)
}
