// Package server assembles the Keycloak MCP server: the role tools, the
// MCP transports, sessions, metrics and the HTTP router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"keycloak-mcp-go/internal/config"
	"keycloak-mcp-go/internal/keycloak"
	"keycloak-mcp-go/internal/mcp"
	"keycloak-mcp-go/internal/session"
	"keycloak-mcp-go/internal/telemetry"
	"keycloak-mcp-go/internal/tools"
	"keycloak-mcp-go/internal/tools/role"
)

// Server owns every long-lived component.
type Server struct {
	cfg    *config.Config
	info   *mcpsdk.Implementation
	logger zerolog.Logger

	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	tools    *tools.Registry
	sessions session.SessionManager
	store    session.SessionStore

	mcp       *mcp.Handler
	transport *mcp.HTTPHandler
}

// New wires the components described by cfg.
func New(cfg *config.Config, info *mcpsdk.Implementation, logger zerolog.Logger) *Server {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(promRegistry)

	roles := keycloak.NewRoleService(keycloak.Config{
		URL:         cfg.Keycloak.URL,
		Realm:       cfg.Keycloak.Realm,
		ClientID:    cfg.Keycloak.ClientID,
		DevUser:     cfg.Keycloak.DevUser,
		DevPassword: cfg.Keycloak.DevPassword,
	}, metrics, logger)

	registry := tools.NewRegistry()
	registry.Register(role.New(roles, tools.NewJSONSerializer(), logger).Tools()...)

	store := session.NewMemoryStore(logger)
	manager := session.NewDefaultSessionManager(store, session.ManagerConfig{
		SessionTimeout: cfg.Session.Timeout,
	}, logger)

	sessions := telemetry.NewSessionManagerWrapper(manager, metrics)
	handler := mcp.NewHandler(registry, telemetry.NewToolCaller(registry, metrics), info, logger)
	transport := mcp.NewHTTPHandler(handler, sessions, mcp.HTTPConfig{
		RequireSession: cfg.Server.RequireSession,
		KeepAlive:      cfg.Server.SSEKeepAlive,
		Endpoint:       "/mcp",
	}, logger)

	return &Server{
		cfg:       cfg,
		info:      info,
		logger:    logger.With().Str("component", "server").Logger(),
		registry:  promRegistry,
		metrics:   metrics,
		tools:     registry,
		sessions:  sessions,
		store:     store,
		mcp:       handler,
		transport: transport,
	}
}

// MCP returns the protocol dispatcher shared by both transports.
func (s *Server) MCP() *mcp.Handler {
	return s.mcp
}

// Tools returns the registered tools.
func (s *Server) Tools() *tools.Registry {
	return s.tools
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.HTTPMetricsMiddleware(s.metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", session.HeaderName, "Mcp-Protocol-Version"},
		ExposedHeaders:   []string{session.HeaderName},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"status":  "ok",
			"version": s.info.Version,
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/sessions/stats", session.StatsHandler(s.sessions, s.logger))

	r.Route("/mcp", func(r chi.Router) {
		r.Use(session.NewSessionMiddleware(s.sessions, s.logger).Handler)
		r.Post("/", s.transport.Post)
		r.Get("/", s.transport.Stream)
		r.Delete("/", s.transport.Delete)
	})

	return r
}

// Run serves HTTP on the configured address and runs the background
// workers until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open SSE streams would otherwise hold Shutdown until its deadline.
	srv.RegisterOnShutdown(s.transport.Close)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().
			Str("addr", srv.Addr).
			Str("keycloak_url", s.cfg.Keycloak.URL).
			Int("tools", len(s.tools.List())).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return session.NewCleanupService(s.sessions, session.CleanupConfig{
			CleanupInterval: s.cfg.Session.CleanupInterval,
		}, s.logger).Run(gctx)
	})

	g.Go(func() error {
		return telemetry.NewSystemMetricsCollector(s.metrics, s.logger, s.cfg.Server.MetricsInterval).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if closeErr := s.store.Close(); closeErr != nil {
		s.logger.Warn().Err(closeErr).Msg("Failed to close session store")
	}
	return err
}
