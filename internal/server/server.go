// Package server provides the HTTP server and routing for the simulation service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/govsim/internal/config"
	"github.com/aristath/govsim/internal/di"
	allocationhandlers "github.com/aristath/govsim/internal/modules/allocation/handlers"
	governancehandlers "github.com/aristath/govsim/internal/modules/governance/handlers"
	optimizationhandlers "github.com/aristath/govsim/internal/modules/optimization/handlers"
	shockhandlers "github.com/aristath/govsim/internal/modules/shock/handlers"
	"github.com/aristath/govsim/internal/render"
	"github.com/aristath/govsim/internal/session"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	seriesStream   *SeriesStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		systemHandlers: NewSystemHandlers(
			cfg.Container.Sessions,
			cfg.Container.Datasets != nil,
			cfg.Log,
		),
		seriesStream: NewSeriesStreamHandler(
			cfg.Container.ShockModel,
			cfg.Container.Allocator,
			cfg.Container.Sessions,
			cfg.Config.CORSOrigins,
			cfg.Log,
		),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", session.Header},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Websocket streams hijack the connection, so they stay outside the timeout and
	// compression middleware.
	s.router.Get("/ws/series", s.seriesStream.ServeHTTP)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if !s.cfg.DevMode {
			r.Use(middleware.Compress(5))
		}

		r.Route("/api", func(r chi.Router) {
			s.setupSimulationRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
			})
		})
	})
}

func (s *Server) setupSimulationRoutes(r chi.Router) {
	c := s.container

	// A nil *DatasetSource must not become a non-nil interface.
	var datasets governancehandlers.DatasetSource
	if c.Datasets != nil {
		datasets = c.Datasets
	}

	governancehandlers.NewHandler(c.Scorer, c.Sessions, datasets, s.log).RegisterRoutes(r)
	shockhandlers.NewHandler(c.ShockModel, c.Sessions, s.log).RegisterRoutes(r)
	allocationhandlers.NewHandler(c.Allocator, c.ShockModel, s.log).RegisterRoutes(r)
	optimizationhandlers.NewHandler(c.Optimizer, s.log).RegisterRoutes(r)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.Respond(w, r, http.StatusOK, map[string]string{"status": "ok"}, s.log)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
