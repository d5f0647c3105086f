// Package server provides the HTTP server and routing for the growth
// simulator.
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

	montecarlohandlers "github.com/ycliang/growthsim/internal/modules/montecarlo/handlers"
	simulationhandlers "github.com/ycliang/growthsim/internal/modules/simulation/handlers"
)

// Config holds server configuration
type Config struct {
	Log                zerolog.Logger
	Port               int
	DevMode            bool
	SimulationHandlers *simulationhandlers.Handler
	MonteCarloHandlers *montecarlohandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router             *chi.Mux
	server             *http.Server
	log                zerolog.Logger
	port               int
	devMode            bool
	simulationHandlers *simulationhandlers.Handler
	monteCarloHandlers *montecarlohandlers.Handler
	systemHandlers     *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:             chi.NewRouter(),
		log:                cfg.Log.With().Str("component", "server").Logger(),
		port:               cfg.Port,
		devMode:            cfg.DevMode,
		simulationHandlers: cfg.SimulationHandlers,
		monteCarloHandlers: cfg.MonteCarloHandlers,
		systemHandlers:     NewSystemHandlers(cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/system/health", s.systemHandlers.HandleSystemHealth)

		r.Route("/v1", func(r chi.Router) {
			s.simulationHandlers.RegisterRoutes(r)
			s.monteCarloHandlers.RegisterRoutes(r)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// requestLogger logs completed requests at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("Request handled")
	})
}

// Router exposes the router for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Int("port", s.port).Bool("dev_mode", s.devMode).Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
