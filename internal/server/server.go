// Package server provides the HTTP server and routing for the backend API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/actapp/backend/internal/auth"
	"github.com/actapp/backend/internal/config"
	"github.com/actapp/backend/internal/database"
	"github.com/actapp/backend/internal/domain"
	accountshandlers "github.com/actapp/backend/internal/modules/accounts/handlers"
	holdingshandlers "github.com/actapp/backend/internal/modules/holdings/handlers"
	"github.com/actapp/backend/internal/modules/portfolio"
	"github.com/actapp/backend/internal/modules/users"
	usershandlers "github.com/actapp/backend/internal/modules/users/handlers"
)

// Config holds server configuration
type Config struct {
	Log           zerolog.Logger
	DB            *database.DB
	Config        *config.Config
	Identity      domain.IdentityProvider
	Tokens        *auth.TokenService
	Guard         *auth.Guard
	Users         *users.Service
	StocksService *portfolio.Service
	CryptoService *portfolio.Service
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	db             *database.DB
	cfg            *config.Config
	identity       domain.IdentityProvider
	tokens         *auth.TokenService
	guard          *auth.Guard
	users          *users.Service
	stocksService  *portfolio.Service
	cryptoService  *portfolio.Service
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		log:           cfg.Log.With().Str("component", "server").Logger(),
		db:            cfg.DB,
		cfg:           cfg.Config,
		identity:      cfg.Identity,
		tokens:        cfg.Tokens,
		guard:         cfg.Guard,
		users:         cfg.Users,
		stocksService: cfg.StocksService,
		cryptoService: cfg.CryptoService,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.DB)

	s.setupMiddleware(cfg.Config.DevMode)
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

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		accountsHandler := accountshandlers.NewHandler(s.identity, s.tokens, s.log)
		accountsHandler.RegisterRoutes(r, s.guard)

		usersHandler := usershandlers.NewHandler(s.identity, s.users, s.log)
		usersHandler.RegisterRoutes(r, s.guard)

		stocksHandler := holdingshandlers.NewHandler(s.stocksService, "/stocks", s.log)
		stocksHandler.RegisterRoutes(r, s.guard)

		cryptoHandler := holdingshandlers.NewHandler(s.cryptoService, "/crypto", s.log)
		cryptoHandler.RegisterRoutes(r, s.guard)

		r.Route("/system", func(r chi.Router) {
			r.Use(s.guard.RequireUser)
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
		})
	})
}

// handleRoot returns the API banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"name":    "ACT Backend API",
		"version": "v1",
		"status":  "running",
	}); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode root response")
	}
}

// handleHealth returns liveness plus a database quick check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := s.db.QuickCheck(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode health response")
	}
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

// Router exposes the chi router for tests.
func (s *Server) Router() http.Handler {
	return s.router
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
