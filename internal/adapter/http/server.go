package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fixora/spaceships/internal/usecase"
	"github.com/fixora/spaceships/pkg/apperror"
)

// HealthCheck reports whether a backing dependency is reachable
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	addr    string
	handler http.Handler
	server  *http.Server
	logger  *logrus.Entry
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ServerOption customizes the API routes
type ServerOption func(*serverOptions)

type serverOptions struct {
	rateLimit *RateLimitMiddleware
}

// WithRateLimit limits API requests per client IP. /health is not limited.
func WithRateLimit(m *RateLimitMiddleware) ServerOption {
	return func(o *serverOptions) {
		o.rateLimit = m
	}
}

// NewServer creates a new HTTP server. A nil auth serves the API without
// authentication.
func NewServer(
	config ServerConfig,
	service usecase.SpaceshipService,
	auth *BasicAuth,
	health HealthCheck,
	logger logrus.FieldLogger,
	opts ...ServerOption,
) *Server {
	log := logger.WithField("component", "http")

	options := &serverOptions{}
	for _, opt := range opts {
		opt(options)
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, apperror.NewNotFound("The requested URL was not found on this server."))
	})

	router.Use(correlationMiddleware)
	router.Use(loggingMiddleware(log))
	router.Use(recoveryMiddleware(log))

	// Health check endpoint
	router.HandleFunc("/health", healthHandler(health)).Methods("GET")

	api := router.NewRoute().Subrouter()
	if options.rateLimit != nil {
		api.Use(options.rateLimit.RateLimit)
	}
	if auth != nil {
		api.Use(auth.Middleware)
	}
	NewSpaceshipHandler(service, logger).RegisterRoutes(api)

	return &Server{
		addr:    config.Addr,
		handler: router,
		logger:  log,
		server: &http.Server{
			Addr:         config.Addr,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithField("addr", s.addr).Info("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.server.Shutdown(ctx)
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
