package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"qcinspect/frontend/inspections/delivery"
	"qcinspect/frontend/inspections/form"
	"qcinspect/frontend/settings"
	stationctx "qcinspect/frontend/shared/context"
	"qcinspect/infrastructure/audit"
	"qcinspect/infrastructure/logging"
	"qcinspect/infrastructure/mailer"
	"qcinspect/infrastructure/options"
	"qcinspect/infrastructure/session"
	"qcinspect/infrastructure/sqlite"
	"qcinspect/infrastructure/storage"
)

var ShutdownTimeout = 2 * time.Second

// Deps are the services the routes are wired to.
type Deps struct {
	DB         *sqlite.DB
	Audit      *audit.Service
	Catalog    *options.Catalog
	Registry   *options.Registry
	Central    *options.CentralStore
	Drafts     *form.Drafts
	Submitter  *form.Submitter
	Delivery   *delivery.Service
	Recipients *settings.Recipients
	Sender     mailer.Sender
	// Local serves /uploads/ when photos are stored on disk; nil with GCS.
	Local  *storage.LocalStore
	Logger zerolog.Logger
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	Deps
}

// NewServer creates a new http server.
func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		Addr:   addr,
		router: chi.NewRouter(),
		Deps:   deps,
		server: &http.Server{
			MaxHeaderBytes: 1 << 20,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.RequestID)
	s.router.Use(logging.RequestLogger(deps.Logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.StationMiddleware)
	s.router.Use(s.CSRFMiddleware)

	s.router.Get("/health", s.health)

	if s.Local != nil {
		s.router.Handle(storage.URLPrefix+"*", s.Local.Handler())
	}

	s.RegisterEmailRoutes()
	s.router.Route("/api", func(r chi.Router) {
		s.RegisterFormRoutes(r)
		s.RegisterInspectionRoutes(r)
		s.RegisterOptionRoutes(r)
		s.RegisterSettingsRoutes(r)
	})

	s.server.Handler = s.router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StationMiddleware binds every request to the device that sent it.
func (s *Server) StationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		station := session.EnsureStationID(w, r)
		ctx := stationctx.NewContextWithStation(r.Context(), station)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.DB.Ping(r.Context()); err != nil {
		log.Error().Err(err).Msg("health check: database unreachable")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
