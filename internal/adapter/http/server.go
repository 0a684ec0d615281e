package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/bh-network-dashboard/internal/catalog"
	"github.com/couchcryptid/bh-network-dashboard/internal/dashboard"
	"github.com/couchcryptid/bh-network-dashboard/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the request-level API the server exposes.
type Dashboard interface {
	Map(ctx context.Context, req dashboard.MapRequest) (dashboard.MapView, error)
	Table(ctx context.Context, req dashboard.TableRequest) (catalog.TableView, error)
	Facilities(ctx context.Context) (dashboard.FacilitySummary, error)
	Options() dashboard.Options
	CheckReadiness(ctx context.Context) error
}

// Server exposes the dashboard API behind the session gate, plus the
// unauthenticated health, readiness, and metrics endpoints.
type Server struct {
	httpServer    *http.Server
	dashboard     Dashboard
	sessions      *session.Manager
	secureCookies bool
	logger        *slog.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(addr string, d Dashboard, sessions *session.Manager, secureCookies bool, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		dashboard:     d,
		sessions:      sessions,
		secureCookies: secureCookies,
		logger:        logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(d))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(session.Middleware(sessions))
		r.Get("/map", s.handleMapDocument)
		r.Route("/api", func(r chi.Router) {
			r.Get("/options", s.handleOptions)
			r.Get("/view", s.handleView)
			r.Get("/table", s.handleTable)
			r.Get("/facilities", s.handleFacilities)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
