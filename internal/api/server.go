// Package api provides the HTTP server for contour vector tile access.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/acalcutt/contour-mvt-server/internal/api/v1"
	"github.com/acalcutt/contour-mvt-server/internal/logger"
	"github.com/acalcutt/contour-mvt-server/internal/service"
	"github.com/acalcutt/contour-mvt-server/internal/telemetry"
)

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares []func(http.Handler) http.Handler
	tileMetrics *telemetry.TileMetrics
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithTileMetrics installs tile generation metrics on the tile routes.
func WithTileMetrics(m *telemetry.TileMetrics) ServerOption {
	return func(cfg *serverConfig) {
		cfg.tileMetrics = m
	}
}

// NewServer creates and configures the HTTP router with the given service
// and options
func NewServer(svc service.ContourService, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Health and informational routes at root
	r.Mount("/", v1.HealthRouter(svc))

	// Contour tile routes
	r.Mount("/contours", v1.Router(svc, cfg.tileMetrics))

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debugf("HTTP %s %s %d %s %s",
			r.Method,
			r.URL.Path,
			ww.Status(),
			time.Since(start),
			middleware.GetReqID(r.Context()),
		)
	})
}
