// Package v1 implements the contour tile HTTP API.
package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acalcutt/contour-mvt-server/internal/logger"
	"github.com/acalcutt/contour-mvt-server/internal/service"
	"github.com/acalcutt/contour-mvt-server/internal/telemetry"
	"github.com/acalcutt/contour-mvt-server/internal/versions"
)

// Routes holds the handlers for the contour tile API
type Routes struct {
	svc     service.ContourService
	metrics *telemetry.TileMetrics
}

// Router creates the tile routes backed by the given service.
func Router(svc service.ContourService, metrics *telemetry.TileMetrics) http.Handler {
	routes := &Routes{svc: svc, metrics: metrics}

	r := chi.NewRouter()
	r.Get("/{source}/{z}/{x}/{y}", routes.getContourTile)
	return r
}

// HealthRouter creates the health and informational routes.
func HealthRouter(svc service.ContourService) http.Handler {
	routes := &Routes{svc: svc}

	r := chi.NewRouter()
	r.Get("/health", routes.getHealth)
	r.Get("/sources", routes.listSources)
	r.Get("/version", routes.getVersion)
	return r
}

// getContourTile handles GET /contours/{source}/{z}/{x}/{y}.pbf
func (routes *Routes) getContourTile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	source := chi.URLParam(r, "source")

	z, x, y, ok := parseTileCoords(
		chi.URLParam(r, "z"),
		chi.URLParam(r, "x"),
		chi.URLParam(r, "y"),
	)
	if !ok {
		routes.record(r, source, telemetry.OutcomeInvalidInput, start)
		writeErrorResponse(w, http.StatusBadRequest, "invalid tile coordinates")
		return
	}

	result, err := routes.svc.GetContourTile(r.Context(), source, z, x, y)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSourceNotFound):
			routes.record(r, source, telemetry.OutcomeNotFound, start)
			writeErrorResponse(w, http.StatusNotFound, "unknown source")
		case errors.Is(err, service.ErrInvalidCoordinates):
			routes.record(r, source, telemetry.OutcomeInvalidInput, start)
			writeErrorResponse(w, http.StatusBadRequest, "invalid tile coordinates")
		default:
			logger.Errorf("Tile %s/%d/%d/%d: %v", source, z, x, y, err)
			routes.record(r, source, telemetry.OutcomeInternalError, start)
			writeErrorResponse(w, http.StatusInternalServerError, "tile generation failed")
		}
		return
	}

	if result.Empty {
		routes.record(r, source, telemetry.OutcomeEmpty, start)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	routes.record(r, source, telemetry.OutcomeOK, start)
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		logger.Errorf("Failed to write tile response: %v", err)
	}
}

// getHealth handles GET /health
func (*Routes) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listSources handles GET /sources
func (routes *Routes) listSources(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, routes.svc.ListSources())
}

// getVersion handles GET /version
func (*Routes) getVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, versions.GetVersionInfo())
}

func (routes *Routes) record(r *http.Request, source string, outcome string, start time.Time) {
	routes.metrics.RecordTile(r.Context(), source, outcome, time.Since(start))
}

// parseTileCoords parses the z/x/y path segments. The y segment carries the
// .pbf extension.
func parseTileCoords(zs, xs, ys string) (z, x, y int, ok bool) {
	ys, found := strings.CutSuffix(ys, ".pbf")
	if !found {
		return 0, 0, 0, false
	}
	z, err := strconv.Atoi(zs)
	if err != nil {
		return 0, 0, 0, false
	}
	x, err = strconv.Atoi(xs)
	if err != nil {
		return 0, 0, 0, false
	}
	y, err = strconv.Atoi(ys)
	if err != nil {
		return 0, 0, 0, false
	}
	return z, x, y, true
}

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes a JSON error response
func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, map[string]string{"error": message})
}
