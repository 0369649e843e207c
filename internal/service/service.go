// Package service provides the tile-request orchestration for the contour
// server: it composes the configured sources, their archive backends and
// contour engines behind one request-facing interface.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/acalcutt/contour-mvt-server/internal/backend"
	"github.com/acalcutt/contour-mvt-server/internal/config"
	"github.com/acalcutt/contour-mvt-server/internal/contour"
	"github.com/acalcutt/contour-mvt-server/internal/locator"
	"github.com/acalcutt/contour-mvt-server/internal/logger"
)

// Request-level error taxonomy. Backend failure detail stays behind these
// at the API boundary.
var (
	// ErrSourceNotFound reports an unknown source name.
	ErrSourceNotFound = errors.New("unknown source")
	// ErrInvalidCoordinates reports out-of-range tile coordinates.
	ErrInvalidCoordinates = errors.New("invalid tile coordinates")
)

// maxZoomLevel bounds accepted request zooms. Tile math is done in uint8/
// uint32, and no DEM source addresses deeper pyramids.
const maxZoomLevel = 24

// TileResult is the outcome of a successful contour-tile request. Empty
// means the extraction produced nothing worth emitting, which is distinct
// from both an absent DEM tile and a failure.
type TileResult struct {
	Data  []byte
	Empty bool
}

// SourceInfo describes a configured source for the informational endpoint.
type SourceInfo struct {
	Name     string `json:"name"`
	Encoding string `json:"encoding"`
	MaxZoom  int    `json:"maxzoom"`
	Kind     string `json:"kind"`
}

// ContourService handles per-request contour tile generation.
type ContourService interface {
	// GetContourTile generates the contour vector tile for a source and
	// coordinate. It returns ErrSourceNotFound or ErrInvalidCoordinates
	// for rejected requests; any other error is an internal failure.
	GetContourTile(ctx context.Context, source string, z, x, y int) (*TileResult, error)

	// ListSources describes the configured sources.
	ListSources() []SourceInfo
}

type sourceRuntime struct {
	cfg     *config.SourceConfig
	options contour.Options
	engine  *contour.Engine
}

// contourService is immutable after construction and shared read-only
// across concurrent requests.
type contourService struct {
	sources  map[string]*sourceRuntime
	registry *backend.Registry
}

// NewService validates nothing itself: it takes an already-validated
// config, opens every archive-backed source exactly once, and wires a
// contour engine per source. Any open failure aborts startup.
func NewService(ctx context.Context, cfg *config.Config) (ContourService, error) {
	registry := backend.NewRegistry()
	sources := make(map[string]*sourceRuntime, len(cfg.Sources))

	for _, name := range cfg.SourceNames() {
		src := cfg.Sources[name]
		engineCfg := contour.Config{
			Encoding:  src.Enc,
			MaxZoom:   src.EffectiveMaxZoom(),
			CacheSize: src.EffectiveCacheSize(),
			Timeout:   src.Timeout(),
		}

		if src.Locator.Kind == locator.KindHTTP {
			// Templated http sources are fetched by the engine itself;
			// no archive handle or fetch adapter is installed.
			engineCfg.URLPattern = src.Locator.Location
		} else {
			archive, err := registry.Open(ctx, name, src.Locator, src.Timeout())
			if err != nil {
				return nil, err
			}
			engineCfg.Source = backend.NewFetchAdapter(archive, cfg.BlankSpecFor(src), src.Timeout())
		}

		engine, err := contour.NewEngine(engineCfg)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}

		sources[name] = &sourceRuntime{
			cfg:     src,
			options: src.ContourOptions(),
			engine:  engine,
		}
		logger.Infof("Configured source %q (%s, encoding=%s, maxzoom=%d)",
			name, src.Locator.Kind, src.Enc, src.EffectiveMaxZoom())
	}

	return &contourService{sources: sources, registry: registry}, nil
}

func (s *contourService) GetContourTile(ctx context.Context, source string, z, x, y int) (*TileResult, error) {
	rt, ok := s.sources[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}

	if z < 0 || x < 0 || y < 0 || z > maxZoomLevel {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrInvalidCoordinates, z, x, y)
	}
	if max := int64(1) << z; int64(x) >= max || int64(y) >= max {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrInvalidCoordinates, z, x, y)
	}

	opts, err := rt.options.ResolveForZoom(z)
	if err != nil {
		return nil, fmt.Errorf("resolving contour options for %s at zoom %d: %w", source, z, err)
	}

	tile, err := rt.engine.FetchContourTile(ctx, uint8(z), uint32(x), uint32(y), opts)
	if err != nil {
		return nil, fmt.Errorf("generating contour tile %s %d/%d/%d: %w", source, z, x, y, err)
	}
	if tile.Empty() {
		return &TileResult{Empty: true}, nil
	}
	return &TileResult{Data: tile.Data}, nil
}

func (s *contourService) ListSources() []SourceInfo {
	infos := make([]SourceInfo, 0, len(s.sources))
	for _, rt := range s.sources {
		infos = append(infos, SourceInfo{
			Name:     rt.cfg.Name,
			Encoding: string(rt.cfg.Enc),
			MaxZoom:  rt.cfg.EffectiveMaxZoom(),
			Kind:     string(rt.cfg.Locator.Kind),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
