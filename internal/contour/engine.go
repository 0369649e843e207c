package contour

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"

	"github.com/acalcutt/contour-mvt-server/internal/dem"
)

// TileSource supplies raw DEM raster bytes for a tile coordinate. The
// archive fetch adapter satisfies this.
type TileSource interface {
	GetTile(ctx context.Context, z uint8, x, y uint32) ([]byte, string, error)
}

// DecodeFunc decodes raster bytes into an elevation grid. The default is
// dem.DecodeGrid; tests may override it.
type DecodeFunc func(data []byte, enc dem.Encoding) (*dem.Grid, error)

// Config constructs an Engine for one source.
type Config struct {
	Encoding  dem.Encoding
	MaxZoom   int
	CacheSize int
	Timeout   time.Duration

	// URLPattern is a templated http(s) tile URL with {z}/{x}/{y}
	// placeholders. Exactly one of URLPattern and Source is set.
	URLPattern string
	Source     TileSource

	Decode DecodeFunc
}

// Tile is a generated contour vector tile. Empty (nil Data) means the
// extraction produced no features, which is a successful outcome.
type Tile struct {
	Data []byte
}

// Empty reports whether the tile carries no payload.
func (t *Tile) Empty() bool {
	return t == nil || len(t.Data) == 0
}

// Engine extracts contour lines from DEM tiles and encodes them as
// gzip-compressed Mapbox vector tiles. One engine serves one source; it is
// safe for concurrent use.
type Engine struct {
	encoding dem.Encoding
	maxzoom  int
	source   TileSource
	decode   DecodeFunc
	cache    *lru.Cache[uint64, *dem.Grid]
}

// NewEngine builds an engine from the source's configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.URLPattern != "" && cfg.Source != nil {
		return nil, fmt.Errorf("both URL pattern and tile source configured")
	}

	source := cfg.Source
	if cfg.URLPattern != "" {
		source = newHTTPTileSource(cfg.URLPattern, cfg.Timeout)
	}
	if source == nil {
		return nil, fmt.Errorf("no tile source configured")
	}

	decode := cfg.Decode
	if decode == nil {
		decode = dem.DecodeGrid
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[uint64, *dem.Grid](size)
	if err != nil {
		return nil, fmt.Errorf("building DEM tile cache: %w", err)
	}

	return &Engine{
		encoding: cfg.Encoding,
		maxzoom:  cfg.MaxZoom,
		source:   source,
		decode:   decode,
		cache:    cache,
	}, nil
}

// FetchContourTile generates the contour tile for (z, x, y) using the
// resolved options. Options must carry concrete levels; thresholds are
// resolved by the caller. The returned tile is empty when the DEM is flat
// relative to the requested intervals.
func (e *Engine) FetchContourTile(ctx context.Context, z uint8, x, y uint32, opts Options) (*Tile, error) {
	if len(opts.Levels) == 0 {
		return nil, fmt.Errorf("options carry no resolved levels")
	}

	// Above the source's maxzoom, sample an ancestor tile's sub-window.
	srcZ, srcX, srcY := z, x, y
	shift := uint8(0)
	if e.maxzoom > 0 && int(z) > e.maxzoom {
		shift = z - uint8(e.maxzoom)
		srcZ = uint8(e.maxzoom)
		srcX = x >> shift
		srcY = y >> shift
	}

	grid, err := e.demTile(ctx, srcZ, srcX, srcY)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sampler := newSampler(grid, opts.Multiplier, shift, x, y)
	features := extractIsolines(sampler, grid.Width, grid.Height, opts)
	if len(features) == 0 {
		return &Tile{}, nil
	}

	layer := &mvt.Layer{
		Name:     opts.ContourLayer,
		Version:  2,
		Extent:   uint32(opts.Extent),
		Features: features,
	}
	data, err := mvt.MarshalGzipped(mvt.Layers{layer})
	if err != nil {
		return nil, fmt.Errorf("encoding contour tile: %w", err)
	}
	return &Tile{Data: data}, nil
}

// demTile fetches and decodes the DEM raster for a coordinate, consulting
// the per-source LRU cache first.
func (e *Engine) demTile(ctx context.Context, z uint8, x, y uint32) (*dem.Grid, error) {
	key := tileKey(z, x, y)
	if grid, ok := e.cache.Get(key); ok {
		return grid, nil
	}

	raw, _, err := e.source.GetTile(ctx, z, x, y)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grid, err := e.decode(raw, e.encoding)
	if err != nil {
		return nil, fmt.Errorf("decoding DEM tile (%d/%d/%d): %w", z, x, y, err)
	}
	e.cache.Add(key, grid)
	return grid, nil
}

func tileKey(z uint8, x, y uint32) uint64 {
	return uint64(z)<<58 | uint64(x)<<29 | uint64(y)
}

// sampler reads multiplied elevations at lattice coordinates of the
// requested tile, resampling an ancestor grid when overzoomed.
type sampler func(px, py int) float64

func newSampler(grid *dem.Grid, multiplier float64, shift uint8, x, y uint32) sampler {
	if multiplier == 0 {
		multiplier = 1
	}
	if shift == 0 {
		return func(px, py int) float64 {
			return grid.At(px, py) * multiplier
		}
	}

	// The requested tile covers a 1/2^shift window of the ancestor grid.
	scale := float64(uint32(1) << shift)
	relX := float64(x&((1<<shift)-1)) / scale
	relY := float64(y&((1<<shift)-1)) / scale
	return func(px, py int) float64 {
		fx := (relX + float64(px)/float64(grid.Width-1)/scale) * float64(grid.Width-1)
		fy := (relY + float64(py)/float64(grid.Height-1)/scale) * float64(grid.Height-1)
		return bilinear(grid, fx, fy) * multiplier
	}
}

func bilinear(g *dem.Grid, fx, fy float64) float64 {
	x0, y0 := int(fx), int(fy)
	dx, dy := fx-float64(x0), fy-float64(y0)
	v00 := g.At(x0, y0)
	v10 := g.At(x0+1, y0)
	v01 := g.At(x0, y0+1)
	v11 := g.At(x0+1, y0+1)
	return v00*(1-dx)*(1-dy) + v10*dx*(1-dy) + v01*(1-dx)*dy + v11*dx*dy
}

// extractIsolines runs marching squares for every applicable level and
// converts the resulting polylines into MVT features in extent space.
func extractIsolines(sample sampler, w, h int, opts Options) []*geojson.Feature {
	minV, maxV := sampleRange(sample, w, h)
	minor := minInterval(opts.Levels)
	if minor <= 0 {
		return nil
	}

	var features []*geojson.Feature
	first := int(ceilDiv(minV, minor))
	last := int(floorDiv(maxV, minor))
	for i := first; i <= last; i++ {
		level := float64(i) * minor
		lines := traceLevel(sample, w, h, level)
		for _, line := range lines {
			ls := make(orb.LineString, 0, len(line))
			for _, p := range line {
				ls = append(ls, orb.Point{
					p.x / float64(w-1) * float64(opts.Extent),
					p.y / float64(h-1) * float64(opts.Extent),
				})
			}
			f := geojson.NewFeature(ls)
			f.Properties = geojson.Properties{
				opts.ElevationKey: level,
				opts.LevelKey:     levelIndex(level, opts.Levels),
			}
			features = append(features, f)
		}
	}
	return features
}

func sampleRange(sample sampler, w, h int) (min, max float64) {
	min = sample(0, 0)
	max = min
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := sample(x, y)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max
}

func minInterval(levels []float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	min := levels[0]
	for _, l := range levels[1:] {
		if l < min {
			min = l
		}
	}
	return min
}

// levelIndex classifies a contour elevation by the largest configured
// interval that divides it, so styling can emphasize major lines.
func levelIndex(elevation float64, levels []float64) int {
	idx := 0
	for i, interval := range levels {
		if interval > 0 && remainderIsZero(elevation, interval) {
			idx = i
		}
	}
	return idx
}

func remainderIsZero(v, interval float64) bool {
	r := v / interval
	return r == float64(int64(r))
}

func ceilDiv(v, step float64) float64 {
	d := v / step
	if d == float64(int64(d)) {
		return d
	}
	if d > 0 {
		return float64(int64(d) + 1)
	}
	return float64(int64(d))
}

func floorDiv(v, step float64) float64 {
	d := v / step
	if d == float64(int64(d)) || d > 0 {
		return float64(int64(d))
	}
	return float64(int64(d) - 1)
}
