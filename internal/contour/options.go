// Package contour generates contour-line vector tiles from DEM rasters.
package contour

import (
	"fmt"
	"sort"
)

// Default rendering parameters applied when a source's contour config
// leaves them unset.
const (
	DefaultLayerName    = "contours"
	DefaultElevationKey = "ele"
	DefaultLevelKey     = "level"
	DefaultExtent       = 4096
	DefaultBuffer       = 1
	DefaultMultiplier   = 1
)

// Options holds a source's contour-line configuration. Exactly one of
// Levels and Thresholds is set; ResolveForZoom collapses Thresholds into a
// concrete Levels slice for one request.
type Options struct {
	// Multiplier scales decoded elevations before interval math, e.g.
	// 3.28084 to contour in feet over a meters DEM.
	Multiplier float64

	// Levels are the contour intervals, minor first.
	Levels []float64

	// Thresholds maps a minimum zoom to the intervals applied from that
	// zoom up to the next higher key.
	Thresholds map[int][]float64

	ContourLayer string
	ElevationKey string
	LevelKey     string
	Extent       int
	Buffer       int
}

// withDefaults fills unset rendering parameters.
func (o Options) withDefaults() Options {
	if o.Multiplier == 0 {
		o.Multiplier = DefaultMultiplier
	}
	if o.ContourLayer == "" {
		o.ContourLayer = DefaultLayerName
	}
	if o.ElevationKey == "" {
		o.ElevationKey = DefaultElevationKey
	}
	if o.LevelKey == "" {
		o.LevelKey = DefaultLevelKey
	}
	if o.Extent == 0 {
		o.Extent = DefaultExtent
	}
	if o.Buffer == 0 {
		o.Buffer = DefaultBuffer
	}
	return o
}

// ResolveForZoom resolves the options to a concrete Levels slice for one
// requested zoom. With fixed Levels the options pass through unchanged
// (thresholds are already absent per the config invariant). With a
// threshold table, the bracket with the largest key <= zoom applies; a
// zoom below the lowest key falls back to the lowest bracket so low zooms
// still render, with the coarsest intervals. The result never carries
// Thresholds. Repeated calls with the same inputs yield identical levels.
func (o Options) ResolveForZoom(zoom int) (Options, error) {
	resolved := o.withDefaults()

	if len(o.Levels) > 0 {
		resolved.Thresholds = nil
		return resolved, nil
	}
	if len(o.Thresholds) == 0 {
		return Options{}, fmt.Errorf("no contour levels or thresholds configured")
	}

	keys := make([]int, 0, len(o.Thresholds))
	for k := range o.Thresholds {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	selected := keys[0]
	for _, k := range keys {
		if k > zoom {
			break
		}
		selected = k
	}

	resolved.Levels = append([]float64(nil), o.Thresholds[selected]...)
	resolved.Thresholds = nil
	return resolved, nil
}
