package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TileMetricsMeterName is the name used for the tile metrics meter
const TileMetricsMeterName = "github.com/acalcutt/contour-mvt-server/tiles"

// Outcome labels recorded on tile metrics.
const (
	OutcomeOK            = "ok"
	OutcomeEmpty         = "empty"
	OutcomeNotFound      = "not_found"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeInternalError = "error"
)

// TileMetrics holds the OpenTelemetry instruments for contour tile
// generation. A nil TileMetrics is a usable no-op.
type TileMetrics struct {
	tilesTotal   metric.Int64Counter
	tileDuration metric.Float64Histogram
}

// NewTileMetrics creates a new TileMetrics instance with the given meter
// provider. If provider is nil, it returns nil (no-op metrics).
func NewTileMetrics(provider metric.MeterProvider) (*TileMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(TileMetricsMeterName)

	tilesTotal, err := meter.Int64Counter(
		"contour_tiles_total",
		metric.WithDescription("Total number of contour tile requests"),
		metric.WithUnit("{tile}"),
	)
	if err != nil {
		return nil, err
	}

	tileDuration, err := meter.Float64Histogram(
		"contour_tile_duration_seconds",
		metric.WithDescription("Duration of contour tile generation in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &TileMetrics{tilesTotal: tilesTotal, tileDuration: tileDuration}, nil
}

// RecordTile records one tile request with its outcome and duration.
func (m *TileMetrics) RecordTile(ctx context.Context, source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	}
	m.tilesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.tileDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}
