package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/acalcutt/contour-mvt-server/internal/dem"
)

// FetchAdapter presents a single fetch contract over an archive to the
// contour engine. When the archive has no tile for a coordinate it
// synthesizes a blank placeholder instead of failing; backend failures are
// propagated unchanged.
type FetchAdapter struct {
	archive Archive
	blank   dem.BlankTileSpec
	timeout time.Duration
}

// NewFetchAdapter installs a fetch adapter over an opened archive. The
// blank spec is the source's effective blank-tile configuration; the
// timeout bounds a single backend call.
func NewFetchAdapter(archive Archive, blank dem.BlankTileSpec, timeout time.Duration) *FetchAdapter {
	return &FetchAdapter{archive: archive, blank: blank, timeout: timeout}
}

// GetTile fetches raw DEM raster bytes for the engine. A timeout or I/O
// failure surfaces as an error; only an explicit absent signal from the
// archive triggers blank synthesis.
func (a *FetchAdapter) GetTile(ctx context.Context, z uint8, x, y uint32) ([]byte, string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	res, err := a.archive.GetTile(ctx, z, x, y)
	if err != nil {
		return nil, "", fmt.Errorf("backend fetch (%d/%d/%d): %w", z, x, y, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if res.Absent {
		return a.synthesizeBlank()
	}
	return res.Data, res.ContentType, nil
}

// synthesizeBlank builds the placeholder tile for an absent coordinate.
// The archive's native format wins over the configured one so the blank
// decodes exactly like the archive's real tiles.
func (a *FetchAdapter) synthesizeBlank() ([]byte, string, error) {
	spec := a.blank
	if f := a.archive.TileFormat(); f != "" {
		spec.Format = f
	}
	data, err := dem.Synthesize(spec)
	if err != nil {
		return nil, "", fmt.Errorf("synthesizing blank tile: %w", err)
	}
	return data, spec.Format.MimeType(), nil
}
