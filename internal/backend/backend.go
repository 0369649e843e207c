// Package backend normalizes the tile archive formats (PMTiles local or
// remote, MBTiles) behind one fetch contract, caches opened handles for
// process lifetime, and substitutes synthesized blank tiles when an
// archive has no data for a coordinate.
package backend

import (
	"context"

	"github.com/acalcutt/contour-mvt-server/internal/dem"
)

// Result is the outcome of an archive tile lookup. A lookup has exactly
// three outcomes: present (Data set), absent (Absent true), or failed (the
// error returned alongside). Absence is always signaled explicitly by the
// backend, never inferred from error text.
type Result struct {
	Data        []byte
	ContentType string
	Absent      bool
}

func absent() Result { return Result{Absent: true} }

// Archive is an opened, read-only tile archive. Handles are built once at
// startup, shared across requests without locking, and never closed.
type Archive interface {
	// GetTile looks up the tile at (z, x, y). A nil error with
	// Result.Absent set means the archive has no tile there.
	GetTile(ctx context.Context, z uint8, x, y uint32) (Result, error)

	// TileFormat returns the archive's native raster format, or "" when
	// the archive does not declare one.
	TileFormat() dem.Format
}
