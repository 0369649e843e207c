package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	// sqlite driver for MBTiles archives.
	_ "github.com/mattn/go-sqlite3"

	"github.com/acalcutt/contour-mvt-server/internal/dem"
	"github.com/acalcutt/contour-mvt-server/internal/logger"
)

// MBTilesArchive reads tiles from an MBTiles (sqlite) archive opened
// read-only.
type MBTilesArchive struct {
	db     *sql.DB
	format dem.Format
}

// OpenMBTiles opens an MBTiles archive and probes its metadata for the
// native raster format. A missing or unreadable format entry is a soft
// failure: the archive opens anyway and falls back to png.
func OpenMBTiles(ctx context.Context, path string) (*MBTilesArchive, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", url.PathEscape(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mbtiles archive %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("opening mbtiles archive %s: %w", path, err)
	}

	a := &MBTilesArchive{db: db, format: dem.FormatPNG}

	var rawFormat string
	row := db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE name = 'format'`)
	if err := row.Scan(&rawFormat); err != nil {
		logger.Warnf("mbtiles %s: no readable format metadata, defaulting to png: %v", path, err)
		return a, nil
	}
	format, err := dem.ParseFormat(rawFormat)
	if err != nil {
		logger.Warnf("mbtiles %s: unrecognized format metadata %q, defaulting to png", path, rawFormat)
		return a, nil
	}
	a.format = format
	return a, nil
}

// TileFormat returns the raster format read from archive metadata.
func (a *MBTilesArchive) TileFormat() dem.Format {
	return a.format
}

// GetTile looks up a tile in the tiles table. MBTiles rows are TMS
// addressed, so the XYZ row is flipped before the query. A missing row is
// reported as absent, not as an error.
func (a *MBTilesArchive) GetTile(ctx context.Context, z uint8, x, y uint32) (Result, error) {
	tmsY := (uint32(1) << z) - 1 - y

	var data []byte
	row := a.db.QueryRowContext(ctx,
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		z, x, tmsY,
	)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return absent(), nil
		}
		return Result{}, fmt.Errorf("mbtiles lookup (%d/%d/%d): %w", z, x, y, err)
	}
	return Result{Data: data, ContentType: a.format.MimeType()}, nil
}
