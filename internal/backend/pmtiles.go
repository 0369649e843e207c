package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/protomaps/go-pmtiles/pmtiles"

	"github.com/acalcutt/contour-mvt-server/internal/dem"
)

// maxDirectoryDepth bounds the root -> leaf directory walk. The PMTiles
// spec allows at most this many levels.
const maxDirectoryDepth = 4

// PMTilesArchive reads tiles from a PMTiles v3 archive over a range
// reader, local file or remote HTTP.
type PMTilesArchive struct {
	reader rangeReader
	header pmtiles.HeaderV3
}

// OpenLocalPMTiles opens a PMTiles archive from the local filesystem.
func OpenLocalPMTiles(ctx context.Context, path string) (*PMTilesArchive, error) {
	r, err := openFileRangeReader(path)
	if err != nil {
		return nil, err
	}
	return openPMTiles(ctx, r)
}

// OpenRemotePMTiles opens a PMTiles archive served over HTTP byte ranges.
// The timeout bounds each individual range request.
func OpenRemotePMTiles(ctx context.Context, url string, timeout time.Duration) (*PMTilesArchive, error) {
	client := &http.Client{Timeout: timeout}
	return openPMTiles(ctx, newHTTPRangeReader(client, url))
}

func openPMTiles(ctx context.Context, r rangeReader) (*PMTilesArchive, error) {
	headerBytes, err := r.ReadRange(ctx, 0, pmtiles.HeaderV3LenBytes)
	if err != nil {
		return nil, fmt.Errorf("reading pmtiles header: %w", err)
	}
	header, err := pmtiles.DeserializeHeader(headerBytes)
	if err != nil {
		return nil, fmt.Errorf("malformed pmtiles header: %w", err)
	}
	return &PMTilesArchive{reader: r, header: header}, nil
}

// TileFormat returns the raster format declared in the archive header.
func (a *PMTilesArchive) TileFormat() dem.Format {
	switch a.header.TileType {
	case pmtiles.Png:
		return dem.FormatPNG
	case pmtiles.Jpeg:
		return dem.FormatJPEG
	case pmtiles.Webp:
		return dem.FormatWebP
	default:
		return ""
	}
}

func (a *PMTilesArchive) contentType() string {
	switch a.header.TileType {
	case pmtiles.Mvt:
		return "application/x-protobuf"
	case pmtiles.Jpeg:
		return "image/jpeg"
	case pmtiles.Webp:
		return "image/webp"
	case pmtiles.Avif:
		return "image/avif"
	default:
		return "image/png"
	}
}

// GetTile walks the archive's directory tree for (z, x, y). A coordinate
// with no directory entry is reported as absent, not as an error.
func (a *PMTilesArchive) GetTile(ctx context.Context, z uint8, x, y uint32) (Result, error) {
	tileID := pmtiles.ZxyToID(z, x, y)

	dirOffset := a.header.RootOffset
	dirLength := a.header.RootLength
	for depth := 0; depth < maxDirectoryDepth; depth++ {
		entries, err := a.readDirectory(ctx, dirOffset, dirLength)
		if err != nil {
			return Result{}, err
		}
		entry, ok := pmtiles.FindTile(entries, tileID)
		if !ok {
			return absent(), nil
		}
		if entry.RunLength == 0 {
			// Leaf directory pointer, descend.
			dirOffset = a.header.LeafDirectoryOffset + entry.Offset
			dirLength = uint64(entry.Length)
			continue
		}

		data, err := a.reader.ReadRange(ctx, a.header.TileDataOffset+entry.Offset, uint64(entry.Length))
		if err != nil {
			return Result{}, fmt.Errorf("reading tile data: %w", err)
		}
		data, err = decompress(data, a.header.TileCompression)
		if err != nil {
			return Result{}, fmt.Errorf("decompressing tile data: %w", err)
		}
		return Result{Data: data, ContentType: a.contentType()}, nil
	}
	return Result{}, fmt.Errorf("pmtiles directory tree deeper than %d levels", maxDirectoryDepth)
}

func (a *PMTilesArchive) readDirectory(ctx context.Context, offset, length uint64) ([]pmtiles.EntryV3, error) {
	raw, err := a.reader.ReadRange(ctx, offset, length)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	raw, err = decompress(raw, a.header.InternalCompression)
	if err != nil {
		return nil, fmt.Errorf("decompressing directory: %w", err)
	}
	return pmtiles.DeserializeEntries(bytes.NewBuffer(raw), pmtiles.NoCompression), nil
}

func decompress(data []byte, c pmtiles.Compression) ([]byte, error) {
	switch c {
	case pmtiles.NoCompression, pmtiles.UnknownCompression:
		return data, nil
	case pmtiles.Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("unsupported pmtiles compression %d", c)
	}
}
