package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acalcutt/contour-mvt-server/internal/dem"
)

type fakeArchive struct {
	result Result
	err    error
	format dem.Format
}

func (f *fakeArchive) GetTile(_ context.Context, _ uint8, _, _ uint32) (Result, error) {
	return f.result, f.err
}

func (f *fakeArchive) TileFormat() dem.Format {
	return f.format
}

func testBlankSpec() dem.BlankTileSpec {
	return dem.BlankTileSpec{
		Width: 16, Height: 16, NoData: 0,
		Encoding: dem.EncodingTerrarium, Format: dem.FormatPNG,
	}
}

func TestFetchAdapterPresent(t *testing.T) {
	t.Parallel()

	archive := &fakeArchive{
		result: Result{Data: []byte("raster"), ContentType: "image/png"},
		format: dem.FormatPNG,
	}
	adapter := NewFetchAdapter(archive, testBlankSpec(), time.Second)

	data, contentType, err := adapter.GetTile(context.Background(), 10, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("raster"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestFetchAdapterAbsentSynthesizesBlank(t *testing.T) {
	t.Parallel()

	archive := &fakeArchive{result: Result{Absent: true}, format: dem.FormatPNG}
	adapter := NewFetchAdapter(archive, testBlankSpec(), time.Second)

	data, contentType, err := adapter.GetTile(context.Background(), 10, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	grid, err := dem.DecodeGrid(data, dem.EncodingTerrarium)
	require.NoError(t, err)
	min, max := grid.Range()
	assert.InDelta(t, 0, min, 1.0/256)
	assert.InDelta(t, 0, max, 1.0/256)
}

func TestFetchAdapterArchiveFormatWinsForBlank(t *testing.T) {
	t.Parallel()

	// Archive metadata said webp, configuration said png: the blank must
	// match the archive's real tiles.
	archive := &fakeArchive{result: Result{Absent: true}, format: dem.FormatWebP}
	adapter := NewFetchAdapter(archive, testBlankSpec(), time.Second)

	data, contentType, err := adapter.GetTile(context.Background(), 10, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", contentType)

	_, err = dem.DecodeGrid(data, dem.EncodingTerrarium)
	require.NoError(t, err)
}

func TestFetchAdapterFailurePropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("range read failed")
	archive := &fakeArchive{err: wantErr}
	adapter := NewFetchAdapter(archive, testBlankSpec(), time.Second)

	_, _, err := adapter.GetTile(context.Background(), 10, 1, 2)
	require.ErrorIs(t, err, wantErr)
}

func TestFetchAdapterCancelledContext(t *testing.T) {
	t.Parallel()

	archive := &fakeArchive{result: Result{Data: []byte("raster")}}
	adapter := NewFetchAdapter(archive, testBlankSpec(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := adapter.GetTile(ctx, 10, 1, 2)
	require.ErrorIs(t, err, context.Canceled)
}
