package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acalcutt/contour-mvt-server/internal/config"
	"github.com/acalcutt/contour-mvt-server/internal/dem"
)

// newDEMServer serves a synthetic terrarium PNG ramp for every tile
// request.
func newDEMServer(t *testing.T) *httptest.Server {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			r, g, b := dem.EncodingTerrarium.ToRGB(float64(x) * 200)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
}

func newTestService(t *testing.T, srv *httptest.Server) ContourService {
	t.Helper()

	cfg, err := config.Parse([]byte(`
sources:
  terrain:
    tiles: ` + srv.URL + `/{z}/{x}/{y}.png
    encoding: terrarium
    maxzoom: 12
    contours:
      levels: [100, 500]
`))
	require.NoError(t, err)

	svc, err := NewService(context.Background(), cfg)
	require.NoError(t, err)
	return svc
}

func TestGetContourTile(t *testing.T) {
	t.Parallel()

	srv := newDEMServer(t)
	defer srv.Close()
	svc := newTestService(t, srv)

	result, err := svc.GetContourTile(context.Background(), "terrain", 10, 100, 200)
	require.NoError(t, err)
	assert.False(t, result.Empty)
	assert.NotEmpty(t, result.Data)
}

func TestGetContourTileUnknownSource(t *testing.T) {
	t.Parallel()

	srv := newDEMServer(t)
	defer srv.Close()
	svc := newTestService(t, srv)

	_, err := svc.GetContourTile(context.Background(), "nope", 10, 100, 200)
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestGetContourTileInvalidCoordinates(t *testing.T) {
	t.Parallel()

	// The backend is never consulted for rejected coordinates.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("backend touched for invalid coordinates")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	svc := newTestService(t, srv)

	tests := []struct {
		name    string
		z, x, y int
	}{
		{name: "negative zoom", z: -1, x: 0, y: 0},
		{name: "negative x", z: 5, x: -1, y: 0},
		{name: "negative y", z: 5, x: 0, y: -1},
		{name: "zoom too deep", z: 25, x: 0, y: 0},
		{name: "x out of range", z: 3, x: 8, y: 0},
		{name: "y out of range", z: 3, x: 0, y: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.GetContourTile(context.Background(), "terrain", tt.z, tt.x, tt.y)
			require.ErrorIs(t, err, ErrInvalidCoordinates)
		})
	}
}

func TestGetContourTileBackendFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	svc := newTestService(t, srv)

	_, err := svc.GetContourTile(context.Background(), "terrain", 10, 100, 200)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSourceNotFound)
	assert.NotErrorIs(t, err, ErrInvalidCoordinates)
}

func TestListSources(t *testing.T) {
	t.Parallel()

	srv := newDEMServer(t)
	defer srv.Close()
	svc := newTestService(t, srv)

	infos := svc.ListSources()
	require.Len(t, infos, 1)
	assert.Equal(t, SourceInfo{Name: "terrain", Encoding: "terrarium", MaxZoom: 12, Kind: "http"}, infos[0])
}
