package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acalcutt/contour-mvt-server/internal/service"
)

type fakeService struct {
	result *service.TileResult
	err    error

	gotSource string
	gotZ      int
	gotX      int
	gotY      int
}

func (f *fakeService) GetContourTile(_ context.Context, source string, z, x, y int) (*service.TileResult, error) {
	f.gotSource, f.gotZ, f.gotX, f.gotY = source, z, x, y
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (*fakeService) ListSources() []service.SourceInfo {
	return []service.SourceInfo{
		{Name: "terrain", Encoding: "terrarium", MaxZoom: 12, Kind: "http"},
	}
}

func newTestRouter(svc service.ContourService) *chi.Mux {
	r := chi.NewRouter()
	r.Mount("/", HealthRouter(svc))
	r.Mount("/contours", Router(svc, nil))
	return r
}

func TestGetContourTileOK(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: &service.TileResult{Data: []byte("mvt-gzip")}}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contours/terrain/10/100/200.pbf", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-protobuf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, []byte("mvt-gzip"), rec.Body.Bytes())

	assert.Equal(t, "terrain", svc.gotSource)
	assert.Equal(t, 10, svc.gotZ)
	assert.Equal(t, 100, svc.gotX)
	assert.Equal(t, 200, svc.gotY)
}

func TestGetContourTileEmpty(t *testing.T) {
	t.Parallel()

	svc := &fakeService{result: &service.TileResult{Empty: true}}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contours/terrain/10/100/200.pbf", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestGetContourTileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		svcErr     error
		wantStatus int
	}{
		{
			name:       "unknown source",
			path:       "/contours/nope/10/100/200.pbf",
			svcErr:     service.ErrSourceNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid coordinates from service",
			path:       "/contours/terrain/30/0/0.pbf",
			svcErr:     service.ErrInvalidCoordinates,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "internal failure",
			path:       "/contours/terrain/10/100/200.pbf",
			svcErr:     errors.New("backend fetch: connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeService{err: tt.svcErr}
			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetContourTileInternalErrorIsGeneric(t *testing.T) {
	t.Parallel()

	svc := &fakeService{err: errors.New("range read /secret/archive.pmtiles failed")}
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contours/terrain/10/100/200.pbf", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestGetContourTileMalformedCoordinates(t *testing.T) {
	t.Parallel()

	paths := []string{
		"/contours/terrain/abc/100/200.pbf",
		"/contours/terrain/10/x/200.pbf",
		"/contours/terrain/10/100/200",
		"/contours/terrain/10/100/200.png",
	}

	for _, path := range paths {
		svc := &fakeService{result: &service.TileResult{Data: []byte("x")}}
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
		assert.Empty(t, svc.gotSource, "service touched for %s", path)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListSources(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sources", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var infos []service.SourceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "terrain", infos[0].Name)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "version")
}
