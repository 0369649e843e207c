package contour

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/acalcutt/contour-mvt-server/internal/logger"
)

// httpTileSource fetches DEM rasters from a templated {z}/{x}/{y} tile
// URL. Sources of this kind bypass the archive registry; the remote server
// is the backend.
type httpTileSource struct {
	pattern string
	client  *http.Client
}

func newHTTPTileSource(pattern string, timeout time.Duration) *httpTileSource {
	return &httpTileSource{
		pattern: pattern,
		client:  &http.Client{Timeout: timeout},
	}
}

// tileURL substitutes the tile coordinate into the URL template.
func (s *httpTileSource) tileURL(z uint8, x, y uint32) string {
	url := strings.Replace(s.pattern, "{z}", strconv.Itoa(int(z)), -1)
	url = strings.Replace(url, "{x}", strconv.FormatUint(uint64(x), 10), -1)
	url = strings.Replace(url, "{y}", strconv.FormatUint(uint64(y), 10), -1)
	return url
}

func (s *httpTileSource) GetTile(ctx context.Context, z uint8, x, y uint32) ([]byte, string, error) {
	url := s.tileURL(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building tile request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching DEM tile %s: %w", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debugf("closing tile response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching DEM tile %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading DEM tile %s: %w", url, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
