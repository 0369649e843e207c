package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/acalcutt/contour-mvt-server/internal/logger"
)

// rangeReader reads a byte range from an archive. Implementations must be
// safe for concurrent use; every read is positioned, there is no shared
// cursor.
type rangeReader interface {
	ReadRange(ctx context.Context, offset, length uint64) ([]byte, error)
}

// fileRangeReader reads ranges from a local file descriptor.
type fileRangeReader struct {
	f *os.File
}

func openFileRangeReader(path string) (*fileRangeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive file: %w", err)
	}
	return &fileRangeReader{f: f}, nil
}

func (r *fileRangeReader) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := r.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", length, offset, err)
	}
	return buf, nil
}

// httpRangeReader fetches byte ranges from a remote archive over HTTP.
type httpRangeReader struct {
	client *http.Client
	url    string
}

func newHTTPRangeReader(client *http.Client, url string) *httpRangeReader {
	return &httpRangeReader{client: client, url: url}
}

func (r *httpRangeReader) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building range request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("range request to %s: %w", r.url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debugf("closing range response body: %v", cerr)
		}
	}()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// The server ignored the Range header and is sending the whole
		// archive from offset zero. Discard up to the requested offset so
		// the read still yields the right bytes.
		if _, err := io.CopyN(io.Discard, resp.Body, int64(offset)); err != nil {
			return nil, fmt.Errorf("seeking to offset %d in full response from %s: %w", offset, r.url, err)
		}
	default:
		return nil, fmt.Errorf("range request to %s: unexpected status %d", r.url, resp.StatusCode)
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, int64(length)))
	if err != nil {
		return nil, fmt.Errorf("reading range body: %w", err)
	}
	if uint64(len(buf)) < length {
		return nil, fmt.Errorf("short range read from %s: got %d of %d bytes", r.url, len(buf), length)
	}
	return buf, nil
}
