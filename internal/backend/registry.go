package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/acalcutt/contour-mvt-server/internal/locator"
	"github.com/acalcutt/contour-mvt-server/internal/logger"
)

// Registry holds one opened archive handle per configured source. Open is
// called exactly once per source during startup, before the server accepts
// requests; afterwards the registry is read-only and safe to share across
// requests without locking.
type Registry struct {
	archives map[string]Archive
}

// NewRegistry creates an empty archive registry.
func NewRegistry() *Registry {
	return &Registry{archives: make(map[string]Archive)}
}

// Open opens the archive behind the resolved locator and caches the handle
// under the source name. Opening failures are fatal to startup; calling
// Open twice for the same name is a programming error and is rejected.
func (r *Registry) Open(ctx context.Context, name string, loc locator.ResolvedLocator, timeout time.Duration) (Archive, error) {
	if _, ok := r.archives[name]; ok {
		return nil, fmt.Errorf("archive for source %q already open", name)
	}

	var (
		archive Archive
		err     error
	)
	switch loc.Kind {
	case locator.KindPMTilesLocal:
		archive, err = OpenLocalPMTiles(ctx, loc.Location)
	case locator.KindPMTilesRemote:
		archive, err = OpenRemotePMTiles(ctx, loc.Location, timeout)
	case locator.KindMBTilesLocal:
		archive, err = OpenMBTiles(ctx, loc.Location)
	default:
		return nil, fmt.Errorf("source %q: locator kind %q is not archive-backed", name, loc.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}

	r.archives[name] = archive
	logger.Infof("Opened %s archive for source %q (%s)", loc.Kind, name, loc.Location)
	return archive, nil
}

// Get returns the cached handle for a source. It never opens anything.
func (r *Registry) Get(name string) (Archive, bool) {
	a, ok := r.archives[name]
	return a, ok
}
