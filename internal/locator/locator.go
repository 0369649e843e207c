// Package locator classifies DEM tile locator strings into backend
// descriptors. Resolution is pure string work: existence checks belong to
// config validation and archive opening, not here.
package locator

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies which backend serves a resolved locator.
type Kind string

const (
	// KindHTTP is a templated http(s) tile URL fetched per tile.
	KindHTTP Kind = "http"
	// KindPMTilesLocal is a PMTiles archive on the local filesystem.
	KindPMTilesLocal Kind = "pmtiles-local"
	// KindPMTilesRemote is a PMTiles archive reached over HTTP byte ranges.
	KindPMTilesRemote Kind = "pmtiles-remote"
	// KindMBTilesLocal is an MBTiles (sqlite) archive on the local filesystem.
	KindMBTilesLocal Kind = "mbtiles"
)

const (
	schemePMTiles = "pmtiles://"
	schemeMBTiles = "mbtiles://"
)

// ResolvedLocator is the classified form of a source's tile locator.
type ResolvedLocator struct {
	Kind Kind
	// Location is the URL for http kinds or the native filesystem path
	// for local archive kinds.
	Location string
}

// IsArchive reports whether the locator points at a tile archive rather
// than a templated tile URL.
func (l ResolvedLocator) IsArchive() bool {
	return l.Kind != KindHTTP
}

// Resolve parses a DEM tile locator into a backend descriptor. Locators
// matching none of the http(s)/pmtiles/mbtiles schemes are rejected.
func Resolve(locator string) (ResolvedLocator, error) {
	switch {
	case isHTTP(locator):
		if _, err := url.Parse(locator); err != nil {
			return ResolvedLocator{}, fmt.Errorf("invalid http tile URL %q: %w", locator, err)
		}
		return ResolvedLocator{Kind: KindHTTP, Location: locator}, nil

	case strings.HasPrefix(locator, schemePMTiles):
		rest := strings.TrimPrefix(locator, schemePMTiles)
		if isHTTP(rest) {
			// Remote archive: the payload is itself a URL, leave it intact.
			if _, err := url.Parse(rest); err != nil {
				return ResolvedLocator{}, fmt.Errorf("invalid remote pmtiles URL %q: %w", rest, err)
			}
			return ResolvedLocator{Kind: KindPMTilesRemote, Location: rest}, nil
		}
		path, err := normalizeLocalPath(rest)
		if err != nil {
			return ResolvedLocator{}, fmt.Errorf("invalid pmtiles path %q: %w", rest, err)
		}
		return ResolvedLocator{Kind: KindPMTilesLocal, Location: path}, nil

	case strings.HasPrefix(locator, schemeMBTiles):
		rest := strings.TrimPrefix(locator, schemeMBTiles)
		path, err := normalizeLocalPath(rest)
		if err != nil {
			return ResolvedLocator{}, fmt.Errorf("invalid mbtiles path %q: %w", rest, err)
		}
		return ResolvedLocator{Kind: KindMBTilesLocal, Location: path}, nil

	default:
		return ResolvedLocator{}, fmt.Errorf("unsupported tile locator %q: expected http(s)://, pmtiles:// or mbtiles://", locator)
	}
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// normalizeLocalPath collapses the doubled separators the locator syntax
// requires for Windows drive paths (pmtiles://C://dir//file.pmtiles) into a
// native path, and rejects anything that is not absolute. The scheme colon
// and a drive-letter colon are ambiguous in this syntax, so a drive-letter
// remainder must not be mistaken for a malformed scheme.
func normalizeLocalPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if !strings.HasPrefix(p, "/") && !hasDrivePrefix(p) {
		return "", fmt.Errorf("path must be absolute")
	}
	return p, nil
}

// hasDrivePrefix reports whether the path starts with a Windows drive
// letter like "C:/".
func hasDrivePrefix(p string) bool {
	if len(p) < 3 {
		return false
	}
	c := p[0]
	letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return letter && p[1] == ':' && p[2] == '/'
}
