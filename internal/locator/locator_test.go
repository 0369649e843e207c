package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		locator string
		want    ResolvedLocator
		wantErr bool
	}{
		{
			name:    "http tile template",
			locator: "http://tiles.example.com/terrain/{z}/{x}/{y}.png",
			want:    ResolvedLocator{Kind: KindHTTP, Location: "http://tiles.example.com/terrain/{z}/{x}/{y}.png"},
		},
		{
			name:    "https tile template",
			locator: "https://tiles.example.com/terrain/{z}/{x}/{y}.webp",
			want:    ResolvedLocator{Kind: KindHTTP, Location: "https://tiles.example.com/terrain/{z}/{x}/{y}.webp"},
		},
		{
			name:    "local pmtiles",
			locator: "pmtiles:///data/terrain.pmtiles",
			want:    ResolvedLocator{Kind: KindPMTilesLocal, Location: "/data/terrain.pmtiles"},
		},
		{
			name:    "remote pmtiles",
			locator: "pmtiles://https://example.com/terrain.pmtiles",
			want:    ResolvedLocator{Kind: KindPMTilesRemote, Location: "https://example.com/terrain.pmtiles"},
		},
		{
			name:    "remote pmtiles plain http",
			locator: "pmtiles://http://example.com/terrain.pmtiles",
			want:    ResolvedLocator{Kind: KindPMTilesRemote, Location: "http://example.com/terrain.pmtiles"},
		},
		{
			name:    "windows drive pmtiles with doubled separators",
			locator: "pmtiles://C://data//terrain.pmtiles",
			want:    ResolvedLocator{Kind: KindPMTilesLocal, Location: "C:/data/terrain.pmtiles"},
		},
		{
			name:    "windows drive with backslashes",
			locator: "mbtiles://D:\\\\tiles\\\\dem.mbtiles",
			want:    ResolvedLocator{Kind: KindMBTilesLocal, Location: "D:/tiles/dem.mbtiles"},
		},
		{
			name:    "local mbtiles",
			locator: "mbtiles:///var/lib/tiles/dem.mbtiles",
			want:    ResolvedLocator{Kind: KindMBTilesLocal, Location: "/var/lib/tiles/dem.mbtiles"},
		},
		{
			name:    "relative pmtiles path rejected",
			locator: "pmtiles://data/terrain.pmtiles",
			wantErr: true,
		},
		{
			name:    "empty pmtiles path rejected",
			locator: "pmtiles://",
			wantErr: true,
		},
		{
			name:    "unknown scheme rejected",
			locator: "ftp://example.com/terrain.pmtiles",
			wantErr: true,
		},
		{
			name:    "bare path rejected",
			locator: "/data/terrain.pmtiles",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(tt.locator)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsArchive(t *testing.T) {
	t.Parallel()

	assert.False(t, ResolvedLocator{Kind: KindHTTP}.IsArchive())
	assert.True(t, ResolvedLocator{Kind: KindPMTilesLocal}.IsArchive())
	assert.True(t, ResolvedLocator{Kind: KindPMTilesRemote}.IsArchive())
	assert.True(t, ResolvedLocator{Kind: KindMBTilesLocal}.IsArchive())
}
