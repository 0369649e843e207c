package dem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeDecodesToNoData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		spec   BlankTileSpec
		maxErr float64
	}{
		{
			name:   "png terrarium",
			spec:   BlankTileSpec{Width: 16, Height: 16, NoData: 0, Encoding: EncodingTerrarium, Format: FormatPNG},
			maxErr: 1.0 / 256,
		},
		{
			name:   "png terrarium negative nodata",
			spec:   BlankTileSpec{Width: 8, Height: 8, NoData: -500, Encoding: EncodingTerrarium, Format: FormatPNG},
			maxErr: 1.0 / 256,
		},
		{
			name:   "webp mapbox",
			spec:   BlankTileSpec{Width: 16, Height: 16, NoData: 120.5, Encoding: EncodingMapbox, Format: FormatWebP},
			maxErr: 0.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := Synthesize(tt.spec)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			grid, err := DecodeGrid(data, tt.spec.Encoding)
			require.NoError(t, err)
			assert.Equal(t, tt.spec.Width, grid.Width)
			assert.Equal(t, tt.spec.Height, grid.Height)

			min, max := grid.Range()
			assert.InDelta(t, tt.spec.NoData, min, tt.maxErr)
			assert.InDelta(t, tt.spec.NoData, max, tt.maxErr)
		})
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	t.Parallel()

	spec := BlankTileSpec{Width: 32, Height: 32, NoData: 0, Encoding: EncodingTerrarium, Format: FormatPNG}
	a, err := Synthesize(spec)
	require.NoError(t, err)
	b, err := Synthesize(spec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSynthesizeInvalidSize(t *testing.T) {
	t.Parallel()

	_, err := Synthesize(BlankTileSpec{Width: 0, Height: 256, Encoding: EncodingTerrarium, Format: FormatPNG})
	require.Error(t, err)
}

func TestFormatMimeType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/png", FormatPNG.MimeType())
	assert.Equal(t, "image/webp", FormatWebP.MimeType())
	assert.Equal(t, "image/jpeg", FormatJPEG.MimeType())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	got, err := ParseFormat("jpg")
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, got)

	_, err = ParseFormat("gif")
	require.Error(t, err)
}
