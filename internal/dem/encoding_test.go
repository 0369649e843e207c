package dem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Encoding
		wantErr bool
	}{
		{name: "terrarium", input: "terrarium", want: EncodingTerrarium},
		{name: "mapbox", input: "mapbox", want: EncodingMapbox},
		{name: "unknown", input: "srtm", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "Terrarium", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseEncoding(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerrariumRoundTrip(t *testing.T) {
	t.Parallel()

	elevations := []float64{-11000, -432.5, 0, 8.125, 100, 4810.25, 8848}
	for _, e := range elevations {
		r, g, b := EncodingTerrarium.ToRGB(e)
		got := EncodingTerrarium.FromRGB(r, g, b)
		assert.InDelta(t, e, got, 1.0/256, "elevation %v", e)
	}
}

func TestMapboxRoundTrip(t *testing.T) {
	t.Parallel()

	elevations := []float64{-9999, -100.5, 0, 0.1, 1500.3, 8848.8}
	for _, e := range elevations {
		r, g, b := EncodingMapbox.ToRGB(e)
		got := EncodingMapbox.FromRGB(r, g, b)
		assert.InDelta(t, e, got, 0.05, "elevation %v", e)
	}
}

func TestToRGBKnownValues(t *testing.T) {
	t.Parallel()

	// terrarium: 0 m packs to 32768*256 = 0x800000
	r, g, b := EncodingTerrarium.ToRGB(0)
	assert.Equal(t, [3]uint8{0x80, 0x00, 0x00}, [3]uint8{r, g, b})

	// mapbox: 0 m packs to 100000 = 0x0186A0
	r, g, b = EncodingMapbox.ToRGB(0)
	assert.Equal(t, [3]uint8{0x01, 0x86, 0xA0}, [3]uint8{r, g, b})
}

func TestToRGBClamping(t *testing.T) {
	t.Parallel()

	// Below the packable range saturates at zero.
	r, g, b := EncodingTerrarium.ToRGB(-40000)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})

	// Above it saturates at the 24-bit ceiling.
	r, g, b = EncodingMapbox.ToRGB(1e9)
	assert.Equal(t, [3]uint8{0xFF, 0xFF, 0xFF}, [3]uint8{r, g, b})
}
