package dem

import (
	"bytes"
	"fmt"
	"image"

	// Raster decoders registered for image.Decode. webp registers itself
	// the same way the stdlib codecs do.
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"
)

// Grid is a decoded elevation raster.
type Grid struct {
	Width  int
	Height int
	values []float64
}

// DecodeGrid decodes raster bytes (png, jpeg or webp) and unpacks every
// pixel into an elevation value using the given encoding.
func DecodeGrid(data []byte, enc Encoding) (*Grid, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding DEM raster: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	g := &Grid{Width: w, Height: h, values: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gg, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns 16-bit channels; encodings are defined on 8-bit.
			g.values[y*w+x] = enc.FromRGB(uint8(r>>8), uint8(gg>>8), uint8(b>>8))
		}
	}
	return g, nil
}

// At returns the elevation at pixel (x, y). Coordinates outside the grid
// clamp to the border so samplers never read out of range.
func (g *Grid) At(x, y int) float64 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= g.Width {
		x = g.Width - 1
	}
	if y >= g.Height {
		y = g.Height - 1
	}
	return g.values[y*g.Width+x]
}

// Range returns the minimum and maximum elevation in the grid.
func (g *Grid) Range() (min, max float64) {
	if len(g.values) == 0 {
		return 0, 0
	}
	min, max = g.values[0], g.values[0]
	for _, v := range g.values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
