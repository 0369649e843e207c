package dem

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
)

// jpegQuality is the fixed quality used for formats without lossless
// encoding. Blank tiles are a single flat color, so quantization noise is
// negligible at this setting.
const jpegQuality = 90

// BlankTileSpec describes a synthesized placeholder tile. It is derived by
// merging per-source overrides onto global defaults before any request is
// served.
type BlankTileSpec struct {
	Width    int
	Height   int
	NoData   float64
	Encoding Encoding
	Format   Format
}

// Synthesize encodes a uniform-elevation placeholder raster. The result
// decodes back to the NoData elevation under the same encoding; it
// performs no I/O and is deterministic for a given input.
func Synthesize(spec BlankTileSpec) ([]byte, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid blank tile size %dx%d", spec.Width, spec.Height)
	}

	r, g, b := spec.Encoding.ToRGB(spec.NoData)
	img := image.NewNRGBA(image.Rect(0, 0, spec.Width, spec.Height))
	fill := color.NRGBA{R: r, G: g, B: b, A: 0xFF}
	for y := 0; y < spec.Height; y++ {
		for x := 0; x < spec.Width; x++ {
			img.SetNRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	switch spec.Format {
	case FormatWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
			return nil, fmt.Errorf("encoding blank webp tile: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encoding blank jpeg tile: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding blank png tile: %w", err)
		}
	}
	return buf.Bytes(), nil
}
