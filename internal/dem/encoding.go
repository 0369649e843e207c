// Package dem handles raster digital-elevation-model data: the RGB
// elevation encodings, raster encode/decode, and blank placeholder tiles.
package dem

import (
	"fmt"
	"math"
)

// Encoding identifies the convention used to pack elevation into RGB.
type Encoding string

const (
	// EncodingTerrarium packs elevation as (v = (e + 32768) * 256).
	EncodingTerrarium Encoding = "terrarium"
	// EncodingMapbox packs elevation as (v = (e + 10000) / 0.1).
	EncodingMapbox Encoding = "mapbox"
)

// ParseEncoding validates an encoding name from configuration.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingTerrarium, EncodingMapbox:
		return Encoding(s), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q: expected terrarium or mapbox", s)
	}
}

// ToRGB packs an elevation in meters into an RGB triple. The packed value
// is clamped to [0, 0xFFFFFF] so out-of-range elevations saturate instead
// of wrapping.
func (e Encoding) ToRGB(elevation float64) (r, g, b uint8) {
	var v float64
	switch e {
	case EncodingMapbox:
		v = math.Round((elevation + 10000) / 0.1)
	default: // terrarium
		v = math.Round((elevation + 32768) * 256)
	}
	if v < 0 {
		v = 0
	}
	if v > 0xFFFFFF {
		v = 0xFFFFFF
	}
	p := uint32(v)
	return uint8(p >> 16 & 0xFF), uint8(p >> 8 & 0xFF), uint8(p & 0xFF)
}

// FromRGB unpacks an RGB triple into an elevation in meters. It is the
// inverse of ToRGB up to the encoding's quantization step (1/256 m for
// terrarium, 0.1 m for mapbox).
func (e Encoding) FromRGB(r, g, b uint8) float64 {
	v := float64(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
	switch e {
	case EncodingMapbox:
		return v*0.1 - 10000
	default: // terrarium
		return v/256 - 32768
	}
}
