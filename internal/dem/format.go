package dem

import "fmt"

// Format is an output raster format for DEM tiles.
type Format string

// Supported raster formats.
const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
)

// ParseFormat validates a raster format name from configuration. "jpg" is
// accepted as an alias for jpeg.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unsupported raster format %q: expected png, webp or jpeg", s)
	}
}

// MimeType returns the content type for the format.
func (f Format) MimeType() string {
	switch f {
	case FormatWebP:
		return "image/webp"
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}
