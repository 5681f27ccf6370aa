package export

import (
	"path"
	"strings"

	"github.com/jchantrell/resgrab/internal/resource"
)

// Output extensions
const (
	ExtICO  = ".ico"
	ExtCUR  = ".cur"
	ExtPNG  = ".png"
	ExtJPG  = ".jpg"
	ExtJPEG = ".jpeg"
	ExtGIF  = ".gif"
	ExtBMP  = ".bmp"
)

// rasterExtensions are the encodings a raster entry can be saved as
var rasterExtensions = map[string]bool{
	ExtPNG:  true,
	ExtJPG:  true,
	ExtJPEG: true,
	ExtGIF:  true,
	ExtBMP:  true,
}

// CanonicalExtension returns the extension an entry is saved with when no
// other is requested
func CanonicalExtension(kind resource.Kind, format resource.Format) string {
	switch kind {
	case resource.KindIcon:
		return ExtICO
	case resource.KindCursor:
		return ExtCUR
	}

	switch format {
	case resource.FormatJPEG:
		return ExtJPG
	case resource.FormatGIF:
		return ExtGIF
	case resource.FormatPNG:
		return ExtPNG
	default:
		return ExtBMP
	}
}

// resolveExtension picks the extension to save with. A requested extension
// that does not suit the entry kind falls back to the canonical one; the
// second result reports whether the request was honoured.
func resolveExtension(kind resource.Kind, format resource.Format, requested string) (string, bool) {
	requested = strings.ToLower(requested)
	if requested != "" && !strings.HasPrefix(requested, ".") {
		requested = "." + requested
	}

	switch kind {
	case resource.KindIcon:
		return ExtICO, requested == ExtICO
	case resource.KindCursor:
		return ExtCUR, requested == ExtCUR
	}

	if rasterExtensions[requested] {
		return requested, true
	}
	return CanonicalExtension(kind, format), false
}

// outputBaseName derives a file name stem from an entry name. Path
// separators are flattened and a trailing image extension is dropped.
func outputBaseName(name string) string {
	base := sanitizePath(name)
	ext := strings.ToLower(path.Ext(base))
	if ext == ExtICO || ext == ExtCUR || rasterExtensions[ext] || ext == ".tif" || ext == ".tiff" || ext == ".webp" {
		base = base[:len(base)-len(ext)]
	}
	if base == "" {
		base = "entry"
	}
	return base
}

// sanitizePath sanitizes a file path for use as a filename
// Replaces forward slashes with @ symbols
func sanitizePath(path string) string {
	return strings.ReplaceAll(path, "/", "@")
}
