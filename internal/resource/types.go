package resource

import (
	"image"
	"image/color"
)

// Kind identifies what a catalog entry was recognized as
type Kind int

const (
	KindIcon Kind = iota
	KindCursor
	KindRaster
)

func (k Kind) String() string {
	switch k {
	case KindIcon:
		return "icon"
	case KindCursor:
		return "cursor"
	case KindRaster:
		return "image"
	default:
		return "unknown"
	}
}

// Format is the raw-format identifier of an entry's original encoding.
// Raster formats use the names registered with the image package.
type Format string

const (
	FormatPNG       Format = "png"
	FormatJPEG      Format = "jpeg"
	FormatGIF       Format = "gif"
	FormatBMP       Format = "bmp"
	FormatTIFF      Format = "tiff"
	FormatWebP      Format = "webp"
	FormatIcon      Format = "icon"
	FormatCursor    Format = "cursor"
	FormatMemoryBMP Format = "memorybmp" // pixels produced in memory, no source encoding
	FormatUnknown   Format = "unknown"
)

// DefaultDPI is reported when an encoding carries no physical resolution
const DefaultDPI = 96.0

// Surface is a decoded pixel surface plus its metadata
type Surface struct {
	Image         image.Image
	Width         int
	Height        int
	PixelFormat   string
	HorizontalDPI float64
	VerticalDPI   float64
	Format        Format
}

func newSurface(img image.Image, format Format) *Surface {
	b := img.Bounds()
	return &Surface{
		Image:         img,
		Width:         b.Dx(),
		Height:        b.Dy(),
		PixelFormat:   pixelFormat(img),
		HorizontalDPI: DefaultDPI,
		VerticalDPI:   DefaultDPI,
		Format:        format,
	}
}

// Details is the descriptive view of an entry shown to users
type Details struct {
	Name           string
	Kind           Kind
	Format         Format
	Width          int
	Height         int
	PhysicalWidth  float64 // inches
	PhysicalHeight float64 // inches
	PixelFormat    string
	HorizontalDPI  float64
	VerticalDPI    float64
	RawSize        int
}

// pixelFormat names the pixel layout of img using the GDI+ vocabulary
func pixelFormat(img image.Image) string {
	switch p := img.(type) {
	case *image.Paletted:
		switch {
		case len(p.Palette) <= 2:
			return "1bppIndexed"
		case len(p.Palette) <= 16:
			return "4bppIndexed"
		default:
			return "8bppIndexed"
		}
	case *image.Gray:
		return "8bppGrayScale"
	case *image.Gray16:
		return "16bppGrayScale"
	case *image.YCbCr, *image.CMYK:
		return "24bppRGB"
	case *image.RGBA64, *image.NRGBA64:
		return "64bppARGB"
	case *image.RGBA:
		if p.Opaque() {
			return "32bppRGB"
		}
		return "32bppPARGB"
	}

	if img.ColorModel() == color.RGBAModel {
		return "32bppPARGB"
	}
	return "32bppARGB"
}
