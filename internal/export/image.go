package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/jchantrell/resgrab/internal/resource"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// encodeRaster encodes the decoded surface of a raster entry with the codec
// implied by ext
func (e *Exporter) encodeRaster(entry *resource.Entry, ext string) ([]byte, error) {
	surface, err := entry.Decoded()
	if err != nil {
		return nil, fmt.Errorf("decoding entry: %w", err)
	}
	if surface == nil || surface.Image == nil {
		return nil, errors.New("entry has no pixel data")
	}

	// Encoders never see the cached surface itself
	img := freshCopy(surface.Image)

	var buf bytes.Buffer
	switch ext {
	case ExtPNG:
		err = png.Encode(&buf, img)
	case ExtJPG, ExtJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.jpegQuality})
	case ExtGIF:
		err = gif.Encode(&buf, img, &gif.Options{NumColors: 256, Drawer: draw.FloydSteinberg})
	default:
		err = bmp.Encode(&buf, img)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ext, err)
	}

	return buf.Bytes(), nil
}

// freshCopy draws src into a new NRGBA surface anchored at the origin
func freshCopy(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
