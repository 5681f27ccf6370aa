package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jchantrell/resgrab/internal/binread"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const inchesPerMeter = 39.3700787

// maxPixels bounds the surface a single blob may decode to
const maxPixels = 64 << 20

// checkDimensions rejects image sizes that are empty or larger than maxPixels
func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 || int64(w)*int64(h) > maxPixels {
		return fmt.Errorf("%w: image size %dx%d out of range", ErrNotRecognized, w, h)
	}
	return nil
}

// decodeRaster decodes a single-frame raster image through the registered
// image codecs. Multi-frame images fail with ErrAnimated.
func decodeRaster(data []byte) (*Surface, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecognized, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	format := Format(name)

	frames, err := frameCount(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: counting frames: %v", ErrNotRecognized, err)
	}
	if frames > 1 {
		return nil, fmt.Errorf("%w: %d frames", ErrAnimated, frames)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrNotRecognized, name, err)
	}

	s := newSurface(img, format)
	if h, v, ok := resolution(data, format); ok {
		s.HorizontalDPI, s.VerticalDPI = h, v
	}
	return s, nil
}

func frameCount(data []byte, format Format) (int, error) {
	switch format {
	case FormatGIF:
		g, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return 0, err
		}
		return len(g.Image), nil
	case FormatPNG:
		return pngFrameCount(data), nil
	default:
		return 1, nil
	}
}

// pngFrameCount reads num_frames from an APNG acTL chunk, 1 otherwise
func pngFrameCount(data []byte) int {
	frames := 1
	walkPNGChunks(data, func(typ string, body []byte) bool {
		if typ == "acTL" && len(body) >= 4 {
			frames = int(binary.BigEndian.Uint32(body))
			return false
		}
		return typ != "IDAT"
	})
	if frames < 1 {
		return 1
	}
	return frames
}

// walkPNGChunks calls fn for each chunk until fn returns false
func walkPNGChunks(data []byte, fn func(typ string, body []byte) bool) {
	if !bytes.HasPrefix(data, pngSignature) {
		return
	}
	p := len(pngSignature)
	for p+8 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[p:]))
		typ := string(data[p+4 : p+8])
		if n < 0 || p+8+n > len(data) {
			return
		}
		if !fn(typ, data[p+8:p+8+n]) {
			return
		}
		p += 8 + n + 4
	}
}

// resolution reads the physical resolution recorded in the encoding
func resolution(data []byte, format Format) (h, v float64, ok bool) {
	switch format {
	case FormatPNG:
		walkPNGChunks(data, func(typ string, body []byte) bool {
			if typ == "pHYs" && len(body) >= 9 && body[8] == 1 {
				h = float64(binary.BigEndian.Uint32(body[0:])) / inchesPerMeter
				v = float64(binary.BigEndian.Uint32(body[4:])) / inchesPerMeter
				ok = true
				return false
			}
			return typ != "IDAT"
		})
	case FormatBMP:
		c := binread.New(data)
		if c.Seek(bmpFileHeaderLen+24) != nil {
			return 0, 0, false
		}
		x, err1 := c.Int32()
		y, err2 := c.Int32()
		if err1 == nil && err2 == nil && x > 0 && y > 0 {
			h, v, ok = float64(x)/inchesPerMeter, float64(y)/inchesPerMeter, true
		}
	case FormatJPEG:
		return jfifDensity(data)
	}
	return h, v, ok
}

// jfifDensity reads the pixel density from a JFIF APP0 segment
func jfifDensity(data []byte) (h, v float64, ok bool) {
	// SOI, then APP0 marker, length, "JFIF\0", version, units, Xdensity, Ydensity
	if len(data) < 20 || data[0] != 0xff || data[1] != 0xd8 || data[2] != 0xff || data[3] != 0xe0 {
		return 0, 0, false
	}
	if string(data[6:11]) != "JFIF\x00" {
		return 0, 0, false
	}
	units := data[13]
	x := float64(binary.BigEndian.Uint16(data[14:]))
	y := float64(binary.BigEndian.Uint16(data[16:]))
	if x == 0 || y == 0 {
		return 0, 0, false
	}
	switch units {
	case 1:
		return x, y, true
	case 2:
		return x * 2.54, y * 2.54, true
	}
	return 0, 0, false
}
