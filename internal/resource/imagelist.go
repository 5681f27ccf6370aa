package resource

import (
	"bytes"
	"fmt"
	"image"

	"github.com/jchantrell/resgrab/internal/binread"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	imageListRLEMagic = "MSFt"
	imageListMagic    = 0x4c49 // "IL"
	imageListHeadLen  = 28

	// images are laid out in rows of this many tiles in the strip bitmap
	imageListColumns = 4
)

// imageListHead is the ILHEAD structure written by ImageList_Write
type imageListHead struct {
	Magic    uint16
	Version  uint16
	Count    int16
	MaxCount int16
	Grow     int16
	Width    int16
	Height   int16
	BkColor  uint32
	Flags    uint16
}

// decodeImageList splits an image list stream into its component images,
// in index order
func decodeImageList(data []byte) ([]*Surface, error) {
	if bytes.HasPrefix(data, []byte(imageListRLEMagic)) {
		var err error
		data, err = decompressImageList(data[len(imageListRLEMagic):])
		if err != nil {
			return nil, err
		}
	}

	head, err := readImageListHead(binread.New(data))
	if err != nil {
		return nil, err
	}
	if head.Count == 0 {
		return nil, nil
	}

	cfg, err := bmp.DecodeConfig(bytes.NewReader(data[imageListHeadLen:]))
	if err != nil {
		return nil, fmt.Errorf("decoding image list strip: %w", err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	strip, err := bmp.Decode(bytes.NewReader(data[imageListHeadLen:]))
	if err != nil {
		return nil, fmt.Errorf("decoding image list strip: %w", err)
	}

	w, h := int(head.Width), int(head.Height)
	bounds := strip.Bounds()
	rows := (int(head.Count) + imageListColumns - 1) / imageListColumns
	if bounds.Dx() < w*min(int(head.Count), imageListColumns) || bounds.Dy() < h*rows {
		return nil, fmt.Errorf("image list strip %dx%d too small for %d images of %dx%d",
			bounds.Dx(), bounds.Dy(), head.Count, w, h)
	}

	images := make([]*Surface, 0, head.Count)
	for i := 0; i < int(head.Count); i++ {
		x := bounds.Min.X + (i%imageListColumns)*w
		y := bounds.Min.Y + (i/imageListColumns)*h

		tile := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(tile, tile.Bounds(), strip, image.Pt(x, y), draw.Src)
		images = append(images, newSurface(tile, FormatMemoryBMP))
	}

	return images, nil
}

func readImageListHead(c *binread.Cursor) (*imageListHead, error) {
	var head imageListHead
	err := c.Try(func(c *binread.Cursor) error {
		raw, err := c.Bytes(imageListHeadLen)
		if err != nil {
			return fmt.Errorf("reading image list header: %w", err)
		}
		r := binread.New(raw)
		head.Magic, _ = r.Uint16()
		head.Version, _ = r.Uint16()
		head.Count, _ = r.Int16()
		head.MaxCount, _ = r.Int16()
		head.Grow, _ = r.Int16()
		head.Width, _ = r.Int16()
		head.Height, _ = r.Int16()
		head.BkColor, _ = r.Uint32()
		head.Flags, _ = r.Uint16()

		if head.Magic != imageListMagic {
			return fmt.Errorf("bad image list magic 0x%04x", head.Magic)
		}
		if head.Count < 0 || head.Width <= 0 || head.Height <= 0 {
			return fmt.Errorf("invalid image list geometry: %d images of %dx%d", head.Count, head.Width, head.Height)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &head, nil
}

// decompressImageList expands the run-length envelope used by
// ImageListStreamer: a sequence of (count, value) byte pairs
func decompressImageList(data []byte) ([]byte, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("image list run-length data has odd length %d", len(data))
	}

	total := 0
	for i := 0; i < len(data); i += 2 {
		total += int(data[i])
	}

	out := make([]byte, 0, total)
	for i := 0; i < len(data); i += 2 {
		for n := 0; n < int(data[i]); n++ {
			out = append(out, data[i+1])
		}
	}
	return out, nil
}
