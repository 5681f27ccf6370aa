package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/jchantrell/resgrab/internal/binread"
	"golang.org/x/image/bmp"
)

// ICO / CUR container layout
// ICO: http://msdn.microsoft.com/en-us/library/ms997538.aspx
const (
	iconTypeIcon   = 1
	iconTypeCursor = 2

	iconDirSize      = 6
	iconDirEntrySize = 16
	bmpFileHeaderLen = 14
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// IconDirEntry describes one image stored in an icon or cursor container
type IconDirEntry struct {
	Width       int // pixels, 0 in the file means 256
	Height      int
	ColorCount  uint8
	Planes      uint16 // icons only
	BitCount    uint16 // icons only
	HotspotX    uint16 // cursors only, shares the Planes field
	HotspotY    uint16 // cursors only, shares the BitCount field
	BytesInRes  uint32
	ImageOffset uint32
	PNG         bool // payload is a PNG stream rather than a DIB
}

// IconDirectory is the parsed header of an icon or cursor container
type IconDirectory struct {
	Type    uint16
	Entries []IconDirEntry
}

// parseIconDirectory reads an ICONDIR of the wanted type. It succeeds only
// when at least one directory entry points at a plausible image payload.
func parseIconDirectory(data []byte, want uint16) (*IconDirectory, error) {
	c := binread.New(data)

	var dir IconDirectory
	err := c.Try(func(c *binread.Cursor) error {
		reserved, err := c.Uint16()
		if err != nil {
			return err
		}
		typ, err := c.Uint16()
		if err != nil {
			return err
		}
		count, err := c.Uint16()
		if err != nil {
			return err
		}
		if reserved != 0 || typ != want {
			return fmt.Errorf("bad icon directory signature (reserved=%d, type=%d)", reserved, typ)
		}
		if count == 0 {
			return fmt.Errorf("icon directory has no images")
		}
		if c.Remaining() < int(count)*iconDirEntrySize {
			return fmt.Errorf("icon directory truncated: %d entries need %d bytes: %w", count, int(count)*iconDirEntrySize, binread.ErrShortBuffer)
		}

		dir.Type = typ
		for i := 0; i < int(count); i++ {
			raw, err := c.Bytes(iconDirEntrySize)
			if err != nil {
				return err
			}
			entry, ok := parseIconDirEntry(raw, data, typ)
			if !ok {
				continue
			}
			dir.Entries = append(dir.Entries, entry)
		}
		if len(dir.Entries) == 0 {
			return fmt.Errorf("no icon directory entry points at image data")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dir, nil
}

func parseIconDirEntry(raw, data []byte, typ uint16) (IconDirEntry, bool) {
	e := IconDirEntry{
		Width:       int(raw[0]),
		Height:      int(raw[1]),
		ColorCount:  raw[2],
		BytesInRes:  binary.LittleEndian.Uint32(raw[8:]),
		ImageOffset: binary.LittleEndian.Uint32(raw[12:]),
	}
	if e.Width == 0 {
		e.Width = 256
	}
	if e.Height == 0 {
		e.Height = 256
	}

	planes := binary.LittleEndian.Uint16(raw[4:])
	bits := binary.LittleEndian.Uint16(raw[6:])
	if typ == iconTypeCursor {
		e.HotspotX, e.HotspotY = planes, bits
	} else {
		e.Planes, e.BitCount = planes, bits
	}

	start := uint64(e.ImageOffset)
	end := start + uint64(e.BytesInRes)
	if e.BytesInRes < 8 || start < iconDirSize || end > uint64(len(data)) {
		return e, false
	}

	payload := data[start:end]
	if bytes.HasPrefix(payload, pngSignature) {
		e.PNG = true
		return e, true
	}

	switch binary.LittleEndian.Uint32(payload) {
	case 40, 108, 124:
		return e, true
	}
	return e, false
}

// bestEntry picks the largest, deepest image in the directory
func (d *IconDirectory) bestEntry() IconDirEntry {
	best := d.Entries[0]
	for _, e := range d.Entries[1:] {
		area, bestArea := e.Width*e.Height, best.Width*best.Height
		if area > bestArea || (area == bestArea && e.BitCount > best.BitCount) {
			best = e
		}
	}
	return best
}

// decodeIconSurface renders the best image of an icon or cursor container
func decodeIconSurface(data []byte, want uint16) (*Surface, error) {
	dir, err := parseIconDirectory(data, want)
	if err != nil {
		return nil, err
	}

	entry := dir.bestEntry()
	payload := data[entry.ImageOffset : entry.ImageOffset+entry.BytesInRes]

	var img image.Image
	if entry.PNG {
		cfg, err := png.DecodeConfig(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("decoding PNG icon image: %w", err)
		}
		if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
			return nil, err
		}
		img, err = png.Decode(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("decoding PNG icon image: %w", err)
		}
	} else {
		img, err = decodeIconDIB(payload)
		if err != nil {
			return nil, err
		}
	}

	format := FormatIcon
	if want == iconTypeCursor {
		format = FormatCursor
	}
	return newSurface(img, format), nil
}

// decodeIconDIB decodes a headerless device independent bitmap as stored in
// icon containers: XOR color data followed by a 1bpp AND transparency mask,
// with the header height covering both.
func decodeIconDIB(dib []byte) (image.Image, error) {
	c := binread.New(dib)
	headerSize, err := c.Uint32()
	if err != nil {
		return nil, err
	}
	if headerSize < 40 || int(headerSize) > len(dib) {
		return nil, fmt.Errorf("unsupported icon bitmap header size %d", headerSize)
	}
	width, _ := c.Int32()
	height, _ := c.Int32()
	_, _ = c.Uint16()
	bitCount, _ := c.Uint16()
	_, _ = c.Uint32()
	_ = c.Skip(12)
	clrUsed, _ := c.Uint32()

	if width <= 0 || height == 0 {
		return nil, fmt.Errorf("invalid icon bitmap size %dx%d", width, height)
	}
	colorHeight := height / 2
	if colorHeight < 0 {
		colorHeight = -colorHeight
	}
	if err := checkDimensions(int(width), int(colorHeight)); err != nil {
		return nil, err
	}

	paletteLen := 0
	if bitCount <= 8 {
		paletteLen = int(clrUsed)
		if paletteLen == 0 {
			paletteLen = 1 << bitCount
		}
	}
	pixelOffset := int(headerSize) + paletteLen*4
	if pixelOffset > len(dib) {
		return nil, fmt.Errorf("icon bitmap palette of %d colors exceeds %d bytes", paletteLen, len(dib))
	}

	// Rebuild a standalone BMP file with the color half only.
	header := make([]byte, headerSize)
	copy(header, dib[:headerSize])
	binary.LittleEndian.PutUint32(header[8:], uint32(colorHeight))
	binary.LittleEndian.PutUint32(header[20:], 0)

	var file bytes.Buffer
	file.WriteString("BM")
	_ = binary.Write(&file, binary.LittleEndian, uint32(bmpFileHeaderLen+len(dib)))
	_ = binary.Write(&file, binary.LittleEndian, uint32(0))
	_ = binary.Write(&file, binary.LittleEndian, uint32(bmpFileHeaderLen+pixelOffset))
	file.Write(header)
	file.Write(dib[headerSize:])

	colorImg, err := bmp.Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("decoding icon bitmap: %w", err)
	}

	w, h := int(width), int(colorHeight)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, colorImg.At(x, y))
		}
	}

	colorStride := ((w*int(bitCount) + 31) / 32) * 4
	if bitCount == 32 && applyAlphaChannel(out, dib[pixelOffset:], colorStride) {
		return out, nil
	}

	maskOffset := pixelOffset + colorStride*h
	applyANDMask(out, dib, maskOffset)
	return out, nil
}

// applyAlphaChannel copies the fourth byte of each 32bpp BGRA pixel into
// the surface. It reports false when every alpha byte is zero, which
// marks an icon that relies on its AND mask instead.
func applyAlphaChannel(img *image.NRGBA, pixels []byte, stride int) bool {
	b := img.Bounds()
	h := b.Dy()
	if len(pixels) < stride*h {
		return false
	}

	hasAlpha := false
	for y := 0; y < h; y++ {
		row := pixels[(h-1-y)*stride:]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4+3] != 0 {
				hasAlpha = true
				break
			}
		}
	}
	if !hasAlpha {
		return false
	}

	for y := 0; y < h; y++ {
		row := pixels[(h-1-y)*stride:]
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+3] = row[x*4+3]
		}
	}
	return true
}

func applyANDMask(img *image.NRGBA, dib []byte, offset int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := ((w + 31) / 32) * 4
	if offset < 0 || offset+stride*h > len(dib) {
		return
	}

	mask := dib[offset:]
	for y := 0; y < h; y++ {
		row := mask[(h-1-y)*stride:]
		for x := 0; x < w; x++ {
			if row[x/8]&(0x80>>(x%8)) != 0 {
				img.SetNRGBA(x, y, color.NRGBA{})
			}
		}
	}
}
