package resource

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/jchantrell/resgrab/internal/binread"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, img))
	return buf.Bytes()
}

func animatedGIF(t *testing.T) []byte {
	t.Helper()
	palette := color.Palette{color.Black, color.White}
	frames := []*image.Paletted{
		image.NewPaletted(image.Rect(0, 0, 4, 4), palette),
		image.NewPaletted(image.Rect(0, 0, 4, 4), palette),
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, &gif.GIF{Image: frames, Delay: []int{10, 10}}))
	return buf.Bytes()
}

// withAPNGControl inserts an acTL chunk declaring frames
func withAPNGControl(data []byte, frames uint32) []byte {
	body := make([]byte, 8)
	binary.BigEndian.PutUint32(body, frames)
	return withPNGChunk(data, "acTL", body)
}

// withPNGChunk inserts an ancillary chunk right after IHDR
func withPNGChunk(data []byte, typ string, body []byte) []byte {
	chunk := binary.BigEndian.AppendUint32(nil, uint32(len(body)))
	chunk = append(chunk, typ...)
	chunk = append(chunk, body...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	// signature (8) + IHDR length, type, 13 byte body, crc
	ihdrEnd := 8 + 4 + 4 + 13 + 4
	out := append([]byte{}, data[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, data[ihdrEnd:]...)
}

// iconFile builds an ICO (typ 1) or CUR (typ 2) container holding the
// given image payloads
func iconFile(typ uint16, w, h int, payloads ...[]byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, typ, uint16(len(payloads))})

	offset := iconDirSize + iconDirEntrySize*len(payloads)
	for _, p := range payloads {
		buf.WriteByte(byte(w))
		buf.WriteByte(byte(h))
		buf.WriteByte(0)
		buf.WriteByte(0)
		_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
		_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(p)), uint32(offset)})
		offset += len(p)
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return buf.Bytes()
}

// iconDIB32 builds a 32bpp icon bitmap with every pixel set to c and an
// all-opaque AND mask
func iconDIB32(w, h int, c color.NRGBA) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(40))
	_ = binary.Write(&buf, binary.LittleEndian, int32(w))
	_ = binary.Write(&buf, binary.LittleEndian, int32(h*2))
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, make([]uint32, 6))

	for i := 0; i < w*h; i++ {
		buf.Write([]byte{c.B, c.G, c.R, c.A})
	}
	maskStride := ((w + 31) / 32) * 4
	buf.Write(make([]byte, maskStride*h))
	return buf.Bytes()
}

func write7BitInt(buf *bytes.Buffer, n int) {
	v := uint32(n)
	for v >= 0x80 {
		buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
}

func writePrefixedString(buf *bytes.Buffer, s string) {
	write7BitInt(buf, len(s))
	buf.WriteString(s)
}

type testValue struct {
	name string
	code int
	body []byte
}

// resourcesFile builds a version 2 .resources stream
func resourcesFile(types []string, values []testValue) []byte {
	var readerInfo bytes.Buffer
	writePrefixedString(&readerInfo, "System.Resources.ResourceReader, mscorlib")
	writePrefixedString(&readerInfo, "System.Resources.RuntimeResourceSet")

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(resourceMagic))
	_ = binary.Write(&buf, binary.LittleEndian, int32(1))
	_ = binary.Write(&buf, binary.LittleEndian, int32(readerInfo.Len()))
	buf.Write(readerInfo.Bytes())
	_ = binary.Write(&buf, binary.LittleEndian, int32(2))
	_ = binary.Write(&buf, binary.LittleEndian, int32(len(values)))
	_ = binary.Write(&buf, binary.LittleEndian, int32(len(types)))
	for _, typ := range types {
		writePrefixedString(&buf, typ)
	}
	for i := 0; buf.Len()%8 != 0; i++ {
		buf.WriteByte("PAD"[i%3])
	}

	var names, data bytes.Buffer
	positions := make([]int32, len(values))
	for i, v := range values {
		positions[i] = int32(names.Len())
		encoded := binread.EncodeUTF16LE(v.name)
		write7BitInt(&names, len(encoded))
		names.Write(encoded)
		_ = binary.Write(&names, binary.LittleEndian, int32(data.Len()))

		write7BitInt(&data, v.code)
		data.Write(v.body)
	}

	_ = binary.Write(&buf, binary.LittleEndian, make([]uint32, len(values)))
	_ = binary.Write(&buf, binary.LittleEndian, positions)
	dataSection := buf.Len() + 4 + names.Len()
	_ = binary.Write(&buf, binary.LittleEndian, int32(dataSection))
	buf.Write(names.Bytes())
	buf.Write(data.Bytes())
	return buf.Bytes()
}

// serializedBytes wraps payload the way a binary formatter stores the
// single byte array member of an object
func serializedBytes(payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(nrbfSerializedStreamHeader)
	_ = binary.Write(&buf, binary.LittleEndian, []int32{1, -1, 1, 0})
	buf.WriteByte(nrbfArraySinglePrimitive)
	_ = binary.Write(&buf, binary.LittleEndian, []int32{3, int32(len(payload))})
	buf.WriteByte(nrbfPrimitiveByte)
	buf.Write(payload)
	buf.WriteByte(0x0b) // MessageEnd
	return buf.Bytes()
}

func byteArrayValue(payload []byte) []byte {
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(payload)))
	return append(out, payload...)
}

// imageListStream builds an ILHEAD plus strip bitmap holding one w by h
// image per color
func imageListStream(t *testing.T, w, h int, colors []color.NRGBA) []byte {
	t.Helper()
	rows := (len(colors) + imageListColumns - 1) / imageListColumns
	strip := solidImage(w*imageListColumns, h*rows, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	for i, c := range colors {
		x0, y0 := (i%imageListColumns)*w, (i/imageListColumns)*h
		for y := y0; y < y0+h; y++ {
			for x := x0; x < x0+w; x++ {
				strip.SetNRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{imageListMagic, 0x0101})
	n := int16(len(colors))
	_ = binary.Write(&buf, binary.LittleEndian, []int16{n, n, 4, int16(w), int16(h)})
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0xffffffff))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0x0021))
	_ = binary.Write(&buf, binary.LittleEndian, make([]int16, 4))
	buf.Write(encodeBMP(t, strip))
	return buf.Bytes()
}

// runLengthEncode wraps data in the MSFt (count, value) envelope
func runLengthEncode(data []byte) []byte {
	out := []byte(imageListRLEMagic)
	for i := 0; i < len(data); {
		j := i
		for j < len(data) && data[j] == data[i] && j-i < 255 {
			j++
		}
		out = append(out, byte(j-i), data[i])
		i = j
	}
	return out
}
