// Package binread provides a positioned little-endian reader over an
// immutable byte slice with rewind-on-failure semantics.
package binread

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

// ErrShortBuffer is returned when a read runs past the end of the buffer
var ErrShortBuffer = errors.New("read past end of buffer")

// Cursor is a resettable view over a byte buffer
type Cursor struct {
	data []byte
	pos  int
}

// New returns a cursor positioned at byte 0 of data
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Len returns the total length of the underlying buffer
func (c *Cursor) Len() int {
	return len(c.data)
}

// Pos returns the current read position
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unread bytes
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Seek moves the cursor to an absolute position
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return fmt.Errorf("seek to %d outside buffer of %d bytes: %w", pos, len(c.data), ErrShortBuffer)
	}
	c.pos = pos
	return nil
}

// Try runs fn and restores the position if fn fails. The next reader sees
// the cursor exactly where it was before the attempt.
func (c *Cursor) Try(fn func(c *Cursor) error) error {
	mark := c.pos
	if err := fn(c); err != nil {
		c.pos = mark
		return err
	}
	return nil
}

// Skip advances the cursor by n bytes
func (c *Cursor) Skip(n int) error {
	if n < 0 || n > c.Remaining() {
		return fmt.Errorf("skip %d bytes at offset %d: %w", n, c.pos, ErrShortBuffer)
	}
	c.pos += n
	return nil
}

// Bytes returns the next n bytes without copying
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, c.pos, ErrShortBuffer)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Peek returns the next n bytes without advancing
func (c *Cursor) Peek(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("peek %d bytes at offset %d: %w", n, c.pos, ErrShortBuffer)
	}
	return c.data[c.pos : c.pos+n], nil
}

func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Uvarint7 reads a 7-bit encoded integer as written by .NET BinaryWriter
// (low groups first, high bit set on every byte but the last)
func (c *Cursor) Uvarint7() (int, error) {
	var result uint32
	for shift := 0; shift < 35; shift += 7 {
		b, err := c.Uint8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return int(int32(result)), nil
		}
	}
	return 0, fmt.Errorf("7-bit encoded integer at offset %d is too long", c.pos)
}

// PrefixedString reads a 7-bit length-prefixed UTF-8 string
func (c *Cursor) PrefixedString() (string, error) {
	n, err := c.Uvarint7()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length %d at offset %d", n, c.pos)
	}
	b, err := c.Bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PrefixedUTF16 reads a 7-bit byte-length-prefixed UTF-16LE string
func (c *Cursor) PrefixedUTF16() (string, error) {
	n, err := c.Uvarint7()
	if err != nil {
		return "", err
	}
	if n < 0 || n%2 != 0 {
		return "", fmt.Errorf("invalid UTF-16 byte length %d at offset %d", n, c.pos)
	}
	b, err := c.Bytes(n)
	if err != nil {
		return "", err
	}
	return DecodeUTF16LE(b)
}

// DecodeUTF16LE decodes UTF-16LE byte data to a string
func DecodeUTF16LE(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", fmt.Errorf("invalid UTF-16LE data: odd number of bytes")
	}

	u16 := make([]uint16, len(data)/2)
	for i := 0; i < len(u16); i++ {
		u16[i] = binary.LittleEndian.Uint16(data[i*2:])
	}

	return string(utf16.Decode(u16)), nil
}

// EncodeUTF16LE encodes a string as UTF-16LE bytes
func EncodeUTF16LE(s string) []byte {
	u16 := utf16.Encode([]rune(s))
	out := make([]byte, len(u16)*2)
	for i, v := range u16 {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}
