package resource

import (
	"sync"
)

// Entry is one recognized resource. Its kind is fixed at creation and the
// decoded surface is computed at most once.
type Entry struct {
	kind   Kind
	name   string
	format Format
	raw    []byte

	once    sync.Once
	mu      sync.Mutex
	surface *Surface
	err     error
	closed  bool
}

// newIconEntry records an icon or cursor. The raw bytes are kept verbatim
// for export; the surface is decoded on first access.
func newIconEntry(kind Kind, name string, raw []byte) *Entry {
	format := FormatIcon
	if kind == KindCursor {
		format = FormatCursor
	}
	return &Entry{
		kind:   kind,
		name:   name,
		format: format,
		raw:    cloneBytes(raw),
	}
}

// newRasterEntry records a raster image whose surface is already decoded.
// raw may be nil for images that only exist in memory.
func newRasterEntry(name string, raw []byte, surface *Surface) *Entry {
	e := &Entry{
		kind:    KindRaster,
		name:    name,
		format:  surface.Format,
		raw:     cloneBytes(raw),
		surface: surface,
	}
	e.once.Do(func() {})
	return e
}

func (e *Entry) Kind() Kind {
	return e.kind
}

func (e *Entry) Name() string {
	return e.name
}

// Format returns the raw-format identifier of the original encoding
func (e *Entry) Format() Format {
	return e.format
}

// RawBytes returns the original encoding, or nil when the entry was
// produced in memory (image list members). Callers must not modify it.
func (e *Entry) RawBytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raw
}

// Decoded returns the pixel surface, decoding it on first use
func (e *Entry) Decoded() (*Surface, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEntryClosed
	}

	e.once.Do(func() {
		want := uint16(iconTypeIcon)
		if e.kind == KindCursor {
			want = iconTypeCursor
		}
		e.surface, e.err = decodeIconSurface(e.raw, want)
	})
	return e.surface, e.err
}

// Details describes the entry, decoding it if needed
func (e *Entry) Details() (Details, error) {
	s, err := e.Decoded()
	if err != nil {
		return Details{}, err
	}

	d := Details{
		Name:          e.name,
		Kind:          e.kind,
		Format:        e.format,
		Width:         s.Width,
		Height:        s.Height,
		PixelFormat:   s.PixelFormat,
		HorizontalDPI: s.HorizontalDPI,
		VerticalDPI:   s.VerticalDPI,
		RawSize:       len(e.RawBytes()),
	}
	if s.HorizontalDPI > 0 {
		d.PhysicalWidth = float64(s.Width) / s.HorizontalDPI
	}
	if s.VerticalDPI > 0 {
		d.PhysicalHeight = float64(s.Height) / s.VerticalDPI
	}
	return d, nil
}

// Close releases the decoded surface and raw bytes
func (e *Entry) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.surface = nil
	e.raw = nil
}

// Catalog is the ordered set of entries produced by one container load
type Catalog struct {
	entries []*Entry
	stats   LoadStats
}

// LoadStats summarizes how the blobs of one load were classified
type LoadStats struct {
	Blobs        int
	Recognized   int
	Unrecognized int
	Animated     int
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// At returns the i-th entry
func (c *Catalog) At(i int) *Entry {
	return c.entries[i]
}

// Entries returns the entries in catalog order
func (c *Catalog) Entries() []*Entry {
	if c == nil {
		return nil
	}
	out := make([]*Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Stats() LoadStats {
	return c.stats
}

// Close disposes every entry of the catalog
func (c *Catalog) Close() {
	if c == nil {
		return
	}
	for _, e := range c.entries {
		e.Close()
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
