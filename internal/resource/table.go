package resource

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jchantrell/resgrab/internal/binread"
)

// .resources binary layout (ResourceManager header + RuntimeResourceSet)
const (
	resourceMagic = 0xbeefcace

	typeCodeByteArray      = 0x20
	typeCodeStream         = 0x21
	typeCodeStartUserTypes = 0x40
)

// Serialized object types that carry images
const (
	typeIcon              = "System.Drawing.Icon"
	typeBitmap            = "System.Drawing.Bitmap"
	typeImage             = "System.Drawing.Image"
	typeImageListStreamer = "System.Windows.Forms.ImageListStreamer"
)

// tableValueKind classifies a value pulled from a resource table
type tableValueKind int

const (
	tableValueOther tableValueKind = iota
	tableValueIcon
	tableValueRaster
	tableValueImageList
	tableValueBytes
)

// tableEntry is one named value of a resource table
type tableEntry struct {
	Name     string
	Kind     tableValueKind
	TypeName string
	Payload  []byte
	Err      error // set when this entry alone could not be read
}

// resourceTable is the parsed header and entry list of a .resources blob
type resourceTable struct {
	Version int32
	Types   []string
	Entries []tableEntry
}

// parseResourceTable reads the table structure. It fails only when the
// header, type table, name table, or data section cannot be located.
// Problems with individual entries are recorded on the entry.
func parseResourceTable(data []byte) (*resourceTable, error) {
	c := binread.New(data)

	magic, err := c.Uint32()
	if err != nil {
		return nil, err
	}
	if magic != resourceMagic {
		return nil, fmt.Errorf("bad resource table magic 0x%08x", magic)
	}

	headerVersion, err := c.Int32()
	if err != nil {
		return nil, err
	}
	if headerVersion < 1 {
		return nil, fmt.Errorf("unsupported resource manager header version %d", headerVersion)
	}
	skip, err := c.Int32()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(int(skip)); err != nil {
		return nil, fmt.Errorf("skipping resource reader type names: %w", err)
	}

	table := &resourceTable{}
	if table.Version, err = c.Int32(); err != nil {
		return nil, err
	}
	if table.Version != 1 && table.Version != 2 {
		return nil, fmt.Errorf("unsupported resource set version %d", table.Version)
	}

	count, err := c.Int32()
	if err != nil {
		return nil, err
	}
	typeCount, err := c.Int32()
	if err != nil {
		return nil, err
	}
	if count < 0 || typeCount < 0 {
		return nil, fmt.Errorf("invalid resource table counts (resources=%d, types=%d)", count, typeCount)
	}
	// every resource needs at least a hash and a position
	if int(count)*8 > c.Remaining() {
		return nil, fmt.Errorf("resource count %d exceeds table size: %w", count, binread.ErrShortBuffer)
	}
	// every type name needs at least its length prefix
	if int(typeCount) > c.Remaining() {
		return nil, fmt.Errorf("type count %d exceeds table size: %w", typeCount, binread.ErrShortBuffer)
	}

	table.Types = make([]string, typeCount)
	for i := range table.Types {
		if table.Types[i], err = c.PrefixedString(); err != nil {
			return nil, fmt.Errorf("reading type name %d: %w", i, err)
		}
	}

	// the hash table is 8 byte aligned, padded with "PAD"
	if align := c.Pos() & 7; align != 0 {
		if err := c.Skip(8 - align); err != nil {
			return nil, err
		}
	}

	if err := c.Skip(int(count) * 4); err != nil {
		return nil, fmt.Errorf("skipping name hashes: %w", err)
	}
	positions := make([]int32, count)
	for i := range positions {
		if positions[i], err = c.Int32(); err != nil {
			return nil, fmt.Errorf("reading name positions: %w", err)
		}
	}

	dataSection, err := c.Int32()
	if err != nil {
		return nil, err
	}
	namesStart := c.Pos()
	if int(dataSection) < namesStart || int(dataSection) > len(data) {
		return nil, fmt.Errorf("data section offset %d outside table of %d bytes", dataSection, len(data))
	}

	type located struct {
		name   string
		offset int
		err    error
	}
	locs := make([]located, count)
	for i, pos := range positions {
		locs[i] = located{offset: -1}
		nc := binread.New(data[:dataSection])
		if err := nc.Seek(namesStart + int(pos)); err != nil {
			locs[i].err = fmt.Errorf("name position %d: %w", pos, err)
			continue
		}
		name, err := nc.PrefixedUTF16()
		if err != nil {
			locs[i].err = fmt.Errorf("reading resource name: %w", err)
			continue
		}
		locs[i].name = name
		off, err := nc.Int32()
		if err != nil {
			locs[i].err = fmt.Errorf("reading data offset of %q: %w", name, err)
			continue
		}
		abs := int(dataSection) + int(off)
		if off < 0 || abs >= len(data) {
			locs[i].err = fmt.Errorf("data offset %d of %q outside table", off, name)
			continue
		}
		locs[i].offset = abs
	}

	// a value runs until the next value starts
	starts := make([]int, 0, len(locs))
	for _, l := range locs {
		if l.offset >= 0 {
			starts = append(starts, l.offset)
		}
	}
	sort.Ints(starts)
	valueEnd := func(start int) int {
		i := sort.SearchInts(starts, start+1)
		if i < len(starts) {
			return starts[i]
		}
		return len(data)
	}

	table.Entries = make([]tableEntry, len(locs))
	for i, l := range locs {
		entry := tableEntry{Name: l.name, Err: l.err}
		if l.err == nil {
			entry.Kind, entry.TypeName, entry.Payload, entry.Err = table.readValue(data[l.offset:valueEnd(l.offset)])
		}
		table.Entries[i] = entry
	}

	return table, nil
}

// readValue decodes the type tag of one value and returns its payload
func (t *resourceTable) readValue(value []byte) (tableValueKind, string, []byte, error) {
	c := binread.New(value)
	code, err := c.Uvarint7()
	if err != nil {
		return tableValueOther, "", nil, fmt.Errorf("reading type code: %w", err)
	}

	var typeName string
	if t.Version == 1 {
		// version 1 stores an index into the type table, -1 for null
		if code == -1 {
			return tableValueOther, "", nil, nil
		}
		if code < 0 || code >= len(t.Types) {
			return tableValueOther, "", nil, fmt.Errorf("type index %d out of range", code)
		}
		typeName = t.Types[code]
		if typeBaseName(typeName) == "System.Byte[]" {
			return t.readByteArray(c, typeName)
		}
	} else {
		switch {
		case code == typeCodeByteArray || code == typeCodeStream:
			return t.readByteArray(c, "")
		case code < typeCodeStartUserTypes:
			return tableValueOther, "", nil, nil
		case code-typeCodeStartUserTypes >= len(t.Types):
			return tableValueOther, "", nil, fmt.Errorf("user type code 0x%x out of range", code)
		}
		typeName = t.Types[code-typeCodeStartUserTypes]
	}

	rest, _ := c.Bytes(c.Remaining())
	switch typeBaseName(typeName) {
	case typeIcon:
		return tableValueIcon, typeName, rest, nil
	case typeBitmap, typeImage:
		return tableValueRaster, typeName, rest, nil
	case typeImageListStreamer:
		return tableValueImageList, typeName, rest, nil
	}
	return tableValueOther, typeName, nil, nil
}

func (t *resourceTable) readByteArray(c *binread.Cursor, typeName string) (tableValueKind, string, []byte, error) {
	n, err := c.Int32()
	if err != nil {
		return tableValueOther, typeName, nil, fmt.Errorf("reading byte array length: %w", err)
	}
	b, err := c.Bytes(int(n))
	if err != nil {
		return tableValueOther, typeName, nil, fmt.Errorf("reading byte array: %w", err)
	}
	return tableValueBytes, typeName, b, nil
}

// typeBaseName strips the assembly qualification from a type name
func typeBaseName(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// expandResourceTable decodes a resource table blob into catalog entries.
// It is best-effort across entries: a malformed entry is logged and skipped.
func (s *Sniffer) expandResourceTable(blobName string, data []byte) ([]*Entry, error) {
	table, err := parseResourceTable(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecognized, err)
	}

	entries := make([]*Entry, 0)
	for _, te := range table.Entries {
		if te.Err != nil {
			slog.Debug("Skipping malformed table entry", "blob", blobName, "entry", te.Name, "error", te.Err)
			continue
		}

		produced, err := s.expandTableEntry(te)
		if err != nil {
			if isExclusion(err) {
				slog.Debug("Table entry excluded", "blob", blobName, "entry", te.Name, "reason", err)
			} else {
				slog.Debug("Skipping malformed table entry", "blob", blobName, "entry", te.Name, "type", te.TypeName, "error", err)
			}
			continue
		}
		entries = append(entries, produced...)
	}

	slog.Debug("Resource table expanded", "blob", blobName, "table_entries", len(table.Entries), "entries", len(entries))
	return entries, nil
}

func (s *Sniffer) expandTableEntry(te tableEntry) ([]*Entry, error) {
	switch te.Kind {
	case tableValueIcon:
		raw, err := extractByteArray(te.Payload)
		if err != nil {
			return nil, err
		}
		if _, err := parseIconDirectory(raw, iconTypeIcon); err != nil {
			return nil, fmt.Errorf("icon data: %w", err)
		}
		return []*Entry{newIconEntry(KindIcon, te.Name, raw)}, nil

	case tableValueRaster:
		raw, err := extractByteArray(te.Payload)
		if err != nil {
			return nil, err
		}
		surface, err := decodeRaster(raw)
		if err != nil {
			return nil, err
		}
		return []*Entry{newRasterEntry(te.Name, raw, surface)}, nil

	case tableValueImageList:
		raw, err := extractByteArray(te.Payload)
		if err != nil {
			return nil, err
		}
		images, err := decodeImageList(raw)
		if err != nil {
			return nil, err
		}
		entries := make([]*Entry, len(images))
		for i, img := range images {
			entries[i] = newRasterEntry(fmt.Sprintf("%s_%d", te.Name, i), nil, img)
		}
		return entries, nil

	case tableValueBytes:
		entries, err := s.sniffLeaf(te.Name, te.Payload)
		if err != nil {
			return nil, err
		}
		return entries, nil
	}

	return nil, nil
}
