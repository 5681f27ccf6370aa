package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/png"
	"iter"
	"path/filepath"
	"testing"

	"github.com/jchantrell/resgrab/internal/container"
	"github.com/jchantrell/resgrab/internal/export"
	"github.com/jchantrell/resgrab/internal/resource"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blobs []container.Blob

func (b blobs) Name() string { return "test" }

func (b blobs) Blobs() iter.Seq2[container.Blob, error] {
	return func(yield func(container.Blob, error) bool) {
		for _, blob := range b {
			if !yield(blob, nil) {
				return
			}
		}
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func icoBytes(t *testing.T) []byte {
	t.Helper()
	return icoWithPayload(pngBytes(t, 16, 16))
}

func icoWithPayload(payload []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 1})
	buf.Write([]byte{16, 16, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(payload)), 22})
	buf.Write(payload)
	return buf.Bytes()
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), DefaultOptions(filepath.Join(t.TempDir(), "db", "index.db")))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReplaceCatalog(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	ico := icoBytes(t)

	cat, err := resource.NewLoader(nil).Load(ctx, blobs{
		{Name: "a.ico", Data: ico},
		{Name: "b.png", Data: pngBytes(t, 6, 3)},
	})
	require.NoError(t, err)

	n, err := store.ReplaceCatalog(ctx, "first", cat, export.NewExporter(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// indexing again replaces rather than appends
	_, err = store.ReplaceCatalog(ctx, "first", cat, export.NewExporter(nil))
	require.NoError(t, err)
	_, err = store.ReplaceCatalog(ctx, "second", cat, export.NewExporter(nil))
	require.NoError(t, err)

	rows, err := store.List(ctx, Filter{Container: "first"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "a.ico", rows[0].Name)
	assert.Equal(t, "icon", rows[0].Kind)
	assert.Equal(t, ".ico", rows[0].Ext)
	assert.Equal(t, digest.FromBytes(ico), rows[0].Digest)
	assert.Equal(t, len(ico), rows[0].RawSize)

	assert.Equal(t, "b.png", rows[1].Name)
	assert.Equal(t, 1, rows[1].Position)
	assert.Equal(t, 6, rows[1].Width)
	assert.Equal(t, 3, rows[1].Height)
	assert.InDelta(t, resource.DefaultDPI, rows[1].HorizontalDPI, 1e-9)

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	icons, err := store.List(ctx, Filter{Kind: "icon", Limit: 1})
	require.NoError(t, err)
	require.Len(t, icons, 1)
	assert.Equal(t, "first", icons[0].Container)

	byName, err := store.List(ctx, Filter{NameLike: ".png", Container: "second"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "b.png", byName[0].Name)
}

func TestBuildRowsDigestsRawBytes(t *testing.T) {
	cat, err := resource.NewLoader(nil).Load(context.Background(), blobs{
		{Name: "b.png", Data: pngBytes(t, 2, 2)},
	})
	require.NoError(t, err)

	enc := export.NewExporter(nil)
	rows, err := BuildRows("c", cat, enc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, digest.FromBytes(cat.At(0).RawBytes()), rows[0].Digest)
	assert.NoError(t, rows[0].Digest.Validate())
}

func TestReplaceCatalogSkipsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	// PNG signature followed by garbage: catalogued as an icon, fails to decode
	broken := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, "not a png"...)
	cat, err := resource.NewLoader(nil).Load(ctx, blobs{
		{Name: "broken.ico", Data: icoWithPayload(broken)},
		{Name: "b.png", Data: pngBytes(t, 4, 4)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	n, err := store.ReplaceCatalog(ctx, "mixed", cat, export.NewExporter(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := store.List(ctx, Filter{Container: "mixed"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b.png", rows[0].Name)
	assert.Equal(t, 1, rows[0].Position)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.Error(t, err)
	_, err = Open(context.Background(), &Options{})
	assert.Error(t, err)
}

func TestClosedStore(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.List(context.Background(), Filter{})
	assert.Error(t, err)
}
