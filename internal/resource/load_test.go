package resource

import (
	"context"
	"errors"
	"image/color"
	"iter"
	"testing"

	"github.com/jchantrell/resgrab/internal/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource yields fixed blobs, then fails when err is set
type memSource struct {
	blobs []container.Blob
	err   error
}

func (m *memSource) Name() string { return "memory" }

func (m *memSource) Blobs() iter.Seq2[container.Blob, error] {
	return func(yield func(container.Blob, error) bool) {
		for _, b := range m.blobs {
			if !yield(b, nil) {
				return
			}
		}
		if m.err != nil {
			yield(container.Blob{}, m.err)
		}
	}
}

func sampleSource(t *testing.T) *memSource {
	t.Helper()
	icon := iconFile(iconTypeIcon, 16, 16, encodePNG(t, solidImage(16, 16, color.NRGBA{R: 255, A: 255})))
	table := resourcesFile([]string{imageListType}, []testValue{
		{name: "icons", code: typeCodeStartUserTypes, body: serializedBytes(imageListStream(t, 8, 8, listColors))},
	})

	return &memSource{blobs: []container.Blob{
		{Name: "a.ico", Data: icon},
		{Name: "b.txt", Data: []byte("hello")},
		{Name: "c.png", Data: encodePNG(t, solidImage(5, 5, color.NRGBA{A: 255}))},
		{Name: "d.gif", Data: animatedGIF(t)},
		{Name: "e.resources", Data: table},
		{Name: "f.bmp", Data: encodeBMP(t, solidImage(2, 2, color.NRGBA{B: 9, A: 255}))},
	}}
}

func entryNames(c *Catalog) []string {
	var names []string
	for _, e := range c.Entries() {
		names = append(names, e.Name())
	}
	return names
}

func TestLoaderOrderAndStats(t *testing.T) {
	src := sampleSource(t)

	cat, err := NewLoader(nil).Load(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.ico", "c.png", "icons_0", "icons_1", "icons_2", "f.bmp"}, entryNames(cat))
	assert.Equal(t, LoadStats{Blobs: 6, Recognized: 4, Unrecognized: 1, Animated: 1}, cat.Stats())
	assert.Equal(t, 6, cat.Len())
	assert.Equal(t, KindIcon, cat.At(0).Kind())
}

func TestLoaderDeterministic(t *testing.T) {
	src := sampleSource(t)

	first, err := NewLoader(nil).Load(context.Background(), src)
	require.NoError(t, err)

	for _, workers := range []int{1, 4} {
		again, err := NewLoader(&LoaderOptions{Workers: workers}).Load(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, entryNames(first), entryNames(again))
		assert.Equal(t, first.Stats(), again.Stats())
	}
}

func TestLoaderContainerUnreadable(t *testing.T) {
	src := sampleSource(t)
	src.err = errors.New("truncated archive")

	cat, err := NewLoader(&LoaderOptions{Workers: 2}).Load(context.Background(), src)
	assert.ErrorIs(t, err, ErrContainerUnreadable)
	assert.Nil(t, cat)
}

func TestLoaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(nil).Load(ctx, sampleSource(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoaderEmptyContainer(t *testing.T) {
	cat, err := NewLoader(nil).Load(context.Background(), &memSource{})
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Len())
}

func TestSessionKeepsCatalogOnFailure(t *testing.T) {
	s := NewSession(nil)
	assert.Nil(t, s.Catalog())

	first, err := s.Load(context.Background(), sampleSource(t))
	require.NoError(t, err)
	assert.Same(t, first, s.Catalog())

	broken := &memSource{err: errors.New("unreadable")}
	_, err = s.Load(context.Background(), broken)
	require.ErrorIs(t, err, ErrContainerUnreadable)
	assert.Same(t, first, s.Catalog())

	_, err = first.At(0).Decoded()
	assert.NoError(t, err)

	second, err := s.Load(context.Background(), sampleSource(t))
	require.NoError(t, err)
	assert.Same(t, second, s.Catalog())

	_, err = first.At(0).Decoded()
	assert.ErrorIs(t, err, ErrEntryClosed)

	s.Close()
	assert.Nil(t, s.Catalog())
	_, err = second.At(1).Decoded()
	assert.ErrorIs(t, err, ErrEntryClosed)
}

func TestEntryDetails(t *testing.T) {
	icon := iconFile(iconTypeIcon, 4, 2, iconDIB32(4, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 0x80}))

	entries, err := NewSniffer().Sniff("small.ico", icon)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	d, err := entries[0].Details()
	require.NoError(t, err)
	assert.Equal(t, "small.ico", d.Name)
	assert.Equal(t, KindIcon, d.Kind)
	assert.Equal(t, 4, d.Width)
	assert.Equal(t, 2, d.Height)
	assert.Equal(t, len(icon), d.RawSize)
	assert.InDelta(t, 4.0/96, d.PhysicalWidth, 1e-9)

	s, err := entries[0].Decoded()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 0x80}, color.NRGBAModel.Convert(s.Image.At(1, 1)))

	again, err := entries[0].Decoded()
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "icon", KindIcon.String())
	assert.Equal(t, "cursor", KindCursor.String())
	assert.Equal(t, "image", KindRaster.String())
}
