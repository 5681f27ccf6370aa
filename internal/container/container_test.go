package container

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jchantrell/resgrab/internal/binread"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, src Source) []Blob {
	t.Helper()
	var blobs []Blob
	for blob, err := range src.Blobs() {
		require.NoError(t, err)
		blobs = append(blobs, blob)
	}
	return blobs
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestDirSourceLexicalOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.bin"), []byte("b"))
	writeFile(t, filepath.Join(root, "a", "z.bin"), []byte("z"))
	writeFile(t, filepath.Join(root, "a.bin"), []byte("a"))

	src, err := NewDirSource(root)
	require.NoError(t, err)

	blobs := collect(t, src)
	require.Len(t, blobs, 3)
	assert.Equal(t, "a.bin", blobs[0].Name)
	assert.Equal(t, "a/z.bin", blobs[1].Name)
	assert.Equal(t, "b.bin", blobs[2].Name)
	assert.Equal(t, []byte("z"), blobs[1].Data)
}

func TestDirSourceStopsEarly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "1"), []byte("1"))
	writeFile(t, filepath.Join(root, "2"), []byte("2"))

	src, err := NewDirSource(root)
	require.NoError(t, err)

	count := 0
	for _, err := range src.Blobs() {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestNewDirSourceRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, []byte("x"))

	_, err := NewDirSource(path)
	assert.Error(t, err)
}

func writeZip(t *testing.T, path string, files map[string][]byte, order []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	_, err = w.Create("dir/")
	require.NoError(t, err)
	for _, name := range order {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestZipSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.zip")
	writeZip(t, path, map[string][]byte{
		"dir/second.bin": []byte("second"),
		"first.bin":      []byte("first"),
	}, []string{"dir/second.bin", "first.bin"})

	blobs := collect(t, NewZipSource(path))
	require.Len(t, blobs, 2)
	assert.Equal(t, "dir/second.bin", blobs[0].Name)
	assert.Equal(t, []byte("second"), blobs[0].Data)
	assert.Equal(t, "first.bin", blobs[1].Name)
}

func TestZipSourceUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	writeFile(t, path, []byte("not a zip archive"))

	var gotErr error
	for _, err := range NewZipSource(path).Blobs() {
		gotErr = err
	}
	assert.Error(t, gotErr)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "x.ZIP")
	writeZip(t, zipPath, nil, nil)
	bundleDir := filepath.Join(dir, "bundles")
	writeFile(t, filepath.Join(bundleDir, BundleIndexName), []byte{0})
	other := filepath.Join(dir, "other.dat")
	writeFile(t, other, []byte{0})

	t.Run("auto directory", func(t *testing.T) {
		src, err := Open(dir, KindAuto)
		require.NoError(t, err)
		assert.IsType(t, &DirSource{}, src)
	})

	t.Run("auto zip", func(t *testing.T) {
		src, err := Open(zipPath, "")
		require.NoError(t, err)
		assert.IsType(t, &ZipSource{}, src)
	})

	t.Run("auto bundle", func(t *testing.T) {
		src, err := Open(bundleDir, KindAuto)
		require.NoError(t, err)
		assert.IsType(t, &BundleSource{}, src)
	})

	t.Run("explicit dir over bundle set", func(t *testing.T) {
		src, err := Open(bundleDir, KindDir)
		require.NoError(t, err)
		assert.IsType(t, &DirSource{}, src)
	})

	t.Run("bundle without index", func(t *testing.T) {
		_, err := Open(dir, KindBundle)
		assert.Error(t, err)
	})

	t.Run("undetectable file", func(t *testing.T) {
		_, err := Open(other, KindAuto)
		assert.Error(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Open(dir, "tar")
		assert.Error(t, err)
	})
}

func pathWord(n uint32, s string) []byte {
	b := binary.LittleEndian.AppendUint32(nil, n)
	if n == 0 {
		return b
	}
	return append(append(b, s...), 0)
}

func TestExpandPathSpec(t *testing.T) {
	var data []byte
	data = append(data, pathWord(0, "")...)
	data = append(data, pathWord(1, "art/")...)
	data = append(data, pathWord(1, "icons/")...)
	data = append(data, pathWord(0, "")...)
	data = append(data, pathWord(1, "a.ico")...)
	data = append(data, pathWord(2, "b.png")...)
	data = append(data, pathWord(9, "root.bmp")...)

	assert.Equal(t, []string{"art/a.ico", "art/icons/b.png", "root.bmp"}, expandPathSpec(data))
}

func TestPathHashesAreCaseInsensitive(t *testing.T) {
	assert.Equal(t, murmurHashPath("Art/Icon.png"), murmurHashPath("art/icon.png"))
	assert.Equal(t, fnvHashPath("Art/Icon.png"), fnvHashPath("art/icon.png"))
	assert.NotEqual(t, murmurHashPath("a"), murmurHashPath("b"))
}

func TestOpenBundleArchiveRejectsBadHead(t *testing.T) {
	head := make([]byte, bundleHeadSize)
	_, err := openBundleArchive(bytes.NewReader(head), int64(len(head)))
	assert.Error(t, err)

	_, err = parseBundleIndex(nil)
	assert.Error(t, err)
}

func TestBundleIndexCountsBoundedByData(t *testing.T) {
	index := func(counts ...uint32) []byte {
		var b []byte
		for _, v := range counts {
			b = binary.LittleEndian.AppendUint32(b, v)
		}
		return b
	}

	// no bundles, then an oversized file count
	_, err := parseBundleIndex(index(0, 0x0fffffff))
	assert.ErrorIs(t, err, binread.ErrShortBuffer)

	// no bundles, no files, then an oversized path rep count
	_, err = parseBundleIndex(index(0, 0, 0x0fffffff))
	assert.ErrorIs(t, err, binread.ErrShortBuffer)

	head := make([]byte, bundleHeadSize)
	binary.LittleEndian.PutUint64(head[20:], 1<<40)
	binary.LittleEndian.PutUint32(head[36:], 1<<24)
	binary.LittleEndian.PutUint32(head[40:], 1<<16)
	_, err = openBundleArchive(bytes.NewReader(head), int64(len(head)))
	assert.ErrorContains(t, err, "exceeds file size")
}
