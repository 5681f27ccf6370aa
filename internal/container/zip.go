package container

import (
	"fmt"
	"io"
	"iter"

	"github.com/klauspost/compress/zip"
)

// maxZipEntrySize bounds a single decompressed blob
const maxZipEntrySize = 256 << 20

// ZipSource exposes the file entries of a zip archive in central directory
// order
type ZipSource struct {
	path string
}

// NewZipSource creates a source over the zip archive at path. The archive
// is opened when Blobs is consumed.
func NewZipSource(path string) *ZipSource {
	return &ZipSource{path: path}
}

func (z *ZipSource) Name() string {
	return z.path
}

func (z *ZipSource) Blobs() iter.Seq2[Blob, error] {
	return func(yield func(Blob, error) bool) {
		r, err := zip.OpenReader(z.path)
		if err != nil {
			yield(Blob{}, fmt.Errorf("opening zip archive %s: %w", z.path, err))
			return
		}
		defer r.Close()

		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}

			data, err := readZipFile(f)
			if err != nil {
				yield(Blob{}, err)
				return
			}
			if !yield(Blob{Name: f.Name, Data: data}, nil) {
				return
			}
		}
	}
}

func readZipFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxZipEntrySize {
		return nil, fmt.Errorf("zip entry %s is too large (%d bytes)", f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxZipEntrySize))
	if err != nil {
		return nil, fmt.Errorf("reading zip entry %s: %w", f.Name, err)
	}
	return data, nil
}
