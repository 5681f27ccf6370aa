package container

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jchantrell/resgrab/internal/binread"
	"github.com/oriath-net/gooz"
)

const (
	BundleIndexName   = "_.index.bin" // index file of a bundle archive set
	bundleFileSuffix  = ".bundle.bin"
	bundleHeadSize    = 60
	bundleMaxBlockLen = 64 // Oodle may overrun a block by this much
)

// bundleArchive is an opened Oodle-compressed bundle: a fixed head, a
// table of compressed block sizes, then the blocks themselves
type bundleArchive struct {
	data        io.ReaderAt
	size        int64
	granularity int64
	blocks      []bundleBlock
}

// bundleBlock locates one compressed block within the bundle file
type bundleBlock struct {
	offset int64
	length int64
}

// openBundleArchive parses the bundle head from header bytes read at the
// start of r
func openBundleArchive(r io.ReaderAt, fileSize int64) (*bundleArchive, error) {
	head := make([]byte, min(fileSize, bundleHeadSize))
	if _, err := r.ReadAt(head, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading bundle head: %w", err)
	}

	c := binread.New(head)
	if err := c.Skip(20); err != nil {
		return nil, fmt.Errorf("reading bundle head: %w", err)
	}
	size, err := c.Uint64()
	if err != nil {
		return nil, fmt.Errorf("reading bundle size: %w", err)
	}
	if err := c.Skip(8); err != nil {
		return nil, fmt.Errorf("reading bundle head: %w", err)
	}
	blockCount, err := c.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading bundle block count: %w", err)
	}
	granularity, err := c.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading bundle granularity: %w", err)
	}
	if granularity == 0 {
		return nil, fmt.Errorf("bundle block granularity is 0")
	}

	expected := (int64(size) + int64(granularity) - 1) / int64(granularity)
	if int64(blockCount) != expected {
		return nil, fmt.Errorf("got %d blocks of size %d for %d bytes data", blockCount, granularity, size)
	}

	if int64(blockCount)*4 > fileSize-bundleHeadSize {
		return nil, fmt.Errorf("bundle block count %d exceeds file size %d", blockCount, fileSize)
	}

	sizes := make([]byte, int64(blockCount)*4)
	if n, err := r.ReadAt(sizes, bundleHeadSize); n != len(sizes) {
		return nil, fmt.Errorf("reading bundle block sizes (count=%d): %w", blockCount, err)
	}

	b := &bundleArchive{
		data:        r,
		size:        int64(size),
		granularity: int64(granularity),
		blocks:      make([]bundleBlock, blockCount),
	}
	sc := binread.New(sizes)
	p := int64(bundleHeadSize) + int64(len(sizes))
	for i := range b.blocks {
		n, _ := sc.Uint32()
		b.blocks[i] = bundleBlock{offset: p, length: int64(n)}
		p += int64(n)
	}

	return b, nil
}

// ReadAt reads decompressed bytes starting at off
func (b *bundleArchive) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > b.size {
		return 0, fmt.Errorf("read of %d bytes at %d outside bundle of %d bytes", len(p), off, b.size)
	}

	ibuf := make([]byte, b.granularity+bundleMaxBlockLen)
	obuf := make([]byte, b.granularity)

	n := 0
	for n < len(p) {
		id := int(off / b.granularity)
		within := int(off % b.granularity)
		blk := b.blocks[id]

		rawSize := b.granularity
		if id == len(b.blocks)-1 {
			rawSize = b.size - int64(id)*b.granularity
		}
		if blk.length > int64(len(ibuf)) {
			return n, fmt.Errorf("bundle block %d is %d bytes, larger than granularity", id, blk.length)
		}

		compressed := ibuf[:blk.length]
		if got, err := b.data.ReadAt(compressed, blk.offset); got != len(compressed) {
			return n, fmt.Errorf("reading bundle block %d: %w", id, err)
		}
		if _, err := gooz.Decompress(compressed, obuf[:rawSize]); err != nil {
			return n, fmt.Errorf("decompressing bundle block %d: %w", id, err)
		}

		copied := copy(p[n:], obuf[within:rawSize])
		n += copied
		off += int64(copied)
	}

	return n, nil
}

// readAll decompresses the whole bundle
func (b *bundleArchive) readAll() ([]byte, error) {
	data := make([]byte, b.size)
	if _, err := b.ReadAt(data, 0); err != nil {
		return nil, err
	}
	return data, nil
}

// BundleSource exposes every file of a bundle archive set: an index file
// plus the compressed bundles it references, in path order
type BundleSource struct {
	dir string
}

// NewBundleSource creates a source over a directory holding _.index.bin
func NewBundleSource(dir string) *BundleSource {
	return &BundleSource{dir: dir}
}

// IsBundleDir reports whether dir looks like a bundle archive set
func IsBundleDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, BundleIndexName))
	return err == nil && info.Mode().IsRegular()
}

func (s *BundleSource) Name() string {
	return s.dir
}

func (s *BundleSource) Blobs() iter.Seq2[Blob, error] {
	return func(yield func(Blob, error) bool) {
		index, err := s.loadIndex()
		if err != nil {
			yield(Blob{}, err)
			return
		}
		slog.Debug("Bundle index loaded", "dir", s.dir, "bundles", len(index.bundles), "files", len(index.files))

		opened := make(map[uint32]*openedBundle)
		defer func() {
			for _, ob := range opened {
				ob.file.Close()
			}
		}()

		for _, f := range index.files {
			if f.path == "" {
				continue
			}

			ob, ok := opened[f.bundleID]
			if !ok {
				ob, err = s.openBundle(index.bundles[f.bundleID])
				if err != nil {
					yield(Blob{}, err)
					return
				}
				opened[f.bundleID] = ob
			}

			data := make([]byte, f.size)
			if _, err := ob.archive.ReadAt(data, int64(f.offset)); err != nil {
				yield(Blob{}, fmt.Errorf("reading %s (offset=%d, size=%d): %w", f.path, f.offset, f.size, err))
				return
			}
			if !yield(Blob{Name: f.path, Data: data}, nil) {
				return
			}
		}
	}
}

type openedBundle struct {
	file    *os.File
	archive *bundleArchive
}

func (s *BundleSource) openBundle(name string) (*openedBundle, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(name)+bundleFileSuffix)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat bundle %s: %w", name, err)
	}

	archive, err := openBundleArchive(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("loading bundle %s: %w", name, err)
	}
	return &openedBundle{file: f, archive: archive}, nil
}

// BundleFileNames lists the bundle files referenced by the index in dir,
// relative to dir and slash separated
func BundleFileNames(dir string) ([]string, error) {
	index, err := NewBundleSource(dir).loadIndex()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(index.bundles))
	for i, name := range index.bundles {
		names[i] = name + bundleFileSuffix
	}
	return names, nil
}

func (s *BundleSource) loadIndex() (*bundleIndex, error) {
	path := filepath.Join(s.dir, BundleIndexName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle index: %w", err)
	}

	return parseBundleIndex(raw)
}
