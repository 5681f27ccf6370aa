package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/jchantrell/resgrab/internal/binread"
)

// bundleIndex lists the bundles of an archive set and where each file lives
type bundleIndex struct {
	bundles []string
	files   []bundleFile
}

type bundleFile struct {
	path     string
	bundleID uint32
	offset   uint32
	size     uint32
}

// index record sizes: hash, bundle, offset, size / hash, offset, size, recursive size
const (
	fileRecordSize = 20
	pathRepSize    = 20
)

type pathRep struct {
	offset uint32
	size   uint32
}

// parseBundleIndex decodes an index file. The index is itself normally a
// compressed bundle; uncompressed index data is accepted as well.
func parseBundleIndex(raw []byte) (*bundleIndex, error) {
	data := raw
	if archive, err := openBundleArchive(bytes.NewReader(raw), int64(len(raw))); err == nil {
		if data, err = archive.readAll(); err != nil {
			return nil, fmt.Errorf("decompressing bundle index: %w", err)
		}
	}

	c := binread.New(data)
	idx := &bundleIndex{}

	bundleCount, err := c.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading bundle count: %w", err)
	}
	for i := uint32(0); i < bundleCount; i++ {
		nameLen, err := c.Uint32()
		if err != nil {
			return nil, fmt.Errorf("reading bundle %d name: %w", i, err)
		}
		name, err := c.Bytes(int(nameLen))
		if err != nil {
			return nil, fmt.Errorf("reading bundle %d name: %w", i, err)
		}
		// uncompressed size, available from the bundle head
		if err := c.Skip(4); err != nil {
			return nil, err
		}
		idx.bundles = append(idx.bundles, string(name))
	}

	fileCount, err := c.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading file count: %w", err)
	}
	if int64(fileCount) > int64(c.Remaining()/fileRecordSize) {
		return nil, fmt.Errorf("file count %d exceeds index size: %w", fileCount, binread.ErrShortBuffer)
	}
	byHash := make(map[uint64]int, fileCount)
	idx.files = make([]bundleFile, 0, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		rec, err := c.Bytes(fileRecordSize)
		if err != nil {
			return nil, fmt.Errorf("reading file record %d: %w", i, err)
		}
		f := bundleFile{
			bundleID: binary.LittleEndian.Uint32(rec[8:]),
			offset:   binary.LittleEndian.Uint32(rec[12:]),
			size:     binary.LittleEndian.Uint32(rec[16:]),
		}
		if int(f.bundleID) >= len(idx.bundles) {
			return nil, fmt.Errorf("file record %d references bundle %d of %d", i, f.bundleID, len(idx.bundles))
		}
		hash := binary.LittleEndian.Uint64(rec)
		if _, dup := byHash[hash]; dup {
			return nil, fmt.Errorf("duplicate file hash %016x", hash)
		}
		byHash[hash] = len(idx.files)
		idx.files = append(idx.files, f)
	}

	repCount, err := c.Uint32()
	if err != nil {
		return nil, fmt.Errorf("reading path rep count: %w", err)
	}
	if int64(repCount) > int64(c.Remaining()/pathRepSize) {
		return nil, fmt.Errorf("path rep count %d exceeds index size: %w", repCount, binread.ErrShortBuffer)
	}
	reps := make([]pathRep, 0, repCount)
	for i := uint32(0); i < repCount; i++ {
		rec, err := c.Bytes(pathRepSize)
		if err != nil {
			return nil, fmt.Errorf("reading path rep %d: %w", i, err)
		}
		reps = append(reps, pathRep{
			offset: binary.LittleEndian.Uint32(rec[8:]),
			size:   binary.LittleEndian.Uint32(rec[12:]),
		})
	}

	rest, _ := c.Bytes(c.Remaining())
	repArchive, err := openBundleArchive(bytes.NewReader(rest), int64(len(rest)))
	if err != nil {
		return nil, fmt.Errorf("opening path rep bundle: %w", err)
	}
	pathData, err := repArchive.readAll()
	if err != nil {
		return nil, fmt.Errorf("reading path rep bundle: %w", err)
	}

	for _, rep := range reps {
		end := uint64(rep.offset) + uint64(rep.size)
		if end > uint64(len(pathData)) {
			return nil, fmt.Errorf("path rep %d+%d outside %d bytes", rep.offset, rep.size, len(pathData))
		}
		for _, path := range expandPathSpec(pathData[rep.offset:end]) {
			if i, ok := byHash[murmurHashPath(path)]; ok {
				idx.files[i].path = path
			} else if i, ok := byHash[fnvHashPath(path)]; ok {
				idx.files[i].path = path
			}
		}
	}

	sort.Slice(idx.files, func(i, j int) bool {
		return idx.files[i].path < idx.files[j].path
	})

	return idx, nil
}

// expandPathSpec decodes the prefix-compressed path lists of the index.
// A zero word toggles between recording name fragments and emitting paths;
// a non-zero word n prefixes the string with fragment n-1.
func expandPathSpec(data []byte) []string {
	c := binread.New(data)
	emitting := true
	var fragments, paths []string

	for c.Remaining() >= 4 {
		n, _ := c.Uint32()
		if n == 0 {
			emitting = !emitting
			continue
		}

		rest, _ := c.Peek(c.Remaining())
		end := bytes.IndexByte(rest, 0)
		if end < 0 {
			end = len(rest)
		}
		s := string(rest[:end])
		_ = c.Skip(min(end+1, len(rest)))

		if int(n)-1 < len(fragments) {
			s = fragments[n-1] + s
		}
		if emitting {
			paths = append(paths, s)
		} else {
			fragments = append(fragments, s)
		}
	}

	return paths
}

// murmurHashPath is MurmurHash64A of the lowercased path, seed 0x1337b33f
func murmurHashPath(path string) uint64 {
	const (
		m    = 0xc6a4a7935bd1e995
		r    = 47
		seed = 0x1337b33f
	)

	data := []byte(strings.ToLower(path))
	h := uint64(seed) ^ uint64(len(data))*m

	for len(data) >= 8 {
		k := binary.LittleEndian.Uint64(data)
		k *= m
		k ^= k >> r
		k *= m
		h ^= k
		h *= m
		data = data[8:]
	}

	if len(data) > 0 {
		for i := len(data) - 1; i >= 0; i-- {
			h ^= uint64(data[i]) << (8 * i)
		}
		h *= m
	}

	h ^= h >> r
	h *= m
	h ^= h >> r
	return h
}

// fnvHashPath is FNV-1a of the lowercased path with a "++" suffix, used by
// older index files
func fnvHashPath(path string) uint64 {
	const (
		offset = 0xcbf29ce484222325
		prime  = 0x100000001b3
	)

	h := uint64(offset)
	for _, b := range []byte(strings.ToLower(path) + "++") {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
