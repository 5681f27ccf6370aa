package container

import (
	"fmt"
	"io/fs"
	"iter"
	"os"
)

// DirSource exposes every regular file under a directory as a blob, named
// by its slash-separated path relative to the root, in lexical order
type DirSource struct {
	root string
	fsys fs.FS
}

// NewDirSource creates a source over the directory at root
func NewDirSource(root string) (*DirSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	return &DirSource{root: root, fsys: os.DirFS(root)}, nil
}

func (d *DirSource) Name() string {
	return d.root
}

func (d *DirSource) Blobs() iter.Seq2[Blob, error] {
	return func(yield func(Blob, error) bool) {
		err := fs.WalkDir(d.fsys, ".", func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.Type().IsRegular() {
				return nil
			}

			data, err := fs.ReadFile(d.fsys, path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if !yield(Blob{Name: path, Data: data}, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(Blob{}, fmt.Errorf("walking %s: %w", d.root, err))
		}
	}
}
