package container

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Open creates a source for path. With KindAuto the kind is detected: a
// directory holding a bundle index is a bundle set, any other directory is
// a plain directory and a .zip file is a zip archive.
func Open(path, kind string) (Source, error) {
	if kind == "" {
		kind = KindAuto
	}

	switch kind {
	case KindDir:
		return NewDirSource(path)
	case KindZip:
		return NewZipSource(path), nil
	case KindBundle:
		if !IsBundleDir(path) {
			return nil, fmt.Errorf("%s does not contain %s", path, BundleIndexName)
		}
		return NewBundleSource(path), nil
	case KindAuto:
		return detect(path)
	default:
		return nil, fmt.Errorf("unknown source type %q", kind)
	}
}

func detect(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if info.IsDir() {
		if IsBundleDir(path) {
			return NewBundleSource(path), nil
		}
		return NewDirSource(path)
	}

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return NewZipSource(path), nil
	}

	return nil, fmt.Errorf("cannot detect source type of %s", path)
}
