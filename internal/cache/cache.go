package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Cache handles cache directory operations and file validation
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, or at the default location when dir
// is empty
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// DefaultDir returns ~/.resgrab/cache
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".resgrab", "cache")
	}
	return filepath.Join(homeDir, ".resgrab", "cache")
}

// GetCacheDir returns the cache root directory
func (m *Cache) GetCacheDir() string {
	if m.dir == "" {
		return DefaultDir()
	}
	return m.dir
}

// EnsureDir creates a directory and all parent directories
func (m *Cache) EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// FileExists checks if a file exists
func (m *Cache) FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// GetFileSize returns the size of a file, or 0 if it doesn't exist
func (m *Cache) GetFileSize(filename string) int64 {
	info, err := os.Stat(filename)
	if err != nil {
		return 0
	}
	return info.Size()
}

// GetContainerPath returns where a container downloaded from rawURL is
// stored. The name keeps the last path element readable and is prefixed
// with a short hash of the full URL so different hosts never collide.
func (m *Cache) GetContainerPath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	prefix := hex.EncodeToString(sum[:])[:12]

	name := "container"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." && base != "" {
			name = base
		}
	}

	return filepath.Join(m.GetCacheDir(), prefix+"_"+sanitizeName(name))
}

// sanitizeName replaces characters that are unsafe in file names
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	return name
}
