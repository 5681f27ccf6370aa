package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContainerPath(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)

	a := c.GetContainerPath("https://one.example/files/my icons.zip")
	b := c.GetContainerPath("https://two.example/files/my icons.zip")

	assert.Equal(t, dir, filepath.Dir(a))
	assert.True(t, strings.HasSuffix(a, "_my_icons.zip"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c.GetContainerPath("https://one.example/files/my icons.zip"))

	assert.True(t, strings.HasSuffix(c.GetContainerPath("https://one.example/"), "_container"))
}

func TestFileHelpers(t *testing.T) {
	c := New(t.TempDir())
	path := filepath.Join(c.GetCacheDir(), "nested", "file.bin")

	assert.False(t, c.FileExists(path))
	assert.Zero(t, c.GetFileSize(path))

	require.NoError(t, c.EnsureDir(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))

	assert.True(t, c.FileExists(path))
	assert.Equal(t, int64(5), c.GetFileSize(path))
}

func TestDefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir(), New("").GetCacheDir())
	assert.Equal(t, "cache", filepath.Base(DefaultDir()))
}
