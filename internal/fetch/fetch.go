// Package fetch downloads remote containers into the local cache. A URL
// naming a bundle index pulls the index and every bundle it references;
// any other URL is stored as a single file.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jchantrell/resgrab/internal/cache"
	"github.com/jchantrell/resgrab/internal/container"
	"github.com/jchantrell/resgrab/internal/utils"
)

// Options configures a download
type Options struct {
	// Force re-downloads files that are already cached
	Force bool

	// Progress shows a progress bar while fetching bundles
	Progress bool

	// Client performs the requests, http.DefaultClient when nil
	Client *http.Client
}

// Download fetches the container at rawURL into the cache and returns the
// local path to open. Cached files with a non-zero size are reused unless
// Force is set.
func Download(ctx context.Context, c *cache.Cache, rawURL string, options Options) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %s: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if options.Client == nil {
		options.Client = http.DefaultClient
	}

	if path.Base(u.Path) == container.BundleIndexName {
		return downloadBundleSet(ctx, c, u, options)
	}

	dst := c.GetContainerPath(rawURL)
	if err := fetchOne(ctx, c, dst, rawURL, options); err != nil {
		return "", err
	}
	return dst, nil
}

// fetchOne downloads url to dst unless a non-empty copy is cached
func fetchOne(ctx context.Context, c *cache.Cache, dst, rawURL string, options Options) error {
	if !options.Force && c.GetFileSize(dst) > 0 {
		slog.Debug("Using cached file", "url", rawURL, "path", dst)
		return nil
	}

	if err := c.EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	start := time.Now()
	size, err := downloadFile(ctx, options.Client, dst, rawURL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	if size == 0 {
		return fmt.Errorf("downloaded file %s is empty", rawURL)
	}

	slog.Debug("Downloaded file", "url", rawURL, "path", dst, "bytes", size, "duration", utils.Duration(time.Since(start)))
	return nil
}

func downloadBundleSet(ctx context.Context, c *cache.Cache, indexURL *url.URL, options Options) (string, error) {
	base := *indexURL
	base.Path = path.Dir(indexURL.Path)
	dir := c.GetContainerPath(base.String())

	slog.Info("Fetching bundle index", "url", indexURL.String(), "destination", dir)
	indexPath := filepath.Join(dir, container.BundleIndexName)
	if err := fetchOne(ctx, c, indexPath, indexURL.String(), options); err != nil {
		return "", err
	}

	names, err := container.BundleFileNames(dir)
	if err != nil {
		return "", fmt.Errorf("reading bundle index: %w", err)
	}

	pending := make([]string, 0, len(names))
	for _, name := range names {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return "", fmt.Errorf("bundle name %q escapes the cache directory", name)
		}
		if options.Force || c.GetFileSize(filepath.Join(dir, filepath.FromSlash(name))) == 0 {
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 {
		slog.Info("Using cached bundles", "count", len(names))
		return dir, nil
	}

	slog.Info("Downloading bundles", "count", len(pending))
	progress := utils.NewProgress(len(pending), options.Progress)
	defer progress.Finish()

	for i, name := range pending {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		bundleURL := base
		bundleURL.Path = strings.TrimSuffix(base.Path, "/") + "/" + name
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if err := fetchOne(ctx, c, dst, bundleURL.String(), Options{Force: true, Client: options.Client}); err != nil {
			return "", fmt.Errorf("fetching bundle %s: %w", name, err)
		}

		progress.Update(i+1, name)
	}

	return dir, nil
}
