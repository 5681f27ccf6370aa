package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jchantrell/resgrab/internal/cache"
	"github.com/jchantrell/resgrab/internal/container"
	"github.com/jchantrell/resgrab/internal/fetch"
	"github.com/jchantrell/resgrab/internal/resource"
	"github.com/spf13/cobra"
)

var (
	sourceURL     string
	forceDownload bool
)

// addSourceFlags registers the flags shared by commands that read a container
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceURL, "url", "", "download the container from this URL into the cache")
	cmd.Flags().BoolVar(&forceDownload, "force", false, "re-download the container even if cached")
}

// containerArgs accepts either a container path or --url
func containerArgs(cmd *cobra.Command, args []string) error {
	if sourceURL != "" {
		return cobra.NoArgs(cmd, args)
	}
	if len(args) != 1 {
		return fmt.Errorf("expected a container path or --url")
	}
	return nil
}

// progressEnabled reports whether progress bars should be drawn
func progressEnabled() bool {
	return !(noProgress || cfg.LogFormat == "json" || cfg.LogLevel == "debug")
}

// openContainer resolves the container named by args or --url
func openContainer(ctx context.Context, args []string) (container.Source, error) {
	path := ""
	if sourceURL != "" {
		c := cache.New(cfg.CacheDir)
		slog.Info("Fetching container", "url", sourceURL, "cache", c.GetCacheDir())

		var err error
		path, err = fetch.Download(ctx, c, sourceURL, fetch.Options{
			Force:    forceDownload,
			Progress: progressEnabled(),
		})
		if err != nil {
			return nil, fmt.Errorf("downloading container: %w", err)
		}
	} else {
		path = args[0]
	}

	src, err := container.Open(path, cfg.SourceType)
	if err != nil {
		return nil, fmt.Errorf("opening container: %w", err)
	}
	return src, nil
}

// loadCatalog opens the container and sniffs every blob in it
func loadCatalog(ctx context.Context, args []string) (string, *resource.Catalog, error) {
	src, err := openContainer(ctx, args)
	if err != nil {
		return "", nil, err
	}

	loader := resource.NewLoader(&resource.LoaderOptions{Workers: cfg.Workers})
	catalog, err := loader.Load(ctx, src)
	if err != nil {
		return "", nil, err
	}

	stats := catalog.Stats()
	slog.Info("Container loaded",
		"container", src.Name(),
		"blobs", stats.Blobs,
		"entries", catalog.Len(),
		"unrecognized", stats.Unrecognized,
		"animated", stats.Animated)

	return src.Name(), catalog, nil
}
