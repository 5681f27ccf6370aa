package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jchantrell/resgrab/internal/container"
	"golang.org/x/sync/errgroup"
)

// LoaderOptions configures how a container is classified
type LoaderOptions struct {
	// Workers is the number of blobs sniffed concurrently. Values below 2
	// sniff sequentially on the calling goroutine.
	Workers int
}

// DefaultLoaderOptions returns sequential loading
func DefaultLoaderOptions() *LoaderOptions {
	return &LoaderOptions{Workers: 1}
}

// Loader turns the blobs of a container into a catalog
type Loader struct {
	sniffer *Sniffer
	workers int
}

// NewLoader creates a loader. A nil options value uses the defaults.
func NewLoader(options *LoaderOptions) *Loader {
	if options == nil {
		options = DefaultLoaderOptions()
	}
	return &Loader{
		sniffer: NewSniffer(),
		workers: max(options.Workers, 1),
	}
}

// sniffResult holds the outcome for one blob, kept at its enumeration index
type sniffResult struct {
	entries []*Entry
	err     error
}

// Load enumerates src and classifies every blob. Entries appear in
// enumeration order, with table expansions in place. If the container
// cannot be enumerated, the error wraps ErrContainerUnreadable and no
// catalog is returned.
func (l *Loader) Load(ctx context.Context, src container.Source) (*Catalog, error) {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	var results []*sniffResult
	var enumErr error

	for blob, err := range src.Blobs() {
		if err != nil {
			enumErr = fmt.Errorf("%w: %s: %v", ErrContainerUnreadable, src.Name(), err)
			break
		}
		if err := gctx.Err(); err != nil {
			enumErr = err
			break
		}

		slot := &sniffResult{}
		results = append(results, slot)

		if l.workers == 1 {
			slot.entries, slot.err = l.sniffer.Sniff(blob.Name, blob.Data)
			continue
		}
		g.Go(func() error {
			slot.entries, slot.err = l.sniffer.Sniff(blob.Name, blob.Data)
			return nil
		})
	}

	// Sniff never fails the group, so Wait only reports cancellation
	_ = g.Wait()
	if enumErr == nil {
		enumErr = ctx.Err()
	}

	cat := &Catalog{}
	for _, r := range results {
		cat.stats.Blobs++
		switch {
		case r.err == nil:
			cat.stats.Recognized++
			cat.entries = append(cat.entries, r.entries...)
		case errors.Is(r.err, ErrAnimated):
			cat.stats.Animated++
			slog.Debug("Blob excluded", "error", r.err)
		default:
			cat.stats.Unrecognized++
			slog.Debug("Blob unrecognized", "error", r.err)
		}
	}

	if enumErr != nil {
		cat.Close()
		return nil, enumErr
	}

	slog.Debug("Catalog loaded",
		"container", src.Name(),
		"blobs", cat.stats.Blobs,
		"entries", cat.Len(),
		"unrecognized", cat.stats.Unrecognized,
		"animated", cat.stats.Animated,
		"duration", time.Since(start))

	return cat, nil
}
