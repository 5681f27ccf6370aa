package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jchantrell/resgrab/internal/resource"
)

// ExporterOptions configures how entries are written
type ExporterOptions struct {
	// JPEGQuality is used when a raster entry is saved as JPEG (1-100)
	JPEGQuality int
}

// DefaultExporterOptions returns the default encoder settings
func DefaultExporterOptions() *ExporterOptions {
	return &ExporterOptions{
		JPEGQuality: 90,
	}
}

// Exporter writes catalog entries to disk
type Exporter struct {
	jpegQuality int
}

// NewExporter creates a new entry exporter. A nil options value uses the
// defaults.
func NewExporter(options *ExporterOptions) *Exporter {
	if options == nil {
		options = DefaultExporterOptions()
	}
	quality := options.JPEGQuality
	if quality < 1 || quality > 100 {
		quality = DefaultExporterOptions().JPEGQuality
	}
	return &Exporter{jpegQuality: quality}
}

// ExportError reports a failure to write one entry
type ExportError struct {
	Entry string
	Path  string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting %s to %s: %v", e.Entry, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ProgressCallback is called to report export progress
type ProgressCallback func(current int, total int, description string)

// BatchReport summarizes an ExportAll run
type BatchReport struct {
	Written []string
	Failed  []*ExportError
}

// ExportEntry writes one entry to destPath and returns the path actually
// written. requestedExt selects the encoding; when empty the extension of
// destPath is used. An extension that does not suit the entry is replaced
// by the entry's canonical one.
//
// Icons and cursors are copied byte for byte. Raster entries are re-encoded
// from a fresh copy of their decoded surface.
func (e *Exporter) ExportEntry(entry *resource.Entry, destPath, requestedExt string) (string, error) {
	if requestedExt == "" {
		requestedExt = filepath.Ext(destPath)
	}
	ext, honoured := resolveExtension(entry.Kind(), entry.Format(), requestedExt)
	outputPath := strings.TrimSuffix(destPath, filepath.Ext(destPath)) + ext
	if !honoured && requestedExt != "" {
		slog.Debug("Extension does not suit entry, using canonical", "entry", entry.Name(), "requested", requestedExt, "ext", ext)
	}

	data, err := e.encode(entry, ext)
	if err != nil {
		return "", &ExportError{Entry: entry.Name(), Path: outputPath, Err: err}
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", &ExportError{Entry: entry.Name(), Path: outputPath, Err: err}
	}

	slog.Debug("Exported entry", "entry", entry.Name(), "kind", entry.Kind(), "output", outputPath, "bytes", len(data))
	return outputPath, nil
}

// Encode returns the bytes ExportEntry writes for entry under its canonical
// extension, along with that extension
func (e *Exporter) Encode(entry *resource.Entry) ([]byte, string, error) {
	ext := CanonicalExtension(entry.Kind(), entry.Format())
	data, err := e.encode(entry, ext)
	if err != nil {
		return nil, "", err
	}
	return data, ext, nil
}

func (e *Exporter) encode(entry *resource.Entry, ext string) ([]byte, error) {
	switch entry.Kind() {
	case resource.KindIcon, resource.KindCursor:
		data := entry.RawBytes()
		if data == nil {
			return nil, errors.New("entry has no raw data")
		}
		return data, nil
	default:
		return e.encodeRaster(entry, ext)
	}
}

// ExportAll writes every entry of the catalog into dir using canonical
// extensions. A failed entry is recorded and the batch continues. The run
// stops between entries when ctx is cancelled.
func (e *Exporter) ExportAll(ctx context.Context, catalog *resource.Catalog, dir string, progressCallback ProgressCallback) (*BatchReport, error) {
	report := &BatchReport{}
	entries := catalog.Entries()
	if len(entries) == 0 {
		return report, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return report, fmt.Errorf("creating output directory: %w", err)
	}

	used := make(map[string]int, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ext := CanonicalExtension(entry.Kind(), entry.Format())
		name := uniqueName(used, outputBaseName(entry.Name()), ext)
		written, err := e.ExportEntry(entry, filepath.Join(dir, name+ext), ext)
		if err != nil {
			var exportErr *ExportError
			if !errors.As(err, &exportErr) {
				exportErr = &ExportError{Entry: entry.Name(), Path: filepath.Join(dir, name+ext), Err: err}
			}
			slog.Debug("Failed to export entry", "entry", entry.Name(), "error", exportErr.Err)
			report.Failed = append(report.Failed, exportErr)
		} else {
			report.Written = append(report.Written, written)
		}

		if progressCallback != nil {
			progressCallback(i+1, len(entries), name+ext)
		}
	}

	return report, nil
}

// uniqueName suffixes base with _N when another entry of the batch already
// used the same file name
func uniqueName(used map[string]int, base, ext string) string {
	key := strings.ToLower(base + ext)
	n := used[key]
	used[key] = n + 1
	if n == 0 {
		return base
	}

	candidate := base + "_" + strconv.Itoa(n)
	for used[strings.ToLower(candidate+ext)] > 0 {
		n++
		candidate = base + "_" + strconv.Itoa(n)
	}
	used[strings.ToLower(candidate+ext)] = 1
	return candidate
}
