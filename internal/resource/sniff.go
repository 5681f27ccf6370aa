package resource

import (
	"errors"
	"fmt"
	"log/slog"
)

// sniffStage is one trial decoder in the chain. A stage returns
// ErrNotRecognized (possibly wrapped) to hand the blob to the next stage.
type sniffStage struct {
	name string
	fn   func(s *Sniffer, name string, data []byte) ([]*Entry, error)
}

// stages is the fixed priority order. Icon and Cursor share one container
// format and differ only in the type field. The resource table stage is
// the catch-all and must stay last.
var stages = []sniffStage{
	{"icon", (*Sniffer).sniffIcon},
	{"cursor", (*Sniffer).sniffCursor},
	{"raster", (*Sniffer).sniffRaster},
	{"table", (*Sniffer).expandResourceTable},
}

// Sniffer classifies named blobs by sequential trial decoding
type Sniffer struct {
	// stages run in order; the first stage to accept a blob wins
	stages []sniffStage
}

// NewSniffer creates a sniffer with the standard Icon, Cursor, Raster,
// Table priority
func NewSniffer() *Sniffer {
	return &Sniffer{stages: stages}
}

// Sniff classifies one blob. Each stage reads the blob from byte 0.
//
// The result is one entry for an icon, cursor, or raster image, zero or
// more entries for a resource table, or an error wrapping ErrNotRecognized
// or ErrAnimated when the blob contributes nothing.
func (s *Sniffer) Sniff(name string, data []byte) ([]*Entry, error) {
	return s.run(s.stages, name, data)
}

// sniffLeaf classifies a value nested inside a table. Tables are not
// expanded recursively.
func (s *Sniffer) sniffLeaf(name string, data []byte) ([]*Entry, error) {
	return s.run(s.stages[:len(s.stages)-1], name, data)
}

func (s *Sniffer) run(chain []sniffStage, name string, data []byte) ([]*Entry, error) {
	for _, stage := range chain {
		entries, err := stage.fn(s, name, data)
		if err == nil {
			slog.Debug("Blob classified", "name", name, "stage", stage.name, "entries", len(entries))
			return entries, nil
		}
		if errors.Is(err, ErrAnimated) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotRecognized)
}

func (s *Sniffer) sniffIcon(name string, data []byte) ([]*Entry, error) {
	if _, err := parseIconDirectory(data, iconTypeIcon); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecognized, err)
	}
	return []*Entry{newIconEntry(KindIcon, name, data)}, nil
}

func (s *Sniffer) sniffCursor(name string, data []byte) ([]*Entry, error) {
	if _, err := parseIconDirectory(data, iconTypeCursor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecognized, err)
	}
	return []*Entry{newIconEntry(KindCursor, name, data)}, nil
}

func (s *Sniffer) sniffRaster(name string, data []byte) ([]*Entry, error) {
	surface, err := decodeRaster(data)
	if err != nil {
		return nil, err
	}
	return []*Entry{newRasterEntry(name, data, surface)}, nil
}

// isExclusion reports whether err means "skip silently"
func isExclusion(err error) bool {
	return errors.Is(err, ErrNotRecognized) || errors.Is(err, ErrAnimated)
}
