package resource

import "errors"

var (
	// ErrNotRecognized is returned when no sniffer accepts a blob. Callers
	// treat it as "skip this blob", not as a failure.
	ErrNotRecognized = errors.New("resource not recognized")

	// ErrAnimated is returned for multi-frame raster images, which are
	// excluded from the catalog.
	ErrAnimated = errors.New("animated image excluded")

	// ErrContainerUnreadable is returned when the container source cannot
	// enumerate its blobs. No partial catalog is produced.
	ErrContainerUnreadable = errors.New("container unreadable")

	// ErrEntryClosed is returned when a disposed entry is decoded.
	ErrEntryClosed = errors.New("catalog entry closed")
)
