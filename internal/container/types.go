// Package container enumerates the named byte blobs held by a container.
// Sources only list and read blobs; classifying them is left to the caller.
package container

import "iter"

// Blob is a raw, named byte sequence pulled from a container
type Blob struct {
	Name string
	Data []byte
}

// Source represents a container that can enumerate its blobs
type Source interface {
	// Name identifies the container, usually its path
	Name() string
	// Blobs yields every blob in the container's native order. The sequence
	// is finite and may only be consumed once. A non-nil error item means
	// the container could not be enumerated and ends the sequence.
	Blobs() iter.Seq2[Blob, error]
}

// Source kinds accepted by Open
const (
	KindAuto   = "auto"
	KindDir    = "dir"
	KindZip    = "zip"
	KindBundle = "bundle"
)
