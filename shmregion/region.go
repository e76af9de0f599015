// Package shmregion provides the named shared-memory carrier: Create for
// the producer, Attach for consumers. It is a dumb byte window with a
// scoped release — it has no notion of the header or ring layout that
// lives inside it (see package protocol and package ring for those).
package shmregion

import "github.com/livetrack/directpipe/protocol"

// Region is a mapped shared-memory window. Base is the raw mapped byte
// slice, Size its length. Close unmaps on every exit path; calling Close
// more than once is safe.
type Region struct {
	Base []byte
	Size int

	closer func() error
}

// Close releases the mapping (and, for the region's creator, the backing
// named object). Safe to call multiple times.
func (r *Region) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer()
	r.closer = nil
	r.Base = nil
	return err
}

// Create makes a new named region of totalBytes and maps it read-write.
// Only the producer calls this, and only once per region name. The
// caller is responsible for writing the header's immutable fields before
// publishing producer_active.
func Create(name string, totalBytes int) (*Region, error) {
	if totalBytes < protocol.HeaderSize {
		return nil, ErrTooSmall
	}
	return createPlatform(name, totalBytes)
}

// Attach opens an existing named region and maps it read-write (the
// consumer still needs read-write access to mutate its own read_pos).
// ErrNotFound is an expected, non-exceptional outcome — the caller
// should keep polling, not log it as an error on every attempt.
func Attach(name string) (*Region, error) {
	r, err := attachPlatform(name)
	if err != nil {
		return nil, err
	}
	if r.Size < protocol.HeaderSize {
		r.Close()
		return nil, ErrTooSmall
	}
	return r, nil
}
