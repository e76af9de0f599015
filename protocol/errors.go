package protocol

import "errors"

// Header validation failures. RT code never returns these; they surface
// only from non-RT attach/validate paths and are encoded by the caller as
// a state transition (see consumer.Reader).
var (
	ErrVersionMismatch           = errors.New("protocol: version mismatch")
	ErrNotPowerOfTwo             = errors.New("protocol: buffer_frames is not a power of two")
	ErrBadGeometry               = errors.New("protocol: buffer_frames out of range")
	ErrDeclaredSizeExceedsRegion = errors.New("protocol: declared geometry exceeds mapped region size")
)
