// Package protocol defines the fixed-layout shared-memory header and the
// pure arithmetic/validation helpers around it. It has no behavior beyond
// offsets, sizes, and checks — the ring discipline lives in package ring,
// the region lifecycle in package shmregion.
package protocol

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// Wire layout, byte-exact. Total header size is 128 bytes.
const (
	OffsetWritePos       = 0
	OffsetReadPos        = 64
	OffsetSampleRate     = 72
	OffsetChannels       = 76
	OffsetBufferFrames   = 80
	OffsetVersion        = 84
	OffsetProducerActive = 88
	OffsetReserved       = 92
	ReservedSize         = 36

	HeaderSize = 128

	// CurrentVersion is bumped for any ABI-breaking change to the header
	// or ring format.
	CurrentVersion = 1

	// DefaultChannels and DefaultBufferFrames are used when the producer
	// does not specify otherwise.
	DefaultChannels     = 2
	DefaultBufferFrames = 32768

	MinBufferFrames = 64
	MaxBufferFrames = 1 << 20

	// RegionName is the fixed, well-known name a consumer discovers the
	// producer's region under. Platform-specific naming happens in package
	// shmregion: a "directpipe-" prefix under /dev/shm (linux) or the temp
	// directory (darwin), or "Local\directpipe-" on windows.
	RegionName = "DirectPipeAudio"
)

// Header is a typed view constructed over the first HeaderSize bytes of a
// mapped shared region. It never copies or owns the backing memory; all
// fields read and write directly into the caller-supplied slice.
//
// write_pos, read_pos and producer_active are the only fields mutated
// after creation and are exposed as atomics so RT code can use
// acquire/release ordering. sample_rate, channels, buffer_frames and
// version are written once, before producer_active is set, and read
// thereafter with plain loads — per the invariant that nothing else
// touches them in steady state.
type Header struct {
	base []byte

	WritePos       *atomic.Uint64
	ReadPos        *atomic.Uint64
	ProducerActive *atomic.Uint32
}

// NewHeaderView builds a typed view over base, which must be at least
// HeaderSize bytes (normally the first HeaderSize bytes of a mapped
// region). It panics if base is too small — that is a programmer error,
// not a runtime condition (the region carrier already enforces min size).
func NewHeaderView(base []byte) *Header {
	if len(base) < HeaderSize {
		panic("protocol: header view requires at least HeaderSize bytes")
	}
	return &Header{
		base:           base,
		WritePos:       (*atomic.Uint64)(unsafe.Pointer(&base[OffsetWritePos])),
		ReadPos:        (*atomic.Uint64)(unsafe.Pointer(&base[OffsetReadPos])),
		ProducerActive: (*atomic.Uint32)(unsafe.Pointer(&base[OffsetProducerActive])),
	}
}

func (h *Header) SampleRate() uint32 {
	return binary.LittleEndian.Uint32(h.base[OffsetSampleRate:])
}

func (h *Header) SetSampleRate(v uint32) {
	binary.LittleEndian.PutUint32(h.base[OffsetSampleRate:], v)
}

func (h *Header) Channels() uint32 {
	return binary.LittleEndian.Uint32(h.base[OffsetChannels:])
}

func (h *Header) SetChannels(v uint32) {
	binary.LittleEndian.PutUint32(h.base[OffsetChannels:], v)
}

func (h *Header) BufferFrames() uint32 {
	return binary.LittleEndian.Uint32(h.base[OffsetBufferFrames:])
}

func (h *Header) SetBufferFrames(v uint32) {
	binary.LittleEndian.PutUint32(h.base[OffsetBufferFrames:], v)
}

func (h *Header) Version() uint32 {
	return binary.LittleEndian.Uint32(h.base[OffsetVersion:])
}

func (h *Header) SetVersion(v uint32) {
	binary.LittleEndian.PutUint32(h.base[OffsetVersion:], v)
}

// Zero clears the header's reserved bytes and position counters. Called
// once by the producer at creation, before any field is published.
func (h *Header) Zero() {
	for i := OffsetReserved; i < OffsetReserved+ReservedSize; i++ {
		h.base[i] = 0
	}
	h.WritePos.Store(0)
	h.ReadPos.Store(0)
}

// AudioData returns the byte slice holding the interleaved float32 frames:
// everything from HeaderSize to the end of the mapped view. For a region
// sized by CalculateRegionBytes that is exactly frames*channels*4 bytes; a
// larger mapping yields a longer slice.
func (h *Header) AudioData() []byte {
	return h.base[HeaderSize:]
}

// CalculateRegionBytes returns the total region size in bytes for the
// given geometry: the 128-byte header plus frames*channels*4 bytes of
// interleaved float32 audio data.
func CalculateRegionBytes(frames, channels uint32) int {
	return HeaderSize + int(frames)*int(channels)*4
}

// IsPowerOfTwo reports whether v is a power of two (v > 0).
func IsPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// ValidateHeader checks a consumer's view of a freshly attached region
// against the wire contract. regionBytes is the size of the mapped
// region (not the declared geometry) so a short mapping is caught as
// ErrDeclaredSizeExceedsRegion rather than an out-of-bounds read.
func ValidateHeader(h *Header, regionBytes int) error {
	if h.Version() != CurrentVersion {
		return ErrVersionMismatch
	}
	frames := h.BufferFrames()
	if frames < MinBufferFrames || frames > MaxBufferFrames {
		return ErrBadGeometry
	}
	if !IsPowerOfTwo(frames) {
		return ErrNotPowerOfTwo
	}
	channels := h.Channels()
	declared := CalculateRegionBytes(frames, channels)
	if declared > regionBytes {
		return ErrDeclaredSizeExceedsRegion
	}
	return nil
}
