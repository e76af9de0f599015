package ring

import "sync/atomic"

// PlanarRing is the per-channel-buffer variant of Ring, used only inside
// a single process to decouple two callback threads (see package
// monitor). Unlike Ring, it owns its storage — there is no shared-memory
// region to attach to, just two goroutines (in practice, two OS callback
// threads) agreeing on a capacity at construction time.
//
// write_pos/read_pos are plain atomic.Uint64 fields rather than pointers
// into external memory, but the discipline — producer owns write_pos and
// publishes with a release store, consumer owns read_pos and publishes
// its own release store, each acquire-loads the other's counter — is
// identical to Ring.
type PlanarRing struct {
	data     [][]float32 // one slice per channel, each of length frames
	frames   uint32
	mask     uint32
	channels uint32

	writePos atomic.Uint64
	readPos  atomic.Uint64
}

// NewPlanar allocates a planar ring of the given capacity (must be a
// power of two) and channel count. Not RT-safe — call only during setup.
func NewPlanar(frames, channels uint32) *PlanarRing {
	if !IsPowerOfTwoPlanar(frames) {
		panic("ring: planar ring capacity must be a power of two")
	}
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return &PlanarRing{
		data:     data,
		frames:   frames,
		mask:     frames - 1,
		channels: channels,
	}
}

// IsPowerOfTwoPlanar mirrors protocol.IsPowerOfTwo without introducing an
// import cycle (ring must not depend on protocol).
func IsPowerOfTwoPlanar(v uint32) bool { return v != 0 && v&(v-1) == 0 }

func (r *PlanarRing) Channels() uint32 { return r.channels }
func (r *PlanarRing) Capacity() uint32 { return r.frames }

func (r *PlanarRing) AvailableRead() uint32 {
	return uint32(r.writePos.Load() - r.readPos.Load())
}

func (r *PlanarRing) AvailableWrite() uint32 {
	return r.frames - uint32(r.writePos.Load()-r.readPos.Load())
}

// Write copies up to frames frames from the per-channel slices in src
// into the ring. Only the channels common to both src and the ring are
// copied. RT-safe: no allocation, called only by the producer.
func (r *PlanarRing) Write(src [][]float32, frames int) int {
	if frames <= 0 {
		return 0
	}
	rp := r.readPos.Load()
	wp := r.writePos.Load()

	available := int(r.frames) - int(wp-rp)
	toWrite := frames
	if toWrite > available {
		toWrite = available
	}
	if toWrite <= 0 {
		return 0
	}

	startIdx := uint32(wp) & r.mask
	chCount := uint32(len(src))
	if chCount > r.channels {
		chCount = r.channels
	}

	firstPart := int(r.frames - startIdx)
	if firstPart > toWrite {
		firstPart = toWrite
	}
	second := toWrite - firstPart

	for ch := uint32(0); ch < chCount; ch++ {
		copy(r.data[ch][startIdx:startIdx+uint32(firstPart)], src[ch][:firstPart])
		if second > 0 {
			copy(r.data[ch][:second], src[ch][firstPart:firstPart+second])
		}
	}
	// Mono source duplicated across the remaining ring channels.
	for ch := chCount; ch < r.channels; ch++ {
		for i := 0; i < toWrite; i++ {
			idx := (startIdx + uint32(i)) & r.mask
			r.data[ch][idx] = r.data[0][idx]
		}
	}

	r.writePos.Store(wp + uint64(toWrite))
	return toWrite
}

// Read copies up to frames frames from the ring into the per-channel
// slices in dst, zero-padding nothing itself — the caller pads short
// reads. RT-safe: no allocation, called only by the consumer.
func (r *PlanarRing) Read(dst [][]float32, frames int) int {
	if frames <= 0 {
		return 0
	}
	wp := r.writePos.Load()
	rp := r.readPos.Load()

	available := int(wp - rp)
	toRead := frames
	if toRead > available {
		toRead = available
	}
	if toRead <= 0 {
		return 0
	}

	startIdx := uint32(rp) & r.mask
	chCount := uint32(len(dst))
	if chCount > r.channels {
		chCount = r.channels
	}

	firstPart := int(r.frames - startIdx)
	if firstPart > toRead {
		firstPart = toRead
	}
	second := toRead - firstPart

	for ch := uint32(0); ch < chCount; ch++ {
		copy(dst[ch][:firstPart], r.data[ch][startIdx:startIdx+uint32(firstPart)])
		if second > 0 {
			copy(dst[ch][firstPart:firstPart+second], r.data[ch][:second])
		}
	}
	for ch := chCount; ch < uint32(len(dst)); ch++ {
		for i := 0; i < toRead; i++ {
			dst[ch][i] = dst[0][i]
		}
	}

	r.readPos.Store(rp + uint64(toRead))
	return toRead
}

// Reset discards all buffered audio by advancing the read position to
// the write position. Used by the monitor bridge when the consumer
// device restarts, before it transitions back to Active — see package
// monitor for why ordering matters here.
func (r *PlanarRing) Reset() {
	wp := r.writePos.Load()
	r.readPos.Store(wp)
}
