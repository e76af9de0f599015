// Package ring implements the lock-free SPSC ring buffer that carries
// interleaved float32 PCM frames across the shared-memory boundary (Ring)
// and the planar variant used to decouple two callback threads inside a
// single process (PlanarRing).
//
// Both rings follow the same discipline as the teacher's byte-oriented
// SPSC buffer: a cumulative write position mutated only by the producer
// and a cumulative read position mutated only by the consumer, published
// with release stores and observed with acquire loads so the copied
// samples are visible before the counter that claims them is.
package ring

import (
	"sync/atomic"
)

// Ring is an interleaved-frame SPSC ring whose backing storage and
// position counters live in caller-supplied memory — normally a mapped
// shared region's audio-data slice and its header's write_pos/read_pos
// fields (see package protocol). It owns no memory of its own, which is
// what lets a consumer attach to a producer's region without copying it.
type Ring struct {
	data     []float32 // frames * channels, external storage
	frames   uint32     // capacity in frames, power of two
	mask     uint32
	channels uint32

	writePos *atomic.Uint64 // producer-owned
	readPos  *atomic.Uint64 // consumer-owned
}

// New wraps data (must be exactly frames*channels float32s) as a ring of
// the given capacity and channel count, publishing through writePos and
// readPos. frames must already be validated as a power of two by the
// caller (protocol.ValidateHeader does this for shared-memory rings).
func New(data []float32, frames, channels uint32, writePos, readPos *atomic.Uint64) *Ring {
	if int(frames)*int(channels) != len(data) {
		panic("ring: data length does not match frames*channels")
	}
	return &Ring{
		data:     data,
		frames:   frames,
		mask:     frames - 1,
		channels: channels,
		writePos: writePos,
		readPos:  readPos,
	}
}

// Channels reports the ring's interleaved channel count.
func (r *Ring) Channels() uint32 { return r.channels }

// Capacity reports the ring's capacity in frames.
func (r *Ring) Capacity() uint32 { return r.frames }

// AvailableRead is a snapshot of the occupied portion of the ring, in
// frames. Safe to call from either side.
func (r *Ring) AvailableRead() uint32 {
	wp := r.writePos.Load()
	rp := r.readPos.Load()
	return uint32(wp - rp)
}

// AvailableWrite is a snapshot of the free portion of the ring, in
// frames. Safe to call from either side.
func (r *Ring) AvailableWrite() uint32 {
	wp := r.writePos.Load()
	rp := r.readPos.Load()
	return r.frames - uint32(wp-rp)
}

// Write copies up to frames frames from src into the ring and publishes
// the new write position. src holds srcChannels interleaved channels; if
// srcChannels is 1 and the ring is stereo, channel 0 is duplicated into
// channel 1 (mono→stereo expansion) in a second pass over the written
// frames, after the copy. Called only by the producer; never blocks,
// never allocates.
//
// Returns the number of frames actually written, which is less than
// frames when the ring does not have enough free space (the consumer is
// lagging).
func (r *Ring) Write(src []float32, srcChannels uint32, frames int) int {
	if frames <= 0 {
		return 0
	}
	rp := r.readPos.Load() // acquire: must not race ahead of the consumer's claims
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
	chCount := srcChannels
	if chCount > r.channels {
		chCount = r.channels
	}

	writeChannelMajor(r.data, startIdx, r.mask, r.frames, r.channels, src, srcChannels, chCount, toWrite)

	r.writePos.Store(wp + uint64(toWrite)) // release: publish the samples
	return toWrite
}

// Read copies up to frames frames from the ring into dst and publishes
// the new read position. dst holds dstChannels interleaved channels; if
// the ring has fewer channels than dst, the ring's channel 0 is
// replicated into the extra output channels. Called only by the
// consumer; never blocks, never allocates.
//
// Returns the number of frames actually read, which is less than frames
// on under-run; the caller is responsible for padding the remainder.
func (r *Ring) Read(dst []float32, dstChannels uint32, frames int) int {
	if frames <= 0 {
		return 0
	}
	wp := r.writePos.Load() // acquire: samples at indices below wp are visible
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
	chCount := dstChannels
	if chCount > r.channels {
		chCount = r.channels
	}

	readChannelMajor(r.data, startIdx, r.mask, r.frames, r.channels, dst, dstChannels, chCount, toRead)

	r.readPos.Store(rp + uint64(toRead)) // release: free the space back to the producer
	return toRead
}

// writeChannelMajor copies toWrite frames of srcChannels-interleaved src
// into the ring's channels-interleaved storage starting at startIdx,
// splitting the copy at the wrap point exactly once.
func writeChannelMajor(data []float32, startIdx, mask, capacity, channels uint32, src []float32, srcChannels, chCount uint32, toWrite int) {
	firstPart := int(capacity - startIdx)
	if firstPart > toWrite {
		firstPart = toWrite
	}
	second := toWrite - firstPart

	copyInterleaved(data, int(startIdx)*int(channels), channels, src, 0, srcChannels, chCount, firstPart)
	if second > 0 {
		copyInterleaved(data, 0, channels, src, firstPart, srcChannels, chCount, second)
	}

	// Mono source into a wider ring: duplicate channel 0 across the
	// remaining ring channels in a second pass over the written frames,
	// wrapping at the end of the ring.
	for ch := chCount; ch < channels; ch++ {
		duplicateChannel(data, int(startIdx), mask, channels, 0, ch, toWrite)
	}
}

func readChannelMajor(data []float32, startIdx, mask, capacity, channels uint32, dst []float32, dstChannels, chCount uint32, toRead int) {
	firstPart := int(capacity - startIdx)
	if firstPart > toRead {
		firstPart = toRead
	}
	second := toRead - firstPart

	copyInterleaved(dst, 0, dstChannels, data, int(startIdx)*int(channels), channels, chCount, firstPart)
	if second > 0 {
		copyInterleaved(dst, firstPart, dstChannels, data, 0, channels, chCount, second)
	}

	// Ring narrower than requested output: replicate channel 0 into the
	// extra destination channels.
	for ch := chCount; ch < dstChannels; ch++ {
		duplicateChannel(dst, 0, ^uint32(0), dstChannels, 0, ch, toRead)
	}
}

// copyInterleaved copies n frames of chCount channels from src (stride
// srcStride, starting at srcOff) into dst (stride dstStride, starting at
// dstOff).
func copyInterleaved(dst []float32, dstOff int, dstStride uint32, src []float32, srcOff int, srcStride uint32, chCount uint32, n int) {
	if n <= 0 {
		return
	}
	if chCount == dstStride && chCount == srcStride {
		copy(dst[dstOff:dstOff+n*int(chCount)], src[srcOff:srcOff+n*int(chCount)])
		return
	}
	for i := 0; i < n; i++ {
		for ch := uint32(0); ch < chCount; ch++ {
			dst[dstOff+i*int(dstStride)+int(ch)] = src[srcOff+i*int(srcStride)+int(ch)]
		}
	}
}

// duplicateChannel copies buf's srcCh channel into dstCh channel, for n
// frames starting at a ring-relative index with wraparound at mask+1
// (pass mask = ^uint32(0) to mean "no wraparound", used for plain linear
// buffers like Read's destination).
func duplicateChannel(buf []float32, startIdx int, mask, stride uint32, srcCh, dstCh uint32, n int) {
	if mask == ^uint32(0) {
		for i := 0; i < n; i++ {
			idx := (startIdx + i) * int(stride)
			buf[idx+int(dstCh)] = buf[idx+int(srcCh)]
		}
		return
	}
	for i := 0; i < n; i++ {
		idx := int((uint32(startIdx)+uint32(i))&mask) * int(stride)
		buf[idx+int(dstCh)] = buf[idx+int(srcCh)]
	}
}
