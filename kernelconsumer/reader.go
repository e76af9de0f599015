// Package kernelconsumer specifies the logic a kernel-mode driver's
// timer DPC would run to read DirectPipe's shared ring buffer. It is a
// user-mode stand-in: a real WDK/KMDF driver cannot be expressed in Go,
// so this package models the exact read path and atomic ordering a
// ZwMapViewOfSection-backed kernel reader would use, driven here by a
// time.Ticker instead of a DPC.
package kernelconsumer

import (
	"context"
	"time"

	"github.com/livetrack/directpipe/protocol"
	"github.com/livetrack/directpipe/ring"
	"github.com/livetrack/directpipe/shmregion"
)

// TickInterval stands in for the periodic DPC a kernel client driver
// would schedule to drain the ring at a fixed cadence independent of any
// user-mode audio callback.
const TickInterval = 5 * time.Millisecond

// Reader mirrors shm_kernel_reader.cpp's KERNEL_SHM_READER: it attaches
// to the section through shmregion.Attach (a read-write mapping, since
// draining the ring advances the header's read_pos) and on each tick
// drains the ring into its own scratch buffer, then copies the frames
// into the caller's buffer.
type Reader struct {
	name string

	region *shmregion.Region
	header *protocol.Header
	ring   *ring.Ring

	scratch []float32

	connected bool
}

// Open mirrors KernelShmReaderOpen: attach to the named region, validate
// geometry and version, and fail with the same error classes
// (ErrNotFound when the host app isn't running, ErrVersionMismatch on a
// protocol revision mismatch) that a kernel caller would receive as an
// NTSTATUS. Not allocation-free; called only from setup (PASSIVE_LEVEL
// in kernel terms).
func Open(name string, maxFrames int) (*Reader, error) {
	region, err := shmregion.Attach(name)
	if err != nil {
		return nil, err
	}

	header := protocol.NewHeaderView(region.Base)
	if err := protocol.ValidateHeader(header, region.Size); err != nil {
		region.Close()
		return nil, err
	}

	audioData := asFloat32Slice(header.AudioData())
	frames := header.BufferFrames()
	channels := header.Channels()

	r := &Reader{
		name:      name,
		region:    region,
		header:    header,
		ring:      ring.New(audioData, frames, channels, header.WritePos, header.ReadPos),
		scratch:   make([]float32, maxFrames*int(channels)),
		connected: true,
	}
	return r, nil
}

// Close unmaps the section. Mirrors KernelShmReaderClose.
func (r *Reader) Close() error {
	r.connected = false
	return r.region.Close()
}

// Connected mirrors KernelShmReaderIsConnected: true only while the
// section is mapped and the producer is observed active.
func (r *Reader) Connected() bool {
	return r.connected && r.header.ProducerActive.Load() != 0
}

// SampleRate mirrors KernelShmReaderGetSampleRate.
func (r *Reader) SampleRate() uint32 {
	if !r.Connected() {
		return 0
	}
	return r.header.SampleRate()
}

// Channels mirrors KernelShmReaderGetChannels.
func (r *Reader) Channels() uint32 {
	if !r.Connected() {
		return 0
	}
	return r.header.Channels()
}

// Read drains up to maxFrames frames into dst, which must be at least
// maxFrames*Channels() long. Returns the number of frames read, 0 on
// under-run or disconnect. No allocation: safe to call from the tick
// handler at any IRQL the real driver would run its DPC.
func (r *Reader) Read(dst []float32, maxFrames int) int {
	if !r.connected || r.header.ProducerActive.Load() == 0 {
		return 0
	}
	if maxFrames > len(r.scratch)/int(r.ring.Channels()) {
		maxFrames = len(r.scratch) / int(r.ring.Channels())
	}
	n := r.ring.Read(r.scratch, r.ring.Channels(), maxFrames)
	if n > 0 {
		copy(dst, r.scratch[:n*int(r.ring.Channels())])
	}
	return n
}

// Run starts a ticker at TickInterval that calls handler with each
// drained block until ctx is cancelled, simulating the periodic DPC a
// real kernel driver would schedule. blockFrames bounds each tick's
// read, matching the driver's fixed per-tick quantum.
func (r *Reader) Run(ctx context.Context, blockFrames int, handler func(buf []float32, frames int)) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	buf := make([]float32, blockFrames*int(r.ring.Channels()))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := r.Read(buf, blockFrames)
			handler(buf, n)
		}
	}
}
