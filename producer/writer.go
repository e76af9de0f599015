// Package producer implements the producer side of the shared-memory
// bridge: region creation, header initialization, and the per-block RT
// write path feeding the ring.
package producer

import (
	"fmt"
	"sync/atomic"

	"github.com/livetrack/directpipe/protocol"
	"github.com/livetrack/directpipe/ring"
	"github.com/livetrack/directpipe/shmregion"
)

// Config describes the geometry a producer publishes. SampleRate is
// inherited from the host and carried verbatim; it is never validated
// against anything on the producer side (the consumer is the one that
// cares about version/geometry agreement).
type Config struct {
	Name         string
	SampleRate   uint32
	Channels     uint32
	BufferFrames uint32
	MaxBlockSize int
}

// DefaultConfig returns the geometry spec.md §6 calls out as the default
// when a producer does not specify otherwise.
func DefaultConfig(sampleRate uint32) Config {
	return Config{
		Name:         protocol.RegionName,
		SampleRate:   sampleRate,
		Channels:     protocol.DefaultChannels,
		BufferFrames: protocol.DefaultBufferFrames,
		MaxBlockSize: 4096,
	}
}

// Writer owns the shared region for its lifetime: it is created exactly
// once by Start and released exactly once by Stop.
type Writer struct {
	cfg    Config
	region *shmregion.Region
	header *protocol.Header
	ring   *ring.Ring

	scratch []float32 // interleave scratch, sized at Start from MaxBlockSize*Channels

	overflowCount atomic.Uint64 // written by WriteBlock, read from a reporting goroutine
}

// Start computes the region size from cfg, creates it, initializes the
// header's immutable fields, zeroes the positions, and finally marks
// producer_active — the exact ordering spec.md §3's Lifecycle requires.
// Not RT-safe; call only from setup.
func Start(cfg Config) (*Writer, error) {
	if !protocol.IsPowerOfTwo(cfg.BufferFrames) {
		return nil, fmt.Errorf("producer: buffer_frames %d is not a power of two", cfg.BufferFrames)
	}

	totalBytes := protocol.CalculateRegionBytes(cfg.BufferFrames, cfg.Channels)
	region, err := shmregion.Create(cfg.Name, totalBytes)
	if err != nil {
		return nil, fmt.Errorf("producer: create region: %w", err)
	}

	header := protocol.NewHeaderView(region.Base)
	header.Zero()
	header.SetSampleRate(cfg.SampleRate)
	header.SetChannels(cfg.Channels)
	header.SetBufferFrames(cfg.BufferFrames)
	header.SetVersion(protocol.CurrentVersion)

	audioData := asFloat32Slice(header.AudioData())
	r := ring.New(audioData, cfg.BufferFrames, cfg.Channels, header.WritePos, header.ReadPos)

	w := &Writer{
		cfg:     cfg,
		region:  region,
		header:  header,
		ring:    r,
		scratch: make([]float32, cfg.MaxBlockSize*int(cfg.Channels)),
	}

	// Publish last: any consumer that observes producer_active=1 must
	// already see a fully initialized header.
	header.ProducerActive.Store(1)
	return w, nil
}

// WriteBlock interleaves srcChannels planar channels of frames samples
// each into the writer's preallocated scratch buffer and feeds the ring.
// RT-safe: no allocation once Start has returned. Returns the number of
// frames actually written; written < frames means the consumer is
// lagging and the overflow counter is incremented.
func (w *Writer) WriteBlock(planar [][]float32, frames int) int {
	chCount := len(planar)
	if chCount == 0 || frames <= 0 {
		return 0
	}
	needed := frames * chCount
	scratch := w.scratch
	if needed > len(scratch) {
		// Defensive clamp: a block larger than MaxBlockSize is a setup
		// error, not a runtime condition we can recover samples for.
		frames = len(scratch) / chCount
		needed = frames * chCount
	}
	interleave(scratch[:needed], planar, frames)

	written := w.ring.Write(scratch[:needed], uint32(chCount), frames)
	if written < frames {
		w.overflowCount.Add(uint64(frames - written))
	}
	return written
}

// OverflowCount reports how many frames have been dropped because the
// consumer could not keep up. Safe to read from any goroutine concurrently
// with WriteBlock: the add on the RT side and this load both go through
// atomic.Uint64, matching how the reader side's underrun/mute/preset
// counters are exposed to non-RT reporting goroutines.
func (w *Writer) OverflowCount() uint64 { return w.overflowCount.Load() }

// Stop clears producer_active (the sole cancellation signal consumers
// observe) and releases the region. Not RT-safe.
func (w *Writer) Stop() error {
	w.header.ProducerActive.Store(0)
	return w.region.Close()
}

func interleave(dst []float32, planar [][]float32, frames int) {
	chCount := len(planar)
	for ch := 0; ch < chCount; ch++ {
		src := planar[ch]
		for i := 0; i < frames; i++ {
			dst[i*chCount+ch] = src[i]
		}
	}
}
