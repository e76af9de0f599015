// Package monitor implements the intra-process "virtual cable" bridge: a
// second SPSC ring decoupling the main producer's audio callback from an
// independent monitor-output device callback, without ever letting one
// thread block on the other.
package monitor

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/livetrack/directpipe/ring"
)

// Status names the bridge's lifecycle state. The zero value,
// NotConfigured, is the safe default both before Configure and during
// any reset window, so a consumer callback racing ahead of a status
// transition always sees "skip the ring" rather than a torn read.
type Status int32

const (
	NotConfigured Status = iota
	Active
	SampleRateMismatch
	Error
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case SampleRateMismatch:
		return "sample_rate_mismatch"
	case Error:
		return "error"
	default:
		return "not_configured"
	}
}

// monitorRingFrames and monitorChannels are fixed regardless of the
// producer's own geometry — the monitor path always runs a 4096-frame
// stereo ring, matching the original bridge's own ring.initialize(4096, 2).
const (
	monitorRingFrames  = 4096
	monitorChannels    = 2
	sampleRateTolerance = 1.0
)

// Bridge decouples a producer's audio callback from a second, independent
// device callback (e.g. a virtual-cable monitor output). WriteAudio is
// called from the producer thread; Read is called from the monitor
// device's own callback thread. Neither call ever blocks on the other.
type Bridge struct {
	status atomic.Int32 // Status, read with acquire ordering by both sides

	ring *ring.PlanarRing

	expectedSampleRate float64
	actualSampleRate   atomic.Uint64 // math.Float64bits, written by AboutToStart

	droppedFrames atomic.Uint64

	log *zap.Logger
}

// New constructs an unconfigured bridge. Configure must be called once
// the monitor device's expected sample rate is known.
func New() *Bridge {
	b := &Bridge{ring: ring.NewPlanar(monitorRingFrames, monitorChannels), log: zap.NewNop()}
	b.status.Store(int32(NotConfigured))
	return b
}

// SetLogger attaches a structured logger for status transitions
// (AboutToStart, DeviceStopped, MarkError). Never called from
// WriteAudio/Read, the RT hot path.
func (b *Bridge) SetLogger(log *zap.Logger) {
	if log != nil {
		b.log = log
	}
}

// Configure records the sample rate the monitor device is expected to
// run at and resets the ring, leaving the bridge NotConfigured until the
// device callback's AboutToStart confirms the rate and sets it Active.
func (b *Bridge) Configure(expectedSampleRate float64) {
	b.status.Store(int32(NotConfigured))
	b.expectedSampleRate = expectedSampleRate
	b.ring.Reset()
}

// Shutdown marks the bridge NotConfigured before tearing down, exactly
// in the order the original does: status first, so the producer's next
// WriteAudio call observes non-Active before the ring is touched again.
func (b *Bridge) Shutdown() {
	b.status.Store(int32(NotConfigured))
	b.actualSampleRate.Store(0)
	b.ring.Reset()
}

// AboutToStart is called once from the monitor device callback thread
// when the device (re)starts, mirroring audioDeviceAboutToStart: it
// checks the device's actual sample rate against the configured
// expectation and transitions to Active only on a match, resetting the
// ring while status is provably non-Active to avoid a torn read on the
// producer side.
func (b *Bridge) AboutToStart(deviceSampleRate float64) {
	b.actualSampleRate.Store(math.Float64bits(deviceSampleRate))

	if math.Abs(deviceSampleRate-b.expectedSampleRate) > sampleRateTolerance {
		b.status.Store(int32(SampleRateMismatch))
		b.ring.Reset()
		b.log.Warn("monitor: sample rate mismatch", zap.Float64("expected", b.expectedSampleRate), zap.Float64("actual", deviceSampleRate))
		return
	}

	b.status.Store(int32(NotConfigured))
	b.ring.Reset()
	b.status.Store(int32(Active))
	b.log.Info("monitor: bridge active", zap.Float64("sample_rate", deviceSampleRate))
}

// DeviceStopped is called when the monitor device callback stops.
func (b *Bridge) DeviceStopped() {
	b.status.Store(int32(NotConfigured))
	b.log.Info("monitor: device stopped")
}

// MarkError transitions the bridge to Error, e.g. when the monitor
// device fails to open.
func (b *Bridge) MarkError() {
	b.status.Store(int32(Error))
	b.log.Error("monitor: bridge entered error state")
}

// Status reports the current bridge state. Safe from any goroutine.
func (b *Bridge) Status() Status { return Status(b.status.Load()) }

// ActualSampleRate reports the last sample rate observed by AboutToStart.
func (b *Bridge) ActualSampleRate() float64 { return math.Float64frombits(b.actualSampleRate.Load()) }

// DroppedFrames reports cumulative frames lost to WriteAudio overflow.
func (b *Bridge) DroppedFrames() uint64 { return b.droppedFrames.Load() }

// WriteAudio is called from the producer's audio callback. If the bridge
// is not Active it is a silent no-op — the defining guarantee that lets
// the monitor device be absent, misconfigured, or mid-reset without the
// producer ever stalling. RT-safe: no allocation, no blocking.
func (b *Bridge) WriteAudio(planar [][]float32, frames int) int {
	if Status(b.status.Load()) != Active {
		return 0
	}
	written := b.ring.Write(planar, frames)
	if written < frames {
		b.droppedFrames.Add(uint64(frames - written))
	}
	return written
}

// Read is called from the monitor device's own callback. If the bridge
// is not Active it writes silence into dst without touching the ring,
// which is what prevents a data race against a concurrent Reset. RT-safe.
func (b *Bridge) Read(dst [][]float32, frames int) int {
	if Status(b.status.Load()) != Active {
		silence(dst, frames)
		return 0
	}
	read := b.ring.Read(dst, frames)
	if read < frames {
		for _, ch := range dst {
			for i := read; i < frames && i < len(ch); i++ {
				ch[i] = 0
			}
		}
	}
	return read
}

func silence(dst [][]float32, frames int) {
	for _, ch := range dst {
		n := frames
		if n > len(ch) {
			n = len(ch)
		}
		for i := 0; i < n; i++ {
			ch[i] = 0
		}
	}
}
