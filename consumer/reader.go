// Package consumer implements the consumer side of the shared-memory
// bridge: the Disconnected/Reconnecting/Connected state machine, drift
// compensation, and fade-out-on-underrun logic that runs inside a
// real-time audio callback.
package consumer

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/livetrack/directpipe/protocol"
	"github.com/livetrack/directpipe/ring"
	"github.com/livetrack/directpipe/shmregion"
)

// reconnectInterval is the number of RT blocks between reconnect
// attempts while disconnected.
const reconnectInterval = 100

// driftCheckWarmup is the number of blocks after a fresh connect during
// which drift compensation is suppressed, giving the fresh-position skip
// time to settle before the high-threshold check kicks in.
const driftCheckWarmup = 50

// State names the reader's connection state, reported to telemetry and
// diagnostics.
type State int32

const (
	Disconnected State = iota
	Reconnecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Config names the region a reader attaches to and the maximum block
// size its RT callback will ever be asked to fill, used to size
// preallocated scratch buffers once at Prepare time.
type Config struct {
	Name         string
	MaxBlockSize int
}

// eventKind names a state-transition ProcessBlock posts to the event
// mailbox instead of logging inline, keeping the RT callback free of
// zap's formatting/allocation/syscall cost. drainEvents, running on its
// own goroutine, picks the posted kind up and performs the actual log
// call off the audio thread.
type eventKind int32

const (
	eventNone eventKind = iota
	eventValidationFailed
	eventConnected
	eventWatchdogStall
	eventDisconnected
)

// eventPollInterval is how often drainEvents checks the mailbox. Coarser
// than a block period is fine: these are state transitions the reader
// only ever posts once per reconnectInterval (or watchdogStallBlocks)
// blocks, not a per-block signal.
const eventPollInterval = 20 * time.Millisecond

// Reader owns the consumer-side state machine. Construct with New,
// size its scratch buffers with Prepare, then call ProcessBlock once per
// audio callback. SetMute/SetBufferPreset/Close may be called from any
// goroutine; ProcessBlock must only ever be called from the single RT
// callback thread.
type Reader struct {
	cfg Config

	region *shmregion.Region
	header atomic.Pointer[protocol.Header]
	ring   atomic.Pointer[ring.Ring]

	state              atomic.Int32 // State, published last on connect / first on disconnect
	reconnectCounter   int
	blocksSinceConnect int

	scratch []float32 // interleaved read scratch, MaxBlockSize*DefaultChannels

	fade fadeState

	mute   atomic.Bool
	preset atomic.Int32 // BufferPreset, read by RT path, set by control surfaces

	underrunCount   atomic.Uint64 // read by reportLoop-style goroutines, not just RT
	overreadSkipped uint64        // RT-thread-only bookkeeping, no cross-thread reader

	// Progress watchdog: spec.md leaves "producer process dies without
	// clearing producer_active" as an open question. We resolve it by
	// tracking how many consecutive blocks observed no movement in
	// write_pos at all; past watchdogStallBlocks with producer_active
	// still set, we treat it as abnormal termination and force a
	// disconnect/reconnect cycle rather than reading a frozen ring
	// forever.
	lastWritePos        uint64
	blocksSinceProgress int

	// Event mailbox: ProcessBlock-reachable code posts a kind plus its
	// numeric detail fields (all plain atomics, no allocation); drainEvents
	// swaps the kind out and logs. A kind posted while the previous one is
	// still unread is simply overwritten — acceptable for advisory
	// telemetry, not for anything correctness-bearing.
	pendingEvent     atomic.Int32
	eventSampleRate  atomic.Uint32
	eventChannels    atomic.Uint32
	eventStallBlocks atomic.Int64

	log         atomic.Pointer[zap.Logger]
	eventCancel context.CancelFunc
}

// watchdogStallBlocks is the number of consecutive blocks with no
// write_pos movement, while producer_active remains set, that the
// reader treats as proof the producer died without clearing its flag
// (crash, kill -9, power loss on the producer's machine).
const watchdogStallBlocks = 500

// New constructs a reader in the Disconnected state and starts its
// background event-logging goroutine. Call Prepare before the first
// ProcessBlock.
func New(cfg Config) *Reader {
	r := &Reader{cfg: cfg}
	r.log.Store(zap.NewNop())
	r.preset.Store(int32(PresetLow))

	ctx, cancel := context.WithCancel(context.Background())
	r.eventCancel = cancel
	go r.drainEvents(ctx)

	return r
}

// SetLogger attaches a structured logger for state-transition events
// (connect, disconnect, watchdog trips). These are posted to an event
// mailbox by the RT callback and logged from drainEvents on its own
// goroutine — the per-block read path itself never logs.
func (r *Reader) SetLogger(log *zap.Logger) {
	if log != nil {
		r.log.Store(log)
	}
}

// drainEvents runs until ctx is cancelled (by Close), polling the event
// mailbox and logging whatever the RT thread most recently posted.
func (r *Reader) drainEvents(ctx context.Context) {
	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.flushPendingEvent()
		}
	}
}

func (r *Reader) flushPendingEvent() {
	kind := eventKind(r.pendingEvent.Swap(int32(eventNone)))
	if kind == eventNone {
		return
	}
	log := r.log.Load()
	switch kind {
	case eventValidationFailed:
		log.Warn("consumer: rejecting region, header validation failed", zap.String("region", r.cfg.Name))
	case eventConnected:
		log.Info("consumer: connected", zap.String("region", r.cfg.Name),
			zap.Uint32("sample_rate", r.eventSampleRate.Load()), zap.Uint32("channels", r.eventChannels.Load()))
	case eventWatchdogStall:
		log.Warn("consumer: watchdog forcing disconnect, write_pos stalled", zap.String("region", r.cfg.Name),
			zap.Int64("blocks_since_progress", r.eventStallBlocks.Load()))
	case eventDisconnected:
		log.Info("consumer: disconnected", zap.String("region", r.cfg.Name))
	}
}

// postEvent is RT-safe: a single atomic store, no allocation.
func (r *Reader) postEvent(kind eventKind) {
	r.pendingEvent.Store(int32(kind))
}

// Prepare allocates the RT scratch buffer sized for maxBlockSize frames
// of up to protocol.DefaultChannels channels. Not RT-safe; call once
// before streaming starts (mirrors the teacher's prepareToPlay).
func (r *Reader) Prepare(maxBlockSize int) {
	r.cfg.MaxBlockSize = maxBlockSize
	r.scratch = make([]float32, maxBlockSize*protocol.DefaultChannels)
}

// SetMute toggles the mute parameter. RT-safe via atomic store; takes
// effect on the next ProcessBlock call.
func (r *Reader) SetMute(muted bool) { r.mute.Store(muted) }

// Muted reports the current mute state.
func (r *Reader) Muted() bool { return r.mute.Load() }

// SetBufferPreset changes the target-fill/high-threshold pair used for
// fresh-position skip and drift compensation. RT-safe via atomic store.
func (r *Reader) SetBufferPreset(p BufferPreset) { r.preset.Store(int32(clampPreset(p))) }

// BufferPreset reports the active preset.
func (r *Reader) BufferPreset() BufferPreset { return BufferPreset(r.preset.Load()) }

// State reports the current connection state. Safe to call from any
// goroutine, synchronized against ProcessBlock's writer via atomic
// load/store — connect publishes header/ring before state, disconnect
// publishes state before clearing header/ring, so a Connected read
// never races a nil header.
func (r *Reader) State() State { return State(r.state.Load()) }

// SourceSampleRate and SourceChannels report the producer's declared
// geometry while connected, and zero otherwise — mirroring the teacher's
// getSourceSampleRate/getSourceChannels.
func (r *Reader) SourceSampleRate() uint32 {
	if r.State() != Connected {
		return 0
	}
	h := r.header.Load()
	if h == nil {
		return 0
	}
	return h.SampleRate()
}

func (r *Reader) SourceChannels() uint32 {
	if r.State() != Connected {
		return 0
	}
	h := r.header.Load()
	if h == nil {
		return 0
	}
	return h.Channels()
}

// UnderrunCount reports how many blocks, while connected and unmuted,
// read fewer frames from the ring than requested (including blocks that
// read none) since the reader was created. Blocks rendered while muted
// or disconnected are not counted.
func (r *Reader) UnderrunCount() uint64 { return r.underrunCount.Load() }

// ProcessBlock fills dst (frames frames of channels interleaved output)
// from the shared ring, applying mute, reconnect, drift compensation and
// fade-out exactly as spec.md §4.6 describes. Must be called only from
// the RT callback thread; never allocates, logs, or blocks on I/O.
func (r *Reader) ProcessBlock(dst []float32, frames, channels int) {
	need := frames * channels
	if need > len(dst) {
		frames = len(dst) / channels
		need = frames * channels
	}

	if r.mute.Load() {
		r.fade.clear(dst[:need], frames, channels)
		return
	}

	if r.State() != Connected {
		r.reconnectCounter++
		if r.reconnectCounter >= reconnectInterval {
			r.reconnectCounter = 0
			r.tryConnect()
		}
		if r.State() != Connected {
			r.emitFadeOrSilence(dst, frames, channels)
			return
		}
	}

	header := r.header.Load()
	if header.ProducerActive.Load() == 0 {
		r.disconnect()
		r.emitFadeOrSilence(dst, frames, channels)
		return
	}

	if r.watchdogObserveStall(header) {
		r.disconnect()
		r.emitFadeOrSilence(dst, frames, channels)
		return
	}

	r.blocksSinceConnect++

	preset := r.BufferPreset()
	targetFill := targetFillFrames(preset)
	highThreshold := highFillThreshold(preset)

	ringBuf := r.ring.Load()
	available := ringBuf.AvailableRead()
	if r.blocksSinceConnect > driftCheckWarmup && available > highThreshold {
		r.drainExcess(ringBuf, available, targetFill)
		available = ringBuf.AvailableRead()
	}

	toRead := uint32(frames)
	if available < toRead {
		toRead = available
	}

	if toRead == 0 {
		r.underrunCount.Add(1)
		r.emitFadeOrSilence(dst, frames, channels)
		return
	}

	scratchFrames := len(r.scratch) / channels
	if int(toRead) > scratchFrames {
		toRead = uint32(scratchFrames)
	}

	readCount := ringBuf.Read(r.scratch, uint32(channels), int(toRead))
	if readCount == 0 {
		r.underrunCount.Add(1)
		r.fade.clear(dst[:need], frames, channels)
		return
	}
	if readCount < frames {
		r.underrunCount.Add(1)
	}

	copy(dst[:readCount*channels], r.scratch[:readCount*channels])
	for i := readCount * channels; i < need; i++ {
		dst[i] = 0
	}

	r.fade.save(dst[:need], frames, channels)
}

// drainExcess discards frames from ringBuf until occupancy has been
// brought back down from the high threshold to the target fill, in
// scratch-sized chunks, exactly as the original's excess-skip loop does.
func (r *Reader) drainExcess(ringBuf *ring.Ring, available, targetFill uint32) {
	if available <= targetFill {
		return
	}
	excess := available - targetFill
	chunkFrames := uint32(len(r.scratch))
	channels := ringBuf.Channels()
	if channels > 0 {
		chunkFrames /= channels
	}
	if chunkFrames == 0 {
		return
	}
	for excess > 0 {
		chunk := excess
		if chunk > chunkFrames {
			chunk = chunkFrames
		}
		actual := ringBuf.Read(r.scratch, channels, int(chunk))
		if actual == 0 {
			break
		}
		if uint32(actual) > excess {
			excess = 0
		} else {
			excess -= uint32(actual)
		}
		r.overreadSkipped += uint64(actual)
	}
}

func (r *Reader) emitFadeOrSilence(dst []float32, frames, channels int) {
	need := frames * channels
	if r.fade.hadAudio {
		r.fade.apply(dst[:need], frames, channels)
		return
	}
	r.fade.clear(dst[:need], frames, channels)
}

// tryConnect attempts a single attach-and-validate cycle, exactly
// mirroring the original's tryConnect: open, validate geometry and
// version, confirm producer_active, skip to a fresh read position, then
// publish Connected. Any failure leaves the reader Disconnected.
//
// This runs on the RT callback thread on the block where the reconnect
// counter fires, inheriting the same RT-safety trade-off the original
// JUCE plugin makes: attach is a bounded syscall, not a guarantee. It
// never logs directly — failures and the eventual connect are posted to
// the event mailbox for drainEvents to report.
func (r *Reader) tryConnect() {
	r.state.Store(int32(Reconnecting))

	region, err := shmregion.Attach(r.cfg.Name)
	if err != nil {
		r.state.Store(int32(Disconnected))
		return
	}

	header := protocol.NewHeaderView(region.Base)
	if err := protocol.ValidateHeader(header, region.Size); err != nil {
		region.Close()
		r.state.Store(int32(Disconnected))
		r.postEvent(eventValidationFailed)
		return
	}
	if header.ProducerActive.Load() == 0 {
		region.Close()
		r.state.Store(int32(Disconnected))
		return
	}

	audioData := asFloat32Slice(header.AudioData())
	frames := header.BufferFrames()
	channels := header.Channels()
	if int(frames)*int(channels) != len(audioData) {
		region.Close()
		r.state.Store(int32(Disconnected))
		return
	}

	r.region = region
	newRing := ring.New(audioData, frames, channels, header.WritePos, header.ReadPos)

	// Publish header and ring before state, so any goroutine that observes
	// state == Connected is guaranteed to see a non-nil header/ring.
	r.header.Store(header)
	r.ring.Store(newRing)
	r.blocksSinceConnect = 0
	r.lastWritePos = header.WritePos.Load()
	r.blocksSinceProgress = 0
	r.state.Store(int32(Connected))

	r.eventSampleRate.Store(header.SampleRate())
	r.eventChannels.Store(channels)
	r.postEvent(eventConnected)

	r.skipToFreshPosition(newRing)
}

// skipToFreshPosition advances the read position close to the write
// position immediately on connect, so playback starts with minimal
// latency instead of draining a backlog that accumulated before this
// reader attached.
func (r *Reader) skipToFreshPosition(ringBuf *ring.Ring) {
	targetFill := targetFillFrames(r.BufferPreset())
	available := ringBuf.AvailableRead()
	if available <= targetFill || len(r.scratch) == 0 {
		return
	}
	skip := available - targetFill
	channels := ringBuf.Channels()
	chunkFrames := uint32(len(r.scratch))
	if channels > 0 {
		chunkFrames /= channels
	}
	if chunkFrames == 0 {
		return
	}
	for skip > 0 {
		chunk := skip
		if chunk > chunkFrames {
			chunk = chunkFrames
		}
		actual := ringBuf.Read(r.scratch, channels, int(chunk))
		if actual == 0 {
			break
		}
		if uint32(actual) > skip {
			skip = 0
		} else {
			skip -= uint32(actual)
		}
	}
}

// watchdogObserveStall reports whether write_pos has failed to move for
// watchdogStallBlocks consecutive blocks despite producer_active still
// being set — the supplemented resolution to spec.md's open question
// about a producer that dies without clearing its flag. header is the
// value ProcessBlock already loaded this call, avoiding a second atomic
// load for the same connection.
func (r *Reader) watchdogObserveStall(header *protocol.Header) bool {
	current := header.WritePos.Load()
	if current != r.lastWritePos {
		r.lastWritePos = current
		r.blocksSinceProgress = 0
		return false
	}
	r.blocksSinceProgress++
	stalled := r.blocksSinceProgress >= watchdogStallBlocks
	if stalled {
		r.eventStallBlocks.Store(int64(r.blocksSinceProgress))
		r.postEvent(eventWatchdogStall)
	}
	return stalled
}

// disconnect releases the current region and returns to Disconnected.
// Safe to call when already disconnected.
func (r *Reader) disconnect() {
	if r.State() != Disconnected {
		r.postEvent(eventDisconnected)
	}
	// Publish Disconnected before clearing header/ring, mirroring
	// tryConnect's publish order so no goroutine can observe Disconnected
	// alongside a header left over from this connection, nor Connected
	// alongside a cleared one.
	r.state.Store(int32(Disconnected))
	if r.region != nil {
		r.region.Close()
		r.region = nil
	}
	r.header.Store(nil)
	r.ring.Store(nil)
}

// Close tears down any attached region and stops the background event
// logger. Call once the RT callback has been stopped.
func (r *Reader) Close() error {
	if r.eventCancel != nil {
		r.eventCancel()
	}
	if r.region == nil {
		return nil
	}
	err := r.region.Close()
	r.region = nil
	r.header.Store(nil)
	r.ring.Store(nil)
	r.state.Store(int32(Disconnected))
	return err
}
