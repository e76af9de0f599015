package consumer

// fadeStep is the per-sample gain decrement applied during fade-out,
// chosen so a full-scale block fades to silence in ~20 samples.
const fadeStep = 0.05

// maxFadeSamples sizes the held-sample array: one held value per
// channel, so at most maxFadeSamples channels are held. Only the last
// frame of a block is kept; earlier samples of its tail are not retained.
const maxFadeSamples = 64

// fadeState tracks the "held last sample, decaying gain" fade-out used
// whenever the reader has nothing to output this block but did output
// real audio last block — avoiding the click of dropping straight to
// silence.
type fadeState struct {
	hadAudio    bool
	fadeGain    float32
	lastSamples [maxFadeSamples]float32 // last output sample of each channel, indexed by channel
	lastChannels int
	lastCount    int
}

// save records the last frame of a just-produced block of channels
// interleaved output, one held sample per channel, for use as the held
// value if the next block(s) under-run. Earlier frames of the block are
// not kept.
func (f *fadeState) save(block []float32, frames, channels int) {
	if channels > len(f.lastSamples) {
		channels = len(f.lastSamples)
	}
	n := frames
	if n > maxFadeSamples {
		n = maxFadeSamples
	}
	if n <= 0 {
		f.lastCount = 0
		f.lastChannels = 0
		return
	}
	lastFrameOff := (frames - 1) * channels
	for ch := 0; ch < channels; ch++ {
		f.lastSamples[ch] = block[lastFrameOff+ch]
	}
	f.lastChannels = channels
	f.lastCount = n
	f.hadAudio = true
	f.fadeGain = 1.0
}

// apply fills dst (frames * channels interleaved) with a decaying copy of
// the held last sample, per channel, advancing fadeGain by fadeStep per
// sample across the whole block exactly as the original processor does.
// Returns false (and clears hadAudio) once the ramp has fully decayed,
// signalling the caller should clear to silence instead on subsequent
// blocks.
func (f *fadeState) apply(dst []float32, frames, channels int) bool {
	if !f.hadAudio || f.fadeGain <= 0 || f.lastCount == 0 {
		f.hadAudio = false
		for i := range dst[:frames*channels] {
			dst[i] = 0
		}
		return false
	}

	for ch := 0; ch < channels; ch++ {
		var held float32
		if ch < f.lastChannels {
			held = f.lastSamples[ch]
		}
		gain := f.fadeGain
		for i := 0; i < frames; i++ {
			idx := i*channels + ch
			if gain <= 0 {
				dst[idx] = 0
				continue
			}
			dst[idx] = held * gain
			gain -= fadeStep
			if gain < 0 {
				gain = 0
			}
		}
	}

	f.fadeGain -= fadeStep * float32(frames)
	if f.fadeGain <= 0 {
		f.fadeGain = 0
		f.hadAudio = false
	}
	return true
}

// clear is invoked whenever muted or genuinely silent with no held
// sample to fade from.
func (f *fadeState) clear(dst []float32, frames, channels int) {
	for i := range dst[:frames*channels] {
		dst[i] = 0
	}
	f.hadAudio = false
}
