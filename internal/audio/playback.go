package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/livetrack/directpipe/consumer"
)

// Playback drives an output device from a consumer.Reader, interleaving
// ProcessBlock's output into the single buffer PortAudio's callback
// expects.
type Playback struct {
	reader   *consumer.Reader
	channels int
	stream   *portaudio.Stream
	scratch  []float32
}

// NewPlayback opens the given output device at sampleRate with channels
// output channels, pulling from r on every callback.
func NewPlayback(r *consumer.Reader, device *portaudio.DeviceInfo, sampleRate float64, channels, framesPerBuffer int) (*Playback, error) {
	p := &Playback{
		reader:   r,
		channels: channels,
		scratch:  make([]float32, framesPerBuffer*channels),
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, p.callback)
	if err != nil {
		return nil, fmt.Errorf("audio: open playback stream: %w", err)
	}
	p.stream = stream
	return p, nil
}

func (p *Playback) callback(out []float32) {
	frames := len(out) / p.channels
	// scratch was sized for framesPerBuffer*channels at open time; clamp
	// rather than reallocate on the RT thread if PortAudio ever asked for
	// more than that.
	if maxFrames := len(p.scratch) / p.channels; frames > maxFrames {
		frames = maxFrames
	}
	dst := p.scratch[:frames*p.channels]
	p.reader.ProcessBlock(dst, frames, p.channels)
	copy(out[:frames*p.channels], dst)
	for i := frames * p.channels; i < len(out); i++ {
		out[i] = 0
	}
}

// Start begins streaming.
func (p *Playback) Start() error { return p.stream.Start() }

// Stop halts streaming and closes the device.
func (p *Playback) Stop() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return err
	}
	return p.stream.Close()
}
