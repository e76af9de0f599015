package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/livetrack/directpipe/producer"
)

// Capture drives a producer.Writer from a real input device, de-
// interleaving PortAudio's callback buffer into the planar form
// WriteBlock expects.
type Capture struct {
	writer   *producer.Writer
	channels int
	stream   *portaudio.Stream
	planar   [][]float32
}

// NewCapture opens the given (or best-guess) input device at sampleRate
// with channels input channels, feeding w on every callback.
func NewCapture(w *producer.Writer, device *portaudio.DeviceInfo, sampleRate float64, channels, framesPerBuffer int) (*Capture, error) {
	c := &Capture{writer: w, channels: channels}
	c.planar = make([][]float32, channels)
	for i := range c.planar {
		c.planar[i] = make([]float32, framesPerBuffer)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, c.callback)
	if err != nil {
		return nil, fmt.Errorf("audio: open capture stream: %w", err)
	}
	c.stream = stream
	return c, nil
}

func (c *Capture) callback(in []float32) {
	frames := len(in) / c.channels
	// planar was sized for framesPerBuffer at open time; PortAudio never
	// hands back more than that, but clamp rather than reallocate on the
	// RT thread if it ever did.
	if maxFrames := len(c.planar[0]); frames > maxFrames {
		frames = maxFrames
	}
	for ch := 0; ch < c.channels; ch++ {
		dst := c.planar[ch]
		for i := 0; i < frames; i++ {
			dst[i] = in[i*c.channels+ch]
		}
	}
	c.writer.WriteBlock(c.planar, frames)
}

// Start begins streaming.
func (c *Capture) Start() error { return c.stream.Start() }

// Stop halts streaming and closes the device.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return err
	}
	return c.stream.Close()
}
