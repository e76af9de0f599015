// Package wav provides diagnostic capture of ring audio to a .wav file
// and replay of a .wav file as a simulated producer, built on the
// teacher's go-audio stack. Neither path runs on the RT hot path: both
// operate off blocks already delivered through ProcessBlock/WriteBlock.
package wav

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder appends interleaved float32 blocks to a 16-bit PCM .wav
// file, the non-RT analogue of the ring's producer side.
type Recorder struct {
	file       *os.File
	enc        *wav.Encoder
	channels   int
	sampleRate uint32
}

// NewRecorder creates path and opens it for 16-bit PCM WAV encoding.
func NewRecorder(path string, sampleRate uint32, channels int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: create %s: %w", path, err)
	}
	enc := wav.NewEncoder(f, int(sampleRate), 16, channels, 1)
	return &Recorder{file: f, enc: enc, channels: channels, sampleRate: sampleRate}, nil
}

// WriteBlock appends one interleaved float32 block, clamping to the
// 16-bit PCM range.
func (r *Recorder) WriteBlock(samples []float32) error {
	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = int(clampInt16(s))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: r.channels, SampleRate: int(r.sampleRate)},
		Data:           ints,
		SourceBitDepth: 16,
	}
	return r.enc.Write(buf)
}

// Close finalizes the WAV header and closes the underlying file.
func (r *Recorder) Close() error {
	if err := r.enc.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

func clampInt16(s float32) int16 {
	v := s * 32767
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
