package wav

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/livetrack/directpipe/producer"
)

// Player reads an entire WAV file into memory and replays it block by
// block, standing in for a live capture device in tests or demos.
type Player struct {
	data       []int
	channels   int
	sampleRate uint32
	pos        int
}

// OpenReplay decodes path fully into memory.
func OpenReplay(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wav: %s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: decode %s: %w", path, err)
	}

	return &Player{
		data:       buf.Data,
		channels:   buf.Format.NumChannels,
		sampleRate: uint32(buf.Format.SampleRate),
	}, nil
}

// SampleRate returns the file's sample rate.
func (p *Player) SampleRate() uint32 { return p.sampleRate }

// Channels returns the file's channel count.
func (p *Player) Channels() int { return p.channels }

// Done reports whether the whole file has been delivered.
func (p *Player) Done() bool { return p.pos >= len(p.data) }

// NextBlock fills planar (one slice per channel, each of length
// frames) from the next frames of the file, returning the number of
// frames actually produced (less than frames at end of file).
func (p *Player) NextBlock(planar [][]float32, frames int) int {
	n := 0
	for n < frames && p.pos < len(p.data) {
		for ch := 0; ch < p.channels && ch < len(planar); ch++ {
			planar[ch][n] = float32(p.data[p.pos+ch]) / 32768.0
		}
		p.pos += p.channels
		n++
	}
	return n
}

// Run paces delivery of the file into w at its native sample rate,
// blockFrames at a time, until the file is exhausted or ctx is
// cancelled. Mirrors kernelconsumer's ticker-driven loop shape since
// both are user-mode stand-ins for a hardware timer source.
func Run(ctx context.Context, p *Player, w *producer.Writer, blockFrames int) {
	planar := make([][]float32, p.channels)
	for ch := range planar {
		planar[ch] = make([]float32, blockFrames)
	}

	interval := time.Duration(blockFrames) * time.Second / time.Duration(p.sampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := p.NextBlock(planar, blockFrames)
			if n == 0 {
				return
			}
			w.WriteBlock(planar, n)
		}
	}
}
