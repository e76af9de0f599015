package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAudioNoOpWhileNotConfigured(t *testing.T) {
	b := New()
	left := []float32{1, 2, 3}
	right := []float32{4, 5, 6}

	n := b.WriteAudio([][]float32{left, right}, 3)
	assert.Equal(t, 0, n)
	assert.Equal(t, NotConfigured, b.Status())
}

func TestAboutToStartActivatesOnMatchingSampleRate(t *testing.T) {
	b := New()
	b.Configure(48000)
	b.AboutToStart(48000)
	require.Equal(t, Active, b.Status())

	left := []float32{1, 2, 3, 4}
	right := []float32{-1, -2, -3, -4}
	n := b.WriteAudio([][]float32{left, right}, 4)
	require.Equal(t, 4, n)

	outL := make([]float32, 4)
	outR := make([]float32, 4)
	read := b.Read([][]float32{outL, outR}, 4)
	require.Equal(t, 4, read)
	assert.Equal(t, left, outL)
	assert.Equal(t, right, outR)
}

func TestAboutToStartMismatchSetsStatusAndBlocksWrites(t *testing.T) {
	b := New()
	b.Configure(48000)
	b.AboutToStart(44100)
	require.Equal(t, SampleRateMismatch, b.Status())

	n := b.WriteAudio([][]float32{{1, 2}, {3, 4}}, 2)
	assert.Equal(t, 0, n)
}

func TestReadWhileNotActiveProducesSilence(t *testing.T) {
	b := New()
	outL := make([]float32, 4)
	outR := make([]float32, 4)
	for i := range outL {
		outL[i] = 999
		outR[i] = 999
	}
	read := b.Read([][]float32{outL, outR}, 4)
	assert.Equal(t, 0, read)
	for i := range outL {
		assert.Equal(t, float32(0), outL[i])
		assert.Equal(t, float32(0), outR[i])
	}
}

func TestReadUnderrunPadsTailWithSilence(t *testing.T) {
	b := New()
	b.Configure(48000)
	b.AboutToStart(48000)

	b.WriteAudio([][]float32{{1, 2}, {1, 2}}, 2)

	outL := make([]float32, 4)
	outR := make([]float32, 4)
	for i := range outL {
		outL[i] = 999
		outR[i] = 999
	}
	read := b.Read([][]float32{outL, outR}, 4)
	require.Equal(t, 2, read)
	assert.Equal(t, []float32{1, 2, 0, 0}, outL)
	assert.Equal(t, []float32{1, 2, 0, 0}, outR)
}

func TestWriteAudioOverflowCountsDroppedFrames(t *testing.T) {
	b := New()
	b.Configure(48000)
	b.AboutToStart(48000)

	big := make([]float32, monitorRingFrames)
	n := b.WriteAudio([][]float32{big, big}, monitorRingFrames)
	require.Equal(t, monitorRingFrames, n)

	overflow := make([]float32, 10)
	n2 := b.WriteAudio([][]float32{overflow, overflow}, 10)
	assert.Equal(t, 0, n2)
	assert.EqualValues(t, 10, b.DroppedFrames())
}

func TestShutdownReturnsToNotConfigured(t *testing.T) {
	b := New()
	b.Configure(48000)
	b.AboutToStart(48000)
	require.Equal(t, Active, b.Status())

	b.Shutdown()
	assert.Equal(t, NotConfigured, b.Status())
	n := b.WriteAudio([][]float32{{1}, {1}}, 1)
	assert.Equal(t, 0, n)
}
