package wav

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordThenReplayRoundTripsSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")

	rec, err := NewRecorder(path, 48000, 2)
	require.NoError(t, err)

	block := []float32{0.5, -0.5, 0.25, -0.25, 0, 0}
	require.NoError(t, rec.WriteBlock(block))
	require.NoError(t, rec.Close())

	player, err := OpenReplay(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), player.SampleRate())
	assert.Equal(t, 2, player.Channels())

	planar := [][]float32{make([]float32, 4), make([]float32, 4)}
	n := player.NextBlock(planar, 4)
	assert.Equal(t, 3, n)
	assert.InDelta(t, 0.5, planar[0][0], 0.01)
	assert.InDelta(t, -0.5, planar[1][0], 0.01)
	assert.True(t, player.Done())
}

func TestNextBlockReturnsZeroAtEndOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")

	rec, err := NewRecorder(path, 48000, 1)
	require.NoError(t, err)
	require.NoError(t, rec.WriteBlock([]float32{0.1, 0.2}))
	require.NoError(t, rec.Close())

	player, err := OpenReplay(path)
	require.NoError(t, err)

	planar := [][]float32{make([]float32, 2)}
	assert.Equal(t, 2, player.NextBlock(planar, 2))
	assert.Equal(t, 0, player.NextBlock(planar, 2))
}
