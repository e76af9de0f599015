package consumer

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/livetrack/directpipe/producer"
	"github.com/livetrack/directpipe/protocol"
	"github.com/livetrack/directpipe/shmregion"
)

func uniqueName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("consumer-test-%s", uuid.NewString())
}

func newPair(t *testing.T, bufferFrames uint32) (*producer.Writer, *Reader) {
	t.Helper()
	name := uniqueName(t)

	pcfg := producer.DefaultConfig(48000)
	pcfg.Name = name
	pcfg.BufferFrames = bufferFrames
	pcfg.MaxBlockSize = 256
	w, err := producer.Start(pcfg)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	r := New(Config{Name: name, MaxBlockSize: 256})
	r.Prepare(256)
	t.Cleanup(func() { r.Close() })

	return w, r
}

func connect(t *testing.T, r *Reader) {
	t.Helper()
	r.tryConnect()
	require.Equal(t, Connected, r.State())
}

func TestReaderAttachesAndReadsSteadyState(t *testing.T) {
	w, r := newPair(t, 2048)
	connect(t, r)

	left := make([]float32, 128)
	right := make([]float32, 128)
	for i := range left {
		left[i] = float32(i)
		right[i] = -float32(i)
	}
	n := w.WriteBlock([][]float32{left, right}, 128)
	require.Equal(t, 128, n)

	dst := make([]float32, 128*2)
	r.ProcessBlock(dst, 128, 2)
	require.Equal(t, float32(0), dst[0])
	require.Equal(t, float32(1), dst[2])
	require.Equal(t, float32(127), dst[127*2])
}

func TestReaderBeforeConnectEmitsSilence(t *testing.T) {
	_, r := newPair(t, 2048)

	dst := make([]float32, 64*2)
	for i := range dst {
		dst[i] = 999
	}
	r.ProcessBlock(dst, 64, 2)
	for _, v := range dst {
		require.Equal(t, float32(0), v)
	}
	require.Equal(t, Disconnected, r.State())
}

func TestReaderReconnectsEveryKBlocks(t *testing.T) {
	_, r := newPair(t, 2048)

	dst := make([]float32, 64*2)
	for i := 0; i < reconnectInterval-1; i++ {
		r.ProcessBlock(dst, 64, 2)
		require.Equal(t, Disconnected, r.State())
	}
	// The Kth block attempts a connect; with no producer reachable yet
	// under a fresh name it would stay Disconnected, but here the
	// producer from newPair is already running so it succeeds.
	r.ProcessBlock(dst, 64, 2)
	require.Equal(t, Connected, r.State())
}

func TestReaderUnderrunZeroFillsAndCountsOnce(t *testing.T) {
	w, r := newPair(t, 2048)
	connect(t, r)
	_ = w

	dst := make([]float32, 128*2)
	for i := range dst {
		dst[i] = 999
	}
	r.ProcessBlock(dst, 128, 2)
	for _, v := range dst {
		require.Equal(t, float32(0), v)
	}
	require.EqualValues(t, 1, r.UnderrunCount())
}

func TestReaderFadesOutOnDisconnectThenZeroes(t *testing.T) {
	w, r := newPair(t, 2048)
	connect(t, r)

	block := make([]float32, 64)
	for i := range block {
		block[i] = 1.0
	}
	w.WriteBlock([][]float32{block, block}, 64)

	dst := make([]float32, 64*2)
	r.ProcessBlock(dst, 64, 2)
	require.Equal(t, float32(1.0), dst[0])

	require.NoError(t, w.Stop())

	dst2 := make([]float32, 64*2)
	r.ProcessBlock(dst2, 64, 2)
	require.Equal(t, Disconnected, r.State())
	require.Greater(t, dst2[0], float32(0))
	require.Less(t, dst2[63*2], dst2[0])
}

func TestReaderMuteForcesSilenceAndClearsFade(t *testing.T) {
	w, r := newPair(t, 2048)
	connect(t, r)

	block := make([]float32, 64)
	for i := range block {
		block[i] = 1.0
	}
	w.WriteBlock([][]float32{block, block}, 64)

	dst := make([]float32, 64*2)
	r.ProcessBlock(dst, 64, 2)

	r.SetMute(true)
	dst2 := make([]float32, 64*2)
	r.ProcessBlock(dst2, 64, 2)
	for _, v := range dst2 {
		require.Equal(t, float32(0), v)
	}
}

func TestReaderDriftCompensationDiscardsExcessAfterWarmup(t *testing.T) {
	w, r := newPair(t, 8192)
	r.SetBufferPreset(PresetUltraLow) // target 256, high 768
	connect(t, r)

	// Build a backlog well above the high threshold before draining it,
	// simulating a producer running faster than this consumer.
	// newPair sizes the producer for 256-frame blocks, so the 4096-frame
	// backlog goes in as sixteen blocks.
	block := make([]float32, 256)
	for i := 0; i < 16; i++ {
		n := w.WriteBlock([][]float32{block, block}, 256)
		require.Equal(t, 256, n)
	}
	require.Greater(t, r.ring.Load().AvailableRead(), uint32(768))

	// Drain a few frames per block — well under the backlog — so the
	// warmup counter advances without the ordinary read path alone
	// bringing occupancy back under the threshold.
	dst := make([]float32, 8*2)
	for i := 0; i <= driftCheckWarmup; i++ {
		r.ProcessBlock(dst, 8, 2)
	}

	require.Less(t, r.ring.Load().AvailableRead(), uint32(768))
}

func TestReaderRejectsVersionMismatch(t *testing.T) {
	name := uniqueName(t)

	region, err := shmregion.Create(name, protocol.CalculateRegionBytes(1024, 2))
	require.NoError(t, err)
	defer region.Close()

	header := protocol.NewHeaderView(region.Base)
	header.Zero()
	header.SetSampleRate(48000)
	header.SetChannels(2)
	header.SetBufferFrames(1024)
	header.SetVersion(protocol.CurrentVersion + 1) // simulate an incompatible producer
	header.ProducerActive.Store(1)

	r := New(Config{Name: name, MaxBlockSize: 256})
	r.Prepare(256)
	defer r.Close()

	r.tryConnect()
	require.Equal(t, Disconnected, r.State())
}

func TestWatchdogDisconnectsOnStalledProducerWithoutFlagClear(t *testing.T) {
	w, r := newPair(t, 2048)
	connect(t, r)

	block := make([]float32, 64)
	w.WriteBlock([][]float32{block, block}, 64)

	dst := make([]float32, 64*2)
	r.ProcessBlock(dst, 64, 2) // drains the one block, advances write_pos once

	// producer_active stays 1 (simulating a crash that never cleared it)
	// but write_pos never advances again.
	for i := 0; i < watchdogStallBlocks; i++ {
		r.ProcessBlock(dst, 64, 2)
	}

	require.Equal(t, Disconnected, r.State())
}
