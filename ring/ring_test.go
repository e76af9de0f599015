package ring

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRing(t *testing.T, frames, channels uint32) (*Ring, *atomic.Uint64, *atomic.Uint64) {
	t.Helper()
	var wp, rp atomic.Uint64
	data := make([]float32, frames*channels)
	return New(data, frames, channels, &wp, &rp), &wp, &rp
}

func TestWriteReadRoundTrip(t *testing.T) {
	r, _, _ := newTestRing(t, 64, 2)

	src := make([]float32, 20*2)
	for i := range src {
		src[i] = float32(i)
	}

	n := r.Write(src, 2, 20)
	require.Equal(t, 20, n)
	assert.EqualValues(t, 20, r.AvailableRead())
	assert.EqualValues(t, 44, r.AvailableWrite())

	dst := make([]float32, 20*2)
	n = r.Read(dst, 2, 20)
	require.Equal(t, 20, n)
	assert.Equal(t, src, dst)
	assert.EqualValues(t, 0, r.AvailableRead())
}

func TestWriteWrapsAcrossBoundary(t *testing.T) {
	r, _, _ := newTestRing(t, 8, 1)

	first := []float32{1, 2, 3, 4, 5, 6}
	require.Equal(t, 6, r.Write(first, 1, 6))
	dst := make([]float32, 6)
	require.Equal(t, 6, r.Read(dst, 1, 6))
	assert.Equal(t, first, dst)

	// write_pos/read_pos are now at 6; the next write of 5 frames must
	// straddle the wrap point at index 8.
	second := []float32{7, 8, 9, 10, 11}
	require.Equal(t, 5, r.Write(second, 1, 5))
	require.EqualValues(t, 5, r.AvailableRead())

	dst2 := make([]float32, 5)
	n := r.Read(dst2, 1, 5)
	require.Equal(t, 5, n)
	assert.Equal(t, second, dst2)
}

func TestWriteFullBufferRejectsOverflow(t *testing.T) {
	r, _, _ := newTestRing(t, 8, 1)
	src := make([]float32, 8)
	require.Equal(t, 8, r.Write(src, 1, 8))

	more := []float32{99}
	n := r.Write(more, 1, 1)
	assert.Zero(t, n)
	assert.EqualValues(t, 0, r.AvailableWrite())
}

func TestReadEmptyBufferReturnsZero(t *testing.T) {
	r, _, _ := newTestRing(t, 8, 1)
	dst := make([]float32, 4)
	n := r.Read(dst, 1, 4)
	assert.Zero(t, n)
}

func TestWriteMonoToStereoDuplication(t *testing.T) {
	r, _, _ := newTestRing(t, 8, 2)
	mono := []float32{1, 2, 3}
	n := r.Write(mono, 1, 3)
	require.Equal(t, 3, n)

	dst := make([]float32, 3*2)
	n = r.Read(dst, 2, 3)
	require.Equal(t, 3, n)
	assert.Equal(t, []float32{1, 1, 2, 2, 3, 3}, dst)
}

func TestReadNarrowerRingIntoWiderDestination(t *testing.T) {
	r, _, _ := newTestRing(t, 8, 1)
	mono := []float32{5, 6, 7}
	require.Equal(t, 3, r.Write(mono, 1, 3))

	dst := make([]float32, 3*2)
	n := r.Read(dst, 2, 3)
	require.Equal(t, 3, n)
	assert.Equal(t, []float32{5, 5, 6, 6, 7, 7}, dst)
}

func TestPartialWriteWhenNearlyFull(t *testing.T) {
	r, _, _ := newTestRing(t, 8, 1)
	require.Equal(t, 6, r.Write(make([]float32, 6), 1, 6))

	n := r.Write(make([]float32, 6), 1, 6)
	assert.Equal(t, 2, n, "only 2 frames of free space remain")
}

func TestPartialReadWhenUnderrun(t *testing.T) {
	r, _, _ := newTestRing(t, 8, 1)
	require.Equal(t, 3, r.Write([]float32{1, 2, 3}, 1, 3))

	dst := make([]float32, 6)
	n := r.Read(dst, 1, 6)
	assert.Equal(t, 3, n)
}

func TestSequenceOrderPreserved(t *testing.T) {
	r, _, _ := newTestRing(t, 16, 1)

	var produced, consumed []float32
	next := float32(0)
	for block := 0; block < 50; block++ {
		src := []float32{next, next + 1, next + 2}
		next += 3
		w := r.Write(src, 1, len(src))
		produced = append(produced, src[:w]...)

		dst := make([]float32, 5)
		rd := r.Read(dst, 1, len(dst))
		consumed = append(consumed, dst[:rd]...)
	}
	// Drain remainder.
	for {
		dst := make([]float32, 4)
		rd := r.Read(dst, 1, len(dst))
		if rd == 0 {
			break
		}
		consumed = append(consumed, dst[:rd]...)
	}

	require.Equal(t, len(produced), len(consumed))
	for i := range produced {
		assert.Equal(t, produced[i], consumed[i], "frame %d out of order", i)
	}
}
