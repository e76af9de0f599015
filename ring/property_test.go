package ring

import (
	"sync/atomic"
	"testing"

	"pgregory.net/rapid"
)

// TestRingInvariantsProperty drives a single ring through a random
// sequence of write/read calls of random sizes and checks, after every
// call, the occupancy bound and the write/read accounting invariants
// from the specification's testable-properties section: write(N) never
// exceeds min(N, available_write()), and available_read/available_write
// move by exactly the amount actually transferred.
func TestRingInvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frames := uint32(1) << rapid.IntRange(2, 10).Draw(t, "log2frames")
		var wp, rp atomic.Uint64
		data := make([]float32, frames)
		r := New(data, frames, 1, &wp, &rp)

		ops := rapid.SliceOfN(rapid.IntRange(-32, 32), 1, 200).Draw(t, "ops")
		for _, op := range ops {
			beforeRead := r.AvailableRead()
			beforeWrite := r.AvailableWrite()

			if beforeRead+beforeWrite != frames {
				t.Fatalf("occupancy bound broken: read=%d write=%d frames=%d", beforeRead, beforeWrite, frames)
			}

			if op >= 0 {
				n := op
				src := make([]float32, n)
				written := r.Write(src, 1, n)
				if written > n {
					t.Fatalf("write returned %d > requested %d", written, n)
				}
				if uint32(written) > beforeWrite {
					t.Fatalf("write returned %d > available_write %d", written, beforeWrite)
				}
				if r.AvailableWrite() != beforeWrite-uint32(written) {
					t.Fatalf("available_write did not decrease by written amount")
				}
				if r.AvailableRead() != beforeRead+uint32(written) {
					t.Fatalf("available_read did not increase by written amount")
				}
			} else {
				n := -op
				dst := make([]float32, n)
				read := r.Read(dst, 1, n)
				if read > n {
					t.Fatalf("read returned %d > requested %d", read, n)
				}
				if uint32(read) > beforeRead {
					t.Fatalf("read returned %d > available_read %d", read, beforeRead)
				}
				if r.AvailableRead() != beforeRead-uint32(read) {
					t.Fatalf("available_read did not decrease by read amount")
				}
				if r.AvailableWrite() != beforeWrite+uint32(read) {
					t.Fatalf("available_write did not increase by read amount")
				}
			}
		}
	})
}

// TestRingFullAndEmptyBoundaries checks the saturation edge cases: a full
// buffer rejects any further write, and an empty buffer yields no data.
func TestRingFullAndEmptyBoundaries(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frames := uint32(1) << rapid.IntRange(2, 8).Draw(t, "log2frames")
		var wp, rp atomic.Uint64
		data := make([]float32, frames)
		r := New(data, frames, 1, &wp, &rp)

		filled := r.Write(make([]float32, frames), 1, int(frames))
		if uint32(filled) != frames {
			t.Fatalf("expected to fill entire ring, got %d of %d", filled, frames)
		}
		extra := rapid.IntRange(1, 64).Draw(t, "extra")
		if n := r.Write(make([]float32, extra), 1, extra); n != 0 {
			t.Fatalf("write on full buffer returned %d, want 0", n)
		}

		drained := r.Read(make([]float32, frames), 1, int(frames))
		if uint32(drained) != frames {
			t.Fatalf("expected to drain entire ring, got %d of %d", drained, frames)
		}
		more := rapid.IntRange(1, 64).Draw(t, "more")
		if n := r.Read(make([]float32, more), 1, more); n != 0 {
			t.Fatalf("read on empty buffer returned %d, want 0", n)
		}
	})
}

// TestRingRoundTripAndSequencePreserved feeds a monotonically increasing
// sample stream through random-sized write/read bursts and checks both
// that bytes round-trip unchanged and that no frame is ever seen twice or
// skipped (strict index order).
func TestRingRoundTripAndSequencePreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frames := uint32(1) << rapid.IntRange(3, 9).Draw(t, "log2frames")
		var wp, rp atomic.Uint64
		data := make([]float32, frames)
		r := New(data, frames, 1, &wp, &rp)

		next := float32(0)
		var consumed []float32
		bursts := rapid.IntRange(5, 60).Draw(t, "bursts")
		for i := 0; i < bursts; i++ {
			wn := rapid.IntRange(0, int(frames)).Draw(t, "wn")
			src := make([]float32, wn)
			for j := range src {
				src[j] = next
				next++
			}
			written := r.Write(src, 1, wn)
			// Frames that did not fit are simply not produced — the
			// caller owns retry/drop policy, not the ring.
			next -= float32(wn - written)

			rn := rapid.IntRange(0, int(frames)).Draw(t, "rn")
			dst := make([]float32, rn)
			read := r.Read(dst, 1, rn)
			consumed = append(consumed, dst[:read]...)
		}
		for {
			dst := make([]float32, frames)
			read := r.Read(dst, 1, int(frames))
			if read == 0 {
				break
			}
			consumed = append(consumed, dst[:read]...)
		}

		for i := 1; i < len(consumed); i++ {
			if consumed[i] != consumed[i-1]+1 {
				t.Fatalf("sequence broken at %d: %v then %v", i, consumed[i-1], consumed[i])
			}
		}
	})
}
