// Package diagnostics computes non-RT audio statistics over blocks
// pulled off the ring, adapted from the teacher's int16 PCM stats
// helpers to the float32 samples DirectPipe's ring carries.
package diagnostics

import "math"

// Stats summarizes one analyzed block of interleaved float32 audio.
type Stats struct {
	RMS          float64
	Peak         float32
	SilentFrames int
	TotalFrames  int
	SilenceRatio float64
}

// RMS computes the root-mean-square level of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Analyze computes RMS, peak, and silence ratio over samples, treating
// any sample with absolute value at or below silenceThreshold as
// silent.
func Analyze(samples []float32, silenceThreshold float32) Stats {
	stats := Stats{TotalFrames: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	var sum float64
	var peak float32
	silent := 0

	for _, s := range samples {
		v := float64(s)
		sum += v * v

		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
		if abs <= silenceThreshold {
			silent++
		}
	}

	stats.RMS = math.Sqrt(sum / float64(len(samples)))
	stats.Peak = peak
	stats.SilentFrames = silent
	stats.SilenceRatio = float64(silent) / float64(len(samples))
	return stats
}

// IsSilent reports whether samples should be treated as silence,
// combining an RMS floor with a minimum fraction of near-zero samples
// so a single loud transient in an otherwise quiet block doesn't flip
// the verdict.
func IsSilent(samples []float32, rmsThreshold float64, silenceRatioThreshold float64) bool {
	if len(samples) == 0 {
		return true
	}
	if RMS(samples) < rmsThreshold {
		return true
	}
	stats := Analyze(samples, float32(rmsThreshold*0.5))
	return stats.SilenceRatio > silenceRatioThreshold
}
