package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMSOfSilenceIsZero(t *testing.T) {
	assert.Equal(t, 0.0, RMS(make([]float32, 64)))
}

func TestAnalyzeReportsPeakAndSilenceRatio(t *testing.T) {
	samples := []float32{0, 0, 0.5, -1.0, 0, 0}
	stats := Analyze(samples, 0.01)
	assert.Equal(t, float32(1.0), stats.Peak)
	assert.Equal(t, 4, stats.SilentFrames)
	assert.InDelta(t, 4.0/6.0, stats.SilenceRatio, 1e-9)
}

func TestIsSilentTrueForQuietBlock(t *testing.T) {
	samples := make([]float32, 128)
	assert.True(t, IsSilent(samples, 0.02, 0.9))
}

func TestIsSilentFalseForLoudBlock(t *testing.T) {
	samples := make([]float32, 128)
	for i := range samples {
		samples[i] = 0.8
	}
	assert.False(t, IsSilent(samples, 0.02, 0.9))
}
