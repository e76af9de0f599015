package consumer

// BufferPreset names a target-fill / high-threshold pair the reader uses
// to trade latency for drift-compensation headroom. Index matches the
// host-facing selector (config, telemetry, file/stdin control) exposed by
// SetBufferPreset.
type BufferPreset int

const (
	PresetUltraLow BufferPreset = iota
	PresetLow                   // default
	PresetMedium
	PresetHigh
	PresetSafe

	numBufferPresets = 5
)

// String returns the human label used in config files and telemetry.
func (p BufferPreset) String() string {
	switch p {
	case PresetUltraLow:
		return "Ultra Low (256)"
	case PresetLow:
		return "Low (512)"
	case PresetMedium:
		return "Medium (1024)"
	case PresetHigh:
		return "High (2048)"
	case PresetSafe:
		return "Safe (4096)"
	default:
		return "Low (512)"
	}
}

// bufferPresets holds {targetFill, highThreshold} in frames, indexed by
// BufferPreset.
var bufferPresets = [numBufferPresets][2]uint32{
	{256, 768},
	{512, 1536},
	{1024, 3072},
	{2048, 6144},
	{4096, 12288},
}

func clampPreset(p BufferPreset) BufferPreset {
	if p < PresetUltraLow {
		return PresetUltraLow
	}
	if p > PresetSafe {
		return PresetSafe
	}
	return p
}

func targetFillFrames(p BufferPreset) uint32 {
	return bufferPresets[clampPreset(p)][0]
}

func highFillThreshold(p BufferPreset) uint32 {
	return bufferPresets[clampPreset(p)][1]
}
