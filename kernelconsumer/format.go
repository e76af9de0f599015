package kernelconsumer

import (
	"encoding/binary"
	"math"
)

func copyFloat32Bytes(dst []byte, src []float32) int {
	for i, s := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
	return len(src) * 4
}

// SampleFormat names the PCM sample encoding a virtual audio endpoint
// presents to the OS, distinct from the float32 wire format the ring
// itself always carries.
type SampleFormat int

const (
	Format16Bit SampleFormat = iota
	Format24Bit
	FormatFloat32
)

// FormatMatrix enumerates the {sample rate} x {channel layout} x
// {sample format} combinations a virtual audio endpoint driven by this
// reader is expected to expose, documenting the device-format surface
// without implying any resampling — DirectPipe's wire format is always
// float32 at the producer's native rate; adapting to a different device
// sample rate is explicitly out of scope.
var FormatMatrix = []struct {
	SampleRate uint32
	Channels   uint32
	Format     SampleFormat
}{
	{44100, 1, Format16Bit}, {44100, 1, Format24Bit}, {44100, 1, FormatFloat32},
	{44100, 2, Format16Bit}, {44100, 2, Format24Bit}, {44100, 2, FormatFloat32},
	{48000, 1, Format16Bit}, {48000, 1, Format24Bit}, {48000, 1, FormatFloat32},
	{48000, 2, Format16Bit}, {48000, 2, Format24Bit}, {48000, 2, FormatFloat32},
}

// ConvertFromFloat32 writes src (normalized [-1, 1] float32 samples) into
// dst encoded as format, returning the number of bytes written. This is
// plain integer scaling, not resampling — the caller is responsible for
// ensuring src is already at the device's operating sample rate.
func ConvertFromFloat32(dst []byte, src []float32, format SampleFormat) int {
	switch format {
	case Format16Bit:
		for i, s := range src {
			v := clampInt16(s)
			dst[i*2] = byte(v)
			dst[i*2+1] = byte(v >> 8)
		}
		return len(src) * 2
	case Format24Bit:
		for i, s := range src {
			v := clampInt24(s)
			dst[i*3] = byte(v)
			dst[i*3+1] = byte(v >> 8)
			dst[i*3+2] = byte(v >> 16)
		}
		return len(src) * 3
	default: // FormatFloat32: each sample's bits written little-endian, unchanged
		n := copyFloat32Bytes(dst, src)
		return n
	}
}

func clampInt16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * 32767)
}

func clampInt24(s float32) int32 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int32(s * 8388607)
}
