package producer

import "unsafe"

// asFloat32Slice reinterprets the raw audio-data bytes of a mapped region
// as a float32 slice without copying. The region carrier guarantees the
// backing allocation is at least page-aligned, which satisfies float32's
// 4-byte alignment requirement on every supported platform.
func asFloat32Slice(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}
