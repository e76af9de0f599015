package consumer

import "unsafe"

// asFloat32Slice reinterprets the raw audio-data bytes of an attached
// region as a float32 slice without copying.
func asFloat32Slice(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}
