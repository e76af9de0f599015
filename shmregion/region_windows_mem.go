//go:build windows

package shmregion

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// unsafeSlice turns a mapped view's base address into a byte slice of
// the given length, without copying.
func unsafeSlice(addr uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
}

// viewSize asks VirtualQuery how large the committed region starting at
// addr is, which is how an attaching consumer discovers the producer's
// declared size without prior knowledge of the geometry.
func viewSize(addr uintptr) (int, error) {
	var info windows.MemoryBasicInformation
	err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info))
	if err != nil {
		return 0, err
	}
	return int(info.RegionSize), nil
}
