//go:build windows

package shmregion

import (
	"golang.org/x/sys/windows"
)

// regionName builds the "Local\..." session-local name a user-mode
// process uses. Package kernelconsumer attaches through Attach as well,
// so it uses this same name.
func regionName(name string) string {
	return "Local\\directpipe-" + name
}

func createPlatform(name string, totalBytes int) (*Region, error) {
	namePtr, err := windows.UTF16PtrFromString(regionName(name))
	if err != nil {
		return nil, ErrPlatform
	}

	high := uint32(uint64(totalBytes) >> 32)
	low := uint32(uint64(totalBytes) & 0xffffffff)

	handle, err := windows.CreateFileMapping(
		windows.InvalidHandle, // backed by the system paging file
		nil,
		windows.PAGE_READWRITE,
		high, low,
		namePtr,
	)
	if err != nil {
		return nil, mapCreateError(err)
	}

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(totalBytes))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, ErrPlatform
	}

	data := unsafeSlice(addr, totalBytes)

	return &Region{
		Base: data,
		Size: totalBytes,
		closer: func() error {
			unmapErr := windows.UnmapViewOfFile(addr)
			closeErr := windows.CloseHandle(handle)
			if unmapErr != nil {
				return unmapErr
			}
			return closeErr
		},
	}, nil
}

func attachPlatform(name string) (*Region, error) {
	namePtr, err := windows.UTF16PtrFromString(regionName(name))
	if err != nil {
		return nil, ErrPlatform
	}

	handle, err := windows.OpenFileMapping(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, false, namePtr)
	if err != nil {
		return nil, mapOpenError(err)
	}

	// A view size of 0 maps the entire committed section, letting us
	// discover the producer's declared size without knowing it up front.
	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(handle)
		return nil, ErrPlatform
	}

	size, err := viewSize(addr)
	if err != nil || size < 1 {
		windows.UnmapViewOfFile(addr)
		windows.CloseHandle(handle)
		return nil, ErrTooSmall
	}

	data := unsafeSlice(addr, size)

	return &Region{
		Base: data,
		Size: size,
		closer: func() error {
			unmapErr := windows.UnmapViewOfFile(addr)
			closeErr := windows.CloseHandle(handle)
			if unmapErr != nil {
				return unmapErr
			}
			return closeErr
		},
	}, nil
}

func mapCreateError(err error) error {
	if err == windows.ERROR_ACCESS_DENIED {
		return ErrPermissionDenied
	}
	return ErrPlatform
}

func mapOpenError(err error) error {
	switch err {
	case windows.ERROR_FILE_NOT_FOUND:
		return ErrNotFound
	case windows.ERROR_ACCESS_DENIED:
		return ErrPermissionDenied
	default:
		return ErrPlatform
	}
}
