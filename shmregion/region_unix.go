//go:build linux || darwin

package shmregion

import (
	"errors"
	"path/filepath"

	"golang.org/x/sys/unix"
)

func regionPath(name string) string {
	return filepath.Join(shmDir, "directpipe-"+name)
}

func createPlatform(name string, totalBytes int) (*Region, error) {
	path := regionPath(name)

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0660)
	if err != nil {
		return nil, mapOpenError(err)
	}

	if err := unix.Ftruncate(fd, int64(totalBytes)); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, ErrPlatform
	}

	data, err := unix.Mmap(fd, 0, totalBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, ErrPlatform
	}

	return &Region{
		Base: data,
		Size: totalBytes,
		closer: func() error {
			munmapErr := unix.Munmap(data)
			closeErr := unix.Close(fd)
			unix.Unlink(path)
			if munmapErr != nil {
				return munmapErr
			}
			return closeErr
		},
	}, nil
}

func attachPlatform(name string) (*Region, error) {
	path := regionPath(name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, mapOpenError(err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, ErrPlatform
	}
	size := int(stat.Size)
	if size < 1 {
		unix.Close(fd)
		return nil, ErrTooSmall
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, ErrPlatform
	}

	return &Region{
		Base: data,
		Size: size,
		closer: func() error {
			munmapErr := unix.Munmap(data)
			closeErr := unix.Close(fd)
			if munmapErr != nil {
				return munmapErr
			}
			return closeErr
		},
	}, nil
}

func mapOpenError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT):
		return ErrNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	default:
		return ErrPlatform
	}
}
