package shmregion

import "errors"

// Carrier-level failures. The carrier is a dumb byte window — it knows
// nothing about the header — so these are purely about the named object
// and the mapping, not about protocol validity.
var (
	ErrNotFound        = errors.New("shmregion: region not found")
	ErrTooSmall        = errors.New("shmregion: mapped region smaller than declared header")
	ErrPermissionDenied = errors.New("shmregion: permission denied")
	ErrPlatform        = errors.New("shmregion: platform error")
)
