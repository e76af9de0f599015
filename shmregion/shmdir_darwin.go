//go:build darwin

package shmregion

import "os"

// Darwin has no user-visible tmpfs mount equivalent to Linux's /dev/shm
// (POSIX shm_open segments live in a private kernel namespace reachable
// only through the shm_open syscall itself, which requires cgo to call
// from Go). We fall back to a regular file under the OS temp directory,
// mapped MAP_SHARED — a process-visible named region in practice, though
// not a true POSIX shm object. This is the implementation-defined choice
// the specification explicitly allows for the region's named-object path.
var shmDir = os.TempDir()
