//go:build linux

package shmregion

// On Linux, /dev/shm is the tmpfs mount glibc's shm_open implicitly opens
// relative to — a plain file opened here is genuine RAM-backed shared
// memory, visible to any process under the same mount namespace, without
// requiring cgo to call shm_open directly.
const shmDir = "/dev/shm"
