package storage

import "time"

// External is the set of platform services the core asks its host for
// (§6). The reference C interface is a single `callback(op, userptr,
// pointer, integer) -> u64` dispatch; Go has no use for that dispatch
// table (interfaces already give each operation its own signature), so
// it is split into one method per op. The op names (MALLOC, FREE, WAIT,
// WAKE, SYNC, TIME) map directly onto the methods below — this is the
// idiomatic-Go shape of the same contract, not a different contract.
//
// The core never touches the OS directly: mmap, futex, the HTTP
// front-end, the FUSE bridge and the interactive shell are all, by
// design, on the far side of this interface (§1).
type External interface {
	// Malloc returns a new zeroed byte slice of exactly n bytes, or nil
	// if the allocator is exhausted.
	Malloc(n int) []byte

	// Free releases a region previously returned by Malloc. It reports
	// whether the release succeeded.
	Free(region []byte) bool

	// Wait blocks until key's value changes from observed, or until
	// timeout elapses, whichever comes first. key identifies the word
	// being waited on (the core passes the word's buffer offset); it is
	// opaque to the implementation beyond identity. Implementations
	// that cannot distinguish keys may wait on a single shared condition
	// and rely on the core's retry loop to re-check the value.
	Wait(key uint64, observed uint64, timeout time.Duration) error

	// Wake unblocks every waiter currently parked on key.
	Wake(key uint64) error

	// Sync flushes the buffer to its backing store, if any. It reports
	// whether the flush succeeded; a no-op backing store returns true.
	Sync() bool

	// Now returns the current UTC time in milliseconds. 0 is reserved
	// for "unknown/error" (§6) and must never be returned by a healthy
	// implementation.
	Now() int64
}
