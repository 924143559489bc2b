package storage

import (
	"sync/atomic"
	"time"
	"unsafe"
)

// ───────────────────────────────────────────────────────────────────────────
// Lock (§4.7) — timeout-encoded 64-bit word on the root page
// ───────────────────────────────────────────────────────────────────────────
//
// Encoding: 0 means unlocked; any non-zero value is the UTC-millisecond
// deadline after which the holder is considered crashed. The word lives
// in the volatile prefix of the buffer's first half (§6, §9(d) in
// DESIGN.md) and is always manipulated through sync/atomic CAS, mirroring
// the reference implementation's cmpxchg_acquire/cmpxchg_release pairing
// so that a writer's buffer stores happen-before the next acquirer's view
// (§5).

func lockWordPtr(root []byte) *uint64 {
	return (*uint64)(unsafe.Pointer(&root[0]))
}

// ticket is the deadline value an acquirer wrote; it doubles as the
// handle passed back to unlock/refreshLock (§4.7).
type ticket = uint64

// acquireLock runs the acquisition protocol (§4.7). waitBudget bounds
// total time spent in the external Wait primitive; acquireTimeout is the
// deadline duration granted to the caller once it holds the lock.
func acquireLock(root []byte, ext External, waitBudget time.Duration, acquireTimeout time.Duration) (tk ticket, crashed bool, err Errno) {
	word := lockWordPtr(root)
	deadline := time.Now().Add(waitBudget)

	for {
		now := ext.Now()
		if now == 0 {
			return 0, false, ESYSTIME
		}
		observed := atomic.LoadUint64(word)

		if observed < uint64(now) { // zero or expired: free to acquire
			newTicket := uint64(now) + uint64(acquireTimeout/time.Millisecond)
			if atomic.CompareAndSwapUint64(word, observed, newTicket) {
				return newTicket, observed != 0, OK
			}
			continue // lost the race, re-read and retry
		}

		remaining := deadline.Sub(time.Now())
		if remaining <= 0 {
			return 0, false, ETIMEDOUT
		}
		waitFor := time.Duration(observed-uint64(now)) * time.Millisecond
		if waitFor > remaining {
			waitFor = remaining
		}
		if werr := ext.Wait(lockKey, observed, waitFor); werr != nil {
			return 0, false, ESYSWAIT
		}
	}
}

// lockKey identifies the lock word to External.Wait/Wake. There is
// exactly one lock word per attached buffer, so any constant works; it
// exists only so External implementations backed by a generic futex
// table have something to key on.
const lockKey uint64 = 0

// releaseLock performs cmpxchg(release) from tk to 0 (§4.7). A failure
// means the deadline had already lapsed and the lock was stolen.
func releaseLock(root []byte, ext External, tk ticket) Errno {
	word := lockWordPtr(root)
	if !atomic.CompareAndSwapUint64(word, tk, 0) {
		return ETIMEDOUT
	}
	if err := ext.Wake(lockKey); err != nil {
		return ESYSWAKE
	}
	return OK
}

// refreshLock performs cmpxchg(acq_rel) from tk to now+postpone (§4.7).
// On success it returns the new ticket; on failure the deadline elapsed
// and the caller must treat the region as corrupt.
func refreshLock(root []byte, ext External, tk ticket, postpone time.Duration) (ticket, Errno) {
	now := ext.Now()
	if now == 0 {
		return 0, ESYSTIME
	}
	word := lockWordPtr(root)
	newTicket := uint64(now) + uint64(postpone/time.Millisecond)
	if !atomic.CompareAndSwapUint64(word, tk, newTicket) {
		return 0, ETIMEDOUT
	}
	return newTicket, OK
}
