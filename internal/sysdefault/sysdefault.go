// Package sysdefault provides an in-process implementation of
// storage.External so the engine is usable without a real external
// collaborator (§6's expansion): MALLOC/FREE backed by a pooled byte
// allocator, WAIT/WAKE backed by a condition variable keyed by lock
// word address, SYNC a no-op unless backed by a file, TIME the wall
// clock.
package sysdefault

import (
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// pageSize matches pager.PageSize; kept local to avoid an import cycle
// with the storage package (sysdefault is a leaf consumed by cmd/cozyfs
// and tests, not the other way around).
const pageSize = 4096

// Default is a process-local storage.External: MALLOC/FREE draw from a
// pool of zeroed page-sized buffers (teacher's PageBufferPool reuse
// idiom, minus the LRU eviction this allocator doesn't need since
// patch pages are always freed explicitly at commit/rollback); WAIT/WAKE
// are a mutex+cond pair per lock-word address, simulating the futex the
// spec describes; SYNC calls File.Sync when the buffer is backed by one.
type Default struct {
	pool sync.Pool

	mu    sync.Mutex
	conds map[uint64]*sync.Cond

	file *os.File // nil unless opened over a persisted file
}

// New creates a Default external, optionally backed by an *os.File for
// Sync support (the --persist/--shared modes in cmd/cozyfs).
func New(file *os.File) *Default {
	d := &Default{
		conds: make(map[uint64]*sync.Cond),
		file:  file,
	}
	d.pool.New = func() any {
		return make([]byte, pageSize)
	}
	return d
}

// Malloc returns a zeroed buffer of at least n bytes, drawn from the
// pool when n matches the common page size.
func (d *Default) Malloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n == pageSize {
		buf := d.pool.Get().([]byte)
		for i := range buf {
			buf[i] = 0
		}
		return buf
	}
	return make([]byte, n)
}

// Free returns region to the pool if it is page-sized, otherwise drops
// it for the garbage collector to reclaim.
func (d *Default) Free(region []byte) bool {
	if region == nil {
		return false
	}
	if len(region) == pageSize {
		d.pool.Put(region[:pageSize]) //nolint:staticcheck // capacity reuse only
	}
	return true
}

func (d *Default) condFor(key uint64) *sync.Cond {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.conds[key]
	if !ok {
		c = sync.NewCond(&sync.Mutex{})
		d.conds[key] = c
	}
	return c
}

// Wait blocks on the condition variable keyed by key until Wake is
// called or timeout elapses, logging contention at Debug level.
func (d *Default) Wait(key uint64, observed uint64, timeout time.Duration) error {
	c := d.condFor(key)
	done := make(chan struct{})

	log.WithFields(log.Fields{"key": key, "observed": observed, "timeout": timeout}).
		Debug("waiting on lock word")

	// sync.Cond has no cancellable wait; a goroutine outliving the
	// timeout here is woken by the next Wake call on this key, same as
	// a spurious futex wakeup.
	go func() {
		c.L.Lock()
		c.Wait()
		c.L.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return nil // caller re-evaluates the lock word regardless
	}
}

// Wake broadcasts to every waiter blocked on key.
func (d *Default) Wake(key uint64) error {
	c := d.condFor(key)
	c.L.Lock()
	c.Broadcast()
	c.L.Unlock()
	return nil
}

// Sync flushes the backing file, if any.
func (d *Default) Sync() bool {
	if d.file == nil {
		return true
	}
	if err := d.file.Sync(); err != nil {
		log.WithError(err).Warn("sync failed")
		return false
	}
	return true
}

// Now returns the current wall clock in UTC milliseconds.
func (d *Default) Now() int64 {
	return time.Now().UnixMilli()
}
