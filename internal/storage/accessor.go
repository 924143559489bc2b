package storage

import (
	"errors"

	"github.com/cozis/cozyfs/internal/storage/pager"
)

// ───────────────────────────────────────────────────────────────────────────
// Per-connection page access (§4.1)
// ───────────────────────────────────────────────────────────────────────────
//
// Every mutating helper in this package reaches the buffer exclusively
// through Conn.writePage/allocPage/freePage, mirroring the spec's rule
// that "no component is permitted to write directly through a pointer
// returned by off2ptr" (§4.1). Outside an explicit transaction this
// package still routes writes through a Patcher — scoped to the single
// operation's critical section and committed before the lock is
// released (critical.go) — rather than writing the active half in
// place. This keeps one code path for both cases; "outside a
// transaction, writable_addr is the identity" (§4.1) holds in effect,
// since the patch is flushed back before any other process can observe
// it, but never in the literal sense of bypassing the overlay.

// readPage returns the current view of the page at off. A CRC mismatch
// on an already-committed page (pager.VerifyPageCRC, checked inside
// Patcher.ReadPage) is reported as ECORRUPT rather than EINVAL.
func (cn *Conn) readPage(off uint32) ([]byte, Errno) {
	buf, err := cn.patcher.ReadPage(off)
	if err != nil {
		if errors.Is(err, pager.ErrPageCRCMismatch) {
			return nil, ECORRUPT
		}
		return nil, EINVAL
	}
	return buf, OK
}

// writePage returns a writable view of the page at off, cloning it into
// the patch table on first access. Fails with ENOMEM if the patch table
// is full (§4.1, §9(a)).
func (cn *Conn) writePage(off uint32) ([]byte, Errno) {
	buf, err := cn.patcher.WritablePage(off)
	if err != nil {
		if err == pager.ErrPatchTableFull {
			return nil, ENOMEM
		}
		return nil, EINVAL
	}
	return buf, OK
}

// rootPage returns a writable view of the root page (offset 0).
func (cn *Conn) rootPage() ([]byte, Errno) {
	return cn.writePage(0)
}

// allocPage allocates a page of type pt, failing with ENOMEM if the
// active half is exhausted (§4.2).
func (cn *Conn) allocPage(pt pager.PageType) (uint32, []byte, Errno) {
	off, buf, err := pager.AllocPage(cn.patcher, pt)
	if err != nil {
		return 0, nil, ENOMEM
	}
	return off, buf, OK
}

// freePage returns the page at off to the free list (§4.2).
func (cn *Conn) freePage(off uint32) Errno {
	if err := pager.FreePage(cn.patcher, off); err != nil {
		return EINVAL
	}
	return OK
}
