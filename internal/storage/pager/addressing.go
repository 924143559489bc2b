package pager

import (
	"errors"
	"fmt"
)

// ───────────────────────────────────────────────────────────────────────────
// Addressing / copy-on-write patch overlay (§4.1, §4.9)
// ───────────────────────────────────────────────────────────────────────────
//
// The reference C implementation translates between self-relative byte
// offsets and machine pointers (`off2ptr`/`ptr2off`) because C has no
// notion of a bounds-checked, relocatable view into a buffer. Go's slices
// already are that view: an offset is simply an index into the active
// half, and `Space.Page` returns a slice aliased to the buffer at that
// index. The addressing layer's real job — the one with actual
// substance — is the copy-on-write overlay: a page must not be mutated
// in place until a transaction commits, so that a concurrent reader (or
// a crash mid-transaction) never observes a half-written page.
//
// This mirrors the teacher's `PageBufferPool`/`WritePage` split (pin a
// frame, copy before mutating, apply on commit) adapted from an on-disk
// WAL to an in-memory patch table capped at MaxPatchEntries (§9(a)).

// ErrPatchTableFull is returned when a transaction has already dirtied
// MaxPatchEntries distinct pages (§9(a): bounded per-transaction patch
// table, transaction must be retried at a coarser granularity).
var ErrPatchTableFull = errors.New("pager: patch table full")

// Space is a read/write view over one half of the attached buffer. It
// knows nothing about transactions by itself; Patcher overlays the
// copy-on-write behavior on top of it.
type Space struct {
	buf []byte // the active half, exactly a multiple of PageSize
}

// NewSpace wraps buf (the active half) as a Space.
func NewSpace(buf []byte) *Space {
	return &Space{buf: buf}
}

// Len returns the number of pages in the space.
func (s *Space) Len() uint32 { return uint32(len(s.buf) / PageSize) }

// PageOffset validates and returns off (the identity function in Go:
// offsets already are zero-based byte positions, so "off2ptr" and
// "ptr2off" collapse to this single bounds check).
func (s *Space) PageOffset(off uint32) (uint32, error) {
	if off == NullOffset {
		return 0, fmt.Errorf("pager: null offset dereferenced")
	}
	if uint64(off)+PageSize > uint64(len(s.buf)) {
		return 0, fmt.Errorf("pager: offset %d out of range", off)
	}
	if off%PageSize != 0 {
		return 0, fmt.Errorf("pager: offset %d is not page-aligned", off)
	}
	return off, nil
}

// ReadPage returns a read-only view of the page at off, straight from
// the underlying buffer (no patch overlay).
func (s *Space) ReadPage(off uint32) ([]byte, error) {
	o, err := s.PageOffset(off)
	if err != nil {
		return nil, err
	}
	return s.buf[o : o+PageSize], nil
}

// RawBytes returns the whole active half, e.g. for backup/restore.
func (s *Space) RawBytes() []byte { return s.buf }

// ───────────────────────────────────────────────────────────────────────────
// Patcher — per-process, per-transaction copy-on-write overlay
// ───────────────────────────────────────────────────────────────────────────

// Patcher overlays a bounded set of modified pages on top of a Space. A
// page is copied into the patch table the first time it is written
// through WritablePage; subsequent reads and writes of that page during
// the same transaction see the patched copy. Nothing is written back to
// the Space until Commit is called (§4.9).
type Patcher struct {
	space    *Space
	patches  map[uint32][]byte
	preimage map[uint32][]byte // untouched copy taken at first WritablePage, for conflict checks (§4.9, §9(a))
	order    []uint32          // commit order, oldest first
	// allocated holds offsets of pages newly allocated during this
	// transaction. The allocation lives only in the patched root page, so
	// Rollback undoes it by discarding that patch (§4.2, §4.9).
	allocated []uint32
}

// NewPatcher creates a Patcher over space with an empty patch table.
func NewPatcher(space *Space) *Patcher {
	return &Patcher{
		space:    space,
		patches:  make(map[uint32][]byte),
		preimage: make(map[uint32][]byte),
	}
}

// ReadPage returns the current view of the page at off: the patched
// copy if one exists, otherwise the underlying Space page. A page read
// straight from the Space (i.e. not yet touched by this transaction)
// was, if ever written, last stamped with its CRC by Commit — so it is
// verified here; a patched copy is still being assembled by its own
// transaction and has no final CRC yet, so it is returned unchecked.
// Offset 0 (the root page) is exempt: its volatile-prefix-plus-magic
// layout (rpage.go) has no spare CRC field, same as the teacher's own
// superblock read path, which never calls VerifyPageCRC either.
func (p *Patcher) ReadPage(off uint32) ([]byte, error) {
	if buf, ok := p.patches[off]; ok {
		return buf, nil
	}
	buf, err := p.space.ReadPage(off)
	if err != nil {
		return nil, err
	}
	if off != 0 {
		if verr := VerifyPageCRC(buf); verr != nil {
			return nil, verr
		}
	}
	return buf, nil
}

// WritablePage returns a mutable view of the page at off, copying it
// into the patch table on first access (§4.1, §4.9). Returns
// ErrPatchTableFull if the transaction has already dirtied
// MaxPatchEntries distinct pages.
func (p *Patcher) WritablePage(off uint32) ([]byte, error) {
	if buf, ok := p.patches[off]; ok {
		return buf, nil
	}
	if len(p.patches) >= MaxPatchEntries {
		return nil, ErrPatchTableFull
	}
	src, err := p.space.ReadPage(off)
	if err != nil {
		return nil, err
	}
	cp := make([]byte, PageSize)
	copy(cp, src)
	pre := make([]byte, PageSize)
	copy(pre, src)
	p.patches[off] = cp
	p.preimage[off] = pre
	p.order = append(p.order, off)
	return cp, nil
}

// MarkAllocated records that off was freshly allocated during this
// transaction.
func (p *Patcher) MarkAllocated(off uint32) {
	p.allocated = append(p.allocated, off)
}

// Allocated returns the offsets marked via MarkAllocated, in allocation
// order.
func (p *Patcher) Allocated() []uint32 {
	return append([]uint32(nil), p.allocated...)
}

// Dirty reports whether any page has been patched.
func (p *Patcher) Dirty() bool { return len(p.patches) > 0 }

// HasConflict reports whether any patched page's pre-image no longer
// matches the live Space content (§4.9, §9(a)): under the single-writer
// lock this package serializes through, the only way that can happen is
// a restore_backup() firing mid-transaction after this process's ticket
// was silently stolen — the stronger per-page generation check §9(a)
// floats as a future refinement is not needed to detect that case.
func (p *Patcher) HasConflict() bool {
	for _, off := range p.order {
		cur, err := p.space.ReadPage(off)
		if err != nil {
			return true
		}
		pre := p.preimage[off]
		for i := range pre {
			if cur[i] != pre[i] {
				return true
			}
		}
	}
	return false
}

// Commit copies every patched page back into the underlying Space, in
// the order the patches were first created, then clears the patch
// table. Every patch (other than the root page, offset 0 — see
// ReadPage) is stamped with a fresh CRC over its final content first,
// mirroring the teacher's writePageRaw/Checkpoint calling SetPageCRC
// immediately before a dirty page becomes visible to the next reader.
// The caller is responsible for holding the exclusive lock across
// Commit (§4.7, §4.9): partial application is only safe because no
// other attached process may observe the Space mid-copy.
func (p *Patcher) Commit() {
	for _, off := range p.order {
		dst, err := p.space.ReadPage(off)
		if err != nil {
			// The offset was validated on first WritablePage access;
			// it cannot have become invalid within the same Space.
			panic(fmt.Sprintf("pager: commit of invalid offset %d: %v", off, err))
		}
		patch := p.patches[off]
		if off != 0 {
			SetPageCRC(patch)
		}
		copy(dst, patch)
	}
	p.reset()
}

// Rollback discards every patch without touching the underlying Space.
// Pages allocated through this Patcher are released with it: the
// discarded root-page patch is what recorded their allocation (§4.2,
// §4.9).
func (p *Patcher) Rollback() {
	p.reset()
}

func (p *Patcher) reset() {
	p.patches = make(map[uint32][]byte)
	p.preimage = make(map[uint32][]byte)
	p.order = nil
	p.allocated = nil
}
