package pager

import (
	"encoding/binary"
	"errors"
)

// ───────────────────────────────────────────────────────────────────────────
// Page allocator (§4.2)
// ───────────────────────────────────────────────────────────────────────────
//
// Free pages form a singly-linked chain of generic XPages rooted at the
// root page's FreeListHead, collapsed from the teacher's
// `FreeListPage`/`FreeManager` split (on-disk free-list-pages plus an
// in-memory set) into a single in-buffer chain: there is no separate
// "disk" to load from, the chain itself is the only bookkeeping, so
// there is nothing to load on attach beyond reading the head pointer.
//
// AllocPage prefers the free list; only once it is empty does it bump
// NumPages, and only up to TotPages, the fixed capacity of the active
// half established at init (§4.2: "pages are created by bumping
// num_pages or by popping the free list").

// ErrNoSpace is returned when the active half has no free pages left
// and NumPages has reached TotPages.
var ErrNoSpace = errors.New("pager: no free pages in active half")

const (
	xpageNextOff = PageHeaderSize // 32, reusing the common header layout
)

func xpageNext(buf []byte) uint32     { return binary.LittleEndian.Uint32(buf[xpageNextOff:]) }
func xpageSetNext(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf[xpageNextOff:], v) }

// AllocPage allocates a page of type pt, returning its offset and an
// already-initialized, writable view of it. The page is recorded as
// allocated in patcher; a Rollback of patcher undoes the allocation by
// discarding the patched root page (§4.9).
func AllocPage(patcher *Patcher, pt PageType) (uint32, []byte, error) {
	root, err := patcher.WritablePage(0)
	if err != nil {
		return 0, nil, err
	}

	if head := FreeListHead(root); head != NullOffset {
		buf, err := patcher.WritablePage(head)
		if err != nil {
			return 0, nil, err
		}
		next := xpageNext(buf)
		SetFreeListHead(root, next)
		initPage(buf, pt, head)
		patcher.MarkAllocated(head)
		return head, buf, nil
	}

	num := NumPages(root)
	tot := TotPages(root)
	if num >= tot {
		return 0, nil, ErrNoSpace
	}
	off := num * PageSize
	buf, err := patcher.WritablePage(off)
	if err != nil {
		return 0, nil, err
	}
	SetNumPages(root, num+1)
	initPage(buf, pt, off)
	patcher.MarkAllocated(off)
	return off, buf, nil
}

// FreePage returns the page at off to the free list, overwriting its
// contents with a generic XPage header (§4.2).
func FreePage(patcher *Patcher, off uint32) error {
	root, err := patcher.WritablePage(0)
	if err != nil {
		return err
	}
	buf, err := patcher.WritablePage(off)
	if err != nil {
		return err
	}
	head := FreeListHead(root)
	h := &PageHeader{Type: PageTypeFree, ID: off}
	MarshalHeader(h, buf)
	xpageSetNext(buf, head)
	SetFreeListHead(root, off)
	return nil
}

// initPage writes the correct on-buffer layout for a freshly allocated
// page of type pt at offset off.
func initPage(buf []byte, pt PageType, off uint32) {
	switch pt {
	case PageTypeDirectory:
		InitDPage(buf, off)
	case PageTypeFile:
		InitFPage(buf, off)
	case PageTypeHandle:
		InitHPage(buf, off)
	case PageTypeUser:
		InitUPage(buf, off)
	default:
		h := &PageHeader{Type: pt, ID: off}
		MarshalHeader(h, buf)
	}
}
