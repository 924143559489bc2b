package storage

import "github.com/cozis/cozyfs/internal/storage/pager"

// ───────────────────────────────────────────────────────────────────────────
// Handles and file descriptors (§4.5)
// ───────────────────────────────────────────────────────────────────────────
//
// Handles live in a unified sequence: the RootHandleCap slots embedded
// in the root page, followed by HPageHandleCap slots in each HPage of
// the chain rooted at HPageListHead, in chain order. A global index
// into that sequence plus the slot's generation is everything pack_fd
// needs.

// packFD encodes (generation, index) as the spec's fd (§4.5). The
// result is returned as int32; callers outside this package see it as
// an ordinary file descriptor.
func packFD(generation uint16, index uint32) int32 {
	return int32(uint32(generation)<<16 | index)
}

// unpackFD splits an fd back into (generation, index) (§4.5). It does no
// validation; range and generation checks happen where the handle is
// looked up.
func unpackFD(fd int32) (generation uint16, index uint32) {
	u := uint32(fd)
	return uint16(u >> 16), u & 0xFFFF
}

// handleLoc locates the page and in-page slot index backing a global
// handle index.
type handleLoc struct {
	pageOff uint32 // 0 means the root page
	slot    int
}

func (cn *Conn) locateHandle(index uint32) (handleLoc, Errno) {
	if index < pager.RootHandleCap {
		return handleLoc{pageOff: 0, slot: int(index)}, OK
	}
	index -= pager.RootHandleCap
	root, err := cn.readPage(0)
	if err != OK {
		return handleLoc{}, err
	}
	off := pager.HPageListHead(root)
	for off != pager.NullOffset {
		if index < pager.HPageHandleCap {
			return handleLoc{pageOff: off, slot: int(index)}, OK
		}
		index -= pager.HPageHandleCap
		buf, err := cn.readPage(off)
		if err != OK {
			return handleLoc{}, err
		}
		off = pager.WrapHPage(buf).Next()
	}
	return handleLoc{}, EBADF
}

func (cn *Conn) readHandle(loc handleLoc) (pager.HandleRecord, Errno) {
	buf, err := cn.readPage(loc.pageOff)
	if err != OK {
		return pager.HandleRecord{}, err
	}
	if loc.pageOff == 0 {
		return pager.UnmarshalHandleRecord(pager.HandleSlotBytes(buf, loc.slot)), OK
	}
	return pager.WrapHPage(buf).HandleAt(loc.slot), OK
}

func (cn *Conn) writeHandle(loc handleLoc, h pager.HandleRecord) Errno {
	buf, err := cn.writePage(loc.pageOff)
	if err != OK {
		return err
	}
	if loc.pageOff == 0 {
		pager.MarshalHandleRecord(&h, pager.HandleSlotBytes(buf, loc.slot))
		return OK
	}
	pager.WrapHPage(buf).SetHandle(loc.slot, &h)
	return OK
}

// openHandle finds a free slot in the unified handle sequence,
// extending it with a fresh HPage if every existing slot is used, and
// marks it live pointing at entityOff (§3, §4.5). Fails with ENFILE
// only if the allocator itself is exhausted while extending the chain.
func (cn *Conn) openHandle(entityOff uint32) (fd int32, errno Errno) {
	index := uint32(0)

	for i := 0; i < pager.RootHandleCap; i++ {
		h, err := cn.readHandle(handleLoc{pageOff: 0, slot: i})
		if err != OK {
			return 0, err
		}
		if !h.Used {
			h.Used = true
			h.EntityOff = entityOff
			h.Cursor = 0
			if err := cn.writeHandle(handleLoc{pageOff: 0, slot: i}, h); err != OK {
				return 0, err
			}
			return packFD(h.Generation, index), OK
		}
		index++
	}

	root, err := cn.readPage(0)
	if err != OK {
		return 0, err
	}
	pageOff := pager.HPageListHead(root)
	var lastOff uint32 = pager.NullOffset
	for pageOff != pager.NullOffset {
		buf, err := cn.readPage(pageOff)
		if err != OK {
			return 0, err
		}
		hp := pager.WrapHPage(buf)
		for i := 0; i < pager.HPageHandleCap; i++ {
			h := hp.HandleAt(i)
			if !h.Used {
				h.Used = true
				h.EntityOff = entityOff
				h.Cursor = 0
				loc := handleLoc{pageOff: pageOff, slot: i}
				if err := cn.writeHandle(loc, h); err != OK {
					return 0, err
				}
				return packFD(h.Generation, index+uint32(i)), OK
			}
		}
		index += pager.HPageHandleCap
		lastOff = pageOff
		pageOff = hp.Next()
	}

	newOff, newBuf, err := cn.allocPage(pager.PageTypeHandle)
	if err != OK {
		return 0, ENFILE
	}
	newHP := pager.WrapHPage(newBuf)
	first := newHP.HandleAt(0)
	first.Used = true
	first.EntityOff = entityOff
	first.Cursor = 0
	newHP.SetHandle(0, &first)

	if lastOff == pager.NullOffset {
		rootBuf, err := cn.writePage(0)
		if err != OK {
			return 0, err
		}
		pager.SetHPageListHead(rootBuf, newOff)
	} else {
		prevBuf, err := cn.writePage(lastOff)
		if err != OK {
			return 0, err
		}
		pager.WrapHPage(prevBuf).SetNext(newOff)
	}
	return packFD(first.Generation, index), OK
}

// closeHandle clears Used and advances Generation, permanently
// invalidating the fd (§3, §4.5).
func (cn *Conn) closeHandle(fd int32) Errno {
	generation, index := unpackFD(fd)
	loc, err := cn.locateHandle(index)
	if err != OK {
		return err
	}
	h, err := cn.readHandle(loc)
	if err != OK {
		return err
	}
	if !h.Used || h.Generation != generation {
		return EBADF
	}
	h.Used = false
	h.EntityOff = pager.NullOffset
	h.Cursor = 0
	h.Generation = pager.NextGeneration(h.Generation)
	return cn.writeHandle(loc, h)
}

// resolveHandle validates fd and returns its current record.
func (cn *Conn) resolveHandle(fd int32) (pager.HandleRecord, handleLoc, Errno) {
	generation, index := unpackFD(fd)
	loc, err := cn.locateHandle(index)
	if err != OK {
		return pager.HandleRecord{}, handleLoc{}, err
	}
	h, err := cn.readHandle(loc)
	if err != OK {
		return pager.HandleRecord{}, handleLoc{}, err
	}
	if !h.Used || h.Generation != generation {
		return pager.HandleRecord{}, handleLoc{}, EBADF
	}
	return h, loc, OK
}
