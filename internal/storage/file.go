package storage

import "github.com/cozis/cozyfs/internal/storage/pager"

// ───────────────────────────────────────────────────────────────────────────
// File I/O (§4.4)
// ───────────────────────────────────────────────────────────────────────────

// ReadFlags modifies Read's behavior.
type ReadFlags uint8

// Consume requests a destructive read: fully-consumed pages are freed
// and head_start advances (§4.4). Only valid when cursor == 0.
const Consume ReadFlags = 1 << 0

// fpageUsable returns the logical byte range [lo:hi) of an FPage's data
// area for a page at position pos (first/interior/last) in the chain
// (§3 invariant 3, §4.4).
func fpageUsable(data []byte, isFirst, isLast bool, headStart, tailEnd uint32) []byte {
	lo, hi := 0, len(data)
	if isFirst {
		lo = int(headStart)
	}
	if isLast {
		hi = int(tailEnd)
	}
	if lo > hi {
		lo = hi
	}
	return data[lo:hi]
}

// Read copies up to max bytes from fd's entity content, starting at the
// handle's cursor, into dst (sized to hold max bytes by the caller).
// With Consume set (only legal when cursor == 0), fully-read pages are
// freed and head_start advances (§4.4).
func (cn *Conn) Read(fd int32, dst []byte, max int, flags ReadFlags) (n int, errno Errno) {
	h, loc, err := cn.resolveHandle(fd)
	if err != OK {
		return 0, err
	}
	ref := cn.refFromOffset(h.EntityOff)
	e, err := cn.readEntity(ref)
	if err != OK {
		return 0, err
	}
	if e.IsDir() {
		return 0, EISDIR
	}
	consume := flags&Consume != 0
	if consume && h.Cursor != 0 {
		return 0, EINVAL
	}

	skip := h.Cursor
	off := e.Head
	produced := 0

	for off != pager.NullOffset && produced < max {
		buf, err := cn.readPage(off)
		if err != OK {
			return produced, err
		}
		fp := pager.WrapFPage(buf)
		isFirst := off == e.Head
		isLast := off == e.Tail
		usable := fpageUsable(fp.Data(), isFirst, isLast, e.HeadStart, e.TailEnd)

		if skip >= uint32(len(usable)) {
			skip -= uint32(len(usable))
			if consume {
				next := fp.Next()
				if err := cn.freePage(off); err != OK {
					return produced, err
				}
				e.Head = next
				if next == pager.NullOffset {
					e.Tail = pager.NullOffset
				} else {
					nbuf, err := cn.writePage(next)
					if err != OK {
						return produced, err
					}
					pager.WrapFPage(nbuf).SetPrev(pager.NullOffset)
				}
				e.HeadStart = 0
				off = next
				continue
			}
			off = fp.Next()
			continue
		}

		avail := usable[skip:]
		want := max - produced
		if want > len(avail) {
			want = len(avail)
		}
		copy(dst[produced:produced+want], avail[:want])
		produced += want
		skip = 0

		if consume && want == len(avail) {
			next := fp.Next()
			wasLast := isLast
			if err := cn.freePage(off); err != OK {
				return produced, err
			}
			e.Head = next
			if wasLast || next == pager.NullOffset {
				e.Tail = pager.NullOffset
			} else {
				nbuf, err := cn.writePage(next)
				if err != OK {
					return produced, err
				}
				pager.WrapFPage(nbuf).SetPrev(pager.NullOffset)
			}
			e.HeadStart = 0
			off = next
		} else if consume {
			// Partially consumed: advance head_start into this page.
			newHeadStart := e.HeadStart
			if isFirst {
				newHeadStart += uint32(want)
			} else {
				newHeadStart = uint32(want)
			}
			e.HeadStart = newHeadStart
			break
		} else {
			h.Cursor += uint32(want)
			if want < len(avail) {
				break
			}
			off = fp.Next()
		}
	}

	if consume {
		h.Cursor = 0
		if err := cn.writeEntity(ref, e); err != OK {
			return produced, err
		}
	} else if off == pager.NullOffset && produced == 0 && skip > 0 {
		// Cursor was beyond the entity's content: clamp it back to the
		// content length instead of leaving the stale overrun value (§4.4).
		h.Cursor -= skip
	}
	if err := cn.writeHandle(loc, h); err != OK {
		return produced, err
	}
	return produced, OK
}

// Write appends src to fd's entity content (§4.4).
func (cn *Conn) Write(fd int32, src []byte) (n int, errno Errno) {
	h, _, err := cn.resolveHandle(fd)
	if err != OK {
		return 0, err
	}
	ref := cn.refFromOffset(h.EntityOff)
	e, err := cn.readEntity(ref)
	if err != OK {
		return 0, err
	}
	if e.IsDir() {
		return 0, EISDIR
	}

	remaining := src
	if e.Tail == pager.NullOffset {
		off, buf, err := cn.allocPage(pager.PageTypeFile)
		if err != OK {
			return 0, err
		}
		_ = buf
		e.Head, e.Tail, e.HeadStart, e.TailEnd = off, off, 0, 0
	}

	for len(remaining) > 0 {
		tailBuf, err := cn.writePage(e.Tail)
		if err != OK {
			return len(src) - len(remaining), err
		}
		fp := pager.WrapFPage(tailBuf)
		room := pager.FPageDataSize - int(e.TailEnd)
		if room <= 0 {
			newOff, newBuf, err := cn.allocPage(pager.PageTypeFile)
			if err != OK {
				return len(src) - len(remaining), err
			}
			newFP := pager.WrapFPage(newBuf)
			newFP.SetPrev(e.Tail)
			fp.SetNext(newOff)
			e.Tail = newOff
			e.TailEnd = 0
			continue
		}
		n := len(remaining)
		if n > room {
			n = room
		}
		copy(fp.Data()[e.TailEnd:], remaining[:n])
		e.TailEnd += uint32(n)
		remaining = remaining[n:]
	}

	if err := cn.writeEntity(ref, e); err != OK {
		return len(src), err
	}
	return len(src), OK
}
