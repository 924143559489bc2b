package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// DPage — directory page (§3, §4.3, §9(b))
// ───────────────────────────────────────────────────────────────────────────
//
//	[0:32]  Common PageHeader (Type=Directory)
//	[32:36] Prev        uint32 LE
//	[36:40] Next        uint32 LE
//	[40:44] LinkCount   uint32 LE (zeroed at init, not maintained; slots are scanned)
//	[44:48] EntityCount uint32 LE (unused; reserved)
//	[48:48+DPageLinkCap*LinkSize]                     Link array
//	[...:...+DPageEntityCap*EntitySize]                Embedded Entity pool
//	[...:4096]                                         Reserved padding
//
// DPageLinkCap and DPageEntityCap are fixed so that every attached process
// agrees on the layout (§9(b)): 28 links and 10 embedded entities make the
// page exactly 4096 bytes with 32 bytes to spare.
//
// The embedded Entity slots are a pool of unused entity descriptors
// available to ANY directory in the file system, not owned by the
// enclosing directory (§3) — `find_unused_entity` scans every DPage
// reachable from the root, not just the page it happens to sit on.

const (
	dpagePrevOff        = PageHeaderSize     // 32
	dpageNextOff         = dpagePrevOff + 4   // 36
	dpageLinkCountOff    = dpageNextOff + 4   // 40
	dpageEntityCountOff  = dpageLinkCountOff + 4 // 44
	dpageLinksOff        = dpageEntityCountOff + 4 // 48

	// DPageLinkCap is the number of Link slots per DPage.
	DPageLinkCap = 28

	// DPageEntityCap is the number of embedded Entity slots per DPage.
	DPageEntityCap = 10
)

var dpageEntitiesOff = dpageLinksOff + DPageLinkCap*LinkSize

// DPage wraps a page buffer as a directory page.
type DPage struct {
	buf []byte
}

// WrapDPage wraps an existing DPage buffer.
func WrapDPage(buf []byte) DPage { return DPage{buf: buf} }

// InitDPage initializes a new, empty DPage at the given self offset.
func InitDPage(buf []byte, selfOff uint32) DPage {
	h := &PageHeader{Type: PageTypeDirectory, ID: selfOff}
	MarshalHeader(h, buf)
	binary.LittleEndian.PutUint32(buf[dpagePrevOff:], NullOffset)
	binary.LittleEndian.PutUint32(buf[dpageNextOff:], NullOffset)
	binary.LittleEndian.PutUint32(buf[dpageLinkCountOff:], 0)
	binary.LittleEndian.PutUint32(buf[dpageEntityCountOff:], 0)
	p := DPage{buf: buf}
	empty := Link{EntityOff: NullOffset}
	for i := 0; i < DPageLinkCap; i++ {
		p.SetLink(i, &empty)
	}
	emptyEnt := Entity{Refs: 0}
	for i := 0; i < DPageEntityCap; i++ {
		p.SetEntity(i, &emptyEnt)
	}
	return p
}

func (p DPage) Prev() uint32      { return binary.LittleEndian.Uint32(p.buf[dpagePrevOff:]) }
func (p DPage) SetPrev(v uint32)  { binary.LittleEndian.PutUint32(p.buf[dpagePrevOff:], v) }
func (p DPage) Next() uint32      { return binary.LittleEndian.Uint32(p.buf[dpageNextOff:]) }
func (p DPage) SetNext(v uint32)  { binary.LittleEndian.PutUint32(p.buf[dpageNextOff:], v) }

// LinkAt returns the decoded Link at slot i (0 <= i < DPageLinkCap).
func (p DPage) LinkAt(i int) Link {
	off := dpageLinksOff + i*LinkSize
	return UnmarshalLink(p.buf[off : off+LinkSize])
}

// SetLink writes l into slot i.
func (p DPage) SetLink(i int, l *Link) {
	off := dpageLinksOff + i*LinkSize
	MarshalLink(l, p.buf[off:off+LinkSize])
}

// EntityAt returns the decoded embedded Entity at slot i.
func (p DPage) EntityAt(i int) Entity {
	off := dpageEntitiesOff + i*EntitySize
	return UnmarshalEntity(p.buf[off : off+EntitySize])
}

// SetEntity writes e into embedded entity slot i.
func (p DPage) SetEntity(i int, e *Entity) {
	off := dpageEntitiesOff + i*EntitySize
	MarshalEntity(e, p.buf[off:off+EntitySize])
}

// EntityBytesAt returns the raw byte slice backing embedded entity slot i,
// for callers that need a writable view through the addressing layer.
func (p DPage) EntityBytesAt(i int) []byte {
	off := dpageEntitiesOff + i*EntitySize
	return p.buf[off : off+EntitySize]
}

// LinkBytesAt returns the raw byte slice backing link slot i.
func (p DPage) LinkBytesAt(i int) []byte {
	off := dpageLinksOff + i*LinkSize
	return p.buf[off : off+LinkSize]
}

// Bytes returns the underlying page buffer.
func (p DPage) Bytes() []byte { return p.buf }
