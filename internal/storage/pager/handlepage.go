package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// HPage — handle-overflow page (§3, §4.5)
// ───────────────────────────────────────────────────────────────────────────
//
// The root page embeds RootHandleCap handle slots (§3). Once every root
// slot is in use, additional handles are allocated from a singly-linked
// chain of HPages rooted at RootHeader.HPageListHead.
//
//	[0:32]  Common PageHeader (Type=Handle)
//	[32:36] Next       uint32 LE (NullOffset terminates the chain)
//	[36:40] Count       uint32 LE (reserved; slots are scanned, not counted)
//	[40:40+HPageHandleCap*HandleRecordSize] Handle record array
//	[...:4096]                              Reserved padding

const (
	hpageNextOff  = PageHeaderSize   // 32
	hpageCountOff = hpageNextOff + 4 // 36
	hpageSlotsOff = hpageCountOff + 4 // 40

	// HPageHandleCap is the number of HandleRecord slots per HPage.
	HPageHandleCap = (PageSize - hpageSlotsOff) / HandleRecordSize
)

// HPage wraps a page buffer as a handle-overflow page.
type HPage struct {
	buf []byte
}

// WrapHPage wraps an existing HPage buffer.
func WrapHPage(buf []byte) HPage { return HPage{buf: buf} }

// InitHPage initializes a new, empty HPage at the given self offset.
func InitHPage(buf []byte, selfOff uint32) HPage {
	h := &PageHeader{Type: PageTypeHandle, ID: selfOff}
	MarshalHeader(h, buf)
	binary.LittleEndian.PutUint32(buf[hpageNextOff:], NullOffset)
	binary.LittleEndian.PutUint32(buf[hpageCountOff:], 0)
	p := HPage{buf: buf}
	empty := HandleRecord{Used: false, Generation: 1}
	for i := 0; i < HPageHandleCap; i++ {
		p.SetHandle(i, &empty)
	}
	return p
}

func (p HPage) Next() uint32     { return binary.LittleEndian.Uint32(p.buf[hpageNextOff:]) }
func (p HPage) SetNext(v uint32) { binary.LittleEndian.PutUint32(p.buf[hpageNextOff:], v) }

// HandleAt returns the decoded HandleRecord at slot i.
func (p HPage) HandleAt(i int) HandleRecord {
	off := hpageSlotsOff + i*HandleRecordSize
	return UnmarshalHandleRecord(p.buf[off : off+HandleRecordSize])
}

// SetHandle writes h into slot i.
func (p HPage) SetHandle(i int, h *HandleRecord) {
	off := hpageSlotsOff + i*HandleRecordSize
	MarshalHandleRecord(h, p.buf[off:off+HandleRecordSize])
}

// HandleBytesAt returns the raw bytes backing slot i.
func (p HPage) HandleBytesAt(i int) []byte {
	off := hpageSlotsOff + i*HandleRecordSize
	return p.buf[off : off+HandleRecordSize]
}

// Bytes returns the underlying page buffer.
func (p HPage) Bytes() []byte { return p.buf }
