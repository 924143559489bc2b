package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// UPage — user-table page (§3, §9 supplemented features)
// ───────────────────────────────────────────────────────────────────────────
//
// Users live in a singly-linked list of UPages; the tail page is partial
// (§3). The root page's UserListHead points at the first UPage.
//
//	[0:32]  Common PageHeader (Type=User)
//	[32:36] Next       uint32 LE (NullOffset terminates the chain)
//	[36:40] Count       uint32 LE (reserved; slots are scanned, not counted)
//	[40:40+UPageUserCap*UserRecordSize] User record array
//	[...:4096]                         Reserved padding

const (
	upageNextOff  = PageHeaderSize   // 32
	upageCountOff = upageNextOff + 4 // 36
	upageSlotsOff = upageCountOff + 4 // 40

	// UPageUserCap is the number of User slots per UPage.
	UPageUserCap = (PageSize - upageSlotsOff) / UserRecordSize
)

// UPage wraps a page buffer as a user-table page.
type UPage struct {
	buf []byte
}

// WrapUPage wraps an existing UPage buffer.
func WrapUPage(buf []byte) UPage { return UPage{buf: buf} }

// InitUPage initializes a new, empty UPage at the given self offset.
func InitUPage(buf []byte, selfOff uint32) UPage {
	h := &PageHeader{Type: PageTypeUser, ID: selfOff}
	MarshalHeader(h, buf)
	binary.LittleEndian.PutUint32(buf[upageNextOff:], NullOffset)
	binary.LittleEndian.PutUint32(buf[upageCountOff:], 0)
	p := UPage{buf: buf}
	empty := UserRecord{ID: 0}
	for i := 0; i < UPageUserCap; i++ {
		p.SetUser(i, &empty)
	}
	return p
}

func (p UPage) Next() uint32     { return binary.LittleEndian.Uint32(p.buf[upageNextOff:]) }
func (p UPage) SetNext(v uint32) { binary.LittleEndian.PutUint32(p.buf[upageNextOff:], v) }

// UserAt returns the decoded UserRecord at slot i.
func (p UPage) UserAt(i int) UserRecord {
	off := upageSlotsOff + i*UserRecordSize
	return UnmarshalUserRecord(p.buf[off : off+UserRecordSize])
}

// SetUser writes u into slot i.
func (p UPage) SetUser(i int, u *UserRecord) {
	off := upageSlotsOff + i*UserRecordSize
	MarshalUserRecord(u, p.buf[off:off+UserRecordSize])
}

// UserBytesAt returns the raw bytes backing slot i.
func (p UPage) UserBytesAt(i int) []byte {
	off := upageSlotsOff + i*UserRecordSize
	return p.buf[off : off+UserRecordSize]
}

// Bytes returns the underlying page buffer.
func (p UPage) Bytes() []byte { return p.buf }
