package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// FPage — file content page (§3, §4.4)
// ───────────────────────────────────────────────────────────────────────────
//
//	[0:32]  Common PageHeader (Type=File)
//	[32:36] Prev   uint32 LE
//	[36:40] Next   uint32 LE
//	[40:FPageDataSize+40] Data
//
// FPages of a file form a doubly-linked list. The logical content of the
// file is `Data[HeadStart:]` on the first page, `Data[:TailEnd]` on the
// last, and `Data[:]` on every interior page (§3 invariant 3).

const (
	fpagePrevOff = PageHeaderSize     // 32
	fpageNextOff = fpagePrevOff + 4   // 36
	fpageDataOff = fpageNextOff + 4   // 40

	// FPageDataSize is the usable payload capacity of one FPage.
	FPageDataSize = PageSize - fpageDataOff
)

// FPage wraps a page buffer as a file-content page.
type FPage struct {
	buf []byte
}

// WrapFPage wraps an existing FPage buffer.
func WrapFPage(buf []byte) FPage { return FPage{buf: buf} }

// InitFPage initializes a new, empty FPage at the given self offset.
func InitFPage(buf []byte, selfOff uint32) FPage {
	h := &PageHeader{Type: PageTypeFile, ID: selfOff}
	MarshalHeader(h, buf)
	binary.LittleEndian.PutUint32(buf[fpagePrevOff:], NullOffset)
	binary.LittleEndian.PutUint32(buf[fpageNextOff:], NullOffset)
	return FPage{buf: buf}
}

func (p FPage) Prev() uint32 { return binary.LittleEndian.Uint32(p.buf[fpagePrevOff:]) }
func (p FPage) SetPrev(v uint32) { binary.LittleEndian.PutUint32(p.buf[fpagePrevOff:], v) }
func (p FPage) Next() uint32 { return binary.LittleEndian.Uint32(p.buf[fpageNextOff:]) }
func (p FPage) SetNext(v uint32) { binary.LittleEndian.PutUint32(p.buf[fpageNextOff:], v) }

// Data returns the full data area of the page (capacity FPageDataSize).
func (p FPage) Data() []byte { return p.buf[fpageDataOff : fpageDataOff+FPageDataSize] }

// Bytes returns the underlying page buffer.
func (p FPage) Bytes() []byte { return p.buf }
