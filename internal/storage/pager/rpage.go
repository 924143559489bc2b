package pager

import (
	"encoding/binary"
	"fmt"
)

// ───────────────────────────────────────────────────────────────────────────
// Root page (RPage) — page 0 of the active half (§2, §3, §6)
// ───────────────────────────────────────────────────────────────────────────
//
// Layout (fits in one 4096-byte page):
//
//	Offset  Size  Field
//	──────  ────  ───────────────────────────────────────────────
//	0       8     LockWord        uint64 LE   (volatile, §4.7)
//	8       1     ActiveHalf      byte        (volatile, §4.8)
//	9       3     Reserved        (volatile, never touched by backup/restore)
//	12      8     Magic           "COZYFS\x00\x00"
//	20      4     Version         uint32 LE
//	24      4     TotPages        uint32 LE
//	28      4     NumPages        uint32 LE
//	32      4     FreeListHead    uint32 LE (XPage chain head, NullOffset = empty)
//	36      32    RootEntity      Entity record (§3)
//	68      4     UserListHead    uint32 LE (UPage chain head, NullOffset = empty)
//	72      4     HPageListHead   uint32 LE (handle-overflow chain, NullOffset = empty)
//	76      4016  Handle table    RootHandleCap fixed Handle records
//
// Everything from offset 12 to the end of the page is the "non-volatile"
// region: backup/restore copy exactly this region and never the first 12
// bytes (§4.8).

const (
	RootMagic          = "COZYFS\x00\x00"
	RootFormatVersion  = uint32(1)
	VolatilePrefixSize = 12

	rLockOff         = 0
	rActiveHalfOff   = 8
	rMagicOff        = VolatilePrefixSize // 12
	rVersionOff      = rMagicOff + 8      // 20
	rTotPagesOff     = rVersionOff + 4    // 24
	rNumPagesOff     = rTotPagesOff + 4   // 28
	rFreeListHeadOff = rNumPagesOff + 4   // 32
	rRootEntityOff   = rFreeListHeadOff + 4 // 36
	rUserListHeadOff = rRootEntityOff + EntitySize // 68
	rHPageListOff    = rUserListHeadOff + 4        // 72
	rHandleTableOff  = rHPageListOff + 4           // 76

	// HandleRecordSize is the on-buffer size of one Handle (§3, §4.5).
	HandleRecordSize = 16

	// RootHandleCap is the number of Handle slots embedded in the root page.
	RootHandleCap = (PageSize - rHandleTableOff) / HandleRecordSize
)

// ActiveHalf values (§4.8).
const (
	ActiveHalfFirst  byte = 0 // ACTIVE: first half is active
	ActiveHalfSecond byte = 1 // INACTIVE: second half is active
)

// RootHeader is the decoded non-volatile portion of the root page.
type RootHeader struct {
	Magic         [8]byte
	Version       uint32
	TotPages      uint32
	NumPages      uint32
	FreeListHead  uint32
	RootEntity    Entity
	UserListHead  uint32
	HPageListHead uint32
}

// LockWord reads the volatile lock word (§4.7).
func LockWord(root []byte) uint64 {
	return binary.LittleEndian.Uint64(root[rLockOff : rLockOff+8])
}

// SetLockWord writes the volatile lock word directly (non-atomic; callers
// that need atomicity use the CAS helpers in lock.go against this offset).
func SetLockWord(root []byte, v uint64) {
	binary.LittleEndian.PutUint64(root[rLockOff:rLockOff+8], v)
}

// ActiveHalfByte reads the volatile active-half indicator (§4.8).
func ActiveHalfByte(root []byte) byte { return root[rActiveHalfOff] }

// SetActiveHalfByte writes the volatile active-half indicator.
func SetActiveHalfByte(root []byte, v byte) { root[rActiveHalfOff] = v }

// InitRootPage initializes a brand-new root page's non-volatile region.
// The volatile prefix is left zeroed (unlocked, first half active).
func InitRootPage(root []byte) {
	for i := range root {
		root[i] = 0
	}
	copy(root[rMagicOff:rMagicOff+8], RootMagic)
	binary.LittleEndian.PutUint32(root[rVersionOff:], RootFormatVersion)
	binary.LittleEndian.PutUint32(root[rTotPagesOff:], 1)
	binary.LittleEndian.PutUint32(root[rNumPagesOff:], 1)
	binary.LittleEndian.PutUint32(root[rFreeListHeadOff:], NullOffset)
	rootDir := Entity{Refs: 1, Flags: EntityFlagDir, Head: NullOffset, Tail: NullOffset}
	MarshalEntity(&rootDir, root[rRootEntityOff:rRootEntityOff+EntitySize])
	binary.LittleEndian.PutUint32(root[rUserListHeadOff:], NullOffset)
	binary.LittleEndian.PutUint32(root[rHPageListOff:], NullOffset)
	for i := 0; i < RootHandleCap; i++ {
		off := handleSlotOffset(i)
		binary.LittleEndian.PutUint16(root[off+2:off+4], 1) // generation starts at 1, never 0
	}
}

// ValidateRootPage checks the magic and format version of a root page.
func ValidateRootPage(root []byte) error {
	if len(root) < PageSize {
		return fmt.Errorf("root page too small: %d bytes", len(root))
	}
	if string(root[rMagicOff:rMagicOff+8]) != RootMagic {
		return fmt.Errorf("bad root page magic")
	}
	ver := binary.LittleEndian.Uint32(root[rVersionOff:])
	if ver != RootFormatVersion {
		return fmt.Errorf("unsupported root page version %d", ver)
	}
	return nil
}

func TotPages(root []byte) uint32      { return binary.LittleEndian.Uint32(root[rTotPagesOff:]) }
func SetTotPages(root []byte, v uint32) { binary.LittleEndian.PutUint32(root[rTotPagesOff:], v) }
func NumPages(root []byte) uint32      { return binary.LittleEndian.Uint32(root[rNumPagesOff:]) }
func SetNumPages(root []byte, v uint32) { binary.LittleEndian.PutUint32(root[rNumPagesOff:], v) }

func FreeListHead(root []byte) uint32 { return binary.LittleEndian.Uint32(root[rFreeListHeadOff:]) }
func SetFreeListHead(root []byte, v uint32) {
	binary.LittleEndian.PutUint32(root[rFreeListHeadOff:], v)
}

func RootEntityBytes(root []byte) []byte { return root[rRootEntityOff : rRootEntityOff+EntitySize] }

func UserListHead(root []byte) uint32 { return binary.LittleEndian.Uint32(root[rUserListHeadOff:]) }
func SetUserListHead(root []byte, v uint32) {
	binary.LittleEndian.PutUint32(root[rUserListHeadOff:], v)
}

func HPageListHead(root []byte) uint32 { return binary.LittleEndian.Uint32(root[rHPageListOff:]) }
func SetHPageListHead(root []byte, v uint32) {
	binary.LittleEndian.PutUint32(root[rHPageListOff:], v)
}

// handleSlotOffset returns the byte offset of the i-th root-embedded handle.
func handleSlotOffset(i int) int { return rHandleTableOff + i*HandleRecordSize }

// HandleSlotBytes returns the raw bytes of the i-th root-embedded handle slot.
func HandleSlotBytes(root []byte, i int) []byte {
	off := handleSlotOffset(i)
	return root[off : off+HandleRecordSize]
}

// NonVolatileRegion returns the slice of root that backup/restore copy: the
// entire page minus the 12-byte volatile prefix (§4.8).
func NonVolatileRegion(root []byte) []byte { return root[VolatilePrefixSize:] }
