package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// Handle record (§3, §4.5) — fixed 16-byte on-buffer layout, shared by the
// root-embedded handle table and HPage overflow records.
// ───────────────────────────────────────────────────────────────────────────
//
//	[0]     Used        uint8 (0 or 1)
//	[1]     Reserved    1 byte
//	[2:4]   Generation  uint16 LE (never 0 or 0xFFFF, §3)
//	[4:8]   EntityOff   uint32 LE
//	[8:12]  Cursor      uint32 LE
//	[12:16] Reserved    4 bytes

// HandleRecord is the decoded form of an on-buffer Handle.
type HandleRecord struct {
	Used       bool
	Generation uint16
	EntityOff  uint32
	Cursor     uint32
}

// MarshalHandleRecord writes h into the first HandleRecordSize bytes of buf.
func MarshalHandleRecord(h *HandleRecord, buf []byte) {
	if h.Used {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	buf[1] = 0
	binary.LittleEndian.PutUint16(buf[2:4], h.Generation)
	binary.LittleEndian.PutUint32(buf[4:8], h.EntityOff)
	binary.LittleEndian.PutUint32(buf[8:12], h.Cursor)
}

// UnmarshalHandleRecord reads a HandleRecord from the first HandleRecordSize
// bytes of buf.
func UnmarshalHandleRecord(buf []byte) HandleRecord {
	var h HandleRecord
	h.Used = buf[0] != 0
	h.Generation = binary.LittleEndian.Uint16(buf[2:4])
	h.EntityOff = binary.LittleEndian.Uint32(buf[4:8])
	h.Cursor = binary.LittleEndian.Uint32(buf[8:12])
	return h
}

// NextGeneration advances a generation counter, skipping the reserved
// values 0 and 0xFFFF (§3, §4.5).
func NextGeneration(g uint16) uint16 {
	g++
	if g == 0 || g == 0xFFFF {
		g = 1
	}
	return g
}
