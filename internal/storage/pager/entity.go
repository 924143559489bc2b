package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// Entity record (§3) — fixed 32-byte on-buffer layout
// ───────────────────────────────────────────────────────────────────────────
//
//	[0:4]   Refs       uint32 LE
//	[4]     Flags      uint8  (bit0 = directory, bit1 = file)
//	[5]     Reserved   1 byte
//	[6:8]   Mode       uint16 LE (permission bits, §9 supplemented feature)
//	[8:12]  Owner      uint32 LE
//	[12:16] Head       uint32 LE
//	[16:20] Tail       uint32 LE
//	[20:24] HeadStart  uint32 LE
//	[24:28] TailEnd    uint32 LE
//	[28:32] Reserved   4 bytes
const EntitySize = 32

// Entity flag bits.
const (
	EntityFlagDir  uint8 = 1 << 0
	EntityFlagFile uint8 = 1 << 1
)

// Entity is the decoded form of an on-buffer Entity record.
type Entity struct {
	Refs      uint32
	Flags     uint8
	Mode      uint16
	Owner     uint32
	Head      uint32
	Tail      uint32
	HeadStart uint32
	TailEnd   uint32
}

// IsDir reports whether the entity is a directory.
func (e *Entity) IsDir() bool { return e.Flags&EntityFlagDir != 0 }

// IsFile reports whether the entity is a regular file.
func (e *Entity) IsFile() bool { return e.Flags&EntityFlagFile != 0 }

// Free reports whether this embedded-entity slot is unused (§3 lifecycle).
func (e *Entity) Free() bool { return e.Refs == 0 }

// MarshalEntity writes e into the first EntitySize bytes of buf.
func MarshalEntity(e *Entity, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], e.Refs)
	buf[4] = e.Flags
	buf[5] = 0
	binary.LittleEndian.PutUint16(buf[6:8], e.Mode)
	binary.LittleEndian.PutUint32(buf[8:12], e.Owner)
	binary.LittleEndian.PutUint32(buf[12:16], e.Head)
	binary.LittleEndian.PutUint32(buf[16:20], e.Tail)
	binary.LittleEndian.PutUint32(buf[20:24], e.HeadStart)
	binary.LittleEndian.PutUint32(buf[24:28], e.TailEnd)
}

// UnmarshalEntity reads an Entity from the first EntitySize bytes of buf.
func UnmarshalEntity(buf []byte) Entity {
	var e Entity
	e.Refs = binary.LittleEndian.Uint32(buf[0:4])
	e.Flags = buf[4]
	e.Mode = binary.LittleEndian.Uint16(buf[6:8])
	e.Owner = binary.LittleEndian.Uint32(buf[8:12])
	e.Head = binary.LittleEndian.Uint32(buf[12:16])
	e.Tail = binary.LittleEndian.Uint32(buf[16:20])
	e.HeadStart = binary.LittleEndian.Uint32(buf[20:24])
	e.TailEnd = binary.LittleEndian.Uint32(buf[24:28])
	return e
}

// ───────────────────────────────────────────────────────────────────────────
// Link record (§3) — fixed 132-byte on-buffer layout
// ───────────────────────────────────────────────────────────────────────────
//
//	[0:4]      EntityOff  uint32 LE (NullOffset = unused slot)
//	[4:4+MaxName] Name    zero-padded, not NUL-terminated
//	[4+MaxName:132] Reserved
const LinkSize = 4 + MaxName + 8

// Link is the decoded form of an on-buffer Link record.
type Link struct {
	EntityOff uint32
	NameLen   int
	Name      [MaxName]byte
}

// MarshalLink writes l into the first LinkSize bytes of buf.
func MarshalLink(l *Link, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], l.EntityOff)
	for i := range buf[4 : 4+MaxName] {
		buf[4+i] = 0
	}
	copy(buf[4:4+MaxName], l.Name[:l.NameLen])
}

// UnmarshalLink reads a Link from the first LinkSize bytes of buf.
func UnmarshalLink(buf []byte) Link {
	var l Link
	l.EntityOff = binary.LittleEndian.Uint32(buf[0:4])
	copy(l.Name[:], buf[4:4+MaxName])
	n := MaxName
	for n > 0 && l.Name[n-1] == 0 {
		n--
	}
	l.NameLen = n
	return l
}

// NameBytes returns the link's name as a byte slice.
func (l *Link) NameBytes() []byte { return l.Name[:l.NameLen] }

// SameName reports whether l's name equals name, compared by length then
// bytewise (§4.3).
func (l *Link) SameName(name []byte) bool {
	if l.NameLen != len(name) {
		return false
	}
	for i := 0; i < l.NameLen; i++ {
		if l.Name[i] != name[i] {
			return false
		}
	}
	return true
}
