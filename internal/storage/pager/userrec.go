package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// User record (§3, §9 supplemented features) — fixed on-buffer layout for
// UPage slots and the root-embedded user-table head.
// ───────────────────────────────────────────────────────────────────────────
//
//	[0:4]    ID       uint32 LE (0 marks the slot unused, §3)
//	[4:4+MaxName] Name  fixed-width, NUL-padded
//	[...:UserRecordSize] Reserved padding to a round slot size

const (
	// UserRecordSize is the on-buffer size of one User slot.
	UserRecordSize = 128

	userIDOff   = 0
	userNameOff = 4
)

// UserRecord is the decoded form of an on-buffer User.
type UserRecord struct {
	ID      uint32
	NameLen int
	Name    [MaxName]byte
}

// MarshalUserRecord writes u into the first UserRecordSize bytes of buf.
func MarshalUserRecord(u *UserRecord, buf []byte) {
	binary.LittleEndian.PutUint32(buf[userIDOff:userIDOff+4], u.ID)
	var name [MaxName]byte
	copy(name[:], u.Name[:u.NameLen])
	copy(buf[userNameOff:userNameOff+MaxName], name[:])
	for i := userNameOff + MaxName; i < UserRecordSize; i++ {
		buf[i] = 0
	}
}

// UnmarshalUserRecord reads a UserRecord from the first UserRecordSize bytes
// of buf.
func UnmarshalUserRecord(buf []byte) UserRecord {
	var u UserRecord
	u.ID = binary.LittleEndian.Uint32(buf[userIDOff : userIDOff+4])
	copy(u.Name[:], buf[userNameOff:userNameOff+MaxName])
	n := MaxName
	for n > 0 && u.Name[n-1] == 0 {
		n--
	}
	u.NameLen = n
	return u
}

// NameBytes returns the valid portion of the user's name.
func (u *UserRecord) NameBytes() []byte { return u.Name[:u.NameLen] }

// Free reports whether the slot is unused (§3: id 0 marks unused).
func (u *UserRecord) Free() bool { return u.ID == 0 }
