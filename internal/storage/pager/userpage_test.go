package pager

import "testing"

func TestUPageUserRoundTrip(t *testing.T) {
	buf := make([]byte, PageSize)
	up := InitUPage(buf, 4096)

	u := UserRecord{ID: 42, NameLen: 4}
	copy(u.Name[:], "root")
	up.SetUser(1, &u)

	got := up.UserAt(1)
	if got.ID != u.ID || got.NameLen != u.NameLen {
		t.Fatalf("user roundtrip mismatch: %+v vs %+v", u, got)
	}
	if string(got.Name[:got.NameLen]) != "root" {
		t.Fatalf("user name mismatch: got %q", got.Name[:got.NameLen])
	}

	for i := 0; i < UPageUserCap; i++ {
		if i == 1 {
			continue
		}
		if up.UserAt(i).ID != 0 {
			t.Fatalf("slot %d should still be free after init", i)
		}
	}
}

func TestUPageNextChain(t *testing.T) {
	buf := make([]byte, PageSize)
	up := InitUPage(buf, 0)
	if up.Next() != NullOffset {
		t.Fatal("freshly initialized UPage should have null next")
	}
	up.SetNext(16384)
	if up.Next() != 16384 {
		t.Fatal("next not persisted")
	}
}

func TestUPageUserCapFitsPage(t *testing.T) {
	if UPageUserCap <= 0 {
		t.Fatal("UPageUserCap must be positive")
	}
	last := upageSlotsOff + (UPageUserCap-1)*UserRecordSize + UserRecordSize
	if last > PageSize {
		t.Fatalf("last user slot byte %d exceeds PageSize %d", last, PageSize)
	}
}
