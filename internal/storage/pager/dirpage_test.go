package pager

import "testing"

func TestDPageLinkRoundTrip(t *testing.T) {
	buf := make([]byte, PageSize)
	dp := InitDPage(buf, 4096)

	l := Link{EntityOff: 8192, NameLen: 5}
	copy(l.Name[:], "hello")
	dp.SetLink(3, &l)

	got := dp.LinkAt(3)
	if got.EntityOff != l.EntityOff || got.NameLen != l.NameLen {
		t.Fatalf("link roundtrip mismatch: %+v vs %+v", l, got)
	}
	if !got.SameName([]byte("hello")) {
		t.Fatalf("SameName failed on roundtripped link")
	}

	for i := 0; i < DPageLinkCap; i++ {
		if i == 3 {
			continue
		}
		if dp.LinkAt(i).EntityOff != NullOffset {
			t.Fatalf("slot %d should still be empty after init", i)
		}
	}
}

func TestDPageEntityRoundTrip(t *testing.T) {
	buf := make([]byte, PageSize)
	dp := InitDPage(buf, 4096)

	e := Entity{Refs: 1, Flags: EntityFlagFile, Mode: 0644, Owner: 7, Head: 100, Tail: 200}
	dp.SetEntity(2, &e)

	got := dp.EntityAt(2)
	if got.Refs != e.Refs || got.Flags != e.Flags || got.Mode != e.Mode || got.Owner != e.Owner {
		t.Fatalf("entity roundtrip mismatch: %+v vs %+v", e, got)
	}
	if got.Free() {
		t.Fatal("entity with refs=1 should not report Free")
	}
}

func TestDPagePrevNext(t *testing.T) {
	buf := make([]byte, PageSize)
	dp := InitDPage(buf, 0)
	if dp.Prev() != NullOffset || dp.Next() != NullOffset {
		t.Fatal("freshly initialized DPage should have null prev/next")
	}
	dp.SetPrev(4096)
	dp.SetNext(8192)
	if dp.Prev() != 4096 || dp.Next() != 8192 {
		t.Fatal("prev/next not persisted")
	}
}
