package pager

import "testing"

func TestFPagePrevNextAndData(t *testing.T) {
	buf := make([]byte, PageSize)
	fp := InitFPage(buf, 4096)

	if fp.Prev() != NullOffset || fp.Next() != NullOffset {
		t.Fatal("freshly initialized FPage should have null prev/next")
	}
	fp.SetPrev(0)
	fp.SetNext(8192)
	if fp.Prev() != 0 || fp.Next() != 8192 {
		t.Fatal("prev/next not persisted")
	}

	data := fp.Data()
	if len(data) != FPageDataSize {
		t.Fatalf("Data length = %d, want %d", len(data), FPageDataSize)
	}
	copy(data, "payload")
	if string(fp.Data()[:7]) != "payload" {
		t.Fatal("writes through Data() should be visible on a subsequent Data() call")
	}
}

func TestFPageDataSizeFitsPage(t *testing.T) {
	if fpageDataOff+FPageDataSize != PageSize {
		t.Fatalf("fpageDataOff(%d)+FPageDataSize(%d) != PageSize(%d)", fpageDataOff, FPageDataSize, PageSize)
	}
}
