package pager

import "testing"

func newTestSpace(t *testing.T, numPages uint32) (*Space, []byte) {
	t.Helper()
	buf := make([]byte, int(numPages)*PageSize)
	InitRootPage(buf[0:PageSize])
	SetTotPages(buf[0:PageSize], numPages)
	SetNumPages(buf[0:PageSize], 1)
	return NewSpace(buf), buf
}

func TestAllocPageBumpsNumPages(t *testing.T) {
	space, _ := newTestSpace(t, 4)
	p := NewPatcher(space)

	off, buf, err := AllocPage(p, PageTypeDirectory)
	if err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	if off != PageSize {
		t.Fatalf("expected first allocation at offset %d, got %d", PageSize, off)
	}
	if UnmarshalHeader(buf).Type != PageTypeDirectory {
		t.Fatal("allocated page was not initialized as a DPage")
	}

	p.Commit()
	root, _ := space.ReadPage(0)
	if NumPages(root) != 2 {
		t.Fatalf("NumPages after one alloc = %d, want 2", NumPages(root))
	}
}

func TestAllocPageExhaustion(t *testing.T) {
	space, _ := newTestSpace(t, 2)
	p := NewPatcher(space)

	if _, _, err := AllocPage(p, PageTypeFile); err != nil {
		t.Fatalf("first alloc should succeed: %v", err)
	}
	p.Commit()

	p2 := NewPatcher(space)
	if _, _, err := AllocPage(p2, PageTypeFile); err != ErrNoSpace {
		t.Fatalf("expected ErrNoSpace once TotPages is reached, got %v", err)
	}
}

func TestFreePageThenAllocReusesIt(t *testing.T) {
	space, _ := newTestSpace(t, 3)
	p := NewPatcher(space)

	off, _, err := AllocPage(p, PageTypeDirectory)
	if err != nil {
		t.Fatalf("AllocPage: %v", err)
	}
	p.Commit()

	p2 := NewPatcher(space)
	if err := FreePage(p2, off); err != nil {
		t.Fatalf("FreePage: %v", err)
	}
	p2.Commit()

	root, _ := space.ReadPage(0)
	if FreeListHead(root) != off {
		t.Fatalf("FreeListHead = %d, want freed offset %d", FreeListHead(root), off)
	}

	p3 := NewPatcher(space)
	gotOff, buf, err := AllocPage(p3, PageTypeFile)
	if err != nil {
		t.Fatalf("AllocPage after free: %v", err)
	}
	if gotOff != off {
		t.Fatalf("expected reused offset %d, got %d", off, gotOff)
	}
	if UnmarshalHeader(buf).Type != PageTypeFile {
		t.Fatal("reused page was not reinitialized with the new type")
	}
}
