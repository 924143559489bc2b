package storage

import "testing"

func TestPackUnpackFDRoundTrip(t *testing.T) {
	cases := []struct {
		gen uint16
		idx uint32
	}{
		{1, 0},
		{1, 12},
		{2, 65535},
		{65535, 1},
	}
	for _, c := range cases {
		fd := packFD(c.gen, c.idx)
		gotGen, gotIdx := unpackFD(fd)
		if gotGen != c.gen || gotIdx != c.idx {
			t.Errorf("packFD(%d,%d) -> unpackFD = (%d,%d)", c.gen, c.idx, gotGen, gotIdx)
		}
	}
}

func TestOpenCloseInvalidatesFD(t *testing.T) {
	cn := newTestConn(t, 64*4096)

	fd, errno := cn.Open([]byte("/f"), true, 1000)
	mustOK(t, "open", errno)

	mustOK(t, "close", cn.Close(fd, 1000))

	withCritical(t, cn, func() {
		if _, _, err := cn.resolveHandle(fd); err != EBADF {
			t.Fatalf("expected EBADF on a closed fd, got %v", err)
		}
	})
}

func TestOpenWithoutCreatOnMissingPathFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	if _, err := cn.Open([]byte("/missing"), false, 1000); err != ENOENT {
		t.Fatalf("expected ENOENT, got %v", err)
	}
}

func TestOpenOnDirectoryFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	mustOK(t, "mkdir", cn.Mkdir([]byte("/d"), 1000))
	if _, err := cn.Open([]byte("/d"), false, 1000); err != EISDIR {
		t.Fatalf("expected EISDIR opening a directory, got %v", err)
	}
}

func TestHandleReuseAfterClose(t *testing.T) {
	cn := newTestConn(t, 64*4096)

	fd1, errno := cn.Open([]byte("/a"), true, 1000)
	mustOK(t, "open /a", errno)
	mustOK(t, "close /a", cn.Close(fd1, 1000))

	fd2, errno := cn.Open([]byte("/b"), true, 1000)
	mustOK(t, "open /b", errno)

	gen1, idx1 := unpackFD(fd1)
	gen2, idx2 := unpackFD(fd2)
	if idx1 != idx2 {
		t.Fatalf("expected the freed slot to be reused: idx1=%d idx2=%d", idx1, idx2)
	}
	if gen2 == gen1 {
		t.Fatalf("expected the reused slot's generation to advance: gen1=%d gen2=%d", gen1, gen2)
	}
}

func TestHandleOverflowsIntoHPageChain(t *testing.T) {
	cn := newTestConn(t, 256*4096)

	const count = 260 // just past RootHandleCap, forcing an HPage
	var fds []int32
	for i := 0; i < count; i++ {
		name := []byte("/f")
		name = append(name, byte('0'+i%10), byte('0'+(i/10)%10), byte('0'+(i/100)%10))
		fd, errno := cn.Open(name, true, 1000)
		mustOK(t, "open", errno)
		fds = append(fds, fd)
	}
	withCritical(t, cn, func() {
		for _, fd := range fds {
			if _, _, err := cn.resolveHandle(fd); err != OK {
				t.Fatalf("resolveHandle: %v", err)
			}
		}
	})
}
