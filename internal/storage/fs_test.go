package storage

import "testing"

func TestMkdirNestedChain(t *testing.T) {
	cn := newTestConn(t, 64*4096)

	mustOK(t, "mkdir /a", cn.Mkdir([]byte("/a"), 1000))
	mustOK(t, "mkdir /a/b", cn.Mkdir([]byte("/a/b"), 1000))
	mustOK(t, "mkdir /a/b/c", cn.Mkdir([]byte("/a/b/c"), 1000))

	withCritical(t, cn, func() {
		for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
			ref, err := cn.resolvePath([]byte(p))
			mustOK(t, "resolvePath "+p, err)
			e, err := cn.readEntity(ref)
			mustOK(t, "readEntity "+p, err)
			if !e.IsDir() {
				t.Fatalf("%s should be a directory", p)
			}
		}
	})
}

func TestMkdirMissingParentFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	if err := cn.Mkdir([]byte("/a/b"), 1000); err != ENOENT {
		t.Fatalf("expected ENOENT creating under a missing parent, got %v", err)
	}
}

func TestMkdirDuplicateNameFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	mustOK(t, "mkdir", cn.Mkdir([]byte("/a"), 1000))
	if err := cn.Mkdir([]byte("/a"), 1000); err != EINVAL {
		t.Fatalf("expected EINVAL creating a duplicate name, got %v", err)
	}
}

func TestRmdirNonEmptyFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	mustOK(t, "mkdir /a", cn.Mkdir([]byte("/a"), 1000))
	mustOK(t, "mkdir /a/b", cn.Mkdir([]byte("/a/b"), 1000))

	if err := cn.Rmdir([]byte("/a"), 1000); err != EPERM {
		t.Fatalf("expected EPERM removing a non-empty directory, got %v", err)
	}

	mustOK(t, "rmdir /a/b", cn.Rmdir([]byte("/a/b"), 1000))
	mustOK(t, "rmdir /a", cn.Rmdir([]byte("/a"), 1000))

	withCritical(t, cn, func() {
		if _, err := cn.resolvePath([]byte("/a")); err != ENOENT {
			t.Fatalf("expected /a to be gone after rmdir, got %v", err)
		}
	})
}

func TestRmdirOnFileFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	fd, errno := cn.Open([]byte("/f"), true, 1000)
	mustOK(t, "open", errno)
	mustOK(t, "close", cn.Close(fd, 1000))

	if err := cn.Rmdir([]byte("/f"), 1000); err != EPERM {
		t.Fatalf("expected EPERM running rmdir on a file, got %v", err)
	}
}

func TestLinkAndUnlinkShareContent(t *testing.T) {
	cn := newTestConn(t, 64*4096)

	fd, errno := cn.Open([]byte("/orig"), true, 1000)
	mustOK(t, "open", errno)
	_, errno = cn.WriteOp(fd, []byte("hello"), 1000)
	mustOK(t, "write", errno)
	mustOK(t, "close", cn.Close(fd, 1000))

	mustOK(t, "link", cn.Link([]byte("/orig"), []byte("/alias"), 1000))

	fd2, errno := cn.Open([]byte("/alias"), false, 1000)
	mustOK(t, "open alias", errno)
	dst := make([]byte, 16)
	n, errno := cn.ReadOp(fd2, dst, len(dst), 0, 1000)
	mustOK(t, "read alias", errno)
	if string(dst[:n]) != "hello" {
		t.Fatalf("alias content = %q, want %q", dst[:n], "hello")
	}
	mustOK(t, "close alias", cn.Close(fd2, 1000))

	mustOK(t, "unlink orig", cn.Unlink([]byte("/orig"), 1000))

	fd3, errno := cn.Open([]byte("/alias"), false, 1000)
	mustOK(t, "reopen alias after unlinking orig", errno)
	n, errno = cn.ReadOp(fd3, dst, len(dst), 0, 1000)
	mustOK(t, "read alias again", errno)
	if string(dst[:n]) != "hello" {
		t.Fatalf("alias content after unlinking the original = %q, want %q", dst[:n], "hello")
	}
	mustOK(t, "close", cn.Close(fd3, 1000))
}

func TestLinkOnDirectoryFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	mustOK(t, "mkdir", cn.Mkdir([]byte("/d"), 1000))
	if err := cn.Link([]byte("/d"), []byte("/d2"), 1000); err != EPERM {
		t.Fatalf("expected EPERM hard-linking a directory, got %v", err)
	}
}

func TestUnlinkMissingFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	if err := cn.Unlink([]byte("/missing"), 1000); err != ENOENT {
		t.Fatalf("expected ENOENT, got %v", err)
	}
}

func TestWriteThenConsumeRead(t *testing.T) {
	cn := newTestConn(t, 64*4096)

	fd, errno := cn.Open([]byte("/f"), true, 1000)
	mustOK(t, "open", errno)

	payload := make([]byte, 5000) // spans more than one FPage
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	n, errno := cn.WriteOp(fd, payload, 1000)
	mustOK(t, "write", errno)
	if n != len(payload) {
		t.Fatalf("wrote %d bytes, want %d", n, len(payload))
	}

	dst := make([]byte, len(payload))
	total := 0
	for total < len(payload) {
		got, errno := cn.ReadOp(fd, dst[total:], len(payload)-total, Consume, 1000)
		mustOK(t, "consume-read", errno)
		if got == 0 {
			t.Fatal("consume-read made no progress before exhausting the payload")
		}
		total += got
	}
	if total != len(payload) {
		t.Fatalf("read back %d bytes, want %d", total, len(payload))
	}
	for i := range payload {
		if dst[i] != payload[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, dst[i], payload[i])
		}
	}
}

func TestConsumeReadRejectsNonZeroCursor(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	fd, errno := cn.Open([]byte("/f"), true, 1000)
	mustOK(t, "open", errno)
	_, errno = cn.WriteOp(fd, []byte("abcdef"), 1000)
	mustOK(t, "write", errno)

	dst := make([]byte, 3)
	_, errno = cn.ReadOp(fd, dst, 3, 0, 1000)
	mustOK(t, "partial read", errno)

	if _, err := cn.ReadOp(fd, dst, 3, Consume, 1000); err != EINVAL {
		t.Fatalf("expected EINVAL consuming with a non-zero cursor, got %v", err)
	}
}

func TestReadPastEOFClampsCursor(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	fd, errno := cn.Open([]byte("/f"), true, 1000)
	mustOK(t, "open", errno)
	_, errno = cn.WriteOp(fd, []byte("abcdef"), 1000)
	mustOK(t, "write", errno)

	dst := make([]byte, 10)
	n, errno := cn.ReadOp(fd, dst, 10, 0, 1000)
	mustOK(t, "read to EOF", errno)
	if n != 6 {
		t.Fatalf("read %d bytes, want 6", n)
	}

	// A further read with the cursor at the end of the content must
	// return 0 and leave the cursor at the content length (§4.4).
	n, errno = cn.ReadOp(fd, dst, 10, 0, 1000)
	mustOK(t, "read past EOF", errno)
	if n != 0 {
		t.Fatalf("read %d bytes past EOF, want 0", n)
	}

	withCritical(t, cn, func() {
		h, _, errno := cn.resolveHandle(fd)
		mustOK(t, "resolveHandle", errno)
		if h.Cursor != 6 {
			t.Fatalf("cursor after read-past-EOF = %d, want clamped to 6", h.Cursor)
		}
	})

	// Clamped cursor must still allow a subsequent write to append and a
	// fresh open+read to see the full content, i.e. nothing was corrupted.
	n, errno = cn.WriteOp(fd, []byte("gh"), 1000)
	mustOK(t, "write after clamp", errno)
	if n != 2 {
		t.Fatalf("wrote %d bytes, want 2", n)
	}
}

func TestReadOnDirectoryFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	mustOK(t, "mkdir", cn.Mkdir([]byte("/d"), 1000))

	var fd int32
	withCritical(t, cn, func() {
		ref, err := cn.resolvePath([]byte("/d"))
		mustOK(t, "resolvePath", err)
		got, err := cn.openHandle(cn.refOffset(ref))
		mustOK(t, "openHandle", err)
		fd = got
	})

	dst := make([]byte, 4)
	if _, err := cn.ReadOp(fd, dst, len(dst), 0, 1000); err != EISDIR {
		t.Fatalf("expected EISDIR reading a directory handle, got %v", err)
	}
}
