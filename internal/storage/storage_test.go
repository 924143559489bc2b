package storage

import (
	"testing"

	"github.com/cozis/cozyfs/internal/sysdefault"
)

// newTestConn formats a fresh in-memory buffer of the given size (backup
// disabled) and attaches a single connection to it, for tests that only
// need one process's view of the filesystem.
func newTestConn(t *testing.T, sizeBytes int) *Conn {
	t.Helper()
	buf := make([]byte, sizeBytes)
	core, errno := Init(buf, false, false)
	if errno != OK {
		t.Fatalf("Init: %v", errno)
	}
	cn, errno := core.Attach(1, sysdefault.New(nil))
	if errno != OK {
		t.Fatalf("Attach: %v", errno)
	}
	return cn
}

// newTestCore is like newTestConn but returns the shared Core too, for
// tests that attach more than one Conn to the same buffer.
func newTestCore(t *testing.T, sizeBytes int, backup bool) *Core {
	t.Helper()
	buf := make([]byte, sizeBytes)
	core, errno := Init(buf, backup, false)
	if errno != OK {
		t.Fatalf("Init: %v", errno)
	}
	return core
}

func mustOK(t *testing.T, label string, errno Errno) {
	t.Helper()
	if errno != OK {
		t.Fatalf("%s: %v", label, errno)
	}
}

// withCritical brackets fn with a critical section on cn, exactly the
// way every public operation in api.go does, so tests can call the
// lower-level read helpers (resolvePath, readEntity, findUser, ...)
// directly without their own patch table.
func withCritical(t *testing.T, cn *Conn, fn func()) {
	t.Helper()
	if errno := cn.enterCriticalSection(1000); errno != OK {
		t.Fatalf("enterCriticalSection: %v", errno)
	}
	defer func() {
		if errno := cn.leaveCriticalSection(); errno != OK {
			t.Fatalf("leaveCriticalSection: %v", errno)
		}
	}()
	fn()
}
