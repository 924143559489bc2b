package storage

import (
	"testing"

	"github.com/cozis/cozyfs/internal/sysdefault"
)

func TestMkusrRmusrRoundTrip(t *testing.T) {
	cn := newTestConn(t, 64*4096)

	mustOK(t, "mkusr", cn.Mkusr(42, []byte("alice"), 1000))

	withCritical(t, cn, func() {
		_, _, found, errno := cn.findUser(42)
		mustOK(t, "findUser", errno)
		if !found {
			t.Fatal("expected user 42 to be found after mkusr")
		}
	})

	mustOK(t, "rmusr", cn.Rmusr(42, 1000))

	withCritical(t, cn, func() {
		if _, _, found, errno := cn.findUser(42); errno != OK || found {
			t.Fatalf("expected user 42 gone after rmusr, found=%v errno=%v", found, errno)
		}
	})
}

func TestMkusrRejectsZeroUID(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	if err := cn.Mkusr(0, []byte("root"), 1000); err != EINVAL {
		t.Fatalf("expected EINVAL for uid 0, got %v", err)
	}
}

func TestMkusrRejectsDuplicateUID(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	mustOK(t, "mkusr first", cn.Mkusr(7, []byte("bob"), 1000))
	if err := cn.Mkusr(7, []byte("bob2"), 1000); err != EINVAL {
		t.Fatalf("expected EINVAL for a duplicate uid, got %v", err)
	}
}

func TestRmusrMissingUIDFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	if err := cn.Rmusr(99, 1000); err != ENOENT {
		t.Fatalf("expected ENOENT removing an unknown uid, got %v", err)
	}
}

func TestMkusrOverflowsIntoSecondUPage(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	for i := uint32(1); i <= 64; i++ {
		mustOK(t, "mkusr", cn.Mkusr(i, []byte("u"), 1000))
	}
	withCritical(t, cn, func() {
		for i := uint32(1); i <= 64; i++ {
			if _, _, found, errno := cn.findUser(i); errno != OK || !found {
				t.Fatalf("user %d missing after bulk mkusr: found=%v errno=%v", i, found, errno)
			}
		}
	})
}

func TestChownChmod(t *testing.T) {
	core := newTestCore(t, 64*4096, false)
	cn, errno := core.Attach(0, sysdefault.New(nil)) // root: owner checks never apply to uid 0
	mustOK(t, "attach root", errno)
	mustOK(t, "mkdir", cn.Mkdir([]byte("/d"), 1000))

	mustOK(t, "chown", cn.Chown([]byte("/d"), 55, 1000))
	mustOK(t, "chmod", cn.Chmod([]byte("/d"), 0755, 1000))

	withCritical(t, cn, func() {
		ref, err := cn.resolvePath([]byte("/d"))
		mustOK(t, "resolvePath", err)
		e, err := cn.readEntity(ref)
		mustOK(t, "readEntity", err)
		if e.Owner != 55 {
			t.Fatalf("Owner = %d, want 55", e.Owner)
		}
		if e.Mode != 0755 {
			t.Fatalf("Mode = %o, want 0755", e.Mode)
		}
	})
}

func TestChownMissingPathFails(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	if err := cn.Chown([]byte("/nope"), 1, 1000); err != ENOENT {
		t.Fatalf("expected ENOENT, got %v", err)
	}
}

func TestChownChmodRefusedForNonOwner(t *testing.T) {
	core := newTestCore(t, 64*4096, false)
	root, errno := core.Attach(0, sysdefault.New(nil))
	mustOK(t, "attach root", errno)
	mustOK(t, "mkdir", root.Mkdir([]byte("/d"), 1000))
	mustOK(t, "chown to 55", root.Chown([]byte("/d"), 55, 1000))

	other, errno := core.Attach(7, sysdefault.New(nil))
	mustOK(t, "attach other", errno)
	if err := other.Chown([]byte("/d"), 7, 1000); err != EPERM {
		t.Fatalf("expected EPERM chowning as a non-owner, non-root uid, got %v", err)
	}
	if err := other.Chmod([]byte("/d"), 0644, 1000); err != EPERM {
		t.Fatalf("expected EPERM chmodding as a non-owner, non-root uid, got %v", err)
	}

	owner, errno := core.Attach(55, sysdefault.New(nil))
	mustOK(t, "attach owner", errno)
	mustOK(t, "chmod as owner", owner.Chmod([]byte("/d"), 0644, 1000))
}

func TestRmusrRefusesRoot(t *testing.T) {
	cn := newTestConn(t, 64*4096)
	if err := cn.Rmusr(0, 1000); err != EPERM {
		t.Fatalf("expected EPERM removing uid 0, got %v", err)
	}
}
