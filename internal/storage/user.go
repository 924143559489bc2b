package storage

import "github.com/cozis/cozyfs/internal/storage/pager"

// ───────────────────────────────────────────────────────────────────────────
// Users (§3, §9 supplemented features: mkusr/rmusr/chown/chmod)
// ───────────────────────────────────────────────────────────────────────────
//
// Users are not modeled in the reference source's remaining surface
// (§9's supplemented-features note); the spec's data model already
// reserves the User record and UPage chain (§3), and the public API
// lists mkusr/rmusr/chown/chmod (§6), so this file supplies the
// straightforward linked-chain scan the rest of the entity model
// already uses for directories.

// mkusr creates a user record with the given id and name, failing with
// EINVAL if id is 0 (reserved for "unused slot") or the id already
// exists, ENOMEM if name is too long.
func (cn *Conn) mkusr(uid uint32, name []byte) Errno {
	if len(name) > pager.MaxName {
		return ENOMEM
	}
	if uid == 0 {
		return EINVAL
	}
	if _, _, found, err := cn.findUser(uid); err != OK {
		return err
	} else if found {
		return EINVAL
	}

	root, err := cn.readPage(0)
	if err != OK {
		return err
	}
	off := pager.UserListHead(root)
	var lastOff uint32 = pager.NullOffset
	for off != pager.NullOffset {
		buf, err := cn.readPage(off)
		if err != OK {
			return err
		}
		up := pager.WrapUPage(buf)
		for i := 0; i < pager.UPageUserCap; i++ {
			if u := up.UserAt(i); u.Free() {
				return cn.writeUserSlot(off, i, uid, name)
			}
		}
		lastOff = off
		off = up.Next()
	}

	newOff, newBuf, err := cn.allocPage(pager.PageTypeUser)
	if err != OK {
		return err
	}
	_ = newBuf
	if lastOff == pager.NullOffset {
		rootBuf, err := cn.writePage(0)
		if err != OK {
			return err
		}
		pager.SetUserListHead(rootBuf, newOff)
	} else {
		prevBuf, err := cn.writePage(lastOff)
		if err != OK {
			return err
		}
		pager.WrapUPage(prevBuf).SetNext(newOff)
	}
	return cn.writeUserSlot(newOff, 0, uid, name)
}

func (cn *Conn) writeUserSlot(pageOff uint32, slot int, uid uint32, name []byte) Errno {
	buf, err := cn.writePage(pageOff)
	if err != OK {
		return err
	}
	u := pager.UserRecord{ID: uid}
	copy(u.Name[:], name)
	u.NameLen = len(name)
	pager.WrapUPage(buf).SetUser(slot, &u)
	return OK
}

// rmusr clears the user record for uid, failing with EPERM for uid 0
// (root, never removable) and ENOENT if absent.
func (cn *Conn) rmusr(uid uint32) Errno {
	if uid == 0 {
		return EPERM
	}
	pageOff, slot, found, err := cn.findUser(uid)
	if err != OK {
		return err
	}
	if !found {
		return ENOENT
	}
	buf, err := cn.writePage(pageOff)
	if err != OK {
		return err
	}
	empty := pager.UserRecord{ID: 0}
	pager.WrapUPage(buf).SetUser(slot, &empty)
	return OK
}

func (cn *Conn) findUser(uid uint32) (pageOff uint32, slot int, found bool, errno Errno) {
	root, err := cn.readPage(0)
	if err != OK {
		return 0, 0, false, err
	}
	off := pager.UserListHead(root)
	for off != pager.NullOffset {
		buf, err := cn.readPage(off)
		if err != OK {
			return 0, 0, false, err
		}
		up := pager.WrapUPage(buf)
		for i := 0; i < pager.UPageUserCap; i++ {
			if u := up.UserAt(i); u.ID == uid {
				return off, i, true, OK
			}
		}
		off = up.Next()
	}
	return 0, 0, false, OK
}

// chown sets the owner id of the entity named by path (§6), refusing
// with EPERM unless the caller is root (uid 0) or the entity's current
// owner (SPEC_FULL.md's supplemented chown/chmod semantics).
func (cn *Conn) chown(path []byte, uid uint32) Errno {
	ref, err := cn.resolvePath(path)
	if err != OK {
		return err
	}
	e, err := cn.readEntity(ref)
	if err != OK {
		return err
	}
	if cn.user != 0 && cn.user != e.Owner {
		return EPERM
	}
	e.Owner = uid
	return cn.writeEntity(ref, e)
}

// chmod sets the mode bits of the entity named by path (§6), refusing
// with EPERM unless the caller is root (uid 0) or the entity's current
// owner.
func (cn *Conn) chmod(path []byte, mode uint16) Errno {
	ref, err := cn.resolvePath(path)
	if err != OK {
		return err
	}
	e, err := cn.readEntity(ref)
	if err != OK {
		return err
	}
	if cn.user != 0 && cn.user != e.Owner {
		return EPERM
	}
	e.Mode = mode
	return cn.writeEntity(ref, e)
}
