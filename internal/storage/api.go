package storage

import "github.com/cozis/cozyfs/internal/storage/pager"

// ───────────────────────────────────────────────────────────────────────────
// Public API (§6)
// ───────────────────────────────────────────────────────────────────────────
//
// Every operation here follows the same shape: enter the critical
// section, do the work against the process-local patch table, leave the
// critical section. Path-based operations resolve through path.go;
// entity structure changes go through entity.go; handle/file I/O is
// file.go and handle.go; users are user.go.

// Idle refreshes a held transaction's lock without performing any
// filesystem operation — the hook long-running transactional work calls
// periodically to avoid lock expiry (§5 "Cancellation").
func (cn *Conn) Idle(waitMs int) Errno {
	if cn.state != TxnOn {
		return OK
	}
	newTk, err := refreshLock(cn.core.volatileRoot(), cn.ext, cn.tk, cn.refreshPostpone)
	if err != OK {
		cn.state = TxnTimeout
		return err
	}
	cn.tk = newTk
	return OK
}

// Mkdir creates an empty directory at path (§6).
func (cn *Conn) Mkdir(path []byte, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()

	dirHead, name, err := cn.resolveParent(path)
	if err != OK {
		return err
	}
	_, err = cn.createEntity(dirHead, nil, name, pager.EntityFlagDir)
	return err
}

// Rmdir removes the empty directory at path (§6). Fails with EPERM if
// the directory still has entries.
func (cn *Conn) Rmdir(path []byte, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()

	dirHead, name, err := cn.resolveParent(path)
	if err != OK {
		return err
	}
	return cn.removeEntity(dirHead, name, pager.EntityFlagDir)
}

// Link creates a new name pointing at the existing entity named by
// oldPath, incrementing its reference count (§6).
func (cn *Conn) Link(oldPath, newPath []byte, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()

	target, err := cn.resolvePath(oldPath)
	if err != OK {
		return err
	}
	e, err := cn.readEntity(target)
	if err != OK {
		return err
	}
	if e.IsDir() {
		return EPERM
	}
	dirHead, name, err := cn.resolveParent(newPath)
	if err != OK {
		return err
	}
	_, err = cn.createEntity(dirHead, &target, name, e.Flags)
	return err
}

// Unlink removes a file's name, freeing its content when the reference
// count reaches zero (§6).
func (cn *Conn) Unlink(path []byte, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()

	dirHead, name, err := cn.resolveParent(path)
	if err != OK {
		return err
	}
	return cn.removeEntity(dirHead, name, pager.EntityFlagFile)
}

// Open resolves path (creating a fresh empty file if creat is set and
// it does not exist) and returns a handle fd (§6).
func (cn *Conn) Open(path []byte, creat bool, waitMs int) (fd int32, errno Errno) {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return 0, err
	}
	defer cn.leaveCriticalSection()

	ref, err := cn.resolvePath(path)
	switch {
	case err == ENOENT && creat:
		dirHead, name, perr := cn.resolveParent(path)
		if perr != OK {
			return 0, perr
		}
		ref, err = cn.createEntity(dirHead, nil, name, pager.EntityFlagFile)
		if err != OK {
			return 0, err
		}
	case err != OK:
		return 0, err
	default:
		e, rerr := cn.readEntity(ref)
		if rerr != OK {
			return 0, rerr
		}
		if e.IsDir() {
			return 0, EISDIR
		}
	}

	return cn.openHandle(cn.refOffset(ref))
}

// Close invalidates fd (§6).
func (cn *Conn) Close(fd int32, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()
	return cn.closeHandle(fd)
}

// Mkusr, Rmusr, Chown and Chmod bracket the corresponding user.go
// helpers with the critical section (§6, §9 supplemented features).

func (cn *Conn) Mkusr(uid uint32, name []byte, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()
	return cn.mkusr(uid, name)
}

func (cn *Conn) Rmusr(uid uint32, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()
	return cn.rmusr(uid)
}

func (cn *Conn) Chown(path []byte, uid uint32, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()
	return cn.chown(path, uid)
}

func (cn *Conn) Chmod(path []byte, mode uint16, waitMs int) Errno {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return err
	}
	defer cn.leaveCriticalSection()
	return cn.chmod(path, mode)
}

// ReadOp and WriteOp bracket Read/Write with the critical section (§6).

func (cn *Conn) ReadOp(fd int32, dst []byte, max int, flags ReadFlags, waitMs int) (n int, errno Errno) {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return 0, err
	}
	defer cn.leaveCriticalSection()
	return cn.Read(fd, dst, max, flags)
}

func (cn *Conn) WriteOp(fd int32, src []byte, waitMs int) (n int, errno Errno) {
	if err := cn.enterCriticalSection(waitMs); err != OK {
		return 0, err
	}
	defer cn.leaveCriticalSection()
	return cn.Write(fd, src)
}
