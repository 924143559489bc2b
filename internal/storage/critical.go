package storage

import (
	"time"

	"github.com/cozis/cozyfs/internal/storage/pager"
)

// ───────────────────────────────────────────────────────────────────────────
// Critical section (§4.10)
// ───────────────────────────────────────────────────────────────────────────
//
// Every public operation brackets its work with enterCriticalSection/
// leaveCriticalSection. Outside an explicit transaction (state OFF) each
// call opens and closes its own single-operation patch table, scoped to
// the duration of the call; inside one (state ON) enter only refreshes
// the already-held lock and leave is a no-op, since the transaction
// itself owns lock release (§4.9).

// enterCriticalSection acquires (or refreshes) the lock, restoring from
// backup if a crashed holder is detected (§4.10).
func (cn *Conn) enterCriticalSection(waitMs int) Errno {
	switch cn.state {
	case TxnTimeout:
		return ETIMEDOUT
	case TxnOn:
		newTk, err := refreshLock(cn.core.volatileRoot(), cn.ext, cn.tk, cn.refreshPostpone)
		if err != OK {
			cn.state = TxnTimeout
			return err
		}
		cn.tk = newTk
		return OK
	default: // TxnOff
		tk, crashed, err := acquireLock(cn.core.volatileRoot(), cn.ext, time.Duration(waitMs)*time.Millisecond, defaultAcquireTimeout)
		if err != OK {
			return err
		}
		if crashed {
			if rerr := cn.core.restoreBackup(); rerr != OK {
				releaseLock(cn.core.volatileRoot(), cn.ext, tk)
				return ECORRUPT
			}
		}
		cn.tk = tk
		cn.patcher = pager.NewPatcher(cn.core.Space())
		return OK
	}
}

// leaveCriticalSection commits the single-operation patch table (if
// any), performs a debounced backup, and releases the lock — unless an
// explicit transaction owns it (§4.10).
func (cn *Conn) leaveCriticalSection() Errno {
	switch cn.state {
	case TxnTimeout:
		return OK
	case TxnOn:
		return OK // the transaction retains the lock until commit/rollback
	default: // TxnOff
		cn.patcher.Commit()
		cn.patcher = nil
		cn.core.performBackup(cn.ext, backupNotBefore)
		return releaseLock(cn.core.volatileRoot(), cn.ext, cn.tk)
	}
}
