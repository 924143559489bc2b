package storage

import (
	"time"

	"github.com/cozis/cozyfs/internal/storage/pager"
)

// ───────────────────────────────────────────────────────────────────────────
// Transactions (§4.9) — per-process patch table and state machine
// ───────────────────────────────────────────────────────────────────────────

// TxnState is the three-state machine governing a Conn's transactional
// life (§4.9): OFF → ON on begin-success; ON → OFF on commit/rollback;
// ON → TIMEOUT on refresh failure; TIMEOUT → OFF on commit/rollback.
type TxnState int

const (
	TxnOff TxnState = iota
	TxnOn
	TxnTimeout
)

func (s TxnState) String() string {
	switch s {
	case TxnOff:
		return "OFF"
	case TxnOn:
		return "ON"
	case TxnTimeout:
		return "TIMEOUT"
	default:
		return "?"
	}
}

// Conn is a single process's attachment to a Core (§6's `attach`
// handle): the user id, the external services, and — only while a
// transaction is open — the lock ticket and patch table.
type Conn struct {
	core *Core
	user uint32
	ext  External

	state TxnState
	tk    ticket

	patcher *pager.Patcher

	acquireTimeout time.Duration
	refreshPostpone time.Duration
}

const (
	defaultWaitBudget     = 5 * time.Second
	defaultAcquireTimeout = 30 * time.Second
	defaultRefreshPostpone = 30 * time.Second
	backupNotBefore        = 3 * time.Second
)

// TransactionBegin acquires the lock with the given budgets and moves
// the state machine OFF→ON (§4.9). waitMs bounds time spent blocked in
// the external wait primitive; acquireTimeoutSec is the deadline
// (converted to a ticket) the caller is granted once it holds the lock.
func (cn *Conn) TransactionBegin(waitMs int, acquireTimeoutSec int) Errno {
	if cn.state != TxnOff {
		return EINVAL
	}
	acquireTimeout := time.Duration(acquireTimeoutSec) * time.Second
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}
	tk, crashed, err := acquireLock(cn.core.volatileRoot(), cn.ext, time.Duration(waitMs)*time.Millisecond, acquireTimeout)
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
	cn.acquireTimeout = acquireTimeout
	cn.refreshPostpone = defaultRefreshPostpone
	cn.patcher = pager.NewPatcher(cn.core.Space())
	cn.state = TxnOn
	return OK
}

// TransactionCommit applies every patched page back to the buffer,
// optionally forces a backup, and releases the lock (§4.9). From
// TxnTimeout it behaves as a rollback but still reports ETIMEDOUT.
func (cn *Conn) TransactionCommit() Errno {
	switch cn.state {
	case TxnOff:
		return EINVAL
	case TxnTimeout:
		cn.discardTxn()
		return ETIMEDOUT
	}

	if cn.patcher.HasConflict() {
		cn.rollbackLocked()
		return EBUSY
	}
	cn.patcher.Commit()
	cn.core.performBackup(cn.ext, 0) // force: a committed transaction always backs up
	err := releaseLock(cn.core.volatileRoot(), cn.ext, cn.tk)
	cn.patcher = nil
	cn.state = TxnOff
	return err
}

// TransactionRollback discards the patch table and releases the lock
// (§4.9). Pages allocated during the transaction need no separate
// release: the discarded root-page patch is what took them off the free
// list or bumped NumPages.
func (cn *Conn) TransactionRollback() Errno {
	switch cn.state {
	case TxnOff:
		return EINVAL
	case TxnTimeout:
		cn.discardTxn()
		return ETIMEDOUT
	}
	return cn.rollbackLocked()
}

func (cn *Conn) rollbackLocked() Errno {
	cn.patcher.Rollback()
	err := releaseLock(cn.core.volatileRoot(), cn.ext, cn.tk)
	cn.patcher = nil
	cn.state = TxnOff
	return err
}

// discardTxn drops a TIMEOUT transaction's state without touching the
// buffer or the lock: the deadline already lapsed, so the lock may
// already belong to someone else (§4.9).
func (cn *Conn) discardTxn() {
	cn.patcher = nil
	cn.state = TxnOff
}
