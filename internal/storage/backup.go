package storage

import (
	"time"

	"github.com/cozis/cozyfs/internal/storage/pager"
)

// ───────────────────────────────────────────────────────────────────────────
// Backup (§4.8) — double-buffer activation and crash restore
// ───────────────────────────────────────────────────────────────────────────

// performBackup runs at the end of a non-transactional critical section
// (§4.10). If less than notBefore has elapsed since the last successful
// backup, it is a no-op. Otherwise it flips the active-half byte,
// mirrors the non-volatile region of the newly active half from the
// now-backup half, syncs, and records the new timestamp.
func (c *Core) performBackup(ext External, notBefore time.Duration) Errno {
	if !c.backupOn {
		return OK
	}
	now := ext.Now()
	if now == 0 {
		return ESYSTIME
	}
	if c.lastBackup != 0 && time.Duration(now-c.lastBackup)*time.Millisecond < notBefore {
		return OK
	}

	root := c.volatileRoot()
	flipped := pager.ActiveHalfSecond
	if pager.ActiveHalfByte(root) == pager.ActiveHalfSecond {
		flipped = pager.ActiveHalfFirst
	}
	pager.SetActiveHalfByte(root, flipped)

	newActive := c.activeHalf()
	oldActiveBase := c.backupBase() // now the previous active half
	oldActive := c.full[oldActiveBase : oldActiveBase+c.halfLen]
	copy(pager.NonVolatileRegion(newActive[0:pager.PageSize]), pager.NonVolatileRegion(oldActive[0:pager.PageSize]))
	copy(newActive[pager.PageSize:], oldActive[pager.PageSize:])

	if !ext.Sync() {
		return ESYSSYNC
	}
	c.lastBackup = now
	return OK
}

// restoreBackup runs immediately after acquireLock reports a crashed
// holder (§4.8, §4.10). It copies the non-volatile portion of the
// backup half over the active half. Returns ECORRUPT if backup is
// disabled (no restore is possible).
func (c *Core) restoreBackup() Errno {
	if !c.backupOn {
		return ECORRUPT
	}
	backupBase := c.backupBase()
	backup := c.full[backupBase : backupBase+c.halfLen]
	active := c.activeHalf()
	copy(pager.NonVolatileRegion(active[0:pager.PageSize]), pager.NonVolatileRegion(backup[0:pager.PageSize]))
	copy(active[pager.PageSize:], backup[pager.PageSize:])
	return OK
}
