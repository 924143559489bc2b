package storage

import (
	"fmt"

	"github.com/cozis/cozyfs/internal/storage/pager"
)

// Core is the shared state of one attached buffer: the raw bytes plus
// the bookkeeping needed to find the active half (§4.8, §9(d) in DESIGN.md).
// It is safe for concurrent use by multiple Conns exactly to the degree
// the lock protocol (§4.7) makes it safe: Core itself adds no extra
// synchronization beyond what the in-buffer lock already provides,
// matching §5's "no global mutable state at the language level".
type Core struct {
	full        []byte // the whole supplied buffer (both halves if backed up)
	backupOn    bool
	halfLen     int // length of one half, in bytes
	lastBackup  int64
	refreshFlag bool
}

// Init formats a freshly supplied buffer (§6, public API's `init`).
// buf's length must be a multiple of PageSize (or, with backup enabled,
// of 2*PageSize); see DESIGN.md §9(d) for the volatile-prefix placement
// this layout depends on.
func Init(buf []byte, backupFlag bool, refreshFlag bool) (*Core, Errno) {
	if len(buf) < pager.PageSize {
		return nil, EINVAL
	}
	var halfLen int
	if backupFlag {
		if len(buf)%(2*pager.PageSize) != 0 {
			return nil, EINVAL
		}
		halfLen = len(buf) / 2
	} else {
		if len(buf)%pager.PageSize != 0 {
			return nil, EINVAL
		}
		halfLen = len(buf)
	}

	c := &Core{full: buf, backupOn: backupFlag, halfLen: halfLen, refreshFlag: refreshFlag}

	// The volatile prefix (lock word + active-half byte) always lives
	// in the first halfLen bytes' root page, regardless of which half
	// ends up active for non-volatile data (§9(d)).
	firstRoot := buf[0:pager.PageSize]
	pager.InitRootPage(firstRoot)
	tot := uint32(halfLen / pager.PageSize)
	pager.SetTotPages(firstRoot, tot)

	if backupFlag {
		secondRoot := buf[halfLen : halfLen+pager.PageSize]
		pager.InitRootPage(secondRoot)
		pager.SetTotPages(secondRoot, tot)
		// Mirror the freshly initialized non-volatile state into the
		// backup half so the two are identical from the start.
		copy(pager.NonVolatileRegion(secondRoot), pager.NonVolatileRegion(firstRoot))
	}
	return c, OK
}

// Open wraps an already-formatted buffer (e.g. reopening a --persist
// file across process restarts) without touching its contents, unlike
// Init which always reformats. backupFlag must match what the buffer
// was originally initialized with.
func Open(buf []byte, backupFlag bool) (*Core, Errno) {
	if len(buf) < pager.PageSize {
		return nil, EINVAL
	}
	var halfLen int
	if backupFlag {
		if len(buf)%(2*pager.PageSize) != 0 {
			return nil, EINVAL
		}
		halfLen = len(buf) / 2
	} else {
		if len(buf)%pager.PageSize != 0 {
			return nil, EINVAL
		}
		halfLen = len(buf)
	}
	if err := pager.ValidateRootPage(buf[0:pager.PageSize]); err != nil {
		return nil, ECORRUPT
	}
	return &Core{full: buf, backupOn: backupFlag, halfLen: halfLen}, OK
}

// volatileRoot is the single, fixed-location root page that owns the
// lock word and active-half byte (§9(d) in DESIGN.md).
func (c *Core) volatileRoot() []byte {
	return c.full[0:pager.PageSize]
}

// activeBase returns the byte offset of the currently active half.
func (c *Core) activeBase() int {
	if !c.backupOn || pager.ActiveHalfByte(c.volatileRoot()) == pager.ActiveHalfFirst {
		return 0
	}
	return c.halfLen
}

// backupBase returns the byte offset of the backup half, or -1 if
// backup is disabled.
func (c *Core) backupBase() int {
	if !c.backupOn {
		return -1
	}
	if c.activeBase() == 0 {
		return c.halfLen
	}
	return 0
}

// activeHalf returns the live bytes of the currently active half.
func (c *Core) activeHalf() []byte {
	base := c.activeBase()
	return c.full[base : base+c.halfLen]
}

// Space returns a pager.Space over the active half.
func (c *Core) Space() *pager.Space {
	return pager.NewSpace(c.activeHalf())
}

// Attach creates a new process-local connection to the buffer (§6's
// `attach`), bound to user uid and the given External services.
func (c *Core) Attach(uid uint32, ext External) (*Conn, Errno) {
	if ext == nil {
		return nil, EINVAL
	}
	return &Conn{core: c, user: uid, ext: ext, state: TxnOff}, OK
}

func (c *Core) String() string {
	return fmt.Sprintf("Core{halfLen=%d backup=%v}", c.halfLen, c.backupOn)
}
