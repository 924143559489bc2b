package main

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/cozis/cozyfs/internal/storage"
	"github.com/cozis/cozyfs/internal/storage/pager"
	"github.com/cozis/cozyfs/internal/sysdefault"
)

// session owns one process's buffer plus the attached Conn used by the
// one-shot fs subcommands (mkdir, open+read, ...). Each subcommand
// invocation opens a session, performs one operation, and closes it —
// the CLI does not keep a server running except under "serve".
type session struct {
	core    *storage.Core
	conn    *storage.Conn
	mapped  *mappedBuffer
	persist bool
	id      string
}

func openSession(cfg *Config, shared, persist bool) (*session, error) {
	id := uuid.NewString()
	log.WithField("session", id).Debug("opening session")

	var buf []byte
	var mapped *mappedBuffer
	size := cfg.BufferBytes
	if cfg.BackupEnabled {
		size *= 2
	}

	switch {
	case persist || shared:
		path := cfg.PersistFile
		if path == "" {
			path = "cozyfs.img"
		}
		m, err := openMapped(path, size)
		if err != nil {
			return nil, err
		}
		mapped = m
		buf = m.data
	default:
		buf = make([]byte, size)
	}

	var core *storage.Core
	if err := pager.ValidateRootPage(buf[:pager.PageSize]); err == nil {
		c, errno := storage.Open(buf, cfg.BackupEnabled)
		if errno != storage.OK {
			return nil, fmt.Errorf("open: %s", errno)
		}
		core = c
	} else {
		c, errno := storage.Init(buf, cfg.BackupEnabled, cfg.RefreshOnIdle)
		if errno != storage.OK {
			return nil, fmt.Errorf("init: %s", errno)
		}
		core = c
	}

	ext := sysdefault.New(nil)
	if mapped != nil {
		ext = sysdefault.New(mapped.file)
	}
	conn, errno := core.Attach(0, ext)
	if errno != storage.OK {
		return nil, fmt.Errorf("attach: %s", errno)
	}

	return &session{core: core, conn: conn, mapped: mapped, persist: persist, id: id}, nil
}

func (s *session) Close() error {
	if s.mapped != nil {
		return s.mapped.Close(s.persist)
	}
	return nil
}
