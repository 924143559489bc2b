package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cozis/cozyfs/internal/storage"
)

const defaultWaitMs = 5000

func addFsCommands(parent *cobra.Command) {
	parent.AddCommand(
		&cobra.Command{
			Use:   "mkdir PATH",
			Short: "Create a directory",
			Args:  cobra.ExactArgs(1),
			RunE:  withSession(func(s *session, args []string) error { return mapErrno(s.conn.Mkdir([]byte(args[0]), defaultWaitMs)) }),
		},
		&cobra.Command{
			Use:   "rmdir PATH",
			Short: "Remove an empty directory",
			Args:  cobra.ExactArgs(1),
			RunE:  withSession(func(s *session, args []string) error { return mapErrno(s.conn.Rmdir([]byte(args[0]), defaultWaitMs)) }),
		},
		&cobra.Command{
			Use:   "link OLDPATH NEWPATH",
			Short: "Create a hard link to an existing file",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(func(s *session, args []string) error {
				return mapErrno(s.conn.Link([]byte(args[0]), []byte(args[1]), defaultWaitMs))
			}),
		},
		&cobra.Command{
			Use:   "unlink PATH",
			Short: "Remove a file's name",
			Args:  cobra.ExactArgs(1),
			RunE:  withSession(func(s *session, args []string) error { return mapErrno(s.conn.Unlink([]byte(args[0]), defaultWaitMs)) }),
		},
		&cobra.Command{
			Use:   "cat PATH",
			Short: "Write a file's full contents to stdout",
			Args:  cobra.ExactArgs(1),
			RunE:  withSession(runCat),
		},
		&cobra.Command{
			Use:   "write PATH",
			Short: "Create (if needed) and append stdin to a file",
			Args:  cobra.ExactArgs(1),
			RunE:  withSession(runWrite),
		},
		&cobra.Command{
			Use:   "mkusr UID NAME",
			Short: "Create a user record",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(func(s *session, args []string) error {
				uid, err := parseUID(args[0])
				if err != nil {
					return err
				}
				return mapErrno(s.conn.Mkusr(uid, []byte(args[1]), defaultWaitMs))
			}),
		},
		&cobra.Command{
			Use:   "rmusr UID",
			Short: "Remove a user record",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(func(s *session, args []string) error {
				uid, err := parseUID(args[0])
				if err != nil {
					return err
				}
				return mapErrno(s.conn.Rmusr(uid, defaultWaitMs))
			}),
		},
		&cobra.Command{
			Use:   "chown PATH UID",
			Short: "Change an entity's owning user id",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(func(s *session, args []string) error {
				uid, err := parseUID(args[1])
				if err != nil {
					return err
				}
				return mapErrno(s.conn.Chown([]byte(args[0]), uid, defaultWaitMs))
			}),
		},
		&cobra.Command{
			Use:   "chmod PATH MODE",
			Short: "Change an entity's permission bits (octal)",
			Args:  cobra.ExactArgs(2),
			RunE: withSession(func(s *session, args []string) error {
				mode, err := strconv.ParseUint(args[1], 8, 16)
				if err != nil {
					return fmt.Errorf("invalid mode %q: %w", args[1], err)
				}
				return mapErrno(s.conn.Chmod([]byte(args[0]), uint16(mode), defaultWaitMs))
			}),
		},
	)
}

func parseUID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid uid %q: %w", s, err)
	}
	return uint32(v), nil
}

func mapErrno(errno storage.Errno) error {
	if errno == storage.OK {
		return nil
	}
	return errno
}

// withSession opens a session per the root's persistent flags, runs fn,
// and always closes the session afterward — each CLI invocation is one
// critical-section-bracketed operation, not a long-lived server (serve
// is the long-lived path).
func withSession(fn func(s *session, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openSession(cfg, sharedFlag, persistFlag)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s, args)
	}
}

func runCat(s *session, args []string) error {
	fd, errno := s.conn.Open([]byte(args[0]), false, defaultWaitMs)
	if errno != storage.OK {
		return errno
	}
	defer s.conn.Close(fd, defaultWaitMs)

	buf := make([]byte, 64*1024)
	for {
		n, errno := s.conn.ReadOp(fd, buf, len(buf), 0, defaultWaitMs)
		if n > 0 {
			if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errno != storage.OK {
			return errno
		}
		if n == 0 {
			return nil
		}
	}
}

func runWrite(s *session, args []string) error {
	fd, errno := s.conn.Open([]byte(args[0]), true, defaultWaitMs)
	if errno != storage.OK {
		return errno
	}
	defer s.conn.Close(fd, defaultWaitMs)

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	_, errno = s.conn.WriteOp(fd, data, defaultWaitMs)
	return mapErrno(errno)
}
