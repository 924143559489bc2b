package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sharedFlag    bool
	persistFlag   bool
	httpFlag      bool
	fuseFlag      bool
	shellFlag     bool
	configDirFlag string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cozyfs",
		Short:         "In-memory, position-independent file system engine",
		Long:          "cozyfs — attach to a CozyFS buffer and perform POSIX-style operations against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setConfigDir(configDirFlag)
			return nil
		},
	}

	pflags := root.PersistentFlags()
	pflags.BoolVar(&sharedFlag, "shared", false, "map the buffer from a shared regular file (mmap, not persisted after detach)")
	pflags.BoolVar(&persistFlag, "persist", false, "same as --shared, but the backing file is kept on disk after detach")
	pflags.BoolVar(&httpFlag, "http", false, "reserved: HTTP front-end (external binary, not implemented here)")
	pflags.BoolVar(&fuseFlag, "fuse", false, "reserved: FUSE bridge (external binary, not implemented here)")
	pflags.BoolVar(&shellFlag, "shell", false, "reserved: interactive shell (external binary, not implemented here)")
	pflags.StringVar(&configDirFlag, "config-dir", "", "override config directory (default: ~/.cozyfs)")

	addFrontEndStubs(root)
	addFsCommands(root)
	addServeCommand(root)
	return root
}

// addFrontEndStubs makes --http/--fuse/--shell fail with a clear
// redirect instead of a flag-parsing error, so scripts that always pass
// one of these flags to whichever binary they're composed with do not
// break when pointed at the core engine (§6's expansion).
func addFrontEndStubs(root *cobra.Command) {
	root.PersistentPreRunE = wrapFrontEndCheck(root.PersistentPreRunE)
}

func wrapFrontEndCheck(inner func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if inner != nil {
			if err := inner(cmd, args); err != nil {
				return err
			}
		}
		switch {
		case httpFlag:
			return fmt.Errorf("--http is served by the dedicated HTTP front-end binary, not cozyfs itself")
		case fuseFlag:
			return fmt.Errorf("--fuse is served by the dedicated FUSE bridge binary, not cozyfs itself")
		case shellFlag:
			return fmt.Errorf("--shell is served by the dedicated interactive shell binary, not cozyfs itself")
		}
		return nil
	}
}

func Execute() error {
	return newRootCmd().Execute()
}
