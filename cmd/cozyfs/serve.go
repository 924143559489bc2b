package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cozis/cozyfs/internal/storage"
)

// addServeCommand wires a long-lived process that holds one session
// open and periodically calls Idle on a cron schedule (§5's idle hook).
// Idle refreshes the lock only while the session has a transaction open;
// serve itself opens none, so each scheduled call returns without
// touching the lock. Grounded on the scheduler idiom of
// running a cron.Cron alongside the main loop and stopping it cleanly on
// shutdown.
func addServeCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Hold a session open and call Idle on a schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	parent.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cfg, sharedFlag, persistFlag)
	if err != nil {
		return err
	}
	defer s.Close()

	log.WithField("session", s.id).Info("cozyfs session attached")

	c := cron.New()
	schedule := cfg.IdleTickerCron
	if schedule == "" {
		schedule = "@every 1m"
	}
	if _, err := c.AddFunc(schedule, func() {
		if errno := s.conn.Idle(1000); errno != storage.OK {
			log.WithField("errno", errno).Warn("idle refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("scheduling idle ticker: %w", err)
	}
	c.Start()
	defer c.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	return nil
}
