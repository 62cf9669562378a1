package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charlontank/wakeguard/internal/application"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errDaemonAlreadyRunning = errors.New("daemon already running")

func newDaemonCmd(_ *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the arbitration loop in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			// Rewire with the real logger; the root command wires a silent
			// app for one-shot invocations.
			app, err := wireAppWithLogger(logger)
			if err != nil {
				return err
			}

			lock := flock.New(app.cfg.daemonLockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire daemon lock: %w", err)
			}
			if !locked {
				return errDaemonAlreadyRunning
			}
			defer func() {
				_ = lock.Unlock()
			}()

			if interval <= 0 {
				interval = app.cfg.daemonInterval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			daemon := application.NewDaemon(
				app.arbiter,
				app.reaper,
				app.safety,
				logger,
				interval,
				app.cfg.thermalInterval,
			)

			return daemon.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Reap/reconcile interval (default: daemon.interval from config)")

	return cmd
}
