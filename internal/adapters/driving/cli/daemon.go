package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/appwatch-labs/appwatch/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the unattended refresh on its schedule",
	Long: `Runs in the foreground and starts the unattended refresh whenever it is
due, granting each run its configured budget.

Edits to the configuration file are picked up without a restart.
Stop with ctrl+c or SIGTERM; a run in progress is allowed to finish.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reload := make(chan struct{}, 1)
	if configWatcher != nil {
		watcher := configWatcher
		go func() {
			err := watcher.Watch(ctx, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
			if err != nil {
				logger.Warn("daemon: config watch stopped: %v", err)
			}
		}()
	}

	cmd.Println("appwatch daemon started.")
	for {
		runCtx, cancel := context.WithCancel(ctx)
		current := scheduler
		errCh := make(chan error, 1)
		go func() {
			errCh <- current.Start(runCtx)
		}()

		select {
		case err := <-errCh:
			cancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			cmd.Println("appwatch daemon stopped.")
			return nil

		case <-ctx.Done():
			cancel()
			_ = current.Stop()
			<-errCh
			cmd.Println("appwatch daemon stopped.")
			return nil

		case <-reload:
			cancel()
			_ = current.Stop()
			<-errCh
			if err := rebuild(); err != nil {
				return err
			}
			if scheduler == nil {
				return errors.New("scheduler service not configured")
			}
			logger.Info("daemon: configuration reloaded")
			cmd.Println("Configuration reloaded.")
		}
	}
}
