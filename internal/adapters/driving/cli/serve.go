package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appwatch-labs/appwatch/internal/adapters/driving/httpapi"
	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tracked apps and refresh runs over HTTP",
	Long: `Starts the HTTP API:

  GET    /healthz
  GET    /api/items                     ?ownership=self|competitor&status=...
  GET    /api/items/{key}
  GET    /api/items/{key}/transitions   ?limit=N
  POST   /api/items/{key}/refresh
  POST   /api/refresh                   start checking every app
  GET    /api/refresh                   progress and last summary
  DELETE /api/refresh                   cancel the running check
  GET    /api/background                unattended refresh status

With --scheduler the unattended refresh also runs in this process.`,
	RunE: runServe,
}

var (
	serveAddr      string
	serveScheduler bool
)

// shutdownTimeout bounds how long open requests may take after a stop signal.
const shutdownTimeout = 10 * time.Second

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveScheduler, "scheduler", false, "also run the unattended refresh")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if itemService == nil || bulkRefresher == nil || singleRefresher == nil {
		return errors.New("refresh service not configured")
	}

	addr := serveAddr
	if addr == "" && settingsService != nil {
		addr = settingsService.EngineConfig().ServerAddr
	}
	if addr == "" {
		addr = domain.DefaultServerAddr
	}

	var opts httpapi.Options
	if rootOpts.Verbose {
		opts.AccessLog = os.Stderr
	}
	srv, err := httpapi.NewServer(httpapi.Ports{
		Items:  itemService,
		Bulk:   bulkRefresher,
		Single: singleRefresher,
		Status: schedulerStatus,
	}, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveScheduler && scheduler != nil {
		sched := scheduler
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("serve: scheduler stopped: %v", err)
			}
		}()
		defer func() { _ = sched.Stop() }()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()
	cmd.Printf("Serving on %s\n", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	bulkRefresher.Cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	cmd.Println("Server stopped.")
	return nil
}
