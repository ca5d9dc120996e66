// Package cli implements the appwatch command line as a driving adapter.
// Commands reach the core only through the driving ports set by
// SetServices or built by the bootstrap function given to SetBootstrap.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// Verbose enables debug and info logging.
	Verbose bool

	// ConfigDir overrides the directory holding config.toml.
	ConfigDir string

	// Memory selects the in-memory store regardless of configuration.
	Memory bool
}

// ConfigWatcher reports edits to the configuration source.
type ConfigWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Services holds the driving ports commands run against.
type Services struct {
	Items      driving.ItemService
	Bulk       driving.BulkRefresher
	Single     driving.SingleRefresher
	Background driving.BackgroundRefresher
	Scheduler  driving.Scheduler
	Status     driving.SchedulerStatus
	Settings   driving.SettingsService
	Watcher    ConfigWatcher

	// Close releases stores and clients. May be nil.
	Close func() error
}

// Bootstrap builds the services for a command invocation.
type Bootstrap func(opts RootOptions) (*Services, error)

var (
	rootOpts  RootOptions
	bootstrap Bootstrap

	itemService         driving.ItemService
	bulkRefresher       driving.BulkRefresher
	singleRefresher     driving.SingleRefresher
	backgroundRefresher driving.BackgroundRefresher
	scheduler           driving.Scheduler
	schedulerStatus     driving.SchedulerStatus
	settingsService     driving.SettingsService
	configWatcher       ConfigWatcher
	closeServices       func() error
)

var rootCmd = &cobra.Command{
	Use:   "appwatch",
	Short: "Track App Store listing availability",
	Long: `appwatch tracks App Store listings and records when they are removed
from or restored to the store.

Your own apps are checked unattended by the daemon; every tracked app is
checked by 'appwatch refresh'.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigDir, "config", "", "config directory (default ~/.appwatch)")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.Memory, "memory", false, "use a throwaway in-memory store")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds services once flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects the driving ports directly.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	itemService = s.Items
	bulkRefresher = s.Bulk
	singleRefresher = s.Single
	backgroundRefresher = s.Background
	scheduler = s.Scheduler
	schedulerStatus = s.Status
	settingsService = s.Settings
	configWatcher = s.Watcher
	closeServices = s.Close
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(rootOpts.Verbose)
	if bootstrap == nil || cmd == versionCmd {
		return nil
	}
	return rebuild()
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// rebuild releases the current services and builds new ones from the
// current configuration.
func rebuild() error {
	if bootstrap == nil {
		return nil
	}
	var closeErr error
	if closeServices != nil {
		closeErr = closeServices()
		closeServices = nil
	}
	s, err := bootstrap(rootOpts)
	if err != nil {
		return errors.Join(closeErr, fmt.Errorf("initialising: %w", err))
	}
	SetServices(s)
	return closeErr
}
