package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in ~/.appwatch/config.toml.

Available keys:
  probe.base_url               listing host (https://apps.apple.com)
  probe.timeout                per-probe timeout (15s)
  probe.requests_per_second    outbound probe rate (1)
  refresh.max_concurrency      bulk refresh workers (1)
  scheduler.enabled            master switch for unattended runs (true)
  background.enabled           unattended refresh task (true)
  background.interval          time between unattended runs (6h)
  background.budget            execution window of each run (30s)
  store.driver                 sqlite, postgres or memory (sqlite)
  store.path                   sqlite data directory (~/.appwatch/data)
  store.dsn                    postgres connection string
  notify.webhook_url           receives a POST when one of your apps is removed
  server.addr                  listen address of 'appwatch serve' (:8080)`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	RunE:  runSettingsPath,
}

// secretKeys are masked by show.
var secretKeys = map[string]bool{
	"store.dsn":          true,
	"notify.webhook_url": true,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, key := range settingsService.Keys() {
		value, set, err := settingsService.Get(key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		shown := "(default)"
		if set {
			shown = fmt.Sprint(value)
			if secretKeys[key] && shown != "" {
				shown = maskSecret(shown)
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", key, shown)
	}
	return w.Flush()
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	value, set, err := settingsService.Get(args[0])
	if err != nil {
		return err
	}
	if !set {
		cmd.Println("(default)")
		return nil
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s.\n", args[0])
	return nil
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	path := settingsService.Path()
	if path == "" {
		path = "(in memory)"
	}
	cmd.Println(path)
	return nil
}

// maskSecret hides all but the edges of a credential-bearing value.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
