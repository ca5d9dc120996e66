package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui"
	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/styles"
	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

var backgroundCmd = &cobra.Command{
	Use:   "background",
	Short: "Run or inspect the unattended refresh",
	Long: `The unattended refresh checks your own live apps one at a time within a
bounded execution window, and notifies you when one is removed.`,
}

var backgroundRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one unattended refresh now",
	Long: `Runs the unattended refresh once, as the daemon would. The run stops when
its budget expires; apps already checked keep their new status.

Suitable for cron or launchd.`,
	RunE: runBackgroundRun,
}

var backgroundStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show when the unattended refresh ran and runs next",
	RunE:  runBackgroundStatus,
}

var (
	backgroundBudget time.Duration
	backgroundLimit  int
)

func init() {
	backgroundRunCmd.Flags().DurationVar(&backgroundBudget, "budget", 0, "execution window (default from background.budget)")
	backgroundStatusCmd.Flags().IntVarP(&backgroundLimit, "limit", "n", 10, "number of past runs to show")
	backgroundCmd.AddCommand(backgroundRunCmd)
	backgroundCmd.AddCommand(backgroundStatusCmd)
	rootCmd.AddCommand(backgroundCmd)
}

func runBackgroundRun(cmd *cobra.Command, _ []string) error {
	if backgroundRefresher == nil {
		return errors.New("background service not configured")
	}

	budget := backgroundBudget
	if budget <= 0 {
		budget = domain.DefaultBackgroundBudget
		if settingsService != nil {
			cfg := settingsService.EngineConfig()
			if b := cfg.BackgroundTask().Budget; b > 0 {
				budget = b
			}
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), budget)
	defer cancel()

	cmd.Printf("Checking your apps (budget %s)...\n", budget)
	summary, err := backgroundRefresher.RunCycle(ctx)
	cmd.Println(tui.RenderSummary(styles.DefaultStyles(), summary))
	if err != nil {
		return fmt.Errorf("background refresh incomplete: %w", err)
	}
	return nil
}

func runBackgroundStatus(cmd *cobra.Command, _ []string) error {
	if schedulerStatus == nil {
		return errors.New("scheduler service not configured")
	}

	ctx := cmd.Context()
	task, err := schedulerStatus.Task(ctx)
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}
	if task == nil {
		cmd.Println("The unattended refresh has not been scheduled yet. Start 'appwatch daemon' or run 'appwatch background run'.")
		return nil
	}

	enabled := "yes"
	if !task.Enabled {
		enabled = "no"
	}
	cmd.Printf("Task:         %s\n", task.Name)
	cmd.Printf("Enabled:      %s\n", enabled)
	cmd.Printf("Interval:     %s\n", task.Interval)
	cmd.Printf("Last run:     %s\n", formatTime(&task.LastRun))
	cmd.Printf("Last success: %s\n", formatTime(&task.LastSuccess))
	cmd.Printf("Next run:     %s\n", formatTime(&task.NextRun))
	if task.LastError != "" {
		cmd.Printf("Last error:   %s\n", task.LastError)
	}

	history, err := schedulerStatus.History(ctx, backgroundLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	cmd.Println()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tDURATION\tCHECKED\tRESULT")
	for _, r := range history {
		result := "ok"
		if !r.Success {
			result = r.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.StartedAt.Local().Format(time.DateTime),
			r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond), r.ItemsProcessed, result)
	}
	return w.Flush()
}
