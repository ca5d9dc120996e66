package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui"
	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/styles"
	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [key]",
	Short: "Check tracked apps against the App Store now",
	Long: `Checks whether tracked apps are still listed in the App Store.
If a key, link or id is provided, only that app is checked.
Otherwise, every tracked app is checked, yours and competitors'.

Press esc or ctrl+c to cancel a bulk check; apps already checked keep
their new status.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

var refreshPlain bool

// progressInterval is how often plain output polls a bulk run.
var progressInterval = 500 * time.Millisecond

func init() {
	refreshCmd.Flags().BoolVar(&refreshPlain, "plain", false, "print plain progress lines instead of the progress bar")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return refreshOne(cmd, args[0])
	}
	return refreshAll(cmd)
}

func refreshOne(cmd *cobra.Command, arg string) error {
	if singleRefresher == nil {
		return errors.New("refresh service not configured")
	}

	key, err := parseKeyArg(arg)
	if err != nil {
		return err
	}

	result, err := singleRefresher.Refresh(cmd.Context(), key)
	if errors.Is(err, domain.ErrRefreshInProgress) {
		return errors.New("a check is already running, try again shortly")
	}
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	cmd.Println(describeResult(result))
	if result.Kind == domain.ResultSkipped || result.Kind == domain.ResultFailed {
		return fmt.Errorf("refresh failed: %w", result.Err)
	}
	return nil
}

func refreshAll(cmd *cobra.Command) error {
	if bulkRefresher == nil {
		return errors.New("refresh service not configured")
	}

	ctx := cmd.Context()
	summaries, err := bulkRefresher.RefreshAll(ctx)
	if errors.Is(err, domain.ErrRefreshInProgress) {
		return errors.New("a refresh is already running")
	}
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	var summary *domain.CycleSummary
	if !refreshPlain && isTerminal(cmd.OutOrStdout()) {
		summary, err = tui.Run(ctx, tui.NewPorts(bulkRefresher), summaries, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if summary == nil {
			cmd.Println("Refresh cancelled; apps already checked keep their new status.")
		}
		return nil
	}

	summary = refreshWithProgress(ctx, cmd, bulkRefresher, summaries)
	if summary == nil {
		return errors.New("refresh ended without a summary")
	}
	cmd.Println(tui.RenderSummary(styles.DefaultStyles(), *summary))
	return nil
}

// refreshWithProgress waits for the run's summary while printing progress.
// An interrupt cancels the run and keeps waiting for its summary.
func refreshWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	refresher driving.BulkRefresher,
	summaries <-chan domain.CycleSummary,
) *domain.CycleSummary {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastChecked := -1
	for {
		select {
		case summary, ok := <-summaries:
			if !ok {
				return nil
			}
			if lastChecked >= 0 {
				cmd.Println()
			}
			return &summary
		case <-ticker.C:
			p := refresher.Progress()
			if p.Checked != lastChecked {
				cmd.Printf("\rChecked %d/%d apps", p.Checked, p.Total)
				lastChecked = p.Checked
			}
		case <-interrupts:
			cmd.Println("\nCancelling...")
			refresher.Cancel()
		case <-ctx.Done():
			refresher.Cancel()
			ctx = context.Background()
		}
	}
}

// describeResult renders one check result as a sentence.
func describeResult(r domain.CheckResult) string {
	name := r.Key.String()
	if r.ItemName != "" {
		name = fmt.Sprintf("%s (%s)", r.ItemName, r.Key)
	}

	switch r.Kind {
	case domain.ResultChanged:
		return fmt.Sprintf("%s: %s -> %s", name, r.From, r.To)
	case domain.ResultUnchanged:
		if r.Outcome == domain.OutcomeUnavailable {
			return fmt.Sprintf("%s: could not be checked, status unchanged", name)
		}
		return fmt.Sprintf("%s: still %s", name, r.Outcome)
	case domain.ResultCancelled:
		return fmt.Sprintf("%s: cancelled", name)
	default:
		return fmt.Sprintf("%s: %s: %v", name, r.Kind, r.Err)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
