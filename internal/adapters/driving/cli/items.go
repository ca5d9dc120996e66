package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/appwatch-labs/appwatch/internal/adapters/driving/tui/styles"
	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

var addCmd = &cobra.Command{
	Use:   "add [url|id]...",
	Short: "Start tracking App Store listings",
	Long: `Looks up each listing in the App Store catalog and starts tracking it.

A listing is given as its App Store link, e.g.
  https://apps.apple.com/gb/app/example/id123456789
or as a bare numeric id, which uses the US storefront.

Use --file to import a watchlist:
  entries:
    - url: https://apps.apple.com/us/app/example/id123456789
      ownership: self`,
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked apps",
	RunE:  runList,
}

var removeCmd = &cobra.Command{
	Use:   "remove [key]",
	Short: "Stop tracking an app and drop its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var ownCmd = &cobra.Command{
	Use:   "own [key] [self|competitor]",
	Short: "Change whether an app is yours or a competitor's",
	Long: `Sets the ownership class of a tracked app. Only your own live apps are
checked by the background refresh.`,
	Args: cobra.ExactArgs(2),
	RunE: runOwn,
}

var historyCmd = &cobra.Command{
	Use:   "history [key]",
	Short: "Show an app's status transitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var (
	addSelf        bool
	addFile        string
	listSelf       bool
	listCompetitor bool
	listStatus     string
	listJSON       bool
	historyLimit   int
)

func init() {
	addCmd.Flags().BoolVar(&addSelf, "self", false, "track as your own app")
	addCmd.Flags().StringVarP(&addFile, "file", "f", "", "import a YAML watchlist")
	listCmd.Flags().BoolVar(&listSelf, "self", false, "only your own apps")
	listCmd.Flags().BoolVar(&listCompetitor, "competitor", false, "only competitor apps")
	listCmd.Flags().StringVar(&listStatus, "status", "", "only apps with status live, removed or unavailable")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	listCmd.MarkFlagsMutuallyExclusive("self", "competitor")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum records to show (0 for all)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(ownCmd)
	rootCmd.AddCommand(historyCmd)
}

// watchlist is the YAML import format.
type watchlist struct {
	Entries []watchlistEntry `yaml:"entries"`
}

type watchlistEntry struct {
	URL       string `yaml:"url"`
	Ownership string `yaml:"ownership"`
}

// loadWatchlist reads a watchlist and groups its references by ownership.
func loadWatchlist(path string, fallback domain.Ownership) (map[domain.Ownership][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading watchlist: %w", err)
	}

	var wl watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parsing watchlist: %w", err)
	}

	groups := make(map[domain.Ownership][]string)
	for i, e := range wl.Entries {
		if strings.TrimSpace(e.URL) == "" {
			return nil, fmt.Errorf("watchlist entry %d: url is required", i+1)
		}
		ownership := fallback
		if e.Ownership != "" {
			ownership, err = domain.ParseOwnership(e.Ownership)
			if err != nil {
				return nil, fmt.Errorf("watchlist entry %d: %w", i+1, err)
			}
		}
		groups[ownership] = append(groups[ownership], e.URL)
	}
	return groups, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	if itemService == nil {
		return errors.New("item service not configured")
	}

	ownership := domain.OwnershipCompetitor
	if addSelf {
		ownership = domain.OwnershipSelf
	}

	groups := make(map[domain.Ownership][]string)
	if addFile != "" {
		var err error
		groups, err = loadWatchlist(addFile, ownership)
		if err != nil {
			return err
		}
	}
	groups[ownership] = append(groups[ownership], args...)

	total := 0
	for _, o := range []domain.Ownership{domain.OwnershipSelf, domain.OwnershipCompetitor} {
		refs := groups[o]
		if len(refs) == 0 {
			continue
		}
		total += len(refs)

		result, err := itemService.Add(cmd.Context(), refs, o)
		if err != nil {
			return fmt.Errorf("failed to add apps: %w", err)
		}
		for _, item := range result.Added {
			cmd.Printf("Added %s (%s) as %s\n", item.Name, item.Key, item.Ownership)
		}
		for _, key := range result.Existing {
			cmd.Printf("Already tracking %s\n", key)
		}
		for ref, reason := range result.Failed {
			cmd.PrintErrf("Could not add %s: %v\n", ref, reason)
		}
	}

	if total == 0 {
		return errors.New("no apps given: pass links or ids, or --file")
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if itemService == nil {
		return errors.New("item service not configured")
	}

	var filter domain.ItemFilter
	switch {
	case listSelf:
		filter.Ownership = domain.OwnershipSelf
	case listCompetitor:
		filter.Ownership = domain.OwnershipCompetitor
	}
	if listStatus != "" {
		status, err := domain.ParseStatus(listStatus)
		if err != nil {
			return err
		}
		filter.Status = status
	}

	items, err := itemService.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list apps: %w", err)
	}

	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if items == nil {
			items = []domain.TrackedItem{}
		}
		return enc.Encode(items)
	}

	if len(items) == 0 {
		cmd.Println("No apps tracked. Add one with 'appwatch add <link>'.")
		return nil
	}

	st := styles.DefaultStyles()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tNAME\tSTATUS\tOWNER\tLAST CHECKED")
	for i := range items {
		item := &items[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.Key, item.Name, st.Status(item.Status).Render(string(item.Status)),
			item.Ownership, formatTime(item.LastCheckedAt))
	}
	return w.Flush()
}

func runRemove(cmd *cobra.Command, args []string) error {
	if itemService == nil {
		return errors.New("item service not configured")
	}

	key, err := parseKeyArg(args[0])
	if err != nil {
		return err
	}
	if err := itemService.Remove(cmd.Context(), key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	cmd.Printf("Stopped tracking %s.\n", key)
	return nil
}

func runOwn(cmd *cobra.Command, args []string) error {
	if itemService == nil {
		return errors.New("item service not configured")
	}

	key, err := parseKeyArg(args[0])
	if err != nil {
		return err
	}
	ownership, err := domain.ParseOwnership(args[1])
	if err != nil {
		return err
	}
	if err := itemService.SetOwnership(cmd.Context(), key, ownership); err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}
	cmd.Printf("%s is now tracked as %s.\n", key, ownership)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if itemService == nil {
		return errors.New("item service not configured")
	}

	key, err := parseKeyArg(args[0])
	if err != nil {
		return err
	}
	records, err := itemService.History(cmd.Context(), key, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history for %s: %w", key, err)
	}
	if len(records) == 0 {
		cmd.Printf("No transitions recorded for %s.\n", key)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AT\tKIND\tFROM\tTO")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.At.Local().Format(time.DateTime), r.Kind, r.OldValue, r.NewValue)
	}
	return w.Flush()
}

// parseKeyArg accepts an item key ("123-us"), an App Store link or a bare id.
func parseKeyArg(arg string) (domain.ItemKey, error) {
	if key, err := domain.ParseItemKey(arg); err == nil {
		return key, nil
	}
	return domain.ParseListingRef(arg, "")
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
