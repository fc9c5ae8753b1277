package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recorded phase runs",
	Long: `Lists phase attempts recorded in .wreckit/history.db, newest first.
With an id, only that item's runs are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dir, _, err := openStore()
	if err != nil {
		return err
	}

	hs, err := history.Open(history.Path(dir))
	if err != nil {
		return err
	}
	defer hs.Close()

	opts := history.ListOptions{Limit: historyLimit}
	if len(args) == 1 {
		opts.ItemID = args[0]
	}
	runs, err := hs.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	for _, r := range runs {
		outcome := okStyle.Render("ok")
		switch {
		case r.Skipped:
			outcome = mutedStyle.Render("skipped")
		case r.TimedOut:
			outcome = failStyle.Render("timed out")
		case !r.Success:
			outcome = failStyle.Render("failed")
		}

		parts := []string{
			formatTime(r.StartedAt),
			r.ItemID,
			r.Phase,
			outcome,
			r.Duration.Round(100 * time.Millisecond).String(),
		}
		if r.ExitCode != nil {
			parts = append(parts, "exit "+strconv.Itoa(*r.ExitCode))
		}
		if r.Error != "" {
			parts = append(parts, truncate(r.Error, 60))
		}
		fmt.Fprintln(out, strings.Join(parts, "  "))
	}
	return nil
}
