package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/orchestrator"
	"github.com/thruflo/wreckit/internal/state"
)

// progressChecker probes the pid recorded in the progress file. Tests
// override it.
var progressChecker orchestrator.ProcessChecker = orchestrator.SignalChecker{}

var progressCmd = &cobra.Command{
	Use:   "progress [show|clear]",
	Short: "Show or clear the saved batch progress",
	Long: `Shows the checkpoint left by the last batch run, including whether a
new batch would resume from it. "clear" deletes the checkpoint so the next
batch starts fresh.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"show", "clear"},
	RunE:      runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	action := "show"
	if len(args) == 1 {
		action = args[0]
	}

	dir, store, err := openStore()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	switch action {
	case "show":
		log := newLogger(cmd, nil)
		cfg := config.LoadConfigOrDefault(dir, log)
		p, err := store.LoadBatchProgress()
		if err != nil {
			return err
		}
		if p == nil {
			fmt.Fprintln(out, "no batch progress")
			return nil
		}
		showProgress(out, p, cfg, time.Now())
		return nil
	case "clear":
		if err := store.DeleteBatchProgress(); err != nil {
			return err
		}
		fmt.Fprintln(out, "batch progress cleared")
		return nil
	default:
		return fmt.Errorf("unknown progress action %q (expected show or clear)", action)
	}
}

func showProgress(out io.Writer, p *state.BatchProgress, cfg *config.Config, now time.Time) {
	current := "none"
	if p.CurrentItem != nil {
		current = *p.CurrentItem
	}

	fmt.Fprintln(out, headerStyle.Render("Batch "+p.SessionID))
	fmt.Fprintf(out, "  PID:        %d\n", p.PID)
	fmt.Fprintf(out, "  Started:    %s\n", p.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "  Updated:    %s\n", p.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "  Current:    %s\n", current)
	fmt.Fprintf(out, "  Queued:     %s\n", listOrNone(p.QueuedItems))
	fmt.Fprintf(out, "  Completed:  %s\n", listOrNone(p.Completed))
	fmt.Fprintf(out, "  Failed:     %s\n", listOrNone(p.Failed))
	if p.HealingAttempts > 0 {
		fmt.Fprintf(out, "  Healing:    %d\n", p.HealingAttempts)
	}

	switch {
	case !progressChecker.Alive(p.PID):
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("stale: process %d is not running", p.PID)))
	case now.Sub(p.LastActivity()) > cfg.StaleAfter():
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("stale: no activity for more than %s", cfg.StaleAfter())))
	default:
		fmt.Fprintln(out, okStyle.Render("resumable"))
	}
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
