package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/orchestrator"
)

var (
	runForce  bool
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run every remaining phase for one item",
	Long: `Drives one item from its current state through the rest of the pipeline,
stopping at the first failed phase. A done item is reported and left alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runForce, "force", "f", false, "run the agent even if a phase would be skipped")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "list the phases that would run without running them")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, runDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := orchestrator.Options{DryRun: runDryRun, Force: runForce}
	res, err := a.orchestrator().RunItem(cmd.Context(), args[0], opts, uuid.NewString())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.DryRun {
		if len(res.Planned) == 0 {
			fmt.Fprintf(out, "%s is done; nothing to run\n", res.ItemID)
		} else {
			names := make([]string, len(res.Planned))
			for i, p := range res.Planned {
				names[i] = p.String()
			}
			fmt.Fprintf(out, "would run %s: %s\n", res.ItemID, strings.Join(names, ", "))
		}
		fmt.Fprintln(out, orchestrator.NoChangesLine)
		return nil
	}

	for _, pr := range res.Phases {
		line := fmt.Sprintf("%s: %s -> %s", pr.Phase, pr.FromState, pr.ToState)
		if pr.Skipped {
			fmt.Fprintln(out, mutedStyle.Render(line+" (skipped: "+pr.SkipReason+")"))
			continue
		}
		fmt.Fprintln(out, okStyle.Render(line))
	}
	fmt.Fprintln(out, summaryStyle.Render(fmt.Sprintf("%s is %s", res.ItemID, res.FinalState)))
	return nil
}
