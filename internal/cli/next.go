package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/orchestrator"
)

var (
	nextDryRun bool
	nextForce  bool
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Run the first incomplete item end to end",
	Args:  cobra.NoArgs,
	RunE:  runNext,
}

func init() {
	nextCmd.Flags().BoolVar(&nextDryRun, "dry-run", false, "show the item that would run without running it")
	nextCmd.Flags().BoolVarP(&nextForce, "force", "f", false, "run the agent even if a phase would be skipped")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, nextDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orchestrator().OrchestrateNext(cmd.Context(), orchestrator.Options{
		DryRun: nextDryRun,
		Force:  nextForce,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.ItemID == "" {
		fmt.Fprintln(out, "nothing to do: all items are done")
		return nil
	}
	if res.DryRun {
		fmt.Fprintf(out, "next item: %s\n", res.ItemID)
		fmt.Fprintln(out, orchestrator.NoChangesLine)
		return nil
	}
	fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s is %s", res.ItemID, res.Item.FinalState)))
	return nil
}
