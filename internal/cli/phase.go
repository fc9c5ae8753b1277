package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/orchestrator"
	"github.com/thruflo/wreckit/internal/phase"
	"github.com/thruflo/wreckit/internal/workflow"
)

var (
	phaseForce  bool
	phaseDryRun bool
)

var phaseCmd = &cobra.Command{
	Use:   "phase <phase> <id>",
	Short: "Run a single phase for one item",
	Long: `Runs one pipeline phase (research, plan, implement, pr, complete) for
the given item.

A phase whose artifacts already exist is skipped unless --force is given.
With --dry-run the transition is validated and reported but nothing is
executed or written.`,
	Args: cobra.ExactArgs(2),
	RunE: runPhase,
}

func init() {
	phaseCmd.Flags().BoolVarP(&phaseForce, "force", "f", false, "run the agent even if the phase would be skipped")
	phaseCmd.Flags().BoolVar(&phaseDryRun, "dry-run", false, "report what would happen without running anything")
	rootCmd.AddCommand(phaseCmd)
}

func runPhase(cmd *cobra.Command, args []string) error {
	p, err := workflow.ParsePhase(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd, phaseDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.RunPhase(cmd.Context(), p, args[1], phase.Options{
		Force:     phaseForce,
		DryRun:    phaseDryRun,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.DryRun:
		fmt.Fprintf(out, "would run %s on %s (%s -> %s)\n", p, args[1], res.FromState, res.ToState)
		fmt.Fprintln(out, orchestrator.NoChangesLine)
	case res.Skipped:
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("skipped %s on %s: %s", p, args[1], res.SkipReason)))
	default:
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s %s: %s -> %s", p, args[1], res.FromState, res.ToState)))
	}
	return nil
}
