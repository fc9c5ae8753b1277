package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/orchestrator"
)

var (
	batchDryRun      bool
	batchNoResume    bool
	batchRetryFailed bool
	batchForce       bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every incomplete item in id order",
	Long: `Runs every item that is not done, in sorted id order, one at a time.

Items whose dependencies are not done are left for a later run. A failed
item does not stop the batch. Progress is checkpointed after each item, so
an interrupted batch resumes where it stopped unless --no-resume is given.
Items that failed in the resumed batch are skipped unless --retry-failed
is given.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "list the items that would run without running them")
	batchCmd.Flags().BoolVar(&batchNoResume, "no-resume", false, "ignore any saved batch progress")
	batchCmd.Flags().BoolVar(&batchRetryFailed, "retry-failed", false, "run items that failed in the resumed batch again")
	batchCmd.Flags().BoolVarP(&batchForce, "force", "f", false, "run the agent even if a phase would be skipped")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, batchDryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	handle := a.orchestrator().Start(cmd.Context(), orchestrator.Options{
		DryRun:      batchDryRun,
		NoResume:    batchNoResume,
		RetryFailed: batchRetryFailed,
		Force:       batchForce,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			a.log.Info("interrupt received, stopping batch")
			handle.Stop()
		case <-handle.Done():
		}
	}()

	// Item failures are reported in the summary, not as a command error.
	_, err = handle.Wait()
	return err
}
