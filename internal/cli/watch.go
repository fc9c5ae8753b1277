package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/orchestrator"
	"github.com/thruflo/wreckit/internal/schedule"
)

var (
	watchCron        string
	watchNow         bool
	watchRetryFailed bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run batches on a cron schedule",
	Long: `Runs a batch over every incomplete item each time the cron expression
fires, until interrupted. A tick that arrives while a batch is still running
is skipped.

The expression defaults to schedule.cron in .wreckit/config.yaml and accepts
five fields or descriptors such as @hourly.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchCron, "cron", "", "cron expression (default: schedule.cron from config)")
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "run a batch immediately before the first tick")
	watchCmd.Flags().BoolVar(&watchRetryFailed, "retry-failed", false, "retry items that failed in a resumed batch")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	expr := watchCron
	if expr == "" {
		expr = a.cfg.Schedule.Cron
	}
	if expr == "" {
		return errors.New("no cron expression: pass --cron or set schedule.cron in .wreckit/config.yaml")
	}

	opts := orchestrator.Options{RetryFailed: watchRetryFailed || a.cfg.Schedule.RetryFailed}
	orch := a.orchestrator()
	job := func(ctx context.Context) error {
		_, err := orch.OrchestrateAll(ctx, opts)
		return err
	}

	sched, err := schedule.New(expr, job, a.log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf("watching with %q; next run at %s",
		expr, formatTime(sched.Next(time.Now())))))
	return sched.Run(ctx, watchNow)
}
