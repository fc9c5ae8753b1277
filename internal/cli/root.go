package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	repoDir  string
	verbose  bool
	mockMode bool
)

var rootCmd = &cobra.Command{
	Use:   "wreckit",
	Short: "Drive work items through research, plan, implement and PR with a coding agent",
	Long: `Wreckit moves work items stored under .wreckit/items through a fixed
pipeline (research, plan, implement, pr, complete). Each phase is handed to
an external coding agent; batch runs checkpoint their progress so an
interrupted run can resume where it stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("wreckit version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&repoDir, "dir", "C", "", "repository root (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and always stream agent output")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "simulate the agent instead of running it")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
