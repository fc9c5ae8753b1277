package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// resetFlags restores every command flag to its default. Cobra commands
// are package globals, so values leak between Execute calls otherwise.
func resetFlags() {
	repoDir, verbose, mockMode = "", false, false
	phaseForce, phaseDryRun = false, false
	runForce, runDryRun = false, false
	batchDryRun, batchNoResume, batchRetryFailed, batchForce = false, false, false, false
	nextDryRun, nextForce = false, false
	historyLimit = 20
	watchCron, watchNow, watchRetryFailed = "", false, false
	initForce, initPrompts = false, false
}

// execute runs the root command against dir and returns what it printed.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	isTerminal = func() bool { return false }

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--dir", dir}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// mustExecute is execute that fails the test on error.
func mustExecute(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := execute(t, dir, args...)
	require.NoError(t, err, "output:\n%s", out)
	return out
}
