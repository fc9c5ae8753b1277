package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/history"
	"github.com/thruflo/wreckit/internal/orchestrator"
	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/testutil"
)

func seedScenario(t *testing.T, store *state.Store) {
	t.Helper()
	for _, id := range testutil.ScenarioIDs {
		testutil.SeedItem(t, store, id, state.StateRaw)
	}
}

func TestPhaseCommand(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw)

	out := mustExecute(t, dir, "--mock", "phase", "research", "001-a")
	assert.Contains(t, out, "research 001-a: raw -> researched")
	testutil.AssertItemState(t, store, "001-a", state.StateResearched)
}

func TestPhaseCommand_InvalidTransition(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateDone)

	_, err := execute(t, dir, "--mock", "phase", "implement", "001-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "done")
	testutil.AssertItemState(t, store, "001-a", state.StateDone)
}

func TestPhaseCommand_UnknownPhase(t *testing.T) {
	dir, _ := testutil.SetupTestDir(t)

	_, err := execute(t, dir, "--mock", "phase", "deploy", "001-a")
	require.Error(t, err)
}

func TestPhaseCommand_SkipAndForce(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateResearched)
	testutil.WriteArtifact(t, store, "001-a", state.ResearchFileName, testutil.SampleResearch)

	out := mustExecute(t, dir, "--mock", "phase", "research", "001-a")
	assert.Contains(t, out, "skipped research on 001-a")

	out = mustExecute(t, dir, "--mock", "phase", "research", "001-a", "--force")
	assert.Contains(t, out, "research 001-a: researched -> researched")
}

func TestPhaseCommand_DryRun(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw)
	before := testutil.TakeSnapshot(t, store.Dir())

	out := mustExecute(t, dir, "phase", "research", "001-a", "--dry-run")
	assert.Contains(t, out, "would run research on 001-a (raw -> researched)")
	assert.Contains(t, out, orchestrator.NoChangesLine)
	testutil.AssertSnapshotUnchanged(t, before, store.Dir())
}

func TestRunCommand(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw)

	out := mustExecute(t, dir, "--mock", "run", "001-a")
	assert.Contains(t, out, "research: raw -> researched")
	assert.Contains(t, out, "complete: in_pr -> done")
	assert.Contains(t, out, "001-a is done")
	testutil.AssertItemState(t, store, "001-a", state.StateDone)
}

func TestRunCommand_DryRun(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StatePlanned)
	before := testutil.TakeSnapshot(t, store.Dir())

	out := mustExecute(t, dir, "run", "001-a", "--dry-run")
	assert.Contains(t, out, "would run 001-a: implement, pr, complete")
	assert.Contains(t, out, orchestrator.NoChangesLine)
	testutil.AssertSnapshotUnchanged(t, before, store.Dir())
}

func TestRunCommand_NotFound(t *testing.T) {
	dir, _ := testutil.SetupTestDir(t)

	_, err := execute(t, dir, "--mock", "run", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, state.ErrItemNotFound)
}

func TestBatchCommand(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	seedScenario(t, store)

	out := mustExecute(t, dir, "--mock", "batch")
	assert.Contains(t, out, "completed: 3, failed: 0, skipped: 0, remaining: 0")
	for _, id := range testutil.ScenarioIDs {
		assert.Contains(t, out, "completed "+id)
		testutil.AssertItemState(t, store, id, state.StateDone)
	}
	testutil.AssertProgressAbsent(t, store)
}

func TestBatchCommand_DryRun(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	seedScenario(t, store)
	before := testutil.TakeSnapshot(t, store.Dir())

	out := mustExecute(t, dir, "batch", "--dry-run")
	assert.Contains(t, out, "would run: bugs/001-first, features/001-first, features/002-second")
	assert.Contains(t, out, orchestrator.NoChangesLine)
	testutil.AssertSnapshotUnchanged(t, before, store.Dir())
}

func TestBatchCommand_DependencyBlocked(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw, "002-missing")

	out := mustExecute(t, dir, "--mock", "batch")
	assert.Contains(t, out, "remaining: 001-a")
	testutil.AssertItemState(t, store, "001-a", state.StateRaw)
}

func TestBatchCommand_FailedItemIsReported(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw)
	testutil.SeedItem(t, store, "002-b", state.StateDone)
	testutil.WriteTestFile(t, dir, ".wreckit/config.yaml", []byte(`agent:
  kind: process
  command: sh
  args: ["-c", "cat >/dev/null; exit 3"]
  prompt_mode: stdin
  completion_signal: DONE
  timeout_seconds: 30
base_branch: main
branch_prefix: wreckit/
batch:
  stale_after_hours: 24
`))

	out := mustExecute(t, dir, "batch")
	assert.Contains(t, out, "completed: 0, failed: 1, skipped: 1, remaining: 0")
	assert.Contains(t, out, "failed 001-a: ")
	testutil.AssertLastError(t, store, "001-a", "exited with code 3")
	testutil.AssertItemState(t, store, "001-a", state.StateRaw)
}

func TestBatchCommand_NothingToDo(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateDone)

	out := mustExecute(t, dir, "--mock", "batch")
	assert.Contains(t, out, "completed: 0, failed: 0, skipped: 1, remaining: 0")
}

func TestNextCommand(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	seedScenario(t, store)

	out := mustExecute(t, dir, "--mock", "next")
	assert.Contains(t, out, "bugs/001-first is done")
	testutil.AssertItemState(t, store, "bugs/001-first", state.StateDone)
	testutil.AssertItemState(t, store, "features/001-first", state.StateRaw)
}

func TestNextCommand_NothingToDo(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateDone)

	out := mustExecute(t, dir, "--mock", "next")
	assert.Contains(t, out, "nothing to do")
}

func TestProgressCommand(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)

	out := mustExecute(t, dir, "progress")
	assert.Contains(t, out, "no batch progress")

	current := "features/001-first"
	require.NoError(t, store.SaveBatchProgress(&state.BatchProgress{
		SessionID:   "session-1",
		PID:         4242,
		QueuedItems: testutil.ScenarioIDs,
		CurrentItem: &current,
		Completed:   []string{"bugs/001-first"},
		Failed:      []string{},
		Skipped:     []string{},
	}))

	progressChecker = testutil.NewFakeChecker(4242)
	t.Cleanup(func() { progressChecker = orchestrator.SignalChecker{} })

	out = mustExecute(t, dir, "progress", "show")
	assert.Contains(t, out, "Batch session-1")
	assert.Contains(t, out, "features/001-first")
	assert.Contains(t, out, "resumable")

	progressChecker = testutil.NewFakeChecker()
	out = mustExecute(t, dir, "progress")
	assert.Contains(t, out, "stale: process 4242 is not running")

	out = mustExecute(t, dir, "progress", "clear")
	assert.Contains(t, out, "batch progress cleared")
	testutil.AssertProgressAbsent(t, store)
}

func TestProgressCommand_UnknownAction(t *testing.T) {
	dir, _ := testutil.SetupTestDir(t)

	_, err := execute(t, dir, "progress", "purge")
	require.Error(t, err)
}

func TestShowProgress_ExpiredActivity(t *testing.T) {
	progressChecker = testutil.NewFakeChecker(7)
	t.Cleanup(func() { progressChecker = orchestrator.SignalChecker{} })

	cfg := config.DefaultConfig()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	p := &state.BatchProgress{SessionID: "s", PID: 7, UpdatedAt: now.Add(-25 * time.Hour)}

	var out strings.Builder
	showProgress(&out, p, &cfg, now)
	assert.Contains(t, out.String(), "stale: no activity")
}

func TestStatusCommand(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw)
	item := testutil.SeedItem(t, store, "002-b", state.StatePlanned)
	item.SetLastError("agent exited with code 1")
	require.NoError(t, store.SaveItem(item))
	testutil.SeedItem(t, store, "003-c", state.StateDone)

	out := mustExecute(t, dir, "status")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "NEXT")
	assert.Regexp(t, `001-a\s+raw\s+research`, out)
	assert.Regexp(t, `002-b\s+planned\s+implement\s+agent exited with code 1`, out)
	assert.Regexp(t, `003-c\s+done\s+-`, out)
}

func TestStatusCommand_Empty(t *testing.T) {
	dir, _ := testutil.SetupTestDir(t)

	out := mustExecute(t, dir, "status")
	assert.Contains(t, out, "No items found.")
}

func TestStatusCommand_Item(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateImplementing)
	testutil.WriteArtifact(t, store, "001-a", state.ResearchFileName, testutil.SampleResearch)
	testutil.WritePRD(t, store, testutil.SamplePRD("001-a", false))

	out := mustExecute(t, dir, "status", "001-a")
	assert.Contains(t, out, "Item Details")
	assert.Regexp(t, `State:\s+implementing`, out)
	assert.Regexp(t, `Next:\s+pr`, out)
	assert.Regexp(t, `research.md:\s+present`, out)
	assert.Regexp(t, `plan.md:\s+missing`, out)
	assert.Regexp(t, `Stories:\s+1/2 done`, out)
}

func TestStatusCommand_NotInitialized(t *testing.T) {
	_, err := execute(t, t.TempDir(), "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wreckit init")
}

func TestHistoryCommand(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw)
	testutil.SeedItem(t, store, "002-b", state.StateRaw)

	out := mustExecute(t, dir, "history")
	assert.Contains(t, out, "No runs recorded.")

	mustExecute(t, dir, "--mock", "phase", "research", "001-a")
	mustExecute(t, dir, "--mock", "phase", "research", "002-b")

	out = mustExecute(t, dir, "history")
	assert.Contains(t, out, "001-a  research  ok")
	assert.Contains(t, out, "002-b  research  ok")

	out = mustExecute(t, dir, "history", "002-b")
	assert.NotContains(t, out, "001-a")
	assert.Contains(t, out, "002-b")

	out = mustExecute(t, dir, "history", "--limit", "1")
	assert.Contains(t, out, "002-b")
	assert.NotContains(t, out, "001-a")
}

func TestHistoryCommand_DryRunRecordsNothing(t *testing.T) {
	dir, store := testutil.SetupTestDir(t)
	testutil.SeedItem(t, store, "001-a", state.StateRaw)

	mustExecute(t, dir, "phase", "research", "001-a", "--dry-run")

	_, err := os.Stat(history.Path(dir))
	assert.True(t, os.IsNotExist(err))
}

func TestWatchCommand_RequiresCron(t *testing.T) {
	dir, _ := testutil.SetupTestDir(t)

	_, err := execute(t, dir, "--mock", "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cron expression")
}

func TestWatchCommand_InvalidCron(t *testing.T) {
	dir, _ := testutil.SetupTestDir(t)

	_, err := execute(t, dir, "--mock", "watch", "--cron", "not a cron")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	out := mustExecute(t, dir, "init")
	assert.Contains(t, out, "Initialized .wreckit")

	wreckitDir := filepath.Join(dir, ".wreckit")
	assert.DirExists(t, filepath.Join(wreckitDir, "items"))
	assert.FileExists(t, filepath.Join(wreckitDir, ".gitignore"))
	assert.NoDirExists(t, filepath.Join(wreckitDir, "prompts"))

	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().BaseBranch, cfg.BaseBranch)

	info, err := os.Stat(filepath.Join(wreckitDir, config.EnvFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	env, err := config.LoadEnvFile(dir)
	require.NoError(t, err)
	assert.Empty(t, env["SPRITE_TOKEN"])
}

func TestInitCommand_ExistingDir(t *testing.T) {
	dir := t.TempDir()
	mustExecute(t, dir, "init")

	_, err := execute(t, dir, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	path := config.ConfigPath(dir)
	require.NoError(t, os.WriteFile(path, []byte("base_branch: trunk\n"), 0o644))
	mustExecute(t, dir, "init", "--force")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Template, string(data))
}

func TestInitCommand_Prompts(t *testing.T) {
	dir := t.TempDir()
	mustExecute(t, dir, "init")

	path := filepath.Join(dir, ".wreckit", config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("base_branch: trunk\n"), 0o644))

	mustExecute(t, dir, "init", "--prompts")
	for _, name := range []string{"research", "plan", "implement", "pr", "complete"} {
		assert.FileExists(t, filepath.Join(dir, ".wreckit", "prompts", name+".md"))
	}

	// Existing files are kept without --force.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "base_branch: trunk\n", string(data))
}
