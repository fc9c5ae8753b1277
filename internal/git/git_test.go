package git

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/wreckit/internal/logging"
	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

// fakeRunner records commands and answers them from a table keyed by the
// command line prefix.
type fakeRunner struct {
	calls   []string
	answers map[string]string
	fail    map[string]bool
}

func (f *fakeRunner) run(ctx context.Context, dir, name string, args ...string) (string, error) {
	line := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, line)
	for prefix := range f.fail {
		if strings.HasPrefix(line, prefix) {
			return "", errors.New(line + ": failed")
		}
	}
	for prefix, out := range f.answers {
		if strings.HasPrefix(line, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func newCLI(f *fakeRunner) *CLI {
	return NewCLI("/repo", "main", "wreckit/", logging.Discard()).WithRunner(f.run)
}

func TestCLI_PreparePhase_CreatesBranchForImplement(t *testing.T) {
	t.Parallel()

	f := &fakeRunner{fail: map[string]bool{"git rev-parse": true}}
	out, err := newCLI(f).PreparePhase(context.Background(), workflow.PhaseImplement, &state.Item{ID: "features/001-a"})
	require.NoError(t, err)

	assert.Equal(t, "wreckit/features/001-a", out.Branch)
	assert.Equal(t, []string{
		"git rev-parse --verify --quiet refs/heads/wreckit/features/001-a",
		"git switch -c wreckit/features/001-a main",
	}, f.calls)
}

func TestCLI_PreparePhase_SwitchesToExistingBranch(t *testing.T) {
	t.Parallel()

	branch := "custom/branch"
	f := &fakeRunner{}
	out, err := newCLI(f).PreparePhase(context.Background(), workflow.PhasePR, &state.Item{ID: "001-a", Branch: &branch})
	require.NoError(t, err)

	assert.Equal(t, "custom/branch", out.Branch)
	assert.Equal(t, "git switch custom/branch", f.calls[len(f.calls)-1])
}

func TestCLI_PreparePhase_PRNeedsBranch(t *testing.T) {
	t.Parallel()

	f := &fakeRunner{fail: map[string]bool{"git rev-parse": true}}
	_, err := newCLI(f).PreparePhase(context.Background(), workflow.PhasePR, &state.Item{ID: "001-a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestCLI_PreparePhase_ResearchTouchesNothing(t *testing.T) {
	t.Parallel()

	f := &fakeRunner{}
	out, err := newCLI(f).PreparePhase(context.Background(), workflow.PhaseResearch, &state.Item{ID: "001-a"})
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, f.calls)
}

func TestCLI_FinishPhase_OpensPR(t *testing.T) {
	t.Parallel()

	f := &fakeRunner{
		fail:    map[string]bool{"gh pr view": true},
		answers: map[string]string{"gh pr create": "Creating pull request...\nhttps://github.com/acme/app/pull/42"},
	}
	out, err := newCLI(f).FinishPhase(context.Background(), workflow.PhasePR, &state.Item{ID: "001-a", Title: "Add a"})
	require.NoError(t, err)

	assert.Equal(t, Outcome{Branch: "wreckit/001-a", PRURL: "https://github.com/acme/app/pull/42", PRNumber: 42}, out)
	assert.Equal(t, "git push -u origin wreckit/001-a", f.calls[0])
	assert.True(t, strings.HasPrefix(f.calls[2], "gh pr create --base main --head wreckit/001-a --title Add a"))
}

func TestCLI_FinishPhase_ReusesOpenPR(t *testing.T) {
	t.Parallel()

	f := &fakeRunner{answers: map[string]string{"gh pr view": "https://github.com/acme/app/pull/7"}}
	out, err := newCLI(f).FinishPhase(context.Background(), workflow.PhasePR, &state.Item{ID: "001-a"})
	require.NoError(t, err)

	assert.Equal(t, 7, out.PRNumber)
	for _, c := range f.calls {
		assert.NotContains(t, c, "pr create")
	}
}

func TestCLI_FinishPhase_PushFailure(t *testing.T) {
	t.Parallel()

	f := &fakeRunner{fail: map[string]bool{"git push": true}}
	_, err := newCLI(f).FinishPhase(context.Background(), workflow.PhasePR, &state.Item{ID: "001-a"})
	assert.Error(t, err)
}

func TestCLI_FinishPhase_OtherPhases(t *testing.T) {
	t.Parallel()

	f := &fakeRunner{}
	out, err := newCLI(f).FinishPhase(context.Background(), workflow.PhaseImplement, &state.Item{ID: "001-a"})
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, f.calls)
}

func TestPRNumberFromURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 123, PRNumberFromURL("https://github.com/o/r/pull/123"))
	assert.Equal(t, 123, PRNumberFromURL("https://github.com/o/r/pull/123/"))
	assert.Equal(t, 0, PRNumberFromURL("https://github.com/o/r/pull/new"))
	assert.Equal(t, 0, PRNumberFromURL(""))
}

func TestNoop(t *testing.T) {
	t.Parallel()

	out, err := Noop{}.PreparePhase(context.Background(), workflow.PhaseImplement, &state.Item{ID: "x"})
	assert.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
}

func TestRun_RealGit(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	_, err := Run(context.Background(), dir, "git", "init", "-q")
	require.NoError(t, err)

	_, err = Run(context.Background(), dir, "git", "rev-parse", "--verify", "--quiet", "refs/heads/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git rev-parse --verify --quiet refs/heads/nope")
}
