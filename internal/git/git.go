// Package git performs the branch and pull request side effects of the
// pipeline. The phase engine only sees the Collaborator interface.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/thruflo/wreckit/internal/logging"
	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

// Outcome is what a phase's git work produced. Empty fields leave the item
// unchanged.
type Outcome struct {
	Branch   string
	PRURL    string
	PRNumber int
}

// Collaborator runs git work around an agent phase.
type Collaborator interface {
	// PreparePhase runs before the agent, e.g. checking out the item branch.
	PreparePhase(ctx context.Context, phase workflow.Phase, item *state.Item) (Outcome, error)
	// FinishPhase runs after a successful agent run, e.g. opening the PR.
	FinishPhase(ctx context.Context, phase workflow.Phase, item *state.Item) (Outcome, error)
}

// Noop does nothing. It is used in mock mode and in tests.
type Noop struct{}

// PreparePhase implements Collaborator.
func (Noop) PreparePhase(context.Context, workflow.Phase, *state.Item) (Outcome, error) {
	return Outcome{}, nil
}

// FinishPhase implements Collaborator.
func (Noop) FinishPhase(context.Context, workflow.Phase, *state.Item) (Outcome, error) {
	return Outcome{}, nil
}

// RunFunc executes a command in dir and returns its trimmed combined output.
type RunFunc func(ctx context.Context, dir, name string, args ...string) (string, error)

// Run is the default RunFunc.
func Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	output := strings.TrimRight(string(out), " \t\r\n")
	if err != nil {
		return output, fmt.Errorf("%s %s: %s: %w", name, strings.Join(args, " "), output, err)
	}
	return output, nil
}

// CLI implements Collaborator with the git and gh command line tools.
type CLI struct {
	RepoPath     string
	BaseBranch   string
	BranchPrefix string
	Remote       string
	Log          *logging.Logger

	run RunFunc
}

// NewCLI creates a CLI collaborator for the repository at repoPath.
func NewCLI(repoPath, baseBranch, branchPrefix string, log *logging.Logger) *CLI {
	if log == nil {
		log = logging.Default()
	}
	return &CLI{
		RepoPath:     repoPath,
		BaseBranch:   baseBranch,
		BranchPrefix: branchPrefix,
		Remote:       "origin",
		Log:          log.Named("git"),
		run:          Run,
	}
}

// WithRunner replaces the command runner. Tests use it to record commands.
func (c *CLI) WithRunner(run RunFunc) *CLI {
	c.run = run
	return c
}

func (c *CLI) git(ctx context.Context, args ...string) (string, error) {
	return c.run(ctx, c.RepoPath, "git", args...)
}

func (c *CLI) gh(ctx context.Context, args ...string) (string, error) {
	return c.run(ctx, c.RepoPath, "gh", args...)
}

// BranchFor returns the branch an item works on.
func (c *CLI) BranchFor(item *state.Item) string {
	if item.Branch != nil && *item.Branch != "" {
		return *item.Branch
	}
	return c.BranchPrefix + item.ID
}

// PreparePhase checks out the item branch for the phases that change code.
// implement creates it from the base branch when missing.
func (c *CLI) PreparePhase(ctx context.Context, phase workflow.Phase, item *state.Item) (Outcome, error) {
	switch phase {
	case workflow.PhaseImplement, workflow.PhasePR, workflow.PhaseComplete:
	default:
		return Outcome{}, nil
	}

	branch := c.BranchFor(item)
	if _, err := c.git(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch); err == nil {
		if _, err := c.git(ctx, "switch", branch); err != nil {
			return Outcome{}, err
		}
		return Outcome{Branch: branch}, nil
	}

	if phase != workflow.PhaseImplement {
		return Outcome{}, fmt.Errorf("branch %s does not exist", branch)
	}
	c.Log.Info("creating branch", "branch", branch, "base", c.BaseBranch)
	if _, err := c.git(ctx, "switch", "-c", branch, c.BaseBranch); err != nil {
		return Outcome{}, err
	}
	return Outcome{Branch: branch}, nil
}

// FinishPhase pushes the branch and opens (or finds) the pull request
// after the pr phase. Other phases have nothing to finish.
func (c *CLI) FinishPhase(ctx context.Context, phase workflow.Phase, item *state.Item) (Outcome, error) {
	if phase != workflow.PhasePR {
		return Outcome{}, nil
	}

	branch := c.BranchFor(item)
	if _, err := c.git(ctx, "push", "-u", c.Remote, branch); err != nil {
		return Outcome{}, err
	}

	if url, err := c.gh(ctx, "pr", "view", branch, "--json", "url", "--jq", ".url"); err == nil && url != "" {
		c.Log.Debug("pull request already open", "url", url)
		return Outcome{Branch: branch, PRURL: url, PRNumber: PRNumberFromURL(url)}, nil
	}

	title := item.Title
	if title == "" {
		title = item.ID
	}
	out, err := c.gh(ctx, "pr", "create",
		"--base", c.BaseBranch,
		"--head", branch,
		"--title", title,
		"--body", prBody(item),
	)
	if err != nil {
		return Outcome{}, err
	}

	url := lastLine(out)
	c.Log.Info("opened pull request", "url", url)
	return Outcome{Branch: branch, PRURL: url, PRNumber: PRNumberFromURL(url)}, nil
}

func prBody(item *state.Item) string {
	var b strings.Builder
	if item.Overview != "" {
		b.WriteString(item.Overview)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Work item: `%s`\n", item.ID)
	return b.String()
}

// PRNumberFromURL extracts 123 from https://github.com/o/r/pull/123.
// Returns 0 when the URL has no trailing number.
func PRNumberFromURL(url string) int {
	url = strings.TrimRight(url, "/")
	i := strings.LastIndex(url, "/")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(url[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

var (
	_ Collaborator = Noop{}
	_ Collaborator = (*CLI)(nil)
)
