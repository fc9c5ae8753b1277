package cli

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thruflo/wreckit/internal/agent"
	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/git"
	"github.com/thruflo/wreckit/internal/history"
	"github.com/thruflo/wreckit/internal/logging"
	"github.com/thruflo/wreckit/internal/orchestrator"
	"github.com/thruflo/wreckit/internal/phase"
	"github.com/thruflo/wreckit/internal/prompt"
	"github.com/thruflo/wreckit/internal/state"
)

// isTerminal reports whether stdout is a terminal. Tests override it.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// resolveDir returns the repository root from --dir or the working
// directory.
func resolveDir() (string, error) {
	if repoDir != "" {
		return repoDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

// openStore resolves the repository and checks that it was initialized.
func openStore() (string, *state.Store, error) {
	dir, err := resolveDir()
	if err != nil {
		return "", nil, err
	}
	store := state.NewStore(dir)
	if !dirExists(store.Dir()) {
		return "", nil, fmt.Errorf("no .wreckit directory in %s (run 'wreckit init')", dir)
	}
	return dir, store, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logging.Logger {
	log := logging.Default()
	log.SetOutput(stdlog.New(cmd.ErrOrStderr(), "", stdlog.LstdFlags))

	level := logging.LevelWarn
	if cfg != nil && cfg.LogLevel != "" {
		if l, err := logging.ParseLevel(cfg.LogLevel); err == nil {
			level = l
		}
	}
	if verbose {
		level = logging.LevelDebug
	}
	log.SetLevel(level)
	return log
}

// app holds the collaborators of commands that run phases.
type app struct {
	dir     string
	out     io.Writer
	store   *state.Store
	cfg     *config.Config
	log     *logging.Logger
	engine  *phase.Engine
	history *history.Store
}

func newApp(cmd *cobra.Command, dryRun bool) (*app, error) {
	dir, store, err := openStore()
	if err != nil {
		return nil, err
	}

	log := newLogger(cmd, nil)
	cfg := config.LoadConfigOrDefault(dir, log)
	log = newLogger(cmd, cfg)
	store.SetLogger(log)

	mode := agent.ModeFor(dryRun, mockMode)
	var executor agent.Executor
	if mode == agent.ModeNormal {
		executor, err = agent.New(cfg.Agent, agent.Options{SpriteToken: spriteToken(dir, log), Log: log})
		if err != nil {
			return nil, err
		}
	}

	var collaborator git.Collaborator = git.Noop{}
	if mode == agent.ModeNormal {
		collaborator = git.NewCLI(dir, cfg.BaseBranch, cfg.BranchPrefix, log)
	}

	a := &app{dir: dir, out: cmd.OutOrStdout(), store: store, cfg: cfg, log: log}

	var recorder history.Recorder = history.Nop{}
	if !dryRun {
		hs, err := history.Open(history.Path(dir))
		if err != nil {
			log.Warn("run history disabled", "error", err)
		} else {
			a.history = hs
			recorder = hs
		}
	}

	var stdout, stderr io.Writer
	if verbose || isTerminal() {
		stdout, stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
	}

	a.engine = phase.NewEngine(phase.Deps{
		Store:   store,
		Config:  cfg,
		Runner:  agent.NewRunner(executor, mode, log),
		Prompts: prompt.ForRepo(dir),
		Git:     collaborator,
		History: recorder,
		Log:     log,
		Stdout:  stdout,
		Stderr:  stderr,
	})
	return a, nil
}

// orchestrator builds the batch orchestrator over the app's engine.
func (a *app) orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Deps{
		Store:    a.store,
		Config:   a.cfg,
		Phases:   a.engine,
		Reporter: &lineReporter{out: a.out},
		Log:      a.log,
	})
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn("failed to close run history", "error", err)
		}
	}
}

// spriteToken reads SPRITE_TOKEN from .wreckit/.sprite.env, falling back
// to the environment.
func spriteToken(dir string, log *logging.Logger) string {
	env, err := config.LoadEnvFile(dir)
	if err != nil {
		log.Warn("failed to read env file", "error", err)
	}
	if tok := env["SPRITE_TOKEN"]; tok != "" {
		return tok
	}
	return os.Getenv("SPRITE_TOKEN")
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// lineReporter prints one line per batch item and the final summary.
type lineReporter struct {
	out io.Writer
}

func (r *lineReporter) ItemStarted(id string) {
	fmt.Fprintln(r.out, mutedStyle.Render("running "+id))
}

func (r *lineReporter) ItemFinished(o orchestrator.ItemOutcome) {
	style := okStyle
	switch o.Status {
	case orchestrator.StatusFailed:
		style = failStyle
	case orchestrator.StatusBlocked, orchestrator.StatusStopped:
		style = warnStyle
	}
	fmt.Fprintln(r.out, style.Render(o.Line()))
}

func (r *lineReporter) BatchFinished(res *orchestrator.BatchResult) {
	printSummary(r.out, res.Summary())
}

func printSummary(out io.Writer, lines []string) {
	for i, line := range lines {
		if i == 0 {
			fmt.Fprintln(out, summaryStyle.Render(line))
			continue
		}
		fmt.Fprintln(out, line)
	}
}
