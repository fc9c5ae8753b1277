// Package phase runs a single pipeline phase for a single item: it checks
// the transition, decides whether the phase can be skipped, runs the agent
// and persists the item's new state.
package phase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/thruflo/wreckit/internal/agent"
	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/git"
	"github.com/thruflo/wreckit/internal/history"
	"github.com/thruflo/wreckit/internal/logging"
	"github.com/thruflo/wreckit/internal/prompt"
	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

// Skip reasons reported in Result.SkipReason.
const (
	SkipAlreadyDone      = "already in target state"
	SkipArtifactsPresent = "artifacts present"
)

// Options control one RunPhase call.
type Options struct {
	// Force runs the agent even when a skip would apply.
	Force bool
	// DryRun reports what would happen and persists nothing.
	DryRun bool
	// SessionID tags history records with the batch that caused them.
	SessionID string
}

// Result describes the outcome of RunPhase.
type Result struct {
	Phase      workflow.Phase
	Success    bool
	Item       *state.Item
	Error      string
	Skipped    bool
	SkipReason string
	DryRun     bool
	FromState  state.ItemState
	ToState    state.ItemState
	Agent      *agent.Result
}

// Deps are the collaborators of an Engine. Store, Config and Runner are
// required; the rest default to no-ops.
type Deps struct {
	Store   *state.Store
	Config  *config.Config
	Runner  *agent.Runner
	Prompts *prompt.Loader
	Git     git.Collaborator
	History history.Recorder
	Log     *logging.Logger

	// Stdout and Stderr receive agent output as it streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Engine runs phases.
type Engine struct {
	store   *state.Store
	cfg     *config.Config
	runner  *agent.Runner
	prompts *prompt.Loader
	git     git.Collaborator
	history history.Recorder
	log     *logging.Logger
	stdout  io.Writer
	stderr  io.Writer
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(d Deps) *Engine {
	e := &Engine{
		store:   d.Store,
		cfg:     d.Config,
		runner:  d.Runner,
		prompts: d.Prompts,
		git:     d.Git,
		history: d.History,
		log:     d.Log,
		stdout:  d.Stdout,
		stderr:  d.Stderr,
		now:     time.Now,
	}
	if e.prompts == nil {
		e.prompts = prompt.ForRepo(d.Store.BasePath())
	}
	if e.git == nil {
		e.git = git.Noop{}
	}
	if e.history == nil {
		e.history = history.Nop{}
	}
	if e.log == nil {
		e.log = logging.Default()
	}
	e.log = e.log.Named("phase")
	return e
}

// RunPhase runs phase p for the item with the given id.
//
// Lookup failures wrap state.ErrItemNotFound. A phase requested from the
// wrong state (or on a done item) returns *InvalidTransitionError. A phase
// that ran and failed returns *ExecutionError along with the Result, after
// recording last_error on the item.
func (e *Engine) RunPhase(ctx context.Context, p workflow.Phase, itemID string, opts Options) (*Result, error) {
	item, err := e.store.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	tr, err := workflow.TransitionFor(p)
	if err != nil {
		return nil, err
	}

	log := e.log.With("item", item.ID).With("phase", string(p))
	res := &Result{Phase: p, FromState: item.State, ToState: tr.To}

	if item.IsDone() {
		return nil, &InvalidTransitionError{ItemID: item.ID, Phase: p, Expected: tr.From, Actual: item.State}
	}

	artifacts := e.artifactsPresent(p, item.ID)
	if item.State == tr.To && !opts.Force && artifacts {
		log.Info("skipping", "reason", SkipAlreadyDone, "state", string(item.State))
		res.Success = true
		res.Skipped = true
		res.SkipReason = SkipAlreadyDone
		res.Item = item.Clone()
		if !opts.DryRun && e.runner.Mode() != agent.ModeDryRun {
			e.record(ctx, opts, item.ID, p, e.now(), res, nil)
		}
		return res, nil
	}
	// The target state without its artifacts re-runs the phase to
	// regenerate them.
	if !tr.Allows(item.State) && item.State != tr.To {
		return nil, &InvalidTransitionError{ItemID: item.ID, Phase: p, Expected: tr.From, Actual: item.State}
	}

	if opts.DryRun || e.runner.Mode() == agent.ModeDryRun {
		action := "run agent"
		if hasArtifacts(p) && artifacts && !opts.Force {
			action = "record transition (artifacts present)"
		}
		log.Info("dry-run", "would", action, "from", string(item.State), "to", string(tr.To))
		res.Success = true
		res.DryRun = true
		res.Item = item.Clone()
		return res, nil
	}

	if hasArtifacts(p) && artifacts && !opts.Force && item.State != tr.To {
		log.Info("skipping agent", "reason", SkipArtifactsPresent, "from", string(item.State), "to", string(tr.To))
		item.State = tr.To
		item.SetLastError("")
		if err := e.store.SaveItem(item); err != nil {
			return nil, err
		}
		res.Success = true
		res.Skipped = true
		res.SkipReason = SkipArtifactsPresent
		res.Item = item.Clone()
		e.record(ctx, opts, item.ID, p, e.now(), res, nil)
		return res, nil
	}

	return e.execute(ctx, p, tr, item, opts, res, log)
}

func (e *Engine) execute(ctx context.Context, p workflow.Phase, tr workflow.Transition, item *state.Item, opts Options, res *Result, log *logging.Logger) (*Result, error) {
	started := e.now()

	prep, err := e.git.PreparePhase(ctx, p, item)
	if err != nil {
		return e.fail(ctx, p, item, opts, res, started, nil, err.Error())
	}
	applyOutcome(item, prep)

	resolved := e.cfg.ResolveAgent(string(p))
	text, err := e.prompts.Render(string(p), e.promptData(item, resolved.CompletionSignal))
	if err != nil {
		return e.fail(ctx, p, item, opts, res, started, nil, err.Error())
	}

	log.Info("running agent", "from", string(item.State), "timeout", resolved.Timeout)
	ar := e.runner.Run(ctx, agent.Request{
		Dir:              e.store.BasePath(),
		Prompt:           text,
		CompletionSignal: resolved.CompletionSignal,
		Timeout:          resolved.Timeout,
		OnStdout:         writeTo(e.stdout),
		OnStderr:         writeTo(e.stderr),
	})
	res.Agent = &ar
	if !ar.Success {
		msg := ar.Error
		if msg == "" {
			msg = string(p)
		}
		return e.fail(ctx, p, item, opts, res, started, &ar, msg)
	}

	fin, err := e.git.FinishPhase(ctx, p, item)
	if err != nil {
		return e.fail(ctx, p, item, opts, res, started, &ar, err.Error())
	}
	applyOutcome(item, fin)

	item.State = tr.To
	item.SetLastError("")
	if err := e.store.SaveItem(item); err != nil {
		return nil, err
	}
	log.Info("phase finished", "state", string(item.State))

	res.Success = true
	res.Item = item.Clone()
	e.record(ctx, opts, item.ID, p, started, res, &ar)
	return res, nil
}

// fail records msg as the item's last error and returns an ExecutionError.
func (e *Engine) fail(ctx context.Context, p workflow.Phase, item *state.Item, opts Options, res *Result, started time.Time, ar *agent.Result, msg string) (*Result, error) {
	timedOut := ar != nil && ar.TimedOut
	e.log.Error("phase failed", "item", item.ID, "phase", string(p), "error", msg, "timed_out", timedOut)

	item.SetLastError(msg)
	if err := e.store.SaveItem(item); err != nil {
		e.log.Error("failed to save last_error", "item", item.ID, "error", err)
	}

	res.Success = false
	res.Error = msg
	res.Item = item.Clone()
	e.record(ctx, opts, item.ID, p, started, res, ar)
	return res, &ExecutionError{ItemID: item.ID, Phase: p, Message: msg, TimedOut: timedOut}
}

func (e *Engine) record(ctx context.Context, opts Options, itemID string, p workflow.Phase, started time.Time, res *Result, ar *agent.Result) {
	run := history.Run{
		SessionID: opts.SessionID,
		ItemID:    itemID,
		Phase:     string(p),
		StartedAt: started,
		Duration:  e.now().Sub(started),
		Success:   res.Success,
		Skipped:   res.Skipped,
		Error:     res.Error,
	}
	if ar != nil {
		run.TimedOut = ar.TimedOut
		run.ExitCode = ar.ExitCode
	}
	if err := e.history.Record(ctx, run); err != nil {
		e.log.Warn("failed to record history", "item", itemID, "error", err)
	}
}

func (e *Engine) promptData(item *state.Item, signal string) prompt.Data {
	d := prompt.Data{
		ItemID:           item.ID,
		Title:            item.Title,
		Overview:         item.Overview,
		State:            string(item.State),
		ItemDir:          e.store.ItemDir(item.ID),
		ResearchPath:     e.store.ArtifactPath(item.ID, state.ResearchFileName),
		PlanPath:         e.store.ArtifactPath(item.ID, state.PlanFileName),
		PRDPath:          e.store.ArtifactPath(item.ID, state.PRDFileName),
		Branch:           e.cfg.BranchName(item.ID),
		BaseBranch:       e.cfg.BaseBranch,
		CompletionSignal: signal,
	}
	if d.Title == "" {
		d.Title = item.ID
	}
	if item.Branch != nil {
		d.Branch = *item.Branch
	}
	if item.PRURL != nil {
		d.PRURL = *item.PRURL
	}
	if prd, err := e.store.LoadPRD(item.ID); err == nil && prd != nil {
		for _, s := range prd.UserStories {
			if s.Status != state.StoryDone {
				d.PendingStories = append(d.PendingStories, prompt.Story{ID: s.ID, Title: s.Title})
			}
		}
	}
	return d
}

func applyOutcome(item *state.Item, o git.Outcome) {
	if o.Branch != "" {
		b := o.Branch
		item.Branch = &b
	}
	if o.PRURL != "" {
		u := o.PRURL
		item.PRURL = &u
	}
	if o.PRNumber != 0 {
		n := o.PRNumber
		item.PRNumber = &n
	}
}

func writeTo(w io.Writer) func(string) {
	if w == nil {
		return nil
	}
	return func(chunk string) {
		fmt.Fprint(w, chunk)
	}
}
