// Package orchestrator drives items through the pipeline: one item end to
// end (RunItem), the first unfinished item (OrchestrateNext) or every item
// in id order with a resumable progress checkpoint (OrchestrateAll).
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/logging"
	"github.com/thruflo/wreckit/internal/phase"
	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

// PhaseRunner runs one phase for one item. *phase.Engine implements it.
type PhaseRunner interface {
	RunPhase(ctx context.Context, p workflow.Phase, itemID string, opts phase.Options) (*phase.Result, error)
}

// Options control a batch or single-item run.
type Options struct {
	DryRun      bool
	NoResume    bool
	RetryFailed bool
	// Force is passed to every phase.
	Force bool
}

// Deps are the collaborators of an Orchestrator. Store, Config and Phases
// are required.
type Deps struct {
	Store    *state.Store
	Config   *config.Config
	Phases   PhaseRunner
	Checker  ProcessChecker
	Reporter Reporter
	Log      *logging.Logger
}

// Orchestrator runs items sequentially. It assumes it is the only writer
// of the repository's progress file.
type Orchestrator struct {
	store    *state.Store
	cfg      *config.Config
	phases   PhaseRunner
	checker  ProcessChecker
	reporter Reporter
	log      *logging.Logger

	pid       int
	now       func() time.Time
	newSessID func() string
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		store:     d.Store,
		cfg:       d.Config,
		phases:    d.Phases,
		checker:   d.Checker,
		reporter:  d.Reporter,
		log:       d.Log,
		pid:       os.Getpid(),
		now:       time.Now,
		newSessID: uuid.NewString,
	}
	if o.checker == nil {
		o.checker = SignalChecker{}
	}
	if o.reporter == nil {
		o.reporter = nopReporter{}
	}
	if o.log == nil {
		o.log = logging.Default()
	}
	o.log = o.log.Named("orchestrator")
	return o
}

// ItemResult is the outcome of RunItem.
type ItemResult struct {
	ItemID     string
	FinalState state.ItemState
	// Phases holds the result of every phase attempted, in order.
	Phases []*phase.Result
	// Planned lists the phases a dry run would execute.
	Planned []workflow.Phase
	DryRun  bool
}

// RunItem drives one item through the Workflow Router and Phase Engine
// until it is done or a phase fails. A done item returns immediately.
func (o *Orchestrator) RunItem(ctx context.Context, itemID string, opts Options, sessionID string) (*ItemResult, error) {
	item, err := o.store.GetItem(itemID)
	if err != nil {
		return nil, err
	}
	ir := &ItemResult{ItemID: item.ID, FinalState: item.State, DryRun: opts.DryRun}

	// Each successful phase moves the item forward, so a full pipeline
	// takes at most len(workflow.Phases) steps.
	for step := 0; step <= len(workflow.Phases); step++ {
		next, err := workflow.NextPhase(ir.FinalState)
		if err != nil {
			return ir, err
		}
		if next == "" {
			return ir, nil
		}
		if err := ctx.Err(); err != nil {
			return ir, err
		}

		res, err := o.phases.RunPhase(ctx, next, item.ID, phase.Options{
			Force:     opts.Force,
			DryRun:    opts.DryRun,
			SessionID: sessionID,
		})
		if res != nil {
			ir.Phases = append(ir.Phases, res)
		}
		if err != nil {
			return ir, err
		}
		if res.DryRun {
			planned, err := workflow.Remaining(ir.FinalState)
			if err != nil {
				return ir, err
			}
			ir.Planned = planned
			return ir, nil
		}
		ir.FinalState = res.Item.State
	}
	return ir, fmt.Errorf("item %s did not reach %s after %d phases", item.ID, state.StateDone, len(workflow.Phases)+1)
}

// GetNextIncompleteItem returns the first item, in id order, that is not
// done, or nil when every item is done.
func (o *Orchestrator) GetNextIncompleteItem() (*state.Item, error) {
	items, err := o.store.ListItems()
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if !item.IsDone() {
			return item, nil
		}
	}
	return nil, nil
}

// NextResult is the outcome of OrchestrateNext. ItemID is empty when there
// was nothing to do.
type NextResult struct {
	ItemID  string
	Success bool
	Error   string
	DryRun  bool
	Item    *ItemResult
}

// OrchestrateNext runs the first incomplete item end to end. A failed run
// returns the result together with the phase error.
func (o *Orchestrator) OrchestrateNext(ctx context.Context, opts Options) (*NextResult, error) {
	item, err := o.GetNextIncompleteItem()
	if err != nil {
		return nil, err
	}
	if item == nil {
		o.log.Info("all items done")
		return &NextResult{Success: true, DryRun: opts.DryRun}, nil
	}

	ir, err := o.RunItem(ctx, item.ID, opts, o.newSessID())
	res := &NextResult{ItemID: item.ID, Success: err == nil, DryRun: opts.DryRun, Item: ir}
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	return res, nil
}

// Failure is a batch item that ended in error.
type Failure struct {
	ItemID string
	Error  string
}

// BatchResult is the outcome of OrchestrateAll.
type BatchResult struct {
	SessionID string
	Completed []string
	Failed    []Failure
	Skipped   []string
	Remaining []string
	DryRun    bool
	Resumed   bool
	// Stopped is set when the context was cancelled mid-batch.
	Stopped bool
}

// FailedIDs returns the ids in Failed.
func (r *BatchResult) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.ItemID
	}
	return ids
}

// OrchestrateAll runs every incomplete item in id order. Individual item
// failures are collected in the result and never returned as an error;
// the error return is reserved for being unable to list items.
func (o *Orchestrator) OrchestrateAll(ctx context.Context, opts Options) (*BatchResult, error) {
	items, err := o.store.ListItems()
	if err != nil {
		return nil, err
	}

	res := &BatchResult{DryRun: opts.DryRun}
	byID := make(map[string]*state.Item, len(items))
	var candidates []string
	for _, item := range items {
		byID[item.ID] = item
		if item.IsDone() {
			res.Skipped = append(res.Skipped, item.ID)
			continue
		}
		candidates = append(candidates, item.ID)
	}

	if opts.DryRun {
		res.Remaining = append([]string{}, candidates...)
		o.log.Info("dry-run batch", "candidates", len(candidates), "skipped", len(res.Skipped))
		o.reporter.BatchFinished(res)
		return res, nil
	}

	completed := make(map[string]bool)
	failed := make(map[string]bool)
	progress := o.resumable(opts)
	if progress != nil {
		res.Resumed = true
		res.SessionID = progress.SessionID
		// Ids already done on disk are reported once, as skipped.
		for _, id := range progress.Completed {
			completed[id] = true
			if item := byID[id]; item != nil && !item.IsDone() {
				res.Completed = append(res.Completed, id)
			}
		}
		if !opts.RetryFailed {
			for _, id := range progress.Failed {
				failed[id] = true
				if item := byID[id]; item != nil && !item.IsDone() {
					res.Failed = append(res.Failed, Failure{ItemID: id, Error: lastError(item)})
				}
			}
		}
		o.log.Info("resuming batch", "session", progress.SessionID, "completed", len(completed), "failed", len(failed))
		progress.PID = o.pid
		progress.QueuedItems = union(progress.QueuedItems, candidates)
		progress.Failed = keys(progress.Failed, failed)
	} else {
		res.SessionID = o.newSessID()
		progress = &state.BatchProgress{
			SessionID:   res.SessionID,
			PID:         o.pid,
			StartedAt:   o.now(),
			QueuedItems: append([]string{}, candidates...),
			Completed:   []string{},
			Failed:      []string{},
			Skipped:     []string{},
		}
	}
	progress.Skipped = []string{}
	if len(candidates) > 0 {
		o.saveProgress(progress)
	}

	for i, id := range candidates {
		if completed[id] || failed[id] {
			continue
		}
		if ctx.Err() != nil {
			res.Stopped = true
			res.Remaining = append(res.Remaining, uncounted(candidates[i:], completed, failed)...)
			break
		}

		item := byID[id]
		if !item.DependenciesMet(satisfied(completed, byID)) {
			o.log.Info("blocked on dependencies", "item", id, "depends_on", item.DependsOn)
			res.Remaining = append(res.Remaining, id)
			o.reporter.ItemFinished(ItemOutcome{ItemID: id, Status: StatusBlocked})
			continue
		}

		progress.SetCurrent(id)
		o.saveProgress(progress)

		o.reporter.ItemStarted(id)
		started := o.now()
		_, err := o.RunItem(ctx, id, opts, res.SessionID)
		outcome := ItemOutcome{ItemID: id, Duration: o.now().Sub(started)}

		switch {
		case err != nil && ctx.Err() != nil:
			// Interrupted, not failed: leave it for the next run.
			o.log.Warn("batch stopped", "item", id)
			res.Stopped = true
			res.Remaining = append(res.Remaining, uncounted(candidates[i:], completed, failed)...)
			outcome.Status = StatusStopped
		case err != nil:
			o.log.Error("item failed", "item", id, "error", err)
			failed[id] = true
			res.Failed = append(res.Failed, Failure{ItemID: id, Error: err.Error()})
			progress.Failed = append(progress.Failed, id)
			outcome.Status = StatusFailed
			outcome.Error = err.Error()
		default:
			completed[id] = true
			res.Completed = append(res.Completed, id)
			progress.Completed = append(progress.Completed, id)
			outcome.Status = StatusCompleted
		}

		progress.SetCurrent("")
		o.saveProgress(progress)
		o.reporter.ItemFinished(outcome)

		if res.Stopped {
			break
		}
	}

	if len(res.Remaining) == 0 {
		if err := o.store.DeleteBatchProgress(); err != nil {
			o.log.Warn("failed to delete batch progress", "error", err)
		}
	}

	o.log.Info("batch finished",
		"session", res.SessionID,
		"completed", len(res.Completed),
		"failed", len(res.Failed),
		"skipped", len(res.Skipped),
		"remaining", len(res.Remaining),
	)
	o.reporter.BatchFinished(res)
	return res, nil
}

// resumable returns the stored progress when it may be resumed, or nil.
// Unreadable, dead or expired records are logged and ignored.
func (o *Orchestrator) resumable(opts Options) *state.BatchProgress {
	if opts.NoResume {
		return nil
	}
	p, err := o.store.LoadBatchProgress()
	if err != nil {
		o.log.Warn("ignoring unreadable batch progress", "error", err)
		return nil
	}
	if p == nil {
		return nil
	}
	if !o.checker.Alive(p.PID) {
		o.log.Warn("ignoring stale batch progress", "reason", "process not running", "pid", p.PID)
		return nil
	}
	if age := o.now().Sub(p.LastActivity()); age > o.cfg.StaleAfter() {
		o.log.Warn("ignoring stale batch progress", "reason", "expired", "age", age.Round(time.Minute))
		return nil
	}
	return p
}

func (o *Orchestrator) saveProgress(p *state.BatchProgress) {
	if err := o.store.SaveBatchProgress(p); err != nil {
		o.log.Error("failed to save batch progress", "error", err)
	}
}

// satisfied is the set of ids that count as finished for dependency
// checks: completed in this batch, or already done on disk.
func satisfied(completed map[string]bool, items map[string]*state.Item) map[string]bool {
	out := make(map[string]bool, len(completed)+len(items))
	for id := range completed {
		out[id] = true
	}
	for id, item := range items {
		if item.IsDone() {
			out[id] = true
		}
	}
	return out
}

func uncounted(ids []string, completed, failed map[string]bool) []string {
	var out []string
	for _, id := range ids {
		if !completed[id] && !failed[id] {
			out = append(out, id)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// keys filters ids down to those in set, preserving order.
func keys(ids []string, set map[string]bool) []string {
	out := []string{}
	for _, id := range ids {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}

func lastError(item *state.Item) string {
	if item == nil || item.LastError == nil {
		return ""
	}
	return *item.LastError
}
