package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// ItemStatus is the per-item outcome of a batch.
type ItemStatus string

// Item statuses.
const (
	StatusCompleted ItemStatus = "completed"
	StatusFailed    ItemStatus = "failed"
	StatusBlocked   ItemStatus = "blocked"
	StatusStopped   ItemStatus = "stopped"
)

// ItemOutcome is reported after each batch item.
type ItemOutcome struct {
	ItemID   string
	Status   ItemStatus
	Error    string
	Duration time.Duration
}

// Line renders the outcome as one line of plain text.
func (o ItemOutcome) Line() string {
	switch o.Status {
	case StatusFailed:
		return fmt.Sprintf("%s %s: %s", o.Status, o.ItemID, o.Error)
	case StatusBlocked:
		return fmt.Sprintf("%s %s: waiting on dependencies", o.Status, o.ItemID)
	case StatusCompleted:
		return fmt.Sprintf("%s %s (%s)", o.Status, o.ItemID, o.Duration.Round(time.Second))
	}
	return fmt.Sprintf("%s %s", o.Status, o.ItemID)
}

// Reporter receives batch progress for display.
type Reporter interface {
	ItemStarted(itemID string)
	ItemFinished(outcome ItemOutcome)
	BatchFinished(result *BatchResult)
}

type nopReporter struct{}

func (nopReporter) ItemStarted(string)         {}
func (nopReporter) ItemFinished(ItemOutcome)   {}
func (nopReporter) BatchFinished(*BatchResult) {}

// NoChangesLine is the last summary line of a dry run.
const NoChangesLine = "dry run: no changes made"

// Summary renders the batch counts, the ids in each non-empty group and,
// for a dry run, NoChangesLine.
func (r *BatchResult) Summary() []string {
	lines := []string{fmt.Sprintf("completed: %d, failed: %d, skipped: %d, remaining: %d",
		len(r.Completed), len(r.Failed), len(r.Skipped), len(r.Remaining))}

	group := func(name string, ids []string) {
		if len(ids) > 0 {
			lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(ids, ", ")))
		}
	}
	if r.DryRun {
		group("would run", r.Remaining)
	} else {
		group("failed", r.FailedIDs())
		group("remaining", r.Remaining)
	}
	if r.Stopped {
		lines = append(lines, "batch stopped; run again to resume")
	}
	if r.DryRun {
		lines = append(lines, NoChangesLine)
	}
	return lines
}
