package orchestrator

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchResult_Summary(t *testing.T) {
	t.Parallel()

	res := &BatchResult{
		Completed: []string{"001-a"},
		Failed:    []Failure{{ItemID: "002-b", Error: "boom"}},
		Skipped:   []string{"000-z"},
		Remaining: []string{"003-c"},
	}
	assert.Equal(t, []string{
		"completed: 1, failed: 1, skipped: 1, remaining: 1",
		"failed: 002-b",
		"remaining: 003-c",
	}, res.Summary())
}

func TestBatchResult_SummaryDryRun(t *testing.T) {
	t.Parallel()

	res := &BatchResult{DryRun: true, Remaining: []string{"001-a", "002-b"}}
	lines := res.Summary()
	assert.Equal(t, "completed: 0, failed: 0, skipped: 0, remaining: 2", lines[0])
	assert.Contains(t, lines, "would run: 001-a, 002-b")
	assert.Equal(t, NoChangesLine, lines[len(lines)-1])
}

func TestBatchResult_SummaryStopped(t *testing.T) {
	t.Parallel()

	res := &BatchResult{Stopped: true, Remaining: []string{"001-a"}}
	assert.Contains(t, res.Summary(), "batch stopped; run again to resume")
}

func TestItemOutcome_Line(t *testing.T) {
	t.Parallel()

	tests := []struct {
		outcome ItemOutcome
		want    string
	}{
		{ItemOutcome{ItemID: "001-a", Status: StatusCompleted, Duration: 90 * time.Second}, "completed 001-a (1m30s)"},
		{ItemOutcome{ItemID: "001-a", Status: StatusFailed, Error: "boom"}, "failed 001-a: boom"},
		{ItemOutcome{ItemID: "001-a", Status: StatusBlocked}, "blocked 001-a: waiting on dependencies"},
		{ItemOutcome{ItemID: "001-a", Status: StatusStopped}, "stopped 001-a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.outcome.Line())
	}
}

func TestSignalChecker(t *testing.T) {
	t.Parallel()

	c := SignalChecker{}
	assert.True(t, c.Alive(os.Getpid()))
	assert.False(t, c.Alive(0))
	assert.False(t, c.Alive(-1))
}
