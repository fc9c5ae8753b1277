package testutil

import (
	"context"
	"sync"

	"github.com/thruflo/wreckit/internal/agent"
)

// FakeChecker reports the pids in Live as alive.
type FakeChecker struct {
	Live map[int]bool
}

// NewFakeChecker returns a checker for which exactly pids are alive.
func NewFakeChecker(pids ...int) *FakeChecker {
	c := &FakeChecker{Live: make(map[int]bool)}
	for _, pid := range pids {
		c.Live[pid] = true
	}
	return c
}

// Alive implements the orchestrator's process checker.
func (c *FakeChecker) Alive(pid int) bool {
	return c.Live[pid]
}

// FakeExecutor is an agent.Executor that never spawns. By default every
// run succeeds and echoes the completion signal. Respond overrides the
// result for a request.
type FakeExecutor struct {
	Respond func(req agent.Request) agent.Result

	mu       sync.Mutex
	requests []agent.Request
}

// Execute implements agent.Executor.
func (f *FakeExecutor) Execute(_ context.Context, req agent.Request) agent.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(req)
	}
	return SuccessResult(req.CompletionSignal)
}

// Describe implements agent.Executor.
func (f *FakeExecutor) Describe() string { return "fake" }

// Requests returns a copy of every request seen so far.
func (f *FakeExecutor) Requests() []agent.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]agent.Request(nil), f.requests...)
}

// Calls returns the number of Execute calls.
func (f *FakeExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// SuccessResult is a successful run that printed signal.
func SuccessResult(signal string) agent.Result {
	zero := 0
	return agent.Result{
		Success:            true,
		CompletionDetected: true,
		ExitCode:           &zero,
		Output:             signal + "\n",
	}
}

// FailureResult is a run that exited with code 1.
func FailureResult(msg string) agent.Result {
	one := 1
	return agent.Result{ExitCode: &one, Output: msg + "\n", Error: msg}
}
