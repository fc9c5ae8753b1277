// Package agent runs the external coding agent for one phase. It knows
// nothing about items or phases: a Request carries the prompt, completion
// signal and timeout, and a Result reports how the run ended.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thruflo/wreckit/internal/logging"
)

// DryRunOutput is the Output of every dry-run Result.
const DryRunOutput = "[dry-run] No output"

// Mode selects whether the Runner spawns anything.
type Mode int

const (
	// ModeNormal delegates to the configured Executor.
	ModeNormal Mode = iota
	// ModeDryRun never spawns and reports success with DryRunOutput.
	ModeDryRun
	// ModeMock never spawns and replays a deterministic transcript.
	ModeMock
)

// ModeFor picks the runner mode from CLI flags. Dry-run wins over mock.
func ModeFor(dryRun, mock bool) Mode {
	switch {
	case dryRun:
		return ModeDryRun
	case mock:
		return ModeMock
	}
	return ModeNormal
}

func (m Mode) String() string {
	switch m {
	case ModeDryRun:
		return "dry-run"
	case ModeMock:
		return "mock"
	}
	return "normal"
}

// Request describes one agent run.
type Request struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Prompt is delivered on stdin or as the final argument.
	Prompt string
	// CompletionSignal must appear in stdout for the run to succeed.
	CompletionSignal string
	// Timeout of zero disables the timer.
	Timeout time.Duration
	// OnStdout and OnStderr receive output chunks as they arrive.
	OnStdout func(chunk string)
	OnStderr func(chunk string)
}

// Result reports how a run ended. Success implies CompletionDetected and an
// exit code of zero; TimedOut implies neither.
type Result struct {
	Success            bool
	CompletionDetected bool
	ExitCode           *int
	TimedOut           bool
	Output             string
	// Error describes why the run failed, empty on success.
	Error string
}

// Executor runs an agent for real.
type Executor interface {
	Execute(ctx context.Context, req Request) Result
	// Describe names the command for logs.
	Describe() string
}

// Runner applies the dry-run and mock modes in front of an Executor so
// callers never branch on them.
type Runner struct {
	executor Executor
	mode     Mode
	log      *logging.Logger
}

// NewRunner creates a Runner. executor may be nil outside ModeNormal.
func NewRunner(executor Executor, mode Mode, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Default()
	}
	return &Runner{executor: executor, mode: mode, log: log.Named("agent")}
}

// Mode returns the runner mode.
func (r *Runner) Mode() Mode {
	return r.mode
}

// Run executes the request according to the runner mode. It never returns
// an error: spawn failures and timeouts are reported in the Result.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	switch r.mode {
	case ModeDryRun:
		r.log.Info("dry-run: would run agent", "command", r.describe(), "prompt_bytes", len(req.Prompt))
		zero := 0
		return Result{
			Success:            true,
			CompletionDetected: true,
			ExitCode:           &zero,
			Output:             DryRunOutput,
		}
	case ModeMock:
		r.log.Debug("mock agent run", "prompt_bytes", len(req.Prompt))
		return runMock(req)
	}

	if r.executor == nil {
		r.log.Error("no agent configured")
		return Result{Error: "no agent configured"}
	}

	start := time.Now()
	res := r.executor.Execute(ctx, req)
	r.log.Debug("agent finished",
		"command", r.executor.Describe(),
		"success", res.Success,
		"timed_out", res.TimedOut,
		"exit_code", exitCodeString(res.ExitCode),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res
}

func (r *Runner) describe() string {
	if r.executor == nil {
		return "<none>"
	}
	return r.executor.Describe()
}

// settle fills the derived fields of a finished run.
func settle(res *Result, signal string, timeout time.Duration) {
	if res.TimedOut {
		res.CompletionDetected = false
		res.Success = false
		res.Error = fmt.Sprintf("agent timed out after %s", timeout)
		return
	}

	res.CompletionDetected = strings.Contains(res.Output, signal)
	exitOK := res.ExitCode != nil && *res.ExitCode == 0
	res.Success = exitOK && res.CompletionDetected

	switch {
	case res.Success:
		res.Error = ""
	case res.Error != "":
	case !exitOK:
		res.Error = fmt.Sprintf("agent exited with code %s", exitCodeString(res.ExitCode))
	default:
		res.Error = "agent finished without completion signal"
	}
}

func exitCodeString(code *int) string {
	if code == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *code)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
