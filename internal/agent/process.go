package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/logging"
)

// DefaultKillGrace is how long a timed-out agent has to exit after SIGTERM
// before it is killed.
const DefaultKillGrace = 5 * time.Second

// ProcessExecutor runs the agent as a local child process.
type ProcessExecutor struct {
	Command    string
	Args       []string
	PromptMode config.PromptMode
	Env        map[string]string
	KillGrace  time.Duration

	// Decode, when set, rewrites stdout line by line before it is
	// accumulated and searched for the completion signal.
	Decode func(line string) (string, bool)

	Log *logging.Logger
}

// NewProcessExecutor builds an executor from a process agent config.
func NewProcessExecutor(cfg *config.ProcessAgent, log *logging.Logger) *ProcessExecutor {
	return &ProcessExecutor{
		Command:    cfg.Command,
		Args:       append([]string(nil), cfg.Args...),
		PromptMode: cfg.PromptMode,
		Env:        cfg.Env,
		Log:        log,
	}
}

// Describe returns the command line without the prompt.
func (e *ProcessExecutor) Describe() string {
	return strings.Join(append([]string{e.Command}, e.Args...), " ")
}

// Execute spawns the command and waits for it. On timeout or cancellation
// the child receives SIGTERM, then SIGKILL after KillGrace.
func (e *ProcessExecutor) Execute(ctx context.Context, req Request) Result {
	log := e.logger()

	runCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	args := append([]string(nil), e.Args...)
	if e.PromptMode == config.PromptModeArg {
		args = append(args, req.Prompt)
	}

	cmd := exec.CommandContext(runCtx, e.Command, args...)
	cmd.Dir = req.Dir
	cmd.Env = mergeEnv(os.Environ(), e.Env)
	if e.PromptMode != config.PromptModeArg {
		cmd.Stdin = strings.NewReader(req.Prompt)
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.killGrace()

	stdout := newOutput(req.OnStdout)
	var decoder *lineDecoder
	var stdoutW io.Writer = stdout
	if e.Decode != nil {
		decoder = &lineDecoder{dst: stdout, decode: e.Decode}
		stdoutW = decoder
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = newOutput(req.OnStderr)

	if err := cmd.Start(); err != nil {
		log.Error("failed to start agent", "command", e.Command, "error", err)
		return Result{Error: fmt.Sprintf("failed to start %s: %v", e.Command, err)}
	}
	log.Debug("agent started", "command", e.Command, "pid", cmd.Process.Pid)

	waitErr := cmd.Wait()
	if decoder != nil {
		decoder.Flush()
	}

	res := Result{Output: stdout.String()}
	if code := cmd.ProcessState.ExitCode(); code >= 0 {
		res.ExitCode = &code
	}

	if waitErr != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.Warn("agent timed out", "command", e.Command, "timeout", req.Timeout)
		res.TimedOut = true
	} else if waitErr != nil && ctx.Err() != nil {
		res.Error = "agent cancelled"
	}

	settle(&res, req.CompletionSignal, req.Timeout)
	return res
}

func (e *ProcessExecutor) killGrace() time.Duration {
	if e.KillGrace > 0 {
		return e.KillGrace
	}
	return DefaultKillGrace
}

func (e *ProcessExecutor) logger() *logging.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logging.Default().Named("agent")
}

// mergeEnv appends extra variables in key order so the child environment
// is deterministic.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := append([]string(nil), base...)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
