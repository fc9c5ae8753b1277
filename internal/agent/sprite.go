package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/logging"
	"github.com/thruflo/wreckit/internal/sprite"
)

// SpriteExecutor runs the agent command inside a Sprite VM. The prompt is
// uploaded to the VM first and fed to the command from there.
type SpriteExecutor struct {
	Client     sprite.Client
	Name       string
	Checkpoint string
	Dir        string
	Command    string
	Args       []string
	PromptMode config.PromptMode
	Log        *logging.Logger
}

// NewSpriteExecutor builds an executor from a sprite agent config.
func NewSpriteExecutor(client sprite.Client, cfg *config.SpriteAgent, log *logging.Logger) *SpriteExecutor {
	return &SpriteExecutor{
		Client:     client,
		Name:       cfg.Name,
		Checkpoint: cfg.Checkpoint,
		Dir:        cfg.Dir,
		Command:    cfg.Command,
		Args:       append([]string(nil), cfg.Args...),
		PromptMode: cfg.PromptMode,
		Log:        log,
	}
}

// Describe names the sprite and command.
func (e *SpriteExecutor) Describe() string {
	return fmt.Sprintf("sprite:%s %s", e.Name, strings.Join(append([]string{e.Command}, e.Args...), " "))
}

// Execute uploads the prompt, starts the command and pumps both output
// streams until it exits. req.Dir is ignored; the VM uses e.Dir.
func (e *SpriteExecutor) Execute(ctx context.Context, req Request) Result {
	log := e.Log
	if log == nil {
		log = logging.Default().Named("agent")
	}

	runCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	fail := func(msg string, err error) Result {
		log.Error(msg, "sprite", e.Name, "error", err)
		return Result{Error: fmt.Sprintf("%s: %v", msg, err)}
	}

	if err := sprite.Ensure(runCtx, e.Client, e.Name, e.Checkpoint); err != nil {
		return fail("failed to prepare sprite", err)
	}

	promptPath := sprite.PromptPath(uuid.NewString())
	if err := e.Client.WriteFile(runCtx, e.Name, promptPath, []byte(req.Prompt)); err != nil {
		return fail("failed to upload prompt", err)
	}

	args := sprite.ShellCommand(e.Command, e.Args, promptPath, e.PromptMode != config.PromptModeArg)
	cmd, err := e.Client.Execute(runCtx, e.Name, e.Dir, nil, args...)
	if err != nil {
		return fail("failed to start agent", err)
	}

	stdout := newOutput(req.OnStdout)
	stderr := newOutput(req.OnStderr)

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdout, cmd.Stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(stderr, cmd.Stderr)
		return err
	})
	copyErr := g.Wait()
	waitErr := cmd.Wait()

	res := Result{Output: stdout.String()}
	if code := cmd.ExitCode(); code >= 0 {
		res.ExitCode = &code
	}

	interrupted := waitErr != nil || copyErr != nil
	switch {
	case interrupted && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		log.Warn("agent timed out", "sprite", e.Name, "timeout", req.Timeout)
		res.TimedOut = true
	case interrupted && ctx.Err() != nil:
		res.Error = "agent cancelled"
	}

	settle(&res, req.CompletionSignal, req.Timeout)
	if copyErr != nil && res.Success {
		res.Success = false
		res.Error = fmt.Sprintf("lost agent output: %v", copyErr)
	}
	return res
}
