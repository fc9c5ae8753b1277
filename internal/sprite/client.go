package sprite

import (
	"context"
	"fmt"
	"io"
	"strings"

	sprites "github.com/superfly/sprites-go"
)

// Client defines the Sprite operations the sprite agent needs.
type Client interface {
	// Create creates a new Sprite with the given name.
	// If checkpoint is non-empty, restores from that checkpoint after creation.
	Create(ctx context.Context, name string, checkpoint string) error

	// Execute starts a command on the Sprite and returns pipes for streaming.
	// The caller must drain both pipes and then call Wait.
	Execute(ctx context.Context, name string, dir string, env []string, args ...string) (*Cmd, error)

	// WriteFile writes content to a file path on the Sprite.
	WriteFile(ctx context.Context, name string, path string, content []byte) error

	// ReadFile reads content from a file path on the Sprite.
	ReadFile(ctx context.Context, name string, path string) ([]byte, error)

	// Delete deletes the Sprite.
	Delete(ctx context.Context, name string) error

	// Exists checks if a Sprite exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// Cmd wraps a remote command with its output streams.
type Cmd struct {
	cmd      *sprites.Cmd
	Stdout   io.ReadCloser
	Stderr   io.ReadCloser
	waitErr  error
	exitCode int
}

// NewCmd builds a Cmd that is already finished with the given exit code.
// Test clients use it to script remote runs.
func NewCmd(stdout, stderr string, exitCode int) *Cmd {
	return &Cmd{
		Stdout:   io.NopCloser(strings.NewReader(stdout)),
		Stderr:   io.NopCloser(strings.NewReader(stderr)),
		exitCode: exitCode,
	}
}

// Wait waits for the command to complete.
func (c *Cmd) Wait() error {
	if c.cmd == nil {
		return nil
	}
	c.waitErr = c.cmd.Wait()
	return c.waitErr
}

// ExitCode returns the exit code of the command after Wait returns.
// Returns -1 if the exit code is unknown.
func (c *Cmd) ExitCode() int {
	if c.cmd == nil {
		return c.exitCode
	}
	if c.waitErr == nil {
		return 0
	}
	if exitErr, ok := c.waitErr.(*sprites.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// SDKClient implements Client using the sprites-go SDK.
type SDKClient struct {
	client *sprites.Client
}

// NewSDKClient creates a new SDKClient with the given API token.
func NewSDKClient(token string) *SDKClient {
	return &SDKClient{
		client: sprites.New(token),
	}
}

// Create creates a new Sprite with the given name.
func (c *SDKClient) Create(ctx context.Context, name string, checkpoint string) error {
	if _, err := c.client.CreateSprite(ctx, name, nil); err != nil {
		return fmt.Errorf("failed to create sprite %s: %w", name, err)
	}
	if checkpoint == "" {
		return nil
	}

	stream, err := c.client.Sprite(name).RestoreCheckpoint(ctx, checkpoint)
	if err != nil {
		return fmt.Errorf("failed to restore checkpoint %s: %w", checkpoint, err)
	}
	defer stream.Close()

	if err := stream.ProcessAll(func(*sprites.StreamMessage) error { return nil }); err != nil {
		return fmt.Errorf("failed to restore checkpoint %s: %w", checkpoint, err)
	}
	return nil
}

// Execute starts a command on the Sprite. Cancelling ctx stops it.
func (c *SDKClient) Execute(ctx context.Context, name string, dir string, env []string, args ...string) (*Cmd, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no command specified")
	}

	cmd := c.client.Sprite(name).CommandContext(ctx, args[0], args[1:]...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(env) > 0 {
		cmd.Env = env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	return &Cmd{cmd: cmd, Stdout: stdout, Stderr: stderr}, nil
}

// WriteFile writes content to a file path on the Sprite.
func (c *SDKClient) WriteFile(ctx context.Context, name string, path string, content []byte) error {
	fs := c.client.Sprite(name).Filesystem()
	if err := fs.WriteFileContext(ctx, path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// ReadFile reads content from a file path on the Sprite.
func (c *SDKClient) ReadFile(ctx context.Context, name string, path string) ([]byte, error) {
	// The SDK filesystem has no context-aware read; the HTTP client still
	// carries its own deadline.
	data, err := c.client.Sprite(name).Filesystem().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

// Delete deletes the Sprite.
func (c *SDKClient) Delete(ctx context.Context, name string) error {
	if err := c.client.DeleteSprite(ctx, name); err != nil {
		return fmt.Errorf("failed to delete sprite %s: %w", name, err)
	}
	return nil
}

// Exists checks if a Sprite exists.
func (c *SDKClient) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := c.client.GetSprite(ctx, name); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check sprite existence: %w", err)
	}
	return true, nil
}

// isNotFound matches the assorted not-found errors the SDK returns.
func isNotFound(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not found") ||
		strings.Contains(s, "404") ||
		strings.Contains(s, "failed to retrieve sprite")
}
