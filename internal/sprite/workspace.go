package sprite

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Home is the base directory for wreckit data on a Sprite. /home/sprite is
// not writable inside the Firecracker VM, so everything lives here.
const Home = "/var/local/wreckit"

// PromptDir holds prompt files written before each run.
var PromptDir = path.Join(Home, "prompts")

// PromptPath returns where the prompt for a run is written.
func PromptPath(runID string) string {
	return path.Join(PromptDir, runID+".md")
}

// Ensure creates the Sprite if it does not exist yet.
func Ensure(ctx context.Context, client Client, name, checkpoint string) error {
	exists, err := client.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.Create(ctx, name, checkpoint)
}

// ShellCommand wraps an agent command in bash so that HOME points at Home,
// .bashrc is sourced for tokens, and the prompt file is fed to the agent,
// either on stdin or as the final argument.
func ShellCommand(command string, args []string, promptPath string, promptOnStdin bool) []string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, Quote(command))
	for _, a := range args {
		parts = append(parts, Quote(a))
	}

	line := strings.Join(parts, " ")
	if promptOnStdin {
		line += " < " + Quote(promptPath)
	} else {
		line += fmt.Sprintf(` "$(cat %s)"`, Quote(promptPath))
	}

	bash := fmt.Sprintf("export HOME=%s && source ~/.bashrc 2>/dev/null; %s", Home, line)
	return []string{"bash", "-c", bash}
}

// Quote single-quotes s for bash.
func Quote(s string) string {
	if s != "" && strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./=:,+@%", r):
		return false
	}
	return true
}
