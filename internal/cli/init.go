package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/prompt"
	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

var (
	initForce   bool
	initPrompts bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .wreckit/ directory structure",
	Long: `Creates the .wreckit/ directory with a default configuration.

This command sets up:
  - config.yaml with the agent and batch settings
  - items/ where work items live
  - .sprite.env for the Sprite API token (git-ignored)

With --prompts the built-in phase prompts are also written to prompts/ so
they can be edited.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
	initCmd.Flags().BoolVar(&initPrompts, "prompts", false, "write the default phase prompts to .wreckit/prompts")
	rootCmd.AddCommand(initCmd)
}

const envTemplate = `# Sprite API token, used by the sprite agent kind.
SPRITE_TOKEN=
`

const gitignoreTemplate = `.sprite.env
history.db
history.db-*
`

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}
	wreckitDir := filepath.Join(dir, ".wreckit")

	if dirExists(wreckitDir) && !initForce && !initPrompts {
		return fmt.Errorf(".wreckit already exists in %s (use --force to overwrite)", dir)
	}

	if err := os.MkdirAll(filepath.Join(wreckitDir, state.ItemsDirName), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	files := map[string]string{
		config.ConfigFileName: config.Template,
		config.EnvFileName:    envTemplate,
		".gitignore":          gitignoreTemplate,
	}
	if initPrompts {
		for _, p := range workflow.Phases {
			data, err := prompt.Default(p.String())
			if err != nil {
				return err
			}
			files[filepath.Join("prompts", p.String()+".md")] = string(data)
		}
	}

	var written []string
	for name, content := range files {
		path := filepath.Join(wreckitDir, name)
		if _, err := os.Stat(path); err == nil && !initForce {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		perm := os.FileMode(0o644)
		if name == config.EnvFileName {
			perm = 0o600
		}
		if err := state.WriteFileAtomic(path, []byte(content), perm); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, filepath.Join(".wreckit", name))
	}

	sort.Strings(written)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized .wreckit in %s\n", dir)
	if len(written) > 0 {
		fmt.Fprintln(out, mutedStyle.Render("  wrote "+strings.Join(written, ", ")))
	}
	return nil
}
