package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thruflo/wreckit/internal/logging"
)

// Default values for Config.
const (
	DefaultCommand          = "claude"
	DefaultCompletionSignal = "<promise>COMPLETE</promise>"
	DefaultTimeoutSeconds   = 3600
	DefaultBaseBranch       = "main"
	DefaultBranchPrefix     = "wreckit/"
	DefaultStaleAfterHours  = 24.0
)

// File names under .wreckit/.
const (
	ConfigFileName = "config.yaml"
	EnvFileName    = ".sprite.env"
)

// phaseNames lists the keys accepted under phases:.
var phaseNames = []string{"research", "plan", "implement", "pr", "complete"}

// DefaultAgent returns the process agent used when config.yaml has none.
func DefaultAgent() AgentConfig {
	return AgentConfig{
		Kind:             AgentKindProcess,
		CompletionSignal: DefaultCompletionSignal,
		TimeoutSeconds:   DefaultTimeoutSeconds,
		Process: &ProcessAgent{
			Command:    DefaultCommand,
			Args:       []string{"--dangerously-skip-permissions", "--print"},
			PromptMode: PromptModeStdin,
		},
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Agent:        DefaultAgent(),
		BaseBranch:   DefaultBaseBranch,
		BranchPrefix: DefaultBranchPrefix,
		Batch: BatchConfig{
			StaleAfterHours: DefaultStaleAfterHours,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// ConfigPath returns the location of config.yaml for a repository.
func ConfigPath(basePath string) string {
	return filepath.Join(basePath, ".wreckit", ConfigFileName)
}

// ParseConfig decodes config.yaml content over the defaults and validates
// the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if IsValidationError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and parses .wreckit/config.yaml from the given base path.
// If the file doesn't exist, returns default config.
func LoadConfig(basePath string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(basePath))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// LoadConfigOrDefault is LoadConfig for callers that must keep going: a
// broken config is logged and the defaults are returned.
func LoadConfigOrDefault(basePath string, log *logging.Logger) *Config {
	cfg, err := LoadConfig(basePath)
	if err != nil {
		log.Warn("using default config", "path", ConfigPath(basePath), "error", err)
		def := DefaultConfig()
		return &def
	}
	return cfg
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if err := ValidateAgent(&cfg.Agent); err != nil {
		return err
	}

	for name, pc := range cfg.Phases {
		if !knownPhase(name) {
			return ValidationError{Field: "phases." + name, Message: "unknown phase"}
		}
		if pc.TimeoutSeconds != nil && *pc.TimeoutSeconds < 0 {
			return ValidationError{Field: "phases." + name + ".timeout_seconds", Message: "must not be negative"}
		}
	}

	if cfg.BaseBranch == "" {
		return ValidationError{Field: "base_branch", Message: "required field is empty"}
	}
	if cfg.Batch.StaleAfterHours <= 0 {
		return ValidationError{Field: "batch.stale_after_hours", Message: "must be positive"}
	}
	return nil
}

// ValidateAgent checks that the agent variant matching Kind is complete.
func ValidateAgent(a *AgentConfig) error {
	if a.CompletionSignal == "" {
		return ValidationError{Field: "agent.completion_signal", Message: "required field is empty"}
	}
	if a.TimeoutSeconds < 0 {
		return ValidationError{Field: "agent.timeout_seconds", Message: "must not be negative"}
	}

	switch a.Kind {
	case AgentKindProcess:
		if a.Process == nil || a.Process.Command == "" {
			return ValidationError{Field: "agent.command", Message: "required field is empty"}
		}
		return validatePromptMode(a.Process.PromptMode)
	case AgentKindClaudeStream:
		if a.ClaudeStream == nil {
			return ValidationError{Field: "agent", Message: "claude_stream settings missing"}
		}
		if a.ClaudeStream.MaxTurns < 0 {
			return ValidationError{Field: "agent.max_turns", Message: "must not be negative"}
		}
		return nil
	case AgentKindSprite:
		if a.Sprite == nil || a.Sprite.Name == "" {
			return ValidationError{Field: "agent.name", Message: "required field is empty"}
		}
		if a.Sprite.Command == "" {
			return ValidationError{Field: "agent.command", Message: "required field is empty"}
		}
		return validatePromptMode(a.Sprite.PromptMode)
	default:
		return ValidationError{Field: "agent.kind", Message: fmt.Sprintf("unknown agent kind %q", a.Kind)}
	}
}

func validatePromptMode(m PromptMode) error {
	switch m {
	case "", PromptModeStdin, PromptModeArg:
		return nil
	}
	return ValidationError{Field: "agent.prompt_mode", Message: fmt.Sprintf("must be %q or %q", PromptModeStdin, PromptModeArg)}
}

func knownPhase(name string) bool {
	for _, p := range phaseNames {
		if p == name {
			return true
		}
	}
	return false
}

// LoadEnvFile parses .wreckit/.sprite.env into a map of key-value pairs.
// The file format is KEY=VALUE per line. Lines starting with # are comments.
// A missing file yields an empty map.
func LoadEnvFile(basePath string) (map[string]string, error) {
	envPath := filepath.Join(basePath, ".wreckit", EnvFileName)

	file, err := os.Open(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid env file line %d: missing '='", lineNum)
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if key == "" {
			return nil, fmt.Errorf("invalid env file line %d: empty key", lineNum)
		}
		env[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return env, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Template is written by `wreckit init`.
const Template = `# wreckit configuration
agent:
  kind: process
  command: claude
  args: ["--dangerously-skip-permissions", "--print"]
  prompt_mode: stdin
  completion_signal: "<promise>COMPLETE</promise>"
  timeout_seconds: 3600

# Per-phase overrides.
# phases:
#   implement:
#     timeout_seconds: 7200

base_branch: main
branch_prefix: wreckit/

batch:
  stale_after_hours: 24

# schedule:
#   cron: "0 */2 * * *"
#   retry_failed: false
`
