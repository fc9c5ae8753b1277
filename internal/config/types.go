package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentKind tags which agent variant an AgentConfig carries.
type AgentKind string

// Supported agent kinds.
const (
	// AgentKindProcess runs any CLI locally and reads its raw stdout.
	AgentKindProcess AgentKind = "process"
	// AgentKindClaudeStream runs claude with stream-json output and
	// decodes assistant text before completion detection.
	AgentKindClaudeStream AgentKind = "claude_stream"
	// AgentKindSprite runs the agent command inside a Sprite VM.
	AgentKindSprite AgentKind = "sprite"
)

// PromptMode selects how the prompt reaches a process agent.
type PromptMode string

// Prompt delivery modes.
const (
	PromptModeStdin PromptMode = "stdin"
	PromptModeArg   PromptMode = "arg"
)

// ProcessAgent configures AgentKindProcess.
type ProcessAgent struct {
	Command    string            `yaml:"command"`
	Args       []string          `yaml:"args,omitempty"`
	PromptMode PromptMode        `yaml:"prompt_mode,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
}

// ClaudeStreamAgent configures AgentKindClaudeStream.
type ClaudeStreamAgent struct {
	Command   string   `yaml:"command,omitempty"`
	Model     string   `yaml:"model,omitempty"`
	MaxTurns  int      `yaml:"max_turns,omitempty"`
	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

// SpriteAgent configures AgentKindSprite.
type SpriteAgent struct {
	Name       string     `yaml:"name"`
	Checkpoint string     `yaml:"checkpoint,omitempty"`
	Dir        string     `yaml:"dir,omitempty"`
	Command    string     `yaml:"command"`
	Args       []string   `yaml:"args,omitempty"`
	PromptMode PromptMode `yaml:"prompt_mode,omitempty"`
}

// AgentConfig is a tagged union: Kind names the variant and exactly the
// matching pointer is set after decoding.
type AgentConfig struct {
	Kind             AgentKind
	CompletionSignal string
	TimeoutSeconds   int

	Process      *ProcessAgent
	ClaudeStream *ClaudeStreamAgent
	Sprite       *SpriteAgent
}

type agentHeader struct {
	Kind             AgentKind `yaml:"kind"`
	CompletionSignal string    `yaml:"completion_signal,omitempty"`
	TimeoutSeconds   *int      `yaml:"timeout_seconds,omitempty"`
}

// UnmarshalYAML decodes the kind tag first and then the matching variant
// from the same mapping.
func (a *AgentConfig) UnmarshalYAML(node *yaml.Node) error {
	var head agentHeader
	if err := node.Decode(&head); err != nil {
		return err
	}

	out := AgentConfig{
		Kind:             head.Kind,
		CompletionSignal: head.CompletionSignal,
		TimeoutSeconds:   a.TimeoutSeconds,
	}
	if out.Kind == "" {
		out.Kind = AgentKindProcess
	}
	if head.TimeoutSeconds != nil {
		out.TimeoutSeconds = *head.TimeoutSeconds
	}
	if out.CompletionSignal == "" {
		out.CompletionSignal = a.CompletionSignal
	}

	switch out.Kind {
	case AgentKindProcess:
		var v ProcessAgent
		if err := node.Decode(&v); err != nil {
			return err
		}
		out.Process = &v
	case AgentKindClaudeStream:
		var v ClaudeStreamAgent
		if err := node.Decode(&v); err != nil {
			return err
		}
		out.ClaudeStream = &v
	case AgentKindSprite:
		var v SpriteAgent
		if err := node.Decode(&v); err != nil {
			return err
		}
		out.Sprite = &v
	default:
		return ValidationError{Field: "agent.kind", Message: fmt.Sprintf("unknown agent kind %q", out.Kind)}
	}

	*a = out
	return nil
}

// Timeout returns TimeoutSeconds as a duration; zero means no timeout.
func (a AgentConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PhaseConfig overrides agent settings for a single phase.
type PhaseConfig struct {
	CompletionSignal string `yaml:"completion_signal,omitempty"`
	TimeoutSeconds   *int   `yaml:"timeout_seconds,omitempty"`
}

// BatchConfig holds orchestrator settings.
type BatchConfig struct {
	StaleAfterHours float64 `yaml:"stale_after_hours"`
}

// ScheduleConfig drives `wreckit watch`.
type ScheduleConfig struct {
	Cron        string `yaml:"cron,omitempty"`
	RetryFailed bool   `yaml:"retry_failed,omitempty"`
}

// Config represents the .wreckit/config.yaml file.
type Config struct {
	Agent        AgentConfig            `yaml:"agent"`
	Phases       map[string]PhaseConfig `yaml:"phases,omitempty"`
	BaseBranch   string                 `yaml:"base_branch"`
	BranchPrefix string                 `yaml:"branch_prefix"`
	Batch        BatchConfig            `yaml:"batch"`
	Schedule     ScheduleConfig         `yaml:"schedule"`
	LogLevel     string                 `yaml:"log_level,omitempty"`
}

// ResolvedAgent is the effective agent setup for one phase.
type ResolvedAgent struct {
	Agent            AgentConfig
	CompletionSignal string
	Timeout          time.Duration
}

// ResolveAgent applies the per-phase overrides on top of the agent config.
func (c *Config) ResolveAgent(phase string) ResolvedAgent {
	r := ResolvedAgent{
		Agent:            c.Agent,
		CompletionSignal: c.Agent.CompletionSignal,
		Timeout:          c.Agent.Timeout(),
	}
	if pc, ok := c.Phases[phase]; ok {
		if pc.CompletionSignal != "" {
			r.CompletionSignal = pc.CompletionSignal
		}
		if pc.TimeoutSeconds != nil {
			r.Timeout = 0
			if *pc.TimeoutSeconds > 0 {
				r.Timeout = time.Duration(*pc.TimeoutSeconds) * time.Second
			}
		}
	}
	return r
}

// StaleAfter returns how old a batch progress record may be before it is
// ignored.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Batch.StaleAfterHours * float64(time.Hour))
}

// BranchName returns the git branch used for an item.
func (c *Config) BranchName(itemID string) string {
	return c.BranchPrefix + itemID
}
