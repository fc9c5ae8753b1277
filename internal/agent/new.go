package agent

import (
	"fmt"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/logging"
	"github.com/thruflo/wreckit/internal/sprite"
)

// Options carries what New needs beyond the agent config.
type Options struct {
	// SpriteClient is used by sprite agents. When nil one is built from
	// SpriteToken.
	SpriteClient sprite.Client
	SpriteToken  string
	Log          *logging.Logger
}

// New builds the Executor for an agent config. It is the only place that
// switches on the agent kind.
func New(ac config.AgentConfig, opts Options) (Executor, error) {
	log := opts.Log
	if log == nil {
		log = logging.Default()
	}
	log = log.Named("agent")

	switch ac.Kind {
	case config.AgentKindProcess:
		if ac.Process == nil {
			return nil, fmt.Errorf("process agent has no settings")
		}
		return NewProcessExecutor(ac.Process, log), nil

	case config.AgentKindClaudeStream:
		cs := ac.ClaudeStream
		if cs == nil {
			cs = &config.ClaudeStreamAgent{}
		}
		return NewClaudeStreamExecutor(cs, log), nil

	case config.AgentKindSprite:
		if ac.Sprite == nil {
			return nil, fmt.Errorf("sprite agent has no settings")
		}
		client := opts.SpriteClient
		if client == nil {
			if opts.SpriteToken == "" {
				return nil, fmt.Errorf("SPRITE_TOKEN is not set (add it to .wreckit/%s)", config.EnvFileName)
			}
			client = sprite.NewSDKClient(opts.SpriteToken)
		}
		return NewSpriteExecutor(client, ac.Sprite, log), nil
	}
	return nil, fmt.Errorf("unknown agent kind %q", ac.Kind)
}
