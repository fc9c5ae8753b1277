package agent

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/thruflo/wreckit/internal/config"
	"github.com/thruflo/wreckit/internal/logging"
)

// Claude stream-json event types.
const (
	EventTypeSystem    = "system"
	EventTypeAssistant = "assistant"
	EventTypeUser      = "user"
	EventTypeResult    = "result"
)

// StreamEvent is one line of `claude --output-format stream-json`.
type StreamEvent struct {
	Type      string   `json:"type"`
	Subtype   string   `json:"subtype,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Message   *Message `json:"message,omitempty"`
	Result    string   `json:"result,omitempty"`
	IsError   bool     `json:"is_error,omitempty"`
	NumTurns  int      `json:"num_turns,omitempty"`
}

// Message holds the content blocks of an assistant or user event.
type Message struct {
	Content []ContentBlock `json:"content"`
}

// ContentBlock is text, tool_use or tool_result content.
type ContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ParseStreamEvent parses one stream-json line. Empty lines return nil.
func ParseStreamEvent(line string) (*StreamEvent, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	var event StreamEvent
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Text returns the concatenated text blocks of the event.
func (e *StreamEvent) Text() string {
	if e.Message == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range e.Message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// ToolNames returns the tools invoked by an assistant event.
func (e *StreamEvent) ToolNames() []string {
	if e.Type != EventTypeAssistant || e.Message == nil {
		return nil
	}
	var names []string
	for _, block := range e.Message.Content {
		if block.Type == "tool_use" {
			names = append(names, block.Name)
		}
	}
	return names
}

// DecodeClaudeLine turns a stream-json line into readable transcript text.
// Assistant text and the final result are kept, tool calls become a short
// marker, and anything that is not JSON passes through unchanged.
func DecodeClaudeLine(line string) (string, bool) {
	event, err := ParseStreamEvent(line)
	if err != nil {
		return line + "\n", true
	}
	if event == nil {
		return "", false
	}

	switch event.Type {
	case EventTypeAssistant:
		var b strings.Builder
		if text := event.Text(); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
		for _, name := range event.ToolNames() {
			b.WriteString("[tool] " + name + "\n")
		}
		return b.String(), b.Len() > 0
	case EventTypeResult:
		if event.Result == "" {
			return "", false
		}
		return event.Result + "\n", true
	}
	return "", false
}

// NewClaudeStreamExecutor runs claude in print mode with stream-json
// output and decodes the events before completion detection.
func NewClaudeStreamExecutor(cfg *config.ClaudeStreamAgent, log *logging.Logger) *ProcessExecutor {
	command := cfg.Command
	if command == "" {
		command = config.DefaultCommand
	}

	args := []string{"-p", "--output-format", "stream-json", "--verbose", "--dangerously-skip-permissions"}
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if cfg.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(cfg.MaxTurns))
	}
	args = append(args, cfg.ExtraArgs...)

	return &ProcessExecutor{
		Command:    command,
		Args:       args,
		PromptMode: config.PromptModeStdin,
		Decode:     DecodeClaudeLine,
		Log:        log,
	}
}
