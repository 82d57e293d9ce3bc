// Package assistant executes composed prompts against the editor-side
// assistants. The host does not know how an assistant surfaces its
// panel; it only needs a prompt in and a result (or error) out.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/standardbeagle/picket/internal/protocol"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// ErrUnavailable means the target assistant has no configured backend.
var ErrUnavailable = errors.New("assistant not configured")

// Runner executes one prompt. Exactly one prompt is in flight per relay
// connection, so runners need no internal queueing.
type Runner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Registry maps assistant targets to their runners.
type Registry map[protocol.Target]Runner

// Run dispatches a prompt to the runner for target.
func (r Registry) Run(ctx context.Context, target protocol.Target, prompt string) (string, error) {
	runner, ok := r[target]
	if !ok || runner == nil {
		return "", fmt.Errorf("target %q: %w", target, ErrUnavailable)
	}
	return runner.Run(ctx, prompt)
}

// Claude runs prompts through the Anthropic API.
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaude creates a Claude runner. An empty model takes DefaultModel.
func NewClaude(apiKey, model string) *Claude {
	if model == "" {
		model = DefaultModel
	}
	return &Claude{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: 4096,
	}
}

func (c *Claude) Run(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// Command runs prompts through an external command hook (the copilot
// integration path): the prompt is written to stdin, combined output is
// the result.
type Command struct {
	name string
	args []string
}

// NewCommand creates a command runner from a shell-style command line.
// An empty command line yields a runner that reports ErrUnavailable.
func NewCommand(commandLine string) *Command {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return &Command{}
	}
	return &Command{name: fields[0], args: fields[1:]}
}

func (c *Command) Run(ctx context.Context, prompt string) (string, error) {
	if c.name == "" {
		return "", ErrUnavailable
	}

	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = strings.NewReader(prompt)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", c.name, err, strings.TrimSpace(out.String()))
	}
	return strings.TrimSpace(out.String()), nil
}
