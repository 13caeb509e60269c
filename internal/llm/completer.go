// Package llm is the single seam between the voice pipeline and a
// language model. Everything above it depends on Completer only.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	claudeagent "github.com/kazz187/claude-agent-sdk-go"
)

var (
	ErrDisabled      = errors.New("language model is disabled")
	ErrEmptyResponse = errors.New("language model returned no result")
)

// Completer answers one prompt with plain text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ClaudeCompleter runs single-turn queries through the Claude agent SDK.
type ClaudeCompleter struct {
	workDir string
	timeout time.Duration
}

func NewClaudeCompleter(workDir string, timeout time.Duration) *ClaudeCompleter {
	if workDir == "" {
		workDir = os.TempDir()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClaudeCompleter{workDir: workDir, timeout: timeout}
}

func (c *ClaudeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	maxTurns := 1
	opts := &claudeagent.ClaudeAgentOptions{
		SystemPrompt:   system,
		Cwd:            c.workDir,
		PermissionMode: claudeagent.PermissionModeDefault,
		MaxTurns:       &maxTurns,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := claudeagent.RunQuerySync(timeoutCtx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("claude query: %w", err)
	}
	if result.Result == nil {
		return "", ErrEmptyResponse
	}
	if result.Result.IsError {
		return "", fmt.Errorf("claude query failed: %s", result.Result.Result)
	}
	text := strings.TrimSpace(result.Result.Result)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Disabled is used when no model is configured. Every adapter treats its
// error like any other model failure and falls back.
type Disabled struct{}

func (Disabled) Complete(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}
