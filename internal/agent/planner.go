package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kazz187/voicetask/internal/llm"
)

const plannerSystemPrompt = `You are a voice task manager assistant that executes actions directly.
Use tools for every task-related command. Never explain how to do something, do it.
Only answer without tools when the user asks how to do something or which commands exist.

Reply with one JSON object and nothing else:
{"tool_calls": [{"name": "<tool>", "arguments": {...}}], "response": "<text for the user>"}
Use an empty tool_calls list once the request is fully handled.`

const plannerPromptTemplate = `Available tools (JSON):
%s

User request: %q
%s`

// ModelPlanner asks the model for the next tool calls using a JSON
// protocol.
type ModelPlanner struct {
	completer llm.Completer
}

func NewModelPlanner(c llm.Completer) *ModelPlanner {
	return &ModelPlanner{completer: c}
}

type planReply struct {
	ToolCalls []Call `json:"tool_calls"`
	Response  string `json:"response"`
}

func (p *ModelPlanner) Plan(ctx context.Context, request string, tools []ToolSpec, history []Step) (Plan, error) {
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return Plan{}, fmt.Errorf("encode tools: %w", err)
	}
	historyText := ""
	if len(history) > 0 {
		data, err := json.Marshal(history)
		if err != nil {
			return Plan{}, fmt.Errorf("encode history: %w", err)
		}
		historyText = fmt.Sprintf("\nTool calls already made and their results (JSON):\n%s\nDo not repeat them.\n", data)
	}

	raw, err := p.completer.Complete(ctx, plannerSystemPrompt, fmt.Sprintf(plannerPromptTemplate, toolsJSON, request, historyText))
	if err != nil {
		return Plan{}, fmt.Errorf("plan agent turn: %w", err)
	}

	var reply planReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		// A plain-text reply is a final answer without tools.
		if !strings.ContainsAny(raw, "{[") {
			return Plan{Text: strings.TrimSpace(raw)}, nil
		}
		return Plan{}, fmt.Errorf("plan agent turn: %w", err)
	}
	calls := make([]Call, 0, len(reply.ToolCalls))
	for _, c := range reply.ToolCalls {
		if c.Name = strings.TrimSpace(c.Name); c.Name != "" {
			calls = append(calls, c)
		}
	}
	return Plan{Calls: calls, Text: reply.Response}, nil
}
