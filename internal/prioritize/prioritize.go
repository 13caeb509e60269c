// Package prioritize reassigns priorities across pending tasks.
package prioritize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kazz187/voicetask/internal/llm"
	"github.com/kazz187/voicetask/internal/task"
)

// Prioritizer returns the new priority per task id. Ids missing from the
// map keep their priority.
type Prioritizer interface {
	Prioritize(ctx context.Context, tasks []task.Task) (map[string]task.Priority, error)
}

const systemPrompt = "You are a productivity assistant that ranks tasks by urgency and impact. " +
	"Reply with a single JSON object and nothing else."

const promptTemplate = `Assign a priority (high, medium or low) to each of these pending tasks.
Client work and anything with a deadline is usually more urgent.

Tasks (JSON):
%s

Reply with an object mapping each task id to its priority, for example {"01H...": "high"}.`

type ModelPrioritizer struct {
	completer llm.Completer
}

func NewModelPrioritizer(c llm.Completer) *ModelPrioritizer {
	return &ModelPrioritizer{completer: c}
}

func (p *ModelPrioritizer) Prioritize(ctx context.Context, tasks []task.Task) (map[string]task.Priority, error) {
	if len(tasks) == 0 {
		return map[string]task.Priority{}, nil
	}
	type item struct {
		ID       string        `json:"id"`
		Text     string        `json:"text"`
		Category task.Category `json:"category"`
	}
	items := make([]item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, item{ID: t.ID, Text: t.Text, Category: t.Category})
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}

	raw, err := p.completer.Complete(ctx, systemPrompt, fmt.Sprintf(promptTemplate, data))
	if err != nil {
		return nil, fmt.Errorf("prioritize tasks: %w", err)
	}
	var reply map[string]string
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		return nil, fmt.Errorf("prioritize tasks: %w", err)
	}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	out := make(map[string]task.Priority, len(reply))
	for id, prio := range reply {
		if known[id] {
			out[id] = task.ParsePriority(prio)
		}
	}
	return out, nil
}

var (
	highKeywords = regexp.MustCompile(`\b(urgent|asap|today|tonight|deadline|due|overdue|immediately|critical|important|client)\b`)
	lowKeywords  = regexp.MustCompile(`\b(someday|maybe|eventually|whenever|later|sometime)\b`)
)

// KeywordPrioritizer ranks by a fixed vocabulary. Client tasks count as
// high.
type KeywordPrioritizer struct{}

func (KeywordPrioritizer) Prioritize(_ context.Context, tasks []task.Task) (map[string]task.Priority, error) {
	out := make(map[string]task.Priority, len(tasks))
	for _, t := range tasks {
		out[t.ID] = keywordPriority(t)
	}
	return out, nil
}

func keywordPriority(t task.Task) task.Priority {
	text := strings.ToLower(t.Text)
	switch {
	case t.Category == task.CategoryClient, highKeywords.MatchString(text):
		return task.PriorityHigh
	case lowKeywords.MatchString(text):
		return task.PriorityLow
	default:
		return task.PriorityMedium
	}
}

// Fallback tries each prioritizer in order and returns the first success.
type Fallback []Prioritizer

func (f Fallback) Prioritize(ctx context.Context, tasks []task.Task) (map[string]task.Priority, error) {
	var lastErr error
	for _, p := range f {
		out, err := p.Prioritize(ctx, tasks)
		if err == nil {
			return out, nil
		}
		slog.WarnContext(ctx, "prioritizer failed", "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no prioritizer configured")
	}
	return nil, lastErr
}
