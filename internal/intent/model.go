package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kazz187/voicetask/internal/llm"
	"github.com/kazz187/voicetask/internal/task"
)

const systemPrompt = "You classify spoken commands for a personal task list. " +
	"Reply with a single JSON object and nothing else."

const promptTemplate = `Classify the user's utterance against their current tasks.

Intents:
- add: create a new task (new_content is the task text)
- modify: change an existing task (target_task_id and new_content)
- delete: remove an existing task (target_task_id)
- complete: mark an existing task done (target_task_id)
- query: ask about tasks (what next, client tasks, high priority tasks)
- prioritize: reassign priorities across pending tasks
- braindump: several loosely stated things to do

Current tasks (JSON):
%s

Utterance: %q

Reply with:
{"intent": "...", "confidence": 0.0-1.0, "target_task_id": "id or null",
 "new_content": "text or null", "priority": "high|medium|low or null",
 "category": "client|business|personal or null"}`

// snapshot is what the model sees of each task.
type snapshot struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Priority  task.Priority `json:"priority"`
	Category  task.Category `json:"category"`
	Completed bool          `json:"completed"`
}

// reply mirrors the model's JSON. Pointers tell null apart from missing
// values that need defaults.
type reply struct {
	Intent       string   `json:"intent"`
	Confidence   *float64 `json:"confidence"`
	TargetTaskID *string  `json:"target_task_id"`
	NewContent   *string  `json:"new_content"`
	Priority     *string  `json:"priority"`
	Category     *string  `json:"category"`
}

type ModelClassifier struct {
	completer llm.Completer
}

func NewModelClassifier(c llm.Completer) *ModelClassifier {
	return &ModelClassifier{completer: c}
}

func (c *ModelClassifier) Classify(ctx context.Context, utterance string, tasks []task.Task) (Result, error) {
	snaps := make([]snapshot, 0, len(tasks))
	for _, t := range tasks {
		snaps = append(snaps, snapshot{ID: t.ID, Text: t.Text, Priority: t.Priority, Category: t.Category, Completed: t.Completed})
	}
	data, err := json.Marshal(snaps)
	if err != nil {
		return Fallback(), fmt.Errorf("encode task snapshot: %w", err)
	}

	raw, err := c.completer.Complete(ctx, systemPrompt, fmt.Sprintf(promptTemplate, data, utterance))
	if err != nil {
		return Fallback(), fmt.Errorf("classify intent: %w", err)
	}
	var r reply
	if err := llm.DecodeJSON(raw, &r); err != nil {
		return Fallback(), fmt.Errorf("classify intent: %w", err)
	}
	return r.toResult()
}

func (r reply) toResult() (Result, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(r.Intent)))
	if !kind.Valid() || kind == KindError {
		return Fallback(), fmt.Errorf("classify intent: unknown intent %q", r.Intent)
	}

	res := Result{Intent: kind, Confidence: FallbackConfidence}
	if r.Confidence != nil && !math.IsNaN(*r.Confidence) {
		res.Confidence = min(max(*r.Confidence, 0), 1)
	}
	if r.TargetTaskID != nil {
		res.TargetTaskID = strings.TrimSpace(*r.TargetTaskID)
	}
	if r.NewContent != nil {
		res.NewContent = strings.TrimSpace(*r.NewContent)
	}
	if r.Priority != nil && strings.TrimSpace(*r.Priority) != "" {
		res.Priority = task.ParsePriority(*r.Priority)
	}
	if r.Category != nil {
		res.Category = task.ParseCategory(*r.Category)
	}
	return res, nil
}
