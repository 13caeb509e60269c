package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kazz187/voicetask/internal/matcher"
	"github.com/kazz187/voicetask/internal/task"
)

// ToolSpec is what a planner is told about a tool.
type ToolSpec struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

type tool struct {
	spec ToolSpec
	run  func(ctx context.Context, args arguments) (string, error)
}

const pendingPreview = 5

func (e *Executor) register() {
	tools := []tool{
		{
			spec: ToolSpec{Name: "list_tasks", Description: "List every task."},
			run: func(context.Context, arguments) (string, error) {
				return formatList("Tasks", e.store.List(), "No tasks."), nil
			},
		},
		{
			spec: ToolSpec{
				Name:        "add_task",
				Description: "Add a task. text is what needs to be done, without command words.",
				Parameters: map[string]string{
					"text":     "task description (required)",
					"priority": "high, medium or low (default medium)",
					"category": "client, business or personal (optional)",
				},
			},
			run: e.addTask,
		},
		{
			spec: ToolSpec{
				Name:        "complete_task",
				Description: "Mark a pending task as completed, found by its description or key words.",
				Parameters:  map[string]string{"task": "task description or key words (required)"},
			},
			run: e.completeTask,
		},
		{
			spec: ToolSpec{
				Name:        "toggle_task",
				Description: "Flip a task between completed and pending.",
				Parameters:  map[string]string{"id": "task id", "task": "task description when the id is unknown"},
			},
			run: e.toggleTask,
		},
		{
			spec: ToolSpec{
				Name:        "update_task",
				Description: "Change a task's text, priority or category.",
				Parameters: map[string]string{
					"id":       "task id",
					"task":     "task description when the id is unknown",
					"text":     "new text (optional)",
					"priority": "new priority (optional)",
					"category": "new category (optional)",
				},
			},
			run: e.updateTask,
		},
		{
			spec: ToolSpec{
				Name:        "delete_task",
				Description: "Delete a task permanently.",
				Parameters:  map[string]string{"id": "task id", "task": "task description when the id is unknown"},
			},
			run: e.deleteTask,
		},
		{
			spec: ToolSpec{
				Name:        "filter_by_priority",
				Description: "List tasks with the given priority.",
				Parameters:  map[string]string{"priority": "high, medium or low (required)"},
			},
			run: func(_ context.Context, args arguments) (string, error) {
				p := task.ParsePriority(args.str("priority"))
				return formatList(titleCase(string(p))+" priority tasks", e.store.ListByPriority(p), fmt.Sprintf("No %s priority tasks.", p)), nil
			},
		},
		{
			spec: ToolSpec{
				Name:        "filter_by_category",
				Description: "List tasks in the given category.",
				Parameters:  map[string]string{"category": "client, business or personal (required)"},
			},
			run: func(_ context.Context, args arguments) (string, error) {
				c := task.ParseCategory(args.str("category"))
				if c == task.CategoryNone {
					return fmt.Sprintf("Unknown category %q. Use client, business or personal.", args.str("category")), nil
				}
				return formatList(titleCase(string(c))+" tasks", e.store.ListByCategory(c), fmt.Sprintf("No %s tasks.", c)), nil
			},
		},
		{
			spec: ToolSpec{Name: "pending_tasks", Description: "List tasks that are not completed."},
			run: func(context.Context, arguments) (string, error) {
				return formatList("Pending tasks", e.store.ListPending(), "No pending tasks."), nil
			},
		},
		{
			spec: ToolSpec{Name: "completed_tasks", Description: "List completed tasks."},
			run: func(context.Context, arguments) (string, error) {
				return formatList("Completed tasks", e.store.ListCompleted(), "No completed tasks."), nil
			},
		},
		{
			spec: ToolSpec{Name: "task_stats", Description: "Summarize task counts."},
			run: func(context.Context, arguments) (string, error) {
				return formatStats(e.store.Stats()), nil
			},
		},
		{
			spec: ToolSpec{
				Name:        "find_task",
				Description: "Find tasks resembling a description.",
				Parameters:  map[string]string{"query": "what to look for (required)"},
			},
			run: func(_ context.Context, args arguments) (string, error) {
				q := args.str("query")
				found := matcher.FindMultipleMatches(q, e.store.List(), matcher.DefaultMultipleThreshold)
				return formatList(fmt.Sprintf("Tasks matching '%s'", q), found, fmt.Sprintf("No tasks match '%s'.", q)), nil
			},
		},
	}

	e.tools = make(map[string]tool, len(tools))
	e.specs = make([]ToolSpec, 0, len(tools))
	for _, t := range tools {
		e.tools[t.spec.Name] = t
		e.specs = append(e.specs, t.spec)
	}
}

func (e *Executor) addTask(ctx context.Context, args arguments) (string, error) {
	text := args.str("text")
	if text == "" {
		return "Error: Task text cannot be empty", nil
	}
	p := task.ParsePriority(args.str("priority"))
	c := task.ParseCategory(args.str("category"))
	if _, err := e.store.Add(ctx, text, p, c); err != nil {
		return "", err
	}
	msg := fmt.Sprintf("Added task: '%s' with %s priority", text, p)
	if c != task.CategoryNone {
		msg += fmt.Sprintf(" in %s category", c)
	}
	return msg, nil
}

func (e *Executor) completeTask(ctx context.Context, args arguments) (string, error) {
	ident := args.str("task")
	pending := e.store.ListPending()
	if len(pending) == 0 {
		return "No pending tasks to complete.", nil
	}
	t, ok := resolvePending(ident, pending)
	if !ok {
		preview := pending[:min(len(pending), pendingPreview)]
		var b strings.Builder
		fmt.Fprintf(&b, "Could not find a task matching '%s'.\n\nYour pending tasks:", ident)
		for _, p := range preview {
			b.WriteString("\n- " + p.Text)
		}
		return b.String(), nil
	}
	done := true
	if _, err := e.store.Update(ctx, t.ID, task.UpdateFields{Completed: &done}); err != nil {
		return "", err
	}
	return "Completed: " + t.Text, nil
}

// resolvePending tries an exact match, then containment either way, then
// the most shared words. Earlier tasks win ties.
func resolvePending(ident string, pending []task.Task) (task.Task, bool) {
	ident = strings.ToLower(strings.TrimSpace(ident))
	if ident == "" {
		return task.Task{}, false
	}
	for _, t := range pending {
		if strings.ToLower(strings.TrimSpace(t.Text)) == ident {
			return t, true
		}
	}
	for _, t := range pending {
		text := strings.ToLower(t.Text)
		if strings.Contains(text, ident) || strings.Contains(ident, text) {
			return t, true
		}
	}
	words := make(map[string]bool)
	for _, w := range strings.Fields(ident) {
		words[w] = true
	}
	best, bestScore := -1, 0
	for i, t := range pending {
		score := 0
		seen := make(map[string]bool)
		for _, w := range strings.Fields(strings.ToLower(t.Text)) {
			if words[w] && !seen[w] {
				seen[w] = true
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return task.Task{}, false
	}
	return pending[best], true
}

// lookup finds a task by id, or failing that by description.
func (e *Executor) lookup(args arguments) (task.Task, bool) {
	if id := args.str("id"); id != "" {
		if t, ok := e.store.Get(id); ok {
			return t, true
		}
	}
	if desc := args.str("task"); desc != "" {
		if t := matcher.FindBestMatch(desc, e.store.List(), matcher.DefaultBestThreshold); t != nil {
			return *t, true
		}
	}
	return task.Task{}, false
}

func notFound(args arguments) string {
	if d := args.str("task"); d != "" {
		return fmt.Sprintf("Could not find a task matching '%s'.", d)
	}
	return fmt.Sprintf("Could not find a task with id '%s'.", args.str("id"))
}

func (e *Executor) toggleTask(ctx context.Context, args arguments) (string, error) {
	t, ok := e.lookup(args)
	if !ok {
		return notFound(args), nil
	}
	if err := e.store.Toggle(ctx, t.ID); err != nil {
		return "", err
	}
	if t.Completed {
		return fmt.Sprintf("Marked '%s' as pending", t.Text), nil
	}
	return fmt.Sprintf("Marked '%s' as completed", t.Text), nil
}

func (e *Executor) updateTask(ctx context.Context, args arguments) (string, error) {
	t, ok := e.lookup(args)
	if !ok {
		return notFound(args), nil
	}
	var f task.UpdateFields
	if text := args.str("text"); text != "" {
		f.Text = &text
	}
	if s := args.str("priority"); s != "" {
		p := task.ParsePriority(s)
		f.Priority = &p
	}
	if _, ok := args["category"]; ok {
		c := task.ParseCategory(args.str("category"))
		f.Category = &c
	}
	if _, err := e.store.Update(ctx, t.ID, f); err != nil {
		return "", err
	}
	updated, _ := e.store.Get(t.ID)
	return fmt.Sprintf("Updated task: '%s' (%s)", updated.Text, describe(updated)), nil
}

func (e *Executor) deleteTask(ctx context.Context, args arguments) (string, error) {
	t, ok := e.lookup(args)
	if !ok {
		return notFound(args), nil
	}
	if err := e.store.Delete(ctx, t.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted task: '%s'", t.Text), nil
}

// arguments are decoded from JSON, so values may be any JSON type.
type arguments map[string]any

func (a arguments) str(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func describe(t task.Task) string {
	s := string(t.Priority)
	if t.Category != task.CategoryNone {
		s += ", " + string(t.Category)
	}
	return s
}

func formatList(title string, tasks []task.Task, empty string) string {
	if len(tasks) == 0 {
		return empty
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):", title, len(tasks))
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n- [%s] %s (%s) [%s]", mark, t.Text, describe(t), t.ID)
	}
	return b.String()
}

func formatStats(s task.Stats) string {
	return fmt.Sprintf(
		"%d tasks: %d completed, %d pending. Priority: %d high, %d medium, %d low. Categories: %d client, %d business, %d personal.",
		s.Total, s.Completed, s.Pending,
		s.HighPriority, s.MediumPriority, s.LowPriority,
		s.ClientTasks, s.BusinessTasks, s.PersonalTasks,
	)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
