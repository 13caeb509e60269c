// Package help answers questions about using the voice task manager.
package help

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kazz187/voicetask/internal/llm"
	"github.com/kazz187/voicetask/internal/task"
)

//go:embed knowledge.md
var knowledge string

const quickReference = `Quick Reference - Voice Commands

Adding tasks:
• "Add a task to [description]"
• "Create a task for [description]"

Managing tasks:
• "Mark [task] as complete"
• "Change priority to high"
• "Move task to client category"

Querying:
• "Show me all high priority tasks"
• "What are my client tasks?"
• "What should I work on next?"

Deleting:
• "Delete [task description]"`

const unavailable = "I'm having trouble accessing the help system right now. Here is the quick reference instead.\n\n" + quickReference

const systemPrompt = "You are a helpful Voice Task Manager assistant. Provide clear, actionable advice."

// highlighted caps how many high priority tasks are shown to the model.
const highlighted = 3

type Service struct {
	completer llm.Completer
}

func NewService(c llm.Completer) *Service {
	return &Service{completer: c}
}

func QuickReference() string {
	return quickReference
}

// Answer asks the model with the knowledge base and a task summary as
// context. It falls back to the quick reference.
func (s *Service) Answer(ctx context.Context, question string, tasks []task.Task) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return quickReference
	}
	reply, err := s.completer.Complete(ctx, systemPrompt, buildPrompt(question, tasks))
	if err != nil {
		slog.WarnContext(ctx, "help answer failed", "error", err)
		return unavailable
	}
	return reply
}

func buildPrompt(question string, tasks []task.Task) string {
	stats := task.ComputeStats(tasks)
	var b strings.Builder
	b.WriteString("Use the following knowledge base to answer the user's question.\n\n")
	b.WriteString(knowledge)
	fmt.Fprintf(&b, "\nCurrent state: %d tasks, %d pending, %d client, %d business, %d personal.\n",
		stats.Total, stats.Pending, stats.ClientTasks, stats.BusinessTasks, stats.PersonalTasks)

	high := pendingHigh(tasks)
	if len(high) > 0 {
		b.WriteString("High priority pending tasks:\n")
		for i, t := range high[:min(len(high), highlighted)] {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.Text)
		}
	}
	fmt.Fprintf(&b, "\nUser question: %q\n\n", question)
	b.WriteString("Answer directly and concisely, and suggest voice commands they could say.")
	return b.String()
}

// Suggestions proposes what to say next given the current tasks.
func Suggestions(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "You have no tasks yet! Try saying 'Add a task to review documentation' or use brain dump mode to add several at once."
	}
	stats := task.ComputeStats(tasks)
	var lines []string
	if high := pendingHigh(tasks); len(high) > 0 {
		lines = append(lines,
			fmt.Sprintf("You have %d high-priority tasks. Try saying:", len(high)),
			"• 'Mark "+high[0].Text+" as complete'",
			"• 'Show me all high priority tasks'",
			"• 'What should I work on next?'",
		)
	} else if stats.Pending > 0 {
		lines = append(lines,
			fmt.Sprintf("You have %d pending tasks. Try saying:", stats.Pending),
			"• 'What should I work on next?'",
			"• 'Show me all client tasks'",
			"• 'Prioritize my tasks'",
		)
	} else {
		lines = append(lines, "All your tasks are complete! Great job! Try adding new tasks with brain dump mode.")
	}

	uncategorized := 0
	for _, t := range tasks {
		if !t.Completed && t.Category == task.CategoryNone {
			uncategorized++
		}
	}
	if uncategorized > 0 && stats.Pending > 0 {
		lines = append(lines, fmt.Sprintf("%d pending tasks have no category. Try 'Move [task] to client category'.", uncategorized))
	}
	if stats.Completed > 0 && stats.Completed >= stats.Pending {
		lines = append(lines, fmt.Sprintf("%d tasks are done. Run 'voicetask clear --completed' to tidy up.", stats.Completed))
	}
	return strings.Join(lines, "\n")
}

func pendingHigh(tasks []task.Task) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if !t.Completed && t.Priority == task.PriorityHigh {
			out = append(out, t)
		}
	}
	return out
}
