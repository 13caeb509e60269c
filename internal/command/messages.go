package command

import (
	"fmt"
	"strings"

	"github.com/kazz187/voicetask/internal/task"
)

const (
	msgNoPending        = "No pending tasks to work on!"
	msgNoClientTasks    = "No client tasks found."
	msgNoHighPriority   = "No high priority tasks found."
	msgPrioritized      = "Tasks have been prioritized based on content analysis."
	msgNothingExtracted = "No tasks extracted from brain dump"
)

func msgAdded(text string) string { return "Added task: " + text }
func msgUpdated(text string) string { return "Updated task: " + text }
func msgDeleted(text string) string { return "Deleted task: " + text }
func msgCompleted(text string) string { return "Completed task: " + text }
func msgNotFound(text string) string { return "Task no longer exists: " + text }
func msgQueryEcho(u string) string { return "Query: " + u }
func msgError(err error) string { return "Error processing command: " + err.Error() }

func msgPrioritizeFailed(err error) string {
	return "Could not prioritize tasks: " + err.Error()
}

func msgExtracted(n int) string {
	return fmt.Sprintf("Added %d tasks from brain dump", n)
}

func msgNext(t task.Task) string {
	return fmt.Sprintf("You should work on: %s (Priority: %s)", t.Text, t.Priority)
}

func msgLowConfidence(confidence float64, utterance string) string {
	return fmt.Sprintf("Low confidence (%.1f%%) in understanding: '%s'. Please try rephrasing.", confidence*100, utterance)
}

func bulletList(header string, tasks []task.Task) string {
	var b strings.Builder
	b.WriteString(header)
	for _, t := range tasks {
		b.WriteString("\n• ")
		b.WriteString(t.Text)
	}
	return b.String()
}
