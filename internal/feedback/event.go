// Package feedback tells the user what a command did, as short spoken
// confirmations delivered to logs, browsers and push subscribers.
package feedback

import (
	"strings"

	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/intent"
)

type EventType string

const (
	EventTaskAdded     EventType = "task_added"
	EventTaskUpdated   EventType = "task_updated"
	EventTaskDeleted   EventType = "task_deleted"
	EventTaskCompleted EventType = "task_completed"
	EventTasksCleared  EventType = "tasks_cleared"
	EventLowConfidence EventType = "low_confidence"
	EventQueryResponse EventType = "query_response"
	EventError         EventType = "error"
)

var spoken = map[EventType]string{
	EventTaskAdded:     "Task added",
	EventTaskUpdated:   "Task updated",
	EventTaskDeleted:   "Task deleted",
	EventTaskCompleted: "Task completed",
	EventTasksCleared:  "All tasks cleared",
	EventLowConfidence: "I'm not sure what you meant. Please try again.",
}

// Event is one confirmation. Message is what gets spoken.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	TaskID  string    `json:"task_id,omitempty"`
}

// Confirmation builds the canned spoken message for t, with detail
// appended when given.
func Confirmation(t EventType, taskID, detail string) Event {
	msg := spoken[t]
	if msg == "" {
		msg = string(t)
	}
	if detail != "" {
		msg = strings.TrimSuffix(msg, ".") + ". " + detail
	}
	return Event{Type: t, Message: msg, Detail: detail, TaskID: taskID}
}

func QueryResponse(text string) Event {
	return Event{Type: EventQueryResponse, Message: text}
}

func Error(msg string) Event {
	return Event{Type: EventError, Message: "Error: " + msg}
}

// FromResult maps a command result to the confirmation to speak. The
// second value is false when there is nothing to say.
func FromResult(res command.Result) (Event, bool) {
	var taskID string
	if res.TargetTask != nil {
		taskID = res.TargetTask.ID
	}
	switch {
	case res.Intent == intent.KindError:
		return Error(res.Message), true
	case res.LowConfidence:
		return Confirmation(EventLowConfidence, "", ""), true
	case !res.ActionTaken:
		if res.Message == "" {
			return Event{}, false
		}
		return QueryResponse(res.Message), true
	}

	switch res.Intent {
	case intent.KindModify:
		return Confirmation(EventTaskUpdated, taskID, ""), true
	case intent.KindDelete:
		return Confirmation(EventTaskDeleted, taskID, ""), true
	case intent.KindComplete:
		return Confirmation(EventTaskCompleted, taskID, ""), true
	case intent.KindPrioritize:
		return Confirmation(EventTaskUpdated, "", res.Message), true
	case intent.KindAdd:
		return Confirmation(EventTaskAdded, "", ""), true
	default:
		return Confirmation(EventTaskAdded, "", res.Message), true
	}
}
