package command

import (
	"github.com/kazz187/voicetask/internal/intent"
	"github.com/kazz187/voicetask/internal/task"
)

type Mode string

const (
	ModeCommand   Mode = "command"
	ModeBraindump Mode = "braindump"
)

// ParseMode treats anything other than "braindump" as command mode.
func ParseMode(s string) Mode {
	if Mode(s) == ModeBraindump {
		return ModeBraindump
	}
	return ModeCommand
}

// Result describes what one utterance did. Tasks is only filled by the
// brain dump branch.
type Result struct {
	Intent      intent.Kind   `json:"intent"`
	Confidence  float64       `json:"confidence"`
	TargetTask  *task.Task    `json:"target_task"`
	NewContent  string        `json:"new_content,omitempty"`
	Priority    task.Priority `json:"priority,omitempty"`
	Category    task.Category `json:"category,omitempty"`
	Tasks       []string      `json:"tasks"`
	Message     string        `json:"message"`
	ActionTaken bool          `json:"action_taken"`

	// LowConfidence is set when Message asks the user to rephrase.
	LowConfidence bool `json:"low_confidence"`
}

func errorResult(err error) Result {
	return Result{
		Intent:     intent.KindError,
		Confidence: 0,
		Tasks:      []string{},
		Message:    msgError(err),
	}
}
