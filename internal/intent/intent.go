// Package intent turns an utterance into a structured intent record.
package intent

import (
	"context"

	"github.com/kazz187/voicetask/internal/task"
)

type Kind string

const (
	KindAdd        Kind = "add"
	KindModify     Kind = "modify"
	KindDelete     Kind = "delete"
	KindComplete   Kind = "complete"
	KindQuery      Kind = "query"
	KindPrioritize Kind = "prioritize"
	KindBraindump  Kind = "braindump"
	KindError      Kind = "error"
)

// Kinds lists what a classifier may return. KindError is reserved for
// the router.
var Kinds = []Kind{KindAdd, KindModify, KindDelete, KindComplete, KindQuery, KindPrioritize, KindBraindump}

func (k Kind) Valid() bool {
	switch k {
	case KindAdd, KindModify, KindDelete, KindComplete, KindQuery, KindPrioritize, KindBraindump, KindError:
		return true
	}
	return false
}

// NeedsTarget reports whether the intent acts on an existing task.
func (k Kind) NeedsTarget() bool {
	return k == KindModify || k == KindDelete || k == KindComplete
}

const FallbackConfidence = 0.5

// Result is the classifier output. Empty strings mean absent.
type Result struct {
	Intent       Kind          `json:"intent"`
	Confidence   float64       `json:"confidence"`
	TargetTaskID string        `json:"target_task_id,omitempty"`
	NewContent   string        `json:"new_content,omitempty"`
	Priority     task.Priority `json:"priority,omitempty"`
	Category     task.Category `json:"category,omitempty"`
}

// Fallback is the result every classifier returns when it cannot decide.
func Fallback() Result {
	return Result{Intent: KindBraindump, Confidence: FallbackConfidence}
}

type Classifier interface {
	// Classify always returns a usable Result. A non-nil error is
	// informational and comes with Fallback().
	Classify(ctx context.Context, utterance string, tasks []task.Task) (Result, error)
}

// FallbackClassifier is used when no model is configured. Every
// utterance is treated as a brain dump.
type FallbackClassifier struct{}

func (FallbackClassifier) Classify(context.Context, string, []task.Task) (Result, error) {
	return Fallback(), nil
}
