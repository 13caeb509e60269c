// Package command routes one transcribed utterance to at most one kind
// of task store mutation and reports what happened.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kazz187/voicetask/internal/braindump"
	"github.com/kazz187/voicetask/internal/intent"
	"github.com/kazz187/voicetask/internal/matcher"
	"github.com/kazz187/voicetask/internal/prioritize"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/clog"
	"github.com/kazz187/voicetask/pkg/panicerr"
)

const DefaultConfidenceThreshold = 0.7

// TaskStore is the part of task.Store the router mutates.
type TaskStore interface {
	Add(ctx context.Context, text string, priority task.Priority, category task.Category) (string, error)
	Update(ctx context.Context, id string, f task.UpdateFields) (bool, error)
	Delete(ctx context.Context, id string) error
	ListByCategory(c task.Category) []task.Task
	ListByPriority(p task.Priority) []task.Task
}

type Router struct {
	store       TaskStore
	classifier  intent.Classifier
	extractor   braindump.Extractor
	prioritizer prioritize.Prioritizer

	matchThreshold      float64
	confidenceThreshold float64
}

type Option func(*Router)

func WithConfidenceThreshold(v float64) Option {
	return func(r *Router) { r.confidenceThreshold = v }
}

func WithMatchThreshold(v float64) Option {
	return func(r *Router) { r.matchThreshold = v }
}

func NewRouter(
	store TaskStore,
	classifier intent.Classifier,
	extractor braindump.Extractor,
	prioritizer prioritize.Prioritizer,
	opts ...Option,
) *Router {
	r := &Router{
		store:               store,
		classifier:          classifier,
		extractor:           extractor,
		prioritizer:         prioritizer,
		matchThreshold:      matcher.DefaultBestThreshold,
		confidenceThreshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProcessCommand never fails. Store errors and panics come back as a
// Result with intent error.
func (r *Router) ProcessCommand(ctx context.Context, utterance string, mode Mode, current []task.Task) Result {
	res, err := panicerr.Call(func() (Result, error) {
		return r.process(ctx, utterance, mode, current)
	})
	if err != nil {
		clog.AddError(ctx, err)
		slog.ErrorContext(ctx, "command failed", "utterance", utterance, "error", err)
		return errorResult(err)
	}
	return res
}

func (r *Router) classify(ctx context.Context, utterance string, current []task.Task) intent.Result {
	in, err := panicerr.Call(func() (intent.Result, error) {
		return r.classifier.Classify(ctx, utterance, current)
	})
	if err != nil {
		slog.WarnContext(ctx, "intent classification failed, treating as brain dump", "error", err)
		return intent.Fallback()
	}
	return in
}

func (r *Router) process(ctx context.Context, utterance string, mode Mode, current []task.Task) (Result, error) {
	in := r.classify(ctx, utterance, current)
	clog.AddAttribute(ctx, clog.IntentAttributeKey, string(in.Intent))

	priority := in.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}
	res := Result{
		Intent:     in.Intent,
		Confidence: in.Confidence,
		NewContent: strings.TrimSpace(in.NewContent),
		Priority:   priority,
		Category:   in.Category,
		Tasks:      []string{},
	}

	if in.TargetTaskID != "" {
		for i := range current {
			if current[i].ID == in.TargetTaskID {
				t := current[i].Clone()
				res.TargetTask = &t
				break
			}
		}
	}
	if res.TargetTask == nil && in.Intent.NeedsTarget() {
		res.TargetTask = matcher.FindBestMatch(utterance, current, r.matchThreshold)
	}
	if res.TargetTask != nil {
		clog.AddTaskID(ctx, res.TargetTask.ID)
	}

	if err := r.dispatch(ctx, &res, in, utterance, mode, current); err != nil {
		return Result{}, err
	}

	if !res.ActionTaken && res.Confidence < r.confidenceThreshold {
		res.Message = msgLowConfidence(res.Confidence, utterance)
		res.LowConfidence = true
	}
	return res, nil
}

func (r *Router) dispatch(ctx context.Context, res *Result, in intent.Result, utterance string, mode Mode, current []task.Task) error {
	target := res.TargetTask
	switch {
	case in.Intent == intent.KindAdd && res.NewContent != "":
		if _, err := r.store.Add(ctx, res.NewContent, res.Priority, res.Category); err != nil {
			return err
		}
		res.ActionTaken = true
		res.Message = msgAdded(res.NewContent)

	case in.Intent == intent.KindModify && target != nil && res.NewContent != "":
		f := task.UpdateFields{Text: &res.NewContent}
		if in.Priority != "" && in.Priority != task.PriorityMedium {
			f.Priority = &in.Priority
		}
		if in.Category != task.CategoryNone {
			f.Category = &in.Category
		}
		found, err := r.store.Update(ctx, target.ID, f)
		if err != nil {
			return err
		}
		if !found {
			res.Message = msgNotFound(target.Text)
			return nil
		}
		res.ActionTaken = true
		res.Message = msgUpdated(res.NewContent)

	case in.Intent == intent.KindDelete && target != nil:
		if err := r.store.Delete(ctx, target.ID); err != nil {
			return err
		}
		res.ActionTaken = true
		res.Message = msgDeleted(target.Text)

	case in.Intent == intent.KindComplete && target != nil:
		done := true
		found, err := r.store.Update(ctx, target.ID, task.UpdateFields{Completed: &done})
		if err != nil {
			return err
		}
		if !found {
			res.Message = msgNotFound(target.Text)
			return nil
		}
		res.ActionTaken = true
		res.Message = msgCompleted(target.Text)

	case in.Intent == intent.KindQuery:
		res.Message = r.answerQuery(utterance, current)

	case in.Intent == intent.KindPrioritize:
		return r.prioritize(ctx, res, current)

	case in.Intent == intent.KindBraindump || mode == ModeBraindump:
		extracted := r.extractor.Extract(ctx, utterance)
		if extracted == nil {
			extracted = []string{}
		}
		for _, text := range extracted {
			if _, err := r.store.Add(ctx, text, res.Priority, res.Category); err != nil {
				return err
			}
		}
		res.Tasks = extracted
		res.ActionTaken = len(extracted) > 0
		if res.ActionTaken {
			res.Message = msgExtracted(len(extracted))
		} else {
			res.Message = msgNothingExtracted
		}
	}
	return nil
}

func (r *Router) answerQuery(utterance string, current []task.Task) string {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "next") || strings.Contains(lower, "work on"):
		if t, ok := task.NextPending(current); ok {
			return msgNext(t)
		}
		return msgNoPending
	case strings.Contains(lower, "client"):
		if tasks := r.store.ListByCategory(task.CategoryClient); len(tasks) > 0 {
			return bulletList("Client tasks:", tasks)
		}
		return msgNoClientTasks
	case strings.Contains(lower, "priority"):
		if tasks := r.store.ListByPriority(task.PriorityHigh); len(tasks) > 0 {
			return bulletList("High priority tasks:", tasks)
		}
		return msgNoHighPriority
	default:
		return msgQueryEcho(utterance)
	}
}

func (r *Router) prioritize(ctx context.Context, res *Result, current []task.Task) error {
	pending := make([]task.Task, 0, len(current))
	for _, t := range current {
		if !t.Completed {
			pending = append(pending, t)
		}
	}
	assigned, err := panicerr.Call(func() (map[string]task.Priority, error) {
		return r.prioritizer.Prioritize(ctx, pending)
	})
	if err != nil {
		slog.WarnContext(ctx, "prioritization failed", "error", err)
		res.Message = msgPrioritizeFailed(err)
		return nil
	}

	changed := 0
	for _, t := range pending {
		p, ok := assigned[t.ID]
		if !ok || p == t.Priority {
			continue
		}
		if _, err := r.store.Update(ctx, t.ID, task.UpdateFields{Priority: &p}); err != nil {
			return fmt.Errorf("apply priority to %s: %w", t.ID, err)
		}
		changed++
	}
	slog.InfoContext(ctx, "tasks prioritized", "pending", len(pending), "changed", changed)
	res.ActionTaken = true
	res.Message = msgPrioritized
	return nil
}
