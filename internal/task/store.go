package task

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/voicetask/pkg/cerr"
)

// Store is the authoritative task collection. Every mutation is written
// through the repository before it returns; if the write fails the
// in-memory state is rolled back.
type Store struct {
	repo Repository
	now  func() time.Time

	mu    sync.RWMutex
	tasks []*Task
}

type StoreOption func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore loads the collection from repo. A corrupt collection is
// reported by the repository with cerr.DataLoss and starts the store
// empty; any other load error is returned.
func NewStore(ctx context.Context, repo Repository, opts ...StoreOption) (*Store, error) {
	s := &Store{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory collection with the persisted one. A
// corrupt collection empties the store.
func (s *Store) Reload(ctx context.Context) error {
	return s.load(ctx, false)
}

// Refresh is Reload for external edits: a corrupt collection is reported
// and the current state is kept, since the file may be mid-edit.
func (s *Store) Refresh(ctx context.Context) error {
	return s.load(ctx, true)
}

// load holds the lock across the read so a mutation cannot land between
// reading the file and replacing the slice.
func (s *Store) load(ctx context.Context, keepOnCorrupt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, migrated, err := s.repo.Load(ctx)
	if err != nil {
		if !cerr.IsCode(err, cerr.DataLoss) || keepOnCorrupt {
			return err
		}
		slog.WarnContext(ctx, "task file is unreadable, starting with an empty list", "error", err)
		tasks, migrated = nil, false
	}

	s.tasks = tasks
	if migrated {
		slog.InfoContext(ctx, "normalized legacy task records", "count", len(tasks))
		if err := s.repo.Save(ctx, s.tasks); err != nil {
			return err
		}
	}
	return nil
}

// Add appends a task and returns its id.
func (s *Store) Add(ctx context.Context, text string, priority Priority, category Category) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", cerr.NewValidationError("text", "required", "task text must not be empty")
	}
	now := s.now()
	t := &Task{
		ID:         ulid.Make().String(),
		Text:       text,
		Priority:   ParsePriority(string(priority)),
		Category:   ParseCategory(string(category)),
		CreatedAt:  now,
		ModifiedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.tasks
	s.tasks = append(slices.Clip(s.tasks), t)
	if err := s.repo.Save(ctx, s.tasks); err != nil {
		s.tasks = prev
		return "", err
	}
	return t.ID, nil
}

// Update applies f to the task with the given id. It reports false when
// no such task exists.
func (s *Store) Update(ctx context.Context, id string, f UpdateFields) (bool, error) {
	found := false
	err := s.mutate(ctx, id, func(t *Task, now time.Time) {
		found = true
		if f.Text != nil {
			if text := strings.TrimSpace(*f.Text); text != "" {
				t.Text = text
			}
		}
		if f.Priority != nil {
			t.Priority = ParsePriority(string(*f.Priority))
		}
		if f.Category != nil {
			t.Category = ParseCategory(string(*f.Category))
		}
		if f.Completed != nil {
			t.setCompleted(*f.Completed, now)
		}
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Toggle flips completion. Unknown ids are ignored.
func (s *Store) Toggle(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(t *Task, now time.Time) {
		t.setCompleted(!t.Completed, now)
	})
}

// Delete removes the task. Unknown ids are ignored and nothing is written.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil
	}
	prev := s.tasks
	s.tasks = slices.Delete(slices.Clone(s.tasks), i, i+1)
	if err := s.repo.Save(ctx, s.tasks); err != nil {
		s.tasks = prev
		return err
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.tasks
	s.tasks = nil
	if err := s.repo.Save(ctx, s.tasks); err != nil {
		s.tasks = prev
		return err
	}
	return nil
}

// ClearCompleted removes completed tasks and reports how many were
// removed. Nothing is written when there are none.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := slices.DeleteFunc(slices.Clone(s.tasks), func(t *Task) bool { return t.Completed })
	removed := len(s.tasks) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	prev := s.tasks
	s.tasks = kept
	if err := s.repo.Save(ctx, s.tasks); err != nil {
		s.tasks = prev
		return 0, err
	}
	return removed, nil
}

// mutate runs fn on a copy of the task and swaps it in only after the
// collection has been saved.
func (s *Store) mutate(ctx context.Context, id string, fn func(t *Task, now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return nil
	}
	now := s.now()
	updated := s.tasks[i].Clone()
	fn(&updated, now)
	if now.Before(updated.CreatedAt) {
		now = updated.CreatedAt
	}
	updated.ModifiedAt = now

	prev := s.tasks
	s.tasks = slices.Clone(s.tasks)
	s.tasks[i] = &updated
	if err := s.repo.Save(ctx, s.tasks); err != nil {
		s.tasks = prev
		return err
	}
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.tasks, func(t *Task) bool { return t.ID == id })
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return Task{}, false
}

// List returns copies of all tasks in insertion order.
func (s *Store) List() []Task {
	return s.filter(func(*Task) bool { return true })
}

func (s *Store) ListByPriority(p Priority) []Task {
	return s.filter(func(t *Task) bool { return t.Priority == p })
}

func (s *Store) ListByCategory(c Category) []Task {
	return s.filter(func(t *Task) bool { return t.Category == c })
}

func (s *Store) ListPending() []Task {
	return s.filter(func(t *Task) bool { return !t.Completed })
}

func (s *Store) ListCompleted() []Task {
	return s.filter(func(t *Task) bool { return t.Completed })
}

func (s *Store) filter(keep func(*Task) bool) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// NextPending returns the most urgent pending task, earliest first among
// equal priorities.
func (s *Store) NextPending() (Task, bool) {
	return NextPending(s.ListPending())
}

// NextPending picks the most urgent incomplete task from tasks.
func NextPending(tasks []Task) (Task, bool) {
	var (
		best  Task
		found bool
	)
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if !found || t.Priority.Rank() < best.Priority.Rank() {
			best, found = t, true
		}
	}
	return best, found
}

func (s *Store) Stats() Stats {
	return ComputeStats(s.List())
}

// ComputeStats derives the counters from a task list.
func ComputeStats(tasks []Task) Stats {
	var st Stats
	for _, t := range tasks {
		st.Total++
		if t.Completed {
			st.Completed++
		} else {
			st.Pending++
		}
		switch t.Priority {
		case PriorityHigh:
			st.HighPriority++
		case PriorityMedium:
			st.MediumPriority++
		case PriorityLow:
			st.LowPriority++
		}
		switch t.Category {
		case CategoryClient:
			st.ClientTasks++
		case CategoryBusiness:
			st.BusinessTasks++
		case CategoryPersonal:
			st.PersonalTasks++
		}
	}
	return st
}
