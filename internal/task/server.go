package task

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/clog"
)

type Change string

const (
	ChangeAdded     Change = "added"
	ChangeUpdated   Change = "updated"
	ChangeCompleted Change = "completed"
	ChangeDeleted   Change = "deleted"
	ChangeCleared   Change = "cleared"
)

// ChangeNotifier is told about every mutation made through the REST API.
type ChangeNotifier interface {
	TaskChanged(ctx context.Context, change Change, id string)
}

// Server exposes the store as a JSON REST API under /api/tasks.
type Server struct {
	store    *Store
	notifier ChangeNotifier
}

func NewServer(store *Store, notifier ChangeNotifier) *Server {
	return &Server{store: store, notifier: notifier}
}

type createTaskRequest struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Category Category `json:"category"`
}

type updateTaskRequest struct {
	Text      *string   `json:"text"`
	Priority  *Priority `json:"priority"`
	Category  *Category `json:"category"`
	Completed *bool     `json:"completed"`
}

type listTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

type clearTasksResponse struct {
	Removed int `json:"removed"`
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListTasks)
	r.Post("/", s.CreateTask)
	r.Delete("/", s.ClearTasks)
	r.Get("/stats", s.GetStats)
	r.Get("/next", s.GetNextTask)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.GetTask)
		r.Patch("/", s.UpdateTask)
		r.Delete("/", s.DeleteTask)
		r.Post("/toggle", s.ToggleTask)
	})
}

// ListTasks accepts priority, category and status (pending|completed)
// filters. Filters combine.
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var tasks []Task
	switch q.Get("status") {
	case "pending":
		tasks = s.store.ListPending()
	case "completed":
		tasks = s.store.ListCompleted()
	case "":
		tasks = s.store.List()
	default:
		cerr.SetJSONError(ctx, cerr.NewValidationError("status", "enum", "status must be pending or completed"))
		return
	}
	if p := q.Get("priority"); p != "" {
		if !Priority(p).Valid() {
			cerr.SetJSONError(ctx, cerr.NewValidationError("priority", "enum", "priority must be high, medium or low"))
			return
		}
		tasks = filterTasks(tasks, func(t *Task) bool { return t.Priority == Priority(p) })
	}
	if c := q.Get("category"); c != "" {
		if !Category(c).Valid() {
			cerr.SetJSONError(ctx, cerr.NewValidationError("category", "enum", "category must be client, business or personal"))
			return
		}
		tasks = filterTasks(tasks, func(t *Task) bool { return t.Category == Category(c) })
	}
	if tasks == nil {
		tasks = []Task{}
	}
	cerr.SetJSONResponse(ctx, &listTasksResponse{Tasks: tasks})
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	id, err := s.store.Add(ctx, req.Text, req.Priority, req.Category)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddTaskID(ctx, id)
	s.notify(ctx, ChangeAdded, id)

	t, _ := s.store.Get(id)
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, &t)
}

func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, ok := s.find(ctx, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	cerr.SetJSONResponse(ctx, &t)
}

func (s *Server) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Priority != nil && !req.Priority.Valid() {
		cerr.SetJSONError(ctx, cerr.NewValidationError("priority", "enum", "priority must be high, medium or low"))
		return
	}

	found, err := s.store.Update(ctx, id, UpdateFields{
		Text:      req.Text,
		Priority:  req.Priority,
		Category:  req.Category,
		Completed: req.Completed,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !found {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	clog.AddTaskID(ctx, id)

	change := ChangeUpdated
	if req.Completed != nil && *req.Completed && req.Text == nil && req.Priority == nil && req.Category == nil {
		change = ChangeCompleted
	}
	s.notify(ctx, change, id)

	t, _ := s.store.Get(id)
	cerr.SetJSONResponse(ctx, &t)
}

func (s *Server) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, ok := s.find(ctx, id); !ok {
		return
	}
	if err := s.store.Toggle(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, _ := s.store.Get(id)
	if t.Completed {
		s.notify(ctx, ChangeCompleted, id)
	} else {
		s.notify(ctx, ChangeUpdated, id)
	}
	cerr.SetJSONResponse(ctx, &t)
}

func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	t, ok := s.find(ctx, id)
	if !ok {
		return
	}
	if err := s.store.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.notify(ctx, ChangeDeleted, id)
	cerr.SetJSONResponse(ctx, &t)
}

// ClearTasks removes every task, or only completed ones with
// ?completed=true.
func (s *Server) ClearTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	onlyCompleted := false
	if v := r.URL.Query().Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			cerr.SetJSONError(ctx, cerr.NewValidationError("completed", "bool", "completed must be true or false"))
			return
		}
		onlyCompleted = b
	}

	if onlyCompleted {
		n, err := s.store.ClearCompleted(ctx)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		if n > 0 {
			s.notify(ctx, ChangeDeleted, "")
		}
		cerr.SetJSONResponse(ctx, &clearTasksResponse{Removed: n})
		return
	}

	n := len(s.store.List())
	if err := s.store.Clear(ctx); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.notify(ctx, ChangeCleared, "")
	cerr.SetJSONResponse(ctx, &clearTasksResponse{Removed: n})
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	st := s.store.Stats()
	cerr.SetJSONResponse(r.Context(), &st)
}

func (s *Server) GetNextTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, ok := s.store.NextPending()
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "no pending tasks", nil)
		return
	}
	cerr.SetJSONResponse(ctx, &t)
}

func (s *Server) find(ctx context.Context, id string) (Task, bool) {
	t, ok := s.store.Get(id)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return Task{}, false
	}
	clog.AddTaskID(ctx, id)
	return t, true
}

func (s *Server) notify(ctx context.Context, change Change, id string) {
	if s.notifier != nil {
		s.notifier.TaskChanged(ctx, change, id)
	}
}

func filterTasks(tasks []Task, keep func(*Task) bool) []Task {
	out := make([]Task, 0, len(tasks))
	for i := range tasks {
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}
