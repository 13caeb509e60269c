package help

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
)

type TaskLister interface {
	List() []task.Task
}

type Server struct {
	service *Service
	tasks   TaskLister
}

func NewServer(service *Service, tasks TaskLister) *Server {
	return &Server{service: service, tasks: tasks}
}

type helpResponse struct {
	Text string `json:"text"`
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Answer)
	r.Get("/suggestions", s.Suggestions)
	r.Get("/reference", s.Reference)
}

// Answer replies to ?q=. Without a question it returns the quick
// reference.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	text := s.service.Answer(ctx, r.URL.Query().Get("q"), s.tasks.List())
	cerr.SetJSONResponse(ctx, &helpResponse{Text: text})
}

func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), &helpResponse{Text: Suggestions(s.tasks.List())})
}

func (s *Server) Reference(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), &helpResponse{Text: quickReference})
}
