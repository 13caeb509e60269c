package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/internal/eventbus"
	"github.com/kazz187/voicetask/internal/help"
	"github.com/kazz187/voicetask/internal/pushsubscription"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/clog"
)

type Server struct {
	server        *http.Server
	env           *config.BaseEnv
	taskServer    *task.Server
	commandServer *command.Server
	agentServer   *agent.Server
	helpServer    *help.Server
	eventServer   *eventbus.Server
	pushServer    *pushsubscription.Server
}

func NewServer(
	env *config.BaseEnv,
	taskServer *task.Server,
	commandServer *command.Server,
	agentServer *agent.Server,
	helpServer *help.Server,
	eventServer *eventbus.Server,
	pushServer *pushsubscription.Server,
) *Server {
	return &Server{
		env:           env,
		taskServer:    taskServer,
		commandServer: commandServer,
		agentServer:   agentServer,
		helpServer:    helpServer,
		eventServer:   eventServer,
		pushServer:    pushServer,
	}
}

// Handler builds the full HTTP handler: REST under /api, Connect services
// at their procedure paths, and health checks.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewConvertConnectErrorChiMiddleware(),
		)
		r.Route("/tasks", s.taskServer.Routes)
		r.Route("/help", s.helpServer.Routes)
		r.Post("/voice", s.commandServer.Voice)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()

	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(
		command.ServiceName,
		agent.ServiceName,
		eventbus.ServiceName,
		pushsubscription.ServiceName,
	)))

	handlerOpts := connect.WithInterceptors(s.interceptors()...)

	mux.Handle(command.NewServiceHandler(s.commandServer, handlerOpts))
	mux.Handle(agent.NewServiceHandler(s.agentServer, handlerOpts))
	mux.Handle(eventbus.NewServiceHandler(s.eventServer, handlerOpts))
	mux.Handle(pushsubscription.NewServiceHandler(s.pushServer, handlerOpts))

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux))
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of
// every request, so canceling it also ends open event streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.env.Addr()
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) interceptors() []connect.Interceptor {
	return []connect.Interceptor{
		clog.NewSlogConnectUnaryInterceptor(clog.WithConnectFilter(clog.DefaultConnectHealthCheckUnaryFilter)),
		cerr.NewConvertConnectErrorInterceptor(),
	}
}

// apiKeyMiddleware is a no-op when no API key is configured.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.env.APIKey == "" || r.URL.Path == "/health" || r.URL.Path == "/grpc.health.v1.Health/Check" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
