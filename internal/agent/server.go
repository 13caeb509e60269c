package agent

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/jsoncodec"
)

const (
	ServiceName        = "voicetask.v1.AgentService"
	RunProcedure       = "/voicetask.v1.AgentService/Run"
	ListToolsProcedure = "/voicetask.v1.AgentService/ListTools"
)

type RunRequest struct {
	Request string `json:"request"`
}

type RunResponse struct {
	Response Response `json:"response"`
}

type ListToolsRequest struct{}

type ListToolsResponse struct {
	Tools []ToolSpec `json:"tools"`
}

// Listener hears every finished run.
type Listener interface {
	AgentFinished(ctx context.Context, res Response)
}

type Server struct {
	executor *Executor
	listener Listener
}

func NewServer(executor *Executor, listener Listener) *Server {
	return &Server{executor: executor, listener: listener}
}

func NewServiceHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = jsoncodec.HandlerOptions(opts...)
	run := connect.NewUnaryHandler(RunProcedure, s.Run, opts...)
	listTools := connect.NewUnaryHandler(ListToolsProcedure, s.ListTools, opts...)
	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RunProcedure:
			run.ServeHTTP(w, r)
		case ListToolsProcedure:
			listTools.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *Server) Run(ctx context.Context, req *connect.Request[RunRequest]) (*connect.Response[RunResponse], error) {
	if strings.TrimSpace(req.Msg.Request) == "" {
		return nil, cerr.NewValidationError("request", "required", "request must not be empty").ConnectError()
	}
	res, err := s.executor.Run(ctx, req.Msg.Request)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "agent failed", err).ConnectError()
	}
	if s.listener != nil {
		s.listener.AgentFinished(ctx, res)
	}
	return connect.NewResponse(&RunResponse{Response: res}), nil
}

func (s *Server) ListTools(_ context.Context, _ *connect.Request[ListToolsRequest]) (*connect.Response[ListToolsResponse], error) {
	return connect.NewResponse(&ListToolsResponse{Tools: s.executor.Tools()}), nil
}

type Client struct {
	run       *connect.Client[RunRequest, RunResponse]
	listTools *connect.Client[ListToolsRequest, ListToolsResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = jsoncodec.ClientOptions(opts...)
	return &Client{
		run:       connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, opts...),
		listTools: connect.NewClient[ListToolsRequest, ListToolsResponse](httpClient, baseURL+ListToolsProcedure, opts...),
	}
}

func (c *Client) Run(ctx context.Context, req *connect.Request[RunRequest]) (*connect.Response[RunResponse], error) {
	return c.run.CallUnary(ctx, req)
}

func (c *Client) ListTools(ctx context.Context, req *connect.Request[ListToolsRequest]) (*connect.Response[ListToolsResponse], error) {
	return c.listTools.CallUnary(ctx, req)
}
