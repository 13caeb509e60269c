package command

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/voicetask/internal/speech"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/clog"
	"github.com/kazz187/voicetask/pkg/jsoncodec"
)

const (
	ServiceName             = "voicetask.v1.CommandService"
	ProcessCommandProcedure = "/voicetask.v1.CommandService/ProcessCommand"
)

// maxAudioBytes matches the upload limit of hosted Whisper endpoints.
const maxAudioBytes = 25 << 20

type ProcessCommandRequest struct {
	Text string `json:"text"`
	Mode Mode   `json:"mode"`
}

type ProcessCommandResponse struct {
	Result Result `json:"result"`
}

type VoiceResponse struct {
	Transcribed bool    `json:"transcribed"`
	Text        string  `json:"text,omitempty"`
	Message     string  `json:"message,omitempty"`
	Result      *Result `json:"result,omitempty"`
}

// Listener is told about every processed command.
type Listener interface {
	CommandProcessed(ctx context.Context, res Result)
}

type TaskLister interface {
	List() []task.Task
}

type Server struct {
	router      *Router
	tasks       TaskLister
	transcriber speech.Transcriber
	listener    Listener
}

func NewServer(router *Router, tasks TaskLister, transcriber speech.Transcriber, listener Listener) *Server {
	return &Server{
		router:      router,
		tasks:       tasks,
		transcriber: transcriber,
		listener:    listener,
	}
}

// NewServiceHandler mounts the Connect service. Messages are JSON only.
func NewServiceHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	processCommand := connect.NewUnaryHandler(ProcessCommandProcedure, s.ProcessCommand, jsoncodec.HandlerOptions(opts...)...)
	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ProcessCommandProcedure:
			processCommand.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *Server) ProcessCommand(ctx context.Context, req *connect.Request[ProcessCommandRequest]) (*connect.Response[ProcessCommandResponse], error) {
	text := strings.TrimSpace(req.Msg.Text)
	if text == "" {
		return nil, cerr.NewValidationError("text", "required", "text must not be empty").ConnectError()
	}
	res := s.Process(ctx, text, ParseMode(string(req.Msg.Mode)))
	return connect.NewResponse(&ProcessCommandResponse{Result: res}), nil
}

// Process runs one utterance against the current tasks and tells the
// listener.
func (s *Server) Process(ctx context.Context, text string, mode Mode) Result {
	res := s.router.ProcessCommand(ctx, text, mode, s.tasks.List())
	if s.listener != nil {
		s.listener.CommandProcessed(ctx, res)
	}
	return res
}

// Voice accepts a multipart upload with an "audio" file and an optional
// "mode" field. Audio that yields no text issues no command.
func (s *Server) Voice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.transcriber == nil {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "speech to text is not configured", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		cerr.SetJSONError(ctx, cerr.NewValidationError("audio", "required", "an audio file is required"))
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "failed to read audio", err)
		return
	}

	text, err := s.transcriber.Transcribe(ctx, audio, header.Filename)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil && !errors.Is(err, speech.ErrNoSpeech) {
			clog.AddError(ctx, err)
		}
		cerr.SetJSONResponse(ctx, &VoiceResponse{Message: "No command issued"})
		return
	}

	res := s.Process(ctx, text, ParseMode(r.FormValue("mode")))
	cerr.SetJSONResponse(ctx, &VoiceResponse{Transcribed: true, Text: text, Result: &res})
}

// Client calls a running server's command service.
type Client struct {
	processCommand *connect.Client[ProcessCommandRequest, ProcessCommandResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		processCommand: connect.NewClient[ProcessCommandRequest, ProcessCommandResponse](
			httpClient,
			baseURL+ProcessCommandProcedure,
			jsoncodec.ClientOptions(opts...)...,
		),
	}
}

func (c *Client) ProcessCommand(ctx context.Context, req *connect.Request[ProcessCommandRequest]) (*connect.Response[ProcessCommandResponse], error) {
	return c.processCommand.CallUnary(ctx, req)
}
