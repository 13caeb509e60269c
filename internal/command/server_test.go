package command_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/intent"
	"github.com/kazz187/voicetask/internal/speech"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
)

type listenerFunc func(ctx context.Context, res command.Result)

func (f listenerFunc) CommandProcessed(ctx context.Context, res command.Result) { f(ctx, res) }

type transcriberFunc func(ctx context.Context, audio []byte, filename string) (string, error)

func (f transcriberFunc) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return f(ctx, audio, filename)
}

var addMilk = returns(intent.Result{Intent: intent.KindAdd, Confidence: 0.9, NewContent: "Buy milk"})

func TestServer_ProcessCommandOverConnect(t *testing.T) {
	f := newFixture(t)
	var heard []command.Result
	srv := command.NewServer(f.router(addMilk), f.store, nil, listenerFunc(func(_ context.Context, res command.Result) {
		heard = append(heard, res)
	}))

	mux := http.NewServeMux()
	mux.Handle(command.NewServiceHandler(srv))
	ts := httptest.NewServer(mux)
	defer ts.Close()
	client := command.NewClient(ts.Client(), ts.URL)

	resp, err := client.ProcessCommand(context.Background(), connect.NewRequest(&command.ProcessCommandRequest{Text: "add buy milk"}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Result.ActionTaken)
	assert.Equal(t, intent.KindAdd, resp.Msg.Result.Intent)
	assert.Equal(t, "Added task: Buy milk", resp.Msg.Result.Message)
	require.Len(t, f.store.List(), 1)
	require.Len(t, heard, 1)

	_, err = client.ProcessCommand(context.Background(), connect.NewRequest(&command.ProcessCommandRequest{Text: "  "}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Len(t, heard, 1)
}

func voiceRequest(t *testing.T, audio []byte, mode string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "note.webm")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	if mode != "" {
		require.NoError(t, mw.WriteField("mode", mode))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/voice", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serveVoice(srv *command.Server, req *http.Request) (*httptest.ResponseRecorder, command.VoiceResponse) {
	w := httptest.NewRecorder()
	cerr.NewConvertConnectErrorChiMiddleware()(http.HandlerFunc(srv.Voice)).ServeHTTP(w, req)
	var resp command.VoiceResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestServer_Voice(t *testing.T) {
	f := newFixture(t)
	var gotName string
	var gotAudio []byte
	tr := transcriberFunc(func(_ context.Context, audio []byte, filename string) (string, error) {
		gotAudio, gotName = audio, filename
		return " add buy milk ", nil
	})
	srv := command.NewServer(f.router(addMilk), f.store, tr, nil)

	w, resp := serveVoice(srv, voiceRequest(t, []byte("RIFF"), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Transcribed)
	assert.Equal(t, "add buy milk", resp.Text)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.ActionTaken)
	assert.Equal(t, "note.webm", gotName)
	assert.Equal(t, []byte("RIFF"), gotAudio)
}

func TestServer_VoiceWithoutSpeechIssuesNoCommand(t *testing.T) {
	for name, tr := range map[string]transcriberFunc{
		"blank": func(context.Context, []byte, string) (string, error) { return "  ", nil },
		"silence": func(context.Context, []byte, string) (string, error) {
			return "", speech.ErrNoSpeech
		},
		"failure": func(context.Context, []byte, string) (string, error) {
			return "", errors.New("whisper down")
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			called := false
			router := f.router(classifierFunc(func(context.Context, string, []task.Task) (intent.Result, error) {
				called = true
				return intent.Result{}, nil
			}))
			srv := command.NewServer(router, f.store, tr, nil)

			w, resp := serveVoice(srv, voiceRequest(t, []byte("RIFF"), "braindump"))
			require.Equal(t, http.StatusOK, w.Code)
			assert.False(t, resp.Transcribed)
			assert.Equal(t, "No command issued", resp.Message)
			assert.Nil(t, resp.Result)
			assert.False(t, called)
			assert.Empty(t, f.store.List())
		})
	}
}

func TestServer_VoiceErrors(t *testing.T) {
	f := newFixture(t)

	w, _ := serveVoice(command.NewServer(f.router(addMilk), f.store, nil, nil), voiceRequest(t, []byte("RIFF"), ""))
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	tr := transcriberFunc(func(context.Context, []byte, string) (string, error) { return "add", nil })
	w, _ = serveVoice(command.NewServer(f.router(addMilk), f.store, tr, nil), voiceRequest(t, nil, "command"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
