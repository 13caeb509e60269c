// Package speech converts recorded audio into text.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoSpeech is returned when the audio held nothing to transcribe.
var ErrNoSpeech = errors.New("no speech detected")

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// WhisperClient talks to an OpenAI compatible /audio/transcriptions
// endpoint.
type WhisperClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewWhisperClient(baseURL, apiKey, model string, timeout time.Duration) *WhisperClient {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoSpeech
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("model", c.model); err != nil {
		return "", err
	}
	if err := w.WriteField("response_format", "text"); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
