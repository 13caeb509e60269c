package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/client"
	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/internal/speech"
	"github.com/kazz187/voicetask/internal/task"
)

func newClient(env *config.Env) *client.Client {
	return client.NewClient(*serverURL, env.APIKey)
}

func runRemoteCommand(ctx context.Context, env *config.Env, text, mode string) error {
	res, err := newClient(env).ProcessCommand(ctx, text, parseMode(mode))
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func runRemoteAgent(ctx context.Context, env *config.Env, request string, tools bool) error {
	c := newClient(env)
	if tools {
		specs, err := c.ListTools(ctx)
		if err != nil {
			return err
		}
		printTools(specs)
		return nil
	}
	if request == "" {
		return errors.New("request is required")
	}
	res, err := c.RunAgent(ctx, request)
	if err != nil {
		return err
	}
	printAgentResponse(res)
	return nil
}

func runAgent(ctx context.Context, e *agent.Executor, request string, tools bool) error {
	if tools {
		printTools(e.Tools())
		return nil
	}
	if request == "" {
		return errors.New("request is required")
	}
	res, err := e.Run(ctx, request)
	if err != nil {
		return err
	}
	printAgentResponse(res)
	return nil
}

func runVoice(ctx context.Context, a *app, store *task.Store, file, mode string) error {
	t := a.transcriber()
	if t == nil {
		return errors.New("speech recognition is not configured: set VOICETASK_WHISPER_URL")
	}
	audio, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	text, err := t.Transcribe(ctx, audio, filepath.Base(file))
	if err != nil {
		if errors.Is(err, speech.ErrNoSpeech) {
			printText("No command issued")
			return nil
		}
		return err
	}
	if text = strings.TrimSpace(text); text == "" {
		printText("No command issued")
		return nil
	}
	printText(dim.Sprint("Heard: ") + text)
	printResult(a.router(store).ProcessCommand(ctx, text, parseMode(mode), store.List()))
	return nil
}

func runWatch(ctx context.Context, env *config.Env, types []string) error {
	if *serverURL == "" {
		return errors.New("watch needs --server")
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	connected := func() {
		printText(dim.Sprintf("Watching events on %s (Ctrl-C to stop)", *serverURL))
	}
	return newClient(env).WatchEvents(ctx, connected, printEvent, types...)
}

func runVAPID() error {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("failed to generate VAPID keys: %w", err)
	}
	fmt.Printf("VOICETASK_VAPID_PUBLIC_KEY=%s\n", publicKey)
	fmt.Printf("VOICETASK_VAPID_PRIVATE_KEY=%s\n", privateKey)
	return nil
}
