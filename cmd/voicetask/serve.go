package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/voicetask/internal"
	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/internal/eventbus"
	"github.com/kazz187/voicetask/internal/feedback"
	"github.com/kazz187/voicetask/internal/help"
	"github.com/kazz187/voicetask/internal/pushsubscription"
	pushrepo "github.com/kazz187/voicetask/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/panicerr"
)

const shutdownTimeout = 10 * time.Second

func runServe(env *config.Env) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	bus := eventbus.New()
	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushService := pushsubscription.NewService(pushrepo.NewYAMLRepository(a.storage))
	webPush := feedback.NewWebPushNotifier(vapidEnv, pushService)
	notifier := feedback.Multi{
		feedback.NewLogNotifier(slog.Default()),
		feedback.NewBusNotifier(bus),
		webPush,
	}
	if !env.ModelEnv.Enabled {
		slog.Warn("model disabled, every command is treated as a brain dump")
	}

	srv := server.NewServer(
		config.BaseEnvFromEnv(env),
		task.NewServer(store, feedback.TaskChanges{Notifier: notifier}),
		command.NewServer(a.router(store), store, a.transcriber(), feedback.Commands{Notifier: notifier}),
		agent.NewServer(a.executor(store), feedback.AgentReplies{Notifier: notifier}),
		help.NewServer(a.helpService(), store),
		eventbus.NewServer(bus),
		pushsubscription.NewServer(vapidEnv, pushService, webPush),
	)

	wg := conc.NewWaitGroup()
	if path := a.localPath(); path != "" {
		watcher := task.NewWatcher(store, path)
		wg.Go(func() {
			if err := panicerr.SafeContext(watcher.Run)(ctx); err != nil {
				slog.Error("task file watcher stopped", "error", err)
			}
		})
	}

	serveErr := make(chan error, 1)
	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	wg.Wait()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	default:
	}
	fmt.Fprintln(os.Stderr, "server stopped")
	return nil
}
