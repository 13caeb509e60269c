package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/braindump"
	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/internal/help"
	"github.com/kazz187/voicetask/internal/intent"
	"github.com/kazz187/voicetask/internal/llm"
	"github.com/kazz187/voicetask/internal/prioritize"
	"github.com/kazz187/voicetask/internal/speech"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/internal/task/repositoryimpl"
	"github.com/kazz187/voicetask/pkg/storage"
)

// app holds the dependencies shared by the local commands and serve.
type app struct {
	env     *config.Env
	storage storage.Storage
	repo    *repositoryimpl.FileRepository
}

func newApp(ctx context.Context, env *config.Env) (*app, error) {
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		s3Store, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		store = s3Store
		slog.Debug("using S3 storage", "bucket", env.S3Bucket, "prefix", env.S3Prefix)
	default:
		localStore, err := storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		store = localStore
		slog.Debug("using local storage", "base_dir", env.BaseDir)
	}
	return &app{
		env:     env,
		storage: store,
		repo:    repositoryimpl.NewFileRepository(store, env.TasksFile),
	}, nil
}

func (a *app) openStore(ctx context.Context) (*task.Store, error) {
	store, err := task.NewStore(ctx, a.repo)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return store, nil
}

// localPath is the task file on disk, or "" when the storage is remote.
func (a *app) localPath() string {
	if l, ok := a.storage.(storage.Locator); ok {
		return l.Locate(a.repo.Path())
	}
	return ""
}

func (a *app) completer() llm.Completer {
	if !a.env.ModelEnv.Enabled {
		return llm.Disabled{}
	}
	return llm.NewClaudeCompleter(a.env.WorkDir, a.env.Timeout)
}

func (a *app) router(store *task.Store) *command.Router {
	opts := []command.Option{command.WithConfidenceThreshold(a.env.ConfidenceThreshold)}
	if !a.env.ModelEnv.Enabled {
		return command.NewRouter(store, intent.FallbackClassifier{}, braindump.LineExtractor{}, prioritize.KeywordPrioritizer{}, opts...)
	}
	c := a.completer()
	return command.NewRouter(
		store,
		intent.NewModelClassifier(c),
		braindump.NewModelExtractor(c),
		prioritize.Fallback{prioritize.NewModelPrioritizer(c), prioritize.KeywordPrioritizer{}},
		opts...,
	)
}

func (a *app) executor(store *task.Store) *agent.Executor {
	return agent.NewExecutor(store, agent.NewModelPlanner(a.completer()), agent.WithMaxTurns(a.env.AgentMaxTurns))
}

func (a *app) helpService() *help.Service {
	return help.NewService(a.completer())
}

func (a *app) help(ctx context.Context, store *task.Store, question string, suggestions bool) string {
	if suggestions {
		return help.Suggestions(store.List())
	}
	return a.helpService().Answer(ctx, question, store.List())
}

// transcriber is nil when no speech endpoint is configured.
func (a *app) transcriber() speech.Transcriber {
	if a.env.WhisperURL == "" {
		return nil
	}
	return speech.NewWhisperClient(a.env.WhisperURL, a.env.WhisperAPIKey, a.env.WhisperModel, a.env.WhisperTimeout)
}

// migrate rewrites a task file written by an older version in the
// current format.
func (a *app) migrate(ctx context.Context, backup bool) error {
	exists, err := a.storage.Exists(ctx, a.repo.Path())
	if err != nil {
		return fmt.Errorf("failed to check task file: %w", err)
	}
	if !exists {
		printText("No task file to migrate.")
		return nil
	}

	tasks, migrated, err := a.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	if !migrated {
		printText(fmt.Sprintf("%d tasks already up to date.", len(tasks)))
		return nil
	}

	if backup {
		dst, err := a.repo.Backup(ctx)
		if err != nil {
			return err
		}
		printText("Backed up task file to " + dst)
	}
	if err := a.repo.Save(ctx, tasks); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	printText(fmt.Sprintf("Migrated %d tasks.", len(tasks)))
	return nil
}
