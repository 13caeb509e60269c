package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/internal/task/repositoryimpl"
	"github.com/kazz187/voicetask/pkg/storage"
)

func TestWatcher_ReloadsExternalChanges(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched, err := task.NewStore(ctx, repositoryimpl.NewFileRepository(local, tasksPath))
	require.NoError(t, err)
	other, err := task.NewStore(ctx, repositoryimpl.NewFileRepository(local, tasksPath))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- task.NewWatcher(watched, local.Locate(tasksPath)).Run(ctx) }()

	// Writes before the watch is registered go unnoticed, so keep writing.
	require.Eventually(t, func() bool {
		if len(watched.List()) > 0 {
			return true
		}
		_, err := other.Add(ctx, "Edited elsewhere", task.PriorityHigh, task.CategoryNone)
		assert.NoError(t, err)
		return false
	}, 5*time.Second, 300*time.Millisecond)
	assert.Equal(t, "Edited elsewhere", watched.List()[0].Text)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
