package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/internal/task/repositoryimpl"
	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/storage"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store, err := task.NewStore(ctx, repositoryimpl.NewFileRepository(storage.NewMemoryStorage(), "tasks.json"))
	require.NoError(t, err)
	id, err := store.Add(ctx, "Review quarterly report", task.PriorityHigh, task.CategoryBusiness)
	require.NoError(t, err)

	got, err := resolve(store, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	got, err = resolve(store, "quarterly report")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	_, err = resolve(store, "walk the dog")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestConfirm(t *testing.T) {
	assert.True(t, confirm(strings.NewReader("y\n"), "sure?"))
	assert.True(t, confirm(strings.NewReader("YES\n"), "sure?"))
	assert.False(t, confirm(strings.NewReader("\n"), "sure?"))
	assert.False(t, confirm(strings.NewReader(""), "sure?"))
}

func TestFormatArgs(t *testing.T) {
	assert.Equal(t, "priority=high text=Buy milk", formatArgs(map[string]any{"text": "Buy milk", "priority": "high"}))
	assert.Equal(t, "", formatArgs(nil))
}
