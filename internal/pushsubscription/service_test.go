package pushsubscription_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/voicetask/internal/pushsubscription"
	"github.com/kazz187/voicetask/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/voicetask/pkg/cerr"
	"github.com/kazz187/voicetask/pkg/storage"
)

const endpoint = "https://push.example.com/send/abc"

func newService() (*pushsubscription.Service, *storage.MemoryStorage) {
	mem := storage.NewMemoryStorage()
	return pushsubscription.NewService(repositoryimpl.NewYAMLRepository(mem)), mem
}

func TestService_RegisterIsIdempotentPerEndpoint(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	first, err := svc.Register(ctx, endpoint, "key-1", "auth-1", "Firefox")
	require.NoError(t, err)
	second, err := svc.Register(ctx, endpoint, "key-2", "auth-2", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "key-2", all[0].P256dhKey)
	assert.Equal(t, "auth-2", all[0].AuthKey)
	assert.Equal(t, "Firefox", all[0].UserAgent)
	assert.False(t, all[0].UpdatedAt.Before(all[0].CreatedAt))
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _ := newService()
	tests := map[string][3]string{
		"missing endpoint": {"", "k", "a"},
		"plain http":       {"http://push.example.com/x", "k", "a"},
		"missing p256dh":   {endpoint, "", "a"},
		"missing auth":     {endpoint, "k", " "},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in[0], in[1], in[2], "")
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
		})
	}
}

func TestService_Unregister(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService()
	_, err := svc.Register(ctx, endpoint, "k", "a", "")
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(ctx, endpoint))
	paths, err := mem.List(ctx, "push_subscriptions")
	require.NoError(t, err)
	assert.Empty(t, paths)

	assert.True(t, cerr.IsCode(svc.Unregister(ctx, endpoint), cerr.NotFound))
	assert.True(t, cerr.IsCode(svc.Unregister(ctx, ""), cerr.InvalidArgument))
}

func TestYAMLRepository_SkipsMalformed(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService()
	_, err := svc.Register(ctx, endpoint, "k", "a", "")
	require.NoError(t, err)
	require.NoError(t, mem.Write(ctx, "push_subscriptions/broken.yaml", []byte("endpoint: [unclosed")))
	require.NoError(t, mem.Write(ctx, "push_subscriptions/notes.txt", []byte("ignored")))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, endpoint, all[0].Endpoint)
}
