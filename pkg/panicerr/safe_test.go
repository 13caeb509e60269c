package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafe(t *testing.T) {
	boom := errors.New("boom")
	assert.NoError(t, Safe(func() error { return nil })())
	assert.ErrorIs(t, Safe(func() error { return boom })(), boom)

	err := Safe(func() error { panic("kaboom") })()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestSafeContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	err := SafeContext(func(ctx context.Context) error {
		if ctx.Value(key{}) != "v" {
			return errors.New("context not passed through")
		}
		panic("after check")
	})(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after check")
}

func TestCall(t *testing.T) {
	v, err := Call(func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Call(func() (int, error) { panic("nope") })
	require.Error(t, err)
	assert.Zero(t, v)
}
