package cerr

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"

	"github.com/kazz187/voicetask/pkg/clog"
)

func TestExtractConnectError(t *testing.T) {
	ctx := clog.ContextWithSlog(context.Background())

	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"cerr error", NewError(NotFound, "missing", nil), connect.CodeNotFound},
		{"connect error", NewError(FailedPrecondition, "not configured", nil).ConnectError(), connect.CodeFailedPrecondition},
		{"wrapped connect error", errors.Join(errors.New("ctx"), connect.NewError(connect.CodeUnavailable, errors.New("down"))), connect.CodeUnavailable},
		{"canceled", context.Canceled, connect.CodeCanceled},
		{"plain error", errors.New("boom"), connect.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, connect.CodeOf(ExtractConnectError(ctx, tt.err)))
		})
	}
	assert.NoError(t, ExtractConnectError(ctx, nil))
}
