package braindump

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kazz187/voicetask/internal/llm"
)

func replying(reply string) llm.Completer {
	return llm.CompleterFunc(func(context.Context, string, string) (string, error) {
		return reply, nil
	})
}

func TestModelExtractor(t *testing.T) {
	tests := map[string]struct {
		completer llm.Completer
		input     string
		want      []string
	}{
		"list": {
			completer: replying(`["Email the client", "Book flights"]`),
			input:     "so I need to email the client and uh book flights",
			want:      []string{"Email the client", "Book flights"},
		},
		"trims and drops blanks": {
			completer: replying("```json\n[\"  Buy milk \", \"\", \"   \"]\n```"),
			input:     "buy milk",
			want:      []string{"Buy milk"},
		},
		"nothing actionable": {
			completer: replying(`[]`),
			input:     "what a day",
			want:      []string{},
		},
		"model error": {
			completer: llm.CompleterFunc(func(context.Context, string, string) (string, error) {
				return "", errors.New("boom")
			}),
			input: " call mom ",
			want:  []string{"call mom"},
		},
		"not a list": {
			completer: replying(`{"tasks": 1}`),
			input:     "call mom",
			want:      []string{"call mom"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := NewModelExtractor(tt.completer).Extract(context.Background(), tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModelExtractor_BlankInputSkipsModel(t *testing.T) {
	called := false
	e := NewModelExtractor(llm.CompleterFunc(func(context.Context, string, string) (string, error) {
		called = true
		return `["x"]`, nil
	}))
	got := e.Extract(context.Background(), "  \n ")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, called)
}

func TestLineExtractor(t *testing.T) {
	got := LineExtractor{}.Extract(context.Background(), "Call mom. Email Bob!\nbuy milk;  ")
	assert.Equal(t, []string{"Call mom", "Email Bob", "buy milk"}, got)
	assert.Equal(t, []string{}, LineExtractor{}.Extract(context.Background(), ""))
}

func TestLineExtractor_KeepsAbbreviationsAndVersions(t *testing.T) {
	got := LineExtractor{}.Extract(context.Background(),
		"Buy snacks e.g. chips and nuts. Upgrade the app to v1.2 tonight!! Ask Dr. Lee about it")
	assert.Equal(t, []string{
		"Buy snacks e.g. chips and nuts",
		"Upgrade the app to v1.2 tonight",
		"Ask Dr. Lee about it",
	}, got)
}
