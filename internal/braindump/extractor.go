// Package braindump splits a free-form monologue into task strings.
package braindump

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/kazz187/voicetask/internal/llm"
)

// Extractor never returns nil. A blank input yields an empty list and a
// failed extraction yields the input itself as the only task.
type Extractor interface {
	Extract(ctx context.Context, text string) []string
}

const systemPrompt = "You are a helpful task organization assistant."

const promptTemplate = `Convert the following brain dump into a clean list of actionable tasks.

Rules:
- Extract clear, actionable tasks
- Remove filler words and keep each task concise
- Each task must be self-contained

Brain dump:
%s

Return ONLY a JSON array of task strings, for example ["Task 1", "Task 2"].`

type ModelExtractor struct {
	completer llm.Completer
}

func NewModelExtractor(c llm.Completer) *ModelExtractor {
	return &ModelExtractor{completer: c}
}

func (e *ModelExtractor) Extract(ctx context.Context, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	raw, err := e.completer.Complete(ctx, systemPrompt, fmt.Sprintf(promptTemplate, text))
	if err != nil {
		slog.WarnContext(ctx, "brain dump extraction failed", "error", err)
		return []string{text}
	}
	var items []string
	if err := llm.DecodeJSON(raw, &items); err != nil {
		slog.WarnContext(ctx, "brain dump reply is not a string list", "error", err)
		return []string{text}
	}
	return Clean(items)
}

// Clean trims entries and drops blanks.
func Clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LineExtractor splits on line breaks, semicolons and sentence ends. A
// sentence ends at '.', '!' or '?' followed by whitespace or the end of
// the text, so "v1.2" and "e.g." stay intact. It is used when no model is
// configured.
type LineExtractor struct{}

var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "etc": true, "vs": true,
	"mr": true, "mrs": true, "ms": true, "dr": true, "st": true,
}

func (LineExtractor) Extract(_ context.Context, text string) []string {
	var items []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n', ';':
			items = append(items, text[start:i])
			start = i + 1
		case '.', '!', '?':
			next := i + 1
			if next < len(text) && !unicode.IsSpace(rune(text[next])) {
				continue
			}
			if text[i] == '.' && isAbbreviation(text[start:i]) {
				continue
			}
			items = append(items, strings.TrimRight(text[start:i], ".!?"))
			start = next
		}
	}
	items = append(items, text[start:])
	return Clean(items)
}

func isAbbreviation(sentence string) bool {
	fields := strings.Fields(sentence)
	if len(fields) == 0 {
		return false
	}
	return abbreviations[strings.ToLower(fields[len(fields)-1])]
}
