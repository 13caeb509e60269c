package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the first JSON object or array embedded in a model
// reply, dropping markdown fences and surrounding prose.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON value in model reply %q", truncate(raw, 80))
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return "", fmt.Errorf("unterminated JSON value in model reply %q", truncate(raw, 80))
	}
	return s[start : end+1], nil
}

// DecodeJSON extracts and unmarshals the JSON value in a model reply.
func DecodeJSON(raw string, v any) error {
	s, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("malformed JSON in model reply: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
