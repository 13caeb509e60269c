package matcher

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/kazz187/voicetask/internal/task"
)

// SearchResult is a subsequence match with the matched byte offsets into
// Task.Text, for highlighting.
type SearchResult struct {
	Task           task.Task
	Score          int
	MatchedIndexes []int
}

type taskSource []task.Task

func (s taskSource) String(i int) string { return s[i].Text }

func (s taskSource) Len() int { return len(s) }

// Search matches pattern as a subsequence of each task text, which suits
// typed abbreviations ("rvw rpt") rather than spoken paraphrases.
func Search(pattern string, tasks []task.Task) []SearchResult {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || len(tasks) == 0 {
		return nil
	}
	matches := fuzzy.FindFrom(pattern, taskSource(tasks))
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Task:           tasks[m.Index].Clone(),
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}
	return results
}
