// Package matcher resolves a spoken phrase to the task it most likely
// refers to. Scoring is purely lexical and deterministic.
package matcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/voicetask/internal/task"
)

const (
	DefaultBestThreshold     = 0.6
	DefaultMultipleThreshold = 0.5

	overlapWeight  = 0.8
	substringScore = 0.9
	attributeBoost = 0.1
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// query holds the normalized forms of a phrase so they are computed once
// per search instead of once per task.
type query struct {
	text  string
	chars []string
	words map[string]struct{}

	priorities map[task.Priority]bool
	categories map[task.Category]bool
}

func newQuery(s string) *query {
	text := strings.ToLower(strings.TrimSpace(s))
	q := &query{
		text:       text,
		chars:      chars(text),
		words:      words(text),
		priorities: map[task.Priority]bool{},
		categories: map[task.Category]bool{},
	}
	if strings.Contains(text, "high priority") {
		q.priorities[task.PriorityHigh] = true
	}
	if strings.Contains(text, "low priority") {
		q.priorities[task.PriorityLow] = true
	}
	for _, c := range task.Categories {
		if strings.Contains(text, string(c)) {
			q.categories[c] = true
		}
	}
	return q
}

func (q *query) score(t *task.Task) float64 {
	text := strings.ToLower(t.Text)

	sm := difflib.NewMatcher(q.chars, chars(text))
	score := sm.Ratio()

	tw := words(text)
	if shared := intersect(q.words, tw); shared > 0 {
		overlap := overlapWeight * float64(shared) / float64(max(len(q.words), len(tw)))
		score = max(score, overlap)
	}

	if text != "" && (strings.Contains(q.text, text) || strings.Contains(text, q.text)) {
		score = max(score, substringScore)
	}

	if q.priorities[t.Priority] {
		score += attributeBoost
	}
	if t.Category != task.CategoryNone && q.categories[t.Category] {
		score += attributeBoost
	}
	return score
}

// Score rates how well phrase describes t. Scores are normally within
// [0, 1]; attribute mentions can push them above 1.
func Score(phrase string, t task.Task) float64 {
	return newQuery(phrase).score(&t)
}

// FindBestMatch returns the highest scoring task at or above threshold.
// Ties go to the earlier task. Nil means no task is a plausible match.
func FindBestMatch(phrase string, tasks []task.Task, threshold float64) *task.Task {
	if len(tasks) == 0 || strings.TrimSpace(phrase) == "" {
		return nil
	}
	q := newQuery(phrase)
	best, bestScore := -1, 0.0
	for i := range tasks {
		if s := q.score(&tasks[i]); best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	if bestScore < threshold {
		return nil
	}
	match := tasks[best].Clone()
	return &match
}

// FindMultipleMatches returns every task scoring at least threshold, best
// first, keeping input order among equal scores.
func FindMultipleMatches(phrase string, tasks []task.Task, threshold float64) []task.Task {
	if len(tasks) == 0 || strings.TrimSpace(phrase) == "" {
		return nil
	}
	type scored struct {
		task  task.Task
		score float64
	}
	q := newQuery(phrase)
	var hits []scored
	for i := range tasks {
		if s := q.score(&tasks[i]); s >= threshold {
			hits = append(hits, scored{task: tasks[i].Clone(), score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]task.Task, len(hits))
	for i, h := range hits {
		out[i] = h.task
	}
	return out
}

// ExtractTaskReferences finds every task mentioned in text, either verbatim
// or by more than half of its words. Results keep input order.
func ExtractTaskReferences(text string, tasks []task.Task) []task.Task {
	lower := strings.ToLower(text)
	textWords := words(lower)

	var refs []task.Task
	for _, t := range tasks {
		tt := strings.ToLower(strings.TrimSpace(t.Text))
		if tt == "" {
			continue
		}
		if strings.Contains(lower, tt) {
			refs = append(refs, t.Clone())
			continue
		}
		tw := words(tt)
		if len(tw) > 0 && intersect(tw, textWords)*2 > len(tw) {
			refs = append(refs, t.Clone())
		}
	}
	return refs
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func words(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(s, -1) {
		set[w] = struct{}{}
	}
	return set
}

func intersect(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
