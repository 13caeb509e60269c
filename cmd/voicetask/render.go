package main

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/eventbus"
	"github.com/kazz187/voicetask/internal/intent"
	"github.com/kazz187/voicetask/internal/matcher"
	"github.com/kazz187/voicetask/internal/task"
)

var (
	priorityColors = map[task.Priority]*color.Color{
		task.PriorityHigh:   color.New(color.FgRed, color.Bold),
		task.PriorityMedium: color.New(color.FgYellow),
		task.PriorityLow:    color.New(color.FgGreen),
	}
	dim       = color.New(color.Faint)
	struck    = color.New(color.FgHiBlack, color.CrossedOut)
	highlight = color.New(color.FgCyan, color.Bold)
	warn      = color.New(color.FgYellow)
	success   = color.New(color.FgGreen)
	failure   = color.New(color.FgRed)
)

func printText(s string) {
	fmt.Println(s)
}

func formatTask(t task.Task) string {
	var b strings.Builder
	if t.Completed {
		b.WriteString("[x] ")
		b.WriteString(struck.Sprint(t.Text))
	} else {
		b.WriteString("[ ] ")
		b.WriteString(t.Text)
	}
	b.WriteString(" ")
	b.WriteString(priorityColors[t.Priority].Sprintf("(%s)", t.Priority))
	if t.Category != task.CategoryNone {
		b.WriteString(" ")
		b.WriteString(dim.Sprintf("#%s", t.Category))
	}
	return b.String()
}

func printTasks(tasks []task.Task) {
	if len(tasks) == 0 {
		printText("No tasks.")
		return
	}
	for _, t := range tasks {
		fmt.Printf("%s  %s\n", dim.Sprint(t.ID), formatTask(t))
	}
}

func printStats(s task.Stats) {
	fmt.Printf("Total: %d  Pending: %d  Completed: %d\n", s.Total, s.Pending, s.Completed)
	fmt.Printf("%s %d  %s %d  %s %d\n",
		priorityColors[task.PriorityHigh].Sprint("high"), s.HighPriority,
		priorityColors[task.PriorityMedium].Sprint("medium"), s.MediumPriority,
		priorityColors[task.PriorityLow].Sprint("low"), s.LowPriority,
	)
	fmt.Printf("client %d  business %d  personal %d\n", s.ClientTasks, s.BusinessTasks, s.PersonalTasks)
}

// printSearchResult highlights the matched characters of the task text.
func printSearchResult(r matcher.SearchResult) {
	var b strings.Builder
	for i, c := range r.Task.Text {
		if slices.Contains(r.MatchedIndexes, i) {
			b.WriteString(highlight.Sprint(string(c)))
			continue
		}
		b.WriteRune(c)
	}
	fmt.Printf("%s  %s\n", dim.Sprint(r.Task.ID), b.String())
}

func printResult(res command.Result) {
	switch {
	case res.LowConfidence:
		printText(warn.Sprint(res.Message))
	case res.ActionTaken:
		printText(success.Sprint(res.Message))
	case res.Intent == intent.KindError:
		printText(failure.Sprint(res.Message))
	default:
		printText(res.Message)
	}
	for _, t := range res.Tasks {
		fmt.Printf("  - %s\n", t)
	}
	fmt.Println(dim.Sprintf("intent=%s confidence=%.2f", res.Intent, res.Confidence))
}

func printAgentResponse(res agent.Response) {
	for _, s := range res.Steps {
		fmt.Printf("%s %s\n", highlight.Sprint(s.Action), dim.Sprint(formatArgs(s.Arguments)))
		fmt.Printf("  %s\n", s.Result)
	}
	if res.Text != "" {
		printText(res.Text)
	}
}

func printTools(tools []agent.ToolSpec) {
	for _, t := range tools {
		fmt.Printf("%s  %s\n", highlight.Sprint(t.Name), t.Description)
	}
}

func printEvent(ev *eventbus.Event) {
	fmt.Printf("%s %s %s\n", dim.Sprint(ev.CreatedAt.Local().Format("15:04:05")), highlight.Sprint(ev.Type), ev.Payload)
}

func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, " ")
}
