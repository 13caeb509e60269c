package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/matcher"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
)

// resolve finds a task by ID or, failing that, by fuzzy description.
func resolve(store *task.Store, ref string) (task.Task, error) {
	if t, ok := store.Get(ref); ok {
		return t, nil
	}
	if t := matcher.FindBestMatch(ref, store.List(), matcher.DefaultBestThreshold); t != nil {
		return *t, nil
	}
	return task.Task{}, cerr.NewError(cerr.NotFound, fmt.Sprintf("no task matches %q", ref), nil)
}

func runAdd(ctx context.Context, store *task.Store, text, priority, category string) error {
	id, err := store.Add(ctx, text, task.ParsePriority(priority), task.ParseCategory(category))
	if err != nil {
		return err
	}
	t, _ := store.Get(id)
	printText("Added task: " + formatTask(t))
	return nil
}

func runList(store *task.Store, priority, category string, pending, completed bool) error {
	if pending && completed {
		return fmt.Errorf("--pending and --completed are exclusive")
	}
	var tasks []task.Task
	switch {
	case pending:
		tasks = store.ListPending()
	case completed:
		tasks = store.ListCompleted()
	default:
		tasks = store.List()
	}
	filtered := tasks[:0]
	for _, t := range tasks {
		if priority != "" && t.Priority != task.Priority(priority) {
			continue
		}
		if category != "" && t.Category != task.Category(category) {
			continue
		}
		filtered = append(filtered, t)
	}
	printTasks(filtered)
	return nil
}

func runNext(store *task.Store) error {
	t, ok := store.NextPending()
	if !ok {
		printText("No pending tasks. Great job!")
		return nil
	}
	printText("Next up: " + formatTask(t))
	return nil
}

func runToggle(ctx context.Context, store *task.Store, ref string) error {
	t, err := resolve(store, ref)
	if err != nil {
		return err
	}
	if err := store.Toggle(ctx, t.ID); err != nil {
		return err
	}
	t, _ = store.Get(t.ID)
	printText("Toggled task: " + formatTask(t))
	return nil
}

func runDone(ctx context.Context, store *task.Store, ref string) error {
	t, err := resolve(store, ref)
	if err != nil {
		return err
	}
	done := true
	if _, err := store.Update(ctx, t.ID, task.UpdateFields{Completed: &done}); err != nil {
		return err
	}
	printText("Completed task: " + t.Text)
	return nil
}

func runUpdate(ctx context.Context, store *task.Store, ref, text, priority, category string) error {
	t, err := resolve(store, ref)
	if err != nil {
		return err
	}
	var f task.UpdateFields
	if text = strings.TrimSpace(text); text != "" {
		f.Text = &text
	}
	if priority != "" {
		p := task.Priority(priority)
		f.Priority = &p
	}
	if category != "" {
		c := task.Category(category)
		f.Category = &c
	}
	if f == (task.UpdateFields{}) {
		return fmt.Errorf("nothing to update: pass --text, --priority or --category")
	}
	if _, err := store.Update(ctx, t.ID, f); err != nil {
		return err
	}
	t, _ = store.Get(t.ID)
	printText("Updated task: " + formatTask(t))
	return nil
}

func runDelete(ctx context.Context, store *task.Store, ref string) error {
	t, err := resolve(store, ref)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, t.ID); err != nil {
		return err
	}
	printText("Deleted task: " + t.Text)
	return nil
}

func runClear(ctx context.Context, store *task.Store, completedOnly, yes bool) error {
	if completedOnly {
		n, err := store.ClearCompleted(ctx)
		if err != nil {
			return err
		}
		printText(fmt.Sprintf("Removed %d completed tasks.", n))
		return nil
	}
	n := len(store.List())
	if !yes && !confirm(os.Stdin, fmt.Sprintf("Delete all %d tasks?", n)) {
		printText("Canceled.")
		return nil
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	printText(fmt.Sprintf("Removed %d tasks.", n))
	return nil
}

func runSearch(store *task.Store, pattern string) error {
	results := matcher.Search(pattern, store.List())
	if len(results) == 0 {
		printText("No matching tasks.")
		return nil
	}
	for _, r := range results {
		printSearchResult(r)
	}
	return nil
}

func parseMode(s string) command.Mode {
	return command.ParseMode(s)
}

// readText joins args, or reads stdin when the only arg is "-".
func readText(args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return join(args), nil
}

func confirm(r io.Reader, question string) bool {
	fmt.Printf("%s [y/N] ", question)
	line, _ := bufio.NewReader(r).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
