package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/intent"
	"github.com/kazz187/voicetask/internal/matcher"
	"github.com/kazz187/voicetask/internal/prioritize"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/internal/task/repositoryimpl"
	"github.com/kazz187/voicetask/pkg/storage"
)

type classifierFunc func(ctx context.Context, utterance string, tasks []task.Task) (intent.Result, error)

func (f classifierFunc) Classify(ctx context.Context, utterance string, tasks []task.Task) (intent.Result, error) {
	return f(ctx, utterance, tasks)
}

func returns(res intent.Result) intent.Classifier {
	return classifierFunc(func(context.Context, string, []task.Task) (intent.Result, error) {
		return res, nil
	})
}

type extractorFunc func(ctx context.Context, text string) []string

func (f extractorFunc) Extract(ctx context.Context, text string) []string { return f(ctx, text) }

// echoExtractor mimics the documented extractor failure behavior.
var echoExtractor = extractorFunc(func(_ context.Context, text string) []string {
	return []string{text}
})

type prioritizerFunc func(ctx context.Context, tasks []task.Task) (map[string]task.Priority, error)

func (f prioritizerFunc) Prioritize(ctx context.Context, tasks []task.Task) (map[string]task.Priority, error) {
	return f(ctx, tasks)
}

type fixture struct {
	store *task.Store
	mem   *storage.MemoryStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storage.NewMemoryStorage()
	s, err := task.NewStore(context.Background(), repositoryimpl.NewFileRepository(mem, "tasks.json"))
	require.NoError(t, err)
	return &fixture{store: s, mem: mem}
}

func (f *fixture) router(c intent.Classifier) *command.Router {
	return command.NewRouter(f.store, c, echoExtractor, prioritize.KeywordPrioritizer{})
}

func (f *fixture) add(t *testing.T, text string, p task.Priority, c task.Category) string {
	t.Helper()
	id, err := f.store.Add(context.Background(), text, p, c)
	require.NoError(t, err)
	return id
}

func TestProcessCommand_Add(t *testing.T) {
	f := newFixture(t)
	r := f.router(returns(intent.Result{Intent: intent.KindAdd, Confidence: 0.95, NewContent: "buy milk"}))

	res := r.ProcessCommand(context.Background(), "add buy milk", command.ModeCommand, nil)

	assert.True(t, res.ActionTaken)
	assert.Equal(t, "Added task: buy milk", res.Message)
	assert.Equal(t, task.PriorityMedium, res.Priority)
	assert.Equal(t, []string{}, res.Tasks)
	tasks := f.store.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Text)
	assert.Equal(t, task.PriorityMedium, tasks[0].Priority)
}

func TestProcessCommand_AddWithAttributes(t *testing.T) {
	f := newFixture(t)
	r := f.router(returns(intent.Result{
		Intent: intent.KindAdd, Confidence: 0.9, NewContent: "send invoice",
		Priority: task.PriorityHigh, Category: task.CategoryClient,
	}))

	res := r.ProcessCommand(context.Background(), "add send invoice for the client, high priority", command.ModeCommand, nil)

	require.True(t, res.ActionTaken)
	tasks := f.store.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, task.CategoryClient, tasks[0].Category)
}

func TestProcessCommand_AddBlankContentIsAbsent(t *testing.T) {
	f := newFixture(t)
	r := f.router(returns(intent.Result{Intent: intent.KindAdd, Confidence: 0.9, NewContent: "   "}))

	res := r.ProcessCommand(context.Background(), "add", command.ModeCommand, nil)

	assert.False(t, res.ActionTaken)
	assert.Empty(t, f.store.List())
}

func TestProcessCommand_AddTakesPrecedenceOverBraindumpMode(t *testing.T) {
	f := newFixture(t)
	r := f.router(returns(intent.Result{Intent: intent.KindAdd, Confidence: 0.9, NewContent: "buy milk"}))

	res := r.ProcessCommand(context.Background(), "add buy milk and eggs", command.ModeBraindump, nil)

	assert.Equal(t, intent.KindAdd, res.Intent)
	require.Len(t, f.store.List(), 1)
	assert.Equal(t, "buy milk", f.store.List()[0].Text)
}

func TestProcessCommand_CompleteByTargetID(t *testing.T) {
	f := newFixture(t)
	first := f.add(t, "call the dentist", task.PriorityMedium, task.CategoryNone)
	second := f.add(t, "call the plumber", task.PriorityMedium, task.CategoryNone)
	r := f.router(returns(intent.Result{Intent: intent.KindComplete, Confidence: 0.9, TargetTaskID: second}))

	res := r.ProcessCommand(context.Background(), "done with the plumber", command.ModeCommand, f.store.List())

	require.True(t, res.ActionTaken)
	require.NotNil(t, res.TargetTask)
	assert.Equal(t, second, res.TargetTask.ID)
	assert.Equal(t, "Completed task: call the plumber", res.Message)

	got, _ := f.store.Get(second)
	assert.True(t, got.Completed)
	assert.NotNil(t, got.CompletedAt)
	other, _ := f.store.Get(first)
	assert.False(t, other.Completed)
}

func TestProcessCommand_UnknownTargetIDFallsBackToMatcher(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, "water the plants", task.PriorityLow, task.CategoryNone)
	r := f.router(returns(intent.Result{Intent: intent.KindDelete, Confidence: 0.9, TargetTaskID: "no-such-id"}))

	res := r.ProcessCommand(context.Background(), "delete water the plants", command.ModeCommand, f.store.List())

	require.True(t, res.ActionTaken)
	assert.Equal(t, id, res.TargetTask.ID)
	assert.Equal(t, "Deleted task: water the plants", res.Message)
	assert.Empty(t, f.store.List())
}

func TestProcessCommand_Modify(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, "email bob", task.PriorityLow, task.CategoryNone)
	r := f.router(returns(intent.Result{
		Intent: intent.KindModify, Confidence: 0.85, TargetTaskID: id,
		NewContent: "email bob the contract", Priority: task.PriorityHigh, Category: task.CategoryBusiness,
	}))

	res := r.ProcessCommand(context.Background(), "change email bob to email bob the contract", command.ModeCommand, f.store.List())

	require.True(t, res.ActionTaken)
	assert.Equal(t, "Updated task: email bob the contract", res.Message)
	got, _ := f.store.Get(id)
	assert.Equal(t, "email bob the contract", got.Text)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	assert.Equal(t, task.CategoryBusiness, got.Category)
}

func TestProcessCommand_ModifyMediumPriorityLeavesPriority(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, "email bob", task.PriorityLow, task.CategoryPersonal)
	r := f.router(returns(intent.Result{
		Intent: intent.KindModify, Confidence: 0.85, TargetTaskID: id,
		NewContent: "email alice", Priority: task.PriorityMedium,
	}))

	r.ProcessCommand(context.Background(), "rename email bob to email alice", command.ModeCommand, f.store.List())

	got, _ := f.store.Get(id)
	assert.Equal(t, "email alice", got.Text)
	assert.Equal(t, task.PriorityLow, got.Priority)
	assert.Equal(t, task.CategoryPersonal, got.Category)
}

func TestProcessCommand_StaleTarget(t *testing.T) {
	f := newFixture(t)
	stale := []task.Task{{ID: "gone", Text: "old thing", Priority: task.PriorityMedium}}
	r := f.router(returns(intent.Result{Intent: intent.KindComplete, Confidence: 0.9, TargetTaskID: "gone"}))

	res := r.ProcessCommand(context.Background(), "finish old thing", command.ModeCommand, stale)

	assert.False(t, res.ActionTaken)
	assert.Equal(t, "Task no longer exists: old thing", res.Message)
}

func TestProcessCommand_NoTargetFound(t *testing.T) {
	f := newFixture(t)
	f.add(t, "water the plants", task.PriorityLow, task.CategoryNone)
	r := f.router(returns(intent.Result{Intent: intent.KindDelete, Confidence: 0.8}))

	res := r.ProcessCommand(context.Background(), "delete the spaceship launch", command.ModeCommand, f.store.List())

	assert.False(t, res.ActionTaken)
	assert.Nil(t, res.TargetTask)
	assert.Equal(t, "", res.Message)
	assert.Len(t, f.store.List(), 1)
}

func TestProcessCommand_Queries(t *testing.T) {
	f := newFixture(t)
	f.add(t, "pay rent", task.PriorityMedium, task.CategoryPersonal)
	f.add(t, "ship the client build", task.PriorityHigh, task.CategoryClient)
	r := f.router(returns(intent.Result{Intent: intent.KindQuery, Confidence: 0.9}))
	ctx := context.Background()
	current := f.store.List()

	tests := map[string]string{
		"what should I work on next?": "You should work on: ship the client build (Priority: high)",
		"show my client tasks":        "Client tasks:\n• ship the client build",
		"what is high priority":       "High priority tasks:\n• ship the client build",
		"how many tasks do I have":    "Query: how many tasks do I have",
	}
	for utterance, want := range tests {
		t.Run(utterance, func(t *testing.T) {
			res := r.ProcessCommand(ctx, utterance, command.ModeCommand, current)
			assert.False(t, res.ActionTaken)
			assert.Equal(t, want, res.Message)
		})
	}
}

func TestProcessCommand_QueriesOnEmptyStore(t *testing.T) {
	f := newFixture(t)
	r := f.router(returns(intent.Result{Intent: intent.KindQuery, Confidence: 0.9}))
	ctx := context.Background()

	assert.Equal(t, "No pending tasks to work on!", r.ProcessCommand(ctx, "what next", command.ModeCommand, nil).Message)
	assert.Equal(t, "No client tasks found.", r.ProcessCommand(ctx, "client stuff", command.ModeCommand, nil).Message)
	assert.Equal(t, "No high priority tasks found.", r.ProcessCommand(ctx, "priority list", command.ModeCommand, nil).Message)
}

func TestProcessCommand_Prioritize(t *testing.T) {
	f := newFixture(t)
	urgent := f.add(t, "renew passport asap", task.PriorityLow, task.CategoryNone)
	later := f.add(t, "learn banjo someday", task.PriorityHigh, task.CategoryNone)
	r := f.router(returns(intent.Result{Intent: intent.KindPrioritize, Confidence: 0.9}))

	res := r.ProcessCommand(context.Background(), "prioritize my tasks", command.ModeCommand, f.store.List())

	require.True(t, res.ActionTaken)
	assert.Equal(t, "Tasks have been prioritized based on content analysis.", res.Message)
	got, _ := f.store.Get(urgent)
	assert.Equal(t, task.PriorityHigh, got.Priority)
	got, _ = f.store.Get(later)
	assert.Equal(t, task.PriorityLow, got.Priority)
}

func TestProcessCommand_PrioritizeFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, "renew passport", task.PriorityLow, task.CategoryNone)
	failing := prioritizerFunc(func(context.Context, []task.Task) (map[string]task.Priority, error) {
		return nil, errors.New("model unavailable")
	})
	r := command.NewRouter(f.store, returns(intent.Result{Intent: intent.KindPrioritize, Confidence: 0.9}), echoExtractor, failing)

	res := r.ProcessCommand(context.Background(), "prioritize", command.ModeCommand, f.store.List())

	assert.False(t, res.ActionTaken)
	assert.Equal(t, "Could not prioritize tasks: model unavailable", res.Message)
}

func TestProcessCommand_Braindump(t *testing.T) {
	f := newFixture(t)
	extractor := extractorFunc(func(context.Context, string) []string {
		return []string{"email the client", "book flights"}
	})
	r := command.NewRouter(f.store,
		returns(intent.Result{Intent: intent.KindBraindump, Confidence: 0.9, Category: task.CategoryBusiness}),
		extractor, prioritize.KeywordPrioritizer{})

	res := r.ProcessCommand(context.Background(), "ok so email the client and book flights", command.ModeBraindump, nil)

	require.True(t, res.ActionTaken)
	assert.Equal(t, "Added 2 tasks from brain dump", res.Message)
	assert.Equal(t, []string{"email the client", "book flights"}, res.Tasks)
	tasks := f.store.List()
	require.Len(t, tasks, 2)
	for _, tk := range tasks {
		assert.Equal(t, task.PriorityMedium, tk.Priority)
		assert.Equal(t, task.CategoryBusiness, tk.Category)
	}
}

func TestProcessCommand_BraindumpNothingExtracted(t *testing.T) {
	f := newFixture(t)
	empty := extractorFunc(func(context.Context, string) []string { return nil })
	r := command.NewRouter(f.store, returns(intent.Result{Intent: intent.KindBraindump, Confidence: 0.9}), empty, prioritize.KeywordPrioritizer{})

	res := r.ProcessCommand(context.Background(), "hmm", command.ModeBraindump, nil)

	assert.False(t, res.ActionTaken)
	assert.Equal(t, "No tasks extracted from brain dump", res.Message)
	assert.Equal(t, []string{}, res.Tasks)
}

func TestProcessCommand_ClassifierFailure(t *testing.T) {
	failing := classifierFunc(func(context.Context, string, []task.Task) (intent.Result, error) {
		return intent.Fallback(), errors.New("malformed reply")
	})
	panicking := classifierFunc(func(context.Context, string, []task.Task) (intent.Result, error) {
		panic("classifier exploded")
	})

	for name, c := range map[string]intent.Classifier{"error": failing, "panic": panicking} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			r := f.router(c)

			res := r.ProcessCommand(context.Background(), "call mom", command.ModeCommand, nil)

			assert.Equal(t, intent.KindBraindump, res.Intent)
			assert.Equal(t, 0.5, res.Confidence)
			assert.True(t, res.ActionTaken)
			assert.Equal(t, []string{"call mom"}, res.Tasks)
			require.Len(t, f.store.List(), 1)
			assert.Equal(t, "call mom", f.store.List()[0].Text)
		})
	}
}

func TestProcessCommand_ClassifierFailureWithEmptyExtraction(t *testing.T) {
	f := newFixture(t)
	failing := classifierFunc(func(context.Context, string, []task.Task) (intent.Result, error) {
		return intent.Result{}, errors.New("timeout")
	})
	empty := extractorFunc(func(context.Context, string) []string { return []string{} })
	r := command.NewRouter(f.store, failing, empty, prioritize.KeywordPrioritizer{})

	res := r.ProcessCommand(context.Background(), "uh", command.ModeCommand, nil)

	assert.False(t, res.ActionTaken)
	assert.Equal(t, "Low confidence (50.0%) in understanding: 'uh'. Please try rephrasing.", res.Message)
}

func TestProcessCommand_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.mem.FailWrites = errors.New("disk full")
	r := f.router(returns(intent.Result{Intent: intent.KindAdd, Confidence: 0.95, NewContent: "buy milk"}))

	res := r.ProcessCommand(context.Background(), "add buy milk", command.ModeCommand, nil)

	assert.Equal(t, intent.KindError, res.Intent)
	assert.Equal(t, 0.0, res.Confidence)
	assert.False(t, res.ActionTaken)
	assert.Contains(t, res.Message, "Error processing command: ")
	assert.Contains(t, res.Message, "disk full")
	assert.Empty(t, f.store.List())
}

func TestProcessCommand_ExtractorPanic(t *testing.T) {
	f := newFixture(t)
	boom := extractorFunc(func(context.Context, string) []string { panic("boom") })
	r := command.NewRouter(f.store, returns(intent.Fallback()), boom, prioritize.KeywordPrioritizer{})

	res := r.ProcessCommand(context.Background(), "stuff", command.ModeCommand, nil)

	assert.Equal(t, intent.KindError, res.Intent)
	assert.False(t, res.ActionTaken)
}

func TestProcessCommand_ConfidenceThresholdOption(t *testing.T) {
	f := newFixture(t)
	r := command.NewRouter(f.store, returns(intent.Result{Intent: intent.KindQuery, Confidence: 0.6}),
		echoExtractor, prioritize.KeywordPrioritizer{}, command.WithConfidenceThreshold(0.5))

	res := r.ProcessCommand(context.Background(), "anything", command.ModeCommand, nil)

	assert.Equal(t, "Query: anything", res.Message)
}

func TestScenario_ReviewQuarterlyReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.add(t, "Review quarterly report", task.PriorityHigh, task.CategoryBusiness)
	f.add(t, "Call client", task.PriorityMedium, task.CategoryClient)
	tasks := f.store.List()

	best := matcher.FindBestMatch("quarterly", tasks, matcher.DefaultBestThreshold)
	require.NotNil(t, best)
	assert.Equal(t, first, best.ID)

	r := f.router(returns(intent.Result{Intent: intent.KindComplete, Confidence: 0.9}))
	res := r.ProcessCommand(ctx, "Mark review quarterly report complete", command.ModeCommand, tasks)

	require.True(t, res.ActionTaken)
	got, _ := f.store.Get(first)
	assert.True(t, got.Completed)
	assert.Equal(t, 1, f.store.Stats().Completed)
}

func TestScenario_Gibberish(t *testing.T) {
	f := newFixture(t)
	r := f.router(returns(intent.Result{Intent: intent.KindQuery, Confidence: 0.3}))

	res := r.ProcessCommand(context.Background(), "ksjdflskjdf gibberish", command.ModeCommand, nil)

	assert.False(t, res.ActionTaken)
	assert.Equal(t, "Low confidence (30.0%) in understanding: 'ksjdflskjdf gibberish'. Please try rephrasing.", res.Message)
	assert.True(t, res.LowConfidence)
	assert.Empty(t, f.store.List())
}
