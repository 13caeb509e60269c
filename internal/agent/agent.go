// Package agent runs a request through a planner that may call task
// tools, and reports every tool call it made.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/panicerr"
)

const DefaultMaxTurns = 5

// Call is one tool invocation requested by the planner.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Step is a call together with what the tool returned.
type Step struct {
	Action    string         `json:"action"`
	Arguments map[string]any `json:"arguments"`
	Result    string         `json:"result"`
}

type Response struct {
	Steps []Step `json:"steps"`
	Text  string `json:"text"`
}

// Plan is a planner's decision for one turn. No calls ends the run.
type Plan struct {
	Calls []Call
	Text  string
}

type Planner interface {
	Plan(ctx context.Context, request string, tools []ToolSpec, history []Step) (Plan, error)
}

// Store is the subset of task.Store the tools need.
type Store interface {
	Add(ctx context.Context, text string, priority task.Priority, category task.Category) (string, error)
	Update(ctx context.Context, id string, f task.UpdateFields) (bool, error)
	Toggle(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(id string) (task.Task, bool)
	List() []task.Task
	ListByPriority(p task.Priority) []task.Task
	ListByCategory(c task.Category) []task.Task
	ListPending() []task.Task
	ListCompleted() []task.Task
	Stats() task.Stats
}

type Executor struct {
	store    Store
	planner  Planner
	maxTurns int
	tools    map[string]tool
	specs    []ToolSpec
}

type Option func(*Executor)

func WithMaxTurns(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxTurns = n
		}
	}
}

func NewExecutor(store Store, planner Planner, opts ...Option) *Executor {
	e := &Executor{
		store:    store,
		planner:  planner,
		maxTurns: DefaultMaxTurns,
	}
	e.register()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tools describes the registered tools in registration order.
func (e *Executor) Tools() []ToolSpec {
	return e.specs
}

// Run plans and executes until a turn requests no calls or the turn
// limit is reached. When any tool ran, Text is built from tool results
// only.
func (e *Executor) Run(ctx context.Context, request string) (Response, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return Response{}, errors.New("empty request")
	}

	var (
		steps     []Step
		finalText string
	)
	for turn := 0; turn < e.maxTurns; turn++ {
		plan, err := panicerr.Call(func() (Plan, error) {
			return e.planner.Plan(ctx, request, e.specs, steps)
		})
		if err != nil {
			if len(steps) == 0 {
				return Response{}, err
			}
			slog.WarnContext(ctx, "planner failed after tool calls, keeping results", "turn", turn, "error", err)
			break
		}
		finalText = plan.Text
		if len(plan.Calls) == 0 {
			break
		}
		for _, call := range plan.Calls {
			steps = append(steps, e.invoke(ctx, call))
		}
	}

	res := Response{Steps: steps, Text: strings.TrimSpace(finalText)}
	if len(steps) > 0 {
		results := make([]string, 0, len(steps))
		for _, s := range steps {
			results = append(results, s.Result)
		}
		res.Text = strings.Join(results, "\n")
	}
	if res.Steps == nil {
		res.Steps = []Step{}
	}
	return res, nil
}

func (e *Executor) invoke(ctx context.Context, call Call) Step {
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	step := Step{Action: call.Name, Arguments: args}

	t, ok := e.tools[call.Name]
	if !ok {
		step.Result = "Unknown tool: " + call.Name
		return step
	}
	out, err := panicerr.Call(func() (string, error) {
		return t.run(ctx, arguments(args))
	})
	if err != nil {
		slog.ErrorContext(ctx, "tool failed", "tool", call.Name, "error", err)
		step.Result = "Error running " + call.Name + ": " + err.Error()
		return step
	}
	slog.DebugContext(ctx, "tool ran", "tool", call.Name, "result", out)
	step.Result = out
	return step
}
