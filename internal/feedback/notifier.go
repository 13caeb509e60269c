package feedback

import (
	"context"
	"log/slog"

	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/eventbus"
	"github.com/kazz187/voicetask/internal/task"
)

// Notifier delivers events fire-and-forget. Implementations log their own
// failures.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Announce sends the confirmation for res, if any.
func Announce(ctx context.Context, n Notifier, res command.Result) {
	if n == nil {
		return
	}
	if ev, ok := FromResult(res); ok {
		n.Notify(ctx, ev)
	}
}

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) {
	n.logger.InfoContext(ctx, "feedback", "type", ev.Type, "message", ev.Message, "task_id", ev.TaskID)
}

// BusNotifier publishes events for the browser event stream.
type BusNotifier struct {
	bus *eventbus.Bus
}

func NewBusNotifier(bus *eventbus.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) Notify(_ context.Context, ev Event) {
	var metadata map[string]string
	if ev.Detail != "" {
		metadata = map[string]string{"detail": ev.Detail}
	}
	n.bus.PublishNew(string(ev.Type), ev.TaskID, ev.Message, metadata)
}

type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// TaskChanges adapts a Notifier to task.ChangeNotifier for REST edits.
type TaskChanges struct {
	Notifier Notifier
}

func (c TaskChanges) TaskChanged(ctx context.Context, change task.Change, id string) {
	if c.Notifier == nil {
		return
	}
	var t EventType
	switch change {
	case task.ChangeAdded:
		t = EventTaskAdded
	case task.ChangeCompleted:
		t = EventTaskCompleted
	case task.ChangeDeleted:
		t = EventTaskDeleted
	case task.ChangeCleared:
		t = EventTasksCleared
	default:
		t = EventTaskUpdated
	}
	c.Notifier.Notify(ctx, Confirmation(t, id, ""))
}

// Commands adapts a Notifier to command.Listener.
type Commands struct {
	Notifier Notifier
}

func (c Commands) CommandProcessed(ctx context.Context, res command.Result) {
	Announce(ctx, c.Notifier, res)
}

// AgentReplies speaks the agent's final text.
type AgentReplies struct {
	Notifier Notifier
}

func (a AgentReplies) AgentFinished(ctx context.Context, res agent.Response) {
	if a.Notifier == nil || res.Text == "" {
		return
	}
	a.Notifier.Notify(ctx, QueryResponse(res.Text))
}
