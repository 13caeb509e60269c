package feedback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/internal/eventbus"
	"github.com/kazz187/voicetask/internal/intent"
	"github.com/kazz187/voicetask/internal/pushsubscription"
	"github.com/kazz187/voicetask/internal/task"
	"github.com/kazz187/voicetask/pkg/cerr"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestFromResult(t *testing.T) {
	target := &task.Task{ID: "01T", Text: "call mom"}
	tests := map[string]struct {
		res  command.Result
		want Event
		ok   bool
	}{
		"add": {
			res:  command.Result{Intent: intent.KindAdd, ActionTaken: true, Message: "Added task: x"},
			want: Event{Type: EventTaskAdded, Message: "Task added"},
			ok:   true,
		},
		"complete": {
			res:  command.Result{Intent: intent.KindComplete, ActionTaken: true, TargetTask: target},
			want: Event{Type: EventTaskCompleted, Message: "Task completed", TaskID: "01T"},
			ok:   true,
		},
		"delete": {
			res:  command.Result{Intent: intent.KindDelete, ActionTaken: true, TargetTask: target},
			want: Event{Type: EventTaskDeleted, Message: "Task deleted", TaskID: "01T"},
			ok:   true,
		},
		"modify": {
			res:  command.Result{Intent: intent.KindModify, ActionTaken: true, TargetTask: target},
			want: Event{Type: EventTaskUpdated, Message: "Task updated", TaskID: "01T"},
			ok:   true,
		},
		"braindump": {
			res:  command.Result{Intent: intent.KindBraindump, ActionTaken: true, Message: "Added 2 tasks from brain dump"},
			want: Event{Type: EventTaskAdded, Message: "Task added. Added 2 tasks from brain dump", Detail: "Added 2 tasks from brain dump"},
			ok:   true,
		},
		"query": {
			res:  command.Result{Intent: intent.KindQuery, Message: "No client tasks found."},
			want: Event{Type: EventQueryResponse, Message: "No client tasks found."},
			ok:   true,
		},
		"low confidence": {
			res:  command.Result{Intent: intent.KindQuery, LowConfidence: true, Message: "Low confidence..."},
			want: Event{Type: EventLowConfidence, Message: "I'm not sure what you meant. Please try again."},
			ok:   true,
		},
		"error": {
			res:  command.Result{Intent: intent.KindError, Message: "Error processing command: disk full"},
			want: Event{Type: EventError, Message: "Error: Error processing command: disk full"},
			ok:   true,
		},
		"silent": {
			res: command.Result{Intent: intent.KindDelete},
			ok:  false,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := FromResult(tt.res)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestConfirmation(t *testing.T) {
	assert.Equal(t, "All tasks cleared", Confirmation(EventTasksCleared, "", "").Message)
	assert.Equal(t, "I'm not sure what you meant. Please try again. Say help", Confirmation(EventLowConfidence, "", "Say help").Message)
	assert.Equal(t, "custom", Confirmation(EventType("custom"), "", "").Message)
}

func TestAnnounce(t *testing.T) {
	bus := eventbus.New()
	_, ch := bus.Subscribe(4)
	rec := &recorder{}
	n := Multi{rec, nil, NewBusNotifier(bus), NewLogNotifier(nil)}

	Announce(context.Background(), n, command.Result{Intent: intent.KindAdd, ActionTaken: true})
	Announce(context.Background(), n, command.Result{Intent: intent.KindDelete})
	Announce(context.Background(), nil, command.Result{Intent: intent.KindAdd, ActionTaken: true})

	require.Len(t, rec.events, 1)
	ev := <-ch
	assert.Equal(t, "task_added", ev.Type)
	assert.Equal(t, "Task added", ev.Payload)
	assert.Nil(t, ev.Metadata)
}

func TestTaskChanges(t *testing.T) {
	rec := &recorder{}
	c := TaskChanges{Notifier: rec}
	ctx := context.Background()

	c.TaskChanged(ctx, task.ChangeAdded, "a")
	c.TaskChanged(ctx, task.ChangeCompleted, "b")
	c.TaskChanged(ctx, task.ChangeUpdated, "c")
	c.TaskChanged(ctx, task.ChangeDeleted, "d")
	c.TaskChanged(ctx, task.ChangeCleared, "")
	TaskChanges{}.TaskChanged(ctx, task.ChangeAdded, "ignored")

	require.Len(t, rec.events, 5)
	assert.Equal(t, Event{Type: EventTaskAdded, Message: "Task added", TaskID: "a"}, rec.events[0])
	assert.Equal(t, EventTaskCompleted, rec.events[1].Type)
	assert.Equal(t, EventTaskUpdated, rec.events[2].Type)
	assert.Equal(t, EventTaskDeleted, rec.events[3].Type)
	assert.Equal(t, "All tasks cleared", rec.events[4].Message)
}

func TestListenerAdapters(t *testing.T) {
	rec := &recorder{}
	ctx := context.Background()

	Commands{Notifier: rec}.CommandProcessed(ctx, command.Result{Intent: intent.KindComplete, ActionTaken: true, TargetTask: &task.Task{ID: "t1"}})
	AgentReplies{Notifier: rec}.AgentFinished(ctx, agent.Response{Text: "Completed: Buy milk"})
	AgentReplies{Notifier: rec}.AgentFinished(ctx, agent.Response{})

	require.Len(t, rec.events, 2)
	assert.Equal(t, Event{Type: EventTaskCompleted, Message: "Task completed", TaskID: "t1"}, rec.events[0])
	assert.Equal(t, QueryResponse("Completed: Buy milk"), rec.events[1])
}

type fakeSubs struct {
	subs    []*pushsubscription.Subscription
	listErr error
	removed []string
}

func (f *fakeSubs) List(context.Context) ([]*pushsubscription.Subscription, error) {
	return f.subs, f.listErr
}

func (f *fakeSubs) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

type statusClient struct {
	mu       sync.Mutex
	statuses map[string]int
	sent     []string
}

func (c *statusClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, req.URL.String())
	status, ok := c.statuses[req.URL.String()]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
}

// Keys taken from the webpush-go test suite.
func testSubscription(id, endpoint string) *pushsubscription.Subscription {
	return &pushsubscription.Subscription{
		ID:        id,
		Endpoint:  endpoint,
		P256dhKey: "BNNL5ZaTfK81qhXOx23-wewhigUeFb632jN6LvRWCFH1ubQr77FE_9qV1FuojuRmHP42zmf34rXgW80OvUVDgTk",
		AuthKey:   "zqbxT6JKstKSY9JKibZLSQ",
	}
}

func TestWebPushNotifier(t *testing.T) {
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	subs := &fakeSubs{subs: []*pushsubscription.Subscription{
		testSubscription("ok", "https://push.example.com/ok"),
		testSubscription("gone", "https://push.example.com/gone"),
		testSubscription("missing", "https://push.example.com/missing"),
		testSubscription("down", "https://push.example.com/down"),
	}}
	client := &statusClient{statuses: map[string]int{
		"https://push.example.com/ok":      http.StatusCreated,
		"https://push.example.com/gone":    http.StatusGone,
		"https://push.example.com/missing": http.StatusNotFound,
	}}
	n := NewWebPushNotifier(&config.VAPIDEnv{VAPIDPublicKey: pub, VAPIDPrivateKey: priv, VAPIDContact: "mailto:me@example.com"}, subs)
	n.httpClient = client

	n.Notify(context.Background(), Confirmation(EventTaskAdded, "", ""))

	assert.Len(t, client.sent, 4)
	assert.Equal(t, []string{"gone", "missing"}, subs.removed)
}

func TestWebPushNotifier_Disabled(t *testing.T) {
	subs := &fakeSubs{listErr: errors.New("should not be called")}
	client := &statusClient{}
	n := NewWebPushNotifier(&config.VAPIDEnv{}, subs)
	n.httpClient = client

	assert.False(t, n.Enabled())
	n.Notify(context.Background(), Confirmation(EventTaskAdded, "", ""))
	assert.Empty(t, client.sent)
}

func TestWebPushNotifier_SendTest(t *testing.T) {
	n := NewWebPushNotifier(&config.VAPIDEnv{}, &fakeSubs{})
	assert.True(t, cerr.IsCode(n.SendTest(context.Background()), cerr.FailedPrecondition))

	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	client := &statusClient{statuses: map[string]int{"https://push.example.com/ok": http.StatusCreated}}
	n = NewWebPushNotifier(&config.VAPIDEnv{VAPIDPublicKey: pub, VAPIDPrivateKey: priv}, &fakeSubs{subs: []*pushsubscription.Subscription{
		testSubscription("ok", "https://push.example.com/ok"),
	}})
	n.httpClient = client

	require.NoError(t, n.SendTest(context.Background()))
	assert.Equal(t, []string{"https://push.example.com/ok"}, client.sent)
}
