package feedback

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kazz187/voicetask/internal/config"
	"github.com/kazz187/voicetask/internal/pushsubscription"
	"github.com/kazz187/voicetask/pkg/cerr"
)

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
}

type subscriptions interface {
	List(ctx context.Context) ([]*pushsubscription.Subscription, error)
	Remove(ctx context.Context, id string) error
}

// WebPushNotifier sends every event to all registered browsers.
type WebPushNotifier struct {
	vapidEnv   *config.VAPIDEnv
	subs       subscriptions
	httpClient webpush.HTTPClient
}

func NewWebPushNotifier(vapidEnv *config.VAPIDEnv, subs subscriptions) *WebPushNotifier {
	return &WebPushNotifier{vapidEnv: vapidEnv, subs: subs}
}

func (n *WebPushNotifier) Enabled() bool {
	return n.vapidEnv.VAPIDPrivateKey != "" && n.vapidEnv.VAPIDPublicKey != ""
}

func (n *WebPushNotifier) Notify(ctx context.Context, ev Event) {
	if !n.Enabled() {
		return
	}
	subs, err := n.subs.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to list subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}
	data, err := json.Marshal(pushPayload{Title: "Voice Task Manager", Body: ev.Message, Tag: string(ev.Type)})
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to marshal payload", "error", err)
		return
	}
	for _, sub := range subs {
		n.send(ctx, sub, data)
	}
}

func (n *WebPushNotifier) send(ctx context.Context, sub *pushsubscription.Subscription, data []byte) {
	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      n.httpClient,
		VAPIDPublicKey:  n.vapidEnv.VAPIDPublicKey,
		VAPIDPrivateKey: n.vapidEnv.VAPIDPrivateKey,
		Subscriber:      n.vapidEnv.VAPIDContact,
		TTL:             60,
	})
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to send", "endpoint", sub.Endpoint, "error", err)
		return
	}
	if resp.Body != nil {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		slog.InfoContext(ctx, "push notification: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := n.subs.Remove(ctx, sub.ID); err != nil {
			slog.ErrorContext(ctx, "push notification: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
	case resp.StatusCode >= 400:
		slog.WarnContext(ctx, "push notification: unexpected status", "endpoint", sub.Endpoint, "status", resp.StatusCode)
	}
}

// SendTest pushes a fixed message to every subscriber.
func (n *WebPushNotifier) SendTest(ctx context.Context) error {
	if !n.Enabled() {
		return cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil)
	}
	n.Notify(ctx, Event{Type: "test", Message: "Push notifications are working!"})
	return nil
}
