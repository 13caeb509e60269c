package eventbus

import (
	"context"
	"net/http"
	"slices"

	"connectrpc.com/connect"

	"github.com/kazz187/voicetask/pkg/jsoncodec"
)

const (
	ServiceName              = "voicetask.v1.EventService"
	SubscribeEventsProcedure = "/voicetask.v1.EventService/SubscribeEvents"

	// EventSubscribed is always the first message of a stream. It is sent
	// once the bus subscription exists, so every event published after the
	// client has read it is delivered. Type filters do not apply to it.
	EventSubscribed = "subscribed"
)

type SubscribeEventsRequest struct {
	// Types filters by event type. Empty means all.
	Types []string `json:"types"`
}

type Server struct {
	bus *Bus
}

func NewServer(bus *Bus) *Server {
	return &Server{bus: bus}
}

func NewServiceHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	subscribe := connect.NewServerStreamHandler(SubscribeEventsProcedure, s.SubscribeEvents, jsoncodec.HandlerOptions(opts...)...)
	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SubscribeEventsProcedure:
			subscribe.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *Server) SubscribeEvents(ctx context.Context, req *connect.Request[SubscribeEventsRequest], stream *connect.ServerStream[Event]) error {
	subID, ch := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(subID)

	if err := stream.Send(NewEvent(EventSubscribed, "", "subscribed", nil)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if len(req.Msg.Types) > 0 && !slices.Contains(req.Msg.Types, event.Type) {
				continue
			}
			if err := stream.Send(event); err != nil {
				return err
			}
		}
	}
}

// Subscribe opens an event stream on a running server.
func Subscribe(ctx context.Context, httpClient connect.HTTPClient, baseURL string, types ...string) (*connect.ServerStreamForClient[Event], error) {
	client := connect.NewClient[SubscribeEventsRequest, Event](httpClient, baseURL+SubscribeEventsProcedure, jsoncodec.ClientOptions()...)
	return client.CallServerStream(ctx, connect.NewRequest(&SubscribeEventsRequest{Types: types}))
}
