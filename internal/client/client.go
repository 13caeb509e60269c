package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/kazz187/voicetask/internal/agent"
	"github.com/kazz187/voicetask/internal/command"
	"github.com/kazz187/voicetask/internal/eventbus"
)

// Client talks to a running voicetask server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	command    *command.Client
	agent      *agent.Client
}

// NewClient creates a client for baseURL. A non-empty apiKey is sent as
// X-API-Key on every request.
func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := http.DefaultClient
	if apiKey != "" {
		httpClient = &http.Client{Transport: &apiKeyTransport{key: apiKey, next: http.DefaultTransport}}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		command:    command.NewClient(httpClient, baseURL),
		agent:      agent.NewClient(httpClient, baseURL),
	}
}

// ProcessCommand sends an utterance to the command router.
func (c *Client) ProcessCommand(ctx context.Context, text string, mode command.Mode) (command.Result, error) {
	resp, err := c.command.ProcessCommand(ctx, connect.NewRequest(&command.ProcessCommandRequest{
		Text: text,
		Mode: mode,
	}))
	if err != nil {
		return command.Result{}, fmt.Errorf("failed to process command: %w", err)
	}
	return resp.Msg.Result, nil
}

// RunAgent runs a free-form request through the agent.
func (c *Client) RunAgent(ctx context.Context, request string) (agent.Response, error) {
	resp, err := c.agent.Run(ctx, connect.NewRequest(&agent.RunRequest{Request: request}))
	if err != nil {
		return agent.Response{}, fmt.Errorf("failed to run agent: %w", err)
	}
	return resp.Msg.Response, nil
}

// ListTools lists the tools the agent can call.
func (c *Client) ListTools(ctx context.Context) ([]agent.ToolSpec, error) {
	resp, err := c.agent.ListTools(ctx, connect.NewRequest(&agent.ListToolsRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return resp.Msg.Tools, nil
}

// WatchEvents calls fn for every event until ctx is canceled or the
// stream ends. connected, if set, runs once the server has registered the
// subscription.
func (c *Client) WatchEvents(ctx context.Context, connected func(), fn func(*eventbus.Event), types ...string) error {
	stream, err := eventbus.Subscribe(ctx, c.httpClient, c.baseURL, types...)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer stream.Close()

	for stream.Receive() {
		ev := stream.Msg()
		if ev.Type == eventbus.EventSubscribed {
			if connected != nil {
				connected()
			}
			continue
		}
		fn(ev)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream: %w", err)
	}
	return nil
}

type apiKeyTransport struct {
	key  string
	next http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-API-Key", t.key)
	return t.next.RoundTrip(req)
}
