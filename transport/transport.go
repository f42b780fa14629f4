// Package transport implements the JSON-RPC connection layer: one session per
// endpoint, request/response calls and subscription streams.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Transport is an open session to a single JSON-RPC endpoint.
type Transport interface {
	// Call sends one request and waits for exactly one response or failure.
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// Subscribe issues a subscription request and returns the stream of
	// notifications for it. unsubscribe names the method used to cancel the
	// subscription when the stream is closed; empty skips the remote call.
	Subscribe(ctx context.Context, method, unsubscribe string, params ...any) (*Stream, error)

	// Done is closed when the session ends.
	Done() <-chan struct{}

	// Err reports why the session ended, or nil while it is open.
	Err() error

	// Close terminates the session.
	Close() error
}

// Dial opens a session to endpoint. ws:// and wss:// endpoints use the
// WebSocket transport; http:// and https:// use HTTP, which has no
// subscriptions and opens no connection until the first call.
func Dial(ctx context.Context, endpoint string, opts ...Option) (Transport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	switch u.Scheme {
	case "ws", "wss":
		return DialWebSocket(ctx, endpoint, opts...)
	case "http", "https":
		return NewHTTP(endpoint, opts...), nil
	default:
		return nil, &ConnectionError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}
}
