package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HTTP implements Transport over HTTP JSON-RPC. Each call is an independent
// POST; subscriptions are not available.
type HTTP struct {
	url    string
	client *http.Client
	header http.Header
	log    *logrus.Entry
	nextID atomic.Uint64

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewHTTP creates an HTTP transport targeting the given JSON-RPC endpoint.
func NewHTTP(url string, opts ...Option) *HTTP {
	o := applyOptions(opts)
	return &HTTP{
		url:    url,
		client: o.httpClient,
		header: o.header,
		log: o.logger.WithFields(logrus.Fields{
			"endpoint": url,
			"session":  uuid.NewString(),
		}),
		done: make(chan struct{}),
	}
}

// Call sends an HTTP JSON-RPC request and returns the result bytes.
func (h *HTTP) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	id := h.nextID.Add(1)
	fail := func(err error) (json.RawMessage, error) {
		return nil, &CallError{Method: method, ID: id, Err: err}
	}

	if err := h.Err(); err != nil {
		return fail(err)
	}

	body, err := json.Marshal(newRequest(id, method, params))
	if err != nil {
		return fail(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	for k, vs := range h.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	h.log.WithFields(logrus.Fields{"method": method, "id": id}).Debug("call")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		body := string(respBody)
		if len(body) > 256 {
			body = body[:256]
		}
		return fail(fmt.Errorf("HTTP %d: %s", resp.StatusCode, body))
	}

	var msg jsonRPCMessage
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return fail(fmt.Errorf("unmarshal response: %w", err))
	}
	if msg.ID == nil || *msg.ID != id {
		return fail(fmt.Errorf("response id does not match request id %d", id))
	}
	if msg.Error != nil {
		return fail(msg.Error)
	}
	return msg.Result, nil
}

// Subscribe always fails: HTTP has no push delivery.
func (h *HTTP) Subscribe(_ context.Context, method, _ string, _ ...any) (*Stream, error) {
	return nil, &SubscriptionError{Method: method, Err: ErrSubscriptionsUnsupported}
}

// Done is closed after Close.
func (h *HTTP) Done() <-chan struct{} {
	return h.done
}

// Err returns ErrClosed after Close, nil before.
func (h *HTTP) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the transport closed and releases idle connections.
func (h *HTTP) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
		h.client.CloseIdleConnections()
	}
	return nil
}
