package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrConnection matches every *ConnectionError.
	ErrConnection = errors.New("transport: connection failed")

	// ErrCall matches every *CallError.
	ErrCall = errors.New("transport: call failed")

	// ErrSubscription matches every *SubscriptionError.
	ErrSubscription = errors.New("transport: subscription failed")

	// ErrConnectionLost is the cause reported when the remote side drops the session.
	ErrConnectionLost = errors.New("transport: connection lost")

	// ErrClosed is the cause reported after Close.
	ErrClosed = errors.New("transport: connection closed")

	// ErrEndOfStream is returned by Stream.Next after the stream was closed.
	ErrEndOfStream = errors.New("transport: end of stream")

	// ErrSubscriptionsUnsupported is returned by transports without push delivery.
	ErrSubscriptionsUnsupported = errors.New("transport: subscriptions not supported")
)

// ConnectionError reports that an endpoint was unreachable or the handshake failed.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transport: connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// CallError reports that a request failed, was rejected by the remote side,
// or lost its connection before a response arrived.
type CallError struct {
	Method string
	ID     uint64
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("transport: call %s (id %d): %v", e.Method, e.ID, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func (e *CallError) Is(target error) bool { return target == ErrCall }

// SubscriptionError reports a rejected subscribe request or a stream that
// ended abnormally.
type SubscriptionError struct {
	Method       string
	Subscription string
	Err          error
}

func (e *SubscriptionError) Error() string {
	if e.Subscription == "" {
		return fmt.Sprintf("transport: subscribe %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("transport: subscription %s (%s): %v", e.Subscription, e.Method, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

func (e *SubscriptionError) Is(target error) bool { return target == ErrSubscription }

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error: code=%d message=%s data=%s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error: code=%d message=%s", e.Code, e.Message)
}
