package subline

import (
	"github.com/hedeqiang/subline/decoder"
	"github.com/hedeqiang/subline/transport"
)

// Error sentinels, for use with errors.Is.
var (
	// ErrConnection matches failures to reach the endpoint.
	ErrConnection = transport.ErrConnection

	// ErrCall matches failed or rejected requests.
	ErrCall = transport.ErrCall

	// ErrSubscription matches rejected subscriptions and streams that ended abnormally.
	ErrSubscription = transport.ErrSubscription

	// ErrDecode matches event payloads the decoder rejected.
	ErrDecode = decoder.ErrDecode

	// ErrConnectionLost is the cause reported when the node drops the connection.
	ErrConnectionLost = transport.ErrConnectionLost

	// ErrEndOfStream is returned by Subscription.Next after Close.
	ErrEndOfStream = transport.ErrEndOfStream
)

// Error types, for use with errors.As.
type (
	ConnectionError   = transport.ConnectionError
	CallError         = transport.CallError
	SubscriptionError = transport.SubscriptionError
	RPCError          = transport.RPCError
	DecodeError       = decoder.DecodeError
)
