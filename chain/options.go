package chain

import (
	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline/decoder"
	"github.com/hedeqiang/subline/middleware"
)

// Option configures a Client.
type Option func(*Client)

// WithDecoder sets the decoder applied to System.Events storage values.
func WithDecoder(d decoder.Decoder) Option {
	return func(c *Client) {
		c.decoder = d
	}
}

// WithLogger sets the logger used by the client and its subscriptions.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) {
		c.log = l
	}
}

type subscribeOptions struct {
	middlewares   []middleware.Middleware
	onDecodeError func(error)
	correlate     bool
}

// SubscribeOption configures SubscribeEvents and SubmitAndWait.
type SubscribeOption func(*subscribeOptions)

// WithMiddleware adds middleware to the record delivery pipeline. Middleware
// sees only records that passed the subscription filter.
func WithMiddleware(mw ...middleware.Middleware) SubscribeOption {
	return func(o *subscribeOptions) {
		o.middlewares = append(o.middlewares, mw...)
	}
}

// OnDecodeError registers a hook called with every *decoder.DecodeError the
// subscription skips.
func OnDecodeError(fn func(error)) SubscribeOption {
	return func(o *subscribeOptions) {
		o.onDecodeError = fn
	}
}

// WithCorrelation makes SubmitAndWait accept only records whose extrinsic hash
// equals the hash of the submitted extrinsic. SubscribeEvents ignores it.
func WithCorrelation() SubscribeOption {
	return func(o *subscribeOptions) {
		o.correlate = true
	}
}

func applySubscribeOptions(opts []SubscribeOption) subscribeOptions {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
