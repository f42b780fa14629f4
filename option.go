package subline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline/config"
	"github.com/hedeqiang/subline/decoder"
	"github.com/hedeqiang/subline/transport"
)

type options struct {
	logger        *logrus.Entry
	decoder       decoder.Decoder
	transportOpts []transport.Option
	callTimeout   time.Duration
	waitTimeout   time.Duration
	buffer        int
	correlate     bool
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger used by the client, its connection and its
// subscriptions.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDecoder sets the decoder for runtime event payloads.
func WithDecoder(d decoder.Decoder) Option {
	return func(o *options) {
		o.decoder = d
	}
}

// WithTransportOptions passes options through to transport.Dial.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) {
		o.transportOpts = append(o.transportOpts, opts...)
	}
}

// WithCallTimeout bounds calls whose context has no deadline. Zero disables
// the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		o.callTimeout = d
	}
}

// WithWaitTimeout bounds SubmitAndWait when its context has no deadline. By
// default the wait is bounded by the context only.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.waitTimeout = d
	}
}

// WithBuffer sets the channel capacity used by Records.
func WithBuffer(n int) Option {
	return func(o *options) {
		o.buffer = n
	}
}

// WithCorrelation makes every SubmitAndWait match only the events of the
// submitted extrinsic.
func WithCorrelation() Option {
	return func(o *options) {
		o.correlate = true
	}
}

// WithConfig applies the timeouts, buffer size and correlation setting of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.callTimeout = cfg.CallTimeout
		o.waitTimeout = cfg.WaitTimeout
		o.buffer = cfg.SubscriptionBuffer
		o.correlate = cfg.Correlate
	}
}

func applyOptions(opts []Option) options {
	o := options{
		callTimeout: config.DefaultCallTimeout,
		buffer:      config.DefaultSubscriptionBuffer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}
