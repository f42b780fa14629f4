package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type options struct {
	logger             *logrus.Entry
	header             http.Header
	dialer             *websocket.Dialer
	httpClient         *http.Client
	unsubscribeTimeout time.Duration
	writeTimeout       time.Duration
}

// Option configures a transport.
type Option func(*options)

// WithLogger sets the logger used for connection and call tracing.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHeader sets headers sent with the WebSocket handshake or every HTTP request.
func WithHeader(h http.Header) Option {
	return func(o *options) {
		o.header = h
	}
}

// WithDialer overrides the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithHTTPClient overrides the client used by the HTTP transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithUnsubscribeTimeout bounds the unsubscribe request sent when a stream is closed.
func WithUnsubscribeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.unsubscribeTimeout = d
	}
}

// WithWriteTimeout bounds how long a single WebSocket frame may take to write.
// A write that fails ends the session.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

func applyOptions(opts []Option) options {
	o := options{
		dialer:             websocket.DefaultDialer,
		httpClient:         &http.Client{},
		unsubscribeTimeout: 5 * time.Second,
		writeTimeout:       10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}
