package subscriber

import (
	"sync"

	"github.com/hedeqiang/subline/event"
)

// CallbackFunc is the function signature for event callbacks.
type CallbackFunc func(event.Record)

// Callback delivers records by invoking a callback function.
type Callback struct {
	fn   CallbackFunc
	done chan struct{}
	once sync.Once
}

// NewCallback creates a callback-based subscriber.
func NewCallback(fn CallbackFunc) *Callback {
	return &Callback{
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Send invokes the callback with the record. No-op if closed.
func (c *Callback) Send(rec event.Record) {
	select {
	case <-c.done:
		return
	default:
	}
	c.fn(rec)
}

// Close stops the subscriber.
func (c *Callback) Close() {
	c.once.Do(func() { close(c.done) })
}
