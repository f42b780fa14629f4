package subscriber

import (
	"sync"

	"github.com/hedeqiang/subline/event"
)

// DefaultBuffer is the channel capacity used when NewChannel gets zero.
const DefaultBuffer = 64

// Channel delivers records through a Go channel. Send blocks while the buffer
// is full, so a slow reader slows the pump instead of losing records.
type Channel struct {
	ch   chan event.Record
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	closed bool
}

// NewChannel creates a channel-based subscriber with the given buffer size.
func NewChannel(bufSize int) *Channel {
	if bufSize <= 0 {
		bufSize = DefaultBuffer
	}
	return &Channel{
		ch:   make(chan event.Record, bufSize),
		done: make(chan struct{}),
	}
}

// Records returns the channel to read records from. It is closed after Close.
func (c *Channel) Records() <-chan event.Record {
	return c.ch
}

// Send delivers a record, waiting for buffer space. It returns without
// delivering once the subscriber is closed.
func (c *Channel) Send(rec event.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- rec:
	case <-c.done:
	}
}

// Close shuts down the subscriber and closes the records channel. Records
// already buffered can still be read.
func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.closed = true
		close(c.ch)
		c.mu.Unlock()
	})
}
