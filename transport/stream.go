package transport

import (
	"context"
	"encoding/json"
	"sync"
)

// Stream is the notification sequence of one remote subscription.
//
// Notifications are queued in the order the remote side emits them; the queue
// is unbounded so the reader goroutine never blocks on a slow consumer. Next
// is meant for a single consumer.
type Stream struct {
	id     string
	method string

	mu     sync.Mutex
	queue  []json.RawMessage
	err    error
	ready  chan struct{}
	done   chan struct{}
	ended  sync.Once
	closed sync.Once

	unsubscribe func() error
}

func newStream(id, method string, unsubscribe func() error) *Stream {
	return &Stream{
		id:          id,
		method:      method,
		ready:       make(chan struct{}, 1),
		done:        make(chan struct{}),
		unsubscribe: unsubscribe,
	}
}

// ID returns the remote subscription id.
func (s *Stream) ID() string {
	return s.id
}

// Done is closed once the stream has ended, either by Close or by a
// transport failure.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Next returns the next notification payload. It blocks until one is
// available, the stream ends, or ctx is done. After Close it returns
// ErrEndOfStream; after a transport failure, queued notifications are
// drained first and then a *SubscriptionError is returned.
func (s *Stream) Next(ctx context.Context) (json.RawMessage, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		err := s.err
		s.mu.Unlock()

		if err != nil {
			return nil, err
		}

		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close ends the stream, discards queued notifications and cancels the
// remote subscription. Only the first call has an effect.
func (s *Stream) Close() error {
	var err error
	s.closed.Do(func() {
		s.mu.Lock()
		s.queue = nil
		s.err = ErrEndOfStream
		s.mu.Unlock()
		s.end(ErrEndOfStream)
		if s.unsubscribe != nil {
			err = s.unsubscribe()
		}
	})
	return err
}

func (s *Stream) push(msg json.RawMessage) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	s.signal()
}

// end records the first terminal error and wakes any waiting consumer.
func (s *Stream) end(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.ended.Do(func() { close(s.done) })
	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}
