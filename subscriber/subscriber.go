// Package subscriber fans the records of an event subscription out to
// callbacks and channels.
package subscriber

import (
	"context"
	"errors"

	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/transport"
)

// Subscriber receives event records through a chosen delivery mechanism.
type Subscriber interface {
	// Send delivers a record to this subscriber.
	Send(rec event.Record)

	// Close terminates the subscriber and releases resources.
	Close()
}

// Source yields records one at a time, as *chain.Subscription does.
type Source interface {
	Next(ctx context.Context) (event.Record, error)
}

// Pump reads records from src and sends them to dst until ctx is done or src
// fails. dst is closed on return, or as soon as ctx is done so that a Send
// blocked on a reader that went away returns. A source that was closed ends
// the pump without error.
func Pump(ctx context.Context, src Source, dst Subscriber) error {
	defer dst.Close()
	stop := context.AfterFunc(ctx, dst.Close)
	defer stop()

	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrEndOfStream) {
				return nil
			}
			return err
		}
		dst.Send(rec)
	}
}
