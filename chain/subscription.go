package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline/decoder"
	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
	"github.com/hedeqiang/subline/internal/hex"
	"github.com/hedeqiang/subline/middleware"
	"github.com/hedeqiang/subline/transport"
)

// storageChangeSet is the result of a state_storage notification.
type storageChangeSet struct {
	Block   event.Hash   `json:"block"`
	Changes [][2]*string `json:"changes"`
}

// Subscription delivers the event records of one runtime event subscription.
// Next is meant for a single consumer.
type Subscription struct {
	client  *Client
	stream  *transport.Stream
	filter  filter.Filter
	handler middleware.Handler
	onError func(error)
	log     *logrus.Entry

	closed  atomic.Bool
	pending []event.Record
}

func newSubscription(c *Client, stream *transport.Stream, f filter.Filter, o subscribeOptions) *Subscription {
	return &Subscription{
		client:  c,
		stream:  stream,
		filter:  f,
		handler: middleware.Chain(middleware.Identity, o.middlewares...),
		onError: o.onDecodeError,
		log:     c.log.WithField("subscription", stream.ID()),
	}
}

// ID returns the remote subscription id.
func (s *Subscription) ID() string {
	return s.stream.ID()
}

// Next returns the next record that matches the filter and survives the
// middleware chain. After Close it returns an error matching
// transport.ErrEndOfStream; when the connection fails it returns a
// *transport.SubscriptionError. Undecodable payloads are reported and skipped.
func (s *Subscription) Next(ctx context.Context) (event.Record, error) {
	for {
		if s.closed.Load() {
			s.pending = nil
			return event.Record{}, transport.ErrEndOfStream
		}
		for len(s.pending) > 0 {
			rec := s.pending[0]
			s.pending = s.pending[1:]
			if out := s.handler(rec); out != nil {
				return *out, nil
			}
		}

		msg, err := s.stream.Next(ctx)
		if err != nil {
			return event.Record{}, err
		}
		s.pending = s.decode(msg)
	}
}

// Close cancels the subscription. Records not yet returned are discarded.
func (s *Subscription) Close() error {
	s.closed.Store(true)
	s.client.forget(s)
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("chain: close subscription %s: %w", s.stream.ID(), err)
	}
	return nil
}

// decode turns one notification into the records that match the filter.
func (s *Subscription) decode(msg json.RawMessage) []event.Record {
	var set storageChangeSet
	if err := json.Unmarshal(msg, &set); err != nil {
		s.report(&decoder.DecodeError{Index: -1, Err: fmt.Errorf("storage change set: %w", err)})
		return nil
	}

	var out []event.Record
	for _, change := range set.Changes {
		key, value := change[0], change[1]
		if key == nil || value == nil || !hex.Equal(*key, s.client.eventsKey) {
			continue
		}
		data, err := hex.Decode(*value)
		if err != nil {
			s.report(&decoder.DecodeError{Block: set.Block, Index: -1, Err: err})
			continue
		}

		batch, err := s.client.decoder.Decode(set.Block, data)
		if err != nil {
			s.report(err)
		}
		for _, rec := range batch.Records {
			if s.filter.Match(rec) {
				out = append(out, rec)
			}
		}
	}
	return out
}

func (s *Subscription) report(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			s.report(e)
		}
		return
	}
	s.log.WithError(err).Warn("skipping undecodable event")
	if s.onError != nil {
		s.onError(err)
	}
}
