// Package chain implements the node operations used by subline on top of a
// transport session: block hash lookup, extrinsic submission and runtime event
// subscriptions.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline/decoder"
	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
	"github.com/hedeqiang/subline/internal/hex"
	"github.com/hedeqiang/subline/internal/storage"
	"github.com/hedeqiang/subline/transport"
)

const (
	methodBlockHash        = "chain_getBlockHash"
	methodSubmitExtrinsic  = "author_submitExtrinsic"
	methodSubscribeStorage = "state_subscribeStorage"
	methodUnsubscribe      = "state_unsubscribeStorage"
)

// Client issues node operations over one transport session. It owns the
// transport: Close tears both down.
type Client struct {
	transport transport.Transport
	decoder   decoder.Decoder
	log       *logrus.Entry
	eventsKey string

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates a client on t. Events are decoded with a JSON decoder unless
// WithDecoder is given.
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		eventsKey: hex.Encode(storage.SystemEvents()),
		subs:      make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.decoder == nil {
		c.decoder = decoder.NewJSON(nil)
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

// Transport returns the underlying session.
func (c *Client) Transport() transport.Transport {
	return c.transport
}

// BlockHash returns the hash of block number n. found is false when the node
// knows no such block.
func (c *Client) BlockHash(ctx context.Context, n uint64) (hash event.Hash, found bool, err error) {
	result, err := c.transport.Call(ctx, methodBlockHash, n)
	if err != nil {
		return event.Hash{}, false, fmt.Errorf("chain: %s: %w", methodBlockHash, err)
	}
	if transport.IsNull(result) {
		return event.Hash{}, false, nil
	}
	if err := json.Unmarshal(result, &hash); err != nil {
		return event.Hash{}, false, fmt.Errorf("chain: parse block hash: %w", err)
	}
	return hash, true, nil
}

// Submit sends a signed, encoded extrinsic and returns the hash the node
// reports for it. It does not wait for inclusion.
func (c *Client) Submit(ctx context.Context, extrinsic []byte) (event.Hash, error) {
	if len(extrinsic) == 0 {
		return event.Hash{}, fmt.Errorf("chain: %s: empty extrinsic", methodSubmitExtrinsic)
	}
	result, err := c.transport.Call(ctx, methodSubmitExtrinsic, hex.Encode(extrinsic))
	if err != nil {
		return event.Hash{}, fmt.Errorf("chain: %s: %w", methodSubmitExtrinsic, err)
	}

	var hash event.Hash
	if err := json.Unmarshal(result, &hash); err != nil {
		return event.Hash{}, fmt.Errorf("chain: parse extrinsic hash: %w", err)
	}
	if local := event.ExtrinsicHash(extrinsic); local != hash {
		c.log.WithFields(logrus.Fields{
			"local":  local.Hex(),
			"remote": hash.Hex(),
		}).Warn("node reported a different extrinsic hash")
	}
	c.log.WithField("extrinsic", hash.Hex()).Debug("submitted")
	return hash, nil
}

// SubscribeEvents subscribes to the runtime events of every new block and
// delivers those matching f. A nil f matches everything.
func (c *Client) SubscribeEvents(ctx context.Context, f filter.Filter, opts ...SubscribeOption) (*Subscription, error) {
	return c.subscribe(ctx, f, applySubscribeOptions(opts))
}

func (c *Client) subscribe(ctx context.Context, f filter.Filter, o subscribeOptions) (*Subscription, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, &transport.SubscriptionError{Method: methodSubscribeStorage, Err: transport.ErrClosed}
	}

	stream, err := c.transport.Subscribe(ctx, methodSubscribeStorage, methodUnsubscribe, []string{c.eventsKey})
	if err != nil {
		return nil, fmt.Errorf("chain: subscribe events: %w", err)
	}

	if f == nil {
		f = filter.Any()
	}
	s := newSubscription(c, stream, f, o)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = stream.Close()
		return nil, &transport.SubscriptionError{Method: methodSubscribeStorage, Err: transport.ErrClosed}
	}
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	s.log.Debug("subscribed to events")
	return s, nil
}

// SubmitAndWait subscribes to events, submits extrinsic and returns the first
// record matching f. The subscription is in place before the extrinsic is
// sent, so an event in the very next block is not missed.
//
// Without WithCorrelation the returned record may belong to another sender's
// extrinsic that happened to produce a matching event first. The wait ends
// only when a record arrives, the subscription fails, or ctx is done.
func (c *Client) SubmitAndWait(ctx context.Context, extrinsic []byte, f filter.Filter, opts ...SubscribeOption) (event.Record, error) {
	o := applySubscribeOptions(opts)
	if o.correlate {
		f = filter.AllOf(f, filter.Extrinsic(event.ExtrinsicHash(extrinsic)))
	}

	sub, err := c.subscribe(ctx, f, o)
	if err != nil {
		return event.Record{}, err
	}
	defer func() {
		if err := sub.Close(); err != nil {
			c.log.WithError(err).Debug("close wait subscription")
		}
	}()

	if _, err := c.Submit(ctx, extrinsic); err != nil {
		return event.Record{}, err
	}

	rec, err := sub.Next(ctx)
	if err != nil {
		return event.Record{}, fmt.Errorf("chain: wait for event: %w", err)
	}
	return rec, nil
}

// Close closes every open subscription and then the transport.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := make([]*Subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	var result *multierror.Error
	for _, s := range subs {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := c.transport.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("chain: close transport: %w", err))
	}
	return result.ErrorOrNil()
}

func (c *Client) forget(s *Subscription) {
	c.mu.Lock()
	delete(c.subs, s)
	c.mu.Unlock()
}
