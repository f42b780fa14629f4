// Package subline is a small client for Substrate nodes: it looks up block
// hashes, submits signed extrinsics and waits for the runtime events they
// produce.
//
// Usage:
//
//	c, err := subline.Connect(ctx, "ws://127.0.0.1:9944")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	hash, found, err := c.BlockHash(ctx, 1)
//
//	rec, err := c.SubmitAndWait(ctx, signedTransfer,
//	    filter.Kinds(event.MustParseKind("Balances.Transfer")),
//	    chain.WithCorrelation(),
//	)
package subline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline/chain"
	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
	"github.com/hedeqiang/subline/subscriber"
	"github.com/hedeqiang/subline/transport"
)

// Client is a connection to one node.
type Client struct {
	chain *chain.Client
	log   *logrus.Entry

	callTimeout time.Duration
	waitTimeout time.Duration
	buffer      int
	correlate   bool
}

// Connect dials endpoint and returns a ready client. ws:// and wss://
// endpoints support every operation; http:// and https:// support calls only.
// The dial is bounded by the call timeout when ctx has no deadline.
func Connect(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	o := applyOptions(opts)

	ctx, cancel := withDefaultTimeout(ctx, o.callTimeout)
	defer cancel()

	tr, err := transport.Dial(ctx, endpoint, append(o.transportOpts, transport.WithLogger(o.logger))...)
	if err != nil {
		return nil, err
	}

	chainOpts := []chain.Option{chain.WithLogger(o.logger)}
	if o.decoder != nil {
		chainOpts = append(chainOpts, chain.WithDecoder(o.decoder))
	}

	return &Client{
		chain:       chain.New(tr, chainOpts...),
		log:         o.logger,
		callTimeout: o.callTimeout,
		waitTimeout: o.waitTimeout,
		buffer:      o.buffer,
		correlate:   o.correlate,
	}, nil
}

// Chain returns the underlying chain client, whose operations apply no
// default timeouts.
func (c *Client) Chain() *chain.Client {
	return c.chain
}

// BlockHash returns the hash of block number n; found is false when the node
// has no such block.
func (c *Client) BlockHash(ctx context.Context, n uint64) (event.Hash, bool, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.chain.BlockHash(ctx, n)
}

// Submit sends a signed, encoded extrinsic without waiting for inclusion.
func (c *Client) Submit(ctx context.Context, extrinsic []byte) (event.Hash, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.chain.Submit(ctx, extrinsic)
}

// SubscribeEvents opens an event subscription delivering records that match
// f. ctx bounds only the subscribe request; the subscription stays open until
// closed.
func (c *Client) SubscribeEvents(ctx context.Context, f filter.Filter, opts ...chain.SubscribeOption) (*chain.Subscription, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.chain.SubscribeEvents(ctx, f, opts...)
}

// SubmitAndWait submits extrinsic and returns the first record matching f.
// The wait is bounded by ctx, and by the wait timeout when one is configured
// and ctx has no deadline. WithCorrelation is implied when the client was
// created with it.
func (c *Client) SubmitAndWait(ctx context.Context, extrinsic []byte, f filter.Filter, opts ...chain.SubscribeOption) (event.Record, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.waitTimeout)
	defer cancel()
	if c.correlate {
		opts = append(opts, chain.WithCorrelation())
	}
	return c.chain.SubmitAndWait(ctx, extrinsic, f, opts...)
}

// Watch delivers every record matching f to handler until ctx is done or the
// subscription fails. It returns nil when ctx was cancelled.
func (c *Client) Watch(ctx context.Context, f filter.Filter, handler func(event.Record), opts ...chain.SubscribeOption) error {
	return c.watch(ctx, f, subscriber.NewCallback(handler), opts...)
}

// Records is like Watch but delivers through a buffered channel, which is
// closed when the watch ends. The returned error channel yields the reason the
// watch ended, or nothing when ctx was cancelled, and is then closed.
func (c *Client) Records(ctx context.Context, f filter.Filter, opts ...chain.SubscribeOption) (<-chan event.Record, <-chan error) {
	ch := subscriber.NewChannel(c.buffer)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		if err := c.watch(ctx, f, ch, opts...); err != nil {
			errs <- err
		}
	}()
	return ch.Records(), errs
}

// Fanout serves every route of b from a single event subscription matching
// b.Filter. It blocks like Watch and closes b when it returns.
func (c *Client) Fanout(ctx context.Context, b *subscriber.Broadcast, opts ...chain.SubscribeOption) error {
	return c.watch(ctx, b.Filter(), b, opts...)
}

func (c *Client) watch(ctx context.Context, f filter.Filter, dst subscriber.Subscriber, opts ...chain.SubscribeOption) error {
	sub, err := c.SubscribeEvents(ctx, f, opts...)
	if err != nil {
		dst.Close()
		return err
	}
	defer func() {
		if err := sub.Close(); err != nil {
			c.log.WithError(err).Debug("close watch subscription")
		}
	}()

	err = subscriber.Pump(ctx, sub, dst)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close closes all subscriptions and the connection.
func (c *Client) Close() error {
	return c.chain.Close()
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
