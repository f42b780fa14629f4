package subline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/subline/config"
	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
	"github.com/hedeqiang/subline/internal/hex"
	"github.com/hedeqiang/subline/internal/rpctest"
	"github.com/hedeqiang/subline/internal/storage"
	"github.com/hedeqiang/subline/subscriber"
)

var transferKind = event.MustParseKind("Balances.Transfer")

func eventsChange(t *testing.T, records string) map[string]any {
	t.Helper()
	require.True(t, json.Valid([]byte(records)))
	return map[string]any{
		"block":   "0x01",
		"changes": [][]any{{hex.Encode(storage.SystemEvents()), hex.Encode([]byte(records))}},
	}
}

func connect(t *testing.T, node *rpctest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := Connect(context.Background(), node.URL(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnectFailure(t *testing.T) {
	_, err := Connect(context.Background(), "ws://127.0.0.1:1")
	assert.ErrorIs(t, err, ErrConnection)

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestBlockHashDefaultTimeout(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("chain_getBlockHash", func(json.RawMessage) (any, error) {
		return nil, rpctest.ErrNoReply
	})
	c := connect(t, node, WithCallTimeout(50*time.Millisecond))

	_, _, err := c.BlockHash(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCall)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitAndWaitConfigCorrelation(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")

	xt := []byte{0x01, 0x02, 0x03}
	ours := event.ExtrinsicHash(xt)
	node.Handle("author_submitExtrinsic", func(json.RawMessage) (any, error) {
		id := <-node.Subscribed()
		err := node.Notify("state_storage", id, eventsChange(t, `[
			{"extrinsicIndex":1,"event":"Balances.Transfer","fields":{"amount":1}},
			{"extrinsicIndex":2,"extrinsicHash":"`+ours.Hex()+`","event":"Balances.Transfer","fields":{"amount":2}}
		]`))
		return ours.Hex(), err
	})

	cfg := config.Default()
	cfg.Correlate = true
	c := connect(t, node, WithConfig(cfg))

	rec, err := c.SubmitAndWait(context.Background(), xt, filter.Kinds(transferKind))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rec.ExtrinsicIndex)
}

func TestSubmitAndWaitTimeout(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	node.Handle("author_submitExtrinsic", func(json.RawMessage) (any, error) {
		return "0x01", nil
	})
	c := connect(t, node, WithWaitTimeout(50*time.Millisecond))

	_, err := c.SubmitAndWait(context.Background(), []byte{0x01}, filter.Kinds(transferKind))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecords(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	c := connect(t, node, WithBuffer(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	records, errs := c.Records(ctx, filter.Pallet("Balances"))

	var id string
	select {
	case id = <-node.Subscribed():
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription")
	}
	require.NoError(t, node.Notify("state_storage", id, eventsChange(t, `[
		{"event":"System.ExtrinsicSuccess"},
		{"event":"Balances.Transfer","fields":{"amount":1}},
		{"event":"Balances.Deposit","fields":{"amount":2}}
	]`)))

	var kinds []string
	for len(kinds) < 2 {
		select {
		case rec := <-records:
			kinds = append(kinds, rec.Kind.String())
		case <-time.After(5 * time.Second):
			t.Fatal("records not delivered")
		}
	}
	assert.Equal(t, []string{"Balances.Transfer", "Balances.Deposit"}, kinds)

	cancel()
	for range records {
	}
	assert.NoError(t, <-errs)
}

func TestRecordsCancelWithoutDraining(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	c := connect(t, node, WithBuffer(1))

	ctx, cancel := context.WithCancel(context.Background())
	_, errs := c.Records(ctx, nil)

	id := <-node.Subscribed()
	for i := 0; i < 3; i++ {
		require.NoError(t, node.Notify("state_storage", id, eventsChange(t, `[{"event":"Balances.Transfer"}]`)))
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err, ok := <-errs:
		assert.NoError(t, err)
		if ok {
			_, ok = <-errs
		}
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("watch still running after cancel")
	}
	assert.Contains(t, node.Calls(), "state_unsubscribeStorage")
}

func TestFanout(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	c := connect(t, node)

	transfers := make(chan event.Record, 4)
	system := make(chan event.Record, 4)
	b := subscriber.NewBroadcast()
	b.Route(filter.Kinds(transferKind), subscriber.NewCallback(func(rec event.Record) { transfers <- rec }))
	b.Route(filter.Pallet("System"), subscriber.NewCallback(func(rec event.Record) { system <- rec }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Fanout(ctx, b) }()

	id := <-node.Subscribed()
	require.NoError(t, node.Notify("state_storage", id, eventsChange(t, `[
		{"event":"System.ExtrinsicSuccess"},
		{"event":"Treasury.Deposit","fields":{"value":5}},
		{"event":"Balances.Transfer","fields":{"amount":1}}
	]`)))

	select {
	case rec := <-transfers:
		assert.Equal(t, transferKind, rec.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("transfer not routed")
	}
	select {
	case rec := <-system:
		assert.Equal(t, "System.ExtrinsicSuccess", rec.Kind.String())
	case <-time.After(5 * time.Second):
		t.Fatal("system event not routed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("fanout did not return")
	}
	assert.Empty(t, transfers)
	assert.Empty(t, system)
	assert.Zero(t, b.Len())
}

func TestWatchEndsOnConnectionLoss(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	c := connect(t, node)

	go func() {
		<-node.Subscribed()
		node.DropConnections()
	}()

	err := c.Watch(context.Background(), nil, func(event.Record) {})
	assert.ErrorIs(t, err, ErrSubscription)
	assert.ErrorIs(t, err, ErrConnectionLost)
}
