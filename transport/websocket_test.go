package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/subline/internal/rpctest"
)

func dialTest(t *testing.T, node *rpctest.Server) *WebSocket {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, err := DialWebSocket(ctx, node.URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func echoParams(params json.RawMessage) (any, error) {
	return params, nil
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "ws://127.0.0.1:1", connErr.Endpoint)
}

func TestDialUnsupportedScheme(t *testing.T) {
	_, err := Dial(context.Background(), "tcp://127.0.0.1:9944")
	assert.ErrorIs(t, err, ErrConnection)
}

func TestCallCorrelatesResponse(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	ws := dialTest(t, node)

	result, err := ws.Call(context.Background(), "echo", "hello", 7)
	require.NoError(t, err)
	assert.JSONEq(t, `["hello",7]`, string(result))
}

func TestCallsObserveIssueOrder(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	ws := dialTest(t, node)

	for i := 0; i < 20; i++ {
		result, err := ws.Call(context.Background(), "echo", i)
		require.NoError(t, err)
		assert.JSONEq(t, fmt.Sprintf("[%d]", i), string(result))
	}

	calls := node.Calls()
	require.Len(t, calls, 20)
}

func TestConcurrentCallsEachGetTheirOwnResponse(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	ws := dialTest(t, node)

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			result, err := ws.Call(context.Background(), "echo", i)
			if err == nil && string(result) != fmt.Sprintf("[%d]", i) {
				err = fmt.Errorf("call %d got %s", i, result)
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestCallRemoteError(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("author_submitExtrinsic", func(json.RawMessage) (any, error) {
		return nil, &rpctest.Error{Code: 1010, Message: "Invalid Transaction"}
	})
	ws := dialTest(t, node)

	_, err := ws.Call(context.Background(), "author_submitExtrinsic", "0x00")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCall)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 1010, rpcErr.Code)
	assert.Equal(t, "Invalid Transaction", rpcErr.Message)
}

func TestCallUnknownMethod(t *testing.T) {
	node := rpctest.NewServer(t)
	ws := dialTest(t, node)

	_, err := ws.Call(context.Background(), "nope")
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestCallNullResult(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("chain_getBlockHash", func(json.RawMessage) (any, error) {
		return nil, nil
	})
	ws := dialTest(t, node)

	result, err := ws.Call(context.Background(), "chain_getBlockHash", 99)
	require.NoError(t, err)
	assert.True(t, IsNull(result))
}

func TestCallHonoursContext(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("hang", func(json.RawMessage) (any, error) {
		return nil, rpctest.ErrNoReply
	})
	ws := dialTest(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ws.Call(ctx, "hang")
	assert.ErrorIs(t, err, ErrCall)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectionDropFailsPendingCall(t *testing.T) {
	node := rpctest.NewServer(t)
	arrived := make(chan struct{})
	node.Handle("hang", func(json.RawMessage) (any, error) {
		close(arrived)
		return nil, rpctest.ErrNoReply
	})
	ws := dialTest(t, node)

	go func() {
		<-arrived
		node.DropConnections()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := ws.Call(ctx, "hang")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCall)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)

	<-ws.Done()
	assert.ErrorIs(t, ws.Err(), ErrConnectionLost)
}

func TestExpiredContextLeavesSessionUsable(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	ws := dialTest(t, node)

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := ws.Call(expired, "echo", 1)
	assert.ErrorIs(t, err, ErrCall)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	result, err := ws.Call(context.Background(), "echo", 2)
	require.NoError(t, err)
	assert.JSONEq(t, `[2]`, string(result))
	assert.NoError(t, ws.Err())
	assert.Equal(t, []string{"echo"}, node.Calls())
}

func TestShortCallDeadlineDoesNotPoisonWrites(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	ws := dialTest(t, node)

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Microsecond)
		_, _ = ws.Call(ctx, "echo", i)
		cancel()
	}

	_, err := ws.Call(context.Background(), "echo", "after")
	require.NoError(t, err)
	select {
	case <-ws.Done():
		t.Fatalf("session ended: %v", ws.Err())
	default:
	}
}

func TestWriteFailureEndsSession(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	ws, err := DialWebSocket(context.Background(), node.URL(), WithWriteTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.NoError(t, ws.conn.NetConn().Close())

	_, err = ws.Call(context.Background(), "echo")
	assert.ErrorIs(t, err, ErrCall)
	assert.ErrorIs(t, err, ErrConnectionLost)

	select {
	case <-ws.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session still open after a failed write")
	}
	assert.ErrorIs(t, ws.Err(), ErrConnectionLost)
}

func TestCallAfterClose(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	ws := dialTest(t, node)

	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())

	_, err := ws.Call(context.Background(), "echo")
	assert.ErrorIs(t, err, ErrCall)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscriptionDeliversInOrder(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	ws := dialTest(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := ws.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage", []string{"0x26aa"})
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, node.Notify("state_storage", s.ID(), i))
	}
	for i := 0; i < 5; i++ {
		msg, err := s.Next(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, fmt.Sprint(i), string(msg))
	}
}

func TestSubscriptionKeepsNotificationsThatBeatTheResponse(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage", "first", "second")
	ws := dialTest(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := ws.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, node.Notify("state_storage", s.ID(), "third"))

	for _, want := range []string{"first", "second", "third"} {
		msg, err := s.Next(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, fmt.Sprintf("%q", want), string(msg))
	}
}

func TestSubscribeThenCloseYieldsNothing(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage", "early")
	ws := dialTest(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := ws.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.Contains(t, node.Calls(), "state_unsubscribeStorage")

	select {
	case <-s.Done():
	default:
		t.Fatal("stream not done after Close")
	}
}

func TestSubscriptionEndsOnConnectionDrop(t *testing.T) {
	node := rpctest.NewServer(t)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	ws := dialTest(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := ws.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage")
	require.NoError(t, err)

	require.NoError(t, node.Notify("state_storage", s.ID(), "last"))
	msg, err := s.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"last"`, string(msg))

	node.DropConnections()

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, ErrSubscription)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.NoError(t, s.Close())
}

func TestSubscribeRejected(t *testing.T) {
	node := rpctest.NewServer(t)
	ws := dialTest(t, node)

	_, err := ws.Subscribe(context.Background(), "state_subscribeStorage", "state_unsubscribeStorage")
	assert.ErrorIs(t, err, ErrSubscription)
	assert.ErrorIs(t, err, ErrCall)
}

func TestSubscriptionKey(t *testing.T) {
	id, err := subscriptionKey(json.RawMessage(`"abc"`))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	id, err = subscriptionKey(json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	_, err = subscriptionKey(json.RawMessage(`null`))
	assert.Error(t, err)
}

func TestLateNotificationsForClosedSubscriptionsAreDiscarded(t *testing.T) {
	node := rpctest.NewServer(t)
	node.Handle("echo", echoParams)
	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage")
	ws := dialTest(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < maxEarlySubscriptions+4; i++ {
		s, err := ws.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage")
		require.NoError(t, err)
		require.NoError(t, s.Close())
		require.NoError(t, node.Push("state_storage", s.ID(), "late"))
	}

	// The echo response is read after every late notification.
	_, err := ws.Call(ctx, "echo")
	require.NoError(t, err)

	ws.mu.Lock()
	held := len(ws.early)
	ws.mu.Unlock()
	assert.Zero(t, held)

	node.HandleSubscription("state_subscribeStorage", "state_unsubscribeStorage", "first")
	s, err := ws.Subscribe(ctx, "state_subscribeStorage", "state_unsubscribeStorage")
	require.NoError(t, err)
	defer s.Close()

	msg, err := s.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"first"`, string(msg))
}
