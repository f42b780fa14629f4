package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/hedeqiang/subline/internal/syncutil"
)

const (
	// Notifications for ids without a registered stream are held until the
	// subscribe response has been processed. Both limits bound what a
	// misbehaving node can make us keep.
	maxEarlyPerSubscription = 256
	maxEarlySubscriptions   = 16
)

// WebSocket implements Transport over a single WebSocket connection.
type WebSocket struct {
	endpoint string
	session  string
	conn     *websocket.Conn
	log      *logrus.Entry
	opts     options

	writeMu sync.Mutex
	nextID  atomic.Uint64

	// mu guards the routing tables; they are nil once the session has ended.
	mu      sync.Mutex
	pending map[uint64]chan *jsonRPCMessage
	streams map[string]*Stream
	early   map[string][]json.RawMessage
	err     error

	// subscribing counts Subscribe calls awaiting their response. Early
	// notifications are only kept while it is non-zero.
	subscribing int

	group    *syncutil.Group
	done     chan struct{}
	shutOnce sync.Once
}

// DialWebSocket connects to a ws:// or wss:// endpoint. A failed handshake is
// returned as a *ConnectionError; nothing is retried.
func DialWebSocket(ctx context.Context, endpoint string, opts ...Option) (*WebSocket, error) {
	o := applyOptions(opts)
	session := uuid.NewString()
	log := o.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"session":  session,
	})

	conn, resp, err := o.dialer.DialContext(ctx, endpoint, o.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		log.WithError(err).Debug("dial failed")
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	ws := &WebSocket{
		endpoint: endpoint,
		session:  session,
		conn:     conn,
		log:      log,
		opts:     o,
		pending:  make(map[uint64]chan *jsonRPCMessage),
		streams:  make(map[string]*Stream),
		early:    make(map[string][]json.RawMessage),
		group:    syncutil.NewGroup(context.Background()),
		done:     make(chan struct{}),
	}
	ws.group.Go(ws.readLoop)

	log.Debug("connected")
	return ws, nil
}

// Session returns the id used to tag this connection's log entries.
func (ws *WebSocket) Session() string {
	return ws.session
}

// Call sends a JSON-RPC request and waits for its response.
func (ws *WebSocket) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	id := ws.nextID.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, &CallError{Method: method, ID: id, Err: err}
	}
	ch := make(chan *jsonRPCMessage, 1)

	ws.mu.Lock()
	if ws.pending == nil {
		err := ws.err
		ws.mu.Unlock()
		return nil, &CallError{Method: method, ID: id, Err: err}
	}
	ws.pending[id] = ch
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		delete(ws.pending, id)
		ws.mu.Unlock()
	}()

	ws.log.WithFields(logrus.Fields{"method": method, "id": id}).Debug("call")

	if err := ws.write(newRequest(id, method, params)); err != nil {
		return nil, &CallError{Method: method, ID: id, Err: fmt.Errorf("write: %w", err)}
	}

	select {
	case msg := <-ch:
		return ws.result(method, id, msg)
	case <-ctx.Done():
		return nil, &CallError{Method: method, ID: id, Err: ctx.Err()}
	case <-ws.done:
		// A response read just before the connection failed still counts.
		select {
		case msg := <-ch:
			return ws.result(method, id, msg)
		default:
		}
		return nil, &CallError{Method: method, ID: id, Err: ws.Err()}
	}
}

func (ws *WebSocket) result(method string, id uint64, msg *jsonRPCMessage) (json.RawMessage, error) {
	if msg.Error != nil {
		return nil, &CallError{Method: method, ID: id, Err: msg.Error}
	}
	return msg.Result, nil
}

// Subscribe sends the subscription request and registers a stream for the
// subscription id the node returns.
func (ws *WebSocket) Subscribe(ctx context.Context, method, unsubscribe string, params ...any) (*Stream, error) {
	ws.mu.Lock()
	ws.subscribing++
	ws.mu.Unlock()
	defer ws.subscribed()

	result, err := ws.Call(ctx, method, params...)
	if err != nil {
		return nil, &SubscriptionError{Method: method, Err: err}
	}

	id, err := subscriptionKey(result)
	if err != nil {
		return nil, &SubscriptionError{Method: method, Err: err}
	}

	s := newStream(id, method, func() error {
		return ws.unsubscribe(id, unsubscribe)
	})

	ws.mu.Lock()
	if ws.streams == nil {
		err := ws.err
		ws.mu.Unlock()
		return nil, &SubscriptionError{Method: method, Subscription: id, Err: err}
	}
	ws.streams[id] = s
	backlog := ws.early[id]
	delete(ws.early, id)
	for _, msg := range backlog {
		s.push(msg)
	}
	ws.mu.Unlock()

	ws.log.WithFields(logrus.Fields{
		"method":       method,
		"subscription": id,
		"backlog":      len(backlog),
	}).Debug("subscribed")
	return s, nil
}

// subscribed ends a Subscribe attempt. Once none is outstanding, whatever is
// left in the early buffer belongs to no future stream.
func (ws *WebSocket) subscribed() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.subscribing--
	if ws.subscribing == 0 && len(ws.early) > 0 {
		ws.log.WithField("subscriptions", len(ws.early)).Debug("discarding unclaimed notifications")
		clear(ws.early)
	}
}

func (ws *WebSocket) unsubscribe(id, method string) error {
	ws.mu.Lock()
	delete(ws.streams, id)
	ws.mu.Unlock()

	if method == "" {
		return nil
	}
	select {
	case <-ws.done:
		return nil
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.opts.unsubscribeTimeout)
	defer cancel()
	if _, err := ws.Call(ctx, method, id); err != nil {
		ws.log.WithError(err).WithField("subscription", id).Debug("unsubscribe failed")
		return &SubscriptionError{Method: method, Subscription: id, Err: err}
	}
	return nil
}

// Done is closed when the session ends.
func (ws *WebSocket) Done() <-chan struct{} {
	return ws.done
}

// Err reports why the session ended: ErrClosed after Close, or an error
// wrapping ErrConnectionLost after a read failure.
func (ws *WebSocket) Err() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.err
}

// Close sends a close frame, terminates the connection, and ends every open
// stream. Calling Close on an ended session returns nil.
func (ws *WebSocket) Close() error {
	select {
	case <-ws.done:
		if err := ws.group.Stop(); err != nil {
			ws.log.WithError(err).Debug("read loop ended")
		}
		return nil
	default:
	}

	var result *multierror.Error
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := ws.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		result = multierror.Append(result, fmt.Errorf("transport/ws: close frame: %w", err))
	}
	if err := ws.shutdown(ErrClosed); err != nil {
		result = multierror.Append(result, fmt.Errorf("transport/ws: close: %w", err))
	}
	_ = ws.group.Stop()
	return result.ErrorOrNil()
}

// write sends v as one text frame. The write deadline is per frame and
// independent of any caller's context: once a write fails the connection is
// unusable, so the session ends with ErrConnectionLost.
func (ws *WebSocket) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	if err := ws.conn.SetWriteDeadline(time.Now().Add(ws.opts.writeTimeout)); err != nil {
		return ws.lost(err)
	}
	if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return ws.lost(err)
	}
	return nil
}

func (ws *WebSocket) lost(err error) error {
	cause := fmt.Errorf("%w: %v", ErrConnectionLost, err)
	_ = ws.shutdown(cause)
	return ws.Err()
}

// shutdown ends the session once, recording cause for every pending call and
// open stream.
func (ws *WebSocket) shutdown(cause error) error {
	var err error
	ws.shutOnce.Do(func() {
		ws.mu.Lock()
		ws.err = cause
		streams := ws.streams
		ws.pending = nil
		ws.streams = nil
		ws.early = nil
		ws.mu.Unlock()

		close(ws.done)
		err = ws.conn.Close()

		for id, s := range streams {
			s.end(&SubscriptionError{Method: s.method, Subscription: id, Err: cause})
		}
		ws.log.WithError(cause).Debug("session ended")
	})
	return err
}

// readLoop reads frames until the connection fails and routes each one. It
// returns the failure when the failure ended the session, nil after Close.
// ReadMessage is unblocked by shutdown closing the connection.
func (ws *WebSocket) readLoop(ctx context.Context) error {
	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			_ = ws.shutdown(fmt.Errorf("%w: %v", ErrConnectionLost, err))
			cause := ws.Err()
			if !errors.Is(cause, ErrConnectionLost) {
				return nil
			}
			if ctx.Err() == nil {
				ws.log.WithError(err).Error("connection lost")
			}
			return cause
		}
		ws.dispatch(data)
	}
}

func (ws *WebSocket) dispatch(data []byte) {
	var msg jsonRPCMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		ws.log.WithError(err).Warn("discarding malformed frame")
		return
	}

	switch {
	case msg.isResponse():
		ws.mu.Lock()
		ch, ok := ws.pending[*msg.ID]
		ws.mu.Unlock()
		if !ok {
			ws.log.WithField("id", *msg.ID).Debug("response for unknown request")
			return
		}
		select {
		case ch <- &msg:
		default:
			ws.log.WithField("id", *msg.ID).Warn("duplicate response")
		}

	case msg.isNotification():
		var params notificationParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			ws.log.WithError(err).WithField("method", msg.Method).Warn("discarding malformed notification")
			return
		}
		id, err := subscriptionKey(params.Subscription)
		if err != nil {
			ws.log.WithError(err).WithField("method", msg.Method).Warn("discarding notification")
			return
		}
		ws.route(id, params.Result)
	}
}

func (ws *WebSocket) route(id string, result json.RawMessage) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if s, ok := ws.streams[id]; ok {
		s.push(result)
		return
	}
	if ws.early == nil || ws.subscribing == 0 {
		ws.log.WithField("subscription", id).Debug("dropping notification for unknown subscription")
		return
	}
	backlog, known := ws.early[id]
	if (!known && len(ws.early) >= maxEarlySubscriptions) || len(backlog) >= maxEarlyPerSubscription {
		ws.log.WithField("subscription", id).Debug("dropping notification for unknown subscription")
		return
	}
	ws.early[id] = append(backlog, result)
}
