// Package rpctest runs an in-process JSON-RPC node for tests. It speaks
// WebSocket (calls and subscriptions) and plain HTTP POST (calls only).
package rpctest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// ErrNoReply makes a handler swallow the request without responding.
var ErrNoReply = errors.New("rpctest: no reply")

// Error is a JSON-RPC error object returned by a handler.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpctest: %d %s", e.Code, e.Message)
}

// Handler serves one method. Returning *Error sends an error response,
// ErrNoReply sends nothing, any other error fails the test.
type Handler func(params json.RawMessage) (any, error)

type request struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  struct {
		Subscription string `json:"subscription"`
		Result       any    `json:"result"`
	} `json:"params"`
}

// Server is a fake node.
type Server struct {
	t   testing.TB
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []string
	peers    map[*peer]struct{}
	subs     map[string]*peer
	nextSub  int

	subscriptionSetup map[string][]any

	subscribed chan string
}

type peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *peer) writeJSON(v any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(v)
}

// NewServer starts a fake node that is shut down when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		t:                 t,
		handlers:          make(map[string]Handler),
		peers:             make(map[*peer]struct{}),
		subs:              make(map[string]*peer),
		subscriptionSetup: make(map[string][]any),
		subscribed:        make(chan string, 64),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

// URL returns the ws:// endpoint.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// HTTPURL returns the http:// endpoint.
func (s *Server) HTTPURL() string {
	return s.srv.URL
}

// Handle registers a handler for method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// HandleSubscription registers method as a subscription method answering
// with a fresh subscription id, and unsubscribe as its cancel method. Each
// value in before is pushed as a notification ahead of the subscribe
// response, as a node racing its own reply would.
func (s *Server) HandleSubscription(method, unsubscribe string, before ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[unsubscribe] = func(params json.RawMessage) (any, error) {
		var ids []string
		if err := json.Unmarshal(params, &ids); err != nil || len(ids) != 1 {
			return nil, &Error{Code: -32602, Message: "invalid params"}
		}
		s.mu.Lock()
		_, ok := s.subs[ids[0]]
		delete(s.subs, ids[0])
		s.mu.Unlock()
		return ok, nil
	}
	s.subscriptionSetup[method] = before
}

// Subscribed delivers the id of every subscription created.
func (s *Server) Subscribed() <-chan string {
	return s.subscribed
}

// Notify pushes result to the subscriber of id under method.
func (s *Server) Notify(method, id string, result any) error {
	s.mu.Lock()
	p, ok := s.subs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("rpctest: no subscription %q", id)
	}
	return p.writeJSON(newNotification(method, id, result))
}

// Push sends a notification for id to every connected client whether or not
// the subscription is still open, like a push the node had already queued
// when the unsubscribe arrived.
func (s *Server) Push(method, id string, result any) error {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		if err := p.writeJSON(newNotification(method, id, result)); err != nil {
			return err
		}
	}
	return nil
}

// Calls returns the methods received so far, in arrival order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// DropConnections closes every WebSocket connection without a close frame.
func (s *Server) DropConnections() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()
	for _, p := range peers {
		p.conn.Close()
	}
}

// Close drops all connections and stops the server.
func (s *Server) Close() {
	s.DropConnections()
	s.srv.Close()
}

func newNotification(method, id string, result any) notification {
	var n notification
	n.JSONRPC = "2.0"
	n.Method = method
	n.Params.Subscription = id
	n.Params.Result = result
	return n
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWebSocket(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, ok := s.answer(nil, req)
	if !ok {
		http.Error(w, "no reply", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn}

	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		for id, owner := range s.subs {
			if owner == p {
				delete(s.subs, id)
			}
		}
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp, ok := s.answer(p, req)
		if !ok {
			continue
		}
		if err := p.writeJSON(resp); err != nil {
			return
		}
	}
}

// answer runs the handler for req. ok is false when no response is due.
func (s *Server) answer(p *peer, req request) (resp response, ok bool) {
	resp = response{JSONRPC: "2.0", ID: req.ID}

	s.mu.Lock()
	s.calls = append(s.calls, req.Method)
	h, known := s.handlers[req.Method]
	before, isSub := s.subscriptionSetup[req.Method]
	s.mu.Unlock()

	if isSub {
		if p == nil {
			resp.Error = &Error{Code: -32601, Message: "subscriptions need a WebSocket"}
			return resp, true
		}
		resp.Result = s.subscribe(p, req.Method, before)
		return resp, true
	}
	if !known || h == nil {
		resp.Error = &Error{Code: -32601, Message: "Method not found"}
		return resp, true
	}

	result, err := h(req.Params)
	var rpcErr *Error
	switch {
	case err == nil:
		resp.Result = result
	case errors.As(err, &rpcErr):
		resp.Error = rpcErr
	case errors.Is(err, ErrNoReply):
		return resp, false
	default:
		s.t.Errorf("rpctest: handler %s: %v", req.Method, err)
		resp.Error = &Error{Code: -32603, Message: err.Error()}
	}
	return resp, true
}

func (s *Server) subscribe(p *peer, method string, before []any) string {
	s.mu.Lock()
	s.nextSub++
	id := fmt.Sprintf("sub-%d", s.nextSub)
	s.subs[id] = p
	s.mu.Unlock()

	for _, v := range before {
		if err := p.writeJSON(newNotification(notificationMethod(method), id, v)); err != nil {
			s.t.Errorf("rpctest: early notification: %v", err)
		}
	}

	select {
	case s.subscribed <- id:
	default:
	}
	return id
}

// notificationMethod derives the notification method name from the
// subscribe method, e.g. state_subscribeStorage -> state_storage.
func notificationMethod(method string) string {
	pallet, name, ok := strings.Cut(method, "_subscribe")
	if !ok {
		return method
	}
	if name == "" {
		return pallet + "_subscription"
	}
	return pallet + "_" + strings.ToLower(name[:1]) + name[1:]
}
