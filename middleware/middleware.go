// Package middleware provides interceptors for the record delivery pipeline of
// event subscriptions.
package middleware

import (
	"github.com/hedeqiang/subline/event"
)

// Handler processes a record and returns a (possibly modified) record.
// Returning nil signals that the record should be dropped.
type Handler func(rec event.Record) *event.Record

// Middleware wraps a Handler, adding cross-cutting behavior (logging, metrics, etc.).
type Middleware interface {
	// Wrap returns a new Handler that decorates the given inner handler.
	Wrap(next Handler) Handler
}

// Func adapts an ordinary function to the Middleware interface.
type Func func(next Handler) Handler

// Wrap calls f(next).
func (f Func) Wrap(next Handler) Handler {
	return f(next)
}

// Chain composes multiple middlewares into a single Handler, applying them
// in the order provided (first middleware is outermost).
func Chain(handler Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		handler = mws[i].Wrap(handler)
	}
	return handler
}

// Identity returns its record unchanged. It terminates a chain.
func Identity(rec event.Record) *event.Record {
	return &rec
}
