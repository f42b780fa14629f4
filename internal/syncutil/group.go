// Package syncutil provides concurrency utilities.
package syncutil

import (
	"context"
	"sync"
)

// Group runs goroutines that share a cancellation scope. The first non-nil
// error returned by a goroutine cancels the scope and is kept for Stop.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	errOnce sync.Once
	err     error
}

// NewGroup creates a new Group derived from the given context.
func NewGroup(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the group's context.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go launches fn within the group. fn should return once ctx is cancelled.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(g.ctx); err != nil {
			g.errOnce.Do(func() {
				g.err = err
				g.cancel()
			})
		}
	}()
}

// Stop cancels the group context, waits for all goroutines to finish and
// returns the first error any of them reported. It is safe to call more than
// once.
func (g *Group) Stop() error {
	g.cancel()
	g.wg.Wait()
	return g.err
}
