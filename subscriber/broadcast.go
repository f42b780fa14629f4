package subscriber

import (
	"sync"

	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/filter"
)

type route struct {
	match filter.Filter
	sub   Subscriber
}

// Broadcast serves several subscribers from one event subscription. Each
// subscriber may carry its own filter; Filter reports the union the upstream
// subscription has to match.
type Broadcast struct {
	mu     sync.RWMutex
	routes []route
}

// NewBroadcast creates a broadcast delivering every record to each of subs.
func NewBroadcast(subs ...Subscriber) *Broadcast {
	b := &Broadcast{}
	for _, sub := range subs {
		b.Route(nil, sub)
	}
	return b
}

// Add registers a subscriber that receives every record.
func (b *Broadcast) Add(sub Subscriber) {
	b.Route(nil, sub)
}

// Route registers a subscriber that receives only records matching f. A nil
// f matches everything.
func (b *Broadcast) Route(f filter.Filter, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes = append(b.routes, route{match: f, sub: sub})
}

// Filter returns a filter matching any record at least one route wants.
func (b *Broadcast) Filter() filter.Filter {
	b.mu.RLock()
	defer b.mu.RUnlock()

	fs := make([]filter.Filter, 0, len(b.routes))
	for _, r := range b.routes {
		if r.match == nil {
			return filter.Any()
		}
		fs = append(fs, r.match)
	}
	if len(fs) == 0 {
		return filter.Any()
	}
	return filter.AnyOf(fs...)
}

// Send delivers rec to every route whose filter matches, in registration
// order. The lock is not held while delivering, so Close can unblock a Send
// stuck on a full channel.
func (b *Broadcast) Send(rec event.Record) {
	b.mu.RLock()
	routes := b.routes
	b.mu.RUnlock()

	for _, r := range routes {
		if r.match == nil || r.match.Match(rec) {
			r.sub.Send(rec)
		}
	}
}

// Close shuts down all registered subscribers.
func (b *Broadcast) Close() {
	b.mu.Lock()
	routes := b.routes
	b.routes = nil
	b.mu.Unlock()

	for _, r := range routes {
		r.sub.Close()
	}
}

// Len returns the number of registered subscribers.
func (b *Broadcast) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.routes)
}
