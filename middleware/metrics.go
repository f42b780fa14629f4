package middleware

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hedeqiang/subline/event"
)

// Metrics collects basic counters for delivered records.
type Metrics struct {
	delivered atomic.Uint64
	dropped   atomic.Uint64
	undecoded atomic.Uint64

	mu     sync.Mutex
	byKind map[event.Kind]uint64
}

// KindCount is the number of delivered records of one kind.
type KindCount struct {
	Kind  event.Kind
	Count uint64
}

// NewMetrics creates a metrics collection middleware.
func NewMetrics() *Metrics {
	return &Metrics{byKind: make(map[event.Kind]uint64)}
}

// Wrap decorates the handler with metrics collection.
func (m *Metrics) Wrap(next Handler) Handler {
	return func(rec event.Record) *event.Record {
		result := next(rec)
		if result == nil {
			m.dropped.Add(1)
			return nil
		}
		m.delivered.Add(1)
		m.mu.Lock()
		m.byKind[result.Kind]++
		m.mu.Unlock()
		return result
	}
}

// DecodeFailed counts a payload item the decoder rejected. It has the
// signature of a subscription's decode error hook.
func (m *Metrics) DecodeFailed(error) {
	m.undecoded.Add(1)
}

// Delivered returns the number of records that reached the consumer.
func (m *Metrics) Delivered() uint64 {
	return m.delivered.Load()
}

// Dropped returns the number of records dropped by inner middleware.
func (m *Metrics) Dropped() uint64 {
	return m.dropped.Load()
}

// Undecoded returns the number of decode failures reported.
func (m *Metrics) Undecoded() uint64 {
	return m.undecoded.Load()
}

// ByKind returns delivered counts per kind, ordered by pallet then name.
func (m *Metrics) ByKind() []KindCount {
	m.mu.Lock()
	out := make([]KindCount, 0, len(m.byKind))
	for k, n := range m.byKind {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return event.CompareKind(out[i].Kind, out[j].Kind) < 0
	})
	return out
}
