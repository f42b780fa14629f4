// Package filter selects the event records a subscription delivers.
package filter

import (
	"github.com/hedeqiang/subline/event"
)

// Filter determines whether a record matches a given criteria.
type Filter interface {
	Match(rec event.Record) bool
}

// Func adapts an ordinary function to the Filter interface.
type Func func(rec event.Record) bool

// Match calls f(rec).
func (f Func) Match(rec event.Record) bool {
	return f(rec)
}

// Any matches every record.
func Any() Filter {
	return Func(func(event.Record) bool { return true })
}

// KindFilter matches records of any of the configured kinds.
type KindFilter struct {
	kinds map[event.Kind]struct{}
}

// Kinds creates a filter matching the given kinds.
func Kinds(kinds ...event.Kind) *KindFilter {
	m := make(map[event.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		m[k] = struct{}{}
	}
	return &KindFilter{kinds: m}
}

// Match reports whether the record's kind is in the filter set.
func (f *KindFilter) Match(rec event.Record) bool {
	_, ok := f.kinds[rec.Kind]
	return ok
}

// Pallet matches every record emitted by the named pallet.
func Pallet(name string) Filter {
	return Func(func(rec event.Record) bool { return rec.Kind.Pallet == name })
}

// ExtrinsicFilter matches records correlated to one of the given extrinsic
// hashes. Uncorrelated records never match.
type ExtrinsicFilter struct {
	hashes map[event.Hash]struct{}
}

// Extrinsic creates a filter matching records produced by the given extrinsics.
func Extrinsic(hashes ...event.Hash) *ExtrinsicFilter {
	m := make(map[event.Hash]struct{}, len(hashes))
	for _, h := range hashes {
		m[h] = struct{}{}
	}
	return &ExtrinsicFilter{hashes: m}
}

// Match reports whether the record carries one of the filter's hashes.
func (f *ExtrinsicFilter) Match(rec event.Record) bool {
	if rec.Extrinsic == nil {
		return false
	}
	_, ok := f.hashes[*rec.Extrinsic]
	return ok
}

// Phase matches records deposited in phase p.
func Phase(p event.Phase) Filter {
	return Func(func(rec event.Record) bool { return rec.Phase == p })
}

// ExtrinsicIndex matches records emitted while applying the extrinsic at
// position i of its block.
func ExtrinsicIndex(i uint32) Filter {
	return Func(func(rec event.Record) bool {
		return rec.Phase == event.PhaseApplyExtrinsic && rec.ExtrinsicIndex == i
	})
}
