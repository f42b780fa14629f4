package filter

import (
	"github.com/hedeqiang/subline/event"
)

// CompositeMode determines how child filters are combined.
type CompositeMode int

const (
	// And requires all child filters to match.
	And CompositeMode = iota
	// Or requires at least one child filter to match.
	Or
)

// CompositeFilter combines multiple filters using AND or OR logic.
type CompositeFilter struct {
	mode    CompositeMode
	filters []Filter
}

// NewCompositeFilter creates a composite filter with the given mode and children.
// Nil children are ignored.
func NewCompositeFilter(mode CompositeMode, filters ...Filter) *CompositeFilter {
	kept := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			kept = append(kept, f)
		}
	}
	return &CompositeFilter{mode: mode, filters: kept}
}

// AllOf is a convenience constructor for AND composition.
func AllOf(filters ...Filter) *CompositeFilter {
	return NewCompositeFilter(And, filters...)
}

// AnyOf is a convenience constructor for OR composition.
func AnyOf(filters ...Filter) *CompositeFilter {
	return NewCompositeFilter(Or, filters...)
}

// Match applies the composite logic to the record. An empty composite
// matches everything.
func (f *CompositeFilter) Match(rec event.Record) bool {
	if len(f.filters) == 0 {
		return true
	}

	switch f.mode {
	case And:
		for _, child := range f.filters {
			if !child.Match(rec) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range f.filters {
			if child.Match(rec) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Not inverts f.
func Not(f Filter) Filter {
	return Func(func(rec event.Record) bool { return !f.Match(rec) })
}
