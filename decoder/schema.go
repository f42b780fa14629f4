package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/hedeqiang/subline/event"
)

// Schema maps event kinds to the Go type their fields must decode into.
type Schema struct {
	mu    sync.RWMutex
	types map[event.Kind]reflect.Type
}

// NewSchema creates an empty event schema registry.
func NewSchema() *Schema {
	return &Schema{
		types: make(map[event.Kind]reflect.Type),
	}
}

// Register records the field layout of kind. prototype is a struct value or
// pointer whose json tags describe the fields, e.g.
//
//	s.Register(event.MustParseKind("Balances.Transfer"), BalancesTransfer{})
func (s *Schema) Register(kind event.Kind, prototype any) error {
	if kind.IsZero() {
		return fmt.Errorf("decoder: register: empty kind")
	}
	t := reflect.TypeOf(prototype)
	if t == nil {
		return fmt.Errorf("decoder: register %s: nil prototype", kind)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("decoder: register %s: prototype must be a struct, got %s", kind, t.Kind())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[kind] = t
	return nil
}

// Has reports whether the schema contains a definition for kind.
func (s *Schema) Has(kind event.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[kind]
	return ok
}

// Kinds returns the registered kinds in pallet, name order.
func (s *Schema) Kinds() []event.Kind {
	s.mu.RLock()
	kinds := make([]event.Kind, 0, len(s.types))
	for k := range s.types {
		kinds = append(kinds, k)
	}
	s.mu.RUnlock()

	sort.Slice(kinds, func(i, j int) bool {
		return event.CompareKind(kinds[i], kinds[j]) < 0
	})
	return kinds
}

// Validate checks that fields decode into the type registered for kind,
// rejecting unknown fields. Unregistered kinds pass unchecked.
func (s *Schema) Validate(kind event.Kind, fields json.RawMessage) error {
	s.mu.RLock()
	t, ok := s.types[kind]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if len(fields) == 0 {
		return fmt.Errorf("%s: missing fields", kind)
	}

	dec := json.NewDecoder(bytes.NewReader(fields))
	dec.DisallowUnknownFields()
	if err := dec.Decode(reflect.New(t).Interface()); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}
