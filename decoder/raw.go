package decoder

import (
	"encoding/json"

	"github.com/hedeqiang/subline/event"
	"github.com/hedeqiang/subline/internal/hex"
)

// RawKind is the kind given to the single record produced by Raw.
var RawKind = event.Kind{Pallet: "System", Name: "Events"}

// Raw is a pass-through decoder. It wraps the whole storage value in one
// record whose Fields hold the value as a hex string.
type Raw struct{}

// NewRaw creates a new raw pass-through decoder.
func NewRaw() *Raw {
	return &Raw{}
}

// Decode wraps data in a single record.
func (r *Raw) Decode(block event.Hash, data []byte) (event.Batch, error) {
	fields, err := json.Marshal(hex.Encode(data))
	if err != nil {
		return event.Batch{Block: block}, &DecodeError{Block: block, Index: -1, Err: err}
	}
	return event.Batch{
		Block: block,
		Records: []event.Record{{
			Block:  block,
			Phase:  event.PhaseFinalization,
			Kind:   RawKind,
			Fields: fields,
		}},
	}, nil
}
