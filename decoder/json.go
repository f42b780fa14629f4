package decoder

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/hedeqiang/subline/event"
)

// wireRecord is one element of the JSON array the node stores under
// System.Events when the runtime exposes events as JSON.
type wireRecord struct {
	Phase          string          `json:"phase"`
	ExtrinsicIndex uint32          `json:"extrinsicIndex"`
	ExtrinsicHash  *event.Hash     `json:"extrinsicHash,omitempty"`
	Event          string          `json:"event"`
	Fields         json.RawMessage `json:"fields,omitempty"`
}

// JSON decodes storage values holding a JSON array of event records:
//
//	[{"phase":"applyExtrinsic","extrinsicIndex":1,"extrinsicHash":"0x..",
//	  "event":"Balances.Transfer","fields":{"from":"..","to":"..","amount":10}}]
//
// Field payloads of kinds registered in the schema are validated strictly.
type JSON struct {
	schema *Schema
}

// NewJSON creates a JSON decoder. A nil schema validates nothing.
func NewJSON(schema *Schema) *JSON {
	if schema == nil {
		schema = NewSchema()
	}
	return &JSON{schema: schema}
}

// Schema returns the decoder's schema so callers can register kinds.
func (d *JSON) Schema() *Schema {
	return d.schema
}

// Decode parses data. Each record that fails is skipped and reported; the rest
// are returned in payload order.
func (d *JSON) Decode(block event.Hash, data []byte) (event.Batch, error) {
	batch := event.Batch{Block: block}

	var wire []json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return batch, &DecodeError{Block: block, Index: -1, Err: err}
	}

	var errs *multierror.Error
	for i, raw := range wire {
		rec, err := d.record(block, raw)
		if err != nil {
			errs = multierror.Append(errs, &DecodeError{Block: block, Index: i, Err: err})
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, errs.ErrorOrNil()
}

func (d *JSON) record(block event.Hash, raw json.RawMessage) (event.Record, error) {
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return event.Record{}, err
	}
	kind, err := event.ParseKind(w.Event)
	if err != nil {
		return event.Record{}, err
	}
	phase, err := event.ParsePhase(w.Phase)
	if err != nil {
		return event.Record{}, err
	}
	if err := d.schema.Validate(kind, w.Fields); err != nil {
		return event.Record{}, fmt.Errorf("fields: %w", err)
	}
	return event.Record{
		Block:          block,
		Phase:          phase,
		ExtrinsicIndex: w.ExtrinsicIndex,
		Extrinsic:      w.ExtrinsicHash,
		Kind:           kind,
		Fields:         w.Fields,
	}, nil
}
