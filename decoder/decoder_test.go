package decoder

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedeqiang/subline/event"
)

type balancesTransfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

var (
	transferKind = event.MustParseKind("Balances.Transfer")
	block        = event.MustHexToHash("0xaa")
	xt           = event.MustHexToHash("0xbb")
)

func TestJSONDecode(t *testing.T) {
	dec := NewJSON(nil)
	require.NoError(t, dec.Schema().Register(transferKind, balancesTransfer{}))

	data := []byte(`[
		{"phase":"initialization","event":"System.NewAccount","fields":{"account":"bob"}},
		{"phase":"applyExtrinsic","extrinsicIndex":1,"extrinsicHash":"` + xt.Hex() + `",
		 "event":"Balances.Transfer","fields":{"from":"alice","to":"bob","amount":10000}}
	]`)

	batch, err := dec.Decode(block, data)
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	assert.Equal(t, block, batch.Block)

	first := batch.Records[0]
	assert.Equal(t, event.PhaseInitialization, first.Phase)
	assert.Nil(t, first.Extrinsic)

	rec := batch.OfKind(transferKind)
	require.Len(t, rec, 1)
	assert.Equal(t, block, rec[0].Block)
	assert.Equal(t, uint32(1), rec[0].ExtrinsicIndex)
	require.NotNil(t, rec[0].Extrinsic)
	assert.Equal(t, xt, *rec[0].Extrinsic)

	var tr balancesTransfer
	require.NoError(t, rec[0].Bind(&tr))
	assert.Equal(t, balancesTransfer{From: "alice", To: "bob", Amount: 10000}, tr)
}

func TestJSONDecodePartialFailure(t *testing.T) {
	dec := NewJSON(NewSchema())
	require.NoError(t, dec.Schema().Register(transferKind, &balancesTransfer{}))

	data := []byte(`[
		{"event":"Balances.Transfer","fields":{"from":"a","to":"b","amount":1,"memo":"x"}},
		{"event":"nodot"},
		{"event":"Balances.Transfer","fields":{"from":"a","to":"b","amount":2}}
	]`)

	batch, err := dec.Decode(block, data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	require.Equal(t, 1, batch.Len())
	assert.JSONEq(t, `{"from":"a","to":"b","amount":2}`, string(batch.Records[0].Fields))

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.Index)
	assert.Equal(t, block, de.Block)
}

func TestJSONDecodeMalformedPayload(t *testing.T) {
	batch, err := NewJSON(nil).Decode(block, []byte{0x04, 0x00})
	assert.True(t, batch.IsEmpty())

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, -1, de.Index)
}

func TestSchemaRegister(t *testing.T) {
	s := NewSchema()
	assert.Error(t, s.Register(event.Kind{}, balancesTransfer{}))
	assert.Error(t, s.Register(transferKind, nil))
	assert.Error(t, s.Register(transferKind, 5))

	require.NoError(t, s.Register(event.MustParseKind("System.ExtrinsicSuccess"), struct{}{}))
	require.NoError(t, s.Register(transferKind, balancesTransfer{}))
	assert.True(t, s.Has(transferKind))
	assert.Equal(t, []event.Kind{transferKind, event.MustParseKind("System.ExtrinsicSuccess")}, s.Kinds())

	assert.NoError(t, s.Validate(event.MustParseKind("Other.Thing"), nil))
	assert.Error(t, s.Validate(transferKind, nil))
}

func TestRawDecode(t *testing.T) {
	batch, err := NewRaw().Decode(block, []byte{0xde, 0xad})
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, RawKind, batch.Records[0].Kind)

	var s string
	require.NoError(t, json.Unmarshal(batch.Records[0].Fields, &s))
	assert.Equal(t, "0xdead", s)
}

func TestFunc(t *testing.T) {
	var d Decoder = Func(func(b event.Hash, _ []byte) (event.Batch, error) {
		return event.Batch{Block: b}, nil
	})
	batch, err := d.Decode(block, nil)
	require.NoError(t, err)
	assert.Equal(t, block, batch.Block)
}
