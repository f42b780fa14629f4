package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hedeqiang/subline/event"
)

var (
	transfer  = event.MustParseKind("Balances.Transfer")
	deposit   = event.MustParseKind("Balances.Deposit")
	newAcct   = event.MustParseKind("System.NewAccount")
	hashA     = event.MustHexToHash("0x0a")
	hashB     = event.MustHexToHash("0x0b")
	recordFor = func(k event.Kind, xt *event.Hash, idx uint32) event.Record {
		return event.Record{Kind: k, Extrinsic: xt, ExtrinsicIndex: idx}
	}
)

func TestKindsExclusive(t *testing.T) {
	f := Kinds(transfer)
	assert.True(t, f.Match(recordFor(transfer, nil, 0)))
	assert.False(t, f.Match(recordFor(deposit, nil, 0)))
	assert.False(t, f.Match(recordFor(newAcct, nil, 0)))
	assert.False(t, Kinds().Match(recordFor(transfer, nil, 0)))
}

func TestPallet(t *testing.T) {
	f := Pallet("Balances")
	assert.True(t, f.Match(recordFor(transfer, nil, 0)))
	assert.True(t, f.Match(recordFor(deposit, nil, 0)))
	assert.False(t, f.Match(recordFor(newAcct, nil, 0)))
}

func TestExtrinsic(t *testing.T) {
	f := Extrinsic(hashA)
	assert.True(t, f.Match(recordFor(transfer, &hashA, 0)))
	assert.False(t, f.Match(recordFor(transfer, &hashB, 0)))
	assert.False(t, f.Match(recordFor(transfer, nil, 0)))
}

func TestPhaseAndIndex(t *testing.T) {
	rec := recordFor(transfer, nil, 2)
	assert.True(t, Phase(event.PhaseApplyExtrinsic).Match(rec))
	assert.False(t, Phase(event.PhaseFinalization).Match(rec))
	assert.True(t, ExtrinsicIndex(2).Match(rec))
	assert.False(t, ExtrinsicIndex(1).Match(rec))

	rec.Phase = event.PhaseFinalization
	assert.False(t, ExtrinsicIndex(2).Match(rec))
}

func TestComposite(t *testing.T) {
	rec := recordFor(transfer, &hashA, 0)

	assert.True(t, AllOf(Kinds(transfer), Extrinsic(hashA)).Match(rec))
	assert.False(t, AllOf(Kinds(transfer), Extrinsic(hashB)).Match(rec))
	assert.True(t, AnyOf(Kinds(deposit), Extrinsic(hashA)).Match(rec))
	assert.False(t, AnyOf(Kinds(deposit), Extrinsic(hashB)).Match(rec))
	assert.True(t, AllOf().Match(rec))
	assert.True(t, AnyOf(nil).Match(rec))
	assert.False(t, Not(Kinds(transfer)).Match(rec))
	assert.True(t, Any().Match(rec))
}
