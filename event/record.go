// Package event defines the runtime event records delivered by event subscriptions.
package event

import (
	"cmp"
	"encoding/json"
	"fmt"
	"strings"
)

// Hash represents a 32-byte block or extrinsic hash.
type Hash [32]byte

// Phase is the point of block execution at which an event was deposited.
type Phase uint8

const (
	// PhaseApplyExtrinsic marks events emitted while applying an extrinsic.
	PhaseApplyExtrinsic Phase = iota
	// PhaseFinalization marks events emitted during block finalization.
	PhaseFinalization
	// PhaseInitialization marks events emitted during block initialization.
	PhaseInitialization
)

func (p Phase) String() string {
	switch p {
	case PhaseApplyExtrinsic:
		return "applyExtrinsic"
	case PhaseFinalization:
		return "finalization"
	case PhaseInitialization:
		return "initialization"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// ParsePhase parses the textual form produced by Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "", "applyExtrinsic":
		return PhaseApplyExtrinsic, nil
	case "finalization":
		return PhaseFinalization, nil
	case "initialization":
		return PhaseInitialization, nil
	default:
		return 0, fmt.Errorf("event: unknown phase %q", s)
	}
}

// Kind identifies an event by pallet and variant, e.g. Balances.Transfer.
type Kind struct {
	Pallet string
	Name   string
}

// ParseKind accepts "Pallet.Name" or "Pallet::Name".
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	sep := "."
	if strings.Contains(s, "::") {
		sep = "::"
	}
	pallet, name, ok := strings.Cut(s, sep)
	if !ok || pallet == "" || name == "" {
		return Kind{}, fmt.Errorf("event: malformed kind %q", s)
	}
	return Kind{Pallet: pallet, Name: name}, nil
}

// MustParseKind is like ParseKind but panics on error.
func MustParseKind(s string) Kind {
	k, err := ParseKind(s)
	if err != nil {
		panic(err)
	}
	return k
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return k.Pallet + "." + k.Name
}

// IsZero reports whether the kind is unset.
func (k Kind) IsZero() bool {
	return k.Pallet == "" && k.Name == ""
}

// CompareKind orders kinds by pallet, then by name.
func CompareKind(a, b Kind) int {
	if c := cmp.Compare(a.Pallet, b.Pallet); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

// Record is a single runtime event observed through a subscription.
type Record struct {
	// Block is the hash of the block whose storage change carried the event.
	Block Hash

	// Phase is the execution phase that deposited the event.
	Phase Phase

	// ExtrinsicIndex is the position of the extrinsic in the block.
	// Only meaningful when Phase is PhaseApplyExtrinsic.
	ExtrinsicIndex uint32

	// Extrinsic is the hash of the extrinsic that produced the event, when the
	// decoder can supply it. Nil means the event is not correlated.
	Extrinsic *Hash

	// Kind names the event.
	Kind Kind

	// Fields holds the decoded event fields as JSON.
	Fields json.RawMessage
}

// Bind decodes the record fields into out.
//
//	var t struct {
//	    From   string `json:"from"`
//	    To     string `json:"to"`
//	    Amount uint64 `json:"amount"`
//	}
//	rec.Bind(&t)
func (r Record) Bind(out any) error {
	if len(r.Fields) == 0 {
		return fmt.Errorf("event: %s has no fields", r.Kind)
	}
	if err := json.Unmarshal(r.Fields, out); err != nil {
		return fmt.Errorf("event: bind %s: %w", r.Kind, err)
	}
	return nil
}

// String implements fmt.Stringer.
func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s block=%s phase=%s", r.Kind, r.Block.Hex(), r.Phase)
	if r.Phase == PhaseApplyExtrinsic {
		fmt.Fprintf(&b, " extrinsic=%d", r.ExtrinsicIndex)
	}
	if r.Extrinsic != nil {
		fmt.Fprintf(&b, " hash=%s", r.Extrinsic.Hex())
	}
	if len(r.Fields) > 0 {
		fmt.Fprintf(&b, " fields=%s", r.Fields)
	}
	return b.String()
}
