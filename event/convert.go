package event

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HexToHash converts a "0x"-prefixed hex string to a Hash.
// Shorter inputs are left-padded with zeros.
func HexToHash(s string) (Hash, error) {
	b, err := decodeHexBytes(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) > 32 {
		return Hash{}, fmt.Errorf("invalid hash %q: %d bytes", s, len(b))
	}
	var h Hash
	copy(h[32-len(b):], b)
	return h, nil
}

// MustHexToHash is like HexToHash but panics on error.
func MustHexToHash(s string) Hash {
	h, err := HexToHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// ExtrinsicHash returns the blake2b-256 hash of an encoded extrinsic, which is
// the hash a node reports for it.
func ExtrinsicHash(extrinsic []byte) Hash {
	return blake2b.Sum256(extrinsic)
}

// Hex returns the "0x"-prefixed hex encoding of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON decodes a hex string into the hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func decodeHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
