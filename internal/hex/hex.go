// Package hex encodes and decodes the "0x"-prefixed hex strings used on the
// node RPC surface.
package hex

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingPrefix is returned by Decode for strings without a "0x" prefix.
var ErrMissingPrefix = errors.New("hex: missing 0x prefix")

// Encode returns the hexadecimal encoding of src with "0x" prefix.
func Encode(src []byte) string {
	return "0x" + hex.EncodeToString(src)
}

// Decode decodes a "0x"-prefixed hex string into bytes. An odd number of
// digits is rejected.
func Decode(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, ErrMissingPrefix
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	return b, nil
}

// MustDecode is like Decode but panics on error.
func MustDecode(s string) []byte {
	b, err := Decode(s)
	if err != nil {
		panic(fmt.Sprintf("hex: invalid hex string %q: %v", s, err))
	}
	return b
}

// Equal reports whether two hex strings encode the same bytes, ignoring case.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
