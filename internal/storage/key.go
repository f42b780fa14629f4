// Package storage builds Substrate storage keys.
package storage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Twox128 hashes data with two seeded xxHash64 rounds, little-endian, as the
// runtime does for pallet and item prefixes.
func Twox128(data []byte) []byte {
	out := make([]byte, 16)
	for seed := uint64(0); seed < 2; seed++ {
		d := xxhash.NewWithSeed(seed)
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[seed*8:], d.Sum64())
	}
	return out
}

// PlainKey returns the key of a plain (non-map) storage item.
func PlainKey(pallet, item string) []byte {
	key := make([]byte, 0, 32)
	key = append(key, Twox128([]byte(pallet))...)
	return append(key, Twox128([]byte(item))...)
}

// SystemEvents returns the key under which the runtime stores the events of
// the current block.
func SystemEvents() []byte {
	return PlainKey("System", "Events")
}
