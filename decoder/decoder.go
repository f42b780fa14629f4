// Package decoder turns the raw System.Events storage value carried by a
// storage change notification into event records.
package decoder

import (
	"errors"
	"fmt"

	"github.com/hedeqiang/subline/event"
)

// ErrDecode matches every *DecodeError.
var ErrDecode = errors.New("decoder: decode failed")

// Decoder decodes the events stored for one block.
type Decoder interface {
	// Decode parses data, the storage value observed at block. Records that
	// decode cleanly are returned even when others fail; each failure is
	// reported as a *DecodeError in the returned error.
	Decode(block event.Hash, data []byte) (event.Batch, error)
}

// Func adapts an ordinary function to the Decoder interface.
type Func func(block event.Hash, data []byte) (event.Batch, error)

// Decode calls f(block, data).
func (f Func) Decode(block event.Hash, data []byte) (event.Batch, error) {
	return f(block, data)
}

// DecodeError reports a payload the decoder rejected. Index is the position of
// the offending record in the payload, or -1 when the payload as a whole could
// not be read.
type DecodeError struct {
	Block event.Hash
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decoder: block %s: %v", e.Block.Hex(), e.Err)
	}
	return fmt.Sprintf("decoder: block %s record %d: %v", e.Block.Hex(), e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
