// Package wire implements the binary encoding used on the host/guest
// boundary. The format is deterministic and carries no type information:
// both sides must agree on the expected shape ahead of time.
//
// Encoding rules:
//   - primitives are fixed-width little-endian
//   - byte strings and sequences are length-prefixed (u64) raw bytes
//   - optional values are a one-byte presence flag followed by the payload
//   - tagged unions are a u32 discriminant followed by the active variant's
//     fields in declaration order
//   - tuples are the concatenation of their elements, with no padding
//
// Every value additionally knows its encoded size up front, so callers can
// size allocations before serializing. EncodedSize and Encode must agree
// exactly; a mismatch is an internal-consistency fault and is never
// silently tolerated.
package wire

import "fmt"

// Marshaler is implemented by values that cross the boundary.
type Marshaler interface {
	// EncodedSize returns the exact number of bytes Encode will produce.
	EncodedSize() int

	// Encode appends the value's encoding to e.
	Encode(e *Encoder)
}

// Unmarshaler is implemented by values that can be decoded from the wire.
type Unmarshaler interface {
	Decode(d *Decoder) error
}

// SizeMismatchError reports disagreement between a value's EncodedSize and
// the bytes its Encode actually produced.
type SizeMismatchError struct {
	Computed int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("wire: computed size is %d but encoding produced %d bytes", e.Computed, e.Actual)
}

// Encode serializes v into a freshly allocated buffer sized by EncodedSize.
func Encode(v Marshaler) ([]byte, error) {
	size := v.EncodedSize()
	e := NewEncoder(size)
	v.Encode(e)
	if e.Len() != size {
		return nil, &SizeMismatchError{Computed: size, Actual: e.Len()}
	}
	return e.Bytes(), nil
}

// Decode parses buf into v and requires the whole buffer to be consumed.
func Decode(buf []byte, v Unmarshaler) error {
	d := NewDecoder(buf)
	if err := v.Decode(d); err != nil {
		return err
	}
	return d.Finish()
}
