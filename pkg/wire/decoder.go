package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeError reports a malformed or truncated wire encoding.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode failed at offset %d: %s", e.Offset, e.Reason)
}

// Decoder consumes a wire encoding from a byte buffer. The first failure
// sticks: all subsequent reads return zero values and Err reports the
// original problem.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder returns a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Err returns the first decoding error, if any.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of unconsumed bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Finish returns an error if decoding failed or if input bytes are left
// over. A matched encoder/decoder pair always consumes the whole buffer.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if n := d.Remaining(); n != 0 {
		return &DecodeError{Offset: d.off, Reason: fmt.Sprintf("%d trailing bytes", n)}
	}
	return nil
}

func (d *Decoder) fail(reason string) {
	if d.err == nil {
		d.err = &DecodeError{Offset: d.off, Reason: reason}
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.Remaining() < n {
		d.fail(fmt.Sprintf("need %d bytes, have %d", n, d.Remaining()))
		return nil
	}
	p := d.buf[d.off : d.off+n]
	d.off += n
	return p
}

// GetBool reads a 0/1 byte.
func (d *Decoder) GetBool() bool {
	p := d.take(1)
	if p == nil {
		return false
	}
	switch p[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		d.off--
		d.fail(fmt.Sprintf("invalid bool byte 0x%02x", p[0]))
		return false
	}
}

// GetU8 reads one byte.
func (d *Decoder) GetU8() uint8 {
	p := d.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

// GetU16 reads a little-endian u16.
func (d *Decoder) GetU16() uint16 {
	p := d.take(2)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(p)
}

// GetU32 reads a little-endian u32.
func (d *Decoder) GetU32() uint32 {
	p := d.take(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

// GetU64 reads a little-endian u64.
func (d *Decoder) GetU64() uint64 {
	p := d.take(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

// GetI32 reads a little-endian two's-complement i32.
func (d *Decoder) GetI32() int32 { return int32(d.GetU32()) }

// GetI64 reads a little-endian two's-complement i64.
func (d *Decoder) GetI64() int64 { return int64(d.GetU64()) }

// GetTag reads a union discriminant.
func (d *Decoder) GetTag() uint32 { return d.GetU32() }

// GetLen reads a sequence length prefix and validates it against the
// remaining input, so a corrupt prefix cannot drive a huge allocation.
func (d *Decoder) GetLen() int {
	n := d.GetU64()
	if d.err != nil {
		return 0
	}
	if n > math.MaxInt || int(n) > d.Remaining() {
		d.fail(fmt.Sprintf("length prefix %d exceeds %d remaining bytes", n, d.Remaining()))
		return 0
	}
	return int(n)
}

// GetBytes reads a length-prefixed byte string. The result is a copy.
func (d *Decoder) GetBytes() []byte {
	n := d.GetLen()
	p := d.take(n)
	if d.err != nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, p)
	return out
}

// GetString reads a length-prefixed string.
func (d *Decoder) GetString() string {
	n := d.GetLen()
	p := d.take(n)
	if d.err != nil {
		return ""
	}
	return string(p)
}

// GetRaw reads n bytes without a length prefix. The result aliases the
// decoder's buffer.
func (d *Decoder) GetRaw(n int) []byte {
	return d.take(n)
}
