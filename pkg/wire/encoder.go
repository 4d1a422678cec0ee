package wire

import "encoding/binary"

// Encoder builds a wire encoding by appending to an in-memory buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder whose buffer is pre-sized to size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Bytes returns the encoded bytes accumulated so far.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// PutBool writes a bool as a single 0/1 byte.
func (e *Encoder) PutBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// PutU8 writes one byte.
func (e *Encoder) PutU8(v uint8) {
	e.buf = append(e.buf, v)
}

// PutU16 writes a little-endian u16.
func (e *Encoder) PutU16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// PutU32 writes a little-endian u32.
func (e *Encoder) PutU32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// PutU64 writes a little-endian u64.
func (e *Encoder) PutU64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// PutI32 writes a little-endian two's-complement i32.
func (e *Encoder) PutI32(v int32) {
	e.PutU32(uint32(v))
}

// PutI64 writes a little-endian two's-complement i64.
func (e *Encoder) PutI64(v int64) {
	e.PutU64(uint64(v))
}

// PutTag writes a union discriminant.
func (e *Encoder) PutTag(tag uint32) {
	e.PutU32(tag)
}

// PutLen writes a sequence length prefix.
func (e *Encoder) PutLen(n int) {
	e.PutU64(uint64(n))
}

// PutBytes writes a length-prefixed byte string.
func (e *Encoder) PutBytes(p []byte) {
	e.PutLen(len(p))
	e.buf = append(e.buf, p...)
}

// PutString writes a length-prefixed string.
func (e *Encoder) PutString(s string) {
	e.PutLen(len(s))
	e.buf = append(e.buf, s...)
}

// PutRaw writes p verbatim, without a length prefix.
func (e *Encoder) PutRaw(p []byte) {
	e.buf = append(e.buf, p...)
}
