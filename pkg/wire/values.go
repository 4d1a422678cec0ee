package wire

// Wrappers giving Go primitives the Marshaler/Unmarshaler contract, so they
// can take part in tuples and generic containers.

// Bool is a wire bool.
type Bool bool

func (v Bool) EncodedSize() int        { return 1 }
func (v Bool) Encode(e *Encoder)       { e.PutBool(bool(v)) }
func (v *Bool) Decode(d *Decoder) error {
	*v = Bool(d.GetBool())
	return d.Err()
}

// U16 is a wire u16.
type U16 uint16

func (v U16) EncodedSize() int  { return 2 }
func (v U16) Encode(e *Encoder) { e.PutU16(uint16(v)) }
func (v *U16) Decode(d *Decoder) error {
	*v = U16(d.GetU16())
	return d.Err()
}

// U32 is a wire u32.
type U32 uint32

func (v U32) EncodedSize() int  { return 4 }
func (v U32) Encode(e *Encoder) { e.PutU32(uint32(v)) }
func (v *U32) Decode(d *Decoder) error {
	*v = U32(d.GetU32())
	return d.Err()
}

// U64 is a wire u64.
type U64 uint64

func (v U64) EncodedSize() int  { return 8 }
func (v U64) Encode(e *Encoder) { e.PutU64(uint64(v)) }
func (v *U64) Decode(d *Decoder) error {
	*v = U64(d.GetU64())
	return d.Err()
}

// I32 is a wire i32.
type I32 int32

func (v I32) EncodedSize() int  { return 4 }
func (v I32) Encode(e *Encoder) { e.PutI32(int32(v)) }
func (v *I32) Decode(d *Decoder) error {
	*v = I32(d.GetI32())
	return d.Err()
}

// Bytes is a length-prefixed wire byte string.
type Bytes []byte

func (v Bytes) EncodedSize() int  { return 8 + len(v) }
func (v Bytes) Encode(e *Encoder) { e.PutBytes(v) }
func (v *Bytes) Decode(d *Decoder) error {
	*v = d.GetBytes()
	return d.Err()
}

// String is a length-prefixed wire string.
type String string

func (v String) EncodedSize() int  { return 8 + len(v) }
func (v String) Encode(e *Encoder) { e.PutString(string(v)) }
func (v *String) Decode(d *Decoder) error {
	*v = String(d.GetString())
	return d.Err()
}

// Unit is the zero-byte value.
type Unit struct{}

func (Unit) EncodedSize() int        { return 0 }
func (Unit) Encode(*Encoder)         {}
func (*Unit) Decode(*Decoder) error  { return nil }

// Tuple is the concatenation of its elements' encodings, with no padding.
// Decoding a tuple is done elementwise by the caller, which knows the
// expected shape.
type Tuple []Marshaler

func (t Tuple) EncodedSize() int {
	size := 0
	for _, v := range t {
		size += v.EncodedSize()
	}
	return size
}

func (t Tuple) Encode(e *Encoder) {
	for _, v := range t {
		v.Encode(e)
	}
}

// Option is an optional value: a one-byte presence flag followed by the
// payload when present.
type Option[T Marshaler] struct {
	Set   bool
	Value T
}

// Some returns a present Option.
func Some[T Marshaler](v T) Option[T] {
	return Option[T]{Set: true, Value: v}
}

// None returns an absent Option.
func None[T Marshaler]() Option[T] {
	return Option[T]{}
}

func (o Option[T]) EncodedSize() int {
	if !o.Set {
		return 1
	}
	return 1 + o.Value.EncodedSize()
}

func (o Option[T]) Encode(e *Encoder) {
	e.PutBool(o.Set)
	if o.Set {
		o.Value.Encode(e)
	}
}

func (o *Option[T]) Decode(d *Decoder) error {
	var zero T
	o.Value = zero
	o.Set = d.GetBool()
	if d.Err() != nil || !o.Set {
		return d.Err()
	}
	u, ok := any(&o.Value).(Unmarshaler)
	if !ok {
		d.fail("option payload type is not decodable")
		return d.Err()
	}
	return u.Decode(d)
}

// OptionSize returns the encoded size of an optional value represented as a
// nil-able pointer.
func OptionSize[T Marshaler](v *T) int {
	if v == nil {
		return 1
	}
	return 1 + (*v).EncodedSize()
}

// PutOption encodes an optional value represented as a nil-able pointer.
func PutOption[T Marshaler](e *Encoder, v *T) {
	e.PutBool(v != nil)
	if v != nil {
		(*v).Encode(e)
	}
}

// GetOption decodes an optional value into a nil-able pointer.
func GetOption[T any, PT interface {
	*T
	Unmarshaler
}](d *Decoder) (*T, error) {
	if !d.GetBool() {
		return nil, d.Err()
	}
	var v T
	if err := PT(&v).Decode(d); err != nil {
		return nil, err
	}
	return &v, nil
}

// SliceSize returns the encoded size of a length-prefixed sequence.
func SliceSize[T Marshaler](s []T) int {
	size := 8
	for _, v := range s {
		size += v.EncodedSize()
	}
	return size
}

// PutSlice encodes a length-prefixed sequence.
func PutSlice[T Marshaler](e *Encoder, s []T) {
	e.PutLen(len(s))
	for _, v := range s {
		v.Encode(e)
	}
}

// GetSlice decodes a length-prefixed sequence.
func GetSlice[T any, PT interface {
	*T
	Unmarshaler
}](d *Decoder) ([]T, error) {
	n := d.GetLen()
	if d.Err() != nil {
		return nil, d.Err()
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]T, n)
	for i := range out {
		if err := PT(&out[i]).Decode(d); err != nil {
			return nil, err
		}
	}
	return out, nil
}
