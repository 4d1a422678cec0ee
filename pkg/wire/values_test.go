package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionRoundTrip(t *testing.T) {
	for _, o := range []Option[String]{Some(String("present")), None[String]()} {
		buf, err := Encode(o)
		require.NoError(t, err)
		require.Len(t, buf, o.EncodedSize())

		var got Option[String]
		require.NoError(t, Decode(buf, &got))
		assert.Equal(t, o, got)
	}
}

func TestOptionAbsentIsOneByte(t *testing.T) {
	buf, err := Encode(None[U64]())
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, buf)
}

func TestPointerOptionHelpers(t *testing.T) {
	v := U32(9)
	e := NewEncoder(OptionSize(&v))
	PutOption(e, &v)
	require.Equal(t, OptionSize(&v), e.Len())

	d := NewDecoder(e.Bytes())
	got, err := GetOption[U32](d)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, v, *got)
	require.NoError(t, d.Finish())

	e = NewEncoder(OptionSize[U32](nil))
	PutOption[U32](e, nil)
	d = NewDecoder(e.Bytes())
	got, err = GetOption[U32](d)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSliceRoundTrip(t *testing.T) {
	s := []String{"a", "", "ccc"}
	e := NewEncoder(SliceSize(s))
	PutSlice(e, s)
	require.Equal(t, SliceSize(s), e.Len())

	d := NewDecoder(e.Bytes())
	got, err := GetSlice[String](d)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	require.NoError(t, d.Finish())
}

func TestEmptySliceDecodesNil(t *testing.T) {
	e := NewEncoder(8)
	PutSlice(e, []U16(nil))
	d := NewDecoder(e.Bytes())
	got, err := GetSlice[U16](d)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnitIsZeroBytes(t *testing.T) {
	buf, err := Encode(Unit{})
	require.NoError(t, err)
	assert.Empty(t, buf)

	var u Unit
	require.NoError(t, Decode(nil, &u))
}
