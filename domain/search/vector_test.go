package search

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVector(t *testing.T) {
	assert.Equal(t, "[0.100000,-2.500000,0.000000]", EncodeVector(Vector{0.1, -2.5, 0}))
	assert.Equal(t, "[]", EncodeVector(nil))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	dim := 64
	v := make(Vector, dim)
	for i := range v {
		v[i] = float32(math.Sin(float64(i)*0.37)) * 3.2
	}

	decoded, err := DecodeVector(EncodeVector(v), dim)
	require.NoError(t, err)
	require.Len(t, decoded, dim)
	for i := range v {
		assert.InDelta(t, v[i], decoded[i], 1e-6, "component %d", i)
	}
}

func TestParseVector_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       "not json",
		"object":         `{"a":1}`,
		"empty list":     "[]",
		"string members": `["a","b"]`,
		"null member":    "[0.1,null]",
		"scalar":         "0.5",
		"overflow":       "[1e300]",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVector(text)
			require.ErrorIs(t, err, ErrMalformedVector)
		})
	}
}

func TestDecodeVector_DimensionMismatch(t *testing.T) {
	_, err := DecodeVector("[0.1,0.2]", 3)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	var dimErr *DimensionMismatchError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected())
	assert.Equal(t, 2, dimErr.Got())
}

func TestSanitizeVector(t *testing.T) {
	out, err := SanitizeVector(" [1, 0.5 ,0] ", 3)
	require.NoError(t, err)
	assert.Equal(t, "[1.000000,0.500000,0.000000]", out)
}

func TestVector_Clone(t *testing.T) {
	v := Vector{1, 2}
	c := v.Clone()
	c[0] = 9
	assert.Equal(t, float32(1), v[0])
	assert.Equal(t, []float64{1, 2}, v.Float64s())
}
