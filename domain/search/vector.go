// Package search provides the vector similarity search domain: the vector
// codec, query filters, result rows and the collaborator contracts of the
// query path.
package search

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector is an embedding of fixed dimension.
type Vector []float32

// EncodeVector renders v in the canonical text form "[x1,x2,...]" with six
// decimals per component. Stores parse this form into their native vector type.
func EncodeVector(v Vector) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', 6, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVector decodes JSON array text into a Vector. It fails with
// ErrMalformedVector when the text is not JSON, not an array, empty, or holds
// a non-numeric or non-finite component.
func ParseVector(text string) (Vector, error) {
	var raw any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: vector must be JSON array text, e.g. '[0.1, 0.2]'", ErrMalformedVector)
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: vector JSON must decode to a non-empty list", ErrMalformedVector)
	}
	v := make(Vector, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: component %d is not a number", ErrMalformedVector, i)
		}
		x := float32(f)
		if math.IsInf(float64(x), 0) || math.IsNaN(float64(x)) {
			return nil, fmt.Errorf("%w: component %d is not finite", ErrMalformedVector, i)
		}
		v[i] = x
	}
	return v, nil
}

// DecodeVector parses text and checks it has exactly dim components.
func DecodeVector(text string, dim int) (Vector, error) {
	v, err := ParseVector(text)
	if err != nil {
		return nil, err
	}
	if err := CheckDimension(v, dim); err != nil {
		return nil, err
	}
	return v, nil
}

// SanitizeVector decodes user supplied vector text and re-encodes it in the
// canonical form.
func SanitizeVector(text string, dim int) (string, error) {
	v, err := DecodeVector(text, dim)
	if err != nil {
		return "", err
	}
	return EncodeVector(v), nil
}

// CheckDimension returns a DimensionMismatchError when len(v) differs from dim.
func CheckDimension(v Vector, dim int) error {
	if len(v) != dim {
		return NewDimensionMismatchError(dim, len(v))
	}
	return nil
}

// Float64s returns the components widened to float64.
func (v Vector) Float64s() []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
