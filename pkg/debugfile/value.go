package debugfile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the element type of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindComplex:
		return "complex"
	default:
		return "invalid"
	}
}

// ParseKind parses the names returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int":
		return KindInt, nil
	case "float", "":
		return KindFloat, nil
	case "complex":
		return KindComplex, nil
	}
	return KindInvalid, fmt.Errorf("%w: kind %q", ErrUnsupportedType, s)
}

// Value is a leaf value: a scalar or a rectangular row-major array whose
// elements all share one Kind. Only the slice matching the kind is set.
// The zero Value is invalid.
type Value struct {
	kind      Kind
	shape     []int
	ints      []int64
	floats    []float64
	complexes []complex128
}

func (Value) isLeaf() {}

// IntScalar returns an integer scalar.
func IntScalar(v int64) Value { return Value{kind: KindInt, ints: []int64{v}} }

// FloatScalar returns a float scalar.
func FloatScalar(v float64) Value { return Value{kind: KindFloat, floats: []float64{v}} }

// ComplexScalar returns a complex scalar.
func ComplexScalar(v complex128) Value {
	return Value{kind: KindComplex, complexes: []complex128{v}}
}

// IntArray returns an integer array of the given shape.
func IntArray(shape []int, data []int64) (Value, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return Value{}, err
	}
	return Value{kind: KindInt, shape: append([]int{}, shape...), ints: append([]int64{}, data...)}, nil
}

// FloatArray returns a float array of the given shape.
func FloatArray(shape []int, data []float64) (Value, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return Value{}, err
	}
	return Value{kind: KindFloat, shape: append([]int{}, shape...), floats: append([]float64{}, data...)}, nil
}

// ComplexArray returns a complex array of the given shape.
func ComplexArray(shape []int, data []complex128) (Value, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return Value{}, err
	}
	return Value{kind: KindComplex, shape: append([]int{}, shape...), complexes: append([]complex128{}, data...)}, nil
}

// Zeros returns a zero-filled float array of the given shape.
func Zeros(shape []int) Value {
	return Value{kind: KindFloat, shape: append([]int{}, shape...), floats: make([]float64, shapeSize(shape))}
}

func checkShape(shape []int, n int) error {
	if shape == nil {
		return fmt.Errorf("%w: array needs a shape", ErrShapeMismatch)
	}
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, shape)
		}
	}
	if size := shapeSize(shape); size != n {
		return fmt.Errorf("%w: %d elements for dimensions %v", ErrShapeMismatch, n, shape)
	}
	return nil
}

func shapeSize(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Kind returns the element kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// IsScalar reports whether v is a scalar.
func (v Value) IsScalar() bool { return v.kind != KindInvalid && v.shape == nil }

// Shape returns a copy of the array shape, or nil for scalars.
func (v Value) Shape() []int {
	if v.shape == nil {
		return nil
	}
	return append([]int{}, v.shape...)
}

// Len returns the number of elements (1 for scalars).
func (v Value) Len() int {
	switch v.kind {
	case KindInt:
		return len(v.ints)
	case KindFloat:
		return len(v.floats)
	case KindComplex:
		return len(v.complexes)
	}
	return 0
}

// Int64 returns the value of an integer scalar.
func (v Value) Int64() (int64, bool) {
	if !v.IsScalar() || v.kind != KindInt {
		return 0, false
	}
	return v.ints[0], true
}

// Float64 returns the value of an integer or float scalar as a float64.
func (v Value) Float64() (float64, bool) {
	if !v.IsScalar() {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		return float64(v.ints[0]), true
	case KindFloat:
		return v.floats[0], true
	}
	return 0, false
}

// Complex128 returns the value of any scalar as a complex128.
func (v Value) Complex128() (complex128, bool) {
	if !v.IsScalar() {
		return 0, false
	}
	return v.complexAt(0), true
}

// Ints returns the elements of an integer value, flattened row-major.
func (v Value) Ints() []int64 {
	if v.kind != KindInt {
		return nil
	}
	return append([]int64{}, v.ints...)
}

// Floats returns the elements as float64, flattened row-major. Complex
// values return nil.
func (v Value) Floats() []float64 {
	switch v.kind {
	case KindInt:
		out := make([]float64, len(v.ints))
		for i, x := range v.ints {
			out[i] = float64(x)
		}
		return out
	case KindFloat:
		return append([]float64{}, v.floats...)
	}
	return nil
}

// Complexes returns the elements as complex128, flattened row-major.
func (v Value) Complexes() []complex128 {
	out := make([]complex128, v.Len())
	for i := range out {
		out[i] = v.complexAt(i)
	}
	return out
}

func (v Value) complexAt(i int) complex128 {
	switch v.kind {
	case KindInt:
		return complex(float64(v.ints[i]), 0)
	case KindFloat:
		return complex(v.floats[i], 0)
	case KindComplex:
		return v.complexes[i]
	}
	return 0
}

// At returns the scalar element at the given array indices.
func (v Value) At(idx ...int) (Value, error) {
	if v.IsScalar() {
		if len(idx) == 0 {
			return v, nil
		}
		return Value{}, fmt.Errorf("%w: cannot index a scalar", ErrShapeMismatch)
	}
	if len(idx) != len(v.shape) {
		return Value{}, fmt.Errorf("%w: %d indices for %d dimensions", ErrShapeMismatch, len(idx), len(v.shape))
	}
	flat := 0
	for i, x := range idx {
		if x < 0 || x >= v.shape[i] {
			return Value{}, fmt.Errorf("%w: index %d out of range for dimension %d of size %d", ErrShapeMismatch, x, i, v.shape[i])
		}
		flat = flat*v.shape[i] + x
	}
	switch v.kind {
	case KindInt:
		return IntScalar(v.ints[flat]), nil
	case KindFloat:
		return FloatScalar(v.floats[flat]), nil
	default:
		return ComplexScalar(v.complexes[flat]), nil
	}
}

// Equal reports whether v and o have the same kind, shape and elements.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || (v.shape == nil) != (o.shape == nil) || len(v.shape) != len(o.shape) {
		return false
	}
	for i := range v.shape {
		if v.shape[i] != o.shape[i] {
			return false
		}
	}
	switch v.kind {
	case KindInt:
		return equalSlices(v.ints, o.ints)
	case KindFloat:
		return equalSlices(v.floats, o.floats)
	case KindComplex:
		return equalSlices(v.complexes, o.complexes)
	}
	return true
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Interface returns v as plain Go data: int64, float64 or string (complex)
// scalars, and nested []any for arrays. This is the form used for JSON and
// YAML output.
func (v Value) Interface() any {
	if !v.IsValid() {
		return nil
	}
	if v.IsScalar() {
		return v.elem(0)
	}
	if len(v.shape) == 0 {
		return []any{}
	}
	pos := 0
	return v.nest(v.shape, &pos)
}

func (v Value) nest(shape []int, pos *int) []any {
	out := make([]any, shape[0])
	for i := range out {
		if len(shape) == 1 {
			out[i] = v.elem(*pos)
			*pos++
			continue
		}
		out[i] = v.nest(shape[1:], pos)
	}
	return out
}

func (v Value) elem(i int) any {
	switch v.kind {
	case KindInt:
		return v.ints[i]
	case KindFloat:
		return v.floats[i]
	default:
		return formatComplex(v.complexes[i])
	}
}

func formatComplex(c complex128) string {
	s := strconv.FormatComplex(c, 'g', -1, 128)
	return strings.Replace(s, "i)", "j)", 1)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// MarshalYAML implements the yaml InterfaceMarshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	if v.IsScalar() {
		return fmt.Sprint(v.elem(0))
	}
	return fmt.Sprint(v.Interface())
}
