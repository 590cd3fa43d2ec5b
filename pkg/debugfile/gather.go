package debugfile

import "fmt"

// Gather collects the leaves matched by a wildcard query into one dense
// array. Each index position of the matched keys becomes a leading
// dimension spanning that position's min..max; valueShape is the shape of
// every matched value and forms the trailing dimensions. Positions without
// a match stay zero.
//
// For example, gathering "frame.*.mic[0]" over frames 3..5, each holding a
// 4-sample vector, with valueShape [4] yields a [3 1 4] array.
func Gather(v *View, target any, valueShape []int, kind Kind) (Value, error) {
	matches, err := v.Collect(target, SelectOptions{IndexKeys: true})
	if err != nil {
		return Value{}, err
	}
	if len(matches) == 0 {
		return Value{}, fmt.Errorf("%w: no match for %v", ErrPathNotFound, target)
	}

	ndim := len(matches[0].Indices)
	mins := append([]int{}, matches[0].Indices...)
	maxs := append([]int{}, matches[0].Indices...)
	for _, m := range matches {
		if len(m.Indices) != ndim {
			return Value{}, fmt.Errorf("%w: keys %v and %v have different index counts", ErrShapeMismatch, matches[0].Path, m.Path)
		}
		for i, x := range m.Indices {
			mins[i] = min(mins[i], x)
			maxs[i] = max(maxs[i], x)
		}
	}

	shape := make([]int, 0, ndim+len(valueShape))
	for i := range mins {
		shape = append(shape, maxs[i]-mins[i]+1)
	}
	shape = append(shape, valueShape...)
	block := shapeSize(valueShape)
	size := shapeSize(shape)

	var (
		ints      []int64
		floats    []float64
		complexes []complex128
	)
	switch kind {
	case KindInt:
		ints = make([]int64, size)
	case KindFloat:
		floats = make([]float64, size)
	case KindComplex:
		complexes = make([]complex128, size)
	default:
		return Value{}, fmt.Errorf("%w: gather kind %v", ErrUnsupportedType, kind)
	}

	for _, m := range matches {
		if m.Scope != nil {
			return Value{}, fmt.Errorf("%w: %s", ErrNotALeaf, m.Path)
		}
		if m.Value.Len() != block {
			return Value{}, fmt.Errorf("%w: %s has %d elements, want %d", ErrShapeMismatch, m.Path, m.Value.Len(), block)
		}
		off := 0
		for i, x := range m.Indices {
			off = off*shape[i] + (x - mins[i])
		}
		off *= block
		switch kind {
		case KindInt:
			if m.Value.Kind() != KindInt {
				return Value{}, fmt.Errorf("%w: %s is %v, want int", ErrUnsupportedType, m.Path, m.Value.Kind())
			}
			copy(ints[off:], m.Value.ints)
		case KindFloat:
			if m.Value.Kind() == KindComplex {
				return Value{}, fmt.Errorf("%w: %s is complex, want float", ErrUnsupportedType, m.Path)
			}
			copy(floats[off:], m.Value.Floats())
		case KindComplex:
			copy(complexes[off:], m.Value.Complexes())
		}
	}

	switch kind {
	case KindInt:
		return IntArray(shape, ints)
	case KindFloat:
		return FloatArray(shape, floats)
	default:
		return ComplexArray(shape, complexes)
	}
}
