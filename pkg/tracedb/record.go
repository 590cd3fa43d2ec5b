package tracedb

import (
	"fmt"

	"github.com/audiotesttools/att/pkg/debugfile"
)

// segRecord is one path segment. Index segments set X.
type segRecord struct {
	N string `msgpack:"n,omitempty"`
	I int    `msgpack:"i,omitempty"`
	X bool   `msgpack:"x,omitempty"`
}

// leafRecord is the stored form of one leaf. Complex elements are split
// into Re and Im.
type leafRecord struct {
	Path   []segRecord `msgpack:"p"`
	Kind   uint8       `msgpack:"k"`
	Scalar bool        `msgpack:"s,omitempty"`
	Shape  []int       `msgpack:"sh,omitempty"`
	Ints   []int64     `msgpack:"iv,omitempty"`
	Floats []float64   `msgpack:"fv,omitempty"`
	Re     []float64   `msgpack:"re,omitempty"`
	Im     []float64   `msgpack:"im,omitempty"`
}

func newLeafRecord(p debugfile.Path, v debugfile.Value) *leafRecord {
	rec := &leafRecord{
		Path:   make([]segRecord, len(p)),
		Kind:   uint8(v.Kind()),
		Scalar: v.IsScalar(),
		Shape:  v.Shape(),
	}
	for i, s := range p {
		if s.IsIndex() {
			rec.Path[i] = segRecord{I: s.Index(), X: true}
		} else {
			rec.Path[i] = segRecord{N: s.Name()}
		}
	}
	switch v.Kind() {
	case debugfile.KindInt:
		rec.Ints = v.Ints()
	case debugfile.KindFloat:
		rec.Floats = v.Floats()
	case debugfile.KindComplex:
		cs := v.Complexes()
		rec.Re = make([]float64, len(cs))
		rec.Im = make([]float64, len(cs))
		for i, c := range cs {
			rec.Re[i], rec.Im[i] = real(c), imag(c)
		}
	}
	return rec
}

func (r *leafRecord) decode() (debugfile.Path, debugfile.Value, error) {
	p := make(debugfile.Path, len(r.Path))
	for i, s := range r.Path {
		if s.X {
			p[i] = debugfile.Index(s.I)
		} else {
			p[i] = debugfile.Name(s.N)
		}
	}

	kind := debugfile.Kind(r.Kind)
	if r.Scalar {
		switch {
		case kind == debugfile.KindInt && len(r.Ints) == 1:
			return p, debugfile.IntScalar(r.Ints[0]), nil
		case kind == debugfile.KindFloat && len(r.Floats) == 1:
			return p, debugfile.FloatScalar(r.Floats[0]), nil
		case kind == debugfile.KindComplex && len(r.Re) == 1 && len(r.Im) == 1:
			return p, debugfile.ComplexScalar(complex(r.Re[0], r.Im[0])), nil
		}
		return nil, debugfile.Value{}, fmt.Errorf("corrupt %v scalar record", kind)
	}

	shape := r.Shape
	if shape == nil {
		shape = []int{0}
	}
	var (
		v   debugfile.Value
		err error
	)
	switch kind {
	case debugfile.KindInt:
		v, err = debugfile.IntArray(shape, r.Ints)
	case debugfile.KindFloat:
		v, err = debugfile.FloatArray(shape, r.Floats)
	case debugfile.KindComplex:
		if len(r.Re) != len(r.Im) {
			return nil, debugfile.Value{}, fmt.Errorf("corrupt complex record: %d real, %d imaginary parts", len(r.Re), len(r.Im))
		}
		cs := make([]complex128, len(r.Re))
		for i := range cs {
			cs[i] = complex(r.Re[i], r.Im[i])
		}
		v, err = debugfile.ComplexArray(shape, cs)
	default:
		return nil, debugfile.Value{}, fmt.Errorf("unknown value kind %d", r.Kind)
	}
	return p, v, err
}
