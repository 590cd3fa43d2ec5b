package debugfile

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

func TestParseScalar(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"42", IntScalar(42)},
		{"-7", IntScalar(-7)},
		{" +3 ", IntScalar(3)},
		{"1.5", FloatScalar(1.5)},
		{"1e3", FloatScalar(1000)},
		{".5", FloatScalar(0.5)},
		{"2.", FloatScalar(2)},
		{"-0.25E-1", FloatScalar(-0.025)},
		{"1.5+2j", ComplexScalar(complex(1.5, 2))},
		{"2j", ComplexScalar(complex(0, 2))},
		{"-1.5-2.5J", ComplexScalar(complex(-1.5, -2.5))},
		{"(1-2j)", ComplexScalar(complex(1, -2))},
		{"1.0+-2.0j", ComplexScalar(complex(1, -2))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScalar(tt.in)
			if err != nil {
				t.Fatalf("ParseScalar(%q) error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseScalar(%q) = %v (%v), want %v (%v)", tt.in, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestParseScalarRejects(t *testing.T) {
	for _, in := range []string{
		"", "abc", "1.2.3", "0x10", "1_000", "nan", "inf",
		"__import__('os')", "[1, 2]",
		"99999999999999999999", "1e999",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseScalar(in)
			if !errors.Is(err, ErrValueParse) {
				t.Fatalf("ParseScalar(%q) = %v, want ErrValueParse", in, err)
			}
		})
	}
}

func TestParseValueArrays(t *testing.T) {
	v, err := ParseValue("1, 2, 3, 4, 5, 6", []int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != KindInt || !slices.Equal(v.Shape(), []int{2, 3}) {
		t.Fatalf("got %v shape %v", v.Kind(), v.Shape())
	}
	e, err := v.At(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if i, _ := e.Int64(); i != 6 {
		t.Fatalf("At(1,2) = %v", e)
	}

	f, err := ParseValue("1.0, 2, 3", []int{3})
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind() != KindFloat || !slices.Equal(f.Floats(), []float64{1, 2, 3}) {
		t.Fatalf("float array = %v", f)
	}

	c, err := ParseValue("1+1j, 2", []int{2})
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != KindComplex || !slices.Equal(c.Complexes(), []complex128{1 + 1i, 2}) {
		t.Fatalf("complex array = %v", c)
	}
}

func TestParseValueKindFollowsFirstElement(t *testing.T) {
	if _, err := ParseValue("1, 2.5", []int{2}); !errors.Is(err, ErrValueParse) {
		t.Fatalf("int array with float element: %v", err)
	}
	if _, err := ParseValue("1.5, 2j", []int{2}); !errors.Is(err, ErrValueParse) {
		t.Fatalf("float array with complex element: %v", err)
	}
}

func TestParseValueShapeMismatch(t *testing.T) {
	_, err := ParseValue("1, 2", []int{3})
	if !errors.Is(err, ErrShapeMismatch) || !errors.Is(err, ErrValueParse) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	if _, err := ParseValue("1", []int{-1}); !errors.Is(err, ErrValueParse) {
		t.Fatalf("negative dimension: %v", err)
	}
}

func TestParseValueZeroSize(t *testing.T) {
	v, err := ParseValue("never read", []int{2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if v.Len() != 0 || !slices.Equal(v.Shape(), []int{2, 0}) || v.Kind() != KindFloat {
		t.Fatalf("zero-size value = %v %v %v", v.Kind(), v.Shape(), v.Len())
	}
}

func TestParseDims(t *testing.T) {
	got, err := parseDims("3, 4")
	if err != nil || !slices.Equal(got, []int{3, 4}) {
		t.Fatalf("parseDims = %v, %v", got, err)
	}
	for _, in := range []string{"", "a", "3,", "-1"} {
		if _, err := parseDims(in); !errors.Is(err, ErrValueParse) {
			t.Errorf("parseDims(%q) = %v", in, err)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if f, ok := IntScalar(3).Float64(); !ok || f != 3 {
		t.Fatalf("Float64 on int = %v, %v", f, ok)
	}
	if _, ok := ComplexScalar(1i).Float64(); ok {
		t.Fatal("Float64 on complex should fail")
	}
	if c, ok := FloatScalar(2).Complex128(); !ok || c != 2 {
		t.Fatalf("Complex128 on float = %v, %v", c, ok)
	}
	if _, ok := Zeros([]int{2}).Int64(); ok {
		t.Fatal("Int64 on array should fail")
	}
	if (Value{}).IsValid() || (Value{}).String() != "<invalid>" {
		t.Fatal("zero Value should be invalid")
	}
	if _, err := IntScalar(1).At(0); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("At on scalar = %v", err)
	}
	a, _ := IntArray([]int{2}, []int64{1, 2})
	if _, err := a.At(2); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("At out of range = %v", err)
	}
	if _, err := IntArray([]int{3}, []int64{1, 2}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("IntArray mismatch = %v", err)
	}
}

func TestValueEqual(t *testing.T) {
	a, _ := FloatArray([]int{2}, []float64{1, 2})
	b, _ := FloatArray([]int{2}, []float64{1, 2})
	c, _ := FloatArray([]int{1, 2}, []float64{1, 2})
	if !a.Equal(b) || a.Equal(c) || a.Equal(FloatScalar(1)) || IntScalar(1).Equal(FloatScalar(1)) {
		t.Fatal("Equal")
	}
}

func TestValueJSON(t *testing.T) {
	m, _ := IntArray([]int{2, 2}, []int64{1, 2, 3, 4})
	out, err := json.Marshal(map[string]any{
		"m": m,
		"c": ComplexScalar(1 + 2i),
		"f": FloatScalar(0.5),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"c":"(1+2j)","f":0.5,"m":[[1,2],[3,4]]}`
	if string(out) != want {
		t.Fatalf("json = %s, want %s", out, want)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindInt, KindFloat, KindComplex} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k, got, err)
		}
	}
	if k, _ := ParseKind(""); k != KindFloat {
		t.Fatalf("default kind = %v", k)
	}
	if _, err := ParseKind("bool"); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("ParseKind(bool) = %v", err)
	}
}
