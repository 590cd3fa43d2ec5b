package debugfile

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Numeric literals accepted in value payloads. This is a closed grammar:
// integers, floats and complex numbers as printed by the writers of this
// format (Python-style "j" suffix, "+-" sign pairs included).
const unsignedReal = `(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?`

var (
	intLiteral     = regexp.MustCompile(`^[+-]?\d+$`)
	floatLiteral   = regexp.MustCompile(`^[+-]?` + unsignedReal + `$`)
	complexLiteral = regexp.MustCompile(`^(?:([+-]?` + unsignedReal + `)([+-]))?([+-]?` + unsignedReal + `)[jJ]$`)
)

// ParseScalar parses one numeric literal into an int, float or complex
// scalar. Integers must fit in 64 bits.
func ParseScalar(token string) (Value, error) {
	tok := strings.TrimSpace(token)
	switch {
	case intLiteral.MatchString(tok):
		i, err := parseInt(tok)
		if err != nil {
			return Value{}, err
		}
		return IntScalar(i), nil
	case floatLiteral.MatchString(tok):
		f, err := parseFloat(tok)
		if err != nil {
			return Value{}, err
		}
		return FloatScalar(f), nil
	}
	c, err := parseComplex(tok)
	if err != nil {
		return Value{}, err
	}
	return ComplexScalar(c), nil
}

func parseInt(tok string) (int64, error) {
	if !intLiteral.MatchString(tok) {
		return 0, &ValueParseError{Token: tok, Reason: "not an integer literal"}
	}
	i, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, &ValueParseError{Token: tok, Reason: "integer out of range"}
	}
	return i, nil
}

func parseFloat(tok string) (float64, error) {
	if !floatLiteral.MatchString(tok) {
		return 0, &ValueParseError{Token: tok, Reason: "not a real literal"}
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &ValueParseError{Token: tok, Reason: "float out of range"}
		}
		return 0, &ValueParseError{Token: tok, Reason: err.Error()}
	}
	return f, nil
}

// parseComplex accepts real literals too, so "2" parses as 2+0j.
func parseComplex(tok string) (complex128, error) {
	if floatLiteral.MatchString(tok) {
		f, err := parseFloat(tok)
		return complex(f, 0), err
	}
	inner := tok
	if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
		inner = strings.TrimSpace(inner[1 : len(inner)-1])
	}
	m := complexLiteral.FindStringSubmatch(inner)
	if m == nil {
		return 0, &ValueParseError{Token: tok, Reason: "not a numeric literal"}
	}
	var re float64
	if m[1] != "" {
		f, err := parseFloat(m[1])
		if err != nil {
			return 0, err
		}
		re = f
	}
	im, err := parseFloat(m[3])
	if err != nil {
		return 0, err
	}
	if m[2] == "-" {
		im = -im
	}
	return complex(re, im), nil
}

// ParseValue parses a value payload. With nil dims the payload is a single
// scalar. Otherwise it is a comma-separated list of prod(dims) elements,
// reshaped row-major; the kind of the first element decides the kind of the
// whole array. A zero-sized shape yields a zero-filled float array and the
// payload is not read.
func ParseValue(token string, dims []int) (Value, error) {
	if dims == nil {
		return ParseScalar(token)
	}
	n := 1
	for _, d := range dims {
		if d < 0 {
			return Value{}, &ValueParseError{Token: token, Reason: fmt.Sprintf("negative dimension in %v", dims)}
		}
		n *= d
	}
	if n == 0 {
		return Zeros(dims), nil
	}

	elems := strings.Split(token, ",")
	if len(elems) != n {
		return Value{}, &ValueParseError{
			Token:  token,
			Reason: fmt.Sprintf("%d elements for dimensions %v", len(elems), dims),
			Err:    ErrShapeMismatch,
		}
	}

	first, err := ParseScalar(elems[0])
	if err != nil {
		return Value{}, err
	}
	shape := append([]int(nil), dims...)

	switch first.Kind() {
	case KindInt:
		data := make([]int64, n)
		for i, e := range elems {
			if data[i], err = parseInt(strings.TrimSpace(e)); err != nil {
				return Value{}, err
			}
		}
		return Value{kind: KindInt, shape: shape, ints: data}, nil
	case KindFloat:
		data := make([]float64, n)
		for i, e := range elems {
			if data[i], err = parseFloat(strings.TrimSpace(e)); err != nil {
				return Value{}, err
			}
		}
		return Value{kind: KindFloat, shape: shape, floats: data}, nil
	default:
		data := make([]complex128, n)
		for i, e := range elems {
			if data[i], err = parseComplex(strings.TrimSpace(e)); err != nil {
				return Value{}, err
			}
		}
		return Value{kind: KindComplex, shape: shape, complexes: data}, nil
	}
}

// parseDims parses a "<3,4>" annotation body.
func parseDims(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if !isDigits(p) {
			return nil, &ValueParseError{Token: s, Reason: "dimensions must be non-negative integers"}
		}
		d, err := strconv.Atoi(p)
		if err != nil {
			return nil, &ValueParseError{Token: s, Reason: "dimension out of range"}
		}
		dims[i] = d
	}
	return dims, nil
}
