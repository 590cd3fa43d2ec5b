package debugfile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one level of a path: either a name or a non-negative integer
// index. Segments are comparable and are used directly as scope keys.
type Segment struct {
	name    string
	index   int
	isIndex bool
}

// Wildcard matches every child of a scope in SelectMany.
var Wildcard = Name("*")

// Name returns a name segment.
func Name(s string) Segment { return Segment{name: s} }

// Index returns an index segment.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether s is an index segment.
func (s Segment) IsIndex() bool { return s.isIndex }

// IsWildcard reports whether s is the "*" segment.
func (s Segment) IsWildcard() bool { return !s.isIndex && s.name == "*" }

// Name returns the segment's name, or "" for index segments.
func (s Segment) Name() string { return s.name }

// Index returns the segment's index, or -1 for name segments.
func (s Segment) Index() int {
	if !s.isIndex {
		return -1
	}
	return s.index
}

func (s Segment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.name
}

// MarshalText renders names verbatim and indices as decimal, which is how
// keys appear in JSON and YAML output.
func (s Segment) MarshalText() ([]byte, error) {
	if s.isIndex {
		return strconv.AppendInt(nil, int64(s.index), 10), nil
	}
	return []byte(s.name), nil
}

// Path is the normalized form of a target: an ordered list of segments.
//
// The standard form of the same path is a dotted string where indices are
// rendered as bracket suffixes on the preceding name:
//
//	"frame[20].something[2][4].val" <-> [frame 20 something 2 4 val]
type Path []Segment

var regexIndices = regexp.MustCompile(`\[(.+?)\]`)

// ParsePath converts a standard-form string into a Path. Every "[i]" is
// rewritten as ".i" before splitting on "."; tokens made only of decimal
// digits become index segments.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, &MalformedPathError{Input: s, Reason: "empty path"}
	}
	flat := regexIndices.ReplaceAllString(s, ".$1")
	tokens := strings.Split(flat, ".")
	p := make(Path, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			return nil, &MalformedPathError{Input: s, Reason: "empty segment"}
		}
		if strings.ContainsAny(tok, "[]") {
			return nil, &MalformedPathError{Input: s, Reason: "unbalanced brackets"}
		}
		if isDigits(tok) {
			i, err := strconv.Atoi(tok)
			if err != nil {
				return nil, &MalformedPathError{Input: s, Reason: "index out of range"}
			}
			p = append(p, Index(i))
			continue
		}
		p = append(p, Name(tok))
	}
	return p, nil
}

// MustParsePath is like ParsePath but panics on error. It is intended for
// literal paths in code and tests.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Normalize converts a target into a Path. Accepted targets are a
// standard-form string, a Path or []Segment (returned unchanged), a single
// Segment, a non-negative int (a one-index path), or a []any whose elements
// are strings (names) and ints (indices).
func Normalize(target any) (Path, error) {
	switch t := target.(type) {
	case string:
		return ParsePath(t)
	case Path:
		return t, nil
	case []Segment:
		return Path(t), nil
	case Segment:
		return Path{t}, nil
	case int:
		if t < 0 {
			return nil, &MalformedPathError{Input: t, Reason: "negative index"}
		}
		return Path{Index(t)}, nil
	case []any:
		p := make(Path, 0, len(t))
		for _, e := range t {
			switch v := e.(type) {
			case string:
				p = append(p, Name(v))
			case int:
				if v < 0 {
					return nil, &MalformedPathError{Input: target, Reason: "negative index"}
				}
				p = append(p, Index(v))
			default:
				return nil, &MalformedPathError{Input: target, Reason: fmt.Sprintf("segment of type %T", e)}
			}
		}
		return p, nil
	default:
		return nil, &MalformedPathError{Input: target, Reason: fmt.Sprintf("unsupported target type %T", target)}
	}
}

// Standardize renders p in standard form. A path whose first segment is an
// index has no name to attach the index to and is rejected.
func Standardize(p Path) (string, error) {
	if len(p) > 0 && p[0].isIndex {
		return "", fmt.Errorf("%w: %v", ErrLeadingIndex, []Segment(p))
	}
	return p.render(), nil
}

// ExtractIndices returns the index segments of p in order.
func ExtractIndices(p Path) []int {
	var out []int
	for _, s := range p {
		if s.isIndex {
			out = append(out, s.index)
		}
	}
	return out
}

// String returns the standard form of p. Unlike Standardize it does not
// reject a leading index.
func (p Path) String() string {
	return p.render()
}

func (p Path) render() string {
	var b strings.Builder
	for i, s := range p {
		if s.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.name)
	}
	return b.String()
}

// Concat returns a new path made of p followed by q.
func (p Path) Concat(q Path) Path {
	out := make(Path, 0, len(p)+len(q))
	out = append(out, p...)
	return append(out, q...)
}

// Equal reports whether p and q have the same segments.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasWildcard reports whether any segment of p is the wildcard.
func (p Path) HasWildcard() bool {
	for _, s := range p {
		if s.IsWildcard() {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
