package debugfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/audiotesttools/att/pkg/storage"
)

// frame is one level of the writer's scope stack.
type frame struct {
	id      uint64
	name    string
	index   int
	indexed bool
}

// Writer renders variable traces in the version 0 line format. Every
// written entry is prefixed with the current scope stack, so
//
//	w.ScopePush("frame", true)  // index 0
//	w.IndexSet(5)
//	w.WriteScalar("gain", 42)
//
// produces "frame[5].gain: 42". A Writer is not safe for concurrent use.
type Writer struct {
	bw     *bufio.Writer
	closer io.Closer
	stack  []frame
	pushes uint64
	closed bool
}

// NewWriter starts a debug file on w by writing the VERSION directive. The
// caller keeps ownership of w; Close only flushes.
func NewWriter(w io.Writer) (*Writer, error) {
	dw := &Writer{bw: bufio.NewWriter(w)}
	if _, err := fmt.Fprintf(dw.bw, "!VERSION: %d\n", CurrentVersion); err != nil {
		return nil, err
	}
	return dw, nil
}

// Create creates or truncates the file at path and starts a debug file in
// it. Close closes the file.
func Create(path string) (*Writer, error) {
	fp, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(fp)
	if err != nil {
		fp.Close()
		return nil, err
	}
	w.closer = fp
	return w, nil
}

// CreateIn starts a debug file at path in a FileStore. The data is only
// guaranteed to be stored once Close returns without error.
func CreateIn(ctx context.Context, store storage.FileStore, path string) (*Writer, error) {
	wc, err := store.Write(ctx, path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(wc)
	if err != nil {
		wc.Close()
		return nil, err
	}
	w.closer = wc
	return w, nil
}

// Directive writes a "!NAME: VALUE" metadata line.
func (w *Writer) Directive(name, value string) error {
	if w.closed {
		return ErrClosed
	}
	if name == "" || strings.ContainsAny(name, ":\r\n") || strings.ContainsAny(value, "\r\n") {
		return &MalformedPathError{Input: name, Reason: "invalid directive"}
	}
	_, err := fmt.Fprintf(w.bw, "!%s: %s\n", name, value)
	return err
}

// ScopePush opens a nested scope. Indexed scopes start at index 0. An
// anonymous scope (empty name) must be indexed; its index attaches to the
// enclosing scope's name. Closing the returned handle pops the scope, and
// every scope pushed after it, exactly once.
func (w *Writer) ScopePush(name string, indexed bool) (io.Closer, error) {
	if w.closed {
		return nil, ErrClosed
	}
	if name == "" && !indexed {
		return nil, ErrAnonymousScope
	}
	if name != "" {
		if err := checkScopeName(name); err != nil {
			return nil, err
		}
	}
	w.pushes++
	w.stack = append(w.stack, frame{id: w.pushes, name: name, indexed: indexed})
	return &scopeHandle{w: w, id: w.pushes, depth: len(w.stack)}, nil
}

// ScopePop closes the innermost scope.
func (w *Writer) ScopePop() error {
	if len(w.stack) == 0 {
		return ErrEmptyScopeStack
	}
	w.stack = w.stack[:len(w.stack)-1]
	return nil
}

// WithScope runs fn inside a new scope and pops it on every exit path,
// including panics.
func (w *Writer) WithScope(name string, indexed bool, fn func() error) error {
	h, err := w.ScopePush(name, indexed)
	if err != nil {
		return err
	}
	defer h.Close()
	return fn()
}

func (w *Writer) top() (*frame, error) {
	if len(w.stack) == 0 {
		return nil, ErrEmptyScopeStack
	}
	f := &w.stack[len(w.stack)-1]
	if !f.indexed {
		return nil, fmt.Errorf("%w: %q", ErrUnindexedScope, f.name)
	}
	return f, nil
}

// IndexSet sets the index of the innermost scope.
func (w *Writer) IndexSet(i int) error {
	if i < 0 {
		return fmt.Errorf("%w: negative index %d", ErrMalformedPath, i)
	}
	f, err := w.top()
	if err != nil {
		return err
	}
	f.index = i
	return nil
}

// IndexIncrement advances the index of the innermost scope.
func (w *Writer) IndexIncrement() error {
	f, err := w.top()
	if err != nil {
		return err
	}
	f.index++
	return nil
}

// Depth returns the number of open scopes.
func (w *Writer) Depth() int { return len(w.stack) }

// prefix renders the entry name for name under the current scope stack.
// name may carry its own index suffixes, e.g. "mic[2]".
func (w *Writer) prefix(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	rel, err := ParsePath(name)
	if err != nil {
		return "", err
	}
	if rel.HasWildcard() {
		return "", &MalformedPathError{Input: name, Reason: "wildcard in variable name"}
	}
	var p Path
	for _, f := range w.stack {
		if f.name != "" {
			p = append(p, Name(f.name))
		}
		if f.indexed {
			p = append(p, Index(f.index))
		}
	}
	return Standardize(p.Concat(rel))
}

// checkName rejects names that would not read back as the same entry.
func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, ":\r\n ") || name[0] == '!' || name[0] == '#' {
		return &MalformedPathError{Input: name, Reason: "invalid variable name"}
	}
	return nil
}

// checkScopeName requires a scope name to parse as exactly one name
// segment, so "a.b", "a[x]" or "7" cannot change the tree shape on read.
func checkScopeName(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	p, err := ParsePath(name)
	if err != nil {
		return err
	}
	if len(p) != 1 || p[0].IsIndex() || p[0].IsWildcard() || p[0].Name() != name {
		return &MalformedPathError{Input: name, Reason: "scope name must be a single name segment"}
	}
	return nil
}

func (w *Writer) writeEntry(name string, dims []int, body string) error {
	if w.closed {
		return ErrClosed
	}
	target, err := w.prefix(name)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(target)
	b.WriteString(": ")
	if dims != nil {
		b.WriteByte('<')
		for i, d := range dims {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(d))
		}
		b.WriteString("> ")
	}
	b.WriteString(body)
	b.WriteByte('\n')
	_, err = w.bw.WriteString(b.String())
	return err
}

// WriteScalar writes one scalar. Supported types are Go integer, float and
// complex types and scalar Values.
func (w *Writer) WriteScalar(name string, v any) error {
	if nonFinite(v) {
		return errNonFinite
	}
	s, err := formatScalar(v)
	if err != nil {
		return err
	}
	return w.writeEntry(name, nil, s)
}

// WriteVector writes a one-dimensional array. v is a slice of a Go integer,
// float or complex type, or a Value.
func (w *Writer) WriteVector(name string, v any) error {
	if nonFinite(v) {
		return errNonFinite
	}
	if val, ok := v.(Value); ok {
		if !val.IsValid() {
			return fmt.Errorf("%w: invalid value", ErrUnsupportedType)
		}
		return w.writeEntry(name, []int{val.Len()}, formatElements(val))
	}
	elems, err := formatSlice(v)
	if err != nil {
		return err
	}
	return w.writeEntry(name, []int{len(elems)}, strings.Join(elems, ", "))
}

// WriteNDArray writes an array with its full shape.
func (w *Writer) WriteNDArray(name string, a Value) error {
	if !a.IsValid() {
		return fmt.Errorf("%w: invalid value", ErrUnsupportedType)
	}
	if nonFinite(a) {
		return errNonFinite
	}
	dims := a.Shape()
	if dims == nil {
		dims = []int{1}
	}
	return w.writeEntry(name, dims, formatElements(a))
}

// WriteValue writes a Value as a scalar or an array depending on its shape.
func (w *Writer) WriteValue(name string, v Value) error {
	if v.IsScalar() {
		return w.WriteScalar(name, v)
	}
	return w.WriteNDArray(name, v)
}

// Flush writes buffered entries to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Close flushes the writer and closes the file it owns. Close is
// idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.bw.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type scopeHandle struct {
	w      *Writer
	id     uint64
	depth  int
	closed bool
}

// Close pops the scope this handle was created for, along with any scope
// still open above it. If that scope was already popped, Close leaves the
// stack alone. Later calls do nothing.
func (h *scopeHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if len(h.w.stack) >= h.depth && h.w.stack[h.depth-1].id == h.id {
		h.w.stack = h.w.stack[:h.depth-1]
	}
	return nil
}

func fmtInt(i int64) string     { return strconv.FormatInt(i, 10) }
func fmtUint(u uint64) string   { return strconv.FormatUint(u, 10) }
func fmtFloat(f float64) string { return fmt.Sprintf("%.32f", f) }

func fmtComplex(c complex128) string {
	return fmt.Sprintf("%.32f+%.32fj", real(c), imag(c))
}

// The literal grammar has no spelling for NaN or infinities.
var errNonFinite = fmt.Errorf("%w: NaN or infinite value", ErrUnsupportedType)

func isNonFinite(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }

func isNonFiniteComplex(c complex128) bool {
	return isNonFinite(real(c)) || isNonFinite(imag(c))
}

// nonFinite reports whether v holds a NaN or infinite component.
func nonFinite(v any) bool {
	switch x := v.(type) {
	case float32:
		return isNonFinite(float64(x))
	case float64:
		return isNonFinite(x)
	case complex64:
		return isNonFiniteComplex(complex128(x))
	case complex128:
		return isNonFiniteComplex(x)
	case []float32:
		return slices.ContainsFunc(x, func(e float32) bool { return isNonFinite(float64(e)) })
	case []float64:
		return slices.ContainsFunc(x, isNonFinite)
	case []complex64:
		return slices.ContainsFunc(x, func(e complex64) bool { return isNonFiniteComplex(complex128(e)) })
	case []complex128:
		return slices.ContainsFunc(x, isNonFiniteComplex)
	case Value:
		return slices.ContainsFunc(x.floats, isNonFinite) || slices.ContainsFunc(x.complexes, isNonFiniteComplex)
	}
	return false
}

func formatScalar(v any) (string, error) {
	switch x := v.(type) {
	case int:
		return fmtInt(int64(x)), nil
	case int8:
		return fmtInt(int64(x)), nil
	case int16:
		return fmtInt(int64(x)), nil
	case int32:
		return fmtInt(int64(x)), nil
	case int64:
		return fmtInt(x), nil
	case uint:
		return fmtUint(uint64(x)), nil
	case uint8:
		return fmtUint(uint64(x)), nil
	case uint16:
		return fmtUint(uint64(x)), nil
	case uint32:
		return fmtUint(uint64(x)), nil
	case uint64:
		return fmtUint(x), nil
	case float32:
		return fmtFloat(float64(x)), nil
	case float64:
		return fmtFloat(x), nil
	case complex64:
		return fmtComplex(complex128(x)), nil
	case complex128:
		return fmtComplex(x), nil
	case Value:
		if !x.IsScalar() {
			return "", fmt.Errorf("%w: scalar required, got shape %v", ErrUnsupportedType, x.Shape())
		}
		return formatElements(x), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

func formatSlice(v any) ([]string, error) {
	switch x := v.(type) {
	case []int:
		return mapSlice(x, func(e int) string { return fmtInt(int64(e)) }), nil
	case []int16:
		return mapSlice(x, func(e int16) string { return fmtInt(int64(e)) }), nil
	case []int32:
		return mapSlice(x, func(e int32) string { return fmtInt(int64(e)) }), nil
	case []int64:
		return mapSlice(x, fmtInt), nil
	case []uint16:
		return mapSlice(x, func(e uint16) string { return fmtUint(uint64(e)) }), nil
	case []uint32:
		return mapSlice(x, func(e uint32) string { return fmtUint(uint64(e)) }), nil
	case []float32:
		return mapSlice(x, func(e float32) string { return fmtFloat(float64(e)) }), nil
	case []float64:
		return mapSlice(x, fmtFloat), nil
	case []complex64:
		return mapSlice(x, func(e complex64) string { return fmtComplex(complex128(e)) }), nil
	case []complex128:
		return mapSlice(x, fmtComplex), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

func mapSlice[T any](in []T, f func(T) string) []string {
	out := make([]string, len(in))
	for i, e := range in {
		out[i] = f(e)
	}
	return out
}

// formatElements joins the elements of v, flattened row-major.
func formatElements(v Value) string {
	var elems []string
	switch v.kind {
	case KindInt:
		elems = mapSlice(v.ints, fmtInt)
	case KindFloat:
		elems = mapSlice(v.floats, fmtFloat)
	case KindComplex:
		elems = mapSlice(v.complexes, fmtComplex)
	}
	return strings.Join(elems, ", ")
}
