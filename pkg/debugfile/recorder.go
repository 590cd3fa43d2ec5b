package debugfile

import "io"

// Recorder is the tracing surface instrumented code writes to. *Writer
// implements it; Discard drops everything so tracing can stay compiled in
// at no cost.
type Recorder interface {
	ScopePush(name string, indexed bool) (io.Closer, error)
	ScopePop() error
	IndexSet(i int) error
	IndexIncrement() error
	WriteScalar(name string, v any) error
	WriteVector(name string, v any) error
	WriteNDArray(name string, a Value) error
	Close() error
}

var _ Recorder = (*Writer)(nil)

// Discard is a Recorder that accepts every call and writes nothing.
var Discard Recorder = discard{}

// OrDiscard returns r, or Discard when r is nil.
func OrDiscard(r Recorder) Recorder {
	if r == nil {
		return Discard
	}
	return r
}

type discard struct{}

func (discard) ScopePush(string, bool) (io.Closer, error) { return nopCloser{}, nil }
func (discard) ScopePop() error                           { return nil }
func (discard) IndexSet(int) error                        { return nil }
func (discard) IndexIncrement() error                     { return nil }
func (discard) WriteScalar(string, any) error             { return nil }
func (discard) WriteVector(string, any) error             { return nil }
func (discard) WriteNDArray(string, Value) error          { return nil }
func (discard) Close() error                              { return nil }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
