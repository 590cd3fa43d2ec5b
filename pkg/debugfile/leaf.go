package debugfile

import (
	"bytes"
	"errors"
	"io"
)

// Leaf is a terminal entry of a scope tree: either a resolved Value or a
// Deferred placeholder that still has to be read from the backing source.
type Leaf interface {
	isLeaf()
}

// Deferred is a value that has not been read yet. Offset is the byte
// offset of the serialized payload in the backing source; Dims is the
// dimension annotation of the entry, nil for scalars.
type Deferred struct {
	Offset int64
	Dims   []int
}

func (Deferred) isLeaf() {}

// CachePolicy decides what a tree keeps after resolving a deferred leaf.
type CachePolicy uint8

const (
	// CacheResolved replaces the deferred leaf with its value on first read.
	CacheResolved CachePolicy = iota
	// NoCache keeps the deferred leaf, so every read goes back to the source.
	NoCache
)

// Resolve returns the concrete value of l and the leaf the caller should
// store in its place. Resolved values are returned as they are. A deferred
// leaf is read from src at its offset; under CacheResolved the returned leaf
// is the value itself, under NoCache it is l unchanged.
func Resolve(l Leaf, src io.ReaderAt, policy CachePolicy) (Value, Leaf, error) {
	switch leaf := l.(type) {
	case Value:
		return leaf, leaf, nil
	case Deferred:
		if src == nil {
			return Value{}, l, &ResolveError{Offset: leaf.Offset, Err: ErrClosed}
		}
		if leaf.Dims != nil && shapeSize(leaf.Dims) == 0 {
			v := Zeros(leaf.Dims)
			if policy == CacheResolved {
				return v, v, nil
			}
			return v, l, nil
		}
		line, err := readLineAt(src, leaf.Offset)
		if err != nil {
			return Value{}, l, &ResolveError{Offset: leaf.Offset, Err: err}
		}
		v, err := ParseValue(line, leaf.Dims)
		if err != nil {
			return Value{}, l, &ResolveError{Offset: leaf.Offset, Err: err}
		}
		if policy == CacheResolved {
			return v, v, nil
		}
		return v, l, nil
	default:
		return Value{}, l, ErrNotALeaf
	}
}

const readChunk = 4096

// readLineAt reads from off up to (not including) the next newline. A
// missing final newline is accepted; an offset at or past EOF is not.
func readLineAt(src io.ReaderAt, off int64) (string, error) {
	var line []byte
	buf := make([]byte, readChunk)
	for {
		n, err := src.ReadAt(buf, off)
		if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
			line = append(line, buf[:i]...)
			break
		}
		line = append(line, buf[:n]...)
		off += int64(n)
		if errors.Is(err, io.EOF) {
			if len(line) == 0 && n == 0 {
				return "", io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return string(bytes.TrimSuffix(line, []byte{'\r'})), nil
}
