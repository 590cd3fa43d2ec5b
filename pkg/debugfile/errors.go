package debugfile

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match these with errors.Is.
var (
	ErrMalformedPath      = errors.New("debugfile: malformed path")
	ErrLeadingIndex       = errors.New("debugfile: path begins with an index segment")
	ErrPathNotFound       = errors.New("debugfile: path not found")
	ErrNotAScope          = errors.New("debugfile: path is a leaf, not a scope")
	ErrNotALeaf           = errors.New("debugfile: path is a scope, not a leaf")
	ErrMissingVersion     = errors.New("debugfile: first line of debug file must be a version directive")
	ErrUnsupportedVersion = errors.New("debugfile: unsupported version")
	ErrUnparsableLine     = errors.New("debugfile: could not parse line")
	ErrValueParse         = errors.New("debugfile: invalid value")
	ErrShapeMismatch      = errors.New("debugfile: element count does not match dimensions")
	ErrResolve            = errors.New("debugfile: cannot resolve deferred value")
	ErrClosed             = errors.New("debugfile: file already closed")
	ErrUnindexedScope     = errors.New("debugfile: cannot index an unindexed scope frame")
	ErrEmptyScopeStack    = errors.New("debugfile: scope stack is empty")
	ErrAnonymousScope     = errors.New("debugfile: anonymous scope must be indexed")
	ErrUnsupportedType    = errors.New("debugfile: unsupported value type")
)

// MalformedPathError reports a target that cannot be normalized.
type MalformedPathError struct {
	Input  any
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("debugfile: malformed path %#v: %s", e.Input, e.Reason)
}

func (e *MalformedPathError) Unwrap() error { return ErrMalformedPath }

// PathNotFoundError reports the first missing segment of a lookup.
type PathNotFoundError struct {
	Path    Path
	Missing Segment
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("debugfile: path not found: %s (missing %s)", e.Path, e.Missing)
}

func (e *PathNotFoundError) Unwrap() error { return ErrPathNotFound }

// UnsupportedVersionError is returned when a file declares a format version
// this package has no parser for.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("debugfile: unsupported version %d", e.Version)
}

func (e *UnsupportedVersionError) Unwrap() error { return ErrUnsupportedVersion }

// LineError carries the offending line of a failed parse. Err is either
// ErrUnparsableLine or the value/path error raised while handling the line.
type LineError struct {
	Line    int
	Content string
	Err     error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("debugfile: line %d: %q: %v", e.Line, e.Content, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ValueParseError reports a literal or array payload that failed to parse.
type ValueParseError struct {
	Token  string
	Reason string
	Err    error
}

func (e *ValueParseError) Error() string {
	return fmt.Sprintf("debugfile: invalid value %q: %s", e.Token, e.Reason)
}

func (e *ValueParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrValueParse
}

// Is lets a shape mismatch also match ErrValueParse.
func (e *ValueParseError) Is(target error) bool {
	return target == ErrValueParse
}

// ResolveError is returned when a deferred value cannot be re-read from its
// backing source.
type ResolveError struct {
	Offset int64
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("debugfile: resolve value at offset %d: %v", e.Offset, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

func (e *ResolveError) Is(target error) bool {
	return target == ErrResolve
}
