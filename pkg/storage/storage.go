// Package storage abstracts where debug files live: a local directory, an
// S3-compatible bucket, or memory. Debug files are parsed through random
// access so lazily loaded values can be fetched on demand, which is why
// stores may also implement [RandomAccess].
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidPath is returned for paths that escape the store root or are
// otherwise unusable as object names.
var ErrInvalidPath = errors.New("storage: invalid path")

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading. If the file does not exist,
	// an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating existing content.
	// Data is committed when the returned writer is closed.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// ReadAtCloser is random read access to a stored file.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// RandomAccess is implemented by stores that serve ReadAt natively instead
// of through a full download.
type RandomAccess interface {
	OpenReaderAt(ctx context.Context, path string) (ReadAtCloser, error)
}

// OpenReaderAt opens path in store for random access. Stores implementing
// RandomAccess are used directly; otherwise the file is read into memory
// unless the reader returned by Read already supports ReadAt.
func OpenReaderAt(ctx context.Context, store FileStore, path string) (ReadAtCloser, error) {
	if ra, ok := store.(RandomAccess); ok {
		return ra.OpenReaderAt(ctx, path)
	}
	rc, err := store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if ra, ok := rc.(ReadAtCloser); ok {
		return ra, nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return memReaderAt{bytes.NewReader(data)}, nil
}

type memReaderAt struct{ *bytes.Reader }

func (memReaderAt) Close() error { return nil }

// S3URI is a parsed "s3://bucket/key" reference.
type S3URI struct {
	Bucket string
	Key    string
}

func (u S3URI) String() string { return "s3://" + u.Bucket + "/" + u.Key }

// ParseS3URI parses s as an S3 reference. ok is false when s does not use
// the s3:// scheme, in which case it should be treated as a local path.
func ParseS3URI(s string) (u S3URI, ok bool, err error) {
	rest, found := strings.CutPrefix(s, "s3://")
	if !found {
		return S3URI{}, false, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return S3URI{}, true, fmt.Errorf("%w: %q: want s3://bucket/key", ErrInvalidPath, s)
	}
	return S3URI{Bucket: bucket, Key: key}, true, nil
}
