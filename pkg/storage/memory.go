package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// Memory is an in-process FileStore, mainly for tests.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) get(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("storage: %s: %w", path, os.ErrNotExist)
	}
	return data, nil
}

// Read returns a reader over a snapshot of the named file.
func (m *Memory) Read(_ context.Context, path string) (io.ReadCloser, error) {
	data, err := m.get(path)
	if err != nil {
		return nil, err
	}
	return memReaderAt{bytes.NewReader(data)}, nil
}

// OpenReaderAt returns random access to a snapshot of the named file.
func (m *Memory) OpenReaderAt(_ context.Context, path string) (ReadAtCloser, error) {
	data, err := m.get(path)
	if err != nil {
		return nil, err
	}
	return memReaderAt{bytes.NewReader(data)}, nil
}

// Write buffers data and stores it on Close.
func (m *Memory) Write(_ context.Context, path string) (io.WriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return &memWriter{m: m, path: path}, nil
}

// Delete removes the named file.
func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

// Exists reports whether the named file exists.
func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path]
	return ok, nil
}

// Paths returns the stored paths in sorted order.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type memWriter struct {
	m      *Memory
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	w.m.files[w.path] = bytes.Clone(w.buf.Bytes())
	return nil
}

var (
	_ FileStore    = (*Memory)(nil)
	_ RandomAccess = (*Memory)(nil)
)
