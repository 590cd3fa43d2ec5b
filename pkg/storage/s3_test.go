package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var (
	errNoSuchKey = &apiError{code: "NoSuchKey", msg: "no such key"}
	errNotFound  = &apiError{code: "NotFound", msg: "not found"}
)

// mockS3 is an in-memory bucket honoring Range on GetObject.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	ranges  []string

	getErr  error
	putErr  error
	headErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errNoSuchKey
	}
	if in.Range != nil {
		m.ranges = append(m.ranges, *in.Range)
		var start, end int
		if _, err := fmt.Sscanf(*in.Range, "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		end = min(end+1, len(data))
		data = data[start:end]
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.headErr != nil {
		return nil, m.headErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, errNotFound
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (m *mockS3) put(key, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = []byte(data)
}

func TestS3WriteAndRead(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "traces", "runs")
	ctx := context.Background()

	const data = "!VERSION: 0\ngain: 1\n"
	w, err := store.Write(ctx, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := mock.objects["runs/a.txt"]; !ok {
		t.Fatal("expected object under prefixed key runs/a.txt")
	}

	r, err := store.Read(ctx, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if string(got) != data {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestS3ReadNotExist(t *testing.T) {
	store := NewS3(newMockS3(), "traces", "")
	_, err := store.Read(context.Background(), "missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestS3ReadOtherError(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("network timeout")
	store := NewS3(mock, "traces", "")
	_, err := store.Read(context.Background(), "x")
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestS3Exists(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "traces", "")
	ctx := context.Background()

	if ok, err := store.Exists(ctx, "f"); err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}
	mock.put("f", "x")
	if ok, err := store.Exists(ctx, "f"); err != nil || !ok {
		t.Fatalf("Exists(present) = %v, %v", ok, err)
	}

	mock.headErr = errors.New("network failure")
	if _, err := store.Exists(ctx, "f"); err == nil {
		t.Fatal("expected error")
	}
}

func TestS3Delete(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "traces", "")
	ctx := context.Background()
	mock.put("tmp", "x")

	for range 2 {
		if err := store.Delete(ctx, "tmp"); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := store.Exists(ctx, "tmp"); ok {
		t.Fatal("key should be gone after delete")
	}
}

func TestS3WriteUploadError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("upload failed")
	store := NewS3(mock, "traces", "")

	w, err := store.Write(context.Background(), "obj")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "data")
	if err := w.Close(); err == nil || err.Error() != "upload failed" {
		t.Fatalf("Close() = %v, want upload failed", err)
	}
}

func TestS3ReaderAtBlocks(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "traces", "")
	store.SetBlockSize(4)
	content := "0123456789"
	mock.put("f", content)

	ra, err := store.OpenReaderAt(context.Background(), "f")
	if err != nil {
		t.Fatal(err)
	}
	defer ra.Close()

	buf := make([]byte, 6)
	n, err := ra.ReadAt(buf, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "234567" {
		t.Fatalf("ReadAt(2) = %q", got)
	}
	// Served from the cached block [6,10).
	n, err = ra.ReadAt(buf[:2], 7)
	if err != nil || string(buf[:n]) != "78" {
		t.Fatalf("ReadAt(7) = %q, %v", buf[:n], err)
	}
	if want := []string{"bytes=2-5", "bytes=6-9"}; strings.Join(mock.ranges, " ") != strings.Join(want, " ") {
		t.Fatalf("ranges = %v, want %v", mock.ranges, want)
	}

	n, err = ra.ReadAt(buf, 8)
	if n != 2 || !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt past end = %d, %v", n, err)
	}
}

func TestS3ReaderAtSectionScan(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "traces", "")
	store.SetBlockSize(3)
	content := strings.Repeat("line\n", 10)
	mock.put("f", content)

	ra, err := store.OpenReaderAt(context.Background(), "f")
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(io.NewSectionReader(ra, 0, 1<<40))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Fatalf("scan = %q", got)
	}
	ra.Close()
	if _, err := ra.ReadAt(make([]byte, 1), 0); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("ReadAt after Close = %v", err)
	}
}

func TestS3OpenReaderAtNotExist(t *testing.T) {
	store := NewS3(newMockS3(), "traces", "")
	if _, err := store.OpenReaderAt(context.Background(), "missing"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"NoSuchKey", errNoSuchKey, true},
		{"NotFound", errNotFound, true},
		{"other api error", &apiError{code: "AccessDenied", msg: "denied"}, false},
		{"plain error", errors.New("timeout"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFound(tt.err); got != tt.want {
				t.Fatalf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
