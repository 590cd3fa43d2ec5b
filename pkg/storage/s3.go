package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// DefaultS3BlockSize is the amount fetched per ranged GET when a debug file
// is read from S3 for random access.
const DefaultS3BlockSize = 1 << 20

// S3Client is the subset of the S3 API used by [S3Store]. *s3.Client
// satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store keeps debug files in an S3-compatible bucket under an optional
// key prefix. Random access is served by ranged GETs.
type S3Store struct {
	client    S3Client
	bucket    string
	prefix    string
	blockSize int64
}

// NewS3 creates an S3-backed store. The client must already carry
// credentials, region and endpoint. Pass "" for no prefix.
func NewS3(client S3Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, blockSize: DefaultS3BlockSize}
}

// SetBlockSize changes the ranged GET size used by OpenReaderAt.
func (s *S3Store) SetBlockSize(n int64) {
	if n > 0 {
		s.blockSize = n
	}
}

func (s *S3Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// Read streams the named object.
func (s *S3Store) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return nil, s.wrapErr("read", path, err)
	}
	return out.Body, nil
}

// OpenReaderAt returns random access to the named object. The object size
// is fetched once with HeadObject; reads are served from a single cached
// block of blockSize bytes, so a sequential scan costs one GET per block.
func (s *S3Store) OpenReaderAt(ctx context.Context, path string) (ReadAtCloser, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return nil, s.wrapErr("open", path, err)
	}
	return &s3ReaderAt{
		ctx:   ctx,
		store: s,
		path:  path,
		size:  aws.ToInt64(head.ContentLength),
	}, nil
}

// Write returns a writer that streams to PutObject through an io.Pipe. The
// upload completes when the writer is closed; Close returns the upload
// error.
func (s *S3Store) Write(ctx context.Context, path string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		_, w.uploadErr = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(path)),
			Body:   pr,
		})
		// Unblock pending writes when the upload fails early.
		pr.CloseWithError(w.uploadErr)
	}()
	return w, nil
}

// Delete removes the named object. S3 deletes are idempotent.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	return err
}

// Exists reports whether the named object exists.
func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) wrapErr(op, path string, err error) error {
	if isS3NotFound(err) {
		return fmt.Errorf("storage: %s s3://%s/%s: %w", op, s.bucket, s.key(path), os.ErrNotExist)
	}
	return err
}

type s3Writer struct {
	pw        *io.PipeWriter
	done      chan struct{}
	uploadErr error
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	w.pw.Close()
	<-w.done
	return w.uploadErr
}

// s3ReaderAt caches the most recently fetched block. It is safe for
// concurrent use.
type s3ReaderAt struct {
	ctx   context.Context
	store *S3Store
	path  string
	size  int64

	mu       sync.Mutex
	blockOff int64
	block    []byte
	closed   bool
}

func (r *s3ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("storage: negative offset %d", off)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, os.ErrClosed
	}
	n := 0
	for n < len(p) {
		pos := off + int64(n)
		if pos >= r.size {
			return n, io.EOF
		}
		if r.block == nil || pos < r.blockOff || pos >= r.blockOff+int64(len(r.block)) {
			if err := r.fetch(pos); err != nil {
				return n, err
			}
		}
		n += copy(p[n:], r.block[pos-r.blockOff:])
	}
	return n, nil
}

func (r *s3ReaderAt) fetch(pos int64) error {
	end := min(pos+r.store.blockSize, r.size) - 1
	out, err := r.store.client.GetObject(r.ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.store.bucket),
		Key:    aws.String(r.store.key(r.path)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", pos, end)),
	})
	if err != nil {
		return r.store.wrapErr("read", r.path, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return io.ErrUnexpectedEOF
	}
	r.blockOff, r.block = pos, data
	return nil
}

func (r *s3ReaderAt) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.block = nil
	return nil
}

// isS3NotFound reports whether err indicates the S3 object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var (
	_ FileStore    = (*S3Store)(nil)
	_ RandomAccess = (*S3Store)(nil)
)
