package debugfile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/audiotesttools/att/pkg/storage"
)

// LoadOptions configures how a debug file is parsed.
type LoadOptions struct {
	// LazyLoad defers reading values until they are first accessed.
	LazyLoad bool

	// CacheLoaded keeps values in the tree once a deferred value has been
	// read. Without it every access re-reads the source, which bounds
	// memory use for very large files.
	CacheLoaded bool

	// Logger receives debug output. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultLoadOptions returns lazy loading with caching.
func DefaultLoadOptions() *LoadOptions {
	return &LoadOptions{LazyLoad: true, CacheLoaded: true}
}

func (o *LoadOptions) orDefault() *LoadOptions {
	if o == nil {
		return DefaultLoadOptions()
	}
	return o
}

func (o *LoadOptions) policy() CachePolicy {
	if o.CacheLoaded {
		return CacheResolved
	}
	return NoCache
}

func (o *LoadOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// File is a parsed debug file. It embeds the root View and owns the
// backing source, which lazily loaded values are read from.
type File struct {
	*View

	// Meta holds the file's directives.
	Meta *Metadata

	closer io.Closer
}

// Close releases the backing source. Deferred values that have not been
// cached can no longer be read afterwards. Close is idempotent.
func (f *File) Close() error {
	f.tree.store.src = nil
	if f.closer == nil {
		return nil
	}
	c := f.closer
	f.closer = nil
	return c.Close()
}

// Open opens and parses the debug file at path. A nil opts means
// DefaultLoadOptions. The file stays open until Close when values are
// loaded lazily; eagerly loaded files are closed before Open returns.
func Open(path string, opts *LoadOptions) (*File, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := parse(fp, fp, opts)
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses a debug file from src. The caller keeps ownership of src,
// which must stay readable while deferred values may still be accessed.
func Parse(src io.ReaderAt, opts *LoadOptions) (*File, error) {
	return parse(src, nil, opts)
}

// Read reads all of r into memory and parses it.
func Read(r io.Reader, opts *LoadOptions) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data), opts)
}

// OpenStore opens a debug file kept in a FileStore.
func OpenStore(ctx context.Context, store storage.FileStore, path string, opts *LoadOptions) (*File, error) {
	src, err := storage.OpenReaderAt(ctx, store, path)
	if err != nil {
		return nil, err
	}
	f, err := parse(src, src, opts)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func parse(src io.ReaderAt, closer io.Closer, opts *LoadOptions) (*File, error) {
	opts = opts.orDefault()
	log := opts.logger()

	version, err := detectVersion(src)
	if err != nil {
		return nil, err
	}
	parseFile, err := version.parser()
	if err != nil {
		return nil, err
	}
	log.Debug("debugfile: version detected", "version", int(version), "lazy", opts.LazyLoad, "cache", opts.CacheLoaded)

	tree := NewTree(src, opts.policy())
	meta := newMetadata()
	stats, err := parseFile(src, tree, meta, opts.LazyLoad)
	if err != nil {
		return nil, err
	}
	log.Debug("debugfile: parsed",
		"lines", stats.lines,
		"entries", stats.entries,
		"directives", stats.directives,
		"comments", stats.comments)

	f := &File{View: NewView(tree), Meta: meta, closer: closer}
	if !opts.LazyLoad {
		// Nothing will be read from src again.
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return f, nil
}
