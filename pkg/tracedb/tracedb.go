// Package tracedb keeps parsed debug files in a key-value database so runs
// can be listed, compared and queried later without the original file.
//
// Each imported run is stored as one run record plus one record per leaf.
// Leaf keys carry a zero-padded sequence number, so a prefix scan returns
// leaves in the order they appeared in the source file and Load rebuilds
// the scope tree with the same key order.
//
// The database is backed by BadgerDB on disk, or by an in-memory map for
// tests and one-shot tools.
package tracedb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/audiotesttools/att/pkg/debugfile"
)

var (
	// ErrRunNotFound is returned when no run matches an ID or name.
	ErrRunNotFound = errors.New("tracedb: run not found")

	// ErrAmbiguousRun is returned when a name matches more than one run.
	ErrAmbiguousRun = errors.New("tracedb: run name is ambiguous")

	// ErrClosed is returned by operations on a closed database.
	ErrClosed = errors.New("tracedb: database closed")
)

// Run describes one imported debug file.
type Run struct {
	ID   string `msgpack:"id" json:"id" yaml:"id"`
	Name string `msgpack:"name" json:"name,omitempty" yaml:"name,omitempty"`
	// Seq increases with every import into one database and orders runs
	// whose Created times are equal.
	Seq     uint64            `msgpack:"seq" json:"seq" yaml:"seq"`
	Created time.Time         `msgpack:"created" json:"created" yaml:"created"`
	Leaves  int               `msgpack:"leaves" json:"leaves" yaml:"leaves"`
	Meta    map[string]string `msgpack:"meta,omitempty" json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Options configures an on-disk database.
type Options struct {
	// Dir is the BadgerDB data directory. Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without persistence.
	InMemory bool

	// Logger receives database and badger log output. If nil,
	// slog.Default() is used.
	Logger *slog.Logger
}

// DB is a trace database. It is safe for concurrent use.
type DB struct {
	kv  backend
	log *slog.Logger
	now func() time.Time

	// importMu serializes sequence allocation and the run record write.
	importMu sync.Mutex
}

// Open opens or creates a BadgerDB-backed database.
func Open(opts Options) (*DB, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	kv, err := openBadger(opts.Dir, opts.InMemory, log)
	if err != nil {
		return nil, err
	}
	return &DB{kv: kv, log: log, now: time.Now}, nil
}

// NewMemory returns a database that lives only in process memory.
func NewMemory() *DB {
	return &DB{kv: newMemBackend(), log: slog.Default(), now: time.Now}
}

// Close releases the database.
func (db *DB) Close() error {
	return db.kv.close()
}

func runKey(id string) string { return "run/" + id }

func leafPrefix(id string) string { return "leaf/" + id + "/" }

func leafKey(id string, seq int) string { return fmt.Sprintf("%s%016x", leafPrefix(id), seq) }

// Import stores every leaf below v as a new run. Deferred values are read
// from the view's source while importing. name is a free-form label that
// Run and Load accept in place of the generated ID.
func (db *DB) Import(ctx context.Context, name string, v *debugfile.View, meta map[string]string) (Run, error) {
	run := Run{
		ID:      uuid.NewString(),
		Name:    name,
		Created: db.now().UTC().Truncate(time.Millisecond),
		Meta:    meta,
	}

	var batch []pair
	err := v.Walk(func(p debugfile.Path, val debugfile.Value) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := msgpack.Marshal(newLeafRecord(p, val))
		if err != nil {
			return fmt.Errorf("tracedb: encode %s: %w", p, err)
		}
		batch = append(batch, pair{key: leafKey(run.ID, run.Leaves), value: data})
		run.Leaves++
		return nil
	})
	if err != nil {
		return Run{}, err
	}

	db.importMu.Lock()
	defer db.importMu.Unlock()

	runs, err := db.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	for _, r := range runs {
		run.Seq = max(run.Seq, r.Seq)
	}
	run.Seq++

	data, err := msgpack.Marshal(&run)
	if err != nil {
		return Run{}, fmt.Errorf("tracedb: encode run: %w", err)
	}
	// The run record goes last so a partially written import is never
	// listed.
	batch = append(batch, pair{key: runKey(run.ID), value: data})
	if err := db.kv.batchSet(batch); err != nil {
		return Run{}, err
	}
	db.log.Debug("tracedb: imported run", "id", run.ID, "name", name, "leaves", run.Leaves)
	return run, nil
}

// Runs returns all runs in import order.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	for p, err := range db.kv.scan("run/") {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var r Run
		if err := msgpack.Unmarshal(p.value, &r); err != nil {
			return nil, fmt.Errorf("tracedb: decode %s: %w", p.key, err)
		}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Seq != runs[j].Seq {
			return runs[i].Seq < runs[j].Seq
		}
		return runs[i].Created.Before(runs[j].Created)
	})
	return runs, nil
}

// Run looks a run up by ID, unique ID prefix, or name.
func (db *DB) Run(ctx context.Context, ref string) (Run, error) {
	if ref == "" {
		return Run{}, fmt.Errorf("%w: empty reference", ErrRunNotFound)
	}
	data, err := db.kv.get(runKey(ref))
	if err == nil {
		var r Run
		if err := msgpack.Unmarshal(data, &r); err != nil {
			return Run{}, fmt.Errorf("tracedb: decode run %s: %w", ref, err)
		}
		return r, nil
	}
	if !errors.Is(err, errNotFound) {
		return Run{}, err
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		return Run{}, err
	}
	var found []Run
	for _, r := range runs {
		if r.Name == ref || strings.HasPrefix(r.ID, ref) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %q", ErrRunNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %q matches %d runs", ErrAmbiguousRun, ref, len(found))
	}
}

// Load rebuilds the scope tree of a run. The returned view holds resolved
// values only and does not need to be closed.
func (db *DB) Load(ctx context.Context, ref string) (*debugfile.View, Run, error) {
	run, err := db.Run(ctx, ref)
	if err != nil {
		return nil, Run{}, err
	}
	tree := debugfile.NewTree(nil, debugfile.CacheResolved)
	n := 0
	for p, err := range db.kv.scan(leafPrefix(run.ID)) {
		if err != nil {
			return nil, Run{}, err
		}
		if err := ctx.Err(); err != nil {
			return nil, Run{}, err
		}
		var rec leafRecord
		if err := msgpack.Unmarshal(p.value, &rec); err != nil {
			return nil, Run{}, fmt.Errorf("tracedb: decode %s: %w", p.key, err)
		}
		path, val, err := rec.decode()
		if err != nil {
			return nil, Run{}, fmt.Errorf("tracedb: %s: %w", p.key, err)
		}
		if err := tree.Set(path, val); err != nil {
			return nil, Run{}, fmt.Errorf("tracedb: %s: %w", p.key, err)
		}
		n++
	}
	db.log.Debug("tracedb: loaded run", "id", run.ID, "leaves", n)
	return debugfile.NewView(tree), run, nil
}

// Delete removes a run and all its leaves.
func (db *DB) Delete(ctx context.Context, ref string) (Run, error) {
	run, err := db.Run(ctx, ref)
	if err != nil {
		return Run{}, err
	}
	keys := []string{runKey(run.ID)}
	for p, err := range db.kv.scan(leafPrefix(run.ID)) {
		if err != nil {
			return Run{}, err
		}
		keys = append(keys, p.key)
	}
	if err := db.kv.batchDelete(keys); err != nil {
		return Run{}, err
	}
	db.log.Debug("tracedb: deleted run", "id", run.ID, "keys", len(keys))
	return run, nil
}
