package tracedb

import (
	"errors"
	"iter"
	"log/slog"
	"sort"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

var errNotFound = errors.New("tracedb: key not found")

type pair struct {
	key   string
	value []byte
}

// backend is the ordered key-value layer under DB. scan yields keys in
// lexicographic order.
type backend interface {
	get(key string) ([]byte, error)
	scan(prefix string) iter.Seq2[pair, error]
	batchSet(pairs []pair) error
	batchDelete(keys []string) error
	close() error
}

type badgerBackend struct {
	db *badger.DB
}

func openBadger(dir string, inMemory bool, log *slog.Logger) (*badgerBackend, error) {
	if !inMemory && dir == "" {
		return nil, errors.New("tracedb: Options.Dir is required for on-disk mode")
	}
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log: log})
	if inMemory {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerBackend{db: db}, nil
}

func (b *badgerBackend) get(key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errNotFound
	}
	return val, translateErr(err)
}

func (b *badgerBackend) scan(prefix string) iter.Seq2[pair, error] {
	p := []byte(prefix)
	return func(yield func(pair, error) bool) {
		stopped := false
		err := b.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: p, PrefetchValues: true, PrefetchSize: 100})
			defer it.Close()
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if !yield(pair{key: string(item.KeyCopy(nil)), value: val}, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(pair{}, translateErr(err))
		}
	}
}

func (b *badgerBackend) batchSet(pairs []pair) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, p := range pairs {
		if err := wb.Set([]byte(p.key), p.value); err != nil {
			return translateErr(err)
		}
	}
	return translateErr(wb.Flush())
}

func (b *badgerBackend) batchDelete(keys []string) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete([]byte(k)); err != nil {
			return translateErr(err)
		}
	}
	return translateErr(wb.Flush())
}

func (b *badgerBackend) close() error {
	return b.db.Close()
}

func translateErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// memBackend keeps everything in a map and sorts keys on scan.
type memBackend struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memBackend) scan(prefix string) iter.Seq2[pair, error] {
	return func(yield func(pair, error) bool) {
		// Snapshot under the read lock so yield may call back into m.
		m.mu.RLock()
		if m.closed {
			m.mu.RUnlock()
			yield(pair{}, ErrClosed)
			return
		}
		var matches []pair
		for k, v := range m.data {
			if strings.HasPrefix(k, prefix) {
				matches = append(matches, pair{key: k, value: append([]byte(nil), v...)})
			}
		}
		m.mu.RUnlock()

		sort.Slice(matches, func(i, j int) bool { return matches[i].key < matches[j].key })
		for _, p := range matches {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (m *memBackend) batchSet(pairs []pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, p := range pairs {
		m.data[p.key] = append([]byte(nil), p.value...)
	}
	return nil
}

func (m *memBackend) batchDelete(keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memBackend) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
