package subdoc

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

var errStorageClosed = errors.New("storage closed")

// memStorage keeps committed buckets immutable: readers share them, and the
// single writer works on copies that replace them on commit.
type memStorage struct {
	writeMu sync.Mutex
	mu      sync.Mutex
	buckets map[string]*memBucket
	closed  bool
}

func newMemStorage() *memStorage {
	return &memStorage{buckets: make(map[string]*memBucket)}
}

func (s *memStorage) Begin(writable bool) (storageTx, error) {
	if writable {
		s.writeMu.Lock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if writable {
			s.writeMu.Unlock()
		}
		return nil, errStorageClosed
	}
	snap := make(map[string]*memBucket, len(s.buckets))
	for name, b := range s.buckets {
		if writable {
			b = b.clone()
		}
		snap[name] = b
	}
	return &memTx{s: s, writable: writable, buckets: snap}, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buckets = nil
	return nil
}

type memTx struct {
	s        *memStorage
	writable bool
	buckets  map[string]*memBucket
	done     bool
}

func (t *memTx) Bucket(name string) (storageBucket, error) {
	if t.done {
		return nil, errors.New("transaction finished")
	}
	b := t.buckets[name]
	if b == nil {
		if !t.writable {
			return nil, fmt.Errorf("bucket %q does not exist", name)
		}
		b = &memBucket{}
		t.buckets[name] = b
	}
	return memBucketTx{b: b, writable: t.writable}, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return nil
	}
	if !t.writable {
		return errors.New("read-only transaction")
	}
	defer t.finish()
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.closed {
		return errStorageClosed
	}
	t.s.buckets = t.buckets
	return nil
}

func (t *memTx) Rollback() error {
	if !t.done {
		t.finish()
	}
	return nil
}

func (t *memTx) finish() {
	t.done = true
	if t.writable {
		t.s.writeMu.Unlock()
	}
}

func (t *memTx) FileSize() int64 { return 0 }

type memKV struct {
	key   []byte
	value []byte
}

type memBucket struct {
	items []memKV // sorted by key
	seq   uint64
}

// clone is shallow: stored keys and values are never modified in place.
func (b *memBucket) clone() *memBucket {
	return &memBucket{items: slices.Clone(b.items), seq: b.seq}
}

func (b *memBucket) search(key []byte) (int, bool) {
	i := sort.Search(len(b.items), func(i int) bool {
		return bytes.Compare(b.items[i].key, key) >= 0
	})
	return i, i < len(b.items) && bytes.Equal(b.items[i].key, key)
}

type memBucketTx struct {
	b        *memBucket
	writable bool
}

func (m memBucketTx) Get(key []byte) []byte {
	if i, found := m.b.search(key); found {
		return m.b.items[i].value
	}
	return nil
}

func (m memBucketTx) Put(key, value []byte) error {
	if !m.writable {
		return errors.New("read-only transaction")
	}
	kv := memKV{key: bytes.Clone(key), value: bytes.Clone(value)}
	if i, found := m.b.search(key); found {
		m.b.items[i] = kv
	} else {
		m.b.items = slices.Insert(m.b.items, i, kv)
	}
	return nil
}

func (m memBucketTx) Delete(key []byte) error {
	if !m.writable {
		return errors.New("read-only transaction")
	}
	if i, found := m.b.search(key); found {
		m.b.items = slices.Delete(m.b.items, i, i+1)
	}
	return nil
}

func (m memBucketTx) NextCAS() (CAS, error) {
	if !m.writable {
		return 0, errors.New("read-only transaction")
	}
	m.b.seq++
	return CAS(m.b.seq), nil
}

func (m memBucketTx) Scan(prefix []byte, f func(k, v []byte) error) error {
	i, _ := m.b.search(prefix)
	for ; i < len(m.b.items) && bytes.HasPrefix(m.b.items[i].key, prefix); i++ {
		if err := f(m.b.items[i].key, m.b.items[i].value); err != nil {
			return err
		}
	}
	return nil
}

func (m memBucketTx) Stats() bucketStats {
	var size int64
	for _, kv := range m.b.items {
		size += int64(len(kv.key) + len(kv.value))
	}
	return bucketStats{Keys: len(m.b.items), Inuse: size, Alloc: size}
}
