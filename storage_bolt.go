package subdoc

import (
	"bytes"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

type boltStorage struct {
	db *bbolt.DB
}

func openBoltStorage(path string, opt Options) (*boltStorage, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 5 * 1024 * 1024
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	db, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("subdoc: %w", err)
	}
	return &boltStorage{db: db}, nil
}

func (s *boltStorage) Begin(writable bool) (storageTx, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return boltTx{tx}, nil
}

func (s *boltStorage) Close() error {
	return s.db.Close()
}

type boltTx struct {
	tx *bbolt.Tx
}

func (t boltTx) Bucket(name string) (storageBucket, error) {
	if !t.tx.Writable() {
		b := t.tx.Bucket(unsafeBytesFromString(name))
		if b == nil {
			return nil, fmt.Errorf("bucket %q does not exist", name)
		}
		return boltBucket{b}, nil
	}
	b, err := t.tx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return boltBucket{b}, nil
}

func (t boltTx) Commit() error { return t.tx.Commit() }

func (t boltTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return err
}

func (t boltTx) FileSize() int64 { return t.tx.Size() }

type boltBucket struct {
	b *bbolt.Bucket
}

func (b boltBucket) Get(key []byte) []byte       { return b.b.Get(key) }
func (b boltBucket) Put(key, value []byte) error { return b.b.Put(key, value) }
func (b boltBucket) Delete(key []byte) error     { return b.b.Delete(key) }

func (b boltBucket) NextCAS() (CAS, error) {
	seq, err := b.b.NextSequence()
	return CAS(seq), err
}

func (b boltBucket) Scan(prefix []byte, f func(k, v []byte) error) error {
	c := b.b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := f(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (b boltBucket) Stats() bucketStats {
	s := b.b.Stats()
	return bucketStats{
		Keys:  s.KeyN,
		Inuse: int64(s.LeafInuse),
		Alloc: int64(s.LeafAlloc + s.BranchAlloc),
	}
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
