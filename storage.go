package subdoc

// storage is a transactional, sorted key-value backend (Bolt or memory)
// holding named buckets of item envelopes.
type storage interface {
	// Begin starts a transaction. Writable transactions are serialized.
	Begin(writable bool) (storageTx, error)
	Close() error
}

type storageTx interface {
	// Bucket returns the named bucket. Writable transactions create it when
	// missing; read-only ones fail.
	Bucket(name string) (storageBucket, error)
	Commit() error
	// Rollback is a no-op after Commit, so it can always be deferred.
	Rollback() error
	// FileSize is the size of the backing file, or 0 in memory.
	FileSize() int64
}

type storageBucket interface {
	// Get returns nil for a missing key. The result is only valid until the
	// end of the transaction.
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error

	// NextCAS returns the next version number of the bucket, starting at 1.
	NextCAS() (CAS, error)

	// Scan calls f for each key starting with prefix, in byte order. f must
	// not modify the bucket.
	Scan(prefix []byte, f func(k, v []byte) error) error

	Stats() bucketStats
}

type bucketStats struct {
	Keys  int
	Inuse int64
	Alloc int64
}
