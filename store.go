package subdoc

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// CAS is an opaque document version. Stored items never have a zero CAS;
// every successful store assigns a new one.
type CAS uint64

// LockedCAS is reported instead of the real CAS when reading a locked item
// without holding the lock.
const LockedCAS = CAS(math.MaxUint64)

func (c CAS) String() string {
	return strconv.FormatUint(uint64(c), 16)
}

// Item is a stored document with its metadata.
type Item struct {
	Data        []byte
	Flags       uint32
	CAS         CAS
	Expiry      time.Time
	LockedUntil time.Time
}

func (it *Item) expired(now time.Time) bool {
	return !it.Expiry.IsZero() && !now.Before(it.Expiry)
}

func (it *Item) locked(now time.Time) bool {
	return !it.LockedUntil.IsZero() && now.Before(it.LockedUntil)
}

// Cond is the precondition of Store and Delete. The zero Cond matches any
// state.
type Cond struct {
	// CAS, when non-zero, requires the current item to have this version.
	CAS CAS
	// Absent requires the key to be missing (or expired).
	Absent bool
}

// Store is the versioned key-value boundary the engine reads documents from
// and writes them to.
//
// Implementations must apply the Cond check and the write atomically, and
// must reject writes to a locked item unless Cond.CAS is the lock's CAS.
type Store interface {
	// Fetch returns ErrKeyNotFound for missing and expired keys.
	Fetch(key string) (*Item, error)

	// Store writes item.Data, Flags, Expiry and LockedUntil (item.CAS is
	// ignored) and returns the new CAS. A failed Cond yields ErrKeyNotFound
	// or ErrKeyExists; a foreign lock yields ErrLocked.
	Store(key string, item *Item, cond Cond) (CAS, error)

	// Delete removes the key, with the same Cond and lock rules as Store.
	Delete(key string, cond Cond) error

	Close() error
}

// KVStore implements Store on top of Bolt or an in-memory backend. Items live
// in a single storage bucket as msgpack envelopes.
type KVStore struct {
	st      storage
	bucket  string
	now     func() time.Time
	logf    func(format string, args ...any)
	verbose bool
}

var _ Store = (*KVStore)(nil)

// OpenBoltStore opens (creating if needed) a Bolt database file.
func OpenBoltStore(path string, opt Options) (*KVStore, error) {
	st, err := openBoltStorage(path, opt)
	if err != nil {
		return nil, err
	}
	s, err := newKVStore(st, opt)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

// NewMemStore returns an ephemeral store, mostly for tests.
func NewMemStore(opt Options) *KVStore {
	return must(newKVStore(newMemStorage(), opt))
}

func newKVStore(st storage, opt Options) (*KVStore, error) {
	opt.setDefaults()
	s := &KVStore{
		st:      st,
		bucket:  opt.BucketName,
		now:     opt.Now,
		logf:    opt.Logf,
		verbose: opt.Verbose,
	}
	// the first writable transaction creates the bucket
	if err := s.update(func(storageBucket) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *KVStore) Close() error {
	return s.st.Close()
}

func (s *KVStore) begin(writable bool) (storageTx, storageBucket, error) {
	tx, err := s.st.Begin(writable)
	if err != nil {
		return nil, nil, fmt.Errorf("subdoc: %w", err)
	}
	b, err := tx.Bucket(s.bucket)
	if err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("subdoc: %w", err)
	}
	return tx, b, nil
}

func (s *KVStore) view(f func(b storageBucket) error) error {
	tx, b, err := s.begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(b)
}

func (s *KVStore) update(f func(b storageBucket) error) error {
	tx, b, err := s.begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = f(b)
	if err != nil {
		return err
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("subdoc: commit: %w", err)
	}
	return nil
}

// current returns the live item under key, or nil.
func (s *KVStore) current(b storageBucket, key string, now time.Time) (*Item, error) {
	raw := b.Get(unsafeBytesFromString(key))
	if raw == nil {
		return nil, nil
	}
	item, err := decodeItem(raw)
	if err != nil {
		return nil, fmt.Errorf("subdoc: %s: %w", key, err)
	}
	if item.expired(now) {
		return nil, nil
	}
	return item, nil
}

func checkCond(key string, cur *Item, cond Cond, now time.Time) error {
	if cond.Absent {
		if cur != nil {
			return &Error{Status: StatusKeyExists, Key: key}
		}
		return nil
	}
	if cur == nil {
		if cond.CAS != 0 {
			return &Error{Status: StatusKeyNotFound, Key: key}
		}
		return nil
	}
	if cur.locked(now) && cond.CAS != cur.CAS {
		return &Error{Status: StatusTempFail, Key: key, Msg: "locked"}
	}
	if cond.CAS != 0 && cond.CAS != cur.CAS {
		return &Error{Status: StatusKeyExists, Key: key, Msg: "CAS mismatch"}
	}
	return nil
}

func (s *KVStore) Fetch(key string) (*Item, error) {
	var item *Item
	err := s.view(func(b storageBucket) error {
		var err error
		item, err = s.current(b, key, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &Error{Status: StatusKeyNotFound, Key: key}
	}
	return item, nil
}

func (s *KVStore) Store(key string, item *Item, cond Cond) (CAS, error) {
	var cas CAS
	buf := getEnvelopeBuf()
	err := s.update(func(b storageBucket) error {
		now := s.now()
		cur, err := s.current(b, key, now)
		if err != nil {
			return err
		}
		err = checkCond(key, cur, cond, now)
		if err != nil {
			return err
		}

		stored := *item
		stored.CAS, err = b.NextCAS()
		if err != nil {
			return fmt.Errorf("subdoc: %s: %w", key, err)
		}
		buf = encodeItem(buf, &stored)
		err = b.Put([]byte(key), buf)
		if err != nil {
			return fmt.Errorf("subdoc: %s: %w", key, err)
		}
		cas = stored.CAS
		return nil
	})
	putEnvelopeBuf(buf)
	if err != nil {
		return 0, err
	}
	return cas, nil
}

func (s *KVStore) Delete(key string, cond Cond) error {
	return s.update(func(b storageBucket) error {
		now := s.now()
		cur, err := s.current(b, key, now)
		if err != nil {
			return err
		}
		if cur == nil {
			return &Error{Status: StatusKeyNotFound, Key: key}
		}
		err = checkCond(key, cur, cond, now)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
}

// Keys returns the live keys starting with prefix, in byte order.
func (s *KVStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.view(func(b storageBucket) error {
		now := s.now()
		return b.Scan([]byte(prefix), func(k, v []byte) error {
			item, err := decodeItem(v)
			if err != nil {
				return fmt.Errorf("subdoc: %s: %w", k, err)
			}
			if !item.expired(now) {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	return keys, err
}

// PurgeExpired deletes expired items and returns how many were removed.
// Expired items are already invisible; purging only reclaims space.
func (s *KVStore) PurgeExpired() (int, error) {
	var n int
	err := s.update(func(b storageBucket) error {
		now := s.now()
		var dead [][]byte
		err := b.Scan(nil, func(k, v []byte) error {
			item, err := decodeItem(v)
			if err != nil {
				return fmt.Errorf("subdoc: %s: %w", k, err)
			}
			if item.expired(now) {
				dead = append(dead, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range dead {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(dead)
		return nil
	})
	if err == nil && s.verbose && n > 0 {
		s.logf("subdoc: PURGE %s => %d expired", s.bucket, n)
	}
	return n, err
}
