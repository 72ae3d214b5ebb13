package subdoc

import (
	"log"
	"time"
)

const (
	DefaultBucketName      = "docs"
	DefaultMaxDocumentSize = 20 * 1024 * 1024
	MaxKeySize             = 250

	maxCASRetries = 16
)

type Options struct {
	Logf    func(format string, args ...any)
	Verbose bool

	// IsTesting trades durability for speed (Bolt NoSync).
	IsTesting bool
	MmapSize  int

	// BucketName is the storage bucket that holds the documents.
	BucketName string

	// Now is the clock used for expiry and locks.
	Now func() time.Time

	Transcoder      Transcoder
	MaxDocumentSize int
	PathCacheSize   int
}

func (o *Options) setDefaults() {
	if o.Logf == nil {
		o.Logf = log.Printf
	}
	if o.BucketName == "" {
		o.BucketName = DefaultBucketName
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Transcoder == nil {
		o.Transcoder = DefaultTranscoder{}
	}
	if o.MaxDocumentSize <= 0 {
		o.MaxDocumentSize = DefaultMaxDocumentSize
	}
	if o.PathCacheSize <= 0 {
		o.PathCacheSize = defaultPathCacheSize
	}
}

// Bucket is a collection of documents addressed by key, with whole-document
// and sub-document operations. It is safe for concurrent use.
type Bucket struct {
	store      Store
	ownsStore  bool
	tc         Transcoder
	now        func() time.Time
	logf       func(format string, args ...any)
	verbose    bool
	maxDocSize int
	paths      *pathCache
}

// Open opens a Bolt-backed bucket at path.
func Open(path string, opt Options) (*Bucket, error) {
	store, err := OpenBoltStore(path, opt)
	if err != nil {
		return nil, err
	}
	b := NewBucket(store, opt)
	b.ownsStore = true
	return b, nil
}

// NewBucket wraps an existing store. Closing the bucket does not close the
// store.
func NewBucket(store Store, opt Options) *Bucket {
	opt.setDefaults()
	return &Bucket{
		store:      store,
		tc:         opt.Transcoder,
		now:        opt.Now,
		logf:       opt.Logf,
		verbose:    opt.Verbose,
		maxDocSize: opt.MaxDocumentSize,
		paths:      newPathCache(opt.PathCacheSize),
	}
}

func (b *Bucket) Store() Store {
	return b.store
}

func (b *Bucket) Close() error {
	if b.ownsStore {
		return b.store.Close()
	}
	return nil
}

func (b *Bucket) checkKey(key string) error {
	if key == "" {
		return statusErrf(StatusInvalidArgument, "", nil, "empty key")
	}
	if len(key) > MaxKeySize {
		return statusErrf(StatusInvalidArgument, key[:16]+"...", nil, "key longer than %d bytes", MaxKeySize)
	}
	return nil
}

func (b *Bucket) checkSize(key string, data []byte) error {
	if len(data) > b.maxDocSize {
		return statusErrf(StatusTooBig, key, nil, "%d bytes, limit is %d", len(data), b.maxDocSize)
	}
	return nil
}

func (b *Bucket) expiryTime(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return b.now().Add(d)
}

// visibleCAS hides the real CAS of a locked item from readers.
func (b *Bucket) visibleCAS(item *Item) CAS {
	if item.locked(b.now()) {
		return LockedCAS
	}
	return item.CAS
}

// modify is a read-modify-write cycle. With cas == 0 it retries when a
// concurrent writer gets in between; with an explicit cas a mismatch is
// returned as KEY_EEXISTS.
func (b *Bucket) modify(key string, cas CAS, f func(item *Item) error) (*Item, error) {
	for attempt := 1; ; attempt++ {
		item, err := b.store.Fetch(key)
		if err != nil {
			return nil, err
		}
		if err := checkCond(key, item, Cond{CAS: cas}, b.now()); err != nil {
			return nil, err
		}
		prev := item.CAS
		if err := f(item); err != nil {
			return nil, err
		}
		newCAS, err := b.store.Store(key, item, Cond{CAS: prev})
		if err == nil {
			item.CAS = newCAS
			return item, nil
		}
		if cas != 0 || StatusOf(err) != StatusKeyExists || attempt >= maxCASRetries {
			return nil, err
		}
	}
}
