package subdoc

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	defaultLockTime = 15 * time.Second
	maxLockTime     = 30 * time.Second
)

// Document is the outcome of a whole-document operation. Err is only used by
// the *Multi operations.
type Document struct {
	Key    string
	Value  any
	Flags  uint32
	CAS    CAS
	Expiry time.Time
	Err    error
}

type WriteOptions struct {
	// CAS, when non-zero, requires the stored document to have this version.
	CAS CAS
	// Expiry, when positive, makes the document disappear after this long.
	Expiry time.Duration
}

type CounterOptions struct {
	// Initial is stored (and returned) when the key is missing. Without it a
	// missing key is KEY_ENOENT.
	Initial *uint64
	Expiry  time.Duration
}

func (b *Bucket) decodeDoc(key string, item *Item) (*Document, error) {
	v, err := b.tc.Decode(item.Data, item.Flags)
	if err != nil {
		return nil, statusErrf(StatusInvalidArgument, key, err, "decode")
	}
	return &Document{
		Key:    key,
		Value:  v,
		Flags:  item.Flags,
		CAS:    b.visibleCAS(item),
		Expiry: item.Expiry,
	}, nil
}

func (b *Bucket) encodeItem(key string, value any, expiry time.Duration) (*Item, error) {
	data, flags, err := b.tc.Encode(value)
	if err != nil {
		return nil, statusErrf(StatusInvalidArgument, key, err, "encode")
	}
	if err := b.checkSize(key, data); err != nil {
		return nil, err
	}
	return &Item{Data: data, Flags: flags, Expiry: b.expiryTime(expiry)}, nil
}

func (b *Bucket) Get(key string) (*Document, error) {
	if err := b.checkKey(key); err != nil {
		return nil, err
	}
	item, err := b.store.Fetch(key)
	if err != nil {
		if b.verbose {
			b.logf("subdoc: GET.NOTFOUND %s", key)
		}
		return nil, err
	}
	doc, err := b.decodeDoc(key, item)
	if err != nil {
		return nil, err
	}
	if b.verbose {
		b.logf("subdoc: GET %s => cas=%v flags=%x size=%d", key, doc.CAS, doc.Flags, len(item.Data))
	}
	return doc, nil
}

// GetAndLock reads a document and locks it for lockTime (15s when zero, at
// most 30s). Until unlocked, writes must carry the returned CAS and other
// readers see LockedCAS.
func (b *Bucket) GetAndLock(key string, lockTime time.Duration) (*Document, error) {
	if err := b.checkKey(key); err != nil {
		return nil, err
	}
	if lockTime <= 0 {
		lockTime = defaultLockTime
	}
	lockTime = min(lockTime, maxLockTime)
	item, err := b.modify(key, 0, func(item *Item) error {
		item.LockedUntil = b.now().Add(lockTime)
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc, err := b.decodeDoc(key, item)
	if err != nil {
		return nil, err
	}
	doc.CAS = item.CAS
	if b.verbose {
		b.logf("subdoc: LOCK %s => cas=%v until=%v", key, item.CAS, item.LockedUntil)
	}
	return doc, nil
}

// Unlock releases a lock taken by GetAndLock. cas must be the lock's CAS.
func (b *Bucket) Unlock(key string, cas CAS) (CAS, error) {
	if err := b.checkKey(key); err != nil {
		return 0, err
	}
	item, err := b.store.Fetch(key)
	if err != nil {
		return 0, err
	}
	if !item.locked(b.now()) {
		return 0, statusErrf(StatusTempFail, key, nil, "not locked")
	}
	if cas != item.CAS {
		return 0, statusErrf(StatusKeyExists, key, nil, "CAS mismatch")
	}
	item.LockedUntil = time.Time{}
	return b.store.Store(key, item, Cond{CAS: cas})
}

func (b *Bucket) GetAndTouch(key string, expiry time.Duration) (*Document, error) {
	if err := b.checkKey(key); err != nil {
		return nil, err
	}
	item, err := b.modify(key, 0, func(item *Item) error {
		item.Expiry = b.expiryTime(expiry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.decodeDoc(key, item)
}

func (b *Bucket) Touch(key string, expiry time.Duration) (CAS, error) {
	doc, err := b.GetAndTouch(key, expiry)
	if err != nil {
		return 0, err
	}
	return doc.CAS, nil
}

func (b *Bucket) write(op string, key string, value any, opt *WriteOptions, cond func(o WriteOptions) Cond) (*Document, error) {
	if err := b.checkKey(key); err != nil {
		return nil, err
	}
	var o WriteOptions
	if opt != nil {
		o = *opt
	}
	item, err := b.encodeItem(key, value, o.Expiry)
	if err != nil {
		return nil, err
	}
	cas, err := b.store.Store(key, item, cond(o))
	if err != nil {
		if b.verbose {
			b.logf("subdoc: %s %s => %v", op, key, err)
		}
		return nil, err
	}
	if b.verbose {
		b.logf("subdoc: %s %s => cas=%v size=%d", op, key, cas, len(item.Data))
	}
	return &Document{Key: key, Flags: item.Flags, CAS: cas, Expiry: item.Expiry}, nil
}

// Upsert stores value under key whether or not it exists.
func (b *Bucket) Upsert(key string, value any, opt *WriteOptions) (*Document, error) {
	return b.write("UPSERT", key, value, opt, func(o WriteOptions) Cond {
		return Cond{CAS: o.CAS}
	})
}

// Insert stores value only if key does not exist yet (KEY_EEXISTS otherwise).
func (b *Bucket) Insert(key string, value any, opt *WriteOptions) (*Document, error) {
	return b.write("INSERT", key, value, opt, func(o WriteOptions) Cond {
		return Cond{Absent: true}
	})
}

// Replace stores value only if key exists (KEY_ENOENT otherwise) and, when
// opt.CAS is set, still has that version (KEY_EEXISTS otherwise).
func (b *Bucket) Replace(key string, value any, opt *WriteOptions) (*Document, error) {
	if err := b.checkKey(key); err != nil {
		return nil, err
	}
	var o WriteOptions
	if opt != nil {
		o = *opt
	}
	repl, err := b.encodeItem(key, value, o.Expiry)
	if err != nil {
		return nil, err
	}
	item, err := b.modify(key, o.CAS, func(item *Item) error {
		*item = *repl
		return nil
	})
	if err != nil {
		if b.verbose {
			b.logf("subdoc: REPLACE %s => %v", key, err)
		}
		return nil, err
	}
	if b.verbose {
		b.logf("subdoc: REPLACE %s => cas=%v size=%d", key, item.CAS, len(item.Data))
	}
	return &Document{Key: key, Flags: item.Flags, CAS: item.CAS, Expiry: item.Expiry}, nil
}

// Remove deletes key. A non-zero cas must match the stored version.
func (b *Bucket) Remove(key string, cas CAS) error {
	if err := b.checkKey(key); err != nil {
		return err
	}
	err := b.store.Delete(key, Cond{CAS: cas})
	if b.verbose {
		if err != nil {
			b.logf("subdoc: DELETE %s => %v", key, err)
		} else {
			b.logf("subdoc: DELETE %s", key)
		}
	}
	return err
}

// Counter adds delta to an unsigned decimal counter document. Decrements stop
// at zero. A missing key is created with opt.Initial, without applying delta.
func (b *Bucket) Counter(key string, delta int64, opt *CounterOptions) (*Document, error) {
	if err := b.checkKey(key); err != nil {
		return nil, err
	}
	var o CounterOptions
	if opt != nil {
		o = *opt
	}
	for attempt := 1; ; attempt++ {
		item, err := b.modify(key, 0, func(item *Item) error {
			v, err := strconv.ParseUint(strings.TrimSpace(string(item.Data)), 10, 64)
			if err != nil {
				return statusErrf(StatusDeltaBadValue, key, nil, "not a counter")
			}
			v = applyDelta(v, delta)
			item.Data = strconv.AppendUint(nil, v, 10)
			item.Flags = FlagFormatJSON
			if o.Expiry > 0 {
				item.Expiry = b.expiryTime(o.Expiry)
			}
			return nil
		})
		if err == nil {
			return b.counterDoc(key, item)
		}
		if StatusOf(err) != StatusKeyNotFound || o.Initial == nil {
			return nil, err
		}

		item = &Item{
			Data:   strconv.AppendUint(nil, *o.Initial, 10),
			Flags:  FlagFormatJSON,
			Expiry: b.expiryTime(o.Expiry),
		}
		item.CAS, err = b.store.Store(key, item, Cond{Absent: true})
		if err == nil {
			return b.counterDoc(key, item)
		}
		if StatusOf(err) != StatusKeyExists || attempt >= maxCASRetries {
			return nil, err
		}
	}
}

func (b *Bucket) counterDoc(key string, item *Item) (*Document, error) {
	v, _ := strconv.ParseUint(string(item.Data), 10, 64)
	if b.verbose {
		b.logf("subdoc: COUNTER %s => %d cas=%v", key, v, item.CAS)
	}
	return &Document{Key: key, Value: v, Flags: item.Flags, CAS: item.CAS, Expiry: item.Expiry}, nil
}

func applyDelta(v uint64, delta int64) uint64 {
	if delta >= 0 {
		return v + uint64(delta) // wraps around like the server does
	}
	var d uint64
	if delta == math.MinInt64 {
		d = 1 << 63
	} else {
		d = uint64(-delta)
	}
	if d > v {
		return 0
	}
	return v - d
}

func (b *Bucket) GetMulti(keys ...string) map[string]*Document {
	result := make(map[string]*Document, len(keys))
	for _, key := range keys {
		doc, err := b.Get(key)
		if err != nil {
			doc = &Document{Key: key, Err: err}
		}
		result[key] = doc
	}
	return result
}

func (b *Bucket) UpsertMulti(values map[string]any, opt *WriteOptions) map[string]*Document {
	result := make(map[string]*Document, len(values))
	for key, value := range values {
		doc, err := b.Upsert(key, value, opt)
		if err != nil {
			doc = &Document{Key: key, Err: err}
		}
		result[key] = doc
	}
	return result
}

func (b *Bucket) RemoveMulti(keys ...string) map[string]*Document {
	result := make(map[string]*Document, len(keys))
	for _, key := range keys {
		result[key] = &Document{Key: key, Err: b.Remove(key, 0)}
	}
	if b.verbose {
		b.logf("subdoc: DELETE_MULTI %s", quoteKeys(keys))
	}
	return result
}
