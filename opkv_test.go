package subdoc

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestBucket_UpsertGet(t *testing.T) {
	b, _ := setup(t)

	d := must(b.Upsert("foo", "bar", nil))
	got := must(b.Get("foo"))
	deepEqual(t, got.Value, any("bar"))
	deepEqual(t, got.Flags, FlagFormatString)
	deepEqual(t, got.CAS, d.CAS)

	must(b.Upsert("foo", map[string]any{"n": 1}, nil))
	got = must(b.Get("foo"))
	deepEqual(t, got.Value, any(map[string]any{"n": int64(1)}))
	if got.CAS == d.CAS {
		t.Errorf("CAS did not change")
	}

	_, err := b.Get("missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(missing) = %v, wanted KEY_ENOENT", err)
	}
}

func TestBucket_InsertReplaceRemove(t *testing.T) {
	b, _ := setup(t)

	d1 := must(b.Insert("k", 1, nil))
	_, err := b.Insert("k", 2, nil)
	isStatus(t, err, StatusKeyExists)

	_, err = b.Replace("missing", 1, nil)
	isStatus(t, err, StatusKeyNotFound)

	d2 := must(b.Replace("k", 2, &WriteOptions{CAS: d1.CAS}))
	_, err = b.Replace("k", 3, &WriteOptions{CAS: d1.CAS})
	isStatus(t, err, StatusKeyExists)
	deepEqual(t, must(b.Get("k")).Value, any(int64(2)))

	_, err = b.Upsert("k", 3, &WriteOptions{CAS: d1.CAS})
	isStatus(t, err, StatusKeyExists)
	d3 := must(b.Upsert("k", 3, &WriteOptions{CAS: d2.CAS}))
	must(b.Replace("k", 4, nil))

	isStatus(t, b.Remove("k", d3.CAS), StatusKeyExists)
	isStatus(t, b.Remove("k", 0), StatusSuccess)
	isStatus(t, b.Remove("k", 0), StatusKeyNotFound)

	// insert after remove
	must(b.Insert("k", 5, nil))
}

func TestBucket_Counter(t *testing.T) {
	b, _ := setup(t)

	_, err := b.Counter("c", 1, nil)
	isStatus(t, err, StatusKeyNotFound)

	d := must(b.Counter("c", 10, &CounterOptions{Initial: ptr(uint64(5))}))
	deepEqual(t, d.Value, any(uint64(5)))
	d = must(b.Counter("c", 1, &CounterOptions{Initial: ptr(uint64(5))}))
	deepEqual(t, d.Value, any(uint64(6)))
	d = must(b.Counter("c", -100, nil))
	deepEqual(t, d.Value, any(uint64(0)))
	d = must(b.Counter("c", 3, nil))
	deepEqual(t, d.Value, any(uint64(3)))

	got := must(b.Get("c"))
	deepEqual(t, got.Value, any(int64(3)))
	deepEqual(t, got.CAS, d.CAS)

	must(b.Upsert("s", "abc", nil))
	_, err = b.Counter("s", 1, nil)
	isStatus(t, err, StatusDeltaBadValue)
	if !errors.Is(err, ErrDeltaBadValue) {
		t.Errorf("errors.Is(err, ErrDeltaBadValue) = false")
	}
}

func TestApplyDelta(t *testing.T) {
	deepEqual(t, applyDelta(5, 3), uint64(8))
	deepEqual(t, applyDelta(5, -3), uint64(2))
	deepEqual(t, applyDelta(5, -5), uint64(0))
	deepEqual(t, applyDelta(5, -6), uint64(0))
	deepEqual(t, applyDelta(1<<63+1, -1<<63), uint64(1))
	deepEqual(t, applyDelta(^uint64(0), 1), uint64(0))
}

func TestBucket_Expiry(t *testing.T) {
	b, clock := setup(t)

	d := must(b.Upsert("tmp", "v", &WriteOptions{Expiry: 2 * time.Second}))
	if !d.Expiry.Equal(clock.Now().Add(2 * time.Second)) {
		t.Errorf("Expiry = %v, wanted now+2s", d.Expiry)
	}
	clock.Advance(time.Second)
	must(b.Get("tmp"))
	clock.Advance(time.Second)
	_, err := b.Get("tmp")
	isStatus(t, err, StatusKeyNotFound)

	// expired keys count as absent
	must(b.Insert("tmp", "v2", &WriteOptions{Expiry: 2 * time.Second}))
	must(b.Touch("tmp", 10*time.Second))
	clock.Advance(5 * time.Second)
	got := must(b.GetAndTouch("tmp", time.Second))
	deepEqual(t, got.Value, any("v2"))
	clock.Advance(time.Second)
	_, err = b.Get("tmp")
	isStatus(t, err, StatusKeyNotFound)

	_, err = b.Touch("tmp", time.Second)
	isStatus(t, err, StatusKeyNotFound)
}

func TestBucket_Lock(t *testing.T) {
	b, clock := setup(t)
	must(b.Upsert("k", "v1", nil))

	locked := must(b.GetAndLock("k", time.Second))
	deepEqual(t, locked.Value, any("v1"))

	_, err := b.GetAndLock("k", time.Second)
	isStatus(t, err, StatusTempFail)
	deepEqual(t, must(b.Get("k")).CAS, LockedCAS)

	_, err = b.Upsert("k", "v2", nil)
	isStatus(t, err, StatusTempFail)
	isStatus(t, b.Remove("k", 0), StatusTempFail)
	_, err = b.Replace("k", "v2", nil)
	isStatus(t, err, StatusTempFail)

	d := must(b.Upsert("k", "v2", &WriteOptions{CAS: locked.CAS}))
	got := must(b.Get("k"))
	deepEqual(t, got.CAS, d.CAS)
	deepEqual(t, got.Value, any("v2"))

	// lock expires by itself
	must(b.GetAndLock("k", time.Second))
	clock.Advance(time.Second)
	must(b.Upsert("k", "v3", nil))

	// lock time is capped
	must(b.GetAndLock("k", time.Hour))
	clock.Advance(maxLockTime)
	must(b.Upsert("k", "v4", nil))

	// zero means the default
	must(b.GetAndLock("k", 0))
	clock.Advance(defaultLockTime - time.Second)
	_, err = b.Upsert("k", "v5", nil)
	isStatus(t, err, StatusTempFail)
}

func TestBucket_Unlock(t *testing.T) {
	b, _ := setup(t)
	must(b.Upsert("k", "v", nil))

	_, err := b.Unlock("k", 1)
	isStatus(t, err, StatusTempFail)

	locked := must(b.GetAndLock("k", 0))
	_, err = b.Unlock("k", locked.CAS+1)
	isStatus(t, err, StatusKeyExists)

	cas := must(b.Unlock("k", locked.CAS))
	got := must(b.Get("k"))
	deepEqual(t, got.CAS, cas)
	must(b.Upsert("k", "v2", nil))

	_, err = b.Unlock("missing", 1)
	isStatus(t, err, StatusKeyNotFound)
}

func TestBucket_Multi(t *testing.T) {
	b, _ := setup(t)

	docs := b.UpsertMulti(map[string]any{"a": 1, "b": "two", "": 3}, nil)
	deepEqual(t, len(docs), 3)
	for _, k := range []string{"a", "b"} {
		if docs[k].Err != nil || docs[k].CAS == 0 {
			t.Errorf("UpsertMulti[%q] = %+v", k, docs[k])
		}
	}
	isStatus(t, docs[""].Err, StatusInvalidArgument)

	docs = b.GetMulti("a", "b", "zz")
	deepEqual(t, docs["a"].Value, any(int64(1)))
	deepEqual(t, docs["b"].Value, any("two"))
	isStatus(t, docs["zz"].Err, StatusKeyNotFound)
	deepEqual(t, docs["zz"].Key, "zz")

	docs = b.RemoveMulti("a", "zz")
	isStatus(t, docs["a"].Err, StatusSuccess)
	isStatus(t, docs["zz"].Err, StatusKeyNotFound)
	_, err := b.Get("a")
	isStatus(t, err, StatusKeyNotFound)
}

func TestBucket_TooBig(t *testing.T) {
	b, _ := setupMem(t, Options{MaxDocumentSize: 16})

	_, err := b.Upsert("k", strings.Repeat("x", 17), nil)
	isStatus(t, err, StatusTooBig)
	must(b.Upsert("k", strings.Repeat("x", 16), nil))

	must(b.Upsert("j", json.RawMessage(`{"a":"0123"}`), nil))
	res, err := b.MutateIn("j", []MutateSpec{Upsert("b", "x")}, nil)
	isStatus(t, err, StatusTooBig)
	deepEqual(t, len(res.Items), 0)
	deepEqual(t, string(must(b.Store().Fetch("j")).Data), `{"a":"0123"}`)
}

func TestBucket_BigDocument(t *testing.T) {
	b, _ := setup(t)
	big := strings.Repeat("0123456789", 200_000)
	must(b.Upsert("big", big, nil))
	deepEqual(t, must(b.Get("big")).Value, any(big))
}

func TestBucket_CustomTranscoder(t *testing.T) {
	b, _ := setupMem(t, Options{Transcoder: MsgpackTranscoder{}})

	must(b.Upsert("m", map[string]any{"a": "x"}, nil))
	got := must(b.Get("m"))
	deepEqual(t, got.Flags, FlagFormatMsgpack)
	deepEqual(t, got.Value, any(map[string]any{"a": "x"}))

	res, err := b.LookupIn("m", Get("a"))
	isStatus(t, err, StatusDocNotJSON)
	deepEqual(t, res.Items, []ItemResult{{Status: StatusDocNotJSON}})

	var calls int
	b, _ = setupMem(t, Options{Transcoder: TranscoderFuncs{
		EncodeFunc: func(v any) ([]byte, uint32, error) {
			calls++
			return DefaultTranscoder{}.Encode(v)
		},
		DecodeFunc: func(data []byte, flags uint32) (any, error) {
			calls++
			return DefaultTranscoder{}.Decode(data, flags)
		},
	}})
	must(b.Upsert("k", "v", nil))
	must(b.Get("k"))
	deepEqual(t, calls, 2)
}

func TestBucket_DecodeError(t *testing.T) {
	b, _ := setupMem(t, Options{})
	must(b.Store().Store("k", &Item{Data: []byte(`{`), Flags: FlagFormatJSON}, Cond{}))
	doc, err := b.Get("k")
	isnil(t, doc)
	isStatus(t, err, StatusInvalidArgument)
}
