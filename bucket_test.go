package subdoc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func setup(t testing.TB) (*Bucket, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	b := must(Open(tempDBFile(t), testOptions(t, clock)))
	t.Cleanup(func() { b.Close() })
	return b, clock
}

func setupMem(t testing.TB, opt Options) (*Bucket, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opt.Now = clock.Now
	opt.Logf = t.Logf
	opt.Verbose = true
	store := NewMemStore(opt)
	t.Cleanup(func() { store.Close() })
	return NewBucket(store, opt), clock
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	if a != nil {
		t.Helper()
		t.Errorf("** got &%v, wanted nil", *a)
	}
}

func TestBucket_CheckKey(t *testing.T) {
	b, _ := setupMem(t, Options{})
	for _, k := range []string{"", strings.Repeat("k", MaxKeySize+1)} {
		_, err := b.Get(k)
		isStatus(t, err, StatusInvalidArgument)
		_, err = b.Upsert(k, 1, nil)
		isStatus(t, err, StatusInvalidArgument)
		isStatus(t, b.Remove(k, 0), StatusInvalidArgument)

		res, err := b.LookupIn(k, Get("a"))
		isStatus(t, err, StatusInvalidArgument)
		deepEqual(t, len(res.Items), 0)
		res, err = b.MutateIn(k, []MutateSpec{Upsert("a", 1)}, nil)
		isStatus(t, err, StatusInvalidArgument)
		deepEqual(t, len(res.Items), 0)
	}
	must(b.Upsert(strings.Repeat("k", MaxKeySize), 1, nil))
}

func TestBucket_VerboseLogging(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	opt := Options{
		Verbose: true,
		Logf: func(format string, args ...any) {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, fmt.Sprintf(format, args...))
		},
	}
	store := NewMemStore(opt)
	defer store.Close()
	b := NewBucket(store, opt)

	must(b.Upsert("doc", map[string]any{}, nil))
	must(b.MutateIn("doc", []MutateSpec{Upsert("a", 1)}, nil))
	must(b.LookupIn("doc", Get("a")))

	all := strings.Join(lines, "\n")
	for _, want := range []string{"subdoc: UPSERT doc", "subdoc: MUTATE_IN doc [upsert a] => cas=", "subdoc: LOOKUP_IN doc [get a] => cas="} {
		if !strings.Contains(all, want) {
			t.Errorf("log missing %q:\n%s", want, all)
		}
	}
}

func TestBucket_CloseOwnership(t *testing.T) {
	store := NewMemStore(Options{})
	b := NewBucket(store, Options{})
	ensure(b.Close())
	if b.Store() != Store(store) {
		t.Fatalf("Store() returned a different store")
	}
	// the store outlives a bucket that does not own it
	must(store.Store("a", &Item{Data: []byte(`1`)}, Cond{}))
	ensure(store.Close())

	bb, _ := setup(t)
	ensure(bb.Close())
	_, err := bb.Get("a")
	if err == nil || errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get after Close = %v, wanted a storage error", err)
	}
}
