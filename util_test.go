package subdoc

import (
	"errors"
	"testing"
)

func TestMust(t *testing.T) {
	if got := must(42, nil); got != 42 {
		t.Fatalf("must = %d, wanted 42", got)
	}
	assertPanics(t, func() {
		_ = must(0, errors.New("boom"))
	})
}

func TestQuoteKeys(t *testing.T) {
	if got := quoteKeys([]string{"a", "b"}); got != "[a b]" {
		t.Fatalf("quoteKeys = %q, wanted %q", got, "[a b]")
	}
	if got := quoteKeys(nil); got != "[]" {
		t.Fatalf("quoteKeys(nil) = %q, wanted %q", got, "[]")
	}
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}
