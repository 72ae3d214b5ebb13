package subdoc

import (
	"errors"
	"testing"
	"time"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	expiry := time.Date(2030, 5, 6, 7, 8, 9, 123456789, time.UTC)
	tests := []*Item{
		{Data: []byte(`{"a":1}`), Flags: FlagFormatJSON, CAS: 1},
		{Data: []byte{}, CAS: 0xFFFFFFFF00},
		{Data: []byte("x"), Flags: FlagFormatString, CAS: 7, Expiry: expiry, LockedUntil: expiry.Add(-time.Hour)},
	}
	for _, item := range tests {
		raw := encodeItem(nil, item)
		deepEqual(t, raw[0], byte(envelopeVer1))

		got, err := decodeItem(raw)
		if err != nil {
			t.Fatalf("decodeItem failed: %v", err)
		}
		deepEqual(t, string(got.Data), string(item.Data))
		deepEqual(t, got.Flags, item.Flags)
		deepEqual(t, got.CAS, item.CAS)
		if !got.Expiry.Equal(item.Expiry) || got.Expiry.IsZero() != item.Expiry.IsZero() {
			t.Errorf("Expiry = %v, wanted %v", got.Expiry, item.Expiry)
		}
		if !got.LockedUntil.Equal(item.LockedUntil) {
			t.Errorf("LockedUntil = %v, wanted %v", got.LockedUntil, item.LockedUntil)
		}
	}
}

func TestEnvelope_AppendsToBuffer(t *testing.T) {
	buf := []byte("prefix")
	raw := encodeItem(buf, &Item{Data: []byte("d"), CAS: 3})
	deepEqual(t, string(raw[:6]), "prefix")
	got := must(decodeItem(raw[6:]))
	deepEqual(t, got.CAS, CAS(3))
}

func TestEnvelope_Invalid(t *testing.T) {
	tests := map[string][]byte{
		"empty":       {},
		"short":       {envelopeVer1},
		"bad version": append([]byte{9}, encodeItem(nil, &Item{CAS: 1})[1:]...),
		"garbage":     {envelopeVer1, 0xC1, 0x00},
		"zero CAS":    encodeItem(nil, &Item{Data: []byte("x")}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := decodeItem(data)
			var de *DataError
			if !errors.As(err, &de) {
				t.Fatalf("decodeItem = %v, wanted *DataError", err)
			}
		})
	}
}

func TestEnvelopeBufPool(t *testing.T) {
	buf := getEnvelopeBuf()
	deepEqual(t, len(buf), 0)
	buf = encodeItem(buf, &Item{Data: []byte("abc"), CAS: 1})
	putEnvelopeBuf(buf)
	putEnvelopeBuf(make([]byte, 0, maxPooledEnvelopeSize+1))
	deepEqual(t, len(getEnvelopeBuf()), 0)
}

func TestAppendWriter(t *testing.T) {
	w := appendWriter("ab")
	n, err := w.Write([]byte("cd"))
	ensure(err)
	deepEqual(t, n, 2)
	deepEqual(t, string(w), "abcd")
}
