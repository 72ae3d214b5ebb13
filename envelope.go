package subdoc

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	envelopeVer1      = 1
	envelopeVerLatest = envelopeVer1
)

// envelope is the stored form of an Item: a format version byte followed by
// this struct in msgpack. Document bytes are kept opaque.
type envelope struct {
	CAS         uint64 `msgpack:"c"`
	Flags       uint32 `msgpack:"f,omitempty"`
	Expiry      int64  `msgpack:"e,omitempty"`
	LockedUntil int64  `msgpack:"l,omitempty"`
	Data        []byte `msgpack:"d"`
}

func encodeItem(buf []byte, item *Item) []byte {
	env := envelope{
		CAS:         uint64(item.CAS),
		Flags:       item.Flags,
		Expiry:      unixNanoOrZero(item.Expiry),
		LockedUntil: unixNanoOrZero(item.LockedUntil),
		Data:        item.Data,
	}
	w := appendWriter(append(buf, envelopeVerLatest))
	enc := msgpack.GetEncoder()
	enc.Reset(&w)
	err := enc.Encode(&env)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode item envelope: %w", err))
	}
	return w
}

// appendWriter lets msgpack encode straight onto a caller's buffer.
type appendWriter []byte

func (w *appendWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}

// Envelope buffers are reused across writes; huge ones are left to the GC.
const maxPooledEnvelopeSize = 1024 * 1024

var envelopeBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 64*1024)
	},
}

func getEnvelopeBuf() []byte {
	return envelopeBufPool.Get().([]byte)[:0]
}

func putEnvelopeBuf(b []byte) {
	if cap(b) <= maxPooledEnvelopeSize {
		envelopeBufPool.Put(b[:0])
	}
}

func decodeItem(data []byte) (*Item, error) {
	if len(data) < 2 {
		return nil, dataErrf(data, 0, nil, "invalid item: too short")
	}
	if ver := data[0]; ver != envelopeVer1 {
		return nil, dataErrf(data, 0, nil, "invalid item: unsupported format version %d", ver)
	}

	var env envelope
	dec := msgpack.GetDecoder()
	dec.Reset(bytes.NewReader(data[1:]))
	err := dec.Decode(&env)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(data, 1, err, "invalid item")
	}
	if env.CAS == 0 {
		return nil, dataErrf(data, 1, nil, "invalid item: zero CAS")
	}
	return &Item{
		Data:        env.Data,
		Flags:       env.Flags,
		CAS:         CAS(env.CAS),
		Expiry:      timeOrZero(env.Expiry),
		LockedUntil: timeOrZero(env.LockedUntil),
	}, nil
}

func unixNanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func timeOrZero(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
