package subdoc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type StoreStats struct {
	Items     int
	DataSize  int64
	DataAlloc int64
	FileSize  int64
}

func (s *KVStore) Stats() (StoreStats, error) {
	tx, b, err := s.begin(false)
	if err != nil {
		return StoreStats{}, err
	}
	defer tx.Rollback()
	bs := b.Stats()
	return StoreStats{
		Items:     bs.Keys,
		DataSize:  bs.Inuse,
		DataAlloc: bs.Alloc,
		FileSize:  tx.FileSize(),
	}, nil
}

type DumpFlags uint64

const (
	DumpStats = DumpFlags(1 << iota)
	DumpItems
	DumpData

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var dumpSep = strings.Repeat("=", 80)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the store contents for debugging, including expired and locked
// items.
func (s *KVStore) Dump(f DumpFlags) string {
	var buf strings.Builder
	err := s.view(func(b storageBucket) error {
		now := s.now()
		bs := b.Stats()
		fmt.Fprintln(&buf, dumpSep)
		fmt.Fprintf(&buf, "%s (%d items)\n", s.bucket, bs.Keys)
		if f.Contains(DumpStats) {
			fmt.Fprintf(&buf, "%s.stats: data_size = %d, total_alloc = %d\n", s.bucket, bs.Inuse, bs.Alloc)
		}
		if !f.Contains(DumpItems) {
			return nil
		}
		return b.Scan(nil, func(k, v []byte) error {
			item, err := decodeItem(v)
			if err != nil {
				fmt.Fprintf(&buf, "%s.%s: %v\n", s.bucket, k, err)
				return nil
			}
			fmt.Fprintf(&buf, "%s.%s: cas=%v flags=%x size=%d", s.bucket, k, item.CAS, item.Flags, len(item.Data))
			if !item.Expiry.IsZero() {
				fmt.Fprintf(&buf, " expiry=%s", dumpTime(item.Expiry, now))
			}
			if item.locked(now) {
				fmt.Fprintf(&buf, " locked=%s", dumpTime(item.LockedUntil, now))
			}
			if f.Contains(DumpData) {
				buf.WriteString(" ")
				buf.WriteString(loggableData(item))
			}
			buf.WriteString("\n")
			return nil
		})
	})
	if err != nil {
		fmt.Fprintf(&buf, "** %v\n", err)
	}
	return buf.String()
}

func dumpTime(t, now time.Time) string {
	if t.After(now) {
		return "+" + t.Sub(now).String()
	}
	return "expired"
}

func loggableData(item *Item) string {
	switch item.Flags & FlagFormatMask {
	case FlagFormatJSON, FlagFormatString:
		return strconv.Quote(string(item.Data))
	default:
		return fmt.Sprintf("%x", item.Data)
	}
}
