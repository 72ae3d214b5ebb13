/*
Package subdoc implements a document store with sub-document operations on top
of a versioned key-value store (in this case, on top of Bolt).

We implement:

1. Whole-document operations: get, upsert, insert, replace, remove, counters,
locks and expiry, all with optimistic concurrency via CAS.

2. Sub-document lookups (LookupIn), reading or checking individual paths inside
a JSON document.

3. Sub-document mutations (MutateIn), changing individual paths inside a JSON
document. A batch is applied in order and stored only if every spec succeeded.

# Technical Details

**Paths.**
A path is a dot-separated list of object keys, each optionally followed by
array accessors: `a.b[2].c`, `list[-1]`, `list[]` (the end of the array, only
valid for writes). A key containing dots or brackets can be quoted with
backticks. Malformed components do not fail parsing; they fail the spec that
uses them with PATH_EINVAL. Only an empty path fails the whole batch.

**Statuses.**
Every spec gets its own Status. A batch with failed specs returns
MULTI_FAILURE listing them. A missing document, a CAS mismatch or a lock refuse
the batch before anything is evaluated, and the Result has no items.

**CAS.**
Every store assigns a new CAS taken from the Bolt bucket sequence, so CAS values
are unique within a bucket and never zero.

## Binary encoding

**Value**: format version byte, then a msgpack map:
1. `c`: CAS.
2. `f`: transcoder flags (the top byte is the value format).
3. `e`: expiry, Unix nanoseconds, omitted if none.
4. `l`: lock deadline, Unix nanoseconds, omitted if not locked.
5. `d`: document bytes, opaque to the store.
*/
package subdoc
