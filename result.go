package subdoc

import (
	"fmt"
	"strings"
)

// ItemResult is the outcome of one spec. Value is nil for failed specs, for
// Exists, for writes other than Counter, and for every spec of a failed
// mutation batch.
type ItemResult struct {
	Status Status
	Value  any
}

func (r ItemResult) OK() bool {
	return r.Status == StatusSuccess
}

// Err returns nil for a successful item.
func (r ItemResult) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	return &Error{Status: r.Status}
}

// Result is the outcome of a LookupIn or MutateIn batch. Items are aligned
// with the specs, except when the batch was rejected as a whole, in which case
// there are none.
type Result struct {
	CAS   CAS
	Items []ItemResult
}

// Value returns the value of the i-th item, or nil when there is no such item.
func (r *Result) Value(i int) any {
	if r == nil || i < 0 || i >= len(r.Items) {
		return nil
	}
	return r.Items[i].Value
}

// Status returns the status of the i-th item, or StatusInvalidArgument when
// there is no such item.
func (r *Result) Status(i int) Status {
	if r == nil || i < 0 || i >= len(r.Items) {
		return StatusInvalidArgument
	}
	return r.Items[i].Status
}

// aggregate folds item outcomes into a Result and a MULTI_FAILURE error
// naming the failed positions, if any.
func aggregate(key string, cas CAS, items []ItemResult) (*Result, error) {
	res := &Result{CAS: cas, Items: items}
	var failed []int
	for i, item := range items {
		if item.Status != StatusSuccess {
			failed = append(failed, i)
		}
	}
	if failed == nil {
		return res, nil
	}
	return res, &Error{Status: StatusMultiFailure, Key: key, Failed: failed}
}

// wholeDocFailure reports the same status for every spec, used when the
// document itself cannot be evaluated.
func wholeDocFailure(key string, cas CAS, n int, status Status, err error) (*Result, error) {
	items := make([]ItemResult, n)
	for i := range items {
		items[i].Status = status
	}
	return &Result{CAS: cas, Items: items}, &Error{Status: status, Key: key, Err: err}
}

// rejected reports a batch that was refused before any spec was evaluated.
func rejected(key string, err error) (*Result, error) {
	if e, ok := err.(*Error); ok && e.Key == "" {
		c := *e
		c.Key = key
		err = &c
	}
	return &Result{Items: []ItemResult{}}, err
}

func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "cas=%v [", r.CAS)
	for i, item := range r.Items {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(item.Status.String())
	}
	buf.WriteByte(']')
	return buf.String()
}
