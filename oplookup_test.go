package subdoc

import (
	"errors"
	"testing"
)

const lookupFixture = `{
	"name": "Alice",
	"age": 30,
	"tags": ["a", "b", "c"],
	"addr": {"city": "X", "zip": null},
	"matrix": [[1, 2], [3, 4]]
}`

func TestLookupDoc(t *testing.T) {
	d := doc(t, lookupFixture)
	tests := []struct {
		spec   LookupSpec
		status Status
		value  any
	}{
		{Get("name"), StatusSuccess, "Alice"},
		{Get("age"), StatusSuccess, int64(30)},
		{Get("tags[1]"), StatusSuccess, "b"},
		{Get("tags[-1]"), StatusSuccess, "c"},
		{Get("tags"), StatusSuccess, []any{"a", "b", "c"}},
		{Get("addr"), StatusSuccess, map[string]any{"city": "X", "zip": nil}},
		{Get("addr.zip"), StatusSuccess, nil},
		{Get("matrix[1][0]"), StatusSuccess, int64(3)},
		{Exists("addr.city"), StatusSuccess, nil},
		{Exists("addr.street"), StatusPathNotFound, nil},
		{Get("missing"), StatusPathNotFound, nil},
		{Get("missing.x"), StatusPathNotFound, nil},
		{Get("tags[5]"), StatusPathNotFound, nil},
		{Get("name.first"), StatusPathMismatch, nil},
		{Get("name.x.y"), StatusPathMismatch, nil},
		{Get("tags.x"), StatusPathMismatch, nil},
		{Get("addr[0]"), StatusPathMismatch, nil},
		{Get("tags[]"), StatusPathInvalid, nil},
		{Get("addr..city"), StatusPathInvalid, nil},
		{Get("tags[x]"), StatusPathInvalid, nil},
	}
	for _, tt := range tests {
		t.Run(tt.spec.String(), func(t *testing.T) {
			res, err := LookupDoc(d, []LookupSpec{tt.spec})
			deepEqual(t, len(res.Items), 1)
			deepEqual(t, res.Status(0), tt.status)
			deepEqual(t, res.Value(0), tt.value)
			if tt.status == StatusSuccess {
				if err != nil {
					t.Errorf("err = %v, wanted nil", err)
				}
			} else if !errors.Is(err, ErrMultiFailure) {
				t.Errorf("err = %v, wanted MULTI_FAILURE", err)
			}
		})
	}
}

func TestLookupDoc_Batch(t *testing.T) {
	d := doc(t, lookupFixture)
	res, err := LookupDoc(d, []LookupSpec{
		Exists("name"),
		Get("nope"),
		Get("age"),
		Get("tags.x"),
	})
	deepEqual(t, res.Items, []ItemResult{
		{Status: StatusSuccess},
		{Status: StatusPathNotFound},
		{Status: StatusSuccess, Value: int64(30)},
		{Status: StatusPathMismatch},
	})
	var e *Error
	if !errors.As(err, &e) || e.Status != StatusMultiFailure {
		t.Fatalf("err = %v, wanted MULTI_FAILURE", err)
	}
	deepEqual(t, e.Failed, []int{1, 3})
}

func TestLookupDoc_Rejected(t *testing.T) {
	d := doc(t, lookupFixture)

	res, err := LookupDoc(d, nil)
	if res != nil || !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("LookupDoc(no specs) = %v, %v, wanted INVALID_ARGUMENT", res, err)
	}

	res, err = LookupDoc(d, []LookupSpec{Get("name"), Get("")})
	if res != nil || !errors.Is(err, ErrEmptyPath) {
		t.Errorf("LookupDoc(empty path) = %v, %v, wanted EMPTY_PATH", res, err)
	}

	res, err = LookupDoc(d, []LookupSpec{{Op: OpUpsert, Path: "name"}})
	if res != nil || !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("LookupDoc(upsert) = %v, %v, wanted INVALID_ARGUMENT", res, err)
	}
}

func TestResult_Accessors(t *testing.T) {
	var nilRes *Result
	deepEqual(t, nilRes.Value(0), nil)
	deepEqual(t, nilRes.Status(0), StatusInvalidArgument)
	deepEqual(t, nilRes.String(), "<nil>")

	res := &Result{CAS: 0x1f, Items: []ItemResult{{Status: StatusSuccess, Value: "x"}, {Status: StatusPathNotFound}}}
	deepEqual(t, res.Value(0), any("x"))
	deepEqual(t, res.Value(5), nil)
	deepEqual(t, res.Status(-1), StatusInvalidArgument)
	deepEqual(t, res.String(), "cas=1f [SUCCESS PATH_ENOENT]")
	if !res.Items[0].OK() || res.Items[0].Err() != nil {
		t.Errorf("successful item reports failure")
	}
	if !errors.Is(res.Items[1].Err(), ErrPathNotFound) {
		t.Errorf("Items[1].Err() = %v, wanted PATH_ENOENT", res.Items[1].Err())
	}
}
