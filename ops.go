package subdoc

import "strconv"

// Op is the kind of a sub-document spec.
type Op uint8

const (
	OpGet Op = iota
	OpExists

	OpUpsert
	OpInsert
	OpReplace
	OpRemove
	OpCounter
	OpArrayAppend
	OpArrayAppendAll
	OpArrayPrepend
	OpArrayInsert
	OpArrayAddUnique
)

var opNames = [...]string{
	OpGet:            "get",
	OpExists:         "exists",
	OpUpsert:         "upsert",
	OpInsert:         "insert",
	OpReplace:        "replace",
	OpRemove:         "remove",
	OpCounter:        "counter",
	OpArrayAppend:    "array_append",
	OpArrayAppendAll: "array_append_all",
	OpArrayPrepend:   "array_prepend",
	OpArrayInsert:    "array_insert",
	OpArrayAddUnique: "array_add_unique",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op" + strconv.Itoa(int(op))
}

func (op Op) IsLookup() bool {
	return op == OpGet || op == OpExists
}

// LookupSpec is one read of a LookupIn batch.
type LookupSpec struct {
	Op   Op
	Path string
}

func Get(path string) LookupSpec    { return LookupSpec{OpGet, path} }
func Exists(path string) LookupSpec { return LookupSpec{OpExists, path} }

func (s LookupSpec) String() string {
	return s.Op.String() + " " + s.Path
}

// MutateSpec is one write of a MutateIn batch. Value is used by the
// single-value ops, Values by the array ops.
type MutateSpec struct {
	Op            Op
	Path          string
	Value         any
	Values        []any
	Delta         int64
	CreateParents bool
}

func Upsert(path string, value any) MutateSpec {
	return MutateSpec{Op: OpUpsert, Path: path, Value: value}
}

func Insert(path string, value any) MutateSpec {
	return MutateSpec{Op: OpInsert, Path: path, Value: value}
}

func Replace(path string, value any) MutateSpec {
	return MutateSpec{Op: OpReplace, Path: path, Value: value}
}

func Remove(path string) MutateSpec {
	return MutateSpec{Op: OpRemove, Path: path}
}

func Counter(path string, delta int64) MutateSpec {
	return MutateSpec{Op: OpCounter, Path: path, Delta: delta}
}

func ArrayAppend(path string, values ...any) MutateSpec {
	return MutateSpec{Op: OpArrayAppend, Path: path, Values: values}
}

func ArrayAppendAll(path string, values []any) MutateSpec {
	return MutateSpec{Op: OpArrayAppendAll, Path: path, Values: values}
}

func ArrayPrepend(path string, values ...any) MutateSpec {
	return MutateSpec{Op: OpArrayPrepend, Path: path, Values: values}
}

// ArrayInsert inserts values before the element addressed by a path ending
// in an index, e.g. "tags[1]". The index may equal the array length.
func ArrayInsert(path string, values ...any) MutateSpec {
	return MutateSpec{Op: OpArrayInsert, Path: path, Values: values}
}

func ArrayAddUnique(path string, value any) MutateSpec {
	return MutateSpec{Op: OpArrayAddUnique, Path: path, Value: value}
}

// WithCreateParents returns a copy of s that creates missing intermediate
// objects.
func (s MutateSpec) WithCreateParents() MutateSpec {
	s.CreateParents = true
	return s
}

func (s MutateSpec) String() string {
	str := s.Op.String() + " " + s.Path
	if s.Op == OpCounter {
		str += " " + strconv.FormatInt(s.Delta, 10)
	}
	if s.CreateParents {
		str += " +p"
	}
	return str
}
