package subdoc

import (
	"fmt"
	"math"
)

// MutateDoc evaluates write specs against a copy of doc. The new tree is
// returned only when every spec succeeded; doc itself is never modified.
func MutateDoc(doc *Node, specs []MutateSpec) (*Node, *Result, error) {
	paths, err := parseMutateSpecs(ParsePath, specs)
	if err != nil {
		return nil, nil, err
	}
	doc = doc.Clone()
	res, err := aggregate("", 0, mutateTree(doc, specs, paths))
	if err != nil {
		return nil, res, err
	}
	return doc, res, nil
}

// mutateTree applies specs in order to doc in place. A failed spec does not
// stop the ones after it; when anything failed, successful items lose their
// values, since nothing will be stored.
func mutateTree(doc *Node, specs []MutateSpec, paths []Path) []ItemResult {
	items := make([]ItemResult, len(specs))
	var failed bool
	for i := range specs {
		v, st := applyMutation(doc, &specs[i], paths[i])
		items[i] = ItemResult{Status: st, Value: v}
		if st != StatusSuccess {
			failed = true
		}
	}
	if failed {
		for i := range items {
			items[i].Value = nil
		}
	}
	return items
}

func parseMutateSpecs(parse func(string) (Path, error), specs []MutateSpec) ([]Path, error) {
	if len(specs) == 0 {
		return nil, statusErrf(StatusInvalidArgument, "", nil, "no mutation specs")
	}
	paths := make([]Path, len(specs))
	for i, spec := range specs {
		if spec.Op.IsLookup() || int(spec.Op) >= len(opNames) {
			return nil, statusErrf(StatusInvalidArgument, "", nil, "spec #%d: %v is not a mutation", i, spec.Op)
		}
		p, err := parse(spec.Path)
		if err != nil {
			return nil, &Error{Status: StatusEmptyPath, Msg: fmt.Sprintf("spec #%d (%v)", i, spec.Op)}
		}
		paths[i] = p
	}
	return paths, nil
}

func applyMutation(doc *Node, spec *MutateSpec, p Path) (any, Status) {
	if spec.Op == OpCounter && spec.Delta == 0 {
		return nil, StatusBadDelta
	}

	var value *Node
	switch spec.Op {
	case OpUpsert, OpInsert, OpReplace, OpArrayAddUnique:
		var err error
		value, err = ValueToNode(spec.Value)
		if err != nil {
			return nil, StatusValueCantInsert
		}
		if spec.Op == OpArrayAddUnique && !value.isPrimitive() {
			return nil, StatusValueCantInsert
		}
	}
	var values []*Node
	switch spec.Op {
	case OpArrayAppend, OpArrayAppendAll, OpArrayPrepend, OpArrayInsert:
		if len(spec.Values) == 0 {
			return nil, StatusInvalidArgument
		}
		values = make([]*Node, len(spec.Values))
		for i, v := range spec.Values {
			n, err := ValueToNode(v)
			if err != nil {
				return nil, StatusValueCantInsert
			}
			values[i] = n
		}
	}

	createParents := spec.CreateParents
	if spec.Op == OpReplace || spec.Op == OpRemove {
		createParents = false
	}
	parent, st := resolveParent(doc, p, createParents)
	if st != StatusSuccess {
		return nil, st
	}
	last := p.last()

	switch spec.Op {
	case OpArrayAppend, OpArrayAppendAll, OpArrayPrepend, OpArrayAddUnique:
		arr, st := arrayTarget(parent, last, createParents)
		if st != StatusSuccess {
			return nil, st
		}
		return nil, applyArrayOp(arr, spec.Op, value, values)
	}

	switch last.Kind {
	case StepKey:
		if parent.kind != KindObject {
			return nil, StatusPathMismatch
		}
		return mutateKey(parent, last.Name, spec, value)
	case StepIndex:
		return mutateIndex(parent, last.Index, spec, value, values)
	case StepAppend:
		if spec.Op != OpUpsert && spec.Op != OpInsert {
			return nil, StatusPathInvalid
		}
		if parent.kind != KindArray {
			return nil, StatusPathMismatch
		}
		parent.insertElems(len(parent.arr), []*Node{value})
		return nil, StatusSuccess
	case StepInvalid:
		return nil, StatusPathInvalid
	default:
		panic("unreachable")
	}
}

func mutateKey(obj *Node, key string, spec *MutateSpec, value *Node) (any, Status) {
	existing := obj.obj[key]
	switch spec.Op {
	case OpUpsert:
		obj.Set(key, value)
	case OpInsert:
		if existing != nil {
			return nil, StatusPathExists
		}
		obj.Set(key, value)
	case OpReplace:
		if existing == nil {
			return nil, StatusPathNotFound
		}
		obj.Set(key, value)
	case OpRemove:
		if existing == nil {
			return nil, StatusPathNotFound
		}
		obj.Delete(key)
	case OpCounter:
		if existing == nil {
			obj.Set(key, NewInt(spec.Delta))
			return spec.Delta, StatusSuccess
		}
		return incrementNode(existing, spec.Delta)
	case OpArrayInsert:
		return nil, StatusPathInvalid
	default:
		panic(fmt.Errorf("unexpected op %v", spec.Op))
	}
	return nil, StatusSuccess
}

// mutateIndex handles a path ending in an array index. Elements cannot be
// assigned by upsert or insert; they are replaced, removed, incremented or
// inserted before.
func mutateIndex(arr *Node, idx int, spec *MutateSpec, value *Node, values []*Node) (any, Status) {
	switch spec.Op {
	case OpUpsert, OpInsert:
		return nil, StatusPathInvalid
	}
	if arr.kind != KindArray {
		return nil, StatusPathMismatch
	}

	if spec.Op == OpArrayInsert {
		if idx < 0 {
			return nil, StatusPathInvalid
		}
		if idx > len(arr.arr) {
			return nil, StatusPathNotFound
		}
		arr.insertElems(idx, values)
		return nil, StatusSuccess
	}

	if idx < 0 {
		idx += len(arr.arr)
	}
	if idx < 0 || idx >= len(arr.arr) {
		return nil, StatusPathNotFound
	}
	switch spec.Op {
	case OpReplace:
		arr.arr[idx] = value
	case OpRemove:
		arr.removeElem(idx)
	case OpCounter:
		return incrementNode(arr.arr[idx], spec.Delta)
	default:
		panic(fmt.Errorf("unexpected op %v", spec.Op))
	}
	return nil, StatusSuccess
}

func incrementNode(n *Node, delta int64) (any, Status) {
	if !n.isIntegralLiteral() {
		return nil, StatusPathMismatch
	}
	v, ok := n.Int()
	if !ok {
		return nil, StatusNumRange
	}
	if (delta > 0 && v > math.MaxInt64-delta) || (delta < 0 && v < math.MinInt64-delta) {
		return nil, StatusNumRange
	}
	v += delta
	*n = *NewInt(v)
	return v, StatusSuccess
}

// arrayTarget finds the array an append/prepend/add-unique spec addresses,
// creating it when missing and createParents is set.
func arrayTarget(parent *Node, last Step, createParents bool) (*Node, Status) {
	var target *Node
	switch last.Kind {
	case StepKey:
		if parent.kind != KindObject {
			return nil, StatusPathMismatch
		}
		target = parent.obj[last.Name]
		if target == nil {
			if !createParents {
				return nil, StatusPathNotFound
			}
			target = NewArray()
			parent.Set(last.Name, target)
		}
	case StepIndex:
		if parent.kind != KindArray {
			return nil, StatusPathMismatch
		}
		target = parent.Elem(last.Index)
		if target == nil {
			return nil, StatusPathNotFound
		}
	case StepAppend, StepInvalid:
		return nil, StatusPathInvalid
	default:
		panic("unreachable")
	}
	if target.kind != KindArray {
		return nil, StatusPathMismatch
	}
	return target, StatusSuccess
}

func applyArrayOp(arr *Node, op Op, value *Node, values []*Node) Status {
	switch op {
	case OpArrayAppend, OpArrayAppendAll:
		arr.insertElems(len(arr.arr), values)
	case OpArrayPrepend:
		arr.insertElems(0, values)
	case OpArrayAddUnique:
		for _, e := range arr.arr {
			if !e.isPrimitive() {
				return StatusPathMismatch
			}
		}
		for _, e := range arr.arr {
			if e.Equal(value) {
				return StatusPathExists
			}
		}
		arr.insertElems(len(arr.arr), []*Node{value})
	default:
		panic(fmt.Errorf("unexpected op %v", op))
	}
	return StatusSuccess
}
