package subdoc

// resolve walks every step of p from root. The first violation, root to
// leaf, decides the status.
func resolve(root *Node, p Path) (*Node, Status) {
	cur := root
	for _, step := range p {
		next, st := child(cur, step)
		if st != StatusSuccess {
			return nil, st
		}
		cur = next
	}
	return cur, StatusSuccess
}

func child(cur *Node, step Step) (*Node, Status) {
	switch step.Kind {
	case StepKey:
		if cur.kind != KindObject {
			return nil, StatusPathMismatch
		}
		next := cur.obj[step.Name]
		if next == nil {
			return nil, StatusPathNotFound
		}
		return next, StatusSuccess
	case StepIndex:
		if cur.kind != KindArray {
			return nil, StatusPathMismatch
		}
		next := cur.Elem(step.Index)
		if next == nil {
			return nil, StatusPathNotFound
		}
		return next, StatusSuccess
	case StepAppend, StepInvalid:
		return nil, StatusPathInvalid
	default:
		panic("unreachable")
	}
}

// resolveParent walks all steps but the last and returns the container the
// last step applies to. With createParents, missing object keys along the way
// are created; missing array elements never are.
func resolveParent(root *Node, p Path, createParents bool) (*Node, Status) {
	cur := root
	for i, step := range p[:len(p)-1] {
		next, st := child(cur, step)
		if st == StatusPathNotFound && createParents && step.Kind == StepKey {
			return createParentChain(cur, p[i:])
		}
		if st != StatusSuccess {
			return nil, st
		}
		cur = next
	}
	return cur, StatusSuccess
}

// createParentChain adds the missing key p[0] to obj, plus a container for
// every following step but the last, and returns the innermost one. Nothing
// is added unless the whole chain can be.
func createParentChain(obj *Node, p Path) (*Node, Status) {
	for i, step := range p[1:] {
		switch step.Kind {
		case StepKey:
		case StepAppend:
			if i+1 != len(p)-1 {
				return nil, StatusPathInvalid
			}
		case StepIndex:
			return nil, StatusPathNotFound
		case StepInvalid:
			return nil, StatusPathInvalid
		default:
			panic("unreachable")
		}
	}
	cur := obj
	for i, step := range p[:len(p)-1] {
		next := NewObject()
		if p[i+1].Kind == StepAppend {
			next = NewArray()
		}
		cur.Set(step.Name, next)
		cur = next
	}
	return cur, StatusSuccess
}
