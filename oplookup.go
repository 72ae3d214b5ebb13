package subdoc

import "fmt"

// LookupDoc evaluates read specs against an in-memory document.
func LookupDoc(doc *Node, specs []LookupSpec) (*Result, error) {
	paths, err := parseLookupSpecs(ParsePath, specs)
	if err != nil {
		return nil, err
	}
	return aggregate("", 0, lookupTree(doc, specs, paths))
}

func lookupTree(doc *Node, specs []LookupSpec, paths []Path) []ItemResult {
	items := make([]ItemResult, len(specs))
	for i, spec := range specs {
		n, st := resolve(doc, paths[i])
		items[i].Status = st
		if st == StatusSuccess && spec.Op == OpGet {
			items[i].Value = n.Interface()
		}
	}
	return items
}

func parseLookupSpecs(parse func(string) (Path, error), specs []LookupSpec) ([]Path, error) {
	if len(specs) == 0 {
		return nil, statusErrf(StatusInvalidArgument, "", nil, "no lookup specs")
	}
	paths := make([]Path, len(specs))
	for i, spec := range specs {
		if !spec.Op.IsLookup() {
			return nil, statusErrf(StatusInvalidArgument, "", nil, "spec #%d: %v is not a lookup", i, spec.Op)
		}
		p, err := parse(spec.Path)
		if err != nil {
			return nil, &Error{Status: StatusEmptyPath, Msg: fmt.Sprintf("spec #%d (%v)", i, spec.Op)}
		}
		paths[i] = p
	}
	return paths, nil
}
