package subdoc

import "time"

type MutateOptions struct {
	// CAS, when non-zero, must match the stored document or the batch is
	// refused with KEY_EEXISTS.
	CAS CAS
	// Expiry, when positive, resets the document expiration. Otherwise the
	// existing one is kept.
	Expiry time.Duration
	// CreateDocument starts from an empty object when the document is missing.
	CreateDocument bool
}

// LookupIn evaluates read specs against the document stored under key.
//
// A missing document, a malformed spec or an empty path refuse the whole
// batch: the Result has no items. A document that is not JSON fails every
// item with DOC_NOTJSON. Otherwise each item carries its own status and the
// returned error is MULTI_FAILURE when any of them failed.
func (b *Bucket) LookupIn(key string, specs ...LookupSpec) (*Result, error) {
	if err := b.checkKey(key); err != nil {
		return rejected(key, err)
	}
	paths, err := parseLookupSpecs(b.paths.Parse, specs)
	if err != nil {
		return rejected(key, err)
	}
	item, err := b.store.Fetch(key)
	if err != nil {
		if b.verbose {
			b.logf("subdoc: LOOKUP_IN %s %v => %v", key, specs, err)
		}
		return rejected(key, err)
	}
	cas := b.visibleCAS(item)
	doc, err := DecodeJSON(item.Data)
	if err != nil {
		return wholeDocFailure(key, cas, len(specs), StatusDocNotJSON, err)
	}

	res, err := aggregate(key, cas, lookupTree(doc, specs, paths))
	if b.verbose {
		b.logf("subdoc: LOOKUP_IN %s %v => %v", key, specs, res)
	}
	return res, err
}

// RetrieveIn fetches a single path.
func (b *Bucket) RetrieveIn(key string, path string) (*Result, error) {
	return b.LookupIn(key, Get(path))
}

// MutateIn applies write specs to the document stored under key, in order,
// and stores the result only if every spec succeeded.
//
// Without opt.CAS a concurrent modification between the read and the write
// makes the whole batch run again on the fresh document.
func (b *Bucket) MutateIn(key string, specs []MutateSpec, opt *MutateOptions) (*Result, error) {
	if err := b.checkKey(key); err != nil {
		return rejected(key, err)
	}
	var o MutateOptions
	if opt != nil {
		o = *opt
	}
	paths, err := parseMutateSpecs(b.paths.Parse, specs)
	if err != nil {
		return rejected(key, err)
	}

	for attempt := 1; ; attempt++ {
		res, retry, err := b.mutateOnce(key, specs, paths, &o)
		if retry && o.CAS == 0 && attempt < maxCASRetries {
			if b.verbose {
				b.logf("subdoc: MUTATE_IN %s: conflict, retrying (attempt %d)", key, attempt)
			}
			continue
		}
		if b.verbose {
			if err != nil {
				b.logf("subdoc: MUTATE_IN %s %v => %v: %v", key, specs, res, err)
			} else {
				b.logf("subdoc: MUTATE_IN %s %v => %v", key, specs, res)
			}
		}
		return res, err
	}
}

func (b *Bucket) mutateOnce(key string, specs []MutateSpec, paths []Path, o *MutateOptions) (res *Result, conflict bool, err error) {
	item, err := b.store.Fetch(key)
	if err != nil && !(o.CreateDocument && o.CAS == 0 && StatusOf(err) == StatusKeyNotFound) {
		res, err = rejected(key, err)
		return res, false, err
	}

	var doc *Node
	var cond Cond
	var expiry time.Time
	if item == nil {
		doc = NewObject()
		cond = Cond{Absent: true}
	} else {
		if err := checkCond(key, item, Cond{CAS: o.CAS}, b.now()); err != nil {
			res, err = rejected(key, err)
			return res, false, err
		}
		doc, err = DecodeJSON(item.Data)
		if err != nil {
			res, err = wholeDocFailure(key, 0, len(specs), StatusDocNotJSON, err)
			return res, false, err
		}
		cond = Cond{CAS: item.CAS}
		expiry = item.Expiry
	}
	if o.Expiry > 0 {
		expiry = b.now().Add(o.Expiry)
	}

	res, err = aggregate(key, 0, mutateTree(doc, specs, paths))
	if err != nil {
		return res, false, err
	}

	data := doc.AppendJSON(nil)
	if err := b.checkSize(key, data); err != nil {
		res, err = rejected(key, err)
		return res, false, err
	}
	cas, err := b.store.Store(key, &Item{Data: data, Flags: FlagFormatJSON, Expiry: expiry}, cond)
	if err != nil {
		// KEY_EEXISTS here means someone else wrote (or created) the document
		// after we read it.
		conflict = StatusOf(err) == StatusKeyExists
		res, err = rejected(key, err)
		return res, conflict, err
	}
	res.CAS = cas
	return res, false, nil
}
