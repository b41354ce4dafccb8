package bulkaction

import "fmt"

// Partition holds the three disjoint reference lists of a bulk action.
// Methods never modify the receiver; each returns a new Partition, so one
// orchestration step can compute the next partition from an immutable input
// and swap it in at the end.
type Partition struct {
	Pending   []CaseReference
	Errored   []CaseReference
	Processed []CaseReference
}

// Outstanding returns the references still needing work: pending first, then
// errored, in list order.
func (p Partition) Outstanding() []CaseReference {
	out := make([]CaseReference, 0, len(p.Pending)+len(p.Errored))
	seen := make(map[string]bool, len(p.Pending)+len(p.Errored))
	for _, list := range [][]CaseReference{p.Pending, p.Errored} {
		for _, r := range list {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out
}

// Apply records the outcome of one trigger pass. Every attempted reference
// absent from failed moves to processed; every failed reference moves to
// errored. Only references still pending or errored move, so a reference
// removed since the pass started is not brought back. References that were
// not attempted keep their place.
func (p Partition) Apply(attempted, failed []CaseReference) Partition {
	failedIDs := idSet(failed)
	outstanding := idSet(p.Outstanding())
	var succeeded, errored []CaseReference
	for _, r := range attempted {
		if !outstanding[r.ID] {
			continue
		}
		if failedIDs[r.ID] {
			errored = append(errored, r)
		} else {
			succeeded = append(succeeded, r)
		}
	}

	moved := idSet(append(succeeded, errored...))
	return Partition{
		Pending:   without(p.Pending, moved),
		Errored:   appendAbsent(without(p.Errored, idSet(succeeded)), errored),
		Processed: appendAbsent(without(p.Processed, idSet(errored)), succeeded),
	}
}

// Remove drops the given ids from every list. Absent ids are ignored.
func (p Partition) Remove(ids ...string) Partition {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return Partition{
		Pending:   without(p.Pending, drop),
		Errored:   without(p.Errored, drop),
		Processed: without(p.Processed, drop),
	}
}

// RemoveFailed drops permanently failed ids from errored and pending.
// Processed references are kept.
func (p Partition) RemoveFailed(ids ...string) Partition {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return Partition{
		Pending:   without(p.Pending, drop),
		Errored:   without(p.Errored, drop),
		Processed: clone(p.Processed),
	}
}

// AddPending appends references that are not yet in any list.
func (p Partition) AddPending(refs ...CaseReference) Partition {
	all := idSet(p.Pending)
	for id := range idSet(p.Errored) {
		all[id] = true
	}
	for id := range idSet(p.Processed) {
		all[id] = true
	}

	pending := clone(p.Pending)
	for _, r := range refs {
		if all[r.ID] {
			continue
		}
		all[r.ID] = true
		pending = append(pending, r)
	}
	return Partition{Pending: pending, Errored: clone(p.Errored), Processed: clone(p.Processed)}
}

// IsEmpty reports whether nothing is pending or errored.
func (p Partition) IsEmpty() bool {
	return len(p.Pending) == 0 && len(p.Errored) == 0
}

// Members returns every reference in the partition.
func (p Partition) Members() []CaseReference {
	out := make([]CaseReference, 0, len(p.Pending)+len(p.Errored)+len(p.Processed))
	out = append(out, p.Pending...)
	out = append(out, p.Errored...)
	return append(out, p.Processed...)
}

// Contains reports whether id is in any list.
func (p Partition) Contains(id string) bool {
	for _, r := range p.Members() {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Validate checks that the lists are pairwise disjoint and free of duplicates.
func (p Partition) Validate() error {
	where := map[string]string{}
	lists := []struct {
		name string
		refs []CaseReference
	}{
		{"pending", p.Pending},
		{"errored", p.Errored},
		{"processed", p.Processed},
	}
	for _, l := range lists {
		for _, r := range l.refs {
			if prev, ok := where[r.ID]; ok {
				return fmt.Errorf("case %s appears in both %s and %s", r.ID, prev, l.name)
			}
			where[r.ID] = l.name
		}
	}
	return nil
}

// IDs returns the ids of refs in order.
func IDs(refs []CaseReference) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

func idSet(refs []CaseReference) map[string]bool {
	set := make(map[string]bool, len(refs))
	for _, r := range refs {
		set[r.ID] = true
	}
	return set
}

func without(refs []CaseReference, drop map[string]bool) []CaseReference {
	out := make([]CaseReference, 0, len(refs))
	for _, r := range refs {
		if !drop[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func appendAbsent(refs []CaseReference, add []CaseReference) []CaseReference {
	present := idSet(refs)
	for _, r := range add {
		if present[r.ID] {
			continue
		}
		present[r.ID] = true
		refs = append(refs, r)
	}
	return refs
}

func clone(refs []CaseReference) []CaseReference {
	out := make([]CaseReference, len(refs))
	copy(out, refs)
	return out
}
