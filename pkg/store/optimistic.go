package store

// Mutated fields tracked for rollback.
const (
	fieldStatus   = "status"
	fieldPriority = "priority"
	fieldCreate   = "create"
)

// pendingMutation captures the pre-change value of one in-flight field
// mutation so a failed remote call can revert it exactly once.
type pendingMutation struct {
	field    string
	original any
}

// pendingSet tracks at most one outstanding mutation record per item.
// A second mutation of the same field overwrites the record: the
// rollback target is last-writer-wins, while the visible value already
// reflects the latest optimistic write.
type pendingSet map[string]pendingMutation

func (p pendingSet) track(id, field string, original any) {
	p[id] = pendingMutation{field: field, original: original}
}

// take removes and returns the record for id if it tracks field.
func (p pendingSet) take(id, field string) (pendingMutation, bool) {
	record, ok := p[id]
	if !ok || record.field != field {
		return pendingMutation{}, false
	}
	delete(p, id)
	return record, true
}

func (p pendingSet) clear(id string) {
	delete(p, id)
}

func (p pendingSet) has(id string) bool {
	_, ok := p[id]
	return ok
}
