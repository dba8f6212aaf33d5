/*
validator.go - State transition validator

PURPOSE:
  Partitions a submitted batch into admissible and rejected items
  against one snapshot. Pure: no side effects, input order preserved
  within each partition. The wildcard allow-list is checked before the
  rule table so freshly registered or freshly maintained tanks always
  proceed.

SEE ALSO:
  - types.go: Rules, wildcard statuses
*/
package inventory

// Validate checks each item of a batch against the rule table for op.
// Items whose canonical key is absent from the snapshot are rejected
// with ID_NOT_FOUND; items whose current status is inadmissible are
// rejected with STATUS_MISMATCH carrying the observed status. An
// operation absent from the rule table admits everything - the
// dispatcher rejects unknown operations before calling here, and
// maintenance modes validate by listing, not by rule.
func Validate(items []Item, op Operation, snap *Snapshot) (valid []Item, failed []FailedItem) {
	rule, hasRule := Rules[op]
	if !hasRule {
		return items, nil
	}

	for _, item := range items {
		idx, ok := snap.RowIndex(item.ID)
		if !ok {
			failed = append(failed, FailedItem{ID: item.ID, Reason: ReasonIDNotFound})
			continue
		}

		current := Status(snap.Rows[idx][colStatus])
		if IsWildcard(current) || len(rule.AllowedPrev) == 0 || containsStatus(rule.AllowedPrev, current) {
			valid = append(valid, item)
			continue
		}
		failed = append(failed, FailedItem{ID: item.ID, Reason: ReasonStatusMismatch, Observed: current})
	}
	return valid, failed
}

func containsStatus(set []Status, st Status) bool {
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}
