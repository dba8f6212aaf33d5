/*
writer.go - Status mutation and history-log append

PURPOSE:
  The shared write path of every operation. Applies validated
  mutations to the in-memory snapshot, then persists with exactly two
  store calls: one bulk write-back of the whole status grid and one
  bulk append of the generated history rows. At the store's
  granularity that is as atomic as this system gets.

COLUMN RULES (status sheet):
  status/location/staff  always overwritten
  note (F)               cleared on empty/filled, set on damaged
  log note (G)           carries the note for every other transition
  updated-at (H)         stamped with the mutation instant
  type (I)               preserved untouched

  Rows are padded to the 9-column layout before any write so sparse
  historical rows never misalign the bulk write.

SEE ALSO:
  - dispatcher.go: selects status/location/action per operation
*/
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tanklink/tankops/sheet"
	"github.com/tanklink/tankops/tankid"
)

// mutation describes one uniform state change applied to a validated
// item set.
type mutation struct {
	items       []Item
	newStatus   Status
	newLocation string
	// keepLocation leaves each tank's location column untouched
	// (damage reports: a broken tank stays where it broke).
	keepLocation bool
	action       string
	// actionFor overrides the log action label per item, keyed by
	// normalized ID. Returns from in-house use log as the 自社返却
	// family while the rest of the batch keeps the plain label.
	actionFor map[string]string
	staff     string
	// prevLocOverride records a different "prior location" in the log
	// than the tank's current location field. Lending passes the
	// destination here so billing can reconcile against it later.
	prevLocOverride *string
}

// logSheetFor returns the year-partitioned history sheet name for t,
// creating it with the fixed header on first use.
func logSheetFor(ctx context.Context, st sheet.Store, t time.Time) (string, error) {
	name := sheet.YearSheet(SheetLogBase, t.Year())
	if err := st.EnsureSheet(ctx, name, LogHeader); err != nil {
		return "", fmt.Errorf("ensure log sheet %s: %w", name, err)
	}
	return name, nil
}

// applyMutation mutates the snapshot for every resolvable item, writes
// the full grid back, and appends one history row per success. Store
// errors abort with no Result; the dispatcher surfaces them as a
// batch-fatal structured failure.
func applyMutation(ctx context.Context, st sheet.Store, snap *Snapshot, m mutation, now time.Time) (*Result, error) {
	if snap == nil || snap.idMap == nil {
		return nil, ErrSnapshotStale
	}

	timeOfDay := now.Format(TimeOfDayLayout)
	stamp := now.Format(TimeLayout)

	var (
		successIDs []string
		failed     []FailedItem
		logRows    [][]string
	)

	for _, item := range m.items {
		idx, ok := snap.RowIndex(item.ID)
		if !ok {
			// Validator already filtered these; defensively keep the
			// batch going if one slips through.
			failed = append(failed, FailedItem{ID: item.ID, Reason: ReasonIDNotFound})
			continue
		}

		row := sheet.PadRow(snap.Rows[idx], rowWidth)
		logID := tankid.FormatDisplay(row[colID])
		tankType := row[colTankType]

		prevLoc := row[colLocation]
		if m.prevLocOverride != nil {
			prevLoc = *m.prevLocOverride
		}

		row[colStatus] = string(m.newStatus)
		loc := row[colLocation]
		if !m.keepLocation {
			row[colLocation] = m.newLocation
			loc = m.newLocation
		}
		row[colStaff] = m.staff

		switch {
		case m.newStatus == StatusEmpty || m.newStatus == StatusFilled:
			row[colNote] = ""
			row[colLogNote] = item.Note
		case IsDamaged(m.newStatus):
			if item.Note != "" {
				row[colNote] = item.Note
			}
		default:
			row[colLogNote] = item.Note
		}

		row[colUpdatedAt] = stamp
		snap.Rows[idx] = row

		action := m.action
		if v, ok := m.actionFor[tankid.Normalize(item.ID)]; ok {
			action = v
		}

		successIDs = append(successIDs, item.ID)
		logRows = append(logRows, []string{
			uuid.NewString(),
			stamp,
			timeOfDay,
			logID,
			action,
			loc,
			item.Note,
			m.staff,
			prevLoc,
			tankType,
		})
	}

	if len(successIDs) > 0 {
		for i := range snap.Rows {
			snap.Rows[i] = sheet.PadRow(snap.Rows[i], rowWidth)
		}
		if err := st.WriteRange(ctx, SheetStatus, 1, 1, snap.Rows); err != nil {
			return nil, fmt.Errorf("write status table: %w", err)
		}

		logName, err := logSheetFor(ctx, st, now)
		if err != nil {
			return nil, err
		}
		if err := st.AppendRows(ctx, logName, logRows); err != nil {
			return nil, fmt.Errorf("append history log: %w", err)
		}
	}

	return &Result{
		Success:     len(successIDs) > 0,
		Message:     fmt.Sprintf("%d件の処理が完了しました", len(successIDs)),
		SuccessIDs:  successIDs,
		FailedItems: failed,
		TotalCount:  len(m.items),
	}, nil
}
