/*
snapshot.go - In-memory snapshot of the status table

PURPOSE:
  One locked submission works against exactly one snapshot: the full
  status grid read in a single bounded call, plus a canonical-key ->
  row-index map for lookups. Mutations happen in memory and are
  written back in one bulk call, so the store sees either the old
  table or the new one.

SEE ALSO:
  - writer.go: mutates the snapshot and persists it
*/
package inventory

import (
	"context"
	"fmt"

	"github.com/tanklink/tankops/sheet"
	"github.com/tanklink/tankops/tankid"
)

// Snapshot is the full status table plus its lookup index. Row 0 is
// the header; data rows follow at their sheet positions.
type Snapshot struct {
	Rows  [][]string
	idMap map[string]int
}

// LoadSnapshot reads the whole status sheet, bounded by its last row
// and column. Historical sheets may be 7 or 8 columns wide; the writer
// pads rows to the full 9-column layout before writing back.
func LoadSnapshot(ctx context.Context, st sheet.Store) (*Snapshot, error) {
	lastRow, err := st.LastRow(ctx, SheetStatus)
	if err != nil {
		return nil, fmt.Errorf("load status snapshot: %w", err)
	}
	if lastRow == 0 {
		return &Snapshot{idMap: map[string]int{}}, nil
	}

	lastCol, err := st.LastColumn(ctx, SheetStatus)
	if err != nil {
		return nil, fmt.Errorf("load status snapshot: %w", err)
	}
	fetchCols := lastCol
	if fetchCols > rowWidth {
		fetchCols = rowWidth
	}
	if fetchCols < 7 {
		fetchCols = 7
	}

	rows, err := st.ReadRange(ctx, SheetStatus, 1, 1, lastRow, fetchCols)
	if err != nil {
		return nil, fmt.Errorf("load status snapshot: %w", err)
	}

	snap := &Snapshot{Rows: rows, idMap: make(map[string]int, len(rows))}
	for i := 1; i < len(rows); i++ {
		if key := tankid.Normalize(rows[i][colID]); key != "" {
			snap.idMap[key] = i
		}
	}
	return snap, nil
}

// RowIndex returns the data-row index for a raw tank ID, resolved
// through the canonical key.
func (s *Snapshot) RowIndex(rawID string) (int, bool) {
	i, ok := s.idMap[tankid.Normalize(rawID)]
	return i, ok
}

// StatusOf returns the current status for a raw tank ID.
func (s *Snapshot) StatusOf(rawID string) (Status, bool) {
	i, ok := s.RowIndex(rawID)
	if !ok {
		return "", false
	}
	return Status(s.Rows[i][colStatus]), true
}

// Len returns the number of data rows.
func (s *Snapshot) Len() int {
	if len(s.Rows) == 0 {
		return 0
	}
	return len(s.Rows) - 1
}
