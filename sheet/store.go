/*
Package sheet defines the tabular store the operations core runs on.

PURPOSE:
  The system was born on a spreadsheet and its data model is still
  row-and-column shaped: a status table, year-partitioned log sheets,
  master sheets for staff, prices and destinations. This package keeps
  that shape behind a narrow interface so the core addresses "sheets"
  by logical name while persistence is free to be SQLite or memory.

KEY CONCEPTS:
  - Store: named grids of string cells, 1-based row addressing
  - Row 1 is by convention a header row; data starts at row 2
  - AppendRows is the only way log sheets grow (append-only by use)

IMPLEMENTATIONS:
  - sheet/memory: mutex-guarded in-memory grids (tests, dev)
  - sheet/sqlite: durable single-file store (production)

SEE ALSO:
  - inventory/snapshot.go: loads the full status grid through this API
  - money/ledger.go: appends commission rows through this API
*/
package sheet

import (
	"context"
	"errors"
	"fmt"
)

// ErrSheetNotFound is returned when a logical sheet name is unknown.
var ErrSheetNotFound = errors.New("sheet not found")

// Store is a row-oriented view over named sheets. Rows and columns are
// 1-based, matching the addressing the rest of the system was written
// against. Reads of cells outside the stored grid yield "".
type Store interface {
	// LastRow returns the index of the last non-empty row, 0 for an
	// empty or missing sheet.
	LastRow(ctx context.Context, sheet string) (int, error)

	// LastColumn returns the widest stored row's column count.
	LastColumn(ctx context.Context, sheet string) (int, error)

	// ReadRange returns a rowCount x colCount grid starting at
	// (rowStart, colStart). Missing cells are "".
	ReadRange(ctx context.Context, sheet string, rowStart, colStart, rowCount, colCount int) ([][]string, error)

	// WriteRange overwrites a grid starting at (rowStart, colStart).
	WriteRange(ctx context.Context, sheet string, rowStart, colStart int, values [][]string) error

	// AppendRows adds rows after the current last row.
	AppendRows(ctx context.Context, sheet string, rows [][]string) error

	// DeleteRow removes a row, shifting later rows up. Used only by
	// administrative cascade-deletes, never by the mutation core.
	DeleteRow(ctx context.Context, sheet string, rowIndex int) error

	// EnsureSheet creates the sheet with the given header row if it
	// does not exist yet. Existing sheets are left untouched.
	EnsureSheet(ctx context.Context, sheet string, header []string) error

	// HasSheet reports whether the logical sheet exists.
	HasSheet(ctx context.Context, sheet string) (bool, error)
}

// ReadAll is a convenience that returns every data row of a sheet
// (row 2 through the last row), already bounded by the sheet's extent.
func ReadAll(ctx context.Context, s Store, sheet string, colCount int) ([][]string, error) {
	last, err := s.LastRow(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if last < 2 {
		return nil, nil
	}
	return s.ReadRange(ctx, sheet, 2, 1, last-1, colCount)
}

// YearSheet composes a year-partitioned sheet name, e.g. "履歴ログ2025".
func YearSheet(base string, year int) string {
	return fmt.Sprintf("%s%d", base, year)
}

// PadRow extends a row with empty cells up to width. Sparse historical
// rows would otherwise misalign bulk writes.
func PadRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
