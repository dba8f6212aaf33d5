/*
Package sqlite provides the durable sheet.Store implementation.

PURPOSE:
  Persists the sheet model in a single SQLite file. Each logical sheet
  is a set of numbered rows; each row's cells are stored as one JSON
  array. That keeps the grid semantics exact (ragged rows, sparse
  cells) without inventing a relational schema the core never asks for.

SCHEMA:
  sheets:     (name PRIMARY KEY) - registry of logical sheets
  sheet_rows: (sheet, row_idx, cells_json) - one record per row

WAL MODE:
  Opened with WAL for better read concurrency and crash recovery.
  The mutation core serializes writers itself (one named lock), so
  SQLite-level contention is minimal.

CONCURRENCY:
  sync.RWMutex around all operations. Bulk writes run inside a DB
  transaction so a snapshot write-back is all-or-nothing.

USAGE:
  store, err := sqlite.New("./data/tankops.db")
  defer store.Close()

SEE ALSO:
  - sheet/store.go: interface contract
  - sheet/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tanklink/tankops/sheet"
)

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ sheet.Store = (*Store)(nil)

// New opens (or creates) the store at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		sheet      TEXT NOT NULL,
		row_idx    INTEGER NOT NULL,
		cells_json TEXT NOT NULL,
		PRIMARY KEY (sheet, row_idx)
	);

	CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet
		ON sheet_rows(sheet, row_idx);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) LastRow(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(row_idx) FROM sheet_rows WHERE sheet = ?`, name).Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return int(last.Int64), nil
}

func (s *Store) LastColumn(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT cells_json FROM sheet_rows WHERE sheet = ?`, name)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	max := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return 0, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return 0, fmt.Errorf("corrupt row in %s: %w", name, err)
		}
		if len(cells) > max {
			max = len(cells)
		}
	}
	return max, rows.Err()
}

func (s *Store) ReadRange(ctx context.Context, name string, rowStart, colStart, rowCount, colCount int) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, cells_json FROM sheet_rows
		 WHERE sheet = ? AND row_idx >= ? AND row_idx < ?
		 ORDER BY row_idx`,
		name, rowStart, rowStart+rowCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]string, rowCount)
	for i := range out {
		out[i] = make([]string, colCount)
	}

	for rows.Next() {
		var idx int
		var raw string
		if err := rows.Scan(&idx, &raw); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("corrupt row %d in %s: %w", idx, name, err)
		}
		r := idx - rowStart
		for j := 0; j < colCount; j++ {
			c := colStart - 1 + j
			if c >= 0 && c < len(cells) {
				out[r][j] = cells[c]
			}
		}
	}
	return out, rows.Err()
}

func (s *Store) HasSheet(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sheets WHERE name = ?`, name).Scan(&n)
	return n > 0, err
}

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) WriteRange(ctx context.Context, name string, rowStart, colStart int, values [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := registerSheet(ctx, tx, name); err != nil {
			return err
		}
		for i, row := range values {
			idx := rowStart + i
			cells, err := s.loadRowTx(ctx, tx, name, idx)
			if err != nil {
				return err
			}
			for j, v := range row {
				c := colStart - 1 + j
				for c >= len(cells) {
					cells = append(cells, "")
				}
				cells[c] = v
			}
			if err := saveRowTx(ctx, tx, name, idx, cells); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) AppendRows(ctx context.Context, name string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := registerSheet(ctx, tx, name); err != nil {
			return err
		}
		var last sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(row_idx) FROM sheet_rows WHERE sheet = ?`, name).Scan(&last); err != nil {
			return err
		}
		next := 1
		if last.Valid {
			next = int(last.Int64) + 1
		}
		for i, row := range rows {
			if err := saveRowTx(ctx, tx, name, next+i, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteRow(ctx context.Context, name string, rowIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sheet_rows WHERE sheet = ? AND row_idx = ?`, name, rowIndex); err != nil {
			return err
		}
		// Shift later rows up to keep contiguous addressing.
		_, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET row_idx = row_idx - 1 WHERE sheet = ? AND row_idx > ?`,
			name, rowIndex)
		return err
	})
}

func (s *Store) EnsureSheet(ctx context.Context, name string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM sheets WHERE name = ?`, name).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := registerSheet(ctx, tx, name); err != nil {
			return err
		}
		return saveRowTx(ctx, tx, name, 1, header)
	})
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func registerSheet(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sheets(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, name)
	return err
}

func (s *Store) loadRowTx(ctx context.Context, tx *sql.Tx, name string, idx int) ([]string, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT cells_json FROM sheet_rows WHERE sheet = ? AND row_idx = ?`,
		name, idx).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("corrupt row %d in %s: %w", idx, name, err)
	}
	return cells, nil
}

func saveRowTx(ctx context.Context, tx *sql.Tx, name string, idx int, cells []string) error {
	if cells == nil {
		cells = []string{}
	}
	raw, err := json.Marshal(cells)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sheet_rows(sheet, row_idx, cells_json) VALUES(?, ?, ?)
		 ON CONFLICT(sheet, row_idx) DO UPDATE SET cells_json = excluded.cells_json`,
		name, idx, string(raw))
	return err
}
