// Package memory provides an in-memory sheet.Store for tests and dev.
package memory

import (
	"context"
	"sync"

	"github.com/tanklink/tankops/sheet"
)

// =============================================================================
// MEMORY STORE - In-memory grid implementation
// =============================================================================

type Store struct {
	mu     sync.RWMutex
	sheets map[string][][]string
}

var _ sheet.Store = (*Store)(nil)

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

// Seed replaces a sheet's full contents, header included. Test helper.
func (s *Store) Seed(name string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grid := make([][]string, len(rows))
	for i, r := range rows {
		grid[i] = append([]string(nil), r...)
	}
	s.sheets[name] = grid
}

// Rows returns a copy of a sheet's full contents. Test helper.
func (s *Store) Rows(name string) [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grid := s.sheets[name]
	out := make([][]string, len(grid))
	for i, r := range grid {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (s *Store) LastRow(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sheets[name]), nil
}

func (s *Store) LastColumn(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for _, row := range s.sheets[name] {
		if len(row) > max {
			max = len(row)
		}
	}
	return max, nil
}

func (s *Store) ReadRange(_ context.Context, name string, rowStart, colStart, rowCount, colCount int) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grid := s.sheets[name]
	out := make([][]string, rowCount)
	for i := 0; i < rowCount; i++ {
		out[i] = make([]string, colCount)
		r := rowStart - 1 + i
		if r < 0 || r >= len(grid) {
			continue
		}
		for j := 0; j < colCount; j++ {
			c := colStart - 1 + j
			if c >= 0 && c < len(grid[r]) {
				out[i][j] = grid[r][c]
			}
		}
	}
	return out, nil
}

func (s *Store) WriteRange(_ context.Context, name string, rowStart, colStart int, values [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	grid := s.sheets[name]
	for i, row := range values {
		r := rowStart - 1 + i
		for r >= len(grid) {
			grid = append(grid, nil)
		}
		for j, v := range row {
			c := colStart - 1 + j
			for c >= len(grid[r]) {
				grid[r] = append(grid[r], "")
			}
			grid[r][c] = v
		}
	}
	s.sheets[name] = grid
	return nil
}

func (s *Store) AppendRows(_ context.Context, name string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.sheets[name] = append(s.sheets[name], append([]string(nil), r...))
	}
	return nil
}

func (s *Store) DeleteRow(_ context.Context, name string, rowIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	grid, ok := s.sheets[name]
	if !ok {
		return sheet.ErrSheetNotFound
	}
	i := rowIndex - 1
	if i < 0 || i >= len(grid) {
		return nil
	}
	s.sheets[name] = append(grid[:i], grid[i+1:]...)
	return nil
}

func (s *Store) EnsureSheet(_ context.Context, name string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[name]; ok {
		return nil
	}
	s.sheets[name] = [][]string{append([]string(nil), header...)}
	return nil
}

func (s *Store) HasSheet(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sheets[name]
	return ok, nil
}
