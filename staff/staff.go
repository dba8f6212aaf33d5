/*
Package staff reads and maintains the staff directory sheet.

PURPOSE:
  Resolves the acting user from credential material (platform email
  and/or passcode), with a guest fallback when nothing matches, and
  carries the small set of per-staff settings the rest of the system
  needs: role, rank, suspension, view-mode preference. Rank is the one
  field another component mutates - the monthly close writes confirmed
  ranks back here.

SHEET LAYOUT (担当者リスト):
  A name, B email, C role, D rank, E status(停止 suspends),
  F passcode, G view mode

SUSPENSION:
  A row is inactive when column E is 停止 or the name carries the
  【停止】 prefix. Inactive rows never match a credential.
*/
package staff

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanklink/tankops/sheet"
)

// Sheet is the staff directory's logical sheet name.
const Sheet = "担当者リスト"

// Column offsets (0-based).
const (
	colName     = 0
	colEmail    = 1
	colRole     = 2
	colRank     = 3
	colStatus   = 4
	colPasscode = 5
	colViewMode = 6

	rowWidth = 7
)

// DefaultRank is assigned when the rank cell is empty and to guests.
const DefaultRank = "レギュラー"

// User is one staff-directory row.
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Rank     string `json:"rank"`
	ViewMode string `json:"viewMode,omitempty"`
}

// Guest is the unresolved-credential fallback.
var Guest = User{Name: "ゲスト", Role: "一般", Rank: DefaultRank}

// IsAdmin reports whether the user's role grants admin screens.
// 準管理者 (semi-admin) counts.
func (u User) IsAdmin() bool {
	role := strings.ToLower(u.Role)
	return strings.Contains(u.Role, "管理者") || strings.Contains(role, "admin")
}

// Directory serves staff lookups over the sheet store.
type Directory struct {
	Store sheet.Store
}

func NewDirectory(st sheet.Store) *Directory {
	return &Directory{Store: st}
}

// Resolve finds the acting user. A passcode match or an email match
// identifies the account; suspended rows are skipped. When nothing
// matches, the guest fallback is returned (named after the email when
// one was supplied) - resolution failure is not an error.
func (dir *Directory) Resolve(ctx context.Context, email, passcode string) (User, error) {
	rows, err := sheet.ReadAll(ctx, dir.Store, Sheet, rowWidth)
	if err != nil {
		return Guest, fmt.Errorf("read staff directory: %w", err)
	}

	passcode = strings.TrimSpace(passcode)
	for _, row := range rows {
		row = sheet.PadRow(row, rowWidth)
		if suspended(row) {
			continue
		}

		passMatch := passcode != "" && row[colPasscode] != "" && passcode == strings.TrimSpace(row[colPasscode])
		emailMatch := email != "" && row[colEmail] == email

		if passMatch || emailMatch {
			rank := row[colRank]
			if rank == "" {
				rank = DefaultRank
			}
			return User{
				Name:     row[colName],
				Email:    row[colEmail],
				Role:     row[colRole],
				Rank:     rank,
				ViewMode: row[colViewMode],
			}, nil
		}
	}

	guest := Guest
	if email != "" {
		guest.Name = email
	}
	return guest, nil
}

// VerifyPasscode reports whether a passcode identifies an active user.
func (dir *Directory) VerifyPasscode(ctx context.Context, passcode string) (User, bool, error) {
	u, err := dir.Resolve(ctx, "", passcode)
	if err != nil {
		return Guest, false, err
	}
	return u, u.Name != Guest.Name, nil
}

// SaveViewMode stores the list/dial preference for the user matched by
// name (preferred) or passcode.
func (dir *Directory) SaveViewMode(ctx context.Context, name, passcode, viewMode string) error {
	rows, err := sheet.ReadAll(ctx, dir.Store, Sheet, rowWidth)
	if err != nil {
		return fmt.Errorf("read staff directory: %w", err)
	}

	passcode = strings.TrimSpace(passcode)
	for i, row := range rows {
		row = sheet.PadRow(row, rowWidth)
		if suspended(row) {
			continue
		}

		nameMatch := name != "" && row[colName] == name
		passMatch := name == "" && passcode != "" && row[colPasscode] != "" && passcode == strings.TrimSpace(row[colPasscode])
		if !nameMatch && !passMatch {
			continue
		}

		// Sheet rows are 1-based and data starts under the header.
		return dir.Store.WriteRange(ctx, Sheet, i+2, colViewMode+1, [][]string{{viewMode}})
	}
	return fmt.Errorf("staff %q not found", name)
}

// UpdateRanks writes confirmed ranks back into the directory. Names
// absent from the sheet are skipped silently; the payroll row already
// records what they earned.
func (dir *Directory) UpdateRanks(ctx context.Context, ranks map[string]string) error {
	if len(ranks) == 0 {
		return nil
	}

	rows, err := sheet.ReadAll(ctx, dir.Store, Sheet, rowWidth)
	if err != nil {
		return fmt.Errorf("read staff directory: %w", err)
	}

	for i, row := range rows {
		row = sheet.PadRow(row, rowWidth)
		rank, ok := ranks[row[colName]]
		if !ok {
			continue
		}
		if err := dir.Store.WriteRange(ctx, Sheet, i+2, colRank+1, [][]string{{rank}}); err != nil {
			return fmt.Errorf("update rank for %s: %w", row[colName], err)
		}
	}
	return nil
}

// List returns every active staff row.
func (dir *Directory) List(ctx context.Context) ([]User, error) {
	rows, err := sheet.ReadAll(ctx, dir.Store, Sheet, rowWidth)
	if err != nil {
		return nil, fmt.Errorf("read staff directory: %w", err)
	}

	var users []User
	for _, row := range rows {
		row = sheet.PadRow(row, rowWidth)
		if suspended(row) || row[colName] == "" {
			continue
		}
		rank := row[colRank]
		if rank == "" {
			rank = DefaultRank
		}
		users = append(users, User{
			Name:     row[colName],
			Email:    row[colEmail],
			Role:     row[colRole],
			Rank:     rank,
			ViewMode: row[colViewMode],
		})
	}
	return users, nil
}

func suspended(row []string) bool {
	return row[colStatus] == "停止" || strings.HasPrefix(row[colName], "【停止】")
}
