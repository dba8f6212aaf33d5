/*
closing.go - the monthly payroll close.

PURPOSE:
  Once a month the commission log is rolled up per staff member: total
  score, headline action counts, repair reimbursements. The score
  confirms the rank for the month, the confirmed rank reprices every
  logged action retroactively, and one payroll row per staff lands in
  the payroll sheet. Confirmed ranks are written back to the staff
  directory so next month's live pricing starts from them.

KEY CONCEPTS:
  - Retroactive pricing: the rank stored on each log row is the rank
    at logging time; the close ignores it and reprices at the rank the
    month's total score earns
  - The close is append-only and not idempotent; running it twice for
    the same month appends a second block of rows
  - Default target is the previous calendar month

SEE ALSO:
  - ledger.go: produces the rows this file consumes
  - staff/staff.go: receives the confirmed-rank write-back
*/
package money

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanklink/tankops/sheet"
	"github.com/tanklink/tankops/staff"
)

// headlineActions are the per-action count columns of a payroll row,
// in PayrollHeader order.
var headlineActions = []string{"貸出", "返却", "充填", "修理済み", "破損報告"}

// staffStats is one staff member's aggregate over a month of log rows.
type staffStats struct {
	totalScore   int
	repairSum    decimal.Decimal
	actionCounts map[string]int
}

// StaffMonth is the per-staff result of a close, also served as the
// personal stats view.
type StaffMonth struct {
	Name          string          `json:"name"`
	Month         string          `json:"month"`
	ConfirmedRank string          `json:"confirmedRank"`
	TotalScore    int             `json:"totalScore"`
	ActionCounts  map[string]int  `json:"actionCounts"`
	Reward        decimal.Decimal `json:"reward"`
	Reimbursement decimal.Decimal `json:"reimbursement"`
	Total         decimal.Decimal `json:"total"`
}

// Summary reports one close run.
type Summary struct {
	Month string            `json:"month"`
	Staff int               `json:"staff"`
	Ranks map[string]string `json:"ranks"`
}

// Closer runs the monthly close over the money store.
type Closer struct {
	Ledger *Ledger
	Staff  *staff.Directory
	Now    func() time.Time
}

func NewCloser(l *Ledger, dir *staff.Directory) *Closer {
	return &Closer{Ledger: l, Staff: dir, Now: time.Now}
}

// targetMonth resolves the month to close: the given one, or the
// month before now when zero.
func (c *Closer) targetMonth(target time.Time) time.Time {
	if !target.IsZero() {
		return time.Date(target.Year(), target.Month(), 1, 0, 0, 0, 0, target.Location())
	}
	now := c.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -1, 0)
}

// Run closes one month: aggregates the log, confirms ranks, appends
// payroll rows, and writes confirmed ranks back to the directory.
func (c *Closer) Run(ctx context.Context, target time.Time) (Summary, error) {
	month := c.targetMonth(target)
	monthKey := month.Format(MonthLayout)

	stats, err := c.aggregate(ctx, month)
	if err != nil {
		return Summary{}, err
	}
	if len(stats) == 0 {
		return Summary{Month: monthKey, Ranks: map[string]string{}}, nil
	}

	table, err := c.Ledger.PriceTable(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load price master: %w", err)
	}
	ranks, err := c.Ledger.RankTable(ctx, staff.DefaultRank)
	if err != nil {
		return Summary{}, fmt.Errorf("load rank master: %w", err)
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	stamp := c.Now().Format(TimeLayout)
	rows := make([][]string, 0, len(names))
	confirmed := make(map[string]string, len(names))
	for _, name := range names {
		sm := settle(name, monthKey, stats[name], table, ranks)
		confirmed[name] = sm.ConfirmedRank

		row := []string{monthKey, name, sm.ConfirmedRank, fmt.Sprintf("%d", sm.TotalScore)}
		for _, action := range headlineActions {
			row = append(row, fmt.Sprintf("%d", sm.ActionCounts[action]))
		}
		row = append(row, sm.Reward.String(), sm.Reimbursement.String(), sm.Total.String(), stamp)
		rows = append(rows, row)
	}

	if err := c.Ledger.Store.EnsureSheet(ctx, SheetPayroll, PayrollHeader); err != nil {
		return Summary{}, fmt.Errorf("ensure payroll sheet: %w", err)
	}
	if err := c.Ledger.Store.AppendRows(ctx, SheetPayroll, rows); err != nil {
		return Summary{}, fmt.Errorf("append payroll rows: %w", err)
	}
	if err := c.Staff.UpdateRanks(ctx, confirmed); err != nil {
		return Summary{}, fmt.Errorf("write back ranks: %w", err)
	}
	return Summary{Month: monthKey, Staff: len(rows), Ranks: confirmed}, nil
}

// StaffMonth computes one staff member's month on demand without
// writing anything. The confirmed rank here is provisional until the
// close actually runs.
func (c *Closer) StaffMonth(ctx context.Context, name string, target time.Time) (StaffMonth, error) {
	month := c.targetMonth(target)
	stats, err := c.aggregate(ctx, month)
	if err != nil {
		return StaffMonth{}, err
	}
	table, err := c.Ledger.PriceTable(ctx)
	if err != nil {
		return StaffMonth{}, err
	}
	ranks, err := c.Ledger.RankTable(ctx, staff.DefaultRank)
	if err != nil {
		return StaffMonth{}, err
	}
	st, ok := stats[name]
	if !ok {
		st = staffStats{repairSum: decimal.Zero, actionCounts: map[string]int{}}
	}
	return settle(name, month.Format(MonthLayout), st, table, ranks), nil
}

// aggregate scans the target month's rows out of its year log sheet.
func (c *Closer) aggregate(ctx context.Context, month time.Time) (map[string]staffStats, error) {
	name := sheet.YearSheet(SheetLogBase, month.Year())
	rows, err := sheet.ReadAll(ctx, c.Ledger.Store, name, logRowWidth)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	prefix := month.Format(MonthLayout)
	stats := make(map[string]staffStats)
	for _, row := range rows {
		if !strings.HasPrefix(cell(row, logColDate), prefix) {
			continue
		}
		who := strings.TrimSpace(cell(row, logColStaff))
		if who == "" {
			continue
		}
		st, ok := stats[who]
		if !ok {
			st = staffStats{repairSum: decimal.Zero, actionCounts: make(map[string]int)}
		}
		st.totalScore += parseInt(cell(row, logColScore))
		st.repairSum = st.repairSum.Add(parseDecimal(cell(row, logColRepairCost)))
		st.actionCounts[strings.TrimSpace(cell(row, logColAction))]++
		stats[who] = st
	}
	return stats, nil
}

// settle confirms the rank from the month's score and reprices every
// counted action at it.
func settle(name, monthKey string, st staffStats, table *PriceTable, ranks *RankTable) StaffMonth {
	rank := ranks.Confirm(st.totalScore)
	reward := decimal.Zero
	for action, count := range st.actionCounts {
		r := ComputeReward(action, rank, table)
		reward = reward.Add(r.Total.Mul(decimal.NewFromInt(int64(count))))
	}
	return StaffMonth{
		Name:          name,
		Month:         monthKey,
		ConfirmedRank: rank,
		TotalScore:    st.totalScore,
		ActionCounts:  st.actionCounts,
		Reward:        reward,
		Reimbursement: st.repairSum,
		Total:         reward.Add(st.repairSum),
	}
}
