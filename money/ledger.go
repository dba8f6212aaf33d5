/*
ledger.go - commission event recording and master-data loading.

PURPOSE:
  Ledger is the money-side sink the dispatcher forwards successful
  mutations to. Each event is priced against the rate master at its
  author's current rank and appended to the year-partitioned money
  log in bulk.

KEY CONCEPTS:
  - Year partitioning: events land in D_金銭ログ<YYYY> by event date
  - Master caching: price rules, rank thresholds, and repair options
    are parsed once per TTL window and cached as JSON
  - Best-effort contract: callers treat a Record failure as a logged
    warning, never as a reason to undo the tank mutation

SEE ALSO:
  - inventory/dispatcher.go: the upstream producer
  - closing.go:              monthly consumer of the log
*/
package money

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanklink/tankops/cache"
	"github.com/tanklink/tankops/inventory"
	"github.com/tanklink/tankops/sheet"
)

// rankAddSuffix marks rank-addition columns in the price master header.
const rankAddSuffix = "加算"

// defaultRepairOptions is served when the repair master sheet is
// missing or empty.
var defaultRepairOptions = []RepairOption{
	{Name: "バルブ交換", Price: decimal.NewFromInt(3000)},
	{Name: "再塗装", Price: decimal.NewFromInt(5000)},
}

// Ledger records commission events and serves money master data.
type Ledger struct {
	Store     sheet.Store
	Cache     *cache.Cache
	MasterTTL time.Duration
}

// NewLedger wires a ledger over the money sheet store.
func NewLedger(st sheet.Store, c *cache.Cache, masterTTL time.Duration) *Ledger {
	if masterTTL <= 0 {
		masterTTL = 12 * time.Hour
	}
	return &Ledger{Store: st, Cache: c, MasterTTL: masterTTL}
}

// =============================================================================
// RECORDING
// =============================================================================

// Record prices the events and appends them to the money log, one
// bulk append per event year. Implements inventory.CommissionSink.
func (l *Ledger) Record(ctx context.Context, events []inventory.CommissionEvent) error {
	if len(events) == 0 {
		return nil
	}
	table, err := l.PriceTable(ctx)
	if err != nil {
		return fmt.Errorf("load price master: %w", err)
	}

	byYear := make(map[int][][]string)
	for _, ev := range events {
		reward := ComputeReward(ev.Action, ev.Rank, table)
		row := make([]string, logRowWidth)
		row[logColUUID] = ev.UUID
		row[logColDate] = ev.Date.Format(TimeLayout)
		row[logColStaff] = ev.Staff
		row[logColRank] = ev.Rank
		row[logColAction] = ev.Action
		row[logColTankID] = ev.TankID
		row[logColScore] = strconv.Itoa(reward.Score)
		if !ev.RepairCost.IsZero() {
			row[logColRepairCost] = ev.RepairCost.String()
		}
		row[logColRepairDetail] = ev.RepairDetail
		row[logColNote] = ev.Note
		y := ev.Date.Year()
		byYear[y] = append(byYear[y], row)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, y := range years {
		name := sheet.YearSheet(SheetLogBase, y)
		if err := l.Store.EnsureSheet(ctx, name, LogHeader); err != nil {
			return fmt.Errorf("ensure %s: %w", name, err)
		}
		if err := l.Store.AppendRows(ctx, name, byYear[y]); err != nil {
			return fmt.Errorf("append %s: %w", name, err)
		}
	}
	return nil
}

// =============================================================================
// MASTER DATA
// =============================================================================

// PriceTable loads the rate master, cached for MasterTTL.
func (l *Ledger) PriceTable(ctx context.Context) (*PriceTable, error) {
	if l.Cache != nil {
		if raw, ok := l.Cache.Get(cache.KeyPriceMaster); ok {
			var rules []PriceRule
			if json.Unmarshal([]byte(raw), &rules) == nil {
				return NewPriceTable(rules), nil
			}
		}
	}

	rules, err := l.loadPriceRules(ctx)
	if err != nil {
		return nil, err
	}
	if l.Cache != nil {
		if raw, err := json.Marshal(rules); err == nil {
			l.Cache.Put(cache.KeyPriceMaster, string(raw), l.MasterTTL)
		}
	}
	return NewPriceTable(rules), nil
}

// loadPriceRules parses M_設定_単価. Rank-addition columns are
// discovered from the header: every column named <ランク>加算 becomes
// a RankAdd key.
func (l *Ledger) loadPriceRules(ctx context.Context) ([]PriceRule, error) {
	last, err := l.Store.LastRow(ctx, SheetPrice)
	if err != nil {
		return nil, err
	}
	if last < 2 {
		return nil, nil
	}
	cols, err := l.Store.LastColumn(ctx, SheetPrice)
	if err != nil {
		return nil, err
	}
	grid, err := l.Store.ReadRange(ctx, SheetPrice, 1, 1, last, cols)
	if err != nil {
		return nil, err
	}

	header := grid[0]
	rankCols := make(map[int]string)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if rank, ok := strings.CutSuffix(name, rankAddSuffix); ok && rank != "" {
			rankCols[i] = rank
		}
	}

	var rules []PriceRule
	for _, row := range grid[1:] {
		action := strings.TrimSpace(cell(row, 0))
		if action == "" {
			continue
		}
		r := PriceRule{
			Action:    action,
			BasePrice: parseDecimal(cell(row, 1)),
			Score:     parseInt(cell(row, 2)),
			RankAdd:   make(map[string]decimal.Decimal, len(rankCols)),
		}
		for i, rank := range rankCols {
			r.RankAdd[rank] = parseDecimal(cell(row, i))
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// RankTable loads the rank threshold master.
func (l *Ledger) RankTable(ctx context.Context, defaultRank string) (*RankTable, error) {
	rows, err := sheet.ReadAll(ctx, l.Store, SheetRank, 2)
	if err != nil {
		return nil, err
	}
	var defs []RankDef
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, 0))
		if name == "" {
			continue
		}
		defs = append(defs, RankDef{Name: name, MinScore: parseInt(cell(row, 1))})
	}
	return NewRankTable(defs, defaultRank), nil
}

// RepairOptions lists the selectable repair work items, cached for
// MasterTTL. A missing or empty master sheet yields the built-in
// fallback list.
func (l *Ledger) RepairOptions(ctx context.Context) ([]RepairOption, error) {
	if l.Cache != nil {
		if raw, ok := l.Cache.Get(cache.KeyRepairOptions); ok {
			var opts []RepairOption
			if json.Unmarshal([]byte(raw), &opts) == nil {
				return opts, nil
			}
		}
	}

	rows, err := sheet.ReadAll(ctx, l.Store, SheetRepair, 2)
	if err != nil {
		return nil, err
	}
	var opts []RepairOption
	for _, row := range rows {
		name := strings.TrimSpace(cell(row, 0))
		if name == "" {
			continue
		}
		opts = append(opts, RepairOption{Name: name, Price: parseDecimal(cell(row, 1))})
	}
	if len(opts) == 0 {
		opts = defaultRepairOptions
	}

	if l.Cache != nil {
		if raw, err := json.Marshal(opts); err == nil {
			l.Cache.Put(cache.KeyRepairOptions, string(raw), l.MasterTTL)
		}
	}
	return opts, nil
}

// =============================================================================
// CELL HELPERS
// =============================================================================

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseDecimal reads a yen amount cell. Thousands separators and a
// currency sign are tolerated; anything unparsable is zero.
func parseDecimal(s string) decimal.Decimal {
	cleaned := strings.NewReplacer(",", "", "¥", "", "円", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
