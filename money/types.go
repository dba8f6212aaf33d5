/*
Package money is the commission ledger and payroll side of the system.

PURPOSE:
  Every successful tank mutation earns the acting staff a priced,
  scored commission event. This package prices those events against
  the rate master, appends them to the year-partitioned money log, and
  at month end rolls the log up into payroll rows with retroactive
  rank confirmation.

KEY CONCEPTS IN THIS FILE (types.go):
  - PriceTable: action -> {base price, score, per-rank addition}
  - RankTable: descending score thresholds; first satisfied wins
  - Money-log sheet layout (year-suffixed, append-only)

DESIGN PRINCIPLES:
  1. Prices and sums are decimal.Decimal - never floats
  2. An unpriced action is valid and worth zero, not an error
  3. The money log is downstream of tank state: appends here are
     best-effort and never gate a status mutation

SEE ALSO:
  - calculator.go: the pure reward lookup
  - ledger.go:     event recording
  - closing.go:    the monthly roll-up
*/
package money

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Sheet names in the money store.
const (
	SheetLogBase = "D_金銭ログ" // year-suffixed: D_金銭ログ2025
	SheetPrice   = "M_設定_単価"
	SheetRank    = "M_設定_ランク"
	SheetRepair  = "M_設定_修理項目"
	SheetPayroll = "S_月次給与・収支"
)

// LogHeader is the header row of a new year money-log sheet.
var LogHeader = []string{"UUID", "日時", "担当者", "ランク", "作業", "タンクID", "スコア", "立替金", "立替詳細", "備考"}

// Money-log columns (0-based).
const (
	logColUUID         = 0
	logColDate         = 1
	logColStaff        = 2
	logColRank         = 3
	logColAction       = 4
	logColTankID       = 5
	logColScore        = 6
	logColRepairCost   = 7
	logColRepairDetail = 8
	logColNote         = 9

	logRowWidth = 10
)

// PayrollHeader is the header row of the payroll sheet.
var PayrollHeader = []string{
	"対象月", "担当者", "確定ランク", "合計スコア",
	"貸出", "返却", "充填", "修理済み", "破損報告",
	"歩合報酬", "修理立替", "支払総額", "計算日時",
}

// Timestamp layouts in money-log cells.
const (
	TimeLayout  = "2006-01-02 15:04:05"
	MonthLayout = "2006-01"
)

// =============================================================================
// PRICE MASTER
// =============================================================================

// PriceRule prices one action: base price, earned score, and the
// per-rank addition discovered from the master sheet's header.
type PriceRule struct {
	Action    string
	BasePrice decimal.Decimal
	Score     int
	RankAdd   map[string]decimal.Decimal
}

// Reward is the computed payout for one action at one rank.
type Reward struct {
	BasePrice decimal.Decimal
	Score     int
	RankAdd   decimal.Decimal
	Total     decimal.Decimal
}

// ZeroReward is returned for unpriced actions.
func ZeroReward() Reward {
	return Reward{
		BasePrice: decimal.Zero,
		RankAdd:   decimal.Zero,
		Total:     decimal.Zero,
	}
}

// PriceTable holds the rate master keyed by trimmed action name.
type PriceTable struct {
	rules map[string]PriceRule
}

func NewPriceTable(rules []PriceRule) *PriceTable {
	m := make(map[string]PriceRule, len(rules))
	for _, r := range rules {
		m[r.Action] = r
	}
	return &PriceTable{rules: m}
}

// Rule returns the rule for an exact action name.
func (t *PriceTable) Rule(action string) (PriceRule, bool) {
	r, ok := t.rules[action]
	return r, ok
}

// =============================================================================
// RANK MASTER
// =============================================================================

// RankDef is one rank threshold.
type RankDef struct {
	Name     string
	MinScore int
}

// RankTable holds rank definitions sorted by descending threshold.
type RankTable struct {
	defs        []RankDef
	defaultRank string
}

func NewRankTable(defs []RankDef, defaultRank string) *RankTable {
	sorted := append([]RankDef(nil), defs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinScore > sorted[j].MinScore })
	return &RankTable{defs: sorted, defaultRank: defaultRank}
}

// Confirm returns the highest-threshold rank whose minimum the score
// meets, the default rank otherwise. Ties break toward the higher
// rank because the first satisfying entry wins.
func (t *RankTable) Confirm(totalScore int) string {
	for _, d := range t.defs {
		if totalScore >= d.MinScore {
			return d.Name
		}
	}
	return t.defaultRank
}

// RepairOption is one selectable repair work item.
type RepairOption struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
