/*
Package billing turns the lending history into monthly invoices.

PURPOSE:
  Each 貸出 row in the history log is one billable cylinder for the
  destination it went to. Unused returns cancel their lending, and
  in-house movements are never billed. The month's per-destination
  counts are priced from the destination master (tax-included unit
  prices) and can be exported as an Excel invoice sheet.

KEY CONCEPTS:
  - Billable count = lendings - unused returns, floored at zero
  - Counts are kept per day; each bill carries dated detail lines,
    with cancellations as negative lines on the return's date
  - Unit prices include tax; the tax line is back-calculated
  - Month discovery walks the year-suffixed log sheets backwards

SEE ALSO:
  - inventory/writer.go: produces the log rows consumed here
  - export.go:           the excelize workbook writer
*/
package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tanklink/tankops/inventory"
	"github.com/tanklink/tankops/sheet"
)

// History-log columns (0-based, see inventory.LogHeader).
const (
	logColDate    = 1
	logColAction  = 4
	logColPlace   = 5
	logColPrevLoc = 8

	logWidth = 10
)

// Destination-master columns.
const (
	destColName   = 0
	destColFormal = 1
	destColPrice  = 2
	destColStatus = 3
)

// yearLookback bounds the backwards walk over year log sheets.
const yearLookback = 10

// MonthLayout is the month key format, e.g. "2025-07".
const MonthLayout = "2006-01"

// taxRate is the consumption tax rate baked into unit prices.
var taxRate = decimal.NewFromFloat(0.10)

// inHouseDestinations are never invoiced.
var inHouseDestinations = map[string]bool{
	"自社":   true,
	"自社利用": true,
}

// Destination is one row of the destination master.
type Destination struct {
	Name       string
	FormalName string
	UnitPrice  decimal.Decimal // tax included
}

// Detail is one dated line inside a destination's bill. A cancellation
// logged on a day without a lending lands as a negative count.
type Detail struct {
	Date   string          `json:"date"` // MM/DD
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Line is one destination's share of a monthly invoice.
type Line struct {
	Destination string          `json:"destination"`
	FormalName  string          `json:"formalName"`
	Count       int             `json:"count"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
	Tax         decimal.Decimal `json:"tax"`
	Details     []Detail        `json:"details"`
}

// Statement is one month's full billing breakdown.
type Statement struct {
	Month      string          `json:"month"`
	Lines      []Line          `json:"lines"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Biller computes monthly statements from the operations store.
type Biller struct {
	Store sheet.Store
	Now   func() time.Time
}

func NewBiller(st sheet.Store) *Biller {
	return &Biller{Store: st, Now: time.Now}
}

// =============================================================================
// MONTH DISCOVERY
// =============================================================================

// Months lists every month with at least one lending, newest first.
func (b *Biller) Months(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	thisYear := b.Now().Year()
	for y := thisYear; y > thisYear-yearLookback; y-- {
		name := sheet.YearSheet(inventory.SheetLogBase, y)
		ok, err := b.Store.HasSheet(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rows, err := sheet.ReadAll(ctx, b.Store, name, logWidth)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row[logColAction] != string(inventory.OpLend) {
				continue
			}
			if len(row[logColDate]) >= len(MonthLayout) {
				seen[row[logColDate][:len(MonthLayout)]] = true
			}
		}
	}

	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// =============================================================================
// MONTHLY STATEMENT
// =============================================================================

// Statement computes one month's per-destination billing.
func (b *Biller) Statement(ctx context.Context, month string) (Statement, error) {
	parsed, err := time.Parse(MonthLayout, month)
	if err != nil {
		return Statement{}, fmt.Errorf("invalid month %q: %w", month, err)
	}

	counts, err := b.countMonth(ctx, parsed)
	if err != nil {
		return Statement{}, err
	}
	dests, err := b.destinations(ctx)
	if err != nil {
		return Statement{}, err
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	stmt := Statement{Month: month, GrandTotal: decimal.Zero}
	for _, name := range names {
		days := counts[name]
		count := 0
		for _, c := range days {
			count += c
		}
		if count <= 0 {
			continue
		}

		line := Line{Destination: name, FormalName: name, Count: count, UnitPrice: decimal.Zero}
		if d, ok := dests[name]; ok {
			if d.FormalName != "" {
				line.FormalName = d.FormalName
			}
			line.UnitPrice = d.UnitPrice
		}

		dayKeys := make([]string, 0, len(days))
		for k := range days {
			dayKeys = append(dayKeys, k)
		}
		sort.Strings(dayKeys)
		for _, k := range dayKeys {
			c := days[k]
			if c == 0 {
				continue
			}
			line.Details = append(line.Details, Detail{
				Date:   strings.ReplaceAll(k[5:], "-", "/"),
				Count:  c,
				Amount: line.UnitPrice.Mul(decimal.NewFromInt(int64(c))),
			})
		}

		line.Total = line.UnitPrice.Mul(decimal.NewFromInt(int64(count)))
		line.Tax = includedTax(line.Total)
		stmt.GrandTotal = stmt.GrandTotal.Add(line.Total)
		stmt.Lines = append(stmt.Lines, line)
	}
	return stmt, nil
}

// countMonth tallies billable lendings per destination and day: each
// 貸出 adds one to its 場所 on its date, each 未使用返却 or 返却(未充填)
// subtracts one from its prior destination on the return's own date.
// In-house movements are skipped. Day keys are "2006-01-02".
func (b *Biller) countMonth(ctx context.Context, month time.Time) (map[string]map[string]int, error) {
	name := sheet.YearSheet(inventory.SheetLogBase, month.Year())
	rows, err := sheet.ReadAll(ctx, b.Store, name, logWidth)
	if err != nil {
		return nil, err
	}

	dayLen := len(inventory.DateLayout)
	prefix := month.Format(MonthLayout)
	counts := map[string]map[string]int{}
	bump := func(dest, day string, delta int) {
		if counts[dest] == nil {
			counts[dest] = map[string]int{}
		}
		counts[dest][day] += delta
	}
	for _, row := range rows {
		if !strings.HasPrefix(row[logColDate], prefix) || len(row[logColDate]) < dayLen {
			continue
		}
		day := row[logColDate][:dayLen]
		switch row[logColAction] {
		case string(inventory.OpLend):
			if dest := strings.TrimSpace(row[logColPlace]); billable(dest) {
				bump(dest, day, 1)
			}
		case inventory.ActionReturnUnused, inventory.ActionReturnUnfilled:
			if dest := strings.TrimSpace(row[logColPrevLoc]); billable(dest) {
				bump(dest, day, -1)
			}
		}
	}
	return counts, nil
}

func billable(dest string) bool {
	return dest != "" && !inHouseDestinations[dest]
}

// destinations loads the destination master keyed by short name.
// Suspended rows stay in the map: past lendings to a now-suspended
// destination still need invoicing.
func (b *Biller) destinations(ctx context.Context) (map[string]Destination, error) {
	rows, err := sheet.ReadAll(ctx, b.Store, inventory.SheetDest, 4)
	if err != nil {
		return nil, err
	}

	m := make(map[string]Destination, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row[destColName])
		if name == "" {
			continue
		}
		m[name] = Destination{
			Name:       name,
			FormalName: strings.TrimSpace(row[destColFormal]),
			UnitPrice:  parsePrice(row[destColPrice]),
		}
	}
	return m, nil
}

// includedTax back-calculates the tax portion of a tax-included total,
// rounded down to the yen.
func includedTax(total decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	return total.Mul(taxRate).Div(one.Add(taxRate)).Floor()
}

func parsePrice(s string) decimal.Decimal {
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
