package money

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanklink/tankops/inventory"
	"github.com/tanklink/tankops/sheet/memory"
)

func seedPriceMaster(st *memory.Store) {
	st.Seed(SheetPrice, [][]string{
		{"作業名", "基本単価", "獲得スコア", "ゴールド加算", "シルバー加算"},
		{"貸出", "500", "10", "200", "100"},
		{"返却", "300", "5", "100", "50"},
		{"充填", "200", "5", "0", "0"},
		{"修理", "1,500", "30", "300", "150"},
	})
}

func TestLedgerRecord_AppendsPricedRowsByYear(t *testing.T) {
	// GIVEN a ledger over a seeded price master
	st := memory.New()
	seedPriceMaster(st)
	ledger := NewLedger(st, nil, 0)

	events := []inventory.CommissionEvent{
		{
			UUID:   "u-1",
			Date:   time.Date(2025, 7, 2, 9, 30, 0, 0, time.Local),
			Staff:  "山田",
			Rank:   "ゴールド",
			Action: "貸出",
			TankID: "A-01",
			Note:   "現場A",
		},
		{
			UUID:         "u-2",
			Date:         time.Date(2024, 12, 28, 16, 0, 0, 0, time.Local),
			Staff:        "佐藤",
			Rank:         "レギュラー",
			Action:       "修理済み",
			TankID:       "B-03",
			RepairCost:   decimal.NewFromInt(3000),
			RepairDetail: "バルブ交換",
		},
	}

	// WHEN recording events from two different years
	require.NoError(t, ledger.Record(context.Background(), events))

	// THEN each year sheet gets a header and its own rows
	rows2025 := st.Rows("D_金銭ログ2025")
	require.Len(t, rows2025, 2)
	assert.Equal(t, LogHeader, rows2025[0])
	assert.Equal(t, "u-1", rows2025[1][logColUUID])
	assert.Equal(t, "2025-07-02 09:30:00", rows2025[1][logColDate])
	assert.Equal(t, "10", rows2025[1][logColScore])
	assert.Equal(t, "", rows2025[1][logColRepairCost])

	rows2024 := st.Rows("D_金銭ログ2024")
	require.Len(t, rows2024, 2)
	assert.Equal(t, "修理済み", rows2024[1][logColAction])
	assert.Equal(t, "3000", rows2024[1][logColRepairCost])
	assert.Equal(t, "バルブ交換", rows2024[1][logColRepairDetail])
}

func TestLedgerRecord_EmptyBatchIsNoop(t *testing.T) {
	st := memory.New()
	ledger := NewLedger(st, nil, 0)

	require.NoError(t, ledger.Record(context.Background(), nil))

	has, err := st.HasSheet(context.Background(), "D_金銭ログ2025")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPriceTable_RankColumnsFromHeader(t *testing.T) {
	// GIVEN a price master with two rank-addition columns
	st := memory.New()
	seedPriceMaster(st)
	ledger := NewLedger(st, nil, 0)

	table, err := ledger.PriceTable(context.Background())
	require.NoError(t, err)

	// THEN additions follow the header, separators stripped
	rule, ok := table.Rule("修理")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(1500).Equal(rule.BasePrice))
	assert.True(t, decimal.NewFromInt(300).Equal(rule.RankAdd["ゴールド"]))
	assert.True(t, decimal.NewFromInt(150).Equal(rule.RankAdd["シルバー"]))
}

func TestRepairOptions_FallbackWhenMasterMissing(t *testing.T) {
	st := memory.New()
	ledger := NewLedger(st, nil, 0)

	opts, err := ledger.RepairOptions(context.Background())
	require.NoError(t, err)

	require.Len(t, opts, 2)
	assert.Equal(t, "バルブ交換", opts[0].Name)
}

func TestRepairOptions_FromMasterSheet(t *testing.T) {
	st := memory.New()
	st.Seed(SheetRepair, [][]string{
		{"項目名", "金額"},
		{"ホース交換", "2500"},
		{"", "999"},
	})
	ledger := NewLedger(st, nil, 0)

	opts, err := ledger.RepairOptions(context.Background())
	require.NoError(t, err)

	// blank rows are skipped
	require.Len(t, opts, 1)
	assert.Equal(t, "ホース交換", opts[0].Name)
	assert.True(t, decimal.NewFromInt(2500).Equal(opts[0].Price))
}
