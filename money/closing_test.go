package money

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanklink/tankops/sheet/memory"
	"github.com/tanklink/tankops/staff"
)

func closingFixture(t *testing.T) (*Closer, *memory.Store) {
	t.Helper()
	st := memory.New()
	seedPriceMaster(st)
	st.Seed(SheetRank, [][]string{
		{"ランク名", "必要スコア"},
		{"シルバー", "20"},
		{"ゴールド", "60"},
	})
	st.Seed(staff.Sheet, [][]string{
		{"氏名", "メール", "役割", "ランク", "状態", "パスコード", "表示"},
		{"山田", "yamada@example.com", "一般", "レギュラー", "", "1111", ""},
		{"佐藤", "sato@example.com", "一般", "ゴールド", "", "2222", ""},
	})
	st.Seed("D_金銭ログ2025", [][]string{
		LogHeader,
		{"u-1", "2025-07-02 09:00:00", "山田", "レギュラー", "貸出", "A-01", "10", "", "", ""},
		{"u-2", "2025-07-10 14:00:00", "山田", "レギュラー", "貸出", "A-02", "10", "", "", ""},
		{"u-3", "2025-07-20 11:00:00", "山田", "レギュラー", "修理済み", "B-01", "30", "3000", "バルブ交換", ""},
		{"u-4", "2025-07-05 10:00:00", "佐藤", "ゴールド", "返却", "A-01", "5", "", "", ""},
		{"u-5", "2025-06-30 18:00:00", "佐藤", "ゴールド", "貸出", "C-02", "10", "", "", ""},
	})

	closer := NewCloser(NewLedger(st, nil, 0), staff.NewDirectory(st))
	closer.Now = func() time.Time {
		return time.Date(2025, 8, 15, 3, 0, 0, 0, time.Local)
	}
	return closer, st
}

func TestClosingRun_PreviousMonthByDefault(t *testing.T) {
	// GIVEN July log rows and an August clock
	closer, st := closingFixture(t)

	// WHEN closing with no explicit month
	sum, err := closer.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	// THEN July is the settled month
	assert.Equal(t, "2025-07", sum.Month)
	assert.Equal(t, 2, sum.Staff)

	rows := st.Rows(SheetPayroll)
	require.Len(t, rows, 3)
	assert.Equal(t, PayrollHeader, rows[0])

	// rows sorted by staff name: 佐藤 then 山田
	sato := rows[1]
	assert.Equal(t, "2025-07", sato[0])
	assert.Equal(t, "佐藤", sato[1])
	// 5 points stays below every threshold
	assert.Equal(t, "レギュラー", sato[2])
	assert.Equal(t, "5", sato[3])
	// one 返却 at base 300, nothing else
	assert.Equal(t, []string{"0", "1", "0", "0", "0"}, sato[4:9])
	assert.Equal(t, "300", sato[9])
	assert.Equal(t, "0", sato[10])
	assert.Equal(t, "300", sato[11])

	yamada := rows[2]
	assert.Equal(t, "山田", yamada[1])
	// 10+10+30 = 50 points confirms シルバー
	assert.Equal(t, "シルバー", yamada[2])
	assert.Equal(t, "50", yamada[3])
	assert.Equal(t, []string{"2", "0", "0", "1", "0"}, yamada[4:9])
	// retroactive repricing: 2x(500+100) + 1x(1500+150)
	assert.Equal(t, "2850", yamada[9])
	assert.Equal(t, "3000", yamada[10])
	assert.Equal(t, "5850", yamada[11])
}

func TestClosingRun_WritesConfirmedRanksBack(t *testing.T) {
	closer, st := closingFixture(t)

	_, err := closer.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	// 佐藤's July was quiet, so the stored ゴールド is downgraded
	rows := st.Rows(staff.Sheet)
	assert.Equal(t, "シルバー", rows[1][3])
	assert.Equal(t, "レギュラー", rows[2][3])
}

func TestClosingRun_AppendOnlyRerunAppendsAgain(t *testing.T) {
	closer, st := closingFixture(t)

	_, err := closer.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	_, err = closer.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	// no dedup on rerun; the second block repeats the first
	rows := st.Rows(SheetPayroll)
	require.Len(t, rows, 5)
	assert.Equal(t, rows[1][:12], rows[3][:12])
	assert.Equal(t, rows[2][:12], rows[4][:12])
}

func TestClosingRun_ExplicitMonthFiltersRows(t *testing.T) {
	closer, st := closingFixture(t)

	// WHEN closing June explicitly
	sum, err := closer.Run(context.Background(), time.Date(2025, 6, 20, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)

	// THEN only 佐藤's June lending is settled
	assert.Equal(t, "2025-06", sum.Month)
	assert.Equal(t, 1, sum.Staff)
	rows := st.Rows(SheetPayroll)
	require.Len(t, rows, 2)
	assert.Equal(t, "佐藤", rows[1][1])
	assert.Equal(t, []string{"1", "0", "0", "0", "0"}, rows[1][4:9])
}

func TestClosingRun_EmptyMonthWritesNothing(t *testing.T) {
	closer, st := closingFixture(t)

	sum, err := closer.Run(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)

	assert.Equal(t, 0, sum.Staff)
	has, err := st.HasSheet(context.Background(), SheetPayroll)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStaffMonth_ProvisionalView(t *testing.T) {
	closer, _ := closingFixture(t)

	sm, err := closer.StaffMonth(context.Background(), "山田", time.Date(2025, 7, 1, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)

	assert.Equal(t, "シルバー", sm.ConfirmedRank)
	assert.Equal(t, 50, sm.TotalScore)
	assert.Equal(t, 2, sm.ActionCounts["貸出"])
	assert.Equal(t, "2850", sm.Reward.String())
	assert.Equal(t, "5850", sm.Total.String())
}

func TestStaffMonth_UnknownStaffIsZero(t *testing.T) {
	closer, _ := closingFixture(t)

	sm, err := closer.StaffMonth(context.Background(), "存在しない", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 0, sm.TotalScore)
	assert.Equal(t, "レギュラー", sm.ConfirmedRank)
	assert.True(t, sm.Total.IsZero())
}
