package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanklink/tankops/sheet/memory"
)

func TestSubmitMaintenance_RejectsNonMaintenanceModes(t *testing.T) {
	d, _, _, _ := dispatcherFixture(t)

	res := d.SubmitMaintenance(context.Background(), MaintenanceRequest{
		Mode: OpLend,
		IDs:  []string{"D1"},
	}, 3)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "貸出")
}

func TestSubmitMaintenance_RepairDone(t *testing.T) {
	// GIVEN a damaged tank and a repair outlay
	d, st, sink, _ := dispatcherFixture(t)

	res := d.SubmitMaintenance(context.Background(), MaintenanceRequest{
		Mode:   OpRepairDone,
		IDs:    []string{"D1"},
		Cost:   decimal.NewFromInt(4500),
		Detail: "バルブ交換",
	}, 3)
	require.True(t, res.Success)

	// THEN the tank returns to the warehouse empty
	rows := st.Rows(SheetStatus)
	assert.Equal(t, "空", rows[5][colStatus])
	assert.Equal(t, "倉庫", rows[5][colLocation])

	// and the outlay rides on the commission event
	require.Len(t, sink.events, 1)
	assert.Equal(t, string(OpRepairDone), sink.events[0].Action)
	assert.True(t, decimal.NewFromInt(4500).Equal(sink.events[0].RepairCost))
	assert.Equal(t, "バルブ交換", sink.events[0].RepairDetail)
}

func TestSubmitMaintenance_RepairDoneRejectsHealthyTank(t *testing.T) {
	d, _, _, _ := dispatcherFixture(t)

	res := d.SubmitMaintenance(context.Background(), MaintenanceRequest{
		Mode: OpRepairDone,
		IDs:  []string{"A1"},
	}, 3)

	assert.False(t, res.Success)
	require.Len(t, res.FailedItems, 1)
	assert.Equal(t, ReasonStatusMismatch, res.FailedItems[0].Reason)
}

func TestSubmitMaintenance_InspectionDoneBumpsDueDate(t *testing.T) {
	// GIVEN a pinned clock and three validity years
	d, st, _, _ := dispatcherFixture(t)

	res := d.SubmitMaintenance(context.Background(), MaintenanceRequest{
		Mode: OpInspectionDone,
		IDs:  []string{"A1"},
	}, 3)
	require.True(t, res.Success)

	// THEN the due date moves out by exactly the validity window
	rows := st.Rows(SheetStatus)
	assert.Equal(t, "2028-07-10", rows[1][colInspectionDue])
	assert.Equal(t, "空", rows[1][colStatus])

	history := st.Rows("履歴ログ2025")
	assert.Equal(t, string(OpInspectionDone), history[1][4])
}

func TestListRepairCandidates(t *testing.T) {
	d, _, _, _ := dispatcherFixture(t)

	items, err := ListRepairCandidates(context.Background(), d.Store)
	require.NoError(t, err)

	// only the damaged family shows up, display-formatted
	require.Len(t, items, 1)
	assert.Equal(t, "D-01", items[0].ID)
	assert.Equal(t, StatusDamaged, items[0].Status)
	assert.Equal(t, "バルブ不良", items[0].Note)
}

func TestListInspectionDue_LabelsAndWindow(t *testing.T) {
	st := memory.New()
	st.Seed(SheetStatus, [][]string{
		{"タンクID", "ステータス", "場所", "最終担当", "耐圧検査期限", "備考", "ログ備考", "更新日時", "種別"},
		{"A1", "空", "倉庫", "", "2025-05-01", "", "", "", ""},   // overdue
		{"A2", "空", "倉庫", "", "2025-09-10", "", "", "", ""},  // ~2 months out
		{"A3", "空", "倉庫", "", "2026-06-01", "", "", "", ""},  // outside window
		{"A4", "廃棄", "倉庫", "", "2020-01-01", "", "", "", ""}, // disposed, skipped
		{"A5", "空", "倉庫", "", "いつか", "", "", "", ""},       // unparsable, skipped
		{"A6", "耐圧検査", "検査場", "", "2025-01-01", "", "", "", ""}, // already out for inspection
	})

	today := time.Date(2025, 7, 10, 12, 0, 0, 0, time.Local)
	items, err := ListInspectionDue(context.Background(), st, 6, today)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "A-01", items[0].ID)
	assert.Equal(t, "●期限切 (2025/05/01)", items[0].Note)
	assert.Equal(t, "A-02", items[1].ID)
	assert.Equal(t, "あと2ヶ月 (2025/09/10)", items[1].Note)
}
