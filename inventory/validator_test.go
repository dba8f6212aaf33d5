package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanklink/tankops/sheet/memory"
)

func snapshotFromRows(t *testing.T, rows [][]string) *Snapshot {
	t.Helper()
	st := memory.New()
	st.Seed(SheetStatus, append([][]string{
		{"タンクID", "ステータス", "場所", "最終担当", "耐圧検査期限", "備考", "ログ備考", "更新日時", "種別"},
	}, rows...))
	snap, err := LoadSnapshot(context.Background(), st)
	require.NoError(t, err)
	return snap
}

func TestValidate_PartitionsByRuleTable(t *testing.T) {
	// GIVEN a snapshot with one lendable and one on-loan tank
	snap := snapshotFromRows(t, [][]string{
		{"A1", "充填済み", "倉庫", "", "", "", "", "", ""},
		{"A2", "貸出中", "現場A", "", "", "", "", "", ""},
	})

	// WHEN validating a lend batch over both
	valid, failed := Validate([]Item{{ID: "A1"}, {ID: "A2"}}, OpLend, snap)

	// THEN the batch splits, the mismatch carrying the observed status
	require.Len(t, valid, 1)
	assert.Equal(t, "A1", valid[0].ID)
	require.Len(t, failed, 1)
	assert.Equal(t, ReasonStatusMismatch, failed[0].Reason)
	assert.Equal(t, StatusOnLoan, failed[0].Observed)
}

func TestValidate_UnknownIDRejected(t *testing.T) {
	snap := snapshotFromRows(t, [][]string{
		{"A1", "充填済み", "倉庫", "", "", "", "", "", ""},
	})

	valid, failed := Validate([]Item{{ID: "Z99"}}, OpLend, snap)

	assert.Empty(t, valid)
	require.Len(t, failed, 1)
	assert.Equal(t, ReasonIDNotFound, failed[0].Reason)
}

func TestValidate_IDFormatVariantsMatch(t *testing.T) {
	// the sheet stores "A1"; clients submit display or sloppy forms
	snap := snapshotFromRows(t, [][]string{
		{"A1", "充填済み", "倉庫", "", "", "", "", "", ""},
	})

	for _, id := range []string{"A1", "A-01", "a1", "A 01", "ａ－０１"} {
		valid, failed := Validate([]Item{{ID: id}}, OpLend, snap)
		assert.Len(t, valid, 1, "id %q", id)
		assert.Empty(t, failed, "id %q", id)
	}
}

func TestValidate_WildcardStatusesBypassRules(t *testing.T) {
	// GIVEN bootstrap statuses that predate the rule table
	snap := snapshotFromRows(t, [][]string{
		{"A1", "", "倉庫", "", "", "", "", "", ""},
		{"A2", "新規登録", "倉庫", "", "", "", "", "", ""},
		{"A3", "不明", "倉庫", "", "", "", "", "", ""},
		{"A4", "メンテナンス完了", "倉庫", "", "", "", "", "", ""},
	})

	// WHEN validating an operation none of them satisfies by rule
	valid, failed := Validate([]Item{{ID: "A1"}, {ID: "A2"}, {ID: "A3"}, {ID: "A4"}}, OpFill, snap)

	// THEN all pass
	assert.Len(t, valid, 4)
	assert.Empty(t, failed)
}

func TestValidate_DamageReportAdmitsAnyStatus(t *testing.T) {
	snap := snapshotFromRows(t, [][]string{
		{"A1", "貸出中", "現場A", "", "", "", "", "", ""},
		{"A2", "空", "倉庫", "", "", "", "", "", ""},
	})

	valid, failed := Validate([]Item{{ID: "A1"}, {ID: "A2"}}, OpDamageReport, snap)

	assert.Len(t, valid, 2)
	assert.Empty(t, failed)
}

func TestValidate_RepairDoneNeedsDamagedFamily(t *testing.T) {
	snap := snapshotFromRows(t, [][]string{
		{"A1", "破損", "現場A", "", "", "", "", "", ""},
		{"A2", "不良", "倉庫", "", "", "", "", "", ""},
		{"A3", "故障", "倉庫", "", "", "", "", "", ""},
		{"A4", "充填済み", "倉庫", "", "", "", "", "", ""},
	})

	valid, failed := Validate(
		[]Item{{ID: "A1"}, {ID: "A2"}, {ID: "A3"}, {ID: "A4"}}, OpRepairDone, snap)

	assert.Len(t, valid, 3)
	require.Len(t, failed, 1)
	assert.Equal(t, "A4", failed[0].ID)
}

func TestValidate_ReturnCoversUnreturnedAndInHouse(t *testing.T) {
	snap := snapshotFromRows(t, [][]string{
		{"A1", "貸出中", "現場A", "", "", "", "", "", ""},
		{"A2", "未返却", "現場B", "", "", "", "", "", ""},
		{"A3", "自社利用中", "自社", "", "", "", "", "", ""},
	})

	valid, failed := Validate([]Item{{ID: "A1"}, {ID: "A2"}, {ID: "A3"}}, OpReturn, snap)

	assert.Len(t, valid, 3)
	assert.Empty(t, failed)
}
