package staff_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanklink/tankops/sheet/memory"
	"github.com/tanklink/tankops/staff"
)

func newDirectory(t *testing.T) (*staff.Directory, *memory.Store) {
	st := memory.New()
	st.Seed(staff.Sheet, [][]string{
		{"氏名", "メール", "権限", "ランク", "状態", "パスコード", "表示"},
		{"山田", "yamada@example.com", "一般", "ゴールド", "", "1111", "リスト"},
		{"佐藤", "sato@example.com", "管理者", "", "", "2222", ""},
		{"鈴木", "suzuki@example.com", "一般", "シルバー", "停止", "3333", ""},
		{"【停止】田中", "tanaka@example.com", "一般", "ブロンズ", "", "4444", ""},
	})
	return staff.NewDirectory(st), st
}

func TestResolve_ByPasscode(t *testing.T) {
	dir, _ := newDirectory(t)

	u, err := dir.Resolve(context.Background(), "", " 1111 ")
	require.NoError(t, err)
	assert.Equal(t, "山田", u.Name)
	assert.Equal(t, "ゴールド", u.Rank)
	assert.Equal(t, "リスト", u.ViewMode)
}

func TestResolve_ByEmail_DefaultRank(t *testing.T) {
	dir, _ := newDirectory(t)

	u, err := dir.Resolve(context.Background(), "sato@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "佐藤", u.Name)
	assert.Equal(t, staff.DefaultRank, u.Rank, "empty rank cell falls back to the default rank")
	assert.True(t, u.IsAdmin())
}

func TestResolve_SuspendedRowsNeverMatch(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()

	u, err := dir.Resolve(ctx, "", "3333")
	require.NoError(t, err)
	assert.Equal(t, "ゲスト", u.Name, "停止 flag suspends the row")

	u, err = dir.Resolve(ctx, "", "4444")
	require.NoError(t, err)
	assert.Equal(t, "ゲスト", u.Name, "【停止】 name prefix suspends the row")
}

func TestResolve_GuestFallbackCarriesEmail(t *testing.T) {
	dir, _ := newDirectory(t)

	u, err := dir.Resolve(context.Background(), "stranger@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "stranger@example.com", u.Name)
	assert.Equal(t, staff.DefaultRank, u.Rank)
	assert.False(t, u.IsAdmin())
}

func TestVerifyPasscode(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()

	u, ok, err := dir.VerifyPasscode(ctx, "1111")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "山田", u.Name)

	_, ok, err = dir.VerifyPasscode(ctx, "9999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveViewMode(t *testing.T) {
	dir, st := newDirectory(t)

	require.NoError(t, dir.SaveViewMode(context.Background(), "", "2222", "ダイヤル"))

	rows := st.Rows(staff.Sheet)
	assert.Equal(t, "ダイヤル", rows[2][6])

	err := dir.SaveViewMode(context.Background(), "居ない人", "", "リスト")
	assert.Error(t, err)
}

func TestUpdateRanks(t *testing.T) {
	dir, st := newDirectory(t)

	err := dir.UpdateRanks(context.Background(), map[string]string{
		"山田":     "プラチナ",
		"存在しない": "ゴールド", // absent names are skipped
	})
	require.NoError(t, err)

	rows := st.Rows(staff.Sheet)
	assert.Equal(t, "プラチナ", rows[1][3])
}

func TestList_SkipsSuspended(t *testing.T) {
	dir, _ := newDirectory(t)

	users, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "山田", users[0].Name)
	assert.Equal(t, "佐藤", users[1].Name)
}
