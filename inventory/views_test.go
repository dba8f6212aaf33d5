package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanklink/tankops/cache"
	"github.com/tanklink/tankops/sheet/memory"
)

func viewsFixture(t *testing.T) (*Views, *memory.Store) {
	t.Helper()
	st := memory.New()
	st.Seed(SheetStatus, [][]string{
		{"タンクID", "ステータス", "場所", "最終担当", "耐圧検査期限", "備考", "ログ備考", "更新日時", "種別"},
		{"A1", "充填済み", "倉庫", "", "", "", "", "", ""},
		{"A2", "貸出中", "現場A", "", "", "", "", "", ""},
		{"B1", "自社利用中", "自社", "", "", "", "", "", ""},
		{"C7", "自社利用中", "自社", "", "", "", "", "", ""},
	})
	st.Seed(SheetDest, [][]string{
		{"貸出先", "正式名称", "単価", "状態"},
		{"現場A", "株式会社エー建設", "1100", ""},
		{"現場B", "ビー工業", "2200", "停止"},
		{"【停止】現場C", "シー建材", "990", ""},
		{"現場D", "ディー土木", "1650", ""},
	})
	return NewViews(st, cache.New()), st
}

func TestStatusMap_ServesAndCaches(t *testing.T) {
	v, st := viewsFixture(t)

	m, err := v.StatusMap(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, m["A1"].Status)
	assert.Equal(t, "現場A", m["A2"].Location)

	// a direct sheet edit is invisible until refresh
	rows := st.Rows(SheetStatus)
	rows[1][colStatus] = "空"
	st.Seed(SheetStatus, rows)

	cached, err := v.StatusMap(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, cached["A1"].Status)

	fresh, err := v.StatusMap(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, fresh["A1"].Status)
}

func TestPrefixes_DistinctSorted(t *testing.T) {
	v, _ := viewsFixture(t)

	list, err := v.Prefixes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, list)
}

func TestPrefixes_FallbackOnEmptyTable(t *testing.T) {
	st := memory.New()
	st.Seed(SheetStatus, [][]string{
		{"タンクID", "ステータス", "場所", "最終担当", "耐圧検査期限", "備考", "ログ備考", "更新日時", "種別"},
	})
	v := NewViews(st, cache.New())

	list, err := v.Prefixes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H"}, list)
}

func TestDestinations_SkipsSuspended(t *testing.T) {
	v, _ := viewsFixture(t)

	list, err := v.Destinations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"現場A", "現場D"}, list)
}

func TestInHouseTanks_SortedDisplayIDs(t *testing.T) {
	v, _ := viewsFixture(t)

	list, err := v.InHouseTanks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"B-01", "C-07"}, list)
}

func TestMutationLock_BoundedAcquire(t *testing.T) {
	l := NewMutationLock()

	require.True(t, l.Acquire(time.Second))
	// held: a second acquire times out
	start := time.Now()
	assert.False(t, l.Acquire(30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	l.Release()
	assert.True(t, l.Acquire(time.Second))
	l.Release()

	// a stray extra release must not widen the semaphore
	l.Release()
	require.True(t, l.Acquire(time.Second))
	assert.False(t, l.Acquire(20*time.Millisecond))
	l.Release()
}
