package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanklink/tankops/config"
	"github.com/tanklink/tankops/inventory"
	"github.com/tanklink/tankops/sheet/memory"
)

type countingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *countingNotifier) Push(_ context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, message)
	return nil
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func schedulerFixture(t *testing.T, now time.Time) (*Scheduler, *countingNotifier) {
	t.Helper()

	st := memory.New()
	st.Seed(inventory.SheetStatus, [][]string{
		{"タンクID", "ステータス", "場所", "最終担当", "耐圧検査期限", "備考", "ログ備考", "更新日時", "種別"},
		{"A1", "空", "倉庫", "", "2025-05-01", "", "", "", ""},
	})

	n := &countingNotifier{}
	s := NewScheduler(st, n, nil, config.Config{AlertMonths: 6})
	s.Now = func() time.Time { return now }
	return s, n
}

func TestTick_FiresInspectionSweepOncePerDay(t *testing.T) {
	// GIVEN a morning inside the sweep window
	s, n := schedulerFixture(t, time.Date(2025, 7, 10, 10, 0, 0, 0, time.Local))

	// WHEN ticking twice
	s.Tick(context.Background())
	s.Tick(context.Background())

	// THEN the alert goes out exactly once
	require.Equal(t, 1, n.count())
	assert.Contains(t, n.msgs[0], "【耐圧検査 期限通知】")
	assert.Contains(t, n.msgs[0], "A-01")
}

func TestTick_ConcurrentCallsFireEachJobOnce(t *testing.T) {
	// 19h on a weekday: inspection and lending windows are both open,
	// and the empty log makes the zero-lending alert fire too
	s, n := schedulerFixture(t, time.Date(2025, 7, 10, 19, 0, 0, 0, time.Local))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Tick(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, n.count())
}

func TestTick_BeforeWindowDoesNothing(t *testing.T) {
	s, n := schedulerFixture(t, time.Date(2025, 7, 10, 8, 0, 0, 0, time.Local))

	s.Tick(context.Background())

	assert.Equal(t, 0, n.count())
}
