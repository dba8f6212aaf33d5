/*
scheduler.go - Background job scheduler

PURPOSE:
  Runs the periodic depot checks without an external cron:
  - morning inspection-deadline sweep (alert to the crew channel)
  - evening zero-lending check (catches forgotten input days)
  - monthly payroll close on the first of the month

DESIGN:
  - One background goroutine with a coarse ticker
  - Each job has a trigger hour and a done-key (date or month) so a
    tick can never fire the same job twice
  - Jobs log and continue on error; the next window retries

USAGE:
  scheduler := NewScheduler(store, notifier, closer, cfg)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - notify/notify.go: message builders and delivery
  - money/closing.go: the close the monthly job drives
*/
package api

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tanklink/tankops/config"
	"github.com/tanklink/tankops/inventory"
	"github.com/tanklink/tankops/money"
	"github.com/tanklink/tankops/notify"
	"github.com/tanklink/tankops/sheet"
)

// Trigger hours (local time).
const (
	inspectionSweepHour = 9
	lendingCheckHour    = 18
	monthlyCloseHour    = 2
)

// Scheduler drives the periodic depot jobs.
type Scheduler struct {
	Store         sheet.Store
	Notifier      notify.Notifier
	Closer        *money.Closer
	Config        config.Config
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	// jobMu guards the done keys; Tick is callable from outside the
	// ticker goroutine. Kept separate from mu, which Stop holds while
	// waiting for the ticker goroutine to drain.
	jobMu          sync.Mutex
	doneInspection string // date key
	doneLending    string // date key
	doneClose      string // month key
}

// NewScheduler creates a new scheduler.
func NewScheduler(st sheet.Store, n notify.Notifier, closer *money.Closer, cfg config.Config) *Scheduler {
	return &Scheduler{
		Store:         st,
		Notifier:      n,
		Closer:        closer,
		Config:        cfg,
		CheckInterval: 10 * time.Minute,
		Enabled:       true,
		Now:           time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with check interval: %v", s.CheckInterval)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.Tick(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Tick evaluates every job window once. Exported so tests and the
// admin surface can drive it without the ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.Now()
	dateKey := now.Format("2006-01-02")
	monthKey := now.Format("2006-01")

	s.jobMu.Lock()
	inspection := now.Hour() >= inspectionSweepHour && s.doneInspection != dateKey
	if inspection {
		s.doneInspection = dateKey
	}
	lending := now.Hour() >= lendingCheckHour && s.doneLending != dateKey
	if lending {
		s.doneLending = dateKey
	}
	closing := now.Day() == 1 && now.Hour() >= monthlyCloseHour && s.doneClose != monthKey
	if closing {
		s.doneClose = monthKey
	}
	s.jobMu.Unlock()

	if inspection {
		s.runInspectionSweep(ctx, now)
	}
	if lending {
		s.runLendingCheck(ctx, now)
	}
	if closing {
		s.runMonthlyClose(ctx)
	}
}

func (s *Scheduler) runInspectionSweep(ctx context.Context, now time.Time) {
	items, err := inventory.ListInspectionDue(ctx, s.Store, s.Config.AlertMonths, now)
	if err != nil {
		log.Printf("[Scheduler] inspection sweep failed: %v", err)
		return
	}

	due := make([]notify.DueItem, len(items))
	for i, item := range items {
		due[i] = notify.DueItem{ID: item.ID, Label: item.Note}
	}
	msg := notify.BuildInspectionAlert(due)
	if msg == "" {
		return
	}
	if err := s.Notifier.Push(ctx, msg); err != nil {
		log.Printf("[Scheduler] inspection alert push failed: %v", err)
		return
	}
	log.Printf("[Scheduler] inspection alert sent for %d tanks", len(due))
}

// runLendingCheck alerts when a whole business day passed without a
// single lending row. Sundays are the depot's closed day.
func (s *Scheduler) runLendingCheck(ctx context.Context, now time.Time) {
	if now.Weekday() == time.Sunday {
		return
	}

	lent, err := s.lendingsToday(ctx, now)
	if err != nil {
		log.Printf("[Scheduler] lending check failed: %v", err)
		return
	}
	if lent {
		return
	}
	if err := s.Notifier.Push(ctx, notify.BuildNoLendingAlert(now)); err != nil {
		log.Printf("[Scheduler] lending alert push failed: %v", err)
	}
}

func (s *Scheduler) lendingsToday(ctx context.Context, now time.Time) (bool, error) {
	name := sheet.YearSheet(inventory.SheetLogBase, now.Year())
	rows, err := sheet.ReadAll(ctx, s.Store, name, 10)
	if err != nil {
		return false, err
	}
	prefix := now.Format("2006-01-02")
	for _, row := range rows {
		if len(row) > 4 && strings.HasPrefix(row[1], prefix) && row[4] == string(inventory.OpLend) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Scheduler) runMonthlyClose(ctx context.Context) {
	sum, err := s.Closer.Run(ctx, time.Time{})
	if err != nil {
		log.Printf("[Scheduler] monthly close failed: %v", err)
		return
	}
	log.Printf("[Scheduler] monthly close done: %s, %d staff", sum.Month, sum.Staff)
}
