/*
maintenance.go - Repair and pressure-inspection workflows

PURPOSE:
  The maintenance screen submits two modes through the same mutation
  core: 修理済み (repair complete, damaged tanks back to empty) and
  耐圧検査完了 (inspection complete, which also pushes the next
  inspection due date out by the configured validity years). Both run
  under the same mutation lock as field operations - maintenance is a
  write path like any other.

SEE ALSO:
  - dispatcher.go: the locked mutation pipeline this reuses
  - notify/notify.go: the alert built from the inspection list
*/
package inventory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tanklink/tankops/cache"
	"github.com/tanklink/tankops/sheet"
	"github.com/tanklink/tankops/tankid"
)

// MaintenanceRequest is a submission from the maintenance screen.
type MaintenanceRequest struct {
	Mode     Operation       `json:"mode"` // 修理済み or 耐圧検査完了
	IDs      []string        `json:"ids"`
	Cost     decimal.Decimal `json:"cost,omitempty"` // reimbursed outlay, forwarded to the money log
	Detail   string          `json:"detail,omitempty"`
	Email    string          `json:"email,omitempty"`
	Passcode string          `json:"passcode,omitempty"`
}

// MaintenanceItem is one row of a maintenance candidate list.
type MaintenanceItem struct {
	ID     string `json:"id"` // display-formatted
	Note   string `json:"note"`
	Status Status `json:"status"`
}

// SubmitMaintenance applies a maintenance batch. Inspection completion
// bumps each tank's due date by validityYears before the normal
// status mutation runs.
func (d *Dispatcher) SubmitMaintenance(ctx context.Context, req MaintenanceRequest, validityYears int) Result {
	if req.Mode != OpRepairDone && req.Mode != OpInspectionDone {
		return failure(fmt.Sprintf("システムエラー: 指示された操作 [%s] が不明です", req.Mode), nil, len(req.IDs))
	}
	if len(req.IDs) == 0 {
		return failure("送信データが空です", nil, 0)
	}

	items := make([]Item, len(req.IDs))
	for i, id := range req.IDs {
		items[i] = Item{ID: id}
	}

	if !d.Lock.Acquire(d.LockWait) {
		return failure("他ユーザーが処理中のため、少し待ってから再試行してください。", nil, len(items))
	}
	defer d.Lock.Release()

	snap, err := LoadSnapshot(ctx, d.Store)
	if err != nil {
		log.Printf("[Maintenance] snapshot load failed: %v", err)
		return failure("エラーが発生しました。時間をおいて再試行してください。", nil, len(items))
	}

	validItems, failedItems := Validate(items, req.Mode, snap)
	if len(validItems) == 0 {
		return Result{
			Success:     false,
			Message:     "送信できるタンクがありません",
			SuccessIDs:  []string{},
			FailedItems: failedItems,
			TotalCount:  len(items),
		}
	}

	actor := d.resolveActor(ctx, req.Email, req.Passcode)
	now := d.Now()

	if req.Mode == OpInspectionDone {
		due := now.AddDate(validityYears, 0, 0).Format(DateLayout)
		for _, item := range validItems {
			if idx, ok := snap.RowIndex(item.ID); ok {
				row := sheet.PadRow(snap.Rows[idx], rowWidth)
				row[colInspectionDue] = due
				snap.Rows[idx] = row
			}
		}
	}

	writeResult, err := applyMutation(ctx, d.Store, snap, mutation{
		items:       validItems,
		newStatus:   StatusEmpty,
		newLocation: LocationWarehouse,
		action:      string(req.Mode),
		staff:       actor.Name,
	}, now)
	if err != nil {
		log.Printf("[Maintenance] mutation write failed: %v", err)
		return failure("エラーが発生しました。時間をおいて再試行してください。", failedItems, len(items))
	}

	if len(writeResult.SuccessIDs) > 0 {
		d.forwardMaintenanceCommission(ctx, req, snap, writeResult.SuccessIDs, actor, now)
		if d.Cache != nil {
			d.Cache.Remove(cache.KeyTankStatusMap)
		}
	}

	allFailed := append(failedItems, writeResult.FailedItems...)
	return Result{
		Success:     len(writeResult.SuccessIDs) > 0,
		Message:     writeResult.Message,
		SuccessIDs:  writeResult.SuccessIDs,
		FailedItems: nonNil(allFailed),
		TotalCount:  len(items),
	}
}

func (d *Dispatcher) forwardMaintenanceCommission(ctx context.Context, req MaintenanceRequest, snap *Snapshot, successIDs []string, actor Actor, now time.Time) {
	if d.Commission == nil {
		return
	}

	var events []CommissionEvent
	for _, id := range successIDs {
		display := tankid.FormatDisplay(id)
		if idx, ok := snap.RowIndex(id); ok {
			display = tankid.FormatDisplay(snap.Rows[idx][colID])
		}
		events = append(events, CommissionEvent{
			UUID:         uuid.NewString(),
			Date:         now,
			Staff:        actor.Name,
			Rank:         actor.Rank,
			Action:       string(req.Mode),
			TankID:       display,
			RepairCost:   req.Cost,
			RepairDetail: req.Detail,
		})
	}

	if err := d.Commission.Record(ctx, events); err != nil {
		log.Printf("[Maintenance] commission log failed (mutation already committed): %v", err)
	}
}

// ListRepairCandidates returns the damaged tanks eligible for 修理済み.
func ListRepairCandidates(ctx context.Context, st sheet.Store) ([]MaintenanceItem, error) {
	snap, err := LoadSnapshot(ctx, st)
	if err != nil {
		return nil, err
	}

	var list []MaintenanceItem
	for i := 1; i < len(snap.Rows); i++ {
		row := sheet.PadRow(snap.Rows[i], rowWidth)
		if st := Status(row[colStatus]); IsDamaged(st) {
			list = append(list, MaintenanceItem{
				ID:     tankid.FormatDisplay(row[colID]),
				Note:   row[colNote],
				Status: st,
			})
		}
	}
	return list, nil
}

// ListInspectionDue returns tanks whose pressure-inspection due date
// falls within alertMonths from today, most overdue first. Disposed
// tanks are skipped.
func ListInspectionDue(ctx context.Context, st sheet.Store, alertMonths int, today time.Time) ([]MaintenanceItem, error) {
	snap, err := LoadSnapshot(ctx, st)
	if err != nil {
		return nil, err
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	limit := day.AddDate(0, alertMonths, 0)

	var list []MaintenanceItem
	for i := 1; i < len(snap.Rows); i++ {
		row := sheet.PadRow(snap.Rows[i], rowWidth)
		// already at inspection or scrapped: nothing to chase
		switch Status(row[colStatus]) {
		case StatusInspection, StatusDisposed:
			continue
		}
		due, err := time.ParseInLocation(DateLayout, row[colInspectionDue], today.Location())
		if err != nil {
			continue
		}
		if due.After(limit) {
			continue
		}

		label := fmt.Sprintf("あと%dヶ月 (%s)", monthsUntil(day, due), due.Format("2006/01/02"))
		if due.Before(day) {
			label = fmt.Sprintf("●期限切 (%s)", due.Format("2006/01/02"))
		}
		list = append(list, MaintenanceItem{
			ID:     tankid.FormatDisplay(row[colID]),
			Note:   label,
			Status: Status(row[colStatus]),
		})
	}
	return list, nil
}

func monthsUntil(from, to time.Time) int {
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 30
}
