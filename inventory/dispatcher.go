/*
dispatcher.go - Submission entry point for all tank operations

PURPOSE:
  Runs the locked critical section: snapshot -> validate -> mutate ->
  bulk write -> log append, then the best-effort aftermath (commission
  events, cache invalidation). Every structural failure becomes a
  structured Result; no panic or error crosses the client boundary.

LOCKING:
  One named lock, bounded wait, unconditional release via defer. All
  items of a batch are validated and mutated against one snapshot; two
  sequential lock holders each re-read fresh state, so lost updates
  require a write path that bypasses this dispatcher.

COMMISSION FORWARDING:
  Deliberately outside the correctness guarantee: events are built
  from the pre-capture of each item's status (a return from in-house
  use is paid as 自社返却, not 返却) and handed to the sink after the
  mutation committed. A sink failure is logged, never surfaced, and
  never rolls anything back.

SEE ALSO:
  - validator.go, writer.go: the two halves of the critical section
  - maintenance.go: repair/inspection submissions reusing this path
*/
package inventory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tanklink/tankops/cache"
	"github.com/tanklink/tankops/sheet"
	"github.com/tanklink/tankops/tankid"
)

// Dispatcher wires the mutation core to its collaborators.
type Dispatcher struct {
	Store      sheet.Store
	Lock       *MutationLock
	LockWait   time.Duration
	Resolver   ActorResolver
	Commission CommissionSink   // optional; nil disables forwarding
	Cache      CacheInvalidator // optional; nil disables invalidation

	// Now is the mutation clock; tests pin it.
	Now func() time.Time
}

func NewDispatcher(st sheet.Store, resolver ActorResolver) *Dispatcher {
	return &Dispatcher{
		Store:    st,
		Lock:     NewMutationLock(),
		LockWait: 10 * time.Second,
		Resolver: resolver,
		Now:      time.Now,
	}
}

// Guest is the fallback actor when no credential resolves.
var Guest = Actor{Name: "ゲスト", Role: "一般", Rank: "レギュラー"}

// Submit processes one batch submission end to end. The returned
// Result is always usable; it never panics or returns an error to the
// client boundary.
func (d *Dispatcher) Submit(ctx context.Context, req Request) Result {
	action := Operation(strings.TrimSpace(string(req.Action)))

	if len(req.Items) == 0 {
		return failure("送信データが空です", nil, 0)
	}

	if _, ok := Rules[action]; !ok {
		failed := make([]FailedItem, len(req.Items))
		for i, item := range req.Items {
			failed[i] = FailedItem{ID: item.ID, Reason: ReasonUnknownOperation}
		}
		return failure(fmt.Sprintf("システムエラー: 指示された操作 [%s] が不明です", action), failed, len(req.Items))
	}

	if action == OpLend && req.Destination == "" {
		return failure("貸出先が選択されていません", nil, len(req.Items))
	}

	if !d.Lock.Acquire(d.LockWait) {
		return failure("他ユーザーが処理中のため、少し待ってから再試行してください。", nil, len(req.Items))
	}
	defer d.Lock.Release()

	snap, err := LoadSnapshot(ctx, d.Store)
	if err != nil {
		log.Printf("[Dispatcher] snapshot load failed: %v", err)
		return failure("エラーが発生しました。時間をおいて再試行してください。", nil, len(req.Items))
	}

	validItems, failedItems := Validate(req.Items, action, snap)
	if len(validItems) == 0 {
		return Result{
			Success:     false,
			Message:     "送信できるタンクがありません",
			SuccessIDs:  []string{},
			FailedItems: failedItems,
			TotalCount:  len(req.Items),
		}
	}

	actor := d.resolveActor(ctx, req.Email, req.Passcode)

	// Pre-capture: the commission action for a return depends on the
	// status each tank had before this mutation.
	prevStatus := make(map[string]Status, len(validItems))
	for _, item := range validItems {
		if st, ok := snap.StatusOf(item.ID); ok {
			prevStatus[item.ID] = st
		}
	}

	now := d.Now()
	m, err := d.mutationFor(action, req, validItems, actor.Name)
	if err != nil {
		log.Printf("[Dispatcher] no handler for %s: %v", action, err)
		return failure(fmt.Sprintf("システムエラー: 指示された操作 [%s] が不明です", action), failedItems, len(req.Items))
	}
	if action == OpReturn {
		m.actionFor = inHouseReturnLabels(req, validItems, prevStatus)
	}

	writeResult, err := applyMutation(ctx, d.Store, snap, m, now)
	if err != nil {
		log.Printf("[Dispatcher] mutation write failed: %v", err)
		return failure("エラーが発生しました。時間をおいて再試行してください。", failedItems, len(req.Items))
	}

	if len(writeResult.SuccessIDs) > 0 {
		d.forwardCommission(ctx, req, validItems, writeResult.SuccessIDs, prevStatus, actor, m.action, now)
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
		TotalCount:  len(req.Items),
	}
}

// mutationFor selects target status, location, action label and
// prior-location override per operation.
func (d *Dispatcher) mutationFor(action Operation, req Request, items []Item, staffName string) (mutation, error) {
	switch action {
	case OpLend:
		dest := req.Destination
		return mutation{
			items: items, newStatus: StatusOnLoan, newLocation: dest,
			action: string(OpLend), staff: staffName, prevLocOverride: &dest,
		}, nil

	case OpInHouseUse:
		for i := range items {
			if items[i].Note == "" {
				items[i].Note = "社内使用"
			}
		}
		inHouse := LocationInHouse
		return mutation{
			items: items, newStatus: StatusInHouse, newLocation: LocationInHouse,
			action: string(OpInHouseUse), staff: staffName, prevLocOverride: &inHouse,
		}, nil

	case OpReturn:
		status, label := StatusEmpty, string(OpReturn)
		if req.IsDefect {
			label = ActionReturnUnfilled
		} else if req.IsUnused {
			status, label = StatusFilled, ActionReturnUnused
		}
		return mutation{
			items: items, newStatus: status, newLocation: LocationWarehouse,
			action: label, staff: staffName,
		}, nil

	case OpFill:
		return mutation{
			items: items, newStatus: StatusFilled, newLocation: LocationWarehouse,
			action: string(OpFill), staff: staffName,
		}, nil

	case OpDamageReport:
		// A damaged tank stays where it broke; only status/note move.
		return mutation{
			items: items, newStatus: StatusDamaged, keepLocation: true,
			action: string(OpDamageReport), staff: staffName,
		}, nil

	case OpRepairDone:
		return mutation{
			items: items, newStatus: StatusEmpty, newLocation: LocationWarehouse,
			action: string(OpRepairDone), staff: staffName,
		}, nil
	}
	return mutation{}, &UnknownOperationError{Action: action}
}

// inHouseReturnLabel picks the 自社返却 variant matching the batch's
// return flags.
func inHouseReturnLabel(req Request) string {
	switch {
	case req.IsDefect:
		return ActionInHouseReturnDefect
	case req.IsUnused:
		return ActionInHouseReturnUnused
	}
	return ActionInHouseReturn
}

// inHouseReturnLabels maps every tank coming back from in-house use to
// its 自社返却 family label so the history log keeps the two return
// populations apart. Nil when the batch touches no in-house tank.
func inHouseReturnLabels(req Request, items []Item, prevStatus map[string]Status) map[string]string {
	var m map[string]string
	for _, item := range items {
		if prevStatus[item.ID] != StatusInHouse {
			continue
		}
		if m == nil {
			m = make(map[string]string)
		}
		m[tankid.Normalize(item.ID)] = inHouseReturnLabel(req)
	}
	return m
}

// forwardCommission builds one event per successfully mutated item and
// hands the batch to the sink. Best-effort by design.
func (d *Dispatcher) forwardCommission(ctx context.Context, req Request, validItems []Item, successIDs []string, prevStatus map[string]Status, actor Actor, actionLabel string, now time.Time) {
	if d.Commission == nil {
		return
	}

	// SuccessIDs carry the IDs as submitted; compare on canonical keys
	// so sloppy variants of the same tank still match.
	succeeded := make(map[string]bool, len(successIDs))
	for _, id := range successIDs {
		succeeded[tankid.Normalize(id)] = true
	}

	var events []CommissionEvent
	for _, item := range validItems {
		if !succeeded[tankid.Normalize(item.ID)] {
			continue
		}
		eventAction := actionLabel
		if Operation(req.Action) == OpReturn && prevStatus[item.ID] == StatusInHouse {
			eventAction = inHouseReturnLabel(req)
		}

		ev := CommissionEvent{
			UUID:   uuid.NewString(),
			Date:   now,
			Staff:  actor.Name,
			Rank:   actor.Rank,
			Action: eventAction,
			TankID: tankid.FormatDisplay(item.ID),
			Note:   item.Note,
		}
		if Operation(req.Action) == OpRepairDone {
			ev.RepairCost = req.RepairCost
			ev.RepairDetail = req.RepairDetail
		}
		events = append(events, ev)
	}

	if err := d.Commission.Record(ctx, events); err != nil {
		log.Printf("[Dispatcher] commission log failed (mutation already committed): %v", err)
	}
}

func (d *Dispatcher) resolveActor(ctx context.Context, email, passcode string) Actor {
	if d.Resolver == nil {
		return Guest
	}
	actor, err := d.Resolver.Resolve(ctx, email, passcode)
	if err != nil {
		log.Printf("[Dispatcher] actor resolution failed, acting as guest: %v", err)
		return Guest
	}
	return actor
}

func failure(msg string, failed []FailedItem, total int) Result {
	return Result{
		Success:     false,
		Message:     msg,
		SuccessIDs:  []string{},
		FailedItems: nonNil(failed),
		TotalCount:  total,
	}
}

func nonNil(items []FailedItem) []FailedItem {
	if items == nil {
		return []FailedItem{}
	}
	return items
}
