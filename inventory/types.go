/*
Package inventory is the status-mutation and reconciliation core.

PURPOSE:
  Validates and applies tank-state transitions (lend/return/fill/
  damage/repair/inspection), appends one immutable history-log row per
  successful mutation, and forwards a derived commission event to the
  money ledger. Field staff submit concurrently from mobile devices;
  a single named lock guarantees at-most-one winner per conflicting
  submission and one consistent snapshot per batch.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status / Operation: fixed domain vocabulary (sheet cell values are
    the Japanese terms staff see; they are data, not i18n)
  - Rule table: operation -> {allowed prior statuses, next status}
  - Wildcard statuses: freshly registered/maintained tanks bypass the
    rule table (explicit allow-list, checked before the rules)
  - Row layout: the 9-column status-sheet schema

DESIGN PRINCIPLES:
  1. Per-item failures are data in the response, never errors
  2. Structural failures (lock, unknown op, store) fail the batch
  3. The history log is append-only; corrections are new rows

SEE ALSO:
  - validator.go: partitions a batch against the rule table
  - writer.go:    snapshot mutation + log append
  - dispatcher.go: lock, snapshot, handlers, commission forwarding
*/
package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS VOCABULARY
// =============================================================================

// Status is a tank state as stored in the status sheet. The values are
// the operational vocabulary used on the floor.
type Status string

const (
	StatusEmpty      Status = "空"
	StatusFilled     Status = "充填済み"
	StatusInStock    Status = "保管中"
	StatusOnLoan     Status = "貸出中"
	StatusUnreturned Status = "未返却"
	StatusInHouse    Status = "自社利用中"
	StatusDamaged    Status = "破損"
	StatusDefective  Status = "不良"
	StatusBroken     Status = "故障"
	StatusInspection Status = "耐圧検査"
	StatusDisposed   Status = "廃棄"
)

// Bootstrap statuses bypass the transition check entirely: a freshly
// registered or freshly maintained tank may proceed with any operation.
var wildcardStatuses = map[Status]bool{
	"":                 true,
	"新規登録":       true,
	"不明":             true,
	"メンテナンス完了": true,
}

// IsWildcard reports whether st is exempt from rule-table checks.
func IsWildcard(st Status) bool { return wildcardStatuses[st] }

// damagedStatuses are collectively "damaged" for repair eligibility.
var damagedStatuses = []Status{StatusDamaged, StatusDefective, StatusBroken}

// IsDamaged reports whether st is one of the damaged family.
func IsDamaged(st Status) bool {
	for _, d := range damagedStatuses {
		if st == d {
			return true
		}
	}
	return false
}

// =============================================================================
// OPERATIONS AND RULE TABLE
// =============================================================================

// Operation is a submittable action name.
type Operation string

const (
	OpLend         Operation = "貸出"
	OpInHouseUse   Operation = "自社利用"
	OpReturn       Operation = "返却"
	OpFill         Operation = "充填"
	OpDamageReport Operation = "破損報告"
	OpRepairDone   Operation = "修理済み"

	// Maintenance mode, dispatched through SubmitMaintenance.
	OpInspectionDone Operation = "耐圧検査完了"
)

// Log-only action labels. These appear in the history and commission
// logs but are not submittable operations of their own.
const (
	ActionReturnUnfilled      = "返却(未充填)"
	ActionReturnUnused        = "未使用返却"
	ActionInHouseReturn       = "自社返却"
	ActionInHouseReturnUnused = "自社返却(未使用)"
	ActionInHouseReturnDefect = "自社返却(不備)"
)

// Rule describes one row of the transition table. An empty AllowedPrev
// set admits any prior status.
type Rule struct {
	AllowedPrev []Status
	Next        Status
}

// Rules is the domain transition table. It is fixed vocabulary, not
// configuration.
var Rules = map[Operation]Rule{
	OpLend:         {AllowedPrev: []Status{StatusFilled, StatusInStock}, Next: StatusOnLoan},
	OpInHouseUse:   {AllowedPrev: []Status{StatusFilled, StatusInStock}, Next: StatusInHouse},
	OpReturn:       {AllowedPrev: []Status{StatusOnLoan, StatusUnreturned, StatusInHouse}, Next: StatusEmpty},
	OpFill:         {AllowedPrev: []Status{StatusEmpty}, Next: StatusFilled},
	OpDamageReport: {AllowedPrev: nil, Next: StatusDamaged},
	OpRepairDone:   {AllowedPrev: damagedStatuses, Next: StatusEmpty},
}

// Locations written by operation handlers.
const (
	LocationWarehouse = "倉庫"
	LocationInHouse   = "自社"
)

// =============================================================================
// SHEET LAYOUT
// =============================================================================

// Sheet names in the primary store.
const (
	SheetStatus  = "タンクステータス"
	SheetLogBase = "履歴ログ" // year-suffixed: 履歴ログ2025
	SheetDest    = "貸出先リスト"
)

// Status-sheet columns (0-based offsets into a row slice).
const (
	colID            = 0
	colStatus        = 1
	colLocation      = 2
	colStaff         = 3
	colInspectionDue = 4
	colNote          = 5
	colLogNote       = 6
	colUpdatedAt     = 7
	colTankType      = 8

	rowWidth = 9
)

// LogHeader is the header row of a new year log sheet.
var LogHeader = []string{"UUID", "日時", "時刻", "タンクID", "操作", "場所", "備考", "担当者", "直前貸出先", "種別"}

// Timestamp layouts used in sheet cells.
const (
	TimeLayout      = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// Item is one submitted tank reference.
type Item struct {
	ID   string `json:"id"`
	Note string `json:"note,omitempty"`
}

// Request is a batch submission from a client.
type Request struct {
	Action       Operation       `json:"action"`
	Items        []Item          `json:"items"`
	Destination  string          `json:"destination,omitempty"`
	IsUnused     bool            `json:"isUnused,omitempty"`
	IsDefect     bool            `json:"isDefect,omitempty"`
	RepairCost   decimal.Decimal `json:"repairCost,omitempty"`
	RepairDetail string          `json:"repairDetail,omitempty"`

	// Acting-user credential: email (platform identity) and/or passcode.
	Email    string `json:"email,omitempty"`
	Passcode string `json:"passcode,omitempty"`
}

// Reason codes carried in FailedItem.
const (
	ReasonIDNotFound       = "ID_NOT_FOUND"
	ReasonStatusMismatch   = "STATUS_MISMATCH"
	ReasonUnknownOperation = "UNKNOWN_OPERATION"
)

// FailedItem names one rejected tank and why. Observed carries the
// current status on a mismatch so the operator can correct the sheet.
type FailedItem struct {
	ID       string `json:"id"`
	Reason   string `json:"reason"`
	Observed Status `json:"observedStatus,omitempty"`
}

// Result is the structured submission response. Partial success is the
// norm: a ten-item batch with two bad IDs reports eight successes and
// two named failures.
type Result struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	SuccessIDs  []string     `json:"successIds"`
	FailedItems []FailedItem `json:"failedItems"`
	TotalCount  int          `json:"totalCount"`
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Actor is the resolved acting staff identity.
type Actor struct {
	Name  string
	Role  string
	Rank  string
	Email string
}

// ActorResolver resolves a submitting user from credential material.
// Implemented by the staff directory; a guest fallback must be
// returned rather than an error when nothing matches.
type ActorResolver interface {
	Resolve(ctx context.Context, email, passcode string) (Actor, error)
}

// CommissionEvent is the derived reward event forwarded to the money
// ledger after a successful mutation. Best-effort: a failure to record
// it never rolls back the status mutation.
type CommissionEvent struct {
	UUID         string
	Date         time.Time
	Staff        string
	Rank         string
	Action       string
	TankID       string // display-formatted
	Note         string
	RepairCost   decimal.Decimal
	RepairDetail string
}

// CommissionSink receives derived commission events.
type CommissionSink interface {
	Record(ctx context.Context, events []CommissionEvent) error
}

// CacheInvalidator lets the dispatcher drop derived read caches after
// a commit. Satisfied by *cache.Cache.
type CacheInvalidator interface {
	Remove(key string)
}
