/*
handlers.go - HTTP API handlers for the tank operations system

PURPOSE:
  Exposes the tank rental operations core via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Operations:
    POST   /api/operations               Submit a batch status mutation
    POST   /api/maintenance              Submit repair-done / inspection-done
    GET    /api/maintenance/repair-candidates
    GET    /api/maintenance/inspection-due

  Read models:
    GET    /api/status-map               Full tank status map (?refresh=1)
    GET    /api/prefixes                 Tank ID prefixes for the pickers
    GET    /api/destinations             Active lending destinations
    GET    /api/in-house                 Tanks currently in in-house use
    GET    /api/repair-options           Selectable repair work items

  Session / staff:
    POST   /api/login                    Resolve user from email/passcode
    POST   /api/view-mode                Persist input-screen preference
    POST   /api/my-stats                 Personal monthly commission view
    GET    /api/staff                    Staff list (admin)

  Money / billing:
    POST   /api/admin/close              Run the monthly payroll close
    POST   /api/admin/refresh-masters    Drop all master-data caches
    GET    /api/billing/months           Months with billable lendings
    GET    /api/billing/statement        Per-destination monthly detail
    GET    /api/billing/invoice          Excel invoice download

REQUEST FLOW:
  1. Decode JSON body
  2. Validate with the shared validator instance
  3. Call domain logic (dispatcher, views, closer, biller)
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  Batch outcomes (partial failures, lock timeouts) are NOT transport
  errors: they ride inside the 200 Result payload the clients render.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tanklink/tankops/billing"
	"github.com/tanklink/tankops/config"
	"github.com/tanklink/tankops/inventory"
	"github.com/tanklink/tankops/money"
	"github.com/tanklink/tankops/staff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Dispatcher *inventory.Dispatcher
	Views      *inventory.Views
	Staff      *staff.Directory
	Ledger     *money.Ledger
	Closer     *money.Closer
	Biller     *billing.Biller
	Config     config.Config
}

// NewHandler wires the handler over the assembled domain services.
func NewHandler(
	d *inventory.Dispatcher,
	v *inventory.Views,
	dir *staff.Directory,
	ledger *money.Ledger,
	closer *money.Closer,
	biller *billing.Biller,
	cfg config.Config,
) *Handler {
	return &Handler{
		Dispatcher: d,
		Views:      v,
		Staff:      dir,
		Ledger:     ledger,
		Closer:     closer,
		Biller:     biller,
		Config:     cfg,
	}
}

// StaffResolver adapts the staff directory to the dispatcher's
// ActorResolver without the inventory package importing staff.
type StaffResolver struct {
	Directory *staff.Directory
}

func (s StaffResolver) Resolve(ctx context.Context, email, passcode string) (inventory.Actor, error) {
	u, err := s.Directory.Resolve(ctx, email, passcode)
	if err != nil {
		return inventory.Actor{}, err
	}
	return inventory.Actor{Name: u.Name, Role: u.Role, Rank: u.Rank, Email: u.Email}, nil
}

// =============================================================================
// OPERATION ENDPOINTS
// =============================================================================

// SubmitOperation handles a batch status mutation.
// POST /api/operations
func (h *Handler) SubmitOperation(w http.ResponseWriter, r *http.Request) {
	var req SubmitOperationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result := h.Dispatcher.Submit(r.Context(), req.toDomain())
	writeJSON(w, http.StatusOK, result)
}

// SubmitMaintenance handles repair-done and inspection-done batches.
// POST /api/maintenance
func (h *Handler) SubmitMaintenance(w http.ResponseWriter, r *http.Request) {
	var req SubmitMaintenanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	domainReq, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "金額の形式が不正です", err)
		return
	}

	result := h.Dispatcher.SubmitMaintenance(r.Context(), domainReq, h.Config.ValidityYears)
	writeJSON(w, http.StatusOK, result)
}

// ListRepairCandidates returns damaged-family tanks.
// GET /api/maintenance/repair-candidates
func (h *Handler) ListRepairCandidates(w http.ResponseWriter, r *http.Request) {
	items, err := inventory.ListRepairCandidates(r.Context(), h.Dispatcher.Store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "修理対象の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilItems(items))
}

// ListInspectionDue returns tanks near or past their inspection date.
// GET /api/maintenance/inspection-due
func (h *Handler) ListInspectionDue(w http.ResponseWriter, r *http.Request) {
	items, err := inventory.ListInspectionDue(r.Context(), h.Dispatcher.Store, h.Config.AlertMonths, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "検査期限の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilItems(items))
}

// =============================================================================
// READ-MODEL ENDPOINTS
// =============================================================================

// GetStatusMap returns the full tank status map.
// GET /api/status-map?refresh=1
func (h *Handler) GetStatusMap(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"
	m, err := h.Views.StatusMap(r.Context(), refresh)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ステータス一覧の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetPrefixes returns the distinct tank ID prefixes.
// GET /api/prefixes
func (h *Handler) GetPrefixes(w http.ResponseWriter, r *http.Request) {
	list, err := h.Views.Prefixes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "種別一覧の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetDestinations returns the active lending destinations.
// GET /api/destinations
func (h *Handler) GetDestinations(w http.ResponseWriter, r *http.Request) {
	list, err := h.Views.Destinations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "貸出先一覧の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilStrings(list))
}

// GetInHouseTanks lists tanks currently in in-house use.
// GET /api/in-house
func (h *Handler) GetInHouseTanks(w http.ResponseWriter, r *http.Request) {
	list, err := h.Views.InHouseTanks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "自社利用中一覧の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilStrings(list))
}

// GetRepairOptions returns the selectable repair work items.
// GET /api/repair-options
func (h *Handler) GetRepairOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Ledger.RepairOptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "修理項目の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// =============================================================================
// SESSION / STAFF ENDPOINTS
// =============================================================================

// Login resolves a user from email and/or passcode. Unknown
// credentials resolve to the guest user rather than an error.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	email := req.Email
	if h.Config.LoginMode == "PASSCODE" {
		// passcode-only deployments never trust the email credential
		email = ""
	}
	u, err := h.Staff.Resolve(r.Context(), email, req.Passcode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ユーザー情報の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// SaveViewMode persists a staff member's input-screen preference.
// POST /api/view-mode
func (h *Handler) SaveViewMode(w http.ResponseWriter, r *http.Request) {
	var req ViewModeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.Staff.SaveViewMode(r.Context(), req.Name, req.Passcode, req.ViewMode); err != nil {
		writeError(w, http.StatusNotFound, "該当する担当者が見つかりません", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MyStats serves one staff member's provisional monthly commission
// view. Credentials come in the body so passcodes stay out of URLs.
// POST /api/my-stats
func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.Staff.Resolve(r.Context(), req.Email, req.Passcode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ユーザー情報の取得に失敗しました", err)
		return
	}

	var month time.Time
	if req.Month != "" {
		month, _ = time.Parse(money.MonthLayout, req.Month)
	}
	sm, err := h.Closer.StaffMonth(r.Context(), u.Name, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "実績の集計に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, sm)
}

// ListStaff returns the active staff directory.
// GET /api/staff
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	users, err := h.Staff.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "担当者一覧の取得に失敗しました", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN / MONEY ENDPOINTS
// =============================================================================

// CloseMonth runs the payroll close for the requested month.
// POST /api/admin/close
func (h *Handler) CloseMonth(w http.ResponseWriter, r *http.Request) {
	var req CloseMonthRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var target time.Time
	if req.Month != "" {
		target, _ = time.Parse(money.MonthLayout, req.Month)
	}
	sum, err := h.Closer.Run(r.Context(), target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "月次締め処理に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// RefreshMasters drops every master-data cache entry.
// POST /api/admin/refresh-masters
func (h *Handler) RefreshMasters(w http.ResponseWriter, r *http.Request) {
	h.Views.InvalidateMasters()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// =============================================================================
// BILLING ENDPOINTS
// =============================================================================

// ListBillingMonths returns months with billable lendings.
// GET /api/billing/months
func (h *Handler) ListBillingMonths(w http.ResponseWriter, r *http.Request) {
	months, err := h.Biller.Months(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "請求対象月の取得に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilStrings(months))
}

// GetBillingStatement returns one month's per-destination detail.
// GET /api/billing/statement?month=2025-07
func (h *Handler) GetBillingStatement(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	stmt, err := h.Biller.Statement(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "請求明細の計算に失敗しました", err)
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

// DownloadInvoice streams the month's invoice workbook.
// GET /api/billing/invoice?month=2025-07
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	stmt, err := h.Biller.Statement(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "請求明細の計算に失敗しました", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.xlsx"`, month))
	if err := billing.WriteInvoice(stmt, w); err != nil {
		// Headers are already gone; nothing left but to log.
		writeError(w, http.StatusInternalServerError, "請求書の出力に失敗しました", err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func toUserDTO(u staff.User) UserDTO {
	return UserDTO{
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Rank:     u.Rank,
		ViewMode: u.ViewMode,
		IsAdmin:  u.IsAdmin(),
	}
}

// decodeAndValidate parses the body into dst and runs validation,
// writing the 400 itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "リクエスト本文が不正です", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var details any
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s: %s", fe.Field(), fe.Tag())
			}
			details = fields
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "入力内容に誤りがあります", Details: details})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func nonNilStrings(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func nonNilItems(items []inventory.MaintenanceItem) []inventory.MaintenanceItem {
	if items == nil {
		return []inventory.MaintenanceItem{}
	}
	return items
}
