/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared Validate instance before touching domain
  logic. Responses are plain data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/types.go: the domain Request/Result pair
*/
package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tanklink/tankops/inventory"
)

// validate is the shared validator instance for request DTOs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// OPERATION SUBMISSION
// =============================================================================

// ItemDTO is one tank in a batch submission.
type ItemDTO struct {
	ID   string `json:"id" validate:"required"`
	Note string `json:"note,omitempty"`
}

// SubmitOperationRequest is a batch status-mutation submission.
type SubmitOperationRequest struct {
	Action      string    `json:"action" validate:"required"`
	Items       []ItemDTO `json:"items" validate:"required,min=1,dive"`
	Destination string    `json:"destination,omitempty"`
	IsUnused    bool      `json:"isUnused,omitempty"`
	IsDefect    bool      `json:"isDefect,omitempty"`
	Email       string    `json:"email,omitempty"`
	Passcode    string    `json:"passcode,omitempty"`
}

func (r SubmitOperationRequest) toDomain() inventory.Request {
	items := make([]inventory.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = inventory.Item{ID: it.ID, Note: it.Note}
	}
	return inventory.Request{
		Action:      inventory.Operation(r.Action),
		Items:       items,
		Destination: r.Destination,
		IsUnused:    r.IsUnused,
		IsDefect:    r.IsDefect,
		Email:       r.Email,
		Passcode:    r.Passcode,
	}
}

// SubmitMaintenanceRequest is a repair-done or inspection-done batch.
type SubmitMaintenanceRequest struct {
	Mode         string   `json:"mode" validate:"required,oneof=修理済み 耐圧検査完了"`
	IDs          []string `json:"ids" validate:"required,min=1,dive,required"`
	Cost         string   `json:"cost,omitempty"`
	RepairDetail string   `json:"repairDetail,omitempty"`
	Email        string   `json:"email,omitempty"`
	Passcode     string   `json:"passcode,omitempty"`
}

func (r SubmitMaintenanceRequest) toDomain() (inventory.MaintenanceRequest, error) {
	cost := decimal.Zero
	if r.Cost != "" {
		var err error
		if cost, err = decimal.NewFromString(r.Cost); err != nil {
			return inventory.MaintenanceRequest{}, err
		}
	}
	return inventory.MaintenanceRequest{
		Mode:     inventory.Operation(r.Mode),
		IDs:      r.IDs,
		Cost:     cost,
		Detail:   r.RepairDetail,
		Email:    r.Email,
		Passcode: r.Passcode,
	}, nil
}

// =============================================================================
// SESSION / STAFF
// =============================================================================

// LoginRequest resolves a user from email and/or passcode.
type LoginRequest struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Passcode string `json:"passcode,omitempty"`
}

// UserDTO is the resolved acting user.
type UserDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	Rank     string `json:"rank"`
	ViewMode string `json:"viewMode,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ViewModeRequest persists a staff member's input-screen preference.
type ViewModeRequest struct {
	Name     string `json:"name" validate:"required"`
	Passcode string `json:"passcode" validate:"required"`
	ViewMode string `json:"viewMode" validate:"required"`
}

// StatsRequest asks for one staff member's monthly commission view.
type StatsRequest struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Passcode string `json:"passcode,omitempty"`
	Month    string `json:"month,omitempty" validate:"omitempty,datetime=2006-01"`
}

// =============================================================================
// ADMIN
// =============================================================================

// CloseMonthRequest triggers a payroll close. Month defaults to the
// previous calendar month when empty.
type CloseMonthRequest struct {
	Month string `json:"month,omitempty" validate:"omitempty,datetime=2006-01"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
