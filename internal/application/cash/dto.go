package cash

import (
	"time"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenShiftRequest opens the cash drawer of a site
type OpenShiftRequest struct {
	SiteID       uuid.UUID
	OperatorID   uuid.UUID
	OpeningFloat decimal.Decimal
}

// OpenShiftResponse is the result of opening a shift
type OpenShiftResponse struct {
	ShiftID      uuid.UUID       `json:"shift_id"`
	SiteID       uuid.UUID       `json:"site_id"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	OpenedAt     time.Time       `json:"opened_at"`
}

// CloseShiftRequest reconciles a shift against a physically counted amount
type CloseShiftRequest struct {
	ShiftID       uuid.UUID
	OperatorID    uuid.UUID
	CountedAmount decimal.Decimal
}

// CloseShiftResponse is the result of closing a shift
type CloseShiftResponse struct {
	ShiftID            uuid.UUID       `json:"shift_id"`
	TheoreticalBalance decimal.Decimal `json:"theoretical_balance"`
	CountedAmount      decimal.Decimal `json:"counted_amount"`
	Variance           decimal.Decimal `json:"variance"`
	ClosedAt           time.Time       `json:"closed_at"`
}

// RecordAdjustmentRequest appends a manual movement to an open shift
type RecordAdjustmentRequest struct {
	ShiftID     uuid.UUID
	OperatorID  uuid.UUID
	Kind        cash.MovementKind
	Amount      decimal.Decimal
	Description string
}

// MovementItem is one cash ledger entry in a shift summary
type MovementItem struct {
	ID           uuid.UUID         `json:"id"`
	Kind         cash.MovementKind `json:"kind"`
	Amount       decimal.Decimal   `json:"amount"`
	SignedAmount decimal.Decimal   `json:"signed_amount"`
	Description  string            `json:"description"`
	SaleID       *uuid.UUID        `json:"sale_id,omitempty"`
	ExpenseID    *uuid.UUID        `json:"expense_id,omitempty"`
	RecordedAt   time.Time         `json:"recorded_at"`
}

// ShiftSummary is the reconciliation view of a shift. Every monetary figure
// is recomputed from the ledger and the sales in the shift window.
type ShiftSummary struct {
	ShiftID            uuid.UUID                  `json:"shift_id"`
	SiteID             uuid.UUID                  `json:"site_id"`
	Status             cash.ShiftStatus           `json:"status"`
	OpenedAt           time.Time                  `json:"opened_at"`
	ClosedAt           *time.Time                 `json:"closed_at,omitempty"`
	OpeningFloat       decimal.Decimal            `json:"opening_float"`
	TheoreticalBalance decimal.Decimal            `json:"theoretical_balance"`
	SalesTotal         decimal.Decimal            `json:"sales_total"`
	SalesCollected     decimal.Decimal            `json:"sales_collected"`
	SalesCredit        decimal.Decimal            `json:"sales_credit"`
	ExpensesTotal      decimal.Decimal            `json:"expenses_total"`
	SalesByMethod      map[string]decimal.Decimal `json:"sales_by_method"`
	CountedAmount      *decimal.Decimal           `json:"counted_amount,omitempty"`
	Variance           *decimal.Decimal           `json:"variance,omitempty"`
	Movements          []MovementItem             `json:"movements"`
}
