package sales

import (
	"time"

	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CancellationPolicy controls what happens to a sale row on cancellation
type CancellationPolicy string

const (
	// CancellationPolicyFlag keeps the cancelled sale for auditability
	CancellationPolicyFlag CancellationPolicy = "flag"
	// CancellationPolicyDelete removes the sale row after compensating
	CancellationPolicyDelete CancellationPolicy = "delete"
)

// CashEntryMode controls when a cash sale's income reaches the cash ledger
type CashEntryMode string

const (
	// CashEntryModeAtomic writes the cash movement inside the sale transaction
	CashEntryModeAtomic CashEntryMode = "atomic"
	// CashEntryModeDeferred queues the cash movement for a later apply
	CashEntryModeDeferred CashEntryMode = "deferred"
)

// Policy bundles the configurable sale behaviors
type Policy struct {
	Cancellation CancellationPolicy
	CashEntry    CashEntryMode
}

// DefaultPolicy keeps cancelled sales and writes cash entries atomically
func DefaultPolicy() Policy {
	return Policy{
		Cancellation: CancellationPolicyFlag,
		CashEntry:    CashEntryModeAtomic,
	}
}

// SaleLineRequest is one requested product line. Picks, when present,
// override the FIFO allocation with explicit operator-chosen lots.
type SaleLineRequest struct {
	ProductID uuid.UUID
	Pieces    int64
	UnitPrice decimal.Decimal
	Picks     []stock.LotPick
}

// CreateSaleRequest creates a sale with its lines
type CreateSaleRequest struct {
	ClientID      uuid.UUID
	SiteID        uuid.UUID
	OperatorID    uuid.UUID
	PaymentMethod sales.PaymentMethod
	Lines         []SaleLineRequest
}

// AllocationView is one lot pick of a confirmed sale line
type AllocationView struct {
	LotID  uuid.UUID `json:"lot_id"`
	Pieces int64     `json:"pieces"`
}

// SaleLineView is one confirmed sale line with its allocations
type SaleLineView struct {
	ProductID   uuid.UUID        `json:"product_id"`
	Pieces      int64            `json:"pieces"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	LineTotal   decimal.Decimal  `json:"line_total"`
	Allocations []AllocationView `json:"allocations"`
}

// CreateSaleResponse is the confirmed sale
type CreateSaleResponse struct {
	SaleID           uuid.UUID       `json:"sale_id"`
	Folio            string          `json:"folio"`
	Total            decimal.Decimal `json:"total"`
	SoldAt           time.Time       `json:"sold_at"`
	Lines            []SaleLineView  `json:"lines"`
	CashEntryPending bool            `json:"cash_entry_pending"`
}

// CancelSaleRequest reverses a sale's stock and cash effects
type CancelSaleRequest struct {
	SaleID     uuid.UUID
	SiteID     uuid.UUID
	OperatorID uuid.UUID
}

// CancelSaleResponse reports what the cancellation reversed
type CancelSaleResponse struct {
	SaleID          uuid.UUID        `json:"sale_id"`
	Deleted         bool             `json:"deleted"`
	RestockedPieces int64            `json:"restocked_pieces"`
	CashRefunded    *decimal.Decimal `json:"cash_refunded,omitempty"`
}

// SaleView is a read model of one sale
type SaleView struct {
	SaleID        uuid.UUID           `json:"sale_id"`
	Folio         string              `json:"folio"`
	ClientID      uuid.UUID           `json:"client_id"`
	SiteID        uuid.UUID           `json:"site_id"`
	PaymentMethod sales.PaymentMethod `json:"payment_method"`
	Status        sales.SaleStatus    `json:"status"`
	Total         decimal.Decimal     `json:"total"`
	SoldAt        time.Time           `json:"sold_at"`
	Lines         []SaleLineView      `json:"lines"`
}
