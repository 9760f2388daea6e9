package sales

import (
	"fmt"
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a sale is paid
type PaymentMethod string

const (
	// PaymentMethodCash is paid into the drawer of the open shift
	PaymentMethodCash PaymentMethod = "CASH"
	// PaymentMethodCard is collected through a card terminal
	PaymentMethodCard PaymentMethod = "CARD"
	// PaymentMethodTransfer is collected through a bank transfer
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	// PaymentMethodCredit is not collected at sale time
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

// String returns the string representation of PaymentMethod
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid returns true if the payment method is known
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCredit:
		return true
	}
	return false
}

// IsCash returns true if the method moves physical cash through the drawer
func (p PaymentMethod) IsCash() bool {
	return p == PaymentMethodCash
}

// IsCollected returns true if the method collects money at sale time.
// Credit sales count toward the sales total but never toward the cash
// balance or the collected total.
func (p PaymentMethod) IsCollected() bool {
	return p != PaymentMethodCredit
}

// SaleStatus represents the lifecycle state of a sale
type SaleStatus string

const (
	// SaleStatusCompleted is a sale whose stock and cash effects are applied
	SaleStatusCompleted SaleStatus = "COMPLETED"
	// SaleStatusCancelled is a sale whose effects were reversed
	SaleStatusCancelled SaleStatus = "CANCELLED"
)

// Sale is the header of one completed sale, with its line items and the
// per-line lot allocations that satisfied it.
type Sale struct {
	shared.BaseEntity
	FolioSeq      int64           `gorm:"not null;uniqueIndex"`
	Folio         string          `gorm:"type:varchar(20);not null"`
	ClientID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SiteID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	OperatorID    uuid.UUID       `gorm:"type:uuid;not null"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null"`
	Status        SaleStatus      `gorm:"type:varchar(20);not null;index"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SoldAt        time.Time       `gorm:"type:timestamptz;not null"`
	CancelledAt   *time.Time      `gorm:"type:timestamptz"`
	CancelledBy   *uuid.UUID      `gorm:"type:uuid"`

	Lines []SaleLine `gorm:"foreignKey:SaleID"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// SaleLine is one product line of a sale
type SaleLine struct {
	shared.BaseEntity
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Pieces    int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Allocations []LotAllocation `gorm:"foreignKey:SaleLineID"`
}

// TableName returns the table name for GORM
func (SaleLine) TableName() string {
	return "sale_lines"
}

// LotAllocation records which lot contributed how many pieces to a line
type LotAllocation struct {
	shared.BaseEntity
	SaleLineID uuid.UUID `gorm:"type:uuid;not null;index"`
	LotID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Pieces     int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LotAllocation) TableName() string {
	return "sale_lot_allocations"
}

// PlaceholderFolio is written while the definitive folio is still unknown.
// The real folio is derived from the sequence number the store assigns, so
// it can only be written after the header exists.
const PlaceholderFolio = "PENDING"

// NewSale creates a sale header with the placeholder folio
func NewSale(clientID, siteID, operatorID uuid.UUID, method PaymentMethod) (*Sale, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if siteID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SITE", "Site ID cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method: "+method.String())
	}
	return &Sale{
		BaseEntity:    shared.NewBaseEntity(),
		Folio:         PlaceholderFolio,
		ClientID:      clientID,
		SiteID:        siteID,
		OperatorID:    operatorID,
		PaymentMethod: method,
		Status:        SaleStatusCompleted,
		Total:         decimal.Zero,
		SoldAt:        time.Now(),
	}, nil
}

// AddLine appends a product line and updates the sale total
func (s *Sale) AddLine(productID uuid.UUID, pieces int64, unitPrice decimal.Decimal) (*SaleLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if pieces <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Piece count must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	lineTotal := unitPrice.Mul(decimal.NewFromInt(pieces))
	line := SaleLine{
		BaseEntity: shared.NewBaseEntity(),
		SaleID:     s.ID,
		ProductID:  productID,
		Pieces:     pieces,
		UnitPrice:  unitPrice,
		LineTotal:  lineTotal,
	}
	s.Lines = append(s.Lines, line)
	s.Total = s.Total.Add(lineTotal)
	return &s.Lines[len(s.Lines)-1], nil
}

// AssignFolio derives the human folio from the store-assigned sequence
func (s *Sale) AssignFolio(seq int64) error {
	if seq <= 0 {
		return shared.NewDomainError("INVALID_FOLIO", "Folio sequence must be positive")
	}
	s.FolioSeq = seq
	s.Folio = FormatFolio(seq)
	s.UpdatedAt = time.Now()
	return nil
}

// FormatFolio renders a sequence number as a zero-padded folio
func FormatFolio(seq int64) string {
	return fmt.Sprintf("V-%06d", seq)
}

// IsCancelled returns true if the sale's effects were reversed
func (s *Sale) IsCancelled() bool {
	return s.Status == SaleStatusCancelled
}

// Cancel marks the sale cancelled, keeping the header for auditability
func (s *Sale) Cancel(cancelledBy uuid.UUID) error {
	if s.IsCancelled() {
		return shared.NewDomainError("INVALID_STATE", "Sale is already cancelled")
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	now := time.Now()
	s.Status = SaleStatusCancelled
	s.CancelledAt = &now
	s.CancelledBy = &cancelledBy
	s.UpdatedAt = now
	return nil
}
