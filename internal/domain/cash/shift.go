package cash

import (
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftStatus represents the lifecycle state of a cash shift
type ShiftStatus string

const (
	// ShiftStatusOpen means the drawer is accepting movements
	ShiftStatusOpen ShiftStatus = "OPEN"
	// ShiftStatusClosed means the shift was reconciled; it can never reopen
	ShiftStatusClosed ShiftStatus = "CLOSED"
)

// Shift represents one operating period of a site's cash drawer.
// The only transitions are open -> OPEN and OPEN -> CLOSED; a closed shift
// is never reopened and never deleted.
type Shift struct {
	shared.BaseEntity
	SiteID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_cash_shifts_site"`
	Status        ShiftStatus      `gorm:"type:varchar(20);not null;index"`
	OpeningFloat  decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	OpenedAt      time.Time        `gorm:"type:timestamptz;not null"`
	OpenedBy      uuid.UUID        `gorm:"type:uuid;not null"`
	ClosedAt      *time.Time       `gorm:"type:timestamptz"`
	ClosedBy      *uuid.UUID       `gorm:"type:uuid"`
	CountedAmount *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Variance      *decimal.Decimal `gorm:"type:decimal(12,2)"`
}

// TableName returns the table name for GORM
func (Shift) TableName() string {
	return "cash_shifts"
}

// NewShift opens a new shift with the given opening float
func NewShift(siteID uuid.UUID, openingFloat decimal.Decimal, openedBy uuid.UUID) (*Shift, error) {
	if siteID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SITE", "Site ID cannot be empty")
	}
	if openedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	if openingFloat.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Opening float cannot be negative")
	}
	return &Shift{
		BaseEntity:   shared.NewBaseEntity(),
		SiteID:       siteID,
		Status:       ShiftStatusOpen,
		OpeningFloat: openingFloat,
		OpenedAt:     time.Now(),
		OpenedBy:     openedBy,
	}, nil
}

// IsOpen returns true while the shift accepts movements
func (s *Shift) IsOpen() bool {
	return s.Status == ShiftStatusOpen
}

// Close reconciles the shift against a physically counted amount.
// The variance (counted minus theoretical) is persisted as a reported fact;
// no ledger movement is written for it.
func (s *Shift) Close(countedAmount, theoreticalBalance decimal.Decimal, closedBy uuid.UUID) error {
	if !s.IsOpen() {
		return shared.ErrShiftClosed
	}
	if closedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	if countedAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Counted amount cannot be negative")
	}
	now := time.Now()
	variance := countedAmount.Sub(theoreticalBalance)
	s.Status = ShiftStatusClosed
	s.ClosedAt = &now
	s.ClosedBy = &closedBy
	s.CountedAmount = &countedAmount
	s.Variance = &variance
	s.UpdatedAt = now
	return nil
}
