package sales

import (
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingCashEntryStatus represents the status of a deferred cash entry
type PendingCashEntryStatus string

const (
	PendingCashEntryStatusPending PendingCashEntryStatus = "PENDING"
	PendingCashEntryStatusApplied PendingCashEntryStatus = "APPLIED"
	PendingCashEntryStatusFailed  PendingCashEntryStatus = "FAILED"
	PendingCashEntryStatusDead    PendingCashEntryStatus = "DEAD"
)

// Default retry configuration for deferred cash entries
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// PendingCashEntry is an outbox record for a cash movement that is written
// outside the sale's main transaction (deferred cash-entry mode). It makes
// the gap between the stock commit and the cash write explicit, retryable
// and idempotent instead of a silent best-effort write.
type PendingCashEntry struct {
	shared.BaseEntity
	SaleID      uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex"`
	SiteID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	Status      PendingCashEntryStatus `gorm:"type:varchar(20);not null;index"`
	RetryCount  int                    `gorm:"not null;default:0"`
	MaxRetries  int                    `gorm:"not null"`
	LastError   string                 `gorm:"type:varchar(255)"`
	NextRetryAt *time.Time             `gorm:"type:timestamptz"`
	AppliedAt   *time.Time             `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (PendingCashEntry) TableName() string {
	return "pending_cash_entries"
}

// NewPendingCashEntry creates a pending entry for a committed cash sale
func NewPendingCashEntry(saleID, siteID uuid.UUID, amount decimal.Decimal) (*PendingCashEntry, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale ID cannot be empty")
	}
	if siteID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SITE", "Site ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	return &PendingCashEntry{
		BaseEntity: shared.NewBaseEntity(),
		SaleID:     saleID,
		SiteID:     siteID,
		Amount:     amount,
		Status:     PendingCashEntryStatusPending,
		MaxRetries: DefaultMaxRetries,
	}, nil
}

// CanRetry returns true if the entry may be attempted again
func (e *PendingCashEntry) CanRetry() bool {
	if e.Status != PendingCashEntryStatusPending && e.Status != PendingCashEntryStatusFailed {
		return false
	}
	if e.NextRetryAt != nil && e.NextRetryAt.After(time.Now()) {
		return false
	}
	return true
}

// MarkApplied marks the cash movement as written
func (e *PendingCashEntry) MarkApplied() {
	now := time.Now()
	e.Status = PendingCashEntryStatusApplied
	e.AppliedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a failed attempt and schedules the next retry with
// exponential backoff. After MaxRetries the entry goes dead and requires
// manual reconciliation.
func (e *PendingCashEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = PendingCashEntryStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = PendingCashEntryStatusFailed
	backoff := DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1))
	next := time.Now().Add(backoff)
	e.NextRetryAt = &next
}

// IsDead returns true if the entry exhausted its retries
func (e *PendingCashEntry) IsDead() bool {
	return e.Status == PendingCashEntryStatusDead
}
