package sales

import (
	"context"
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// FindByID finds a sale with its lines and allocations
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindBySite lists sales for a site, newest first
	FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]Sale, error)

	// FindBySiteBetween finds sales for a site within a time window,
	// used for the shift summary breakdown
	FindBySiteBetween(ctx context.Context, siteID uuid.UUID, from time.Time, to *time.Time) ([]Sale, error)

	// NextFolioSeq reserves the next folio sequence number for a site's
	// store. Must be called inside the sale's transaction.
	NextFolioSeq(ctx context.Context) (int64, error)

	// Save creates or updates a sale header with its lines and allocations
	Save(ctx context.Context, sale *Sale) error

	// Delete removes a sale with its lines and allocations, children first.
	// Only the hard-delete cancellation policy uses this.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PendingCashEntryRepository defines the interface for deferred cash entries
type PendingCashEntryRepository interface {
	// FindBySale finds the pending entry for a sale, or ErrNotFound
	FindBySale(ctx context.Context, saleID uuid.UUID) (*PendingCashEntry, error)

	// FindRetryable finds entries that are due for another attempt
	FindRetryable(ctx context.Context, siteID uuid.UUID, limit int) ([]PendingCashEntry, error)

	// CountUnappliedBySite counts entries for a site that have not been
	// applied to the cash ledger yet, regardless of backoff. A shift cannot
	// close while this is non-zero.
	CountUnappliedBySite(ctx context.Context, siteID uuid.UUID) (int64, error)

	// Save creates or updates a pending entry
	Save(ctx context.Context, entry *PendingCashEntry) error
}
