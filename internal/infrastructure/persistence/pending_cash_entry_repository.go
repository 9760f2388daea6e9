package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPendingCashEntryRepository implements sales.PendingCashEntryRepository using GORM
type GormPendingCashEntryRepository struct {
	db *gorm.DB
}

// NewGormPendingCashEntryRepository creates a new GormPendingCashEntryRepository
func NewGormPendingCashEntryRepository(db *gorm.DB) *GormPendingCashEntryRepository {
	return &GormPendingCashEntryRepository{db: db}
}

// FindBySale finds the pending entry for a sale, or ErrNotFound
func (r *GormPendingCashEntryRepository) FindBySale(ctx context.Context, saleID uuid.UUID) (*sales.PendingCashEntry, error) {
	var entry sales.PendingCashEntry
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindRetryable finds entries that are due for another attempt, oldest first
func (r *GormPendingCashEntryRepository) FindRetryable(ctx context.Context, siteID uuid.UUID, limit int) ([]sales.PendingCashEntry, error) {
	var entries []sales.PendingCashEntry
	err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Where("status IN ?", []sales.PendingCashEntryStatus{
			sales.PendingCashEntryStatusPending,
			sales.PendingCashEntryStatusFailed,
		}).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", time.Now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CountUnappliedBySite counts entries for a site that have not been applied
// to the cash ledger yet, regardless of backoff
func (r *GormPendingCashEntryRepository) CountUnappliedBySite(ctx context.Context, siteID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&sales.PendingCashEntry{}).
		Where("site_id = ?", siteID).
		Where("status IN ?", []sales.PendingCashEntryStatus{
			sales.PendingCashEntryStatusPending,
			sales.PendingCashEntryStatusFailed,
			sales.PendingCashEntryStatusDead,
		}).
		Count(&count).Error
	return count, err
}

// Save creates or updates a pending entry
func (r *GormPendingCashEntryRepository) Save(ctx context.Context, entry *sales.PendingCashEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

var _ sales.PendingCashEntryRepository = (*GormPendingCashEntryRepository)(nil)
