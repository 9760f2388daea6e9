package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FolioCounter is the single-row table backing the folio sequence. The row
// is locked while a sale reserves its number, so folios are gapless per
// store even under concurrent sales.
type FolioCounter struct {
	ID    int   `gorm:"primaryKey"`
	Value int64 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FolioCounter) TableName() string {
	return "folio_counters"
}

// GormSaleRepository implements sales.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale with its lines and allocations
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.Allocations").
		First(&sale, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindBySite lists sales for a site, newest first
func (r *GormSaleRepository) FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]sales.Sale, error) {
	var found []sales.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.Allocations").
		Where("site_id = ?", siteID).
		Order("sold_at DESC").
		Scopes(paginate(filter)).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindBySiteBetween finds sales for a site within a time window. A nil upper
// bound means the window is still open.
func (r *GormSaleRepository) FindBySiteBetween(ctx context.Context, siteID uuid.UUID, from time.Time, to *time.Time) ([]sales.Sale, error) {
	query := r.db.WithContext(ctx).
		Where("site_id = ? AND sold_at >= ?", siteID, from)
	if to != nil {
		query = query.Where("sold_at <= ?", *to)
	}

	var found []sales.Sale
	if err := query.Order("sold_at ASC").Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// NextFolioSeq reserves the next folio sequence number. The counter row is
// locked for the duration of the surrounding transaction so two sales can
// never reserve the same number.
func (r *GormSaleRepository) NextFolioSeq(ctx context.Context) (int64, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var counter FolioCounter
	if err := query.First(&counter, "id = ?", 1).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		counter = FolioCounter{ID: 1, Value: 0}
		if err := r.db.WithContext(ctx).Create(&counter).Error; err != nil {
			return 0, err
		}
	}

	counter.Value++
	if err := r.db.WithContext(ctx).Save(&counter).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}

// Save creates or updates a sale header with its lines and allocations
func (r *GormSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(sale).Error
}

// Delete removes a sale with its lines and allocations, children first
func (r *GormSaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var lineIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&sales.SaleLine{}).
		Where("sale_id = ?", id).
		Pluck("id", &lineIDs).Error
	if err != nil {
		return err
	}

	if len(lineIDs) > 0 {
		if err := r.db.WithContext(ctx).
			Where("sale_line_id IN ?", lineIDs).
			Delete(&sales.LotAllocation{}).Error; err != nil {
			return err
		}
		if err := r.db.WithContext(ctx).
			Where("sale_id = ?", id).
			Delete(&sales.SaleLine{}).Error; err != nil {
			return err
		}
	}

	return r.db.WithContext(ctx).Delete(&sales.Sale{}, "id = ?", id).Error
}

var _ sales.SaleRepository = (*GormSaleRepository)(nil)
