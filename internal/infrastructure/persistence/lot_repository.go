package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLotRepository implements stock.LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

// FindByID finds a lot by its ID
func (r *GormLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Lot, error) {
	var lot stock.Lot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByIDForUpdate finds a lot by ID taking a row lock. SQLite has no
// row-level locks and serializes writers itself, so the clause is skipped
// there.
func (r *GormLotRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*stock.Lot, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var lot stock.Lot
	if err := query.First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindAvailable finds lots with pieces > 0 for a product at a site in FIFO order
func (r *GormLotRepository) FindAvailable(ctx context.Context, productID, siteID uuid.UUID) ([]stock.Lot, error) {
	var lots []stock.Lot
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND site_id = ? AND pieces > 0", productID, siteID).
		Order("ingress_at ASC, id ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// FindCompatible finds a lot at the location that can absorb pieces of the
// given lineage, or nil when none exists. Lineage means same product, same
// ingress day and same production order.
func (r *GormLotRepository) FindCompatible(ctx context.Context, siteID, productID uuid.UUID, location stock.Location, ingressAt time.Time, productionOrderID *uuid.UUID) (*stock.Lot, error) {
	dayStart := time.Date(ingressAt.Year(), ingressAt.Month(), ingressAt.Day(), 0, 0, 0, 0, ingressAt.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := r.db.WithContext(ctx).
		Where("site_id = ? AND product_id = ? AND location = ?", siteID, productID, location).
		Where("ingress_at >= ? AND ingress_at < ?", dayStart, dayEnd)
	if productionOrderID == nil {
		query = query.Where("production_order_id IS NULL")
	} else {
		query = query.Where("production_order_id = ?", *productionOrderID)
	}

	var lot stock.Lot
	if err := query.Order("ingress_at ASC, id ASC").First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// FindBySite finds all lots at a site
func (r *GormLotRepository) FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]stock.Lot, error) {
	var lots []stock.Lot
	err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("ingress_at ASC, id ASC").
		Scopes(paginate(filter)).
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// Save creates or updates a lot
func (r *GormLotRepository) Save(ctx context.Context, lot *stock.Lot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// CountBySite counts lots at a site
func (r *GormLotRepository) CountBySite(ctx context.Context, siteID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&stock.Lot{}).
		Where("site_id = ?", siteID).
		Count(&count).Error
	return count, err
}

var _ stock.LotRepository = (*GormLotRepository)(nil)
