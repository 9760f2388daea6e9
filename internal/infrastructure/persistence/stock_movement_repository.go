package persistence

import (
	"context"

	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements stock.MovementRepository using GORM.
// The ledger is append-only: the repository exposes no update or delete.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a movement
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *stock.Movement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByLot finds movements affecting a lot, oldest first
func (r *GormStockMovementRepository) FindByLot(ctx context.Context, lotID uuid.UUID) ([]stock.Movement, error) {
	var movements []stock.Movement
	err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("moved_at ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// FindBySale finds movements linked to a sale, oldest first
func (r *GormStockMovementRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]stock.Movement, error) {
	var movements []stock.Movement
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("moved_at ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

var _ stock.MovementRepository = (*GormStockMovementRepository)(nil)
