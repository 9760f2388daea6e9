package persistence

import (
	"context"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCashMovementRepository implements cash.MovementRepository using GORM.
// The ledger is append-only: the repository exposes no update or delete.
type GormCashMovementRepository struct {
	db *gorm.DB
}

// NewGormCashMovementRepository creates a new GormCashMovementRepository
func NewGormCashMovementRepository(db *gorm.DB) *GormCashMovementRepository {
	return &GormCashMovementRepository{db: db}
}

// Create appends a movement
func (r *GormCashMovementRepository) Create(ctx context.Context, movement *cash.Movement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByShift finds all movements of a shift, oldest first
func (r *GormCashMovementRepository) FindByShift(ctx context.Context, shiftID uuid.UUID) ([]cash.Movement, error) {
	var movements []cash.Movement
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("recorded_at ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// FindBySale finds movements linked to a sale
func (r *GormCashMovementRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]cash.Movement, error) {
	var movements []cash.Movement
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("recorded_at ASC, id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// ExistsBySaleAndKind reports whether a movement of the given kind is already
// linked to the sale
func (r *GormCashMovementRepository) ExistsBySaleAndKind(ctx context.Context, saleID uuid.UUID, kind cash.MovementKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&cash.Movement{}).
		Where("sale_id = ? AND kind = ?", saleID, kind).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ cash.MovementRepository = (*GormCashMovementRepository)(nil)
