package persistence

import (
	"context"
	"errors"

	"github.com/aserradero/backend/internal/domain/finance"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExpenseRepository implements finance.ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByID finds an expense by its ID
func (r *GormExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ExpenseRecord, error) {
	var expense finance.ExpenseRecord
	if err := r.db.WithContext(ctx).First(&expense, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &expense, nil
}

// FindBySite lists expenses for a site, newest first
func (r *GormExpenseRepository) FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]finance.ExpenseRecord, error) {
	var expenses []finance.ExpenseRecord
	err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("spent_at DESC").
		Scopes(paginate(filter)).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// Save creates or updates an expense record
func (r *GormExpenseRepository) Save(ctx context.Context, expense *finance.ExpenseRecord) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

// Delete removes an expense record
func (r *GormExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&finance.ExpenseRecord{}, "id = ?", id).Error
}

var _ finance.ExpenseRepository = (*GormExpenseRepository)(nil)
