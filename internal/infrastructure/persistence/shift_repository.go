package persistence

import (
	"context"
	"errors"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormShiftRepository implements cash.ShiftRepository using GORM
type GormShiftRepository struct {
	db *gorm.DB
}

// NewGormShiftRepository creates a new GormShiftRepository
func NewGormShiftRepository(db *gorm.DB) *GormShiftRepository {
	return &GormShiftRepository{db: db}
}

// FindByID finds a shift by its ID
func (r *GormShiftRepository) FindByID(ctx context.Context, id uuid.UUID) (*cash.Shift, error) {
	var shift cash.Shift
	if err := r.db.WithContext(ctx).First(&shift, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

// FindOpenBySite finds the open shift for a site, or ErrNotFound
func (r *GormShiftRepository) FindOpenBySite(ctx context.Context, siteID uuid.UUID) (*cash.Shift, error) {
	var shift cash.Shift
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND status = ?", siteID, cash.ShiftStatusOpen).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

// FindOpenSites lists the sites that currently have an open shift
func (r *GormShiftRepository) FindOpenSites(ctx context.Context) ([]uuid.UUID, error) {
	var siteIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&cash.Shift{}).
		Where("status = ?", cash.ShiftStatusOpen).
		Distinct().
		Pluck("site_id", &siteIDs).Error
	if err != nil {
		return nil, err
	}
	return siteIDs, nil
}

// FindBySite lists shifts for a site, newest first
func (r *GormShiftRepository) FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]cash.Shift, error) {
	var shifts []cash.Shift
	err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("opened_at DESC").
		Scopes(paginate(filter)).
		Find(&shifts).Error
	if err != nil {
		return nil, err
	}
	return shifts, nil
}

// Save creates or updates a shift
func (r *GormShiftRepository) Save(ctx context.Context, shift *cash.Shift) error {
	return r.db.WithContext(ctx).Save(shift).Error
}

var _ cash.ShiftRepository = (*GormShiftRepository)(nil)
