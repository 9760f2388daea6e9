package finance

import (
	"context"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ExpenseRepository defines the interface for expense persistence
type ExpenseRepository interface {
	// FindByID finds an expense by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ExpenseRecord, error)

	// FindBySite lists expenses for a site, newest first
	FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]ExpenseRecord, error)

	// Save creates or updates an expense record
	Save(ctx context.Context, expense *ExpenseRecord) error

	// Delete removes an expense record. Only the hard-delete cancellation
	// policy uses this.
	Delete(ctx context.Context, id uuid.UUID) error
}
