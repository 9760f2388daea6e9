package cash

import (
	"context"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ShiftRepository defines the interface for cash shift persistence
type ShiftRepository interface {
	// FindByID finds a shift by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Shift, error)

	// FindOpenBySite finds the open shift for a site, or ErrNotFound
	FindOpenBySite(ctx context.Context, siteID uuid.UUID) (*Shift, error)

	// FindBySite lists shifts for a site, newest first
	FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]Shift, error)

	// FindOpenSites lists the sites that currently have an open shift
	FindOpenSites(ctx context.Context) ([]uuid.UUID, error)

	// Save creates or updates a shift
	Save(ctx context.Context, shift *Shift) error
}

// MovementRepository defines the interface for the append-only cash ledger
type MovementRepository interface {
	// Create appends a movement (append-only, no update or delete)
	Create(ctx context.Context, movement *Movement) error

	// FindByShift finds all movements of a shift, oldest first
	FindByShift(ctx context.Context, shiftID uuid.UUID) ([]Movement, error)

	// FindBySale finds movements linked to a sale
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]Movement, error)

	// ExistsBySaleAndKind reports whether a movement of the given kind is
	// already linked to the sale. Used to keep deferred cash entries
	// idempotent.
	ExistsBySaleAndKind(ctx context.Context, saleID uuid.UUID, kind MovementKind) (bool, error)
}
