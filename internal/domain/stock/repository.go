package stock

import (
	"context"
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LotRepository defines the interface for stock lot persistence
type LotRepository interface {
	// FindByID finds a lot by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Lot, error)

	// FindByIDForUpdate finds a lot by ID taking a row lock, so quantity
	// re-checks inside a transaction see committed state only
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Lot, error)

	// FindAvailable finds lots with pieces > 0 for a product at a site,
	// ordered FIFO (ingress ascending, lot ID ascending on ties)
	FindAvailable(ctx context.Context, productID, siteID uuid.UUID) ([]Lot, error)

	// FindCompatible finds a lot at the location that can absorb pieces of
	// the given lineage, or nil when none exists
	FindCompatible(ctx context.Context, siteID, productID uuid.UUID, location Location, ingressAt time.Time, productionOrderID *uuid.UUID) (*Lot, error)

	// FindBySite finds all lots at a site
	FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]Lot, error)

	// Save creates or updates a lot
	Save(ctx context.Context, lot *Lot) error

	// CountBySite counts lots at a site
	CountBySite(ctx context.Context, siteID uuid.UUID) (int64, error)
}

// MovementRepository defines the interface for the append-only movement ledger
type MovementRepository interface {
	// Create appends a movement (append-only, no update or delete)
	Create(ctx context.Context, movement *Movement) error

	// FindByLot finds movements affecting a lot, oldest first
	FindByLot(ctx context.Context, lotID uuid.UUID) ([]Movement, error)

	// FindBySale finds movements linked to a sale
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]Movement, error)
}
