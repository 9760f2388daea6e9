package stock

import (
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Lot represents a discrete quantity of one product sitting at one location.
// Lots are created when production registers finished goods or when a
// commercial-goods arrival is received. They are never hard-deleted: a lot
// whose pieces reach zero remains as a closed-out record.
type Lot struct {
	shared.BaseEntity
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_lots_product_site,priority:1"`
	SiteID            uuid.UUID  `gorm:"type:uuid;not null;index:idx_lots_product_site,priority:2"`
	Location          Location   `gorm:"type:varchar(30);not null;index"`
	Pieces            int64      `gorm:"not null;check:pieces >= 0"`
	IngressAt         time.Time  `gorm:"type:timestamptz;not null;index"`
	ProductionOrderID *uuid.UUID `gorm:"type:uuid;index"` // origin production order, if any
}

// TableName returns the table name for GORM
func (Lot) TableName() string {
	return "stock_lots"
}

// NewLot creates a new lot at the given location
func NewLot(productID, siteID uuid.UUID, location Location, pieces int64, ingressAt time.Time, productionOrderID *uuid.UUID) (*Lot, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if siteID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SITE", "Site ID cannot be empty")
	}
	if !location.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Invalid location: "+location.String())
	}
	if pieces <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Piece count must be positive")
	}
	if ingressAt.IsZero() {
		ingressAt = time.Now()
	}
	return &Lot{
		BaseEntity:        shared.NewBaseEntity(),
		ProductID:         productID,
		SiteID:            siteID,
		Location:          location,
		Pieces:            pieces,
		IngressAt:         ingressAt,
		ProductionOrderID: productionOrderID,
	}, nil
}

// HasStock returns true if the lot has remaining pieces
func (l *Lot) HasStock() bool {
	return l.Pieces > 0
}

// Deduct removes pieces from the lot. Unlike a best-effort drain, a deduction
// that exceeds the available pieces is rejected outright: the caller must have
// validated the quantity, and a shortfall at this point means stale data.
func (l *Lot) Deduct(pieces int64) error {
	if pieces <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Deduction must be positive")
	}
	if pieces > l.Pieces {
		return shared.ErrInsufficientStock
	}
	l.Pieces -= pieces
	l.UpdatedAt = time.Now()
	return nil
}

// Add returns pieces to the lot (cancellation returns, merges)
func (l *Lot) Add(pieces int64) error {
	if pieces <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Addition must be positive")
	}
	l.Pieces += pieces
	l.UpdatedAt = time.Now()
	return nil
}

// Relocate changes the lot's location in place. Only valid for a full move
// when no compatible destination lot exists, so identity and history are kept.
func (l *Lot) Relocate(destination Location) error {
	if !destination.IsValid() {
		return shared.NewDomainError("INVALID_LOCATION", "Invalid location: "+destination.String())
	}
	if destination == l.Location {
		return shared.ErrSameLocation
	}
	l.Location = destination
	l.UpdatedAt = time.Now()
	return nil
}

// CanAbsorb returns true if other's pieces can be merged into this lot:
// same product, same site, same location, same ingress date and same origin
// production order.
func (l *Lot) CanAbsorb(other *Lot) bool {
	if other == nil || l.ID == other.ID {
		return false
	}
	if l.ProductID != other.ProductID || l.SiteID != other.SiteID || l.Location != other.Location {
		return false
	}
	if !sameDay(l.IngressAt, other.IngressAt) {
		return false
	}
	return sameOrigin(l.ProductionOrderID, other.ProductionOrderID)
}

// IsCompatibleAt reports whether this lot can receive pieces of the given
// lineage at the given location.
func (l *Lot) IsCompatibleAt(location Location, productID uuid.UUID, ingressAt time.Time, productionOrderID *uuid.UUID) bool {
	if l.Location != location || l.ProductID != productID {
		return false
	}
	if !sameDay(l.IngressAt, ingressAt) {
		return false
	}
	return sameOrigin(l.ProductionOrderID, productionOrderID)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameOrigin(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
