package stock

import (
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Movement represents an immutable record of a quantity change affecting one lot.
// Once created, movements cannot be modified - reversing an effect means
// writing a new movement with the opposite sign, never editing an old one.
//
// A nil origin means the pieces came from outside the warehouse (a return);
// a nil destination means they left the system (a sale exit).
type Movement struct {
	shared.BaseEntity
	LotID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_movements_lot"`
	OperatorID  uuid.UUID  `gorm:"type:uuid;not null"`
	Pieces      int64      `gorm:"not null"` // always positive, direction given by origin/destination
	Origin      *Location  `gorm:"type:varchar(30)"`
	Destination *Location  `gorm:"type:varchar(30)"`
	SaleID      *uuid.UUID `gorm:"type:uuid;index:idx_stock_movements_sale"`
	MovedAt     time.Time  `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "stock_movements"
}

func newMovement(lotID, operatorID uuid.UUID, pieces int64, origin, destination *Location) (*Movement, error) {
	if lotID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOT", "Lot ID cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	if pieces <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Piece count must be positive")
	}
	if origin == nil && destination == nil {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Movement needs an origin or a destination")
	}
	if origin != nil && !origin.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Invalid origin location: "+origin.String())
	}
	if destination != nil && !destination.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Invalid destination location: "+destination.String())
	}
	return &Movement{
		BaseEntity:  shared.NewBaseEntity(),
		LotID:       lotID,
		OperatorID:  operatorID,
		Pieces:      pieces,
		Origin:      origin,
		Destination: destination,
		MovedAt:     time.Now(),
	}, nil
}

// NewTransferMovement records pieces moving between two locations
func NewTransferMovement(lotID, operatorID uuid.UUID, pieces int64, origin, destination Location) (*Movement, error) {
	if origin == destination {
		return nil, shared.ErrSameLocation
	}
	return newMovement(lotID, operatorID, pieces, &origin, &destination)
}

// NewExitMovement records pieces leaving the system through a sale
func NewExitMovement(lotID, operatorID uuid.UUID, pieces int64, origin Location, saleID uuid.UUID) (*Movement, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale ID cannot be empty")
	}
	m, err := newMovement(lotID, operatorID, pieces, &origin, nil)
	if err != nil {
		return nil, err
	}
	m.SaleID = &saleID
	return m, nil
}

// NewEntryMovement records pieces entering the system from outside,
// e.g. finished goods registered by production or a commercial arrival.
func NewEntryMovement(lotID, operatorID uuid.UUID, pieces int64, destination Location) (*Movement, error) {
	return newMovement(lotID, operatorID, pieces, nil, &destination)
}

// NewReturnMovement records pieces returning from outside the system,
// e.g. when a sale is cancelled and stock flows back to its location.
func NewReturnMovement(lotID, operatorID uuid.UUID, pieces int64, destination Location, saleID *uuid.UUID) (*Movement, error) {
	m, err := newMovement(lotID, operatorID, pieces, nil, &destination)
	if err != nil {
		return nil, err
	}
	m.SaleID = saleID
	return m, nil
}

// IsExit returns true if the movement took pieces out of the system
func (m *Movement) IsExit() bool {
	return m.Destination == nil
}

// IsReturn returns true if the movement brought pieces back into the system
func (m *Movement) IsReturn() bool {
	return m.Origin == nil
}

// SignedPieces returns the piece delta as seen by the warehouse:
// negative for exits, positive otherwise.
func (m *Movement) SignedPieces() int64 {
	if m.IsExit() {
		return -m.Pieces
	}
	return m.Pieces
}
