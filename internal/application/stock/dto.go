package stock

import (
	"time"

	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/google/uuid"
)

// MoveLotRequest asks to move pieces of a lot to another location
type MoveLotRequest struct {
	LotID       uuid.UUID
	Destination stock.Location
	Pieces      int64
}

// MoveLotResponse reports the lot now holding the moved pieces
type MoveLotResponse struct {
	AffectedLotID            uuid.UUID `json:"affected_lot_id"`
	NewQuantityAtDestination int64     `json:"new_quantity_at_destination"`
}

// RegisterProductionRequest registers finished goods entering stock
type RegisterProductionRequest struct {
	ProductID         uuid.UUID
	SiteID            uuid.UUID
	Location          stock.Location
	Pieces            int64
	ProductionOrderID *uuid.UUID
	IngressAt         *time.Time // defaults to now
}

// IngressTimeOrNow returns the requested ingress time, defaulting to now
func (r RegisterProductionRequest) IngressTimeOrNow() time.Time {
	if r.IngressAt != nil {
		return *r.IngressAt
	}
	return time.Now()
}

// RegisterProductionResponse reports the lot the pieces landed in
type RegisterProductionResponse struct {
	LotID  uuid.UUID `json:"lot_id"`
	Pieces int64     `json:"pieces"`
}

// AvailabilityItem is one lot in a product's FIFO-ordered availability list
type AvailabilityItem struct {
	LotID     uuid.UUID      `json:"lot_id"`
	Location  stock.Location `json:"location"`
	Pieces    int64          `json:"pieces"`
	IngressAt time.Time      `json:"ingress_at"`
}
