package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service owns lot mutations and the append-only movement ledger.
// Every mutating operation runs inside a transaction scope so the lot
// update and its ledger entry commit together or not at all.
type Service struct {
	scope   TransactionScope
	lotRepo stock.LotRepository
	logger  *zap.Logger
}

// NewService creates a new stock service
func NewService(scope TransactionScope, lotRepo stock.LotRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:   scope,
		lotRepo: lotRepo,
		logger:  logger,
	}
}

// MoveLot moves pieces of a lot to another location.
//
// A full move relocates the lot row in place when no compatible lot exists
// at the destination, preserving the lot's identity and history. In every
// other case pieces flow into a compatible destination lot, or into a new
// lot carrying the same product, ingress date and origin lineage.
// Exactly one movement is appended per call, tagged with the lot that ends
// up holding the pieces at the destination.
func (s *Service) MoveLot(ctx context.Context, operatorID uuid.UUID, req MoveLotRequest) (*MoveLotResponse, error) {
	if req.Pieces <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Piece count must be positive")
	}
	if !req.Destination.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Invalid destination: "+req.Destination.String())
	}

	var resp *MoveLotResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lot, err := repos.LotRepo().FindByIDForUpdate(ctx, req.LotID)
		if err != nil {
			return err
		}
		if req.Destination == lot.Location {
			return shared.ErrSameLocation
		}
		if req.Pieces > lot.Pieces {
			return shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Lot has %d pieces, cannot move %d", lot.Pieces, req.Pieces))
		}

		origin := lot.Location
		dest, err := repos.LotRepo().FindCompatible(ctx, lot.SiteID, lot.ProductID, req.Destination, lot.IngressAt, lot.ProductionOrderID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		var affected *stock.Lot
		switch {
		case dest != nil:
			// Merge into the compatible destination lot, full or partial.
			if err := dest.Add(req.Pieces); err != nil {
				return err
			}
			if err := lot.Deduct(req.Pieces); err != nil {
				return err
			}
			if err := repos.LotRepo().Save(ctx, lot); err != nil {
				return err
			}
			if err := repos.LotRepo().Save(ctx, dest); err != nil {
				return err
			}
			affected = dest
		case req.Pieces == lot.Pieces:
			// Full move with no merge target: relocate in place.
			if err := lot.Relocate(req.Destination); err != nil {
				return err
			}
			if err := repos.LotRepo().Save(ctx, lot); err != nil {
				return err
			}
			affected = lot
		default:
			// Partial move with no merge target: split off a new lot
			// carrying the same lineage.
			split, err := stock.NewLot(lot.ProductID, lot.SiteID, req.Destination, req.Pieces, lot.IngressAt, lot.ProductionOrderID)
			if err != nil {
				return err
			}
			if err := lot.Deduct(req.Pieces); err != nil {
				return err
			}
			if err := repos.LotRepo().Save(ctx, lot); err != nil {
				return err
			}
			if err := repos.LotRepo().Save(ctx, split); err != nil {
				return err
			}
			affected = split
		}

		movement, err := stock.NewTransferMovement(affected.ID, operatorID, req.Pieces, origin, req.Destination)
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		resp = &MoveLotResponse{
			AffectedLotID:            affected.ID,
			NewQuantityAtDestination: affected.Pieces,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lot moved",
		zap.String("lot_id", req.LotID.String()),
		zap.String("destination", req.Destination.String()),
		zap.Int64("pieces", req.Pieces),
	)
	return resp, nil
}

// RegisterProduction registers finished goods entering stock. Pieces merge
// into a compatible lot when one exists at the location, otherwise a new
// lot is created. An entry movement is appended either way.
func (s *Service) RegisterProduction(ctx context.Context, operatorID uuid.UUID, req RegisterProductionRequest) (*RegisterProductionResponse, error) {
	if req.Pieces <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Piece count must be positive")
	}

	var resp *RegisterProductionResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		lot, err := stock.NewLot(req.ProductID, req.SiteID, req.Location, req.Pieces, req.IngressTimeOrNow(), req.ProductionOrderID)
		if err != nil {
			return err
		}
		existing, err := repos.LotRepo().FindCompatible(ctx, req.SiteID, req.ProductID, req.Location, lot.IngressAt, req.ProductionOrderID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		target := lot
		if existing != nil {
			if err := existing.Add(req.Pieces); err != nil {
				return err
			}
			target = existing
		}
		if err := repos.LotRepo().Save(ctx, target); err != nil {
			return err
		}

		movement, err := stock.NewEntryMovement(target.ID, operatorID, req.Pieces, req.Location)
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		resp = &RegisterProductionResponse{LotID: target.ID, Pieces: target.Pieces}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("production registered",
		zap.String("product_id", req.ProductID.String()),
		zap.Int64("pieces", req.Pieces),
		zap.String("location", req.Location.String()),
	)
	return resp, nil
}

// Availability returns the FIFO-ordered lots with stock for a product at a
// site, for the allocation UI.
func (s *Service) Availability(ctx context.Context, productID, siteID uuid.UUID) ([]AvailabilityItem, error) {
	lots, err := s.lotRepo.FindAvailable(ctx, productID, siteID)
	if err != nil {
		return nil, err
	}
	items := make([]AvailabilityItem, 0, len(lots))
	for _, lot := range lots {
		items = append(items, AvailabilityItem{
			LotID:     lot.ID,
			Location:  lot.Location,
			Pieces:    lot.Pieces,
			IngressAt: lot.IngressAt,
		})
	}
	return items, nil
}
