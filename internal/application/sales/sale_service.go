package sales

import (
	"context"
	"errors"
	"time"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cashEntryIdempotencyTTL bounds how long an applied cash entry key is
// remembered. The ledger's own uniqueness check remains the source of truth.
const cashEntryIdempotencyTTL = 24 * time.Hour

// Service coordinates a sale across the stock ledger, the sales records and
// the cash ledger. Every quantity re-check and every movement of one sale is
// committed or rolled back as a single unit.
type Service struct {
	scope       TransactionScope
	saleRepo    sales.SaleRepository
	lotRepo     stock.LotRepository
	pendingRepo sales.PendingCashEntryRepository
	idempotency shared.IdempotencyStore
	policy      Policy
	logger      *zap.Logger
}

// NewService creates a new sale coordinator
func NewService(
	scope TransactionScope,
	saleRepo sales.SaleRepository,
	lotRepo stock.LotRepository,
	pendingRepo sales.PendingCashEntryRepository,
	idempotency shared.IdempotencyStore,
	policy Policy,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:       scope,
		saleRepo:    saleRepo,
		lotRepo:     lotRepo,
		pendingRepo: pendingRepo,
		idempotency: idempotency,
		policy:      policy,
		logger:      logger,
	}
}

// CreateSale registers a sale: it allocates lots per line (FIFO unless the
// operator picked lots explicitly), deducts stock under row locks, writes one
// exit movement per pick, assigns the folio from the store sequence and
// records the cash income. A cash sale requires an open shift at the site.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (*CreateSaleResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale needs at least one line")
	}

	var resp *CreateSaleResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var openShift *cash.Shift
		if req.PaymentMethod.IsCash() {
			shift, err := repos.ShiftRepo().FindOpenBySite(ctx, req.SiteID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.ErrCashDrawerClosed
				}
				return err
			}
			openShift = shift
		}

		sale, err := sales.NewSale(req.ClientID, req.SiteID, req.OperatorID, req.PaymentMethod)
		if err != nil {
			return err
		}

		lineViews := make([]SaleLineView, 0, len(req.Lines))
		for _, lineReq := range req.Lines {
			line, err := sale.AddLine(lineReq.ProductID, lineReq.Pieces, lineReq.UnitPrice)
			if err != nil {
				return err
			}

			candidates, err := repos.LotRepo().FindAvailable(ctx, lineReq.ProductID, req.SiteID)
			if err != nil {
				return err
			}

			var allocator stock.Allocator = stock.NewFIFOAllocator()
			if len(lineReq.Picks) > 0 {
				allocator = stock.NewManualAllocator(lineReq.Picks)
			}
			allocation, err := allocator.Allocate(lineReq.Pieces, candidates)
			if err != nil {
				return err
			}

			view := SaleLineView{
				ProductID:   line.ProductID,
				Pieces:      line.Pieces,
				UnitPrice:   line.UnitPrice,
				LineTotal:   line.LineTotal,
				Allocations: make([]AllocationView, 0, len(allocation.Picks)),
			}
			for _, pick := range allocation.Picks {
				if err := s.consumePick(ctx, repos, sale, line, pick); err != nil {
					return err
				}
				view.Allocations = append(view.Allocations, AllocationView(pick))
			}
			lineViews = append(lineViews, view)
		}

		seq, err := repos.SaleRepo().NextFolioSeq(ctx)
		if err != nil {
			return err
		}
		if err := sale.AssignFolio(seq); err != nil {
			return err
		}
		if err := repos.SaleRepo().Save(ctx, sale); err != nil {
			return err
		}

		cashPending := false
		if req.PaymentMethod.IsCash() {
			switch s.policy.CashEntry {
			case CashEntryModeDeferred:
				entry, err := sales.NewPendingCashEntry(sale.ID, sale.SiteID, sale.Total)
				if err != nil {
					return err
				}
				if err := repos.PendingCashEntryRepo().Save(ctx, entry); err != nil {
					return err
				}
				cashPending = true
			default:
				movement, err := cash.NewMovement(openShift.ID, cash.KindSaleIncome, sale.Total, "Sale "+sale.Folio)
				if err != nil {
					return err
				}
				if err := repos.CashMovementRepo().Create(ctx, movement.WithSaleID(sale.ID)); err != nil {
					return err
				}
			}
		}

		resp = &CreateSaleResponse{
			SaleID:           sale.ID,
			Folio:            sale.Folio,
			Total:            sale.Total,
			SoldAt:           sale.SoldAt,
			Lines:            lineViews,
			CashEntryPending: cashPending,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale created",
		zap.String("sale_id", resp.SaleID.String()),
		zap.String("folio", resp.Folio),
		zap.String("site_id", req.SiteID.String()),
		zap.String("total", resp.Total.String()),
		zap.Bool("cash_entry_pending", resp.CashEntryPending))

	if resp.CashEntryPending {
		// Best-effort immediate apply; the reconciler retries on failure.
		if applied, err := s.applySalePendingEntry(ctx, resp.SaleID); err != nil {
			s.logger.Warn("deferred cash entry not applied yet",
				zap.String("sale_id", resp.SaleID.String()), zap.Error(err))
		} else if applied {
			resp.CashEntryPending = false
		}
	}
	return resp, nil
}

// consumePick deducts one pick from its lot under a row lock and writes the
// matching exit movement and allocation record.
func (s *Service) consumePick(ctx context.Context, repos TransactionalRepositories, sale *sales.Sale, line *sales.SaleLine, pick stock.LotPick) error {
	lot, err := repos.LotRepo().FindByIDForUpdate(ctx, pick.LotID)
	if err != nil {
		return err
	}
	// Re-check under the lock: another sale may have consumed the lot
	// between allocation and here.
	if err := lot.Deduct(pick.Pieces); err != nil {
		return err
	}
	if err := repos.LotRepo().Save(ctx, lot); err != nil {
		return err
	}

	movement, err := stock.NewExitMovement(lot.ID, sale.OperatorID, pick.Pieces, lot.Location, sale.ID)
	if err != nil {
		return err
	}
	if err := repos.StockMovementRepo().Create(ctx, movement); err != nil {
		return err
	}

	line.Allocations = append(line.Allocations, sales.LotAllocation{
		BaseEntity: shared.NewBaseEntity(),
		SaleLineID: line.ID,
		LotID:      lot.ID,
		Pieces:     pick.Pieces,
	})
	return nil
}

// ReconcilePendingCashEntries applies deferred cash entries that are due for
// another attempt. Returns how many entries were applied.
func (s *Service) ReconcilePendingCashEntries(ctx context.Context, siteID uuid.UUID, limit int) (int, error) {
	entries, err := s.pendingRepo.FindRetryable(ctx, siteID, limit)
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range entries {
		ok, err := s.applySalePendingEntry(ctx, entries[i].SaleID)
		if err != nil {
			s.logger.Warn("deferred cash entry retry failed",
				zap.String("sale_id", entries[i].SaleID.String()), zap.Error(err))
			continue
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

// applySalePendingEntry writes the cash movement of one deferred entry. It is
// idempotent: a movement already linked to the sale is never written twice,
// guarded both by the idempotency store and by the ledger itself.
func (s *Service) applySalePendingEntry(ctx context.Context, saleID uuid.UUID) (bool, error) {
	key := "cash-entry:sale:" + saleID.String()
	done, err := s.idempotency.IsProcessed(ctx, key)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	applied := false
	var applyErr error
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := repos.PendingCashEntryRepo().FindBySale(ctx, saleID)
		if err != nil {
			return err
		}
		if entry.Status == sales.PendingCashEntryStatusApplied || entry.IsDead() {
			return nil
		}

		exists, err := repos.CashMovementRepo().ExistsBySaleAndKind(ctx, saleID, cash.KindSaleIncome)
		if err != nil {
			return err
		}
		if exists {
			entry.MarkApplied()
			return repos.PendingCashEntryRepo().Save(ctx, entry)
		}

		shift, err := repos.ShiftRepo().FindOpenBySite(ctx, entry.SiteID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Commit the failed attempt so the backoff advances.
				entry.MarkFailed("no open shift at site")
				applyErr = shared.ErrCashDrawerClosed
				return repos.PendingCashEntryRepo().Save(ctx, entry)
			}
			return err
		}

		movement, err := cash.NewMovement(shift.ID, cash.KindSaleIncome, entry.Amount, "Sale income (deferred)")
		if err != nil {
			return err
		}
		if err := repos.CashMovementRepo().Create(ctx, movement.WithSaleID(saleID)); err != nil {
			return err
		}

		entry.MarkApplied()
		if err := repos.PendingCashEntryRepo().Save(ctx, entry); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applyErr != nil {
		return false, applyErr
	}

	if _, err := s.idempotency.MarkProcessed(ctx, key, cashEntryIdempotencyTTL); err != nil {
		s.logger.Warn("idempotency mark failed", zap.String("key", key), zap.Error(err))
	}
	if applied {
		s.logger.Info("deferred cash entry applied", zap.String("sale_id", saleID.String()))
	}
	return applied, nil
}

// GetSale returns one sale with its lines and allocations
func (s *Service) GetSale(ctx context.Context, saleID uuid.UUID) (*SaleView, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return toSaleView(sale), nil
}

// ListSales lists sales of a site, newest first
func (s *Service) ListSales(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]SaleView, error) {
	found, err := s.saleRepo.FindBySite(ctx, siteID, filter)
	if err != nil {
		return nil, err
	}
	views := make([]SaleView, 0, len(found))
	for i := range found {
		views = append(views, *toSaleView(&found[i]))
	}
	return views, nil
}

func toSaleView(sale *sales.Sale) *SaleView {
	lines := make([]SaleLineView, 0, len(sale.Lines))
	for i := range sale.Lines {
		line := &sale.Lines[i]
		allocations := make([]AllocationView, 0, len(line.Allocations))
		for _, a := range line.Allocations {
			allocations = append(allocations, AllocationView{LotID: a.LotID, Pieces: a.Pieces})
		}
		lines = append(lines, SaleLineView{
			ProductID:   line.ProductID,
			Pieces:      line.Pieces,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
			Allocations: allocations,
		})
	}
	return &SaleView{
		SaleID:        sale.ID,
		Folio:         sale.Folio,
		ClientID:      sale.ClientID,
		SiteID:        sale.SiteID,
		PaymentMethod: sale.PaymentMethod,
		Status:        sale.Status,
		Total:         sale.Total,
		SoldAt:        sale.SoldAt,
		Lines:         lines,
	}
}
