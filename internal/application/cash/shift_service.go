package cash

import (
	"context"
	"errors"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service orchestrates the cash shift lifecycle: opening the drawer,
// appending manual movements, summarizing and closing. The theoretical
// balance is always replayed from the ledger on demand.
type Service struct {
	scope        TransactionScope
	shiftRepo    cash.ShiftRepository
	movementRepo cash.MovementRepository
	saleRepo     sales.SaleRepository
	logger       *zap.Logger
}

// NewService creates a new cash shift service
func NewService(
	scope TransactionScope,
	shiftRepo cash.ShiftRepository,
	movementRepo cash.MovementRepository,
	saleRepo sales.SaleRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:        scope,
		shiftRepo:    shiftRepo,
		movementRepo: movementRepo,
		saleRepo:     saleRepo,
		logger:       logger,
	}
}

// OpenShift opens a new shift for a site. At most one shift per site can be
// open at any time; the opening float is recorded as the first ledger entry.
func (s *Service) OpenShift(ctx context.Context, req OpenShiftRequest) (*OpenShiftResponse, error) {
	var resp *OpenShiftResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.ShiftRepo().FindOpenBySite(ctx, req.SiteID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return shared.ErrShiftAlreadyOpen
		}

		shift, err := cash.NewShift(req.SiteID, req.OpeningFloat, req.OperatorID)
		if err != nil {
			return err
		}
		if err := repos.ShiftRepo().Save(ctx, shift); err != nil {
			return err
		}

		movement, err := cash.NewMovement(shift.ID, cash.KindOpeningFloat, req.OpeningFloat, "Opening float")
		if err != nil {
			return err
		}
		if err := repos.CashMovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		resp = &OpenShiftResponse{
			ShiftID:      shift.ID,
			SiteID:       shift.SiteID,
			OpeningFloat: shift.OpeningFloat,
			OpenedAt:     shift.OpenedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shift opened",
		zap.String("shift_id", resp.ShiftID.String()),
		zap.String("site_id", req.SiteID.String()),
		zap.String("opening_float", req.OpeningFloat.String()))
	return resp, nil
}

// CloseShift reconciles an open shift against a counted amount. The variance
// is persisted as a reported fact without writing a correcting movement.
// Closing fails while deferred cash entries for the site remain unapplied.
func (s *Service) CloseShift(ctx context.Context, req CloseShiftRequest) (*CloseShiftResponse, error) {
	var resp *CloseShiftResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		shift, err := repos.ShiftRepo().FindByID(ctx, req.ShiftID)
		if err != nil {
			return err
		}
		if !shift.IsOpen() {
			return shared.ErrShiftClosed
		}

		unapplied, err := repos.PendingCashEntryRepo().CountUnappliedBySite(ctx, shift.SiteID)
		if err != nil {
			return err
		}
		if unapplied > 0 {
			return shared.ErrCashEntryPending
		}

		movements, err := repos.CashMovementRepo().FindByShift(ctx, shift.ID)
		if err != nil {
			return err
		}
		theoretical := cash.TheoreticalBalance(movements)

		if err := shift.Close(req.CountedAmount, theoretical, req.OperatorID); err != nil {
			return err
		}
		if err := repos.ShiftRepo().Save(ctx, shift); err != nil {
			return err
		}

		resp = &CloseShiftResponse{
			ShiftID:            shift.ID,
			TheoreticalBalance: theoretical,
			CountedAmount:      req.CountedAmount,
			Variance:           *shift.Variance,
			ClosedAt:           *shift.ClosedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shift closed",
		zap.String("shift_id", resp.ShiftID.String()),
		zap.String("theoretical", resp.TheoreticalBalance.String()),
		zap.String("counted", resp.CountedAmount.String()),
		zap.String("variance", resp.Variance.String()))
	return resp, nil
}

// adjustmentKinds are the only kinds an operator can append by hand.
// Sale and expense movements are written by their own coordinators.
var adjustmentKinds = map[cash.MovementKind]bool{
	cash.KindManualWithdrawal:  true,
	cash.KindCorrectionIncome:  true,
	cash.KindCorrectionOutflow: true,
}

// RecordAdjustment appends a manual withdrawal or correction to an open shift
func (s *Service) RecordAdjustment(ctx context.Context, req RecordAdjustmentRequest) (*MovementItem, error) {
	if !adjustmentKinds[req.Kind] {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Kind not allowed for manual adjustment: "+req.Kind.String())
	}

	var item *MovementItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		shift, err := repos.ShiftRepo().FindByID(ctx, req.ShiftID)
		if err != nil {
			return err
		}
		if !shift.IsOpen() {
			return shared.ErrShiftClosed
		}

		movement, err := cash.NewMovement(shift.ID, req.Kind, req.Amount, req.Description)
		if err != nil {
			return err
		}
		if err := repos.CashMovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		item = toMovementItem(movement)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual cash adjustment recorded",
		zap.String("shift_id", req.ShiftID.String()),
		zap.String("kind", req.Kind.String()),
		zap.String("amount", req.Amount.String()))
	return item, nil
}

// Summarize builds the reconciliation view of a shift. It is read-only:
// the theoretical balance is replayed from the ledger and the sales
// breakdown is recomputed from the sales in the shift window.
func (s *Service) Summarize(ctx context.Context, shiftID uuid.UUID) (*ShiftSummary, error) {
	shift, err := s.shiftRepo.FindByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	movements, err := s.movementRepo.FindByShift(ctx, shift.ID)
	if err != nil {
		return nil, err
	}

	windowSales, err := s.saleRepo.FindBySiteBetween(ctx, shift.SiteID, shift.OpenedAt, shift.ClosedAt)
	if err != nil {
		return nil, err
	}

	summary := &ShiftSummary{
		ShiftID:            shift.ID,
		SiteID:             shift.SiteID,
		Status:             shift.Status,
		OpenedAt:           shift.OpenedAt,
		ClosedAt:           shift.ClosedAt,
		OpeningFloat:       shift.OpeningFloat,
		TheoreticalBalance: cash.TheoreticalBalance(movements),
		SalesTotal:         decimal.Zero,
		SalesCollected:     decimal.Zero,
		SalesCredit:        decimal.Zero,
		ExpensesTotal:      decimal.Zero,
		SalesByMethod:      make(map[string]decimal.Decimal),
		CountedAmount:      shift.CountedAmount,
		Variance:           shift.Variance,
		Movements:          make([]MovementItem, 0, len(movements)),
	}

	for i := range movements {
		m := &movements[i]
		summary.Movements = append(summary.Movements, *toMovementItem(m))
		switch m.Kind {
		case cash.KindExpenseOutflow:
			summary.ExpensesTotal = summary.ExpensesTotal.Add(m.Amount)
		case cash.KindExpenseCancellationIncome:
			summary.ExpensesTotal = summary.ExpensesTotal.Sub(m.Amount)
		}
	}

	for i := range windowSales {
		sale := &windowSales[i]
		if sale.IsCancelled() {
			continue
		}
		summary.SalesTotal = summary.SalesTotal.Add(sale.Total)
		method := sale.PaymentMethod.String()
		summary.SalesByMethod[method] = summary.SalesByMethod[method].Add(sale.Total)
		if sale.PaymentMethod.IsCollected() {
			summary.SalesCollected = summary.SalesCollected.Add(sale.Total)
		} else {
			summary.SalesCredit = summary.SalesCredit.Add(sale.Total)
		}
	}

	return summary, nil
}

// ListShifts lists the shifts of a site, newest first
func (s *Service) ListShifts(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]ShiftSummary, error) {
	shifts, err := s.shiftRepo.FindBySite(ctx, siteID, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]ShiftSummary, 0, len(shifts))
	for i := range shifts {
		summary, err := s.Summarize(ctx, shifts[i].ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// CurrentShift returns the open shift of a site, or ErrNotFound
func (s *Service) CurrentShift(ctx context.Context, siteID uuid.UUID) (*ShiftSummary, error) {
	shift, err := s.shiftRepo.FindOpenBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return s.Summarize(ctx, shift.ID)
}

func toMovementItem(m *cash.Movement) *MovementItem {
	return &MovementItem{
		ID:           m.ID,
		Kind:         m.Kind,
		Amount:       m.Amount,
		SignedAmount: m.SignedAmount(),
		Description:  m.Description,
		SaleID:       m.SaleID,
		ExpenseID:    m.ExpenseID,
		RecordedAt:   m.RecordedAt,
	}
}
