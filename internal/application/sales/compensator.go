package sales

import (
	"context"
	"errors"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compensator reverses a sale by replaying its exit movements backwards:
// every exit gets a matching return movement into the lot it came from, and
// collected cash gets a refund movement. Nothing in either ledger is ever
// edited or deleted; reversal is always a new entry.
type Compensator struct {
	scope  TransactionScope
	policy Policy
	logger *zap.Logger
}

// NewCompensator creates a new sale cancellation compensator
func NewCompensator(scope TransactionScope, policy Policy, logger *zap.Logger) *Compensator {
	return &Compensator{scope: scope, policy: policy, logger: logger}
}

// CancelSale reverses the stock and cash effects of a sale. The sale must
// belong to the given site. The cash refund is appended only while a shift is
// open; with the drawer closed the cancellation still proceeds and the skipped
// refund is logged.
func (c *Compensator) CancelSale(ctx context.Context, req CancelSaleRequest) (*CancelSaleResponse, error) {
	var resp *CancelSaleResponse
	err := c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByID(ctx, req.SaleID)
		if err != nil {
			return err
		}
		if sale.SiteID != req.SiteID {
			return shared.NewDomainError("SALE_NOT_AT_SITE", "Sale does not belong to this site")
		}
		if sale.IsCancelled() {
			return shared.NewDomainError("INVALID_STATE", "Sale is already cancelled")
		}

		restocked, err := c.restock(ctx, repos, sale, req)
		if err != nil {
			return err
		}

		refunded, err := c.refundCash(ctx, repos, sale)
		if err != nil {
			return err
		}

		deleted := false
		switch c.policy.Cancellation {
		case CancellationPolicyDelete:
			if err := repos.SaleRepo().Delete(ctx, sale.ID); err != nil {
				return err
			}
			deleted = true
		default:
			if err := sale.Cancel(req.OperatorID); err != nil {
				return err
			}
			if err := repos.SaleRepo().Save(ctx, sale); err != nil {
				return err
			}
		}

		resp = &CancelSaleResponse{
			SaleID:          sale.ID,
			Deleted:         deleted,
			RestockedPieces: restocked,
			CashRefunded:    refunded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("sale cancelled",
		zap.String("sale_id", resp.SaleID.String()),
		zap.Int64("restocked_pieces", resp.RestockedPieces),
		zap.Bool("deleted", resp.Deleted))
	return resp, nil
}

// restock writes one return movement per original exit, putting the pieces
// back into the exact lot they left from. The movement's destination is the
// lot's current location, which can differ from the exit origin when the lot
// was moved after the sale.
func (c *Compensator) restock(ctx context.Context, repos TransactionalRepositories, sale *sales.Sale, req CancelSaleRequest) (int64, error) {
	movements, err := repos.StockMovementRepo().FindBySale(ctx, sale.ID)
	if err != nil {
		return 0, err
	}

	restocked := int64(0)
	for i := range movements {
		m := &movements[i]
		if !m.IsExit() {
			continue
		}

		lot, err := repos.LotRepo().FindByIDForUpdate(ctx, m.LotID)
		if err != nil {
			return 0, err
		}
		if err := lot.Add(m.Pieces); err != nil {
			return 0, err
		}
		if err := repos.LotRepo().Save(ctx, lot); err != nil {
			return 0, err
		}

		ret, err := stock.NewReturnMovement(lot.ID, req.OperatorID, m.Pieces, lot.Location, &sale.ID)
		if err != nil {
			return 0, err
		}
		if err := repos.StockMovementRepo().Create(ctx, ret); err != nil {
			return 0, err
		}
		restocked += m.Pieces
	}
	return restocked, nil
}

// refundCash compensates whatever cash effect the sale actually had. An
// applied income gets a refund outflow; a still-pending deferred entry is
// marked applied so no income can land for a cancelled sale.
func (c *Compensator) refundCash(ctx context.Context, repos TransactionalRepositories, sale *sales.Sale) (*decimal.Decimal, error) {
	if !sale.PaymentMethod.IsCash() {
		return nil, nil
	}

	entry, err := repos.PendingCashEntryRepo().FindBySale(ctx, sale.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if entry != nil && entry.Status != sales.PendingCashEntryStatusApplied {
		// The income never reached the ledger, so there is nothing to
		// refund. Closing the entry prevents a late apply.
		entry.MarkApplied()
		if err := repos.PendingCashEntryRepo().Save(ctx, entry); err != nil {
			return nil, err
		}
		return nil, nil
	}

	collected, err := repos.CashMovementRepo().ExistsBySaleAndKind(ctx, sale.ID, cash.KindSaleIncome)
	if err != nil {
		return nil, err
	}
	if !collected {
		return nil, nil
	}

	shift, err := repos.ShiftRepo().FindOpenBySite(ctx, sale.SiteID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// No open shift to refund into. The stock reversal still
			// stands; the missing outflow shows up at the next
			// reconciliation of the drawer.
			c.logger.Warn("cash refund skipped, no open shift",
				zap.String("sale_id", sale.ID.String()),
				zap.String("site_id", sale.SiteID.String()),
				zap.String("amount", sale.Total.String()))
			return nil, nil
		}
		return nil, err
	}

	refund, err := cash.NewMovement(shift.ID, cash.KindSaleCancellationOutflow, sale.Total, "Cancellation of sale "+sale.Folio)
	if err != nil {
		return nil, err
	}
	if err := repos.CashMovementRepo().Create(ctx, refund.WithSaleID(sale.ID)); err != nil {
		return nil, err
	}
	return &sale.Total, nil
}
