package persistence

import (
	"context"
	"time"

	appsales "github.com/aserradero/backend/internal/application/sales"
	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// GormSalesTransactionScope implements the sales TransactionScope using GORM
// transactions. A sale's stock deductions, exit movements, folio reservation
// and cash income all commit or roll back as one unit.
type GormSalesTransactionScope struct {
	db        *gorm.DB
	txTimeout time.Duration
}

// NewGormSalesTransactionScope creates a new GormSalesTransactionScope
func NewGormSalesTransactionScope(db *gorm.DB, txTimeout time.Duration) *GormSalesTransactionScope {
	return &GormSalesTransactionScope{db: db, txTimeout: txTimeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormSalesTransactionScope) Execute(ctx context.Context, fn func(repos appsales.TransactionalRepositories) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSalesRepositories{tx: tx})
	})
}

type gormSalesRepositories struct {
	tx *gorm.DB
}

// SaleRepo returns the sale repository scoped to the current transaction
func (r *gormSalesRepositories) SaleRepo() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

// LotRepo returns the lot repository scoped to the current transaction
func (r *gormSalesRepositories) LotRepo() stock.LotRepository {
	return NewGormLotRepository(r.tx)
}

// StockMovementRepo returns the stock ledger repository scoped to the current transaction
func (r *gormSalesRepositories) StockMovementRepo() stock.MovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// ShiftRepo returns the shift repository scoped to the current transaction
func (r *gormSalesRepositories) ShiftRepo() cash.ShiftRepository {
	return NewGormShiftRepository(r.tx)
}

// CashMovementRepo returns the cash ledger repository scoped to the current transaction
func (r *gormSalesRepositories) CashMovementRepo() cash.MovementRepository {
	return NewGormCashMovementRepository(r.tx)
}

// PendingCashEntryRepo returns the deferred entry repository scoped to the current transaction
func (r *gormSalesRepositories) PendingCashEntryRepo() sales.PendingCashEntryRepository {
	return NewGormPendingCashEntryRepository(r.tx)
}

var _ appsales.TransactionScope = (*GormSalesTransactionScope)(nil)
var _ appsales.TransactionalRepositories = (*gormSalesRepositories)(nil)
