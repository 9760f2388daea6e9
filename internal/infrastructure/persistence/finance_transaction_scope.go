package persistence

import (
	"context"
	"time"

	appfinance "github.com/aserradero/backend/internal/application/finance"
	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/finance"
	"gorm.io/gorm"
)

// GormFinanceTransactionScope implements the finance TransactionScope using GORM transactions
type GormFinanceTransactionScope struct {
	db        *gorm.DB
	txTimeout time.Duration
}

// NewGormFinanceTransactionScope creates a new GormFinanceTransactionScope
func NewGormFinanceTransactionScope(db *gorm.DB, txTimeout time.Duration) *GormFinanceTransactionScope {
	return &GormFinanceTransactionScope{db: db, txTimeout: txTimeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormFinanceTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormFinanceRepositories{tx: tx})
	})
}

type gormFinanceRepositories struct {
	tx *gorm.DB
}

// ExpenseRepo returns the expense repository scoped to the current transaction
func (r *gormFinanceRepositories) ExpenseRepo() finance.ExpenseRepository {
	return NewGormExpenseRepository(r.tx)
}

// ShiftRepo returns the shift repository scoped to the current transaction
func (r *gormFinanceRepositories) ShiftRepo() cash.ShiftRepository {
	return NewGormShiftRepository(r.tx)
}

// CashMovementRepo returns the cash ledger repository scoped to the current transaction
func (r *gormFinanceRepositories) CashMovementRepo() cash.MovementRepository {
	return NewGormCashMovementRepository(r.tx)
}

var _ appfinance.TransactionScope = (*GormFinanceTransactionScope)(nil)
var _ appfinance.TransactionalRepositories = (*gormFinanceRepositories)(nil)
