package persistence

import (
	"context"
	"time"

	appcash "github.com/aserradero/backend/internal/application/cash"
	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
	"gorm.io/gorm"
)

// GormCashTransactionScope implements the cash TransactionScope using GORM transactions
type GormCashTransactionScope struct {
	db        *gorm.DB
	txTimeout time.Duration
}

// NewGormCashTransactionScope creates a new GormCashTransactionScope
func NewGormCashTransactionScope(db *gorm.DB, txTimeout time.Duration) *GormCashTransactionScope {
	return &GormCashTransactionScope{db: db, txTimeout: txTimeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormCashTransactionScope) Execute(ctx context.Context, fn func(repos appcash.TransactionalRepositories) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormCashRepositories{tx: tx})
	})
}

type gormCashRepositories struct {
	tx *gorm.DB
}

// ShiftRepo returns the shift repository scoped to the current transaction
func (r *gormCashRepositories) ShiftRepo() cash.ShiftRepository {
	return NewGormShiftRepository(r.tx)
}

// CashMovementRepo returns the cash ledger repository scoped to the current transaction
func (r *gormCashRepositories) CashMovementRepo() cash.MovementRepository {
	return NewGormCashMovementRepository(r.tx)
}

// PendingCashEntryRepo returns the deferred entry repository scoped to the current transaction
func (r *gormCashRepositories) PendingCashEntryRepo() sales.PendingCashEntryRepository {
	return NewGormPendingCashEntryRepository(r.tx)
}

var _ appcash.TransactionScope = (*GormCashTransactionScope)(nil)
var _ appcash.TransactionalRepositories = (*gormCashRepositories)(nil)
