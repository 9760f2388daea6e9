package persistence

import (
	"context"
	"time"

	appstock "github.com/aserradero/backend/internal/application/stock"
	"github.com/aserradero/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// GormStockTransactionScope implements the stock TransactionScope using GORM
// transactions. Every Execute runs under a bounded context so a stuck lock
// can never hold a row indefinitely.
type GormStockTransactionScope struct {
	db        *gorm.DB
	txTimeout time.Duration
}

// NewGormStockTransactionScope creates a new GormStockTransactionScope
func NewGormStockTransactionScope(db *gorm.DB, txTimeout time.Duration) *GormStockTransactionScope {
	return &GormStockTransactionScope{db: db, txTimeout: txTimeout}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormStockTransactionScope) Execute(ctx context.Context, fn func(repos appstock.TransactionalRepositories) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStockRepositories{tx: tx})
	})
}

type gormStockRepositories struct {
	tx *gorm.DB
}

// LotRepo returns the lot repository scoped to the current transaction
func (r *gormStockRepositories) LotRepo() stock.LotRepository {
	return NewGormLotRepository(r.tx)
}

// MovementRepo returns the movement repository scoped to the current transaction
func (r *gormStockRepositories) MovementRepo() stock.MovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

var _ appstock.TransactionScope = (*GormStockTransactionScope)(nil)
var _ appstock.TransactionalRepositories = (*gormStockRepositories)(nil)
