package sales

import (
	"context"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/stock"
)

// TransactionScope provides transactional access to every repository a sale
// touches. A sale spans three ledgers (stock, sales, cash), so its scope is
// wider than the single-ledger scopes.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories a sale
// mutates within a transaction. All repositories share the same unit.
type TransactionalRepositories interface {
	// SaleRepo returns the sale repository scoped to the current transaction
	SaleRepo() sales.SaleRepository
	// LotRepo returns the lot repository scoped to the current transaction
	LotRepo() stock.LotRepository
	// StockMovementRepo returns the stock ledger repository scoped to the current transaction
	StockMovementRepo() stock.MovementRepository
	// ShiftRepo returns the shift repository scoped to the current transaction
	ShiftRepo() cash.ShiftRepository
	// CashMovementRepo returns the cash ledger repository scoped to the current transaction
	CashMovementRepo() cash.MovementRepository
	// PendingCashEntryRepo returns the deferred entry repository scoped to the current transaction
	PendingCashEntryRepo() sales.PendingCashEntryRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests against in-memory repositories.
type NoOpTransactionScope struct {
	saleRepo          sales.SaleRepository
	lotRepo           stock.LotRepository
	stockMovementRepo stock.MovementRepository
	shiftRepo         cash.ShiftRepository
	cashMovementRepo  cash.MovementRepository
	pendingRepo       sales.PendingCashEntryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	saleRepo sales.SaleRepository,
	lotRepo stock.LotRepository,
	stockMovementRepo stock.MovementRepository,
	shiftRepo cash.ShiftRepository,
	cashMovementRepo cash.MovementRepository,
	pendingRepo sales.PendingCashEntryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		saleRepo:          saleRepo,
		lotRepo:           lotRepo,
		stockMovementRepo: stockMovementRepo,
		shiftRepo:         shiftRepo,
		cashMovementRepo:  cashMovementRepo,
		pendingRepo:       pendingRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SaleRepo returns the sale repository
func (s *NoOpTransactionScope) SaleRepo() sales.SaleRepository { return s.saleRepo }

// LotRepo returns the lot repository
func (s *NoOpTransactionScope) LotRepo() stock.LotRepository { return s.lotRepo }

// StockMovementRepo returns the stock ledger repository
func (s *NoOpTransactionScope) StockMovementRepo() stock.MovementRepository {
	return s.stockMovementRepo
}

// ShiftRepo returns the shift repository
func (s *NoOpTransactionScope) ShiftRepo() cash.ShiftRepository { return s.shiftRepo }

// CashMovementRepo returns the cash ledger repository
func (s *NoOpTransactionScope) CashMovementRepo() cash.MovementRepository {
	return s.cashMovementRepo
}

// PendingCashEntryRepo returns the deferred entry repository
func (s *NoOpTransactionScope) PendingCashEntryRepo() sales.PendingCashEntryRepository {
	return s.pendingRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
