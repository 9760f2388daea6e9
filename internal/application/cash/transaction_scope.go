package cash

import (
	"context"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
)

// TransactionScope provides transactional access to the cash repositories.
// Everything executed within a scope commits or rolls back as one unit.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the cash repositories
// within a transaction. All repositories share the same underlying unit.
type TransactionalRepositories interface {
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
	shiftRepo    cash.ShiftRepository
	movementRepo cash.MovementRepository
	pendingRepo  sales.PendingCashEntryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(shiftRepo cash.ShiftRepository, movementRepo cash.MovementRepository, pendingRepo sales.PendingCashEntryRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{shiftRepo: shiftRepo, movementRepo: movementRepo, pendingRepo: pendingRepo}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ShiftRepo returns the shift repository
func (s *NoOpTransactionScope) ShiftRepo() cash.ShiftRepository {
	return s.shiftRepo
}

// CashMovementRepo returns the cash ledger repository
func (s *NoOpTransactionScope) CashMovementRepo() cash.MovementRepository {
	return s.movementRepo
}

// PendingCashEntryRepo returns the deferred entry repository
func (s *NoOpTransactionScope) PendingCashEntryRepo() sales.PendingCashEntryRepository {
	return s.pendingRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
