package finance

import (
	"context"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/finance"
)

// TransactionScope provides transactional access to the expense repositories.
// A paid cash expense touches the cash ledger in the same unit of work.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the expense repositories
// within a transaction. All repositories share the same underlying unit.
type TransactionalRepositories interface {
	// ExpenseRepo returns the expense repository scoped to the current transaction
	ExpenseRepo() finance.ExpenseRepository
	// ShiftRepo returns the shift repository scoped to the current transaction
	ShiftRepo() cash.ShiftRepository
	// CashMovementRepo returns the cash ledger repository scoped to the current transaction
	CashMovementRepo() cash.MovementRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests against in-memory repositories.
type NoOpTransactionScope struct {
	expenseRepo  finance.ExpenseRepository
	shiftRepo    cash.ShiftRepository
	movementRepo cash.MovementRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(expenseRepo finance.ExpenseRepository, shiftRepo cash.ShiftRepository, movementRepo cash.MovementRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{expenseRepo: expenseRepo, shiftRepo: shiftRepo, movementRepo: movementRepo}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ExpenseRepo returns the expense repository
func (s *NoOpTransactionScope) ExpenseRepo() finance.ExpenseRepository { return s.expenseRepo }

// ShiftRepo returns the shift repository
func (s *NoOpTransactionScope) ShiftRepo() cash.ShiftRepository { return s.shiftRepo }

// CashMovementRepo returns the cash ledger repository
func (s *NoOpTransactionScope) CashMovementRepo() cash.MovementRepository { return s.movementRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
