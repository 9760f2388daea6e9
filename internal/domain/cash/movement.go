package cash

import (
	"time"

	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind classifies a cash movement. The sign of each kind is intrinsic
// to the kind itself (see Sign): there are no parallel increase/decrease
// lists to keep in sync when a kind is added.
type MovementKind string

const (
	// KindOpeningFloat is the float placed in the drawer when a shift opens
	KindOpeningFloat MovementKind = "OPENING_FLOAT"
	// KindSaleIncome is cash collected for a sale
	KindSaleIncome MovementKind = "SALE_INCOME"
	// KindExpenseOutflow is cash paid out for an expense
	KindExpenseOutflow MovementKind = "EXPENSE_OUTFLOW"
	// KindManualWithdrawal is cash removed from the drawer by an operator
	KindManualWithdrawal MovementKind = "MANUAL_WITHDRAWAL"
	// KindCorrectionIncome is a manual correction that adds cash
	KindCorrectionIncome MovementKind = "CORRECTION_INCOME"
	// KindCorrectionOutflow is a manual correction that removes cash
	KindCorrectionOutflow MovementKind = "CORRECTION_OUTFLOW"
	// KindSaleCancellationIncome compensates a previously recorded outflow for a cancelled sale
	KindSaleCancellationIncome MovementKind = "SALE_CANCELLATION_INCOME"
	// KindSaleCancellationOutflow refunds the cash collected for a cancelled sale
	KindSaleCancellationOutflow MovementKind = "SALE_CANCELLATION_OUTFLOW"
	// KindExpenseCancellationIncome returns the cash of a cancelled expense
	KindExpenseCancellationIncome MovementKind = "EXPENSE_CANCELLATION_INCOME"
)

// String returns the string representation of MovementKind
func (k MovementKind) String() string {
	return string(k)
}

// Sign returns +1 for kinds that increase the drawer balance and -1 for
// kinds that decrease it. Every valid kind appears in exactly one branch;
// an unknown kind returns 0 so it can never silently skew a balance.
func (k MovementKind) Sign() int {
	switch k {
	case KindOpeningFloat, KindSaleIncome, KindCorrectionIncome,
		KindSaleCancellationIncome, KindExpenseCancellationIncome:
		return 1
	case KindExpenseOutflow, KindManualWithdrawal, KindCorrectionOutflow,
		KindSaleCancellationOutflow:
		return -1
	}
	return 0
}

// IsValid returns true if the kind is known
func (k MovementKind) IsValid() bool {
	return k.Sign() != 0
}

// AllMovementKinds returns every valid movement kind
func AllMovementKinds() []MovementKind {
	return []MovementKind{
		KindOpeningFloat,
		KindSaleIncome,
		KindExpenseOutflow,
		KindManualWithdrawal,
		KindCorrectionIncome,
		KindCorrectionOutflow,
		KindSaleCancellationIncome,
		KindSaleCancellationOutflow,
		KindExpenseCancellationIncome,
	}
}

// Movement is an append-only entry in a shift's cash ledger. Amounts are
// always stored positive; the direction is implied by the kind.
type Movement struct {
	shared.BaseEntity
	ShiftID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_cash_movements_shift"`
	Kind        MovementKind    `gorm:"type:varchar(40);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description string          `gorm:"type:varchar(255);not null"`
	SaleID      *uuid.UUID      `gorm:"type:uuid;index"`
	ExpenseID   *uuid.UUID      `gorm:"type:uuid;index"`
	RecordedAt  time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "cash_movements"
}

// NewMovement creates a new cash movement. A zero amount is accepted only for
// the opening float, since every shift ledger starts with one even when the
// drawer opens empty.
func NewMovement(shiftID uuid.UUID, kind MovementKind, amount decimal.Decimal, description string) (*Movement, error) {
	if shiftID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SHIFT", "Shift ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Invalid cash movement kind: "+kind.String())
	}
	if amount.IsNegative() || (amount.IsZero() && kind != KindOpeningFloat) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	return &Movement{
		BaseEntity:  shared.NewBaseEntity(),
		ShiftID:     shiftID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		RecordedAt:  time.Now(),
	}, nil
}

// WithSaleID links the movement to a sale
func (m *Movement) WithSaleID(saleID uuid.UUID) *Movement {
	m.SaleID = &saleID
	return m
}

// WithExpenseID links the movement to an expense
func (m *Movement) WithExpenseID(expenseID uuid.UUID) *Movement {
	m.ExpenseID = &expenseID
	return m
}

// SignedAmount returns the amount with the sign implied by the kind
func (m *Movement) SignedAmount() decimal.Decimal {
	if m.Kind.Sign() < 0 {
		return m.Amount.Neg()
	}
	return m.Amount
}

// TheoreticalBalance replays a shift's ledger and returns the balance the
// drawer should hold. The balance is always recomputed from the movements,
// never read from a cached counter.
func TheoreticalBalance(movements []Movement) decimal.Decimal {
	balance := decimal.Zero
	for i := range movements {
		balance = balance.Add(movements[i].SignedAmount())
	}
	return balance
}
