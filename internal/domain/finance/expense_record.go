package finance

import (
	"time"

	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategory represents the category of an expense
type ExpenseCategory string

const (
	ExpenseCategoryFuel        ExpenseCategory = "FUEL"
	ExpenseCategoryMaintenance ExpenseCategory = "MAINTENANCE"
	ExpenseCategorySupplies    ExpenseCategory = "SUPPLIES"
	ExpenseCategoryFreight     ExpenseCategory = "FREIGHT"
	ExpenseCategoryWages       ExpenseCategory = "WAGES"
	ExpenseCategoryOther       ExpenseCategory = "OTHER"
)

// IsValid checks if the category is a valid ExpenseCategory
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case ExpenseCategoryFuel, ExpenseCategoryMaintenance, ExpenseCategorySupplies,
		ExpenseCategoryFreight, ExpenseCategoryWages, ExpenseCategoryOther:
		return true
	}
	return false
}

// String returns the string representation of ExpenseCategory
func (c ExpenseCategory) String() string {
	return string(c)
}

// ExpenseRecord is a site expense. A paid cash expense writes an
// expense-outflow movement into the open shift's ledger in the same unit
// of work that persists the record.
type ExpenseRecord struct {
	shared.BaseEntity
	SiteID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	Category      ExpenseCategory     `gorm:"type:varchar(30);not null"`
	Concept       string              `gorm:"type:varchar(255);not null"`
	Amount        decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	PaymentMethod sales.PaymentMethod `gorm:"type:varchar(20);not null"`
	Paid          bool                `gorm:"not null"`
	OperatorID    uuid.UUID           `gorm:"type:uuid;not null"`
	SpentAt       time.Time           `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (ExpenseRecord) TableName() string {
	return "expense_records"
}

// NewExpenseRecord creates a new expense record
func NewExpenseRecord(siteID, operatorID uuid.UUID, category ExpenseCategory, concept string, amount decimal.Decimal, method sales.PaymentMethod, paid bool) (*ExpenseRecord, error) {
	if siteID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SITE", "Site ID cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Invalid expense category: "+category.String())
	}
	if concept == "" {
		return nil, shared.NewDomainError("INVALID_CONCEPT", "Concept cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method: "+method.String())
	}
	return &ExpenseRecord{
		BaseEntity:    shared.NewBaseEntity(),
		SiteID:        siteID,
		Category:      category,
		Concept:       concept,
		Amount:        amount,
		PaymentMethod: method,
		Paid:          paid,
		OperatorID:    operatorID,
		SpentAt:       time.Now(),
	}, nil
}

// IsCashPaid returns true if the expense took cash out of the drawer
func (e *ExpenseRecord) IsCashPaid() bool {
	return e.Paid && e.PaymentMethod.IsCash()
}
