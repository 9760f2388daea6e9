package persistence

import (
	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/finance"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for every table the application
// owns. Production deployments use the SQL migrations in migrations/; this is
// for development and in-memory test databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&stock.Lot{},
		&stock.Movement{},
		&cash.Shift{},
		&cash.Movement{},
		&sales.Sale{},
		&sales.SaleLine{},
		&sales.LotAllocation{},
		&sales.PendingCashEntry{},
		&finance.ExpenseRecord{},
		&FolioCounter{},
	)
}
