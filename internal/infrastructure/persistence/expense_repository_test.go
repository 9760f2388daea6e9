package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/aserradero/backend/internal/domain/finance"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExpense(t *testing.T, repo *GormExpenseRepository, siteID uuid.UUID, concept string, spentAt time.Time) *finance.ExpenseRecord {
	t.Helper()
	record, err := finance.NewExpenseRecord(siteID, uuid.New(), finance.ExpenseCategoryFuel, concept, decimal.NewFromInt(80), sales.PaymentMethodCash, true)
	require.NoError(t, err)
	record.SpentAt = spentAt
	require.NoError(t, repo.Save(context.Background(), record))
	return record
}

func TestGormExpenseRepository(t *testing.T) {
	ctx := context.Background()
	spentAt := time.Date(2026, 6, 5, 10, 0, 0, 0, time.UTC)

	t.Run("Save and FindByID round trip", func(t *testing.T) {
		repo := NewGormExpenseRepository(setupTestDB(t))
		record := seedExpense(t, repo, uuid.New(), "Diesel for the loader", spentAt)

		found, err := repo.FindByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, "Diesel for the loader", found.Concept)
		assert.Equal(t, finance.ExpenseCategoryFuel, found.Category)
		assert.True(t, found.IsCashPaid())
	})

	t.Run("FindByID maps a missing record to ErrNotFound", func(t *testing.T) {
		repo := NewGormExpenseRepository(setupTestDB(t))
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindBySite lists newest first with pagination", func(t *testing.T) {
		repo := NewGormExpenseRepository(setupTestDB(t))
		siteID := uuid.New()
		seedExpense(t, repo, siteID, "Oldest", spentAt)
		seedExpense(t, repo, siteID, "Middle", spentAt.Add(time.Hour))
		seedExpense(t, repo, siteID, "Newest", spentAt.Add(2*time.Hour))
		seedExpense(t, repo, uuid.New(), "Elsewhere", spentAt)

		found, err := repo.FindBySite(ctx, siteID, shared.Filter{Page: 1, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Newest", found[0].Concept)
		assert.Equal(t, "Middle", found[1].Concept)

		rest, err := repo.FindBySite(ctx, siteID, shared.Filter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "Oldest", rest[0].Concept)
	})

	t.Run("Delete removes the record", func(t *testing.T) {
		repo := NewGormExpenseRepository(setupTestDB(t))
		record := seedExpense(t, repo, uuid.New(), "Chainsaw blades", spentAt)

		require.NoError(t, repo.Delete(ctx, record.ID))

		_, err := repo.FindByID(ctx, record.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
