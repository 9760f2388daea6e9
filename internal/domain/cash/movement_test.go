package cash

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovementKindSign(t *testing.T) {
	increases := []MovementKind{
		KindOpeningFloat,
		KindSaleIncome,
		KindCorrectionIncome,
		KindSaleCancellationIncome,
		KindExpenseCancellationIncome,
	}
	decreases := []MovementKind{
		KindExpenseOutflow,
		KindManualWithdrawal,
		KindCorrectionOutflow,
		KindSaleCancellationOutflow,
	}

	t.Run("every valid kind has a sign", func(t *testing.T) {
		for _, kind := range AllMovementKinds() {
			assert.NotZero(t, kind.Sign(), kind.String())
			assert.True(t, kind.IsValid(), kind.String())
		}
		assert.Len(t, AllMovementKinds(), len(increases)+len(decreases))
	})

	t.Run("increasing kinds", func(t *testing.T) {
		for _, kind := range increases {
			assert.Equal(t, 1, kind.Sign(), kind.String())
		}
	})

	t.Run("decreasing kinds", func(t *testing.T) {
		for _, kind := range decreases {
			assert.Equal(t, -1, kind.Sign(), kind.String())
		}
	})

	t.Run("unknown kind has no sign", func(t *testing.T) {
		assert.Equal(t, 0, MovementKind("BRIBE").Sign())
		assert.False(t, MovementKind("BRIBE").IsValid())
		assert.False(t, MovementKind("").IsValid())
	})
}

func TestNewMovement(t *testing.T) {
	shiftID := uuid.New()

	t.Run("creates a movement with a positive amount", func(t *testing.T) {
		m, err := NewMovement(shiftID, KindSaleIncome, decimal.NewFromInt(150), "Sale V-000001")
		require.NoError(t, err)

		assert.Equal(t, shiftID, m.ShiftID)
		assert.Equal(t, KindSaleIncome, m.Kind)
		assert.True(t, m.Amount.Equal(decimal.NewFromInt(150)))
		assert.Nil(t, m.SaleID)
		assert.Nil(t, m.ExpenseID)
		assert.False(t, m.RecordedAt.IsZero())
	})

	t.Run("links a sale or an expense", func(t *testing.T) {
		saleID := uuid.New()
		expenseID := uuid.New()

		m, err := NewMovement(shiftID, KindSaleIncome, decimal.NewFromInt(10), "sale")
		require.NoError(t, err)
		m.WithSaleID(saleID)
		require.NotNil(t, m.SaleID)
		assert.Equal(t, saleID, *m.SaleID)

		m, err = NewMovement(shiftID, KindExpenseOutflow, decimal.NewFromInt(10), "fuel")
		require.NoError(t, err)
		m.WithExpenseID(expenseID)
		require.NotNil(t, m.ExpenseID)
		assert.Equal(t, expenseID, *m.ExpenseID)
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		_, err := NewMovement(shiftID, MovementKind("BRIBE"), decimal.NewFromInt(10), "no")
		require.Error(t, err)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := NewMovement(shiftID, KindSaleIncome, decimal.Zero, "zero")
		require.Error(t, err)

		_, err = NewMovement(shiftID, KindSaleIncome, decimal.NewFromInt(-5), "negative")
		require.Error(t, err)
	})

	t.Run("allows a zero opening float", func(t *testing.T) {
		m, err := NewMovement(shiftID, KindOpeningFloat, decimal.Zero, "Opening float")
		require.NoError(t, err)
		assert.True(t, m.Amount.IsZero())

		_, err = NewMovement(shiftID, KindOpeningFloat, decimal.NewFromInt(-5), "negative")
		require.Error(t, err)
	})

	t.Run("rejects nil shift", func(t *testing.T) {
		_, err := NewMovement(uuid.Nil, KindSaleIncome, decimal.NewFromInt(10), "orphan")
		require.Error(t, err)
	})
}

func TestSignedAmount(t *testing.T) {
	shiftID := uuid.New()

	income, err := NewMovement(shiftID, KindSaleIncome, decimal.NewFromInt(200), "sale")
	require.NoError(t, err)
	assert.True(t, income.SignedAmount().Equal(decimal.NewFromInt(200)))

	outflow, err := NewMovement(shiftID, KindExpenseOutflow, decimal.NewFromInt(80), "fuel")
	require.NoError(t, err)
	assert.True(t, outflow.SignedAmount().Equal(decimal.NewFromInt(-80)))
}

func TestTheoreticalBalance(t *testing.T) {
	shiftID := uuid.New()

	mustMovement := func(kind MovementKind, amount int64, desc string) Movement {
		m, err := NewMovement(shiftID, kind, decimal.NewFromInt(amount), desc)
		require.NoError(t, err)
		return *m
	}

	t.Run("empty ledger is zero", func(t *testing.T) {
		assert.True(t, TheoreticalBalance(nil).IsZero())
	})

	t.Run("replays signed amounts in order", func(t *testing.T) {
		movements := []Movement{
			mustMovement(KindOpeningFloat, 500, "Opening float"),
			mustMovement(KindSaleIncome, 300, "Sale V-000001"),
			mustMovement(KindExpenseOutflow, 80, "Fuel"),
			mustMovement(KindManualWithdrawal, 20, "Owner draw"),
		}
		assert.True(t, TheoreticalBalance(movements).Equal(decimal.NewFromInt(700)))
	})

	t.Run("cancellations compensate their originals", func(t *testing.T) {
		movements := []Movement{
			mustMovement(KindOpeningFloat, 500, "Opening float"),
			mustMovement(KindSaleIncome, 300, "Sale V-000002"),
			mustMovement(KindSaleCancellationOutflow, 300, "Cancellation of sale V-000002"),
			mustMovement(KindExpenseOutflow, 80, "Fuel"),
			mustMovement(KindExpenseCancellationIncome, 80, "Cancellation of expense: Fuel"),
		}
		assert.True(t, TheoreticalBalance(movements).Equal(decimal.NewFromInt(500)))
	})
}
