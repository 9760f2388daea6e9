package sales

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/aserradero/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory repositories. They hand out copies so mutations only stick
// after Save, like the real repositories.

type memoryLotRepo struct {
	lots map[uuid.UUID]stock.Lot
}

func newMemoryLotRepo() *memoryLotRepo {
	return &memoryLotRepo{lots: make(map[uuid.UUID]stock.Lot)}
}

func (r *memoryLotRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.Lot, error) {
	lot, ok := r.lots[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &lot, nil
}

func (r *memoryLotRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*stock.Lot, error) {
	return r.FindByID(ctx, id)
}

func (r *memoryLotRepo) FindAvailable(_ context.Context, productID, siteID uuid.UUID) ([]stock.Lot, error) {
	var result []stock.Lot
	for _, lot := range r.lots {
		if lot.ProductID == productID && lot.SiteID == siteID && lot.HasStock() {
			result = append(result, lot)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].IngressAt.Equal(result[j].IngressAt) {
			return result[i].IngressAt.Before(result[j].IngressAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (r *memoryLotRepo) FindCompatible(_ context.Context, siteID, productID uuid.UUID, location stock.Location, ingressAt time.Time, productionOrderID *uuid.UUID) (*stock.Lot, error) {
	for _, lot := range r.lots {
		if lot.SiteID == siteID && lot.IsCompatibleAt(location, productID, ingressAt, productionOrderID) {
			found := lot
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryLotRepo) FindBySite(_ context.Context, siteID uuid.UUID, _ shared.Filter) ([]stock.Lot, error) {
	var result []stock.Lot
	for _, lot := range r.lots {
		if lot.SiteID == siteID {
			result = append(result, lot)
		}
	}
	return result, nil
}

func (r *memoryLotRepo) Save(_ context.Context, lot *stock.Lot) error {
	r.lots[lot.ID] = *lot
	return nil
}

func (r *memoryLotRepo) CountBySite(_ context.Context, siteID uuid.UUID) (int64, error) {
	var count int64
	for _, lot := range r.lots {
		if lot.SiteID == siteID {
			count++
		}
	}
	return count, nil
}

type memoryStockMovementRepo struct {
	movements []stock.Movement
}

func (r *memoryStockMovementRepo) Create(_ context.Context, movement *stock.Movement) error {
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *memoryStockMovementRepo) FindByLot(_ context.Context, lotID uuid.UUID) ([]stock.Movement, error) {
	var result []stock.Movement
	for _, m := range r.movements {
		if m.LotID == lotID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memoryStockMovementRepo) FindBySale(_ context.Context, saleID uuid.UUID) ([]stock.Movement, error) {
	var result []stock.Movement
	for _, m := range r.movements {
		if m.SaleID != nil && *m.SaleID == saleID {
			result = append(result, m)
		}
	}
	return result, nil
}

type memoryShiftRepo struct {
	shifts map[uuid.UUID]cash.Shift
}

func newMemoryShiftRepo() *memoryShiftRepo {
	return &memoryShiftRepo{shifts: make(map[uuid.UUID]cash.Shift)}
}

func (r *memoryShiftRepo) FindByID(_ context.Context, id uuid.UUID) (*cash.Shift, error) {
	shift, ok := r.shifts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &shift, nil
}

func (r *memoryShiftRepo) FindOpenBySite(_ context.Context, siteID uuid.UUID) (*cash.Shift, error) {
	for _, shift := range r.shifts {
		if shift.SiteID == siteID && shift.IsOpen() {
			found := shift
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryShiftRepo) FindBySite(_ context.Context, siteID uuid.UUID, _ shared.Filter) ([]cash.Shift, error) {
	var result []cash.Shift
	for _, shift := range r.shifts {
		if shift.SiteID == siteID {
			result = append(result, shift)
		}
	}
	return result, nil
}

func (r *memoryShiftRepo) FindOpenSites(_ context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var sites []uuid.UUID
	for _, shift := range r.shifts {
		if shift.IsOpen() && !seen[shift.SiteID] {
			seen[shift.SiteID] = true
			sites = append(sites, shift.SiteID)
		}
	}
	return sites, nil
}

func (r *memoryShiftRepo) Save(_ context.Context, shift *cash.Shift) error {
	r.shifts[shift.ID] = *shift
	return nil
}

type memoryCashMovementRepo struct {
	movements []cash.Movement
}

func (r *memoryCashMovementRepo) Create(_ context.Context, movement *cash.Movement) error {
	r.movements = append(r.movements, *movement)
	return nil
}

func (r *memoryCashMovementRepo) FindByShift(_ context.Context, shiftID uuid.UUID) ([]cash.Movement, error) {
	var result []cash.Movement
	for _, m := range r.movements {
		if m.ShiftID == shiftID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memoryCashMovementRepo) FindBySale(_ context.Context, saleID uuid.UUID) ([]cash.Movement, error) {
	var result []cash.Movement
	for _, m := range r.movements {
		if m.SaleID != nil && *m.SaleID == saleID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memoryCashMovementRepo) ExistsBySaleAndKind(_ context.Context, saleID uuid.UUID, kind cash.MovementKind) (bool, error) {
	for _, m := range r.movements {
		if m.SaleID != nil && *m.SaleID == saleID && m.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

type memorySaleRepo struct {
	sales   map[uuid.UUID]sales.Sale
	nextSeq int64
}

func newMemorySaleRepo() *memorySaleRepo {
	return &memorySaleRepo{sales: make(map[uuid.UUID]sales.Sale)}
}

func (r *memorySaleRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &sale, nil
}

func (r *memorySaleRepo) FindBySite(_ context.Context, siteID uuid.UUID, _ shared.Filter) ([]sales.Sale, error) {
	var result []sales.Sale
	for _, sale := range r.sales {
		if sale.SiteID == siteID {
			result = append(result, sale)
		}
	}
	return result, nil
}

func (r *memorySaleRepo) FindBySiteBetween(_ context.Context, siteID uuid.UUID, from time.Time, to *time.Time) ([]sales.Sale, error) {
	var result []sales.Sale
	for _, sale := range r.sales {
		if sale.SiteID != siteID || sale.SoldAt.Before(from) {
			continue
		}
		if to != nil && sale.SoldAt.After(*to) {
			continue
		}
		result = append(result, sale)
	}
	return result, nil
}

func (r *memorySaleRepo) NextFolioSeq(_ context.Context) (int64, error) {
	r.nextSeq++
	return r.nextSeq, nil
}

func (r *memorySaleRepo) Save(_ context.Context, sale *sales.Sale) error {
	r.sales[sale.ID] = *sale
	return nil
}

func (r *memorySaleRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.sales[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.sales, id)
	return nil
}

type memoryPendingEntryRepo struct {
	entries map[uuid.UUID]sales.PendingCashEntry // keyed by sale ID
}

func newMemoryPendingEntryRepo() *memoryPendingEntryRepo {
	return &memoryPendingEntryRepo{entries: make(map[uuid.UUID]sales.PendingCashEntry)}
}

func (r *memoryPendingEntryRepo) FindBySale(_ context.Context, saleID uuid.UUID) (*sales.PendingCashEntry, error) {
	entry, ok := r.entries[saleID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &entry, nil
}

func (r *memoryPendingEntryRepo) FindRetryable(_ context.Context, siteID uuid.UUID, limit int) ([]sales.PendingCashEntry, error) {
	var result []sales.PendingCashEntry
	for _, entry := range r.entries {
		if entry.SiteID == siteID && entry.CanRetry() {
			result = append(result, entry)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *memoryPendingEntryRepo) CountUnappliedBySite(_ context.Context, siteID uuid.UUID) (int64, error) {
	var count int64
	for _, entry := range r.entries {
		if entry.SiteID == siteID && entry.Status != sales.PendingCashEntryStatusApplied {
			count++
		}
	}
	return count, nil
}

func (r *memoryPendingEntryRepo) Save(_ context.Context, entry *sales.PendingCashEntry) error {
	r.entries[entry.SaleID] = *entry
	return nil
}

type saleFixture struct {
	service     *Service
	compensator *Compensator
	lotRepo     *memoryLotRepo
	stockMovs   *memoryStockMovementRepo
	shiftRepo   *memoryShiftRepo
	cashMovs    *memoryCashMovementRepo
	saleRepo    *memorySaleRepo
	pendingRepo *memoryPendingEntryRepo
	siteID      uuid.UUID
	clientID    uuid.UUID
	operatorID  uuid.UUID
}

func newSaleFixture(t *testing.T, policy Policy) *saleFixture {
	t.Helper()
	f := &saleFixture{
		lotRepo:     newMemoryLotRepo(),
		stockMovs:   &memoryStockMovementRepo{},
		shiftRepo:   newMemoryShiftRepo(),
		cashMovs:    &memoryCashMovementRepo{},
		saleRepo:    newMemorySaleRepo(),
		pendingRepo: newMemoryPendingEntryRepo(),
		siteID:      uuid.New(),
		clientID:    uuid.New(),
		operatorID:  uuid.New(),
	}
	scope := NewNoOpTransactionScope(f.saleRepo, f.lotRepo, f.stockMovs, f.shiftRepo, f.cashMovs, f.pendingRepo)
	f.service = NewService(scope, f.saleRepo, f.lotRepo, f.pendingRepo, cache.NewInMemoryIdempotencyStore(), policy, zap.NewNop())
	f.compensator = NewCompensator(scope, policy, zap.NewNop())
	return f
}

func (f *saleFixture) openShift(t *testing.T, openingFloat int64) *cash.Shift {
	t.Helper()
	shift, err := cash.NewShift(f.siteID, decimal.NewFromInt(openingFloat), f.operatorID)
	require.NoError(t, err)
	require.NoError(t, f.shiftRepo.Save(context.Background(), shift))
	if openingFloat > 0 {
		movement, err := cash.NewMovement(shift.ID, cash.KindOpeningFloat, decimal.NewFromInt(openingFloat), "Opening float")
		require.NoError(t, err)
		require.NoError(t, f.cashMovs.Create(context.Background(), movement))
	}
	return shift
}

func (f *saleFixture) seedLot(t *testing.T, productID uuid.UUID, pieces int64, ingressAt time.Time) *stock.Lot {
	t.Helper()
	lot, err := stock.NewLot(productID, f.siteID, stock.LocationWarehouse, pieces, ingressAt, nil)
	require.NoError(t, err)
	require.NoError(t, f.lotRepo.Save(context.Background(), lot))
	return lot
}

func (f *saleFixture) drawerBalance(t *testing.T, shiftID uuid.UUID) decimal.Decimal {
	t.Helper()
	movements, err := f.cashMovs.FindByShift(context.Background(), shiftID)
	require.NoError(t, err)
	return cash.TheoreticalBalance(movements)
}

func TestCreateSale(t *testing.T) {
	ctx := context.Background()
	ingress := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

	t.Run("FIFO allocation spans lots oldest first", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		f.openShift(t, 500)
		productID := uuid.New()
		older := f.seedLot(t, productID, 6, ingress)
		newer := f.seedLot(t, productID, 8, ingress.AddDate(0, 0, 2))

		resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: 10, UnitPrice: decimal.NewFromInt(30)},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "V-000001", resp.Folio)
		assert.True(t, resp.Total.Equal(decimal.NewFromInt(300)))
		assert.False(t, resp.CashEntryPending)
		require.Len(t, resp.Lines, 1)
		require.Len(t, resp.Lines[0].Allocations, 2)
		assert.Equal(t, older.ID, resp.Lines[0].Allocations[0].LotID)
		assert.Equal(t, int64(6), resp.Lines[0].Allocations[0].Pieces)
		assert.Equal(t, newer.ID, resp.Lines[0].Allocations[1].LotID)
		assert.Equal(t, int64(4), resp.Lines[0].Allocations[1].Pieces)

		first, err := f.lotRepo.FindByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), first.Pieces)
		second, err := f.lotRepo.FindByID(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), second.Pieces)

		exits, err := f.stockMovs.FindBySale(ctx, resp.SaleID)
		require.NoError(t, err)
		require.Len(t, exits, 2)
		for _, m := range exits {
			assert.True(t, m.IsExit())
		}
	})

	t.Run("manual picks override FIFO", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		f.openShift(t, 500)
		productID := uuid.New()
		older := f.seedLot(t, productID, 6, ingress)
		newer := f.seedLot(t, productID, 8, ingress.AddDate(0, 0, 2))

		resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
			Lines: []SaleLineRequest{
				{
					ProductID: productID,
					Pieces:    5,
					UnitPrice: decimal.NewFromInt(30),
					Picks:     []stock.LotPick{{LotID: newer.ID, Pieces: 5}},
				},
			},
		})
		require.NoError(t, err)

		require.Len(t, resp.Lines[0].Allocations, 1)
		assert.Equal(t, newer.ID, resp.Lines[0].Allocations[0].LotID)

		untouched, err := f.lotRepo.FindByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6), untouched.Pieces)
	})

	t.Run("cash sale records the income atomically", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		shift := f.openShift(t, 500)
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: 4, UnitPrice: decimal.NewFromInt(50)},
			},
		})
		require.NoError(t, err)

		incomes, err := f.cashMovs.FindBySale(ctx, resp.SaleID)
		require.NoError(t, err)
		require.Len(t, incomes, 1)
		assert.Equal(t, cash.KindSaleIncome, incomes[0].Kind)
		assert.True(t, incomes[0].Amount.Equal(decimal.NewFromInt(200)))
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(700)))
	})

	t.Run("cash sale without an open shift is rejected", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		productID := uuid.New()
		lot := f.seedLot(t, productID, 10, ingress)

		_, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: 4, UnitPrice: decimal.NewFromInt(50)},
			},
		})
		assert.ErrorIs(t, err, shared.ErrCashDrawerClosed)

		untouched, err := f.lotRepo.FindByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), untouched.Pieces)
	})

	t.Run("card sale needs no open shift and no cash movement", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCard,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: 4, UnitPrice: decimal.NewFromInt(50)},
			},
		})
		require.NoError(t, err)

		incomes, err := f.cashMovs.FindBySale(ctx, resp.SaleID)
		require.NoError(t, err)
		assert.Empty(t, incomes)
	})

	t.Run("insufficient stock fails before anything is touched", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		f.openShift(t, 500)
		productID := uuid.New()
		lot := f.seedLot(t, productID, 3, ingress)

		_, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: 4, UnitPrice: decimal.NewFromInt(50)},
			},
		})
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INSUFFICIENT_STOCK", derr.Code)

		untouched, err := f.lotRepo.FindByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), untouched.Pieces)
		assert.Empty(t, f.stockMovs.movements)
	})

	t.Run("folios are sequential across sales", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		f.openShift(t, 500)
		productID := uuid.New()
		f.seedLot(t, productID, 100, ingress)

		for i, want := range []string{"V-000001", "V-000002", "V-000003"} {
			resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
				ClientID:      f.clientID,
				SiteID:        f.siteID,
				OperatorID:    f.operatorID,
				PaymentMethod: sales.PaymentMethodCash,
				Lines: []SaleLineRequest{
					{ProductID: productID, Pieces: int64(i + 1), UnitPrice: decimal.NewFromInt(10)},
				},
			})
			require.NoError(t, err)
			assert.Equal(t, want, resp.Folio)
		}
	})

	t.Run("rejects an empty sale", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		_, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
		})
		require.Error(t, err)
	})
}

func TestCancelSale(t *testing.T) {
	ctx := context.Background()
	ingress := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

	createSale := func(t *testing.T, f *saleFixture, productID uuid.UUID, pieces int64, method sales.PaymentMethod) *CreateSaleResponse {
		t.Helper()
		resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: method,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: pieces, UnitPrice: decimal.NewFromInt(30)},
			},
		})
		require.NoError(t, err)
		return resp
	}

	t.Run("restores every lot and refunds the drawer", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		shift := f.openShift(t, 500)
		productID := uuid.New()
		older := f.seedLot(t, productID, 6, ingress)
		newer := f.seedLot(t, productID, 8, ingress.AddDate(0, 0, 2))

		sold := createSale(t, f, productID, 10, sales.PaymentMethodCash)
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(800)))

		resp, err := f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(10), resp.RestockedPieces)
		assert.False(t, resp.Deleted)
		require.NotNil(t, resp.CashRefunded)
		assert.True(t, resp.CashRefunded.Equal(decimal.NewFromInt(300)))

		first, err := f.lotRepo.FindByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6), first.Pieces)
		second, err := f.lotRepo.FindByID(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(8), second.Pieces)

		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(500)))

		cancelled, err := f.saleRepo.FindByID(ctx, sold.SaleID)
		require.NoError(t, err)
		assert.True(t, cancelled.IsCancelled())

		// One return movement per original exit, nothing edited.
		movements, err := f.stockMovs.FindBySale(ctx, sold.SaleID)
		require.NoError(t, err)
		assert.Len(t, movements, 4)
	})

	t.Run("return movement lands at the lot's current location", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		f.openShift(t, 500)
		productID := uuid.New()
		lot := f.seedLot(t, productID, 10, ingress)

		sold := createSale(t, f, productID, 4, sales.PaymentMethodCash)

		// The remainder of the lot moves after the sale.
		moved, err := f.lotRepo.FindByID(ctx, lot.ID)
		require.NoError(t, err)
		require.NoError(t, moved.Relocate(stock.LocationShelf))
		require.NoError(t, f.lotRepo.Save(ctx, moved))

		_, err = f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		restored, err := f.lotRepo.FindByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), restored.Pieces)
		assert.Equal(t, stock.LocationShelf, restored.Location)

		movements, err := f.stockMovs.FindBySale(ctx, sold.SaleID)
		require.NoError(t, err)
		var ret *stock.Movement
		for i := range movements {
			if !movements[i].IsExit() {
				ret = &movements[i]
			}
		}
		require.NotNil(t, ret)
		require.NotNil(t, ret.Destination)
		assert.Equal(t, stock.LocationShelf, *ret.Destination)
	})

	t.Run("delete policy removes the sale row", func(t *testing.T) {
		policy := Policy{Cancellation: CancellationPolicyDelete, CashEntry: CashEntryModeAtomic}
		f := newSaleFixture(t, policy)
		f.openShift(t, 500)
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		sold := createSale(t, f, productID, 4, sales.PaymentMethodCash)

		resp, err := f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.True(t, resp.Deleted)

		_, err = f.saleRepo.FindByID(ctx, sold.SaleID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("non-cash cancellation never touches the drawer", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		sold := createSale(t, f, productID, 4, sales.PaymentMethodTransfer)

		resp, err := f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.Nil(t, resp.CashRefunded)
		assert.Empty(t, f.cashMovs.movements)
	})

	t.Run("closed drawer skips the refund but still restocks and cancels", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		shift := f.openShift(t, 500)
		productID := uuid.New()
		lot := f.seedLot(t, productID, 10, ingress)

		sold := createSale(t, f, productID, 4, sales.PaymentMethodCash)

		closed, err := f.shiftRepo.FindByID(ctx, shift.ID)
		require.NoError(t, err)
		require.NoError(t, closed.Close(decimal.NewFromInt(620), decimal.NewFromInt(620), f.operatorID))
		require.NoError(t, f.shiftRepo.Save(ctx, closed))

		resp, err := f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), resp.RestockedPieces)
		assert.Nil(t, resp.CashRefunded)

		restored, err := f.lotRepo.FindByID(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), restored.Pieces)

		cancelled, err := f.saleRepo.FindByID(ctx, sold.SaleID)
		require.NoError(t, err)
		assert.True(t, cancelled.IsCancelled())

		// The closed ledger is never reopened for the refund.
		refunded, err := f.cashMovs.ExistsBySaleAndKind(ctx, sold.SaleID, cash.KindSaleCancellationOutflow)
		require.NoError(t, err)
		assert.False(t, refunded)
	})

	t.Run("rejects a sale from another site", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		f.openShift(t, 500)
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		sold := createSale(t, f, productID, 4, sales.PaymentMethodCash)

		_, err := f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     uuid.New(),
			OperatorID: f.operatorID,
		})
		require.Error(t, err)
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "SALE_NOT_AT_SITE", derr.Code)
	})

	t.Run("cannot cancel twice", func(t *testing.T) {
		f := newSaleFixture(t, DefaultPolicy())
		f.openShift(t, 500)
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		sold := createSale(t, f, productID, 4, sales.PaymentMethodCash)

		_, err := f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		_, err = f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     sold.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.Error(t, err)
	})
}

func TestDeferredCashEntry(t *testing.T) {
	ctx := context.Background()
	ingress := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	deferred := Policy{Cancellation: CancellationPolicyFlag, CashEntry: CashEntryModeDeferred}

	t.Run("applies right after the sale commits", func(t *testing.T) {
		f := newSaleFixture(t, deferred)
		shift := f.openShift(t, 500)
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: 4, UnitPrice: decimal.NewFromInt(50)},
			},
		})
		require.NoError(t, err)

		// The immediate post-commit apply succeeded.
		assert.False(t, resp.CashEntryPending)
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(700)))

		entry, err := f.pendingRepo.FindBySale(ctx, resp.SaleID)
		require.NoError(t, err)
		assert.Equal(t, sales.PendingCashEntryStatusApplied, entry.Status)
	})

	t.Run("reconciler retries once and only once per entry", func(t *testing.T) {
		f := newSaleFixture(t, deferred)
		saleID := uuid.New()

		entry, err := sales.NewPendingCashEntry(saleID, f.siteID, decimal.NewFromInt(200))
		require.NoError(t, err)
		require.NoError(t, f.pendingRepo.Save(ctx, entry))

		// First sweep has no open shift, so the attempt fails and backs off.
		applied, err := f.service.ReconcilePendingCashEntries(ctx, f.siteID, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)

		failed, err := f.pendingRepo.FindBySale(ctx, saleID)
		require.NoError(t, err)
		assert.Equal(t, sales.PendingCashEntryStatusFailed, failed.Status)
		assert.Equal(t, 1, failed.RetryCount)
		require.NotNil(t, failed.NextRetryAt)

		// Force the backoff to elapse and open the drawer.
		past := time.Now().Add(-time.Minute)
		failed.NextRetryAt = &past
		require.NoError(t, f.pendingRepo.Save(ctx, failed))
		shift := f.openShift(t, 500)

		applied, err = f.service.ReconcilePendingCashEntries(ctx, f.siteID, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, applied)
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(700)))

		// A second sweep must not double-write the income.
		applied, err = f.service.ReconcilePendingCashEntries(ctx, f.siteID, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(700)))
	})

	t.Run("an existing ledger entry short-circuits the apply", func(t *testing.T) {
		f := newSaleFixture(t, deferred)
		shift := f.openShift(t, 500)
		saleID := uuid.New()

		entry, err := sales.NewPendingCashEntry(saleID, f.siteID, decimal.NewFromInt(200))
		require.NoError(t, err)
		require.NoError(t, f.pendingRepo.Save(ctx, entry))

		movement, err := cash.NewMovement(shift.ID, cash.KindSaleIncome, decimal.NewFromInt(200), "Sale income (deferred)")
		require.NoError(t, err)
		require.NoError(t, f.cashMovs.Create(ctx, movement.WithSaleID(saleID)))

		applied, err := f.service.ReconcilePendingCashEntries(ctx, f.siteID, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)

		settled, err := f.pendingRepo.FindBySale(ctx, saleID)
		require.NoError(t, err)
		assert.Equal(t, sales.PendingCashEntryStatusApplied, settled.Status)
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(700)))
	})

	t.Run("cancelling supersedes an unapplied entry", func(t *testing.T) {
		f := newSaleFixture(t, deferred)
		shift := f.openShift(t, 500)
		productID := uuid.New()
		f.seedLot(t, productID, 10, ingress)

		resp, err := f.service.CreateSale(ctx, CreateSaleRequest{
			ClientID:      f.clientID,
			SiteID:        f.siteID,
			OperatorID:    f.operatorID,
			PaymentMethod: sales.PaymentMethodCash,
			Lines: []SaleLineRequest{
				{ProductID: productID, Pieces: 4, UnitPrice: decimal.NewFromInt(50)},
			},
		})
		require.NoError(t, err)

		// Rewind the post-commit apply so the entry is pending again,
		// with no income in the ledger.
		entry, err := f.pendingRepo.FindBySale(ctx, resp.SaleID)
		require.NoError(t, err)
		entry.Status = sales.PendingCashEntryStatusPending
		entry.AppliedAt = nil
		require.NoError(t, f.pendingRepo.Save(ctx, entry))
		f.cashMovs.movements = f.cashMovs.movements[:1] // keep only the opening float

		cancelResp, err := f.compensator.CancelSale(ctx, CancelSaleRequest{
			SaleID:     resp.SaleID,
			SiteID:     f.siteID,
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		// Nothing was collected, so nothing is refunded.
		assert.Nil(t, cancelResp.CashRefunded)
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(500)))

		// The entry is closed so a late apply can never land.
		closedEntry, err := f.pendingRepo.FindBySale(ctx, resp.SaleID)
		require.NoError(t, err)
		assert.Equal(t, sales.PendingCashEntryStatusApplied, closedEntry.Status)

		applied, err := f.service.ReconcilePendingCashEntries(ctx, f.siteID, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, applied)
		assert.True(t, f.drawerBalance(t, shift.ID).Equal(decimal.NewFromInt(500)))
	})
}

func TestGetAndListSales(t *testing.T) {
	ctx := context.Background()
	ingress := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

	f := newSaleFixture(t, DefaultPolicy())
	f.openShift(t, 500)
	productID := uuid.New()
	f.seedLot(t, productID, 100, ingress)

	created, err := f.service.CreateSale(ctx, CreateSaleRequest{
		ClientID:      f.clientID,
		SiteID:        f.siteID,
		OperatorID:    f.operatorID,
		PaymentMethod: sales.PaymentMethodCash,
		Lines: []SaleLineRequest{
			{ProductID: productID, Pieces: 3, UnitPrice: decimal.NewFromInt(40)},
		},
	})
	require.NoError(t, err)

	t.Run("GetSale returns the sale with its lines", func(t *testing.T) {
		view, err := f.service.GetSale(ctx, created.SaleID)
		require.NoError(t, err)
		assert.Equal(t, created.Folio, view.Folio)
		assert.True(t, view.Total.Equal(decimal.NewFromInt(120)))
		require.Len(t, view.Lines, 1)
		assert.Equal(t, int64(3), view.Lines[0].Pieces)
	})

	t.Run("GetSale fails for an unknown sale", func(t *testing.T) {
		_, err := f.service.GetSale(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ListSales returns the site's sales", func(t *testing.T) {
		views, err := f.service.ListSales(ctx, f.siteID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Len(t, views, 1)

		views, err = f.service.ListSales(ctx, uuid.New(), shared.DefaultFilter())
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}
