package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	stockapp "github.com/aserradero/backend/internal/application/stock"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/aserradero/backend/internal/interfaces/http/dto"
	"github.com/aserradero/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations for stock repositories

type mockLotRepository struct {
	lots map[uuid.UUID]stock.Lot
}

func newMockLotRepository() *mockLotRepository {
	return &mockLotRepository{lots: make(map[uuid.UUID]stock.Lot)}
}

func (m *mockLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Lot, error) {
	if lot, ok := m.lots[id]; ok {
		copied := lot
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockLotRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*stock.Lot, error) {
	return m.FindByID(ctx, id)
}

func (m *mockLotRepository) FindAvailable(ctx context.Context, productID, siteID uuid.UUID) ([]stock.Lot, error) {
	var found []stock.Lot
	for _, lot := range m.lots {
		if lot.ProductID == productID && lot.SiteID == siteID && lot.Pieces > 0 {
			found = append(found, lot)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].IngressAt.Equal(found[j].IngressAt) {
			return found[i].IngressAt.Before(found[j].IngressAt)
		}
		return found[i].ID.String() < found[j].ID.String()
	})
	return found, nil
}

func (m *mockLotRepository) FindCompatible(ctx context.Context, siteID, productID uuid.UUID, location stock.Location, ingressAt time.Time, productionOrderID *uuid.UUID) (*stock.Lot, error) {
	for _, lot := range m.lots {
		if lot.SiteID == siteID && lot.IsCompatibleAt(location, productID, ingressAt, productionOrderID) {
			copied := lot
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockLotRepository) FindBySite(ctx context.Context, siteID uuid.UUID, filter shared.Filter) ([]stock.Lot, error) {
	var found []stock.Lot
	for _, lot := range m.lots {
		if lot.SiteID == siteID {
			found = append(found, lot)
		}
	}
	return found, nil
}

func (m *mockLotRepository) Save(ctx context.Context, lot *stock.Lot) error {
	m.lots[lot.ID] = *lot
	return nil
}

func (m *mockLotRepository) CountBySite(ctx context.Context, siteID uuid.UUID) (int64, error) {
	var count int64
	for _, lot := range m.lots {
		if lot.SiteID == siteID {
			count++
		}
	}
	return count, nil
}

type mockStockMovementRepository struct {
	movements []stock.Movement
}

func (m *mockStockMovementRepository) Create(ctx context.Context, movement *stock.Movement) error {
	m.movements = append(m.movements, *movement)
	return nil
}

func (m *mockStockMovementRepository) FindByLot(ctx context.Context, lotID uuid.UUID) ([]stock.Movement, error) {
	var found []stock.Movement
	for _, mv := range m.movements {
		if mv.LotID == lotID {
			found = append(found, mv)
		}
	}
	return found, nil
}

func (m *mockStockMovementRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]stock.Movement, error) {
	var found []stock.Movement
	for _, mv := range m.movements {
		if mv.SaleID != nil && *mv.SaleID == saleID {
			found = append(found, mv)
		}
	}
	return found, nil
}

func setupStockTestRouter(operatorID uuid.UUID) (*gin.Engine, *mockLotRepository) {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	lotRepo := newMockLotRepository()
	movementRepo := &mockStockMovementRepository{}
	service := stockapp.NewService(
		stockapp.NewNoOpTransactionScope(lotRepo, movementRepo),
		lotRepo,
		zap.NewNop(),
	)
	handler := NewStockHandler(service)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.JWTOperatorIDKey, operatorID.String())
		c.Next()
	})
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router, lotRepo
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStockHandler_MoveLot(t *testing.T) {
	operatorID := uuid.New()
	siteID := uuid.New()

	seed := func(t *testing.T, repo *mockLotRepository, pieces int64) *stock.Lot {
		t.Helper()
		lot, err := stock.NewLot(uuid.New(), siteID, stock.LocationWarehouse, pieces, time.Now(), nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), lot))
		return lot
	}

	t.Run("moves pieces and reports the destination lot", func(t *testing.T) {
		router, lotRepo := setupStockTestRouter(operatorID)
		lot := seed(t, lotRepo, 40)

		w := postJSON(t, router, fmt.Sprintf("/api/v1/sites/%s/stock/movements", siteID), MoveLotRequest{
			LotID:       lot.ID.String(),
			Destination: "SHELF",
			Pieces:      40,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, lot.ID.String(), data["affected_lot_id"])
		assert.Equal(t, float64(40), data["new_quantity_at_destination"])
	})

	t.Run("rejects an unknown destination at binding time", func(t *testing.T) {
		router, lotRepo := setupStockTestRouter(operatorID)
		lot := seed(t, lotRepo, 40)

		w := postJSON(t, router, fmt.Sprintf("/api/v1/sites/%s/stock/movements", siteID), MoveLotRequest{
			LotID:       lot.ID.String(),
			Destination: "BASEMENT",
			Pieces:      10,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps insufficient stock to 422", func(t *testing.T) {
		router, lotRepo := setupStockTestRouter(operatorID)
		lot := seed(t, lotRepo, 5)

		w := postJSON(t, router, fmt.Sprintf("/api/v1/sites/%s/stock/movements", siteID), MoveLotRequest{
			LotID:       lot.ID.String(),
			Destination: "SHELF",
			Pieces:      50,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
	})

	t.Run("maps an unknown lot to 404", func(t *testing.T) {
		router, _ := setupStockTestRouter(operatorID)

		w := postJSON(t, router, fmt.Sprintf("/api/v1/sites/%s/stock/movements", siteID), MoveLotRequest{
			LotID:       uuid.New().String(),
			Destination: "SHELF",
			Pieces:      10,
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStockHandler_RegisterProduction(t *testing.T) {
	operatorID := uuid.New()
	siteID := uuid.New()

	t.Run("creates a lot for produced pieces", func(t *testing.T) {
		router, lotRepo := setupStockTestRouter(operatorID)

		w := postJSON(t, router, fmt.Sprintf("/api/v1/sites/%s/stock/production", siteID), RegisterProductionRequest{
			ProductID: uuid.New().String(),
			Location:  "PRODUCTION_FLOOR",
			Pieces:    350,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(350), data["pieces"])

		lotID, err := uuid.Parse(data["lot_id"].(string))
		require.NoError(t, err)
		lot, err := lotRepo.FindByID(context.Background(), lotID)
		require.NoError(t, err)
		assert.Equal(t, int64(350), lot.Pieces)
		assert.Equal(t, siteID, lot.SiteID)
	})

	t.Run("rejects non-positive pieces at binding time", func(t *testing.T) {
		router, _ := setupStockTestRouter(operatorID)

		w := postJSON(t, router, fmt.Sprintf("/api/v1/sites/%s/stock/production", siteID), RegisterProductionRequest{
			ProductID: uuid.New().String(),
			Location:  "PRODUCTION_FLOOR",
			Pieces:    0,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStockHandler_Availability(t *testing.T) {
	operatorID := uuid.New()
	siteID := uuid.New()
	productID := uuid.New()

	router, lotRepo := setupStockTestRouter(operatorID)

	older, err := stock.NewLot(productID, siteID, stock.LocationWarehouse, 10, time.Now().Add(-48*time.Hour), nil)
	require.NoError(t, err)
	require.NoError(t, lotRepo.Save(context.Background(), older))
	newer, err := stock.NewLot(productID, siteID, stock.LocationShelf, 4, time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, lotRepo.Save(context.Background(), newer))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/sites/%s/stock/availability/%s", siteID, productID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp.Data.([]interface{})
	require.Len(t, items, 2)
	first := items[0].(map[string]interface{})
	assert.Equal(t, older.ID.String(), first["lot_id"])
}
