package handler

import (
	"time"

	stockapp "github.com/aserradero/backend/internal/application/stock"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StockHandler handles lot and stock movement API endpoints
type StockHandler struct {
	BaseHandler
	service *stockapp.Service
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(service *stockapp.Service) *StockHandler {
	return &StockHandler{service: service}
}

// MoveLotRequest represents a request to move pieces of a lot
//
//	@Description	Move lot request
type MoveLotRequest struct {
	LotID       string `json:"lot_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Destination string `json:"destination" binding:"required,location" example:"WAREHOUSE"`
	Pieces      int64  `json:"pieces" binding:"required,gt=0" example:"120"`
}

// RegisterProductionRequest represents a request to register produced pieces
//
//	@Description	Register production request
type RegisterProductionRequest struct {
	ProductID         string     `json:"product_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Location          string     `json:"location" binding:"required,location" example:"PRODUCTION_FLOOR"`
	Pieces            int64      `json:"pieces" binding:"required,gt=0" example:"350"`
	ProductionOrderID *string    `json:"production_order_id,omitempty" binding:"omitempty,uuid"`
	IngressAt         *time.Time `json:"ingress_at,omitempty"`
}

// MoveLot godoc
// @Summary      Move pieces of a lot to another location
// @Description  Moves pieces between locations, merging into a compatible lot at the destination when one exists
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        request body MoveLotRequest true "Move lot request"
// @Success      200 {object} dto.Response{data=stockapp.MoveLotResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/stock/movements [post]
func (h *StockHandler) MoveLot(c *gin.Context) {
	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "Operator not identified")
		return
	}

	var req MoveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lotID, err := uuid.Parse(req.LotID)
	if err != nil {
		h.BadRequest(c, "Invalid lot ID format")
		return
	}

	resp, err := h.service.MoveLot(c.Request.Context(), operatorID, stockapp.MoveLotRequest{
		LotID:       lotID,
		Destination: stock.Location(req.Destination),
		Pieces:      req.Pieces,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// RegisterProduction godoc
// @Summary      Register produced pieces entering stock
// @Description  Creates or merges a lot with freshly produced pieces at the given location
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        request body RegisterProductionRequest true "Register production request"
// @Success      201 {object} dto.Response{data=stockapp.RegisterProductionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/stock/production [post]
func (h *StockHandler) RegisterProduction(c *gin.Context) {
	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "Operator not identified")
		return
	}

	siteID, err := getSiteID(c)
	if err != nil {
		h.BadRequest(c, "Invalid site ID")
		return
	}

	var req RegisterProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	appReq := stockapp.RegisterProductionRequest{
		ProductID: productID,
		SiteID:    siteID,
		Location:  stock.Location(req.Location),
		Pieces:    req.Pieces,
		IngressAt: req.IngressAt,
	}

	if req.ProductionOrderID != nil && *req.ProductionOrderID != "" {
		orderID, err := uuid.Parse(*req.ProductionOrderID)
		if err != nil {
			h.BadRequest(c, "Invalid production order ID format")
			return
		}
		appReq.ProductionOrderID = &orderID
	}

	resp, err := h.service.RegisterProduction(c.Request.Context(), operatorID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, resp)
}

// Availability godoc
// @Summary      List available lots for a product
// @Description  Returns the lots holding a product at the site, oldest ingress first
// @Tags         stock
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        productId path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]stockapp.AvailabilityItem}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/stock/availability/{productId} [get]
func (h *StockHandler) Availability(c *gin.Context) {
	siteID, err := getSiteID(c)
	if err != nil {
		h.BadRequest(c, "Invalid site ID")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	items, err := h.service.Availability(c.Request.Context(), productID, siteID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, items)
}

// RegisterRoutes registers all stock routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/sites/:siteId/stock")
	{
		stock.POST("/movements", h.MoveLot)
		stock.POST("/production", h.RegisterProduction)
		stock.GET("/availability/:productId", h.Availability)
	}
}
