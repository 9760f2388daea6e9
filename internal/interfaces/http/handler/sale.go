package handler

import (
	salesapp "github.com/aserradero/backend/internal/application/sales"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/domain/stock"
	"github.com/aserradero/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleHandler handles sale API endpoints
type SaleHandler struct {
	BaseHandler
	service     *salesapp.Service
	compensator *salesapp.Compensator
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(service *salesapp.Service, compensator *salesapp.Compensator) *SaleHandler {
	return &SaleHandler{service: service, compensator: compensator}
}

// SaleLinePickRequest pins part of a sale line to a specific lot
//
//	@Description	Explicit lot pick
type SaleLinePickRequest struct {
	LotID  string `json:"lot_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Pieces int64  `json:"pieces" binding:"required,gt=0" example:"6"`
}

// SaleLineRequest represents one requested product line
//
//	@Description	Sale line request
type SaleLineRequest struct {
	ProductID string                `json:"product_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Pieces    int64                 `json:"pieces" binding:"required,gt=0" example:"10"`
	UnitPrice float64               `json:"unit_price" binding:"required,gt=0" example:"85.50"`
	Picks     []SaleLinePickRequest `json:"picks,omitempty"`
}

// CreateSaleRequest represents a request to create a sale
//
//	@Description	Create sale request
type CreateSaleRequest struct {
	ClientID      string            `json:"client_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	PaymentMethod string            `json:"payment_method" binding:"required,payment_method" example:"CASH"`
	Lines         []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// Create godoc
// @Summary      Create a sale
// @Description  Allocates stock FIFO (or from explicit picks), assigns a folio, and records the cash income for cash sales
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        request body CreateSaleRequest true "Create sale request"
// @Success      201 {object} dto.Response{data=salesapp.CreateSaleResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/sales [post]
func (h *SaleHandler) Create(c *gin.Context) {
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

	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		h.BadRequest(c, "Invalid client ID format")
		return
	}

	appReq := salesapp.CreateSaleRequest{
		ClientID:      clientID,
		SiteID:        siteID,
		OperatorID:    operatorID,
		PaymentMethod: sales.PaymentMethod(req.PaymentMethod),
	}

	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}

		appLine := salesapp.SaleLineRequest{
			ProductID: productID,
			Pieces:    line.Pieces,
			UnitPrice: decimal.NewFromFloat(line.UnitPrice),
		}

		for _, pick := range line.Picks {
			lotID, err := uuid.Parse(pick.LotID)
			if err != nil {
				h.BadRequest(c, "Invalid lot ID format")
				return
			}
			appLine.Picks = append(appLine.Picks, stock.LotPick{
				LotID:  lotID,
				Pieces: pick.Pieces,
			})
		}

		appReq.Lines = append(appReq.Lines, appLine)
	}

	resp, err := h.service.CreateSale(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, resp)
}

// Cancel godoc
// @Summary      Cancel a sale
// @Description  Restocks the sold pieces into their source lots and refunds collected cash through the open shift
// @Tags         sales
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=salesapp.CancelSaleResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/sales/{id}/cancel [post]
func (h *SaleHandler) Cancel(c *gin.Context) {
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

	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	resp, err := h.compensator.CancelSale(c.Request.Context(), salesapp.CancelSaleRequest{
		SaleID:     saleID,
		SiteID:     siteID,
		OperatorID: operatorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetByID godoc
// @Summary      Get a sale by ID
// @Tags         sales
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        id path string true "Sale ID" format(uuid)
// @Success      200 {object} dto.Response{data=salesapp.SaleView}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/sales/{id} [get]
func (h *SaleHandler) GetByID(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sale ID format")
		return
	}

	sale, err := h.service.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, sale)
}

// List godoc
// @Summary      List sales of a site
// @Tags         sales
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]salesapp.SaleView}
// @Security     BearerAuth
// @Router       /sites/{siteId}/sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	siteID, err := getSiteID(c)
	if err != nil {
		h.BadRequest(c, "Invalid site ID")
		return
	}

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	views, err := h.service.ListSales(c.Request.Context(), siteID, shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, views)
}

// ReconcileCashEntries godoc
// @Summary      Apply deferred cash entries
// @Description  Retries queued sale cash entries against the site's open shift
// @Tags         sales
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Success      200 {object} dto.Response{data=map[string]int}
// @Security     BearerAuth
// @Router       /sites/{siteId}/sales/reconcile-cash [post]
func (h *SaleHandler) ReconcileCashEntries(c *gin.Context) {
	siteID, err := getSiteID(c)
	if err != nil {
		h.BadRequest(c, "Invalid site ID")
		return
	}

	applied, err := h.service.ReconcilePendingCashEntries(c.Request.Context(), siteID, 100)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"applied": applied})
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	salesGroup := rg.Group("/sites/:siteId/sales")
	{
		salesGroup.POST("", h.Create)
		salesGroup.GET("", h.List)
		salesGroup.GET("/:id", h.GetByID)
		salesGroup.POST("/:id/cancel", h.Cancel)
		salesGroup.POST("/reconcile-cash", h.ReconcileCashEntries)
	}
}
