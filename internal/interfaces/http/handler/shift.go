package handler

import (
	cashapp "github.com/aserradero/backend/internal/application/cash"
	"github.com/aserradero/backend/internal/domain/cash"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftHandler handles cash shift API endpoints
type ShiftHandler struct {
	BaseHandler
	service *cashapp.Service
}

// NewShiftHandler creates a new ShiftHandler
func NewShiftHandler(service *cashapp.Service) *ShiftHandler {
	return &ShiftHandler{service: service}
}

// OpenShiftRequest represents a request to open the site cash drawer
//
//	@Description	Open shift request
type OpenShiftRequest struct {
	OpeningFloat float64 `json:"opening_float" binding:"gte=0" example:"500.00"`
}

// CloseShiftRequest represents a request to close a shift against a counted amount
//
//	@Description	Close shift request
type CloseShiftRequest struct {
	CountedAmount float64 `json:"counted_amount" binding:"gte=0" example:"690.00"`
}

// RecordAdjustmentRequest represents a manual cash adjustment
//
//	@Description	Record adjustment request
type RecordAdjustmentRequest struct {
	Kind        string  `json:"kind" binding:"required,movement_kind" example:"MANUAL_WITHDRAWAL"`
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"200.00"`
	Description string  `json:"description" binding:"required" example:"Cash to buy diesel"`
}

// Open godoc
// @Summary      Open a cash shift
// @Description  Opens the site cash drawer with an opening float. Only one shift may be open per site.
// @Tags         shifts
// @Accept       json
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        request body OpenShiftRequest true "Open shift request"
// @Success      201 {object} dto.Response{data=cashapp.OpenShiftResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/shifts [post]
func (h *ShiftHandler) Open(c *gin.Context) {
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

	var req OpenShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.OpenShift(c.Request.Context(), cashapp.OpenShiftRequest{
		SiteID:       siteID,
		OperatorID:   operatorID,
		OpeningFloat: decimal.NewFromFloat(req.OpeningFloat),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, resp)
}

// Close godoc
// @Summary      Close a cash shift
// @Description  Replays the cash ledger into a theoretical balance and reconciles it against the counted amount
// @Tags         shifts
// @Accept       json
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        id path string true "Shift ID" format(uuid)
// @Param        request body CloseShiftRequest true "Close shift request"
// @Success      200 {object} dto.Response{data=cashapp.CloseShiftResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/shifts/{id}/close [post]
func (h *ShiftHandler) Close(c *gin.Context) {
	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "Operator not identified")
		return
	}

	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shift ID format")
		return
	}

	var req CloseShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CloseShift(c.Request.Context(), cashapp.CloseShiftRequest{
		ShiftID:       shiftID,
		OperatorID:    operatorID,
		CountedAmount: decimal.NewFromFloat(req.CountedAmount),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resp)
}

// RecordAdjustment godoc
// @Summary      Record a manual cash adjustment
// @Description  Appends a withdrawal or correction movement to an open shift
// @Tags         shifts
// @Accept       json
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        id path string true "Shift ID" format(uuid)
// @Param        request body RecordAdjustmentRequest true "Adjustment request"
// @Success      201 {object} dto.Response{data=cashapp.MovementItem}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/shifts/{id}/movements [post]
func (h *ShiftHandler) RecordAdjustment(c *gin.Context) {
	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "Operator not identified")
		return
	}

	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shift ID format")
		return
	}

	var req RecordAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.service.RecordAdjustment(c.Request.Context(), cashapp.RecordAdjustmentRequest{
		ShiftID:     shiftID,
		OperatorID:  operatorID,
		Kind:        cash.MovementKind(req.Kind),
		Amount:      decimal.NewFromFloat(req.Amount),
		Description: req.Description,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, item)
}

// Summary godoc
// @Summary      Get a shift reconciliation summary
// @Description  Returns the shift's movements and totals, all recomputed from the cash ledger
// @Tags         shifts
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        id path string true "Shift ID" format(uuid)
// @Success      200 {object} dto.Response{data=cashapp.ShiftSummary}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/shifts/{id}/summary [get]
func (h *ShiftHandler) Summary(c *gin.Context) {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shift ID format")
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), shiftID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// Current godoc
// @Summary      Get the currently open shift
// @Description  Returns the open shift of the site, or 404 when the drawer is closed
// @Tags         shifts
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Success      200 {object} dto.Response{data=cashapp.ShiftSummary}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/shifts/current [get]
func (h *ShiftHandler) Current(c *gin.Context) {
	siteID, err := getSiteID(c)
	if err != nil {
		h.BadRequest(c, "Invalid site ID")
		return
	}

	summary, err := h.service.CurrentShift(c.Request.Context(), siteID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// List godoc
// @Summary      List shifts of a site
// @Description  Returns the site's shifts, most recently opened first
// @Tags         shifts
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]cashapp.ShiftSummary}
// @Security     BearerAuth
// @Router       /sites/{siteId}/shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
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

	summaries, err := h.service.ListShifts(c.Request.Context(), siteID, shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summaries)
}

// RegisterRoutes registers all shift routes
func (h *ShiftHandler) RegisterRoutes(rg *gin.RouterGroup) {
	shifts := rg.Group("/sites/:siteId/shifts")
	{
		shifts.POST("", h.Open)
		shifts.GET("", h.List)
		shifts.GET("/current", h.Current)
		shifts.GET("/:id/summary", h.Summary)
		shifts.POST("/:id/close", h.Close)
		shifts.POST("/:id/movements", h.RecordAdjustment)
	}
}
