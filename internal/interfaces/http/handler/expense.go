package handler

import (
	financeapp "github.com/aserradero/backend/internal/application/finance"
	"github.com/aserradero/backend/internal/domain/finance"
	"github.com/aserradero/backend/internal/domain/sales"
	"github.com/aserradero/backend/internal/domain/shared"
	"github.com/aserradero/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseHandler handles expense API endpoints
type ExpenseHandler struct {
	BaseHandler
	service *financeapp.Service
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(service *financeapp.Service) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// CreateExpenseRequest represents a request to record a site expense
//
//	@Description	Create expense request
type CreateExpenseRequest struct {
	Category      string  `json:"category" binding:"required,expense_category" example:"FUEL"`
	Concept       string  `json:"concept" binding:"required" example:"Diesel for the loader"`
	Amount        float64 `json:"amount" binding:"required,gt=0" example:"850.00"`
	PaymentMethod string  `json:"payment_method" binding:"required,payment_method" example:"CASH"`
	Paid          bool    `json:"paid" example:"true"`
}

// Create godoc
// @Summary      Record an expense
// @Description  Records a site expense. A paid cash expense also writes an outflow to the open shift.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        request body CreateExpenseRequest true "Create expense request"
// @Success      201 {object} dto.Response{data=financeapp.ExpenseView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
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

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.service.CreateExpense(c.Request.Context(), financeapp.CreateExpenseRequest{
		SiteID:        siteID,
		OperatorID:    operatorID,
		Category:      finance.ExpenseCategory(req.Category),
		Concept:       req.Concept,
		Amount:        decimal.NewFromFloat(req.Amount),
		PaymentMethod: sales.PaymentMethod(req.PaymentMethod),
		Paid:          req.Paid,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, view)
}

// Cancel godoc
// @Summary      Cancel an expense
// @Description  Removes the expense and returns its cash to the open shift when it was paid in cash
// @Tags         expenses
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        id path string true "Expense ID" format(uuid)
// @Success      204 "No Content"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /sites/{siteId}/expenses/{id}/cancel [post]
func (h *ExpenseHandler) Cancel(c *gin.Context) {
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

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid expense ID format")
		return
	}

	if err := h.service.CancelExpense(c.Request.Context(), expenseID, siteID, operatorID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// List godoc
// @Summary      List expenses of a site
// @Tags         expenses
// @Produce      json
// @Param        siteId path string true "Site ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]financeapp.ExpenseView}
// @Security     BearerAuth
// @Router       /sites/{siteId}/expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
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

	views, err := h.service.ListExpenses(c.Request.Context(), siteID, shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, views)
}

// RegisterRoutes registers all expense routes
func (h *ExpenseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	expenses := rg.Group("/sites/:siteId/expenses")
	{
		expenses.POST("", h.Create)
		expenses.GET("", h.List)
		expenses.POST("/:id/cancel", h.Cancel)
	}
}
