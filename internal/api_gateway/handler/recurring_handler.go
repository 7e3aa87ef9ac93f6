package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/domain/recurring"
)

// RecurringExpenseHandler administers recurring expense schedules
type RecurringExpenseHandler struct {
	recurringService service.RecurringExpenseService
	logger           *slog.Logger
}

func NewRecurringExpenseHandler(logger *slog.Logger, recurringService service.RecurringExpenseService) *RecurringExpenseHandler {
	return &RecurringExpenseHandler{
		recurringService: recurringService,
		logger:           logger,
	}
}

func (h *RecurringExpenseHandler) Create(c *gin.Context) {
	var req CreateRecurringExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	// Formats were checked by the binding
	start, _ := time.Parse(time.DateOnly, req.StartDate)
	def := service.RecurringExpenseSpec{
		Name:             req.Name,
		Payee:            req.Payee,
		Amount:           req.Amount.Cents(),
		ExpenseAccountID: req.ExpenseAccountID,
		PaymentAccountID: req.PaymentAccountID,
		Frequency:        recurring.Frequency(req.Frequency),
		StartDate:        start,
	}
	if req.EndDate != "" {
		end, _ := time.Parse(time.DateOnly, req.EndDate)
		def.EndDate = &end
	}

	exp, err := h.recurringService.CreateRecurringExpense(c.Request.Context(), def)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapRecurringToResponse(exp))
}

func (h *RecurringExpenseHandler) List(c *gin.Context) {
	expenses, err := h.recurringService.ListRecurringExpenses(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := make([]RecurringExpenseResponse, 0, len(expenses))
	for _, exp := range expenses {
		response = append(response, mapRecurringToResponse(exp))
	}
	RespondOK(c, response)
}

// UpdateStatus pauses, resumes or cancels a schedule. Cancelled is final.
func (h *RecurringExpenseHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid recurring expense ID")
		return
	}

	var req UpdateRecurringStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	exp, err := h.recurringService.SetRecurringExpenseStatus(c.Request.Context(), id, recurring.Status(req.Status))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRecurringToResponse(exp))
}
