package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/domain/journal"
)

// ReportHandler serves the financial reports
type ReportHandler struct {
	reportService service.ReportService
	logger        *slog.Logger
	now           func() time.Time
}

func NewReportHandler(logger *slog.Logger, reportService service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (h *ReportHandler) TrialBalance(c *gin.Context) {
	asOf, ok := h.bindAsOf(c)
	if !ok {
		return
	}
	h.respond(c)(h.reportService.TrialBalance(c.Request.Context(), asOf))
}

func (h *ReportHandler) BalanceSheet(c *gin.Context) {
	asOf, ok := h.bindAsOf(c)
	if !ok {
		return
	}
	h.respond(c)(h.reportService.BalanceSheet(c.Request.Context(), asOf))
}

func (h *ReportHandler) ArAging(c *gin.Context) {
	asOf, ok := h.bindAsOf(c)
	if !ok {
		return
	}
	h.respond(c)(h.reportService.ArAging(c.Request.Context(), asOf))
}

func (h *ReportHandler) ApAging(c *gin.Context) {
	asOf, ok := h.bindAsOf(c)
	if !ok {
		return
	}
	h.respond(c)(h.reportService.ApAging(c.Request.Context(), asOf))
}

func (h *ReportHandler) ProfitAndLoss(c *gin.Context) {
	start, end, ok := h.bindPeriod(c)
	if !ok {
		return
	}
	h.respond(c)(h.reportService.ProfitAndLoss(c.Request.Context(), start, end))
}

func (h *ReportHandler) SalesTax(c *gin.Context) {
	start, end, ok := h.bindPeriod(c)
	if !ok {
		return
	}
	h.respond(c)(h.reportService.SalesTax(c.Request.Context(), start, end))
}

// CustomerStatement lists one customer's invoices, payments and refunds
func (h *ReportHandler) CustomerStatement(c *gin.Context) {
	asOf, ok := h.bindAsOf(c)
	if !ok {
		return
	}
	h.respond(c)(h.reportService.CustomerStatement(c.Request.Context(), c.Param("customerId"), asOf))
}

// bindAsOf reads as_of, defaulting to today
func (h *ReportHandler) bindAsOf(c *gin.Context) (time.Time, bool) {
	var params AsOfParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return time.Time{}, false
	}
	if params.AsOf.IsZero() {
		return journal.StartOfDay(h.now()), true
	}
	return journal.StartOfDay(params.AsOf), true
}

func (h *ReportHandler) bindPeriod(c *gin.Context) (time.Time, time.Time, bool) {
	var params PeriodParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return time.Time{}, time.Time{}, false
	}
	if params.End.Before(params.Start) {
		RespondBadRequest(c, "end must not be before start")
		return time.Time{}, time.Time{}, false
	}
	return journal.StartOfDay(params.Start), journal.StartOfDay(params.End), true
}

// respond writes a report or maps its error
func (h *ReportHandler) respond(c *gin.Context) func(report any, err error) {
	return func(report any, err error) {
		if err != nil {
			RespondError(c, h.logger, err)
			return
		}
		RespondOK(c, report)
	}
}
