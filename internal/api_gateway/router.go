package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storefront-ledger/internal/api_gateway/handler"
	"github.com/storefront-ledger/internal/api_gateway/middleware"
)

// handlers groups the HTTP handlers mounted under /api/v1
type handlers struct {
	accounts  *handler.AccountHandler
	journal   *handler.JournalHandler
	postings  *handler.PostingHandler
	reports   *handler.ReportHandler
	events    *handler.EventHandler
	recurring *handler.RecurringExpenseHandler
}

// setupRouter configures API routes and middleware for the application.
// CorrelationID runs first so every later middleware sees the id.
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", h.accounts.Create)
			accounts.GET("", h.accounts.List)
			accounts.GET("/:id", h.accounts.GetByID)
			accounts.PATCH("/:id", h.accounts.Update)
			accounts.DELETE("/:id", h.accounts.Delete)
			accounts.GET("/:id/lines", h.accounts.Lines)
		}

		entries := v1.Group("/journal-entries")
		{
			entries.GET("", h.journal.List)
			entries.GET("/:id", h.journal.GetByID)
			entries.POST("/:id/reversal", h.journal.Reverse)
		}

		postings := v1.Group("/postings")
		{
			postings.POST("/sales", h.postings.Sale)
			postings.POST("/payments", h.postings.Payment)
			postings.POST("/supplier-invoices", h.postings.SupplierInvoice)
			postings.POST("/supplier-payments", h.postings.SupplierPayment)
			postings.POST("/expenses", h.postings.Expense)
			postings.POST("/adjustments", h.postings.Adjustment)
			postings.POST("/refunds", h.postings.Refund)
			postings.POST("/reconciliations", h.postings.Reconcile)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/trial-balance", h.reports.TrialBalance)
			reports.GET("/profit-and-loss", h.reports.ProfitAndLoss)
			reports.GET("/balance-sheet", h.reports.BalanceSheet)
			reports.GET("/ar-aging", h.reports.ArAging)
			reports.GET("/ap-aging", h.reports.ApAging)
			reports.GET("/sales-tax", h.reports.SalesTax)
			reports.GET("/customers/:customerId/statement", h.reports.CustomerStatement)
		}

		events := v1.Group("/events")
		{
			events.POST("", h.events.Submit)
			events.GET("", h.events.List)
			events.GET("/:sourceType/:sourceId", h.events.GetStatus)
		}

		recurring := v1.Group("/recurring-expenses")
		{
			recurring.POST("", h.recurring.Create)
			recurring.GET("", h.recurring.List)
			recurring.PATCH("/:id/status", h.recurring.UpdateStatus)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
