package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/reconciliation"
)

// PostingHandler posts business events synchronously and returns the entry
type PostingHandler struct {
	postingService service.PostingService
	logger         *slog.Logger
}

func NewPostingHandler(logger *slog.Logger, postingService service.PostingService) *PostingHandler {
	return &PostingHandler{
		postingService: postingService,
		logger:         logger,
	}
}

func (h *PostingHandler) Sale(c *gin.Context)            { bindAndPost[event.Sale](h, c) }
func (h *PostingHandler) Payment(c *gin.Context)         { bindAndPost[event.Payment](h, c) }
func (h *PostingHandler) SupplierInvoice(c *gin.Context) { bindAndPost[event.SupplierInvoice](h, c) }
func (h *PostingHandler) SupplierPayment(c *gin.Context) { bindAndPost[event.SupplierPayment](h, c) }
func (h *PostingHandler) Expense(c *gin.Context)         { bindAndPost[event.Expense](h, c) }
func (h *PostingHandler) Adjustment(c *gin.Context)      { bindAndPost[event.Adjustment](h, c) }
func (h *PostingHandler) Refund(c *gin.Context)          { bindAndPost[event.Refund](h, c) }

// bindAndPost decodes the body as T and posts it. Validation is left to the
// engine so HTTP and Kafka intake reject the same payloads.
func bindAndPost[T event.Event](h *PostingHandler, c *gin.Context) {
	var ev T
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.logger.Warn("Invalid posting body", "path", c.FullPath(), "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.postingService.Post(c.Request.Context(), ev)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// Reconcile brings an account to a counted balance. A count that already
// matches the ledger returns 200 with matched set and no entry.
func (h *PostingHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	count := reconciliation.Count{
		AdjustmentID:    req.AdjustmentID,
		AccountID:       req.AccountID,
		OffsetAccountID: req.OffsetAccountID,
		Counted:         req.Counted,
		Description:     req.Description,
		Reference:       req.Reference,
	}
	if req.Date != nil {
		count.Date = *req.Date
	}

	entry, matched, err := h.postingService.Reconcile(c.Request.Context(), count)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	if matched {
		RespondOK(c, ReconcileResponse{Matched: true})
		return
	}
	response := mapEntryToResponse(entry)
	RespondWithData(c, http.StatusCreated, ReconcileResponse{Entry: &response})
}
