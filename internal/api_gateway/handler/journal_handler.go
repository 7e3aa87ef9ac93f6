package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/posting"
)

// JournalHandler serves journal queries and reversals
type JournalHandler struct {
	journalService service.JournalService
	logger         *slog.Logger
}

func NewJournalHandler(logger *slog.Logger, journalService service.JournalService) *JournalHandler {
	return &JournalHandler{
		journalService: journalService,
		logger:         logger,
	}
}

// List returns entries newest-first unless order=asc
func (h *JournalHandler) List(c *gin.Context) {
	var params JournalQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := journal.Filter{
		Range:      params.Range(),
		SourceType: shared.SourceType(params.SourceType),
		Text:       params.Text,
		Order:      journal.SortOrder(params.Order),
		Limit:      params.Limit,
		Offset:     params.Offset,
	}
	if params.AccountID != "" {
		filter.AccountID = uuid.MustParse(params.AccountID)
	}

	entries, err := h.journalService.QueryEntries(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, mapEntryToResponse(entry))
	}
	RespondOK(c, response)
}

func (h *JournalHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	entry, err := h.journalService.GetEntry(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// Reverse posts the mirror image of an entry. The body is optional.
func (h *JournalHandler) Reverse(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req ReversalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	reversal := posting.Reversal{EntryID: id, Reason: req.Reason}
	if req.Date != nil {
		reversal.Date = *req.Date
	}

	entry, err := h.journalService.ReverseEntry(c.Request.Context(), reversal)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

func (h *JournalHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid journal entry ID")
		return uuid.Nil, false
	}
	return id, true
}
