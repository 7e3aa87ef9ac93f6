package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/shared"
)

// EventHandler accepts business events for asynchronous posting and reports
// their status
type EventHandler struct {
	eventService service.EventService
	logger       *slog.Logger
}

func NewEventHandler(logger *slog.Logger, eventService service.EventService) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// Submit queues an event and answers 202. An event submitted before answers
// 200 with its current record.
func (h *EventHandler) Submit(c *gin.Context) {
	var req SubmitEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ev, err := event.DecodeAs(shared.SourceType(req.Type), req.Payload)
	if err != nil {
		h.logger.Warn("Undecodable event submitted", "type", req.Type, "error", err)
		RespondBadRequest(c, err.Error())
		return
	}

	record, accepted, err := h.eventService.SubmitEvent(c.Request.Context(), ev)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	if accepted {
		RespondAccepted(c, mapRecordToResponse(record))
		return
	}
	RespondOK(c, mapRecordToResponse(record))
}

// GetStatus returns the posting record of one event
func (h *EventHandler) GetStatus(c *gin.Context) {
	sourceType := shared.SourceType(c.Param("sourceType"))
	sourceID := c.Param("sourceId")

	record, err := h.eventService.GetEventStatus(c.Request.Context(), sourceType, sourceID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRecordToResponse(record))
}

// List pages through records by status, failed ones by default
func (h *EventHandler) List(c *gin.Context) {
	var params EventStatusParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	records, total, err := h.eventService.ListEvents(c.Request.Context(), shared.PostingStatus(params.Status), params.Page, params.PerPage)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := make([]EventStatusResponse, 0, len(records))
	for _, record := range records {
		response = append(response, mapRecordToResponse(record))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, params.Page, params.PerPage, int(total))
}
