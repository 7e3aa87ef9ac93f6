package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/registry"
)

// AccountHandler handles HTTP requests for the chart of accounts
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create adds an account to the chart. Numbers are unique.
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), registry.AccountSpec{
		Number:      req.Number,
		Name:        req.Name,
		Type:        account.Type(req.Type),
		SubType:     account.SubType(req.SubType),
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns the chart in chart order, optionally filtered by type or text
func (h *AccountHandler) List(c *gin.Context) {
	var params AccountListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), account.Filter{
		Type:   account.Type(params.Type),
		Search: params.Search,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, mapAccountToResponse(acc))
	}
	RespondOK(c, response)
}

// GetByID retrieves an account with its current balance
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Update applies a partial edit. Type and number changes are refused once the
// account has journal history.
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.EditAccount(c.Request.Context(), id, account.Patch{
		Name:        req.Name,
		Description: req.Description,
		Number:      req.Number,
		Type:        req.Type,
	}, req.Version)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Delete removes an account that has no history and no protected role
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(c.Request.Context(), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}

// Lines returns the account's journal lines oldest-first
func (h *AccountHandler) Lines(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var params DateRangeParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	lines, err := h.accountService.AccountLines(c.Request.Context(), id, params.Range())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := make([]AccountLineResponse, 0, len(lines))
	for _, line := range lines {
		response = append(response, mapAccountLineToResponse(line))
	}
	RespondOK(c, response)
}

func (h *AccountHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return id, true
}
