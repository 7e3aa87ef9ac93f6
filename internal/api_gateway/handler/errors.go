package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
)

// DuplicatePostingResponse carries the entry an already posted source produced
type DuplicatePostingResponse struct {
	EntryID    string `json:"entry_id"`
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
}

// RespondError maps a domain error to its HTTP status. Unknown errors are logged
// and hidden behind a 500.
func RespondError(c *gin.Context, log *slog.Logger, err error) {
	var (
		validation shared.ValidationError
		invalid    shared.InvalidAccountError
		notFound   shared.NotFoundError
		duplicate  shared.DuplicatePostingError
		conflict   shared.ConflictError
		integrity  shared.IntegrityError
		unbalanced shared.UnbalancedEntryError
	)

	switch {
	case errors.As(err, &validation):
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", validation.Error())
	case errors.As(err, &invalid):
		RespondWithError(c, http.StatusUnprocessableEntity, "INVALID_ACCOUNT", invalid.Error())
	case errors.As(err, &notFound):
		RespondNotFound(c, notFound.Error())
	case errors.As(err, &duplicate):
		RespondWithErrorData(c, http.StatusConflict, "DUPLICATE_POSTING", duplicate.Error(), DuplicatePostingResponse{
			EntryID:    duplicate.EntryID.String(),
			SourceType: string(duplicate.SourceType),
			SourceID:   duplicate.SourceID,
		})
	case errors.As(err, &conflict):
		RespondConflict(c, conflict.Error())
	case errors.As(err, &integrity):
		RespondWithError(c, http.StatusInternalServerError, "INTEGRITY_VIOLATION", integrity.Error())
	case errors.As(err, &unbalanced):
		RespondWithError(c, http.StatusInternalServerError, "UNBALANCED_ENTRY", unbalanced.Error())
	default:
		logger.FromContext(c.Request.Context(), log).Error("Request failed", "path", c.FullPath(), "error", err)
		RespondInternalError(c)
	}
}
