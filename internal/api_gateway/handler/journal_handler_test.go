package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/posting"
)

func journalRouter(svc *MockJournalService) *gin.Engine {
	h := NewJournalHandler(testLogger(), svc)
	router := setupTestRouter()
	router.GET("/journal-entries", h.List)
	router.GET("/journal-entries/:id", h.GetByID)
	router.POST("/journal-entries/:id/reversal", h.Reverse)
	return router
}

func TestJournalHandler_List(t *testing.T) {
	t.Run("FiltersAreForwarded", func(t *testing.T) {
		svc := new(MockJournalService)
		accountID := uuid.New()
		want := journal.Filter{
			Range:      journal.DateRange{From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
			AccountID:  accountID,
			SourceType: shared.SourceTypeSale,
			Text:       "1001",
			Order:      journal.OldestFirst,
			Limit:      20,
		}
		svc.On("QueryEntries", mock.Anything, want).Return([]*journal.Entry{testEntry(shared.SourceTypeSale, "s-1001")}, nil)

		rr := performRequest(journalRouter(svc), http.MethodGet,
			"/journal-entries?from=2026-03-01&account_id="+accountID.String()+"&source_type=sale&q=1001&order=asc&limit=20", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		data := decodeResponse(rr)["data"].([]any)
		require.Len(t, data, 1)
		entry := data[0].(map[string]any)
		assert.Equal(t, "110.00", entry["total"])
		assert.Equal(t, "2026-03-02", entry["date"])
		assert.Len(t, entry["lines"], 3)
		svc.AssertExpectations(t)
	})

	t.Run("LimitTooLarge", func(t *testing.T) {
		svc := new(MockJournalService)

		rr := performRequest(journalRouter(svc), http.MethodGet, "/journal-entries?limit=501", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "QueryEntries", mock.Anything, mock.Anything)
	})

	t.Run("BadAccountID", func(t *testing.T) {
		svc := new(MockJournalService)

		rr := performRequest(journalRouter(svc), http.MethodGet, "/journal-entries?account_id=cash", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestJournalHandler_GetByID(t *testing.T) {
	svc := new(MockJournalService)
	entry := testEntry(shared.SourceTypeSale, "s-1")
	svc.On("GetEntry", mock.Anything, entry.ID).Return(entry, nil)
	missing := uuid.New()
	svc.On("GetEntry", mock.Anything, missing).Return(nil, shared.NotFoundError{Resource: "journal_entry", ID: missing.String()})

	rr := performRequest(journalRouter(svc), http.MethodGet, "/journal-entries/"+entry.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, entry.ID.String(), decodeResponse(rr)["data"].(map[string]any)["id"])

	rr = performRequest(journalRouter(svc), http.MethodGet, "/journal-entries/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJournalHandler_Reverse(t *testing.T) {
	t.Run("WithoutBody", func(t *testing.T) {
		svc := new(MockJournalService)
		id := uuid.New()
		reversal := testEntry(shared.SourceTypeReversal, id.String())
		svc.On("ReverseEntry", mock.Anything, posting.Reversal{EntryID: id}).Return(reversal, nil)

		rr := performRequest(journalRouter(svc), http.MethodPost, "/journal-entries/"+id.String()+"/reversal", nil)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "reversal", decodeResponse(rr)["data"].(map[string]any)["source_type"])
		svc.AssertExpectations(t)
	})

	t.Run("WithReasonAndDate", func(t *testing.T) {
		svc := new(MockJournalService)
		id := uuid.New()
		want := posting.Reversal{
			EntryID: id,
			Date:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			Reason:  "keyed twice",
		}
		svc.On("ReverseEntry", mock.Anything, want).Return(testEntry(shared.SourceTypeReversal, id.String()), nil)

		rr := performRequest(journalRouter(svc), http.MethodPost, "/journal-entries/"+id.String()+"/reversal",
			`{"date":"2026-03-05T00:00:00Z","reason":"keyed twice"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("AlreadyReversed", func(t *testing.T) {
		svc := new(MockJournalService)
		id := uuid.New()
		existing := uuid.New()
		svc.On("ReverseEntry", mock.Anything, mock.Anything).Return(nil, shared.DuplicatePostingError{
			SourceType: shared.SourceTypeReversal,
			SourceID:   id.String(),
			EntryID:    existing,
		})

		rr := performRequest(journalRouter(svc), http.MethodPost, "/journal-entries/"+id.String()+"/reversal", nil)

		assert.Equal(t, http.StatusConflict, rr.Code)
		body := decodeResponse(rr)
		assert.Equal(t, "DUPLICATE_POSTING", body["error"].(map[string]any)["code"])
		assert.Equal(t, existing.String(), body["data"].(map[string]any)["entry_id"])
	})
}
