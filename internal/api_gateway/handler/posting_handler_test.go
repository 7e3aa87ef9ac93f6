package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/reconciliation"
)

func postingRouter(svc *MockPostingService) *gin.Engine {
	h := NewPostingHandler(testLogger(), svc)
	router := setupTestRouter()
	postings := router.Group("/postings")
	postings.POST("/sales", h.Sale)
	postings.POST("/payments", h.Payment)
	postings.POST("/supplier-invoices", h.SupplierInvoice)
	postings.POST("/supplier-payments", h.SupplierPayment)
	postings.POST("/expenses", h.Expense)
	postings.POST("/adjustments", h.Adjustment)
	postings.POST("/refunds", h.Refund)
	postings.POST("/reconciliations", h.Reconcile)
	return router
}

func TestPostingHandler_Sale(t *testing.T) {
	t.Run("CashSale", func(t *testing.T) {
		svc := new(MockPostingService)
		want := event.Sale{
			SaleID:   "s-1001",
			Number:   "1001",
			Date:     time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
			Subtotal: 10000,
			Tax:      1000,
		}
		svc.On("Post", mock.Anything, want).Return(testEntry(shared.SourceTypeSale, "s-1001"), nil)

		rr := performRequest(postingRouter(svc), http.MethodPost, "/postings/sales",
			`{"sale_id":"s-1001","number":"1001","date":"2026-03-02T14:30:00Z","subtotal":"100.00","tax":"10.00"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
		data := decodeResponse(rr)["data"].(map[string]any)
		assert.Equal(t, "s-1001", data["source_id"])
		assert.Equal(t, "110.00", data["total"])
		svc.AssertExpectations(t)
	})

	t.Run("MalformedAmount", func(t *testing.T) {
		svc := new(MockPostingService)

		rr := performRequest(postingRouter(svc), http.MethodPost, "/postings/sales",
			`{"sale_id":"s-1002","subtotal":"ten dollars"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "Post", mock.Anything, mock.Anything)
	})
}

func TestPostingHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "DuplicatePayment",
			path:       "/postings/payments",
			body:       `{"payment_id":"p-1","invoice_id":"inv-1","amount":"40.00"}`,
			err:        shared.DuplicatePostingError{SourceType: shared.SourceTypePayment, SourceID: "p-1", EntryID: uuid.New()},
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_POSTING",
		},
		{
			name:       "Overpayment",
			path:       "/postings/payments",
			body:       `{"payment_id":"p-2","invoice_id":"inv-1","amount":"999.00"}`,
			err:        shared.ValidationError{Field: "amount", Reason: "exceeds the amount due"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "WrongExpenseAccount",
			path:       "/postings/expenses",
			body:       `{"expense_id":"e-1","description":"Light bulbs","amount":"12.00"}`,
			err:        shared.InvalidAccountError{Role: "expense account", Reason: "must be an expense account"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INVALID_ACCOUNT",
		},
		{
			name:       "UnknownSupplierInvoice",
			path:       "/postings/supplier-payments",
			body:       `{"payment_id":"sp-1","invoice_id":"bill-9","amount":"50.00"}`,
			err:        shared.NotFoundError{Resource: "invoice", ID: "bill-9"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "UnbalancedRule",
			path:       "/postings/refunds",
			body:       `{"refund_id":"r-1","sale_id":"s-1","amount":"11.00"}`,
			err:        shared.UnbalancedEntryError{Debits: 1100, Credits: 1000},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "UNBALANCED_ENTRY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPostingService)
			svc.On("Post", mock.Anything, mock.Anything).Return(nil, tt.err)

			rr := performRequest(postingRouter(svc), http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(rr)["error"].(map[string]any)["code"])
		})
	}
}

func TestPostingHandler_AdjustmentAndInvoice(t *testing.T) {
	svc := new(MockPostingService)
	svc.On("Post", mock.Anything, mock.AnythingOfType("event.Adjustment")).
		Return(testEntry(shared.SourceTypeAdjustment, "adj-1"), nil).Once()
	svc.On("Post", mock.Anything, mock.MatchedBy(func(inv event.SupplierInvoice) bool {
		return inv.InvoiceID == "bill-1" && inv.Principal() == 25000
	})).Return(testEntry(shared.SourceTypeSupplierInvoice, "bill-1"), nil).Once()

	rr := performRequest(postingRouter(svc), http.MethodPost, "/postings/adjustments",
		`{"adjustment_id":"adj-1","account_id":"`+uuid.NewString()+`","offset_account_id":"`+uuid.NewString()+`","amount":"-5.00","description":"Shrinkage"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = performRequest(postingRouter(svc), http.MethodPost, "/postings/supplier-invoices",
		`{"invoice_id":"bill-1","invoice_number":"B-1","supplier_name":"Acme","lines":[{"account_id":"`+uuid.NewString()+`","amount":"200.00"},{"account_id":"`+uuid.NewString()+`","amount":"50.00"}]}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	svc.AssertExpectations(t)
}

func TestPostingHandler_Reconcile(t *testing.T) {
	inventory := uuid.New()
	adjustments := uuid.New()
	body := `{"account_id":"` + inventory.String() + `","offset_account_id":"` + adjustments.String() +
		`","counted":"4850.00","description":"March stock count"}`
	want := reconciliation.Count{
		AccountID:       inventory,
		OffsetAccountID: adjustments,
		Counted:         money.Amount(485000),
		Description:     "March stock count",
	}

	t.Run("Adjusted", func(t *testing.T) {
		svc := new(MockPostingService)
		svc.On("Reconcile", mock.Anything, want).Return(testEntry(shared.SourceTypeAdjustment, "count-1"), false, nil)

		rr := performRequest(postingRouter(svc), http.MethodPost, "/postings/reconciliations", body)

		assert.Equal(t, http.StatusCreated, rr.Code)
		data := decodeResponse(rr)["data"].(map[string]any)
		assert.Equal(t, false, data["matched"])
		assert.NotNil(t, data["entry"])
		svc.AssertExpectations(t)
	})

	t.Run("AlreadyMatches", func(t *testing.T) {
		svc := new(MockPostingService)
		svc.On("Reconcile", mock.Anything, want).Return(nil, true, nil)

		rr := performRequest(postingRouter(svc), http.MethodPost, "/postings/reconciliations", body)

		assert.Equal(t, http.StatusOK, rr.Code)
		data := decodeResponse(rr)["data"].(map[string]any)
		assert.Equal(t, true, data["matched"])
		assert.Nil(t, data["entry"])
	})

	t.Run("MissingOffset", func(t *testing.T) {
		svc := new(MockPostingService)

		rr := performRequest(postingRouter(svc), http.MethodPost, "/postings/reconciliations",
			`{"account_id":"`+inventory.String()+`","counted":"10.00","description":"Count"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
	})
}
