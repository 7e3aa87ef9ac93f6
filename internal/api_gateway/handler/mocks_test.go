package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/storefront-ledger/internal/api_gateway/service"
	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/recurring"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/posting"
	"github.com/storefront-ledger/internal/reconciliation"
	"github.com/storefront-ledger/internal/registry"
	"github.com/storefront-ledger/internal/reporting"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, def registry.AccountSpec) (*account.Account, error) {
	args := m.Called(ctx, def)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, filter account.Filter) ([]*account.Account, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountService) EditAccount(ctx context.Context, id uuid.UUID, patch account.Patch, expectedVersion int) (*account.Account, error) {
	args := m.Called(ctx, id, patch, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAccountService) AccountLines(ctx context.Context, id uuid.UUID, dateRange journal.DateRange) ([]journal.PostedLine, error) {
	args := m.Called(ctx, id, dateRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]journal.PostedLine), args.Error(1)
}

type MockJournalService struct {
	mock.Mock
}

func (m *MockJournalService) QueryEntries(ctx context.Context, filter journal.Filter) ([]*journal.Entry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalService) GetEntry(ctx context.Context, id uuid.UUID) (*journal.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockJournalService) ReverseEntry(ctx context.Context, req posting.Reversal) (*journal.Entry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

type MockPostingService struct {
	mock.Mock
}

func (m *MockPostingService) Post(ctx context.Context, ev event.Event) (*journal.Entry, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockPostingService) Adjust(ctx context.Context, adj event.Adjustment) (*journal.Entry, error) {
	args := m.Called(ctx, adj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockPostingService) Reconcile(ctx context.Context, count reconciliation.Count) (*journal.Entry, bool, error) {
	args := m.Called(ctx, count)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*journal.Entry), args.Bool(1), args.Error(2)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) TrialBalance(ctx context.Context, asOf time.Time) (*reporting.TrialBalance, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.TrialBalance), args.Error(1)
}

func (m *MockReportService) ProfitAndLoss(ctx context.Context, start, end time.Time) (*reporting.ProfitAndLoss, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.ProfitAndLoss), args.Error(1)
}

func (m *MockReportService) BalanceSheet(ctx context.Context, asOf time.Time) (*reporting.BalanceSheet, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.BalanceSheet), args.Error(1)
}

func (m *MockReportService) ArAging(ctx context.Context, asOf time.Time) (*reporting.Aging, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.Aging), args.Error(1)
}

func (m *MockReportService) ApAging(ctx context.Context, asOf time.Time) (*reporting.Aging, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.Aging), args.Error(1)
}

func (m *MockReportService) SalesTax(ctx context.Context, start, end time.Time) (*reporting.SalesTax, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.SalesTax), args.Error(1)
}

func (m *MockReportService) CustomerStatement(ctx context.Context, customerID string, asOf time.Time) (*reporting.CustomerStatement, error) {
	args := m.Called(ctx, customerID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reporting.CustomerStatement), args.Error(1)
}

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) SubmitEvent(ctx context.Context, ev event.Event) (*audit.Record, bool, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*audit.Record), args.Bool(1), args.Error(2)
}

func (m *MockEventService) GetEventStatus(ctx context.Context, sourceType shared.SourceType, sourceID string) (*audit.Record, error) {
	args := m.Called(ctx, sourceType, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Record), args.Error(1)
}

func (m *MockEventService) ListEvents(ctx context.Context, status shared.PostingStatus, page, perPage int) ([]*audit.Record, int64, error) {
	args := m.Called(ctx, status, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*audit.Record), args.Get(1).(int64), args.Error(2)
}

type MockRecurringService struct {
	mock.Mock
}

func (m *MockRecurringService) CreateRecurringExpense(ctx context.Context, def service.RecurringExpenseSpec) (*recurring.Expense, error) {
	args := m.Called(ctx, def)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recurring.Expense), args.Error(1)
}

func (m *MockRecurringService) ListRecurringExpenses(ctx context.Context) ([]*recurring.Expense, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recurring.Expense), args.Error(1)
}

func (m *MockRecurringService) SetRecurringExpenseStatus(ctx context.Context, id uuid.UUID, status recurring.Status) (*recurring.Expense, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recurring.Expense), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// performRequest sends body as JSON unless it is already a string
func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(rr *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return body
}

func testEntry(sourceType shared.SourceType, sourceID string) *journal.Entry {
	return &journal.Entry{
		ID:          uuid.New(),
		Sequence:    7,
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "Sale #1001",
		Source:      journal.Source{Type: sourceType, ID: sourceID},
		Lines: []journal.Line{
			{AccountID: uuid.New(), AccountName: "Cash", Type: journal.Debit, Amount: 11000},
			{AccountID: uuid.New(), AccountName: "Sales Revenue", Type: journal.Credit, Amount: 10000},
			{AccountID: uuid.New(), AccountName: "Sales Tax Payable", Type: journal.Credit, Amount: 1000},
		},
		CreatedAt: time.Now().UTC(),
	}
}
