package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) GetBySource(ctx context.Context, sourceType shared.SourceType, sourceID string) (*audit.Record, error) {
	args := m.Called(ctx, sourceType, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Record), args.Error(1)
}

func (m *MockAuditRepository) MarkCompleted(ctx context.Context, record *audit.Record, entryID uuid.UUID) error {
	args := m.Called(ctx, record, entryID)
	return args.Error(0)
}

func (m *MockAuditRepository) MarkFailed(ctx context.Context, sourceType shared.SourceType, sourceID string, reason string) error {
	args := m.Called(ctx, sourceType, sourceID, reason)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByStatus(ctx context.Context, status shared.PostingStatus, limit, offset int) ([]*audit.Record, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

func (m *MockAuditRepository) CountByStatus(ctx context.Context, status shared.PostingStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, env *event.Envelope) error {
	args := m.Called(ctx, key, env)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestEventService_SubmitEvent(t *testing.T) {
	ctx := logger.WithCorrelationID(context.Background(), "corr-7")
	payment := event.Payment{PaymentID: "pay-1", InvoiceID: "inv-9", Amount: 4000}
	notFound := audit.ErrRecordNotFound{SourceType: shared.SourceTypePayment, SourceID: "pay-1"}

	t.Run("NewEvent", func(t *testing.T) {
		repo, producer := new(MockAuditRepository), new(MockEventPublisher)
		svc := NewEventService(slog.Default(), repo, producer)

		repo.On("GetBySource", mock.Anything, shared.SourceTypePayment, "pay-1").Return(nil, notFound).Once()
		producer.On("Publish", mock.Anything, "inv-9", mock.MatchedBy(func(env *event.Envelope) bool {
			return env.Type == shared.SourceTypePayment && env.SourceID == "pay-1" && env.CorrelationID == "corr-7"
		})).Return(nil).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(r *audit.Record) bool {
			return r.Status == shared.PostingStatusPending && r.Amount == 4000 && r.CorrelationID == "corr-7"
		})).Return(nil).Once()

		record, accepted, err := svc.SubmitEvent(ctx, payment)
		require.NoError(t, err)
		assert.True(t, accepted)
		assert.Equal(t, "pay-1", record.SourceID)
		repo.AssertExpectations(t)
		producer.AssertExpectations(t)
	})

	t.Run("AlreadySubmitted", func(t *testing.T) {
		repo, producer := new(MockAuditRepository), new(MockEventPublisher)
		svc := NewEventService(slog.Default(), repo, producer)
		existing := &audit.Record{SourceType: shared.SourceTypePayment, SourceID: "pay-1", Status: shared.PostingStatusCompleted}

		repo.On("GetBySource", mock.Anything, shared.SourceTypePayment, "pay-1").Return(existing, nil).Once()

		record, accepted, err := svc.SubmitEvent(ctx, payment)
		require.NoError(t, err)
		assert.False(t, accepted)
		assert.Same(t, existing, record)
		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PublishFailureLeavesNoRecord", func(t *testing.T) {
		repo, producer := new(MockAuditRepository), new(MockEventPublisher)
		svc := NewEventService(slog.Default(), repo, producer)
		brokerErr := errors.New("broker unavailable")

		repo.On("GetBySource", mock.Anything, shared.SourceTypePayment, "pay-1").Return(nil, notFound).Once()
		producer.On("Publish", mock.Anything, "inv-9", mock.Anything).Return(brokerErr).Once()

		_, _, err := svc.SubmitEvent(ctx, payment)
		assert.ErrorIs(t, err, brokerErr)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("ProcessorRecordedFirst", func(t *testing.T) {
		repo, producer := new(MockAuditRepository), new(MockEventPublisher)
		svc := NewEventService(slog.Default(), repo, producer)
		completed := &audit.Record{SourceType: shared.SourceTypePayment, SourceID: "pay-1", Status: shared.PostingStatusCompleted}

		repo.On("GetBySource", mock.Anything, shared.SourceTypePayment, "pay-1").Return(nil, notFound).Once()
		producer.On("Publish", mock.Anything, "inv-9", mock.Anything).Return(nil).Once()
		repo.On("Create", mock.Anything, mock.Anything).
			Return(audit.ErrDuplicateRecord{SourceType: shared.SourceTypePayment, SourceID: "pay-1"}).Once()
		repo.On("GetBySource", mock.Anything, shared.SourceTypePayment, "pay-1").Return(completed, nil).Once()

		record, accepted, err := svc.SubmitEvent(ctx, payment)
		require.NoError(t, err)
		assert.True(t, accepted)
		assert.Equal(t, shared.PostingStatusCompleted, record.Status)
	})

	t.Run("MissingSourceID", func(t *testing.T) {
		svc := NewEventService(slog.Default(), new(MockAuditRepository), new(MockEventPublisher))
		_, _, err := svc.SubmitEvent(ctx, event.Expense{Amount: 100})
		assert.ErrorIs(t, err, shared.ValidationError{})
	})
}

func TestEventService_GetEventStatus(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewEventService(slog.Default(), repo, new(MockEventPublisher))

	repo.On("GetBySource", mock.Anything, shared.SourceTypeSale, "missing").
		Return(nil, audit.ErrRecordNotFound{SourceType: shared.SourceTypeSale, SourceID: "missing"}).Once()

	_, err := svc.GetEventStatus(context.Background(), shared.SourceTypeSale, "missing")
	assert.ErrorIs(t, err, shared.NotFoundError{Resource: "posting_record"})
}

func TestEventService_ListEvents(t *testing.T) {
	repo := new(MockAuditRepository)
	svc := NewEventService(slog.Default(), repo, new(MockEventPublisher))
	failed := []*audit.Record{{SourceType: shared.SourceTypeSale, SourceID: "s-9", Status: shared.PostingStatusFailed}}

	repo.On("ListByStatus", mock.Anything, shared.PostingStatusFailed, 20, 20).Return(failed, nil).Once()
	repo.On("CountByStatus", mock.Anything, shared.PostingStatusFailed).Return(int64(21), nil).Once()

	records, total, err := svc.ListEvents(context.Background(), shared.PostingStatusFailed, 2, 20)
	require.NoError(t, err)
	assert.Equal(t, failed, records)
	assert.Equal(t, int64(21), total)
}
