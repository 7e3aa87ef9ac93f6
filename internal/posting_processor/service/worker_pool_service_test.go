package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ledger/internal/domain/event"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessEvent(ctx context.Context, env *event.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func TestWorkerPoolProcessingService_ProcessEvent(t *testing.T) {
	base := new(MockProcessingService)
	svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 2}, discardLogger())
	require.NoError(t, err)
	defer svc.Shutdown(time.Second)

	assert.Equal(t, 2, svc.Capacity())

	env := saleEnvelope(t)
	base.On("ProcessEvent", mock.Anything, mock.MatchedBy(func(e *event.Envelope) bool {
		return e.SourceID == env.SourceID
	})).Return(nil).Once()
	require.NoError(t, svc.ProcessEvent(context.Background(), env))

	processingErr := errors.New("processing error")
	base.On("ProcessEvent", mock.Anything, mock.Anything).Return(processingErr).Once()
	assert.ErrorIs(t, svc.ProcessEvent(context.Background(), env), processingErr)

	base.AssertExpectations(t)
}

// blockingService holds every call until release is closed
type blockingService struct {
	active, peak atomic.Int32
	release      chan struct{}
}

func (b *blockingService) ProcessEvent(context.Context, *event.Envelope) error {
	n := b.active.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-b.release
	b.active.Add(-1)
	return nil
}

func TestWorkerPoolProcessingService_BoundsConcurrency(t *testing.T) {
	base := &blockingService{release: make(chan struct{})}
	svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 2}, discardLogger())
	require.NoError(t, err)
	defer svc.Shutdown(time.Second)

	env := saleEnvelope(t)
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.ProcessEvent(context.Background(), env)
		}()
	}

	assert.Eventually(t, func() bool { return base.active.Load() == 2 }, time.Second, time.Millisecond)
	close(base.release)
	wg.Wait()
	assert.Equal(t, int32(2), base.peak.Load())
}

func TestWorkerPoolProcessingService_CallerGivesUp(t *testing.T) {
	base := &blockingService{release: make(chan struct{})}
	svc, err := NewWorkerPoolProcessingService(base, WorkerPoolConfig{Size: 1}, discardLogger())
	require.NoError(t, err)
	defer svc.Shutdown(time.Second)
	defer close(base.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.ProcessEvent(ctx, saleEnvelope(t)), context.DeadlineExceeded)
}

type panickingService struct{}

func (panickingService) ProcessEvent(context.Context, *event.Envelope) error {
	panic("nil account")
}

func TestWorkerPoolProcessingService_PanicBecomesError(t *testing.T) {
	svc, err := NewWorkerPoolProcessingService(panickingService{}, WorkerPoolConfig{Size: 1}, discardLogger())
	require.NoError(t, err)
	defer svc.Shutdown(time.Second)

	err = svc.ProcessEvent(context.Background(), saleEnvelope(t))
	assert.ErrorIs(t, err, ErrPostingPanicked)
	assert.ErrorContains(t, err, "nil account")

	// The worker survives and keeps serving
	assert.ErrorIs(t, svc.ProcessEvent(context.Background(), saleEnvelope(t)), ErrPostingPanicked)
}
