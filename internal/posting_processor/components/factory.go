package components

import (
	"log/slog"

	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/posting_processor/service"
)

// CreateProcessingService builds the consumer's posting pipeline: decode, post,
// and record permanent rejections on the event's posting record. A positive pool
// size bounds concurrent postings; otherwise events post on the consumer goroutine,
// as they also do when the pool cannot be created.
func CreateProcessingService(
	poster service.Poster,
	auditRepo audit.Repository,
	logger *slog.Logger,
	poolCfg config.WorkerPoolConfig,
) service.ProcessingService {
	base := service.NewProcessingService(poster, NewFailureRecorder(auditRepo, logger), logger)
	if poolCfg.Size <= 0 {
		logger.Info("Worker pool disabled, posting inline")
		return base
	}

	pooled, err := service.NewWorkerPoolProcessingService(
		base,
		service.WorkerPoolConfig{Size: poolCfg.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool, posting inline", "error", err)
		return base
	}

	logger.Info("Posting through worker pool", "pool_size", poolCfg.Size)
	return pooled
}
