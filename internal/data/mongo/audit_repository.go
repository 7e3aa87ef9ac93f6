package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/shared"
)

const (
	// AuditCollectionName is the name of the posting record collection in MongoDB
	AuditCollectionName = "posting_records"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB posting record repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

var _ audit.Repository = (*AuditRepository)(nil)

// EnsureIndexes creates the unique source key and the status listing index
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_type", Value: 1}, {Key: "source_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("source_key"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("status_created_at"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create posting record indexes", "error", err)
		return fmt.Errorf("failed to create posting record indexes: %w", err)
	}
	return nil
}

func sourceFilter(sourceType shared.SourceType, sourceID string) bson.M {
	return bson.M{"source_type": sourceType, "source_id": sourceID}
}

// Create stores a new posting record.
// Returns ErrDuplicateRecord if the source was already submitted.
func (r *AuditRepository) Create(ctx context.Context, record *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return audit.ErrDuplicateRecord{SourceType: record.SourceType, SourceID: record.SourceID}
		}
		r.logger.Error("Failed to create posting record",
			"source_type", string(record.SourceType),
			"source_id", record.SourceID,
			"error", err)
		return fmt.Errorf("failed to create posting record: %w", err)
	}

	return nil
}

// GetBySource returns ErrRecordNotFound if the source was never submitted
func (r *AuditRepository) GetBySource(ctx context.Context, sourceType shared.SourceType, sourceID string) (*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	var record audit.Record
	err := collection.FindOne(ctx, sourceFilter(sourceType, sourceID)).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrRecordNotFound{SourceType: sourceType, SourceID: sourceID}
		}
		r.logger.Error("Failed to get posting record",
			"source_type", string(sourceType),
			"source_id", sourceID,
			"error", err)
		return nil, fmt.Errorf("failed to get posting record: %w", err)
	}

	return &record, nil
}

// MarkCompleted records the entry an event was posted as. The record is inserted
// when it does not exist yet, which is the case for synchronous postings.
func (r *AuditRepository) MarkCompleted(ctx context.Context, record *audit.Record, entryID uuid.UUID) error {
	collection := r.db.Collection(AuditCollectionName)

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"status":       shared.PostingStatusCompleted,
			"entry_id":     entryID,
			"processed_at": now,
		},
		"$unset": bson.M{"failure_reason": ""},
		"$setOnInsert": bson.M{
			"amount":         record.Amount,
			"correlation_id": record.CorrelationID,
			"created_at":     record.CreatedAt,
		},
	}

	_, err := collection.UpdateOne(ctx, sourceFilter(record.SourceType, record.SourceID), update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to mark posting record completed",
			"source_type", string(record.SourceType),
			"source_id", record.SourceID,
			"error", err)
		return fmt.Errorf("failed to mark posting record completed: %w", err)
	}

	record.Status = shared.PostingStatusCompleted
	record.EntryID = &entryID
	record.FailureReason = ""
	record.ProcessedAt = &now
	return nil
}

// MarkFailed stores the failure reason of a submitted event.
// Returns ErrRecordNotFound if the record doesn't exist.
func (r *AuditRepository) MarkFailed(ctx context.Context, sourceType shared.SourceType, sourceID string, reason string) error {
	collection := r.db.Collection(AuditCollectionName)

	update := bson.M{
		"$set": bson.M{
			"status":         shared.PostingStatusFailed,
			"failure_reason": reason,
			"processed_at":   time.Now().UTC(),
		},
	}

	result, err := collection.UpdateOne(ctx, sourceFilter(sourceType, sourceID), update)
	if err != nil {
		r.logger.Error("Failed to mark posting record failed",
			"source_type", string(sourceType),
			"source_id", sourceID,
			"error", err)
		return fmt.Errorf("failed to mark posting record failed: %w", err)
	}

	if result.MatchedCount == 0 {
		return audit.ErrRecordNotFound{SourceType: sourceType, SourceID: sourceID}
	}

	return nil
}

// ListByStatus retrieves paginated records, newest first
func (r *AuditRepository) ListByStatus(ctx context.Context, status shared.PostingStatus, limit, offset int) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		r.logger.Error("Failed to list posting records", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list posting records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode posting records", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to decode posting records: %w", err)
	}

	return records, nil
}

// CountByStatus counts the records in a status
func (r *AuditRepository) CountByStatus(ctx context.Context, status shared.PostingStatus) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"status": status})
	if err != nil {
		r.logger.Error("Failed to count posting records", "status", string(status), "error", err)
		return 0, fmt.Errorf("failed to count posting records: %w", err)
	}

	return count, nil
}
