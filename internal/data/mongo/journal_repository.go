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

	"github.com/fintrack-trend-cube/internal/domain/journal"
)

const (
	// JournalCollectionName is the name of the cube journal collection in MongoDB
	JournalCollectionName = "cube_journal"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) journal.Repository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new journal entry after checking for duplicates.
// Returns ErrDuplicateEntry if an entry with the same entry ID exists.
func (r *JournalRepository) Create(ctx context.Context, entry *journal.Entry) error {
	collection := r.db.Collection(JournalCollectionName)

	// Check if entry already exists
	existingEntry, err := r.GetByEntryID(ctx, entry.EntryID)
	if err != nil && !errors.Is(err, journal.ErrEntryNotFound{}) {
		r.logger.Error("Failed to check for existing journal entry",
			"entry_id", entry.EntryID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing journal entry: %w", err)
	}

	if existingEntry != nil {
		return journal.ErrDuplicateEntry{EntryID: entry.EntryID}
	}

	// Insert the entry
	_, err = collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to create journal entry",
			"entry_id", entry.EntryID.String(),
			"error", err)
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	return nil
}

// GetByEntryID retrieves a journal entry by its entry ID.
// Returns ErrEntryNotFound if no entry exists for the given ID.
func (r *JournalRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"entry_id": entryID}
	var entry journal.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, journal.ErrEntryNotFound{EntryID: entryID}
		}
		r.logger.Error("Failed to get journal entry",
			"entry_id", entryID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	return &entry, nil
}

// GetByTenantID retrieves paginated journal entries for a tenant.
// Results are sorted by application time in descending order (newest first).
func (r *JournalRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"tenant_id": tenantID}
	opts := options.Find().
		SetSort(bson.M{"applied_at": -1}). // Sort by applied_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries",
			"tenant_id", tenantID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"tenant_id", tenantID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// CountByTenantID counts the total number of journal entries for a tenant
func (r *JournalRepository) CountByTenantID(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{"tenant_id": tenantID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count journal entries",
			"tenant_id", tenantID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves paginated journal entries applied within the time window.
// Results are sorted by application time in descending order for recent-first access.
func (r *JournalRepository) GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	filter := bson.M{
		"applied_at": bson.M{
			"$gte": startTime,
			"$lte": endTime,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"applied_at": -1}). // Sort by applied_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get journal entries by time range",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to get journal entries by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*journal.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"start_time", startTime,
			"end_time", endTime,
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}
