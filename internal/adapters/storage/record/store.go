package record

import (
	"context"

	domain "fisiocore/internal/domain/record"
)

// Store defines the document-store interface for governed record collections.
type Store interface {
	// ListByUser returns all records in a collection linked to the user.
	// PRE: collection and userID are non-empty
	// POST: Returns matching records (possibly none)
	ListByUser(ctx context.Context, collection, userID string) ([]domain.Record, error)

	// Save persists a record (insert or update). Used by seeding and tests.
	// PRE: record has been validated
	// POST: Record is persisted
	Save(ctx context.Context, r domain.Record) error

	// CommitBatch applies all staged mutations atomically: either every
	// mutation lands or none does. Batches are scoped to a single user.
	// PRE: mutations were staged from current record state
	// POST: All mutations committed, or the transaction rolled back
	CommitBatch(ctx context.Context, mutations []domain.Mutation) error

	// CountByCollection returns the record count for one collection.
	// PRE: collection is non-empty
	// POST: Returns the total number of records in the collection
	CountByCollection(ctx context.Context, collection string) (int, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
