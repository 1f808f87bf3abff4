package objectstore

import (
	"context"
)

// Store is the interface for the external object storage holding user file
// uploads. Both operations are idempotent on absence: listing an empty prefix
// returns no names, and deleting a missing object is not an error, so the
// purge phase of account deletion can always be safely retried.
type Store interface {
	// List returns the names of all objects under the given prefix.
	// PRE: prefix is non-empty
	// POST: Returns object names (possibly none)
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes an object by name. A missing object is not an error.
	// PRE: name is non-empty
	// POST: No object with the given name exists
	Delete(ctx context.Context, name string) error
}

// UserPrefix returns the storage prefix holding a user's objects.
func UserPrefix(userID string) string {
	return "users/" + userID + "/"
}
