package sessions

import "context"

// Repo is the credential store. It holds no business logic; the Manager
// owns every create, update and delete.
type Repo interface {
	// Upsert atomically creates the record for record.UserID or overwrites
	// the existing one, returning the stored record
	Upsert(ctx context.Context, record *Record) (*Record, error)

	// Get returns the record for userID or errors.ErrNotFound
	Get(ctx context.Context, userID string) (*Record, error)

	// Delete removes the record for userID or returns errors.ErrNotFound
	Delete(ctx context.Context, userID string) error
}
