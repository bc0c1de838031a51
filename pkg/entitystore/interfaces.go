package entitystore

import "context"

// Database is the storage gateway: it executes caller-assembled parameterized
// statements and performs no interpretation of its own. Statements use `?`
// placeholders; implementations rebind them for their backend.
//
// Implementations map backend-specific failures onto this package's
// sentinels: a missing row becomes ErrNotFound, a uniqueness violation
// becomes ErrConflict, anything else wraps ErrIO.
type Database interface {
	// Select runs a query and scans all rows into dest (a pointer to a
	// slice of structs with db tags).
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Get runs a query expected to return one row and scans it into dest.
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Insert executes an insert statement carrying a RETURNING clause for
	// the new row identifier and returns that identifier.
	Insert(ctx context.Context, query string, args ...interface{}) (int64, error)

	// Update executes an update statement and returns the affected row count.
	Update(ctx context.Context, query string, args ...interface{}) (int64, error)

	// Delete executes a delete statement and returns the affected row count.
	Delete(ctx context.Context, query string, args ...interface{}) (int64, error)
}
