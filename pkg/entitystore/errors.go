package entitystore

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates the requested identifier has no base row.
	ErrNotFound = errors.New("not found")

	// ErrIncompleteRecord indicates a base row exists but the required
	// extension row is missing. This signals store corruption and is always
	// surfaced, never silently recovered.
	ErrIncompleteRecord = errors.New("incomplete record: extension row missing")

	// ErrConflict indicates a uniqueness constraint violation reported by
	// the storage gateway.
	ErrConflict = errors.New("uniqueness conflict")

	// ErrDuplicateRelationship indicates the relationship triple already
	// exists; duplicate creation attempts are rejected, not overwritten.
	ErrDuplicateRelationship = errors.New("duplicate relationship")

	// ErrVetoed indicates a registered event handler denied the operation.
	ErrVetoed = errors.New("operation vetoed by event handler")

	// ErrIO indicates the underlying statement execution failed. This
	// package never retries; retry policy belongs to the gateway or caller.
	ErrIO = errors.New("storage i/o failure")

	// ErrInvalidArgument indicates input rejected before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")
)

// EntityError represents an error related to entity operations
type EntityError struct {
	GUID int64
	Op   string
	Err  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("entity operation %s failed for guid %d: %v", e.Op, e.GUID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// RelationshipError represents an error related to relationship operations
type RelationshipError struct {
	GUIDOne      int64
	Relationship string
	GUIDTwo      int64
	Op           string
	Err          error
}

func (e *RelationshipError) Error() string {
	return fmt.Sprintf("relationship operation %s failed for (%d, %q, %d): %v",
		e.Op, e.GUIDOne, e.Relationship, e.GUIDTwo, e.Err)
}

func (e *RelationshipError) Unwrap() error {
	return e.Err
}

// ExtenderError represents an error related to annotation or metadata
// operations.
type ExtenderError struct {
	ID   int64
	Kind string
	Op   string
	Err  error
}

func (e *ExtenderError) Error() string {
	return fmt.Sprintf("%s operation %s failed for id %d: %v", e.Kind, e.Op, e.ID, e.Err)
}

func (e *ExtenderError) Unwrap() error {
	return e.Err
}
