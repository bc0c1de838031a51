package entitystore

import "github.com/tendant/entity-store/pkg/entitystore/query"

// Request/option DTOs

// CreateEntityRequest contains parameters for creating a new entity. The
// entity type is implied by the concrete Attrs value.
type CreateEntityRequest struct {
	Subtype       string
	OwnerGUID     int64
	ContainerGUID int64
	AccessID      int
	Attrs         Extension
}

// RemoveRelationshipsRequest filters a bulk relationship delete for one
// subject GUID. Zero values mean "no constraint".
type RemoveRelationshipsRequest struct {
	// Relationship restricts the delete to one relationship type name.
	Relationship string

	// Inverse deletes edges where the subject sits in guid_two instead of
	// guid_one.
	Inverse bool

	// EntityType restricts the delete to edges whose counterpart entity has
	// this type; the delete then joins against the entities table.
	EntityType EntityType
}

// RelationshipQuery extends the generic entity-search options with a
// relationship constraint. Leaving both Relationship and CounterpartGUID
// zero makes the relationship filter a no-op.
type RelationshipQuery struct {
	query.Options

	Relationship    string
	CounterpartGUID int64
	Inverse         bool

	// JoinOn selects which entity column the relationship counterpart joins
	// against: "guid" (default), "owner_guid" or "container_guid".
	JoinOn string
}

// AddRiverItemRequest contains parameters for posting an activity-stream
// item.
type AddRiverItemRequest struct {
	ActionType   string
	SubjectGUID  int64
	ObjectGUID   int64
	AnnotationID int64
}
