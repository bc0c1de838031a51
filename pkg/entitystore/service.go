package entitystore

import (
	"context"

	"github.com/tendant/entity-store/pkg/entitystore/query"
)

// Service defines the main interface for the entity-store library
type Service interface {
	// Entity operations
	CreateEntity(ctx context.Context, req CreateEntityRequest) (*Entity, error)
	GetEntity(ctx context.Context, guid int64) (*Entity, error)
	UpdateEntity(ctx context.Context, e *Entity) error
	DeleteEntity(ctx context.Context, guid int64) error
	EnableEntity(ctx context.Context, guid int64) error
	DisableEntity(ctx context.Context, guid int64) error

	// Generic entity search
	GetEntities(ctx context.Context, opts query.Options) ([]*Entity, error)
	CountEntities(ctx context.Context, opts query.Options) (int64, error)

	// Relationship operations
	AddRelationship(ctx context.Context, guidOne int64, name string, guidTwo int64) (*Relationship, error)
	GetRelationship(ctx context.Context, id int64) (*Relationship, error)
	CheckRelationship(ctx context.Context, guidOne int64, name string, guidTwo int64) (*Relationship, error)
	GetRelationships(ctx context.Context, guid int64, inverse bool) ([]*Relationship, error)
	RemoveRelationship(ctx context.Context, guidOne int64, name string, guidTwo int64) error
	RemoveRelationships(ctx context.Context, guid int64, req RemoveRelationshipsRequest) (int64, error)

	// Relationship-driven entity queries
	GetEntitiesFromRelationship(ctx context.Context, q RelationshipQuery) ([]*Entity, error)
	GetEntitiesByRelationshipCount(ctx context.Context, q RelationshipQuery) ([]*Entity, error)
	CountEntitiesFromRelationship(ctx context.Context, q RelationshipQuery) (int64, error)

	// Annotation operations
	SaveAnnotation(ctx context.Context, a *Annotation) error
	GetAnnotation(ctx context.Context, id int64) (*Annotation, error)
	GetAnnotations(ctx context.Context, entityGUID int64, name string) ([]*Annotation, error)
	DeleteAnnotation(ctx context.Context, id int64) error
	EnableAnnotation(ctx context.Context, id int64) error
	DisableAnnotation(ctx context.Context, id int64) error

	// Metadata operations
	SaveMetadata(ctx context.Context, m *Metadata) error
	GetMetadata(ctx context.Context, entityGUID int64, name string) (*Metadata, error)
	DeleteMetadata(ctx context.Context, entityGUID int64, name string) error

	// River (activity stream) operations
	AddRiverItem(ctx context.Context, req AddRiverItemRequest) (*RiverItem, error)
	GetRiverItems(ctx context.Context, subjectGUID int64) ([]*RiverItem, error)
}
