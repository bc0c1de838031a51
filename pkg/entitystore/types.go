package entitystore

import (
	"time"
)

// EntityType is the discriminant for the per-type extension table an entity
// row is paired with.
type EntityType string

// Entity type constants (typed).
const (
	TypeObject EntityType = "object"
	TypeUser   EntityType = "user"
	TypeGroup  EntityType = "group"
	TypeSite   EntityType = "site"
)

// Access level constants. Stored on entities and extenders; interpretation
// belongs to the (excluded) access layer, this package only persists them.
const (
	AccessPrivate  = 0
	AccessLoggedIn = 1
	AccessPublic   = 2
)

// RelationshipNameLimit is the maximum length of a relationship type name.
const RelationshipNameLimit = 50

// Extension holds the attributes stored in an entity's type-specific
// extension table. Exactly one implementation exists per EntityType.
type Extension interface {
	EntityType() EntityType
}

// ObjectAttrs are the extension attributes of an object entity.
type ObjectAttrs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (*ObjectAttrs) EntityType() EntityType { return TypeObject }

// UserAttrs are the extension attributes of a user entity.
type UserAttrs struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (*UserAttrs) EntityType() EntityType { return TypeUser }

// GroupAttrs are the extension attributes of a group entity.
type GroupAttrs struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (*GroupAttrs) EntityType() EntityType { return TypeGroup }

// SiteAttrs are the extension attributes of a site entity.
type SiteAttrs struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func (*SiteAttrs) EntityType() EntityType { return TypeSite }

// Entity is one stored content item: the base row plus the extension row
// matching its type. A base row without its extension row is corruption and
// never loads into an Entity.
type Entity struct {
	GUID          int64      `json:"guid"`
	Type          EntityType `json:"type"`
	Subtype       string     `json:"subtype,omitempty"`
	OwnerGUID     int64      `json:"owner_guid"`
	ContainerGUID int64      `json:"container_guid"`
	AccessID      int        `json:"access_id"`
	TimeCreated   time.Time  `json:"time_created"`
	TimeUpdated   time.Time  `json:"time_updated"`
	Enabled       bool       `json:"enabled"`
	Attrs         Extension  `json:"attrs"`
}

// Relationship is a directed typed edge between two entity GUIDs. The triple
// (GUIDOne, Relationship, GUIDTwo) is unique in the store.
type Relationship struct {
	ID           int64     `json:"id"`
	GUIDOne      int64     `json:"guid_one"`
	Relationship string    `json:"relationship"`
	GUIDTwo      int64     `json:"guid_two"`
	TimeCreated  time.Time `json:"time_created"`
}

// ValueType tags how an extender value should be interpreted.
type ValueType string

// Extender value type constants.
const (
	ValueTypeText    ValueType = "text"
	ValueTypeInteger ValueType = "integer"
)

// Extender is the shared row shape of annotations and metadata. Annotation
// and Metadata compose it rather than subclassing.
type Extender struct {
	ID          int64     `json:"id"`
	EntityGUID  int64     `json:"entity_guid"`
	Name        string    `json:"name"`
	Value       string    `json:"value"`
	ValueType   ValueType `json:"value_type"`
	OwnerGUID   int64     `json:"owner_guid"`
	AccessID    int       `json:"access_id"`
	TimeCreated time.Time `json:"time_created"`
	Enabled     bool      `json:"enabled"`
}

// Annotation is an append-only extender: multiple annotations of the same
// name may exist per entity.
type Annotation struct {
	Extender
}

// Metadata is a singular-by-name extender: saving replaces any existing value
// under the same name for the entity.
type Metadata struct {
	Extender
}

// RiverItem is an activity-stream record. Items referencing an annotation are
// removed in cascade when the annotation is deleted.
type RiverItem struct {
	ID           int64     `json:"id"`
	ActionType   string    `json:"action_type"`
	SubjectGUID  int64     `json:"subject_guid"`
	ObjectGUID   int64     `json:"object_guid,omitempty"`
	AnnotationID int64     `json:"annotation_id,omitempty"`
	Posted       time.Time `json:"posted"`
}
