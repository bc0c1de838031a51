package entitystore

import "time"

// Scan targets for gateway rows. Timestamps persist as unix seconds.

type entityRow struct {
	GUID          int64  `db:"guid"`
	Type          string `db:"type"`
	Subtype       string `db:"subtype"`
	OwnerGUID     int64  `db:"owner_guid"`
	ContainerGUID int64  `db:"container_guid"`
	AccessID      int    `db:"access_id"`
	TimeCreated   int64  `db:"time_created"`
	TimeUpdated   int64  `db:"time_updated"`
	Enabled       bool   `db:"enabled"`
}

func (r entityRow) toEntity(attrs Extension) *Entity {
	return &Entity{
		GUID:          r.GUID,
		Type:          EntityType(r.Type),
		Subtype:       r.Subtype,
		OwnerGUID:     r.OwnerGUID,
		ContainerGUID: r.ContainerGUID,
		AccessID:      r.AccessID,
		TimeCreated:   time.Unix(r.TimeCreated, 0).UTC(),
		TimeUpdated:   time.Unix(r.TimeUpdated, 0).UTC(),
		Enabled:       r.Enabled,
		Attrs:         attrs,
	}
}

type objectRow struct {
	GUID        int64  `db:"guid"`
	Title       string `db:"title"`
	Description string `db:"description"`
}

type userRow struct {
	GUID     int64  `db:"guid"`
	Name     string `db:"name"`
	Username string `db:"username"`
}

type groupRow struct {
	GUID        int64  `db:"guid"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

type siteRow struct {
	GUID        int64  `db:"guid"`
	Name        string `db:"name"`
	Description string `db:"description"`
	URL         string `db:"url"`
}

type relationshipRow struct {
	ID           int64  `db:"id"`
	GUIDOne      int64  `db:"guid_one"`
	Relationship string `db:"relationship"`
	GUIDTwo      int64  `db:"guid_two"`
	TimeCreated  int64  `db:"time_created"`
}

func (r relationshipRow) toRelationship() *Relationship {
	return &Relationship{
		ID:           r.ID,
		GUIDOne:      r.GUIDOne,
		Relationship: r.Relationship,
		GUIDTwo:      r.GUIDTwo,
		TimeCreated:  time.Unix(r.TimeCreated, 0).UTC(),
	}
}

type extenderRow struct {
	ID          int64  `db:"id"`
	EntityGUID  int64  `db:"entity_guid"`
	Name        string `db:"name"`
	Value       string `db:"value"`
	ValueType   string `db:"value_type"`
	OwnerGUID   int64  `db:"owner_guid"`
	AccessID    int    `db:"access_id"`
	TimeCreated int64  `db:"time_created"`
	Enabled     bool   `db:"enabled"`
}

func (r extenderRow) toExtender() Extender {
	return Extender{
		ID:          r.ID,
		EntityGUID:  r.EntityGUID,
		Name:        r.Name,
		Value:       r.Value,
		ValueType:   ValueType(r.ValueType),
		OwnerGUID:   r.OwnerGUID,
		AccessID:    r.AccessID,
		TimeCreated: time.Unix(r.TimeCreated, 0).UTC(),
		Enabled:     r.Enabled,
	}
}

type riverRow struct {
	ID           int64  `db:"id"`
	ActionType   string `db:"action_type"`
	SubjectGUID  int64  `db:"subject_guid"`
	ObjectGUID   int64  `db:"object_guid"`
	AnnotationID int64  `db:"annotation_id"`
	Posted       int64  `db:"posted"`
}

func (r riverRow) toRiverItem() *RiverItem {
	return &RiverItem{
		ID:           r.ID,
		ActionType:   r.ActionType,
		SubjectGUID:  r.SubjectGUID,
		ObjectGUID:   r.ObjectGUID,
		AnnotationID: r.AnnotationID,
		Posted:       time.Unix(r.Posted, 0).UTC(),
	}
}
