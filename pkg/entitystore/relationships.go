package entitystore

import (
	"context"
	"errors"

	"github.com/tendant/entity-store/pkg/entitystore/query"
)

// Relationship operations. The (guid_one, relationship, guid_two) uniqueness
// is enforced by the schema; the gateway's conflict signal is the duplicate
// check, so no separate read races the insert.

func (s *service) AddRelationship(ctx context.Context, guidOne int64, name string, guidTwo int64) (*Relationship, error) {
	if err := ValidateRelationshipName(name); err != nil {
		return nil, err
	}

	t := now()
	id, err := s.db.Insert(ctx, `
		INSERT INTO entity_relationships (guid_one, relationship, guid_two, time_created)
		VALUES (?, ?, ?, ?) RETURNING id`,
		guidOne, name, guidTwo, t.Unix())
	if err != nil {
		if errors.Is(err, ErrConflict) {
			err = ErrDuplicateRelationship
		}
		return nil, &RelationshipError{GUIDOne: guidOne, Relationship: name, GUIDTwo: guidTwo, Op: "add", Err: err}
	}

	r := &Relationship{ID: id, GUIDOne: guidOne, Relationship: name, GUIDTwo: guidTwo, TimeCreated: t}

	// Two chained cancellable events: the legacy type-scoped one, then the
	// generic relationship event. The row is already committed, so a veto is
	// compensated by deleting it again.
	legacy := s.events.Trigger(ActionCreate, name, r)
	generic := s.events.Trigger(ActionCreate, SubjectRelationship, r)
	if !legacy || !generic {
		if _, derr := s.db.Delete(ctx, `DELETE FROM entity_relationships WHERE id = ?`, id); derr != nil {
			s.logger.Error("failed to unwind vetoed relationship", "id", id, "error", derr)
		}
		return nil, &RelationshipError{GUIDOne: guidOne, Relationship: name, GUIDTwo: guidTwo, Op: "add", Err: ErrVetoed}
	}

	return r, nil
}

func (s *service) GetRelationship(ctx context.Context, id int64) (*Relationship, error) {
	var row relationshipRow
	err := s.db.Get(ctx, &row, `
		SELECT id, guid_one, relationship, guid_two, time_created
		FROM entity_relationships WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return row.toRelationship(), nil
}

func (s *service) CheckRelationship(ctx context.Context, guidOne int64, name string, guidTwo int64) (*Relationship, error) {
	var row relationshipRow
	err := s.db.Get(ctx, &row, `
		SELECT id, guid_one, relationship, guid_two, time_created
		FROM entity_relationships
		WHERE guid_one = ? AND relationship = ? AND guid_two = ? LIMIT 1`,
		guidOne, name, guidTwo)
	if err != nil {
		return nil, &RelationshipError{GUIDOne: guidOne, Relationship: name, GUIDTwo: guidTwo, Op: "check", Err: err}
	}
	return row.toRelationship(), nil
}

func (s *service) GetRelationships(ctx context.Context, guid int64, inverse bool) ([]*Relationship, error) {
	column := "guid_one"
	if inverse {
		column = "guid_two"
	}

	var rows []relationshipRow
	err := s.db.Select(ctx, &rows, `
		SELECT id, guid_one, relationship, guid_two, time_created
		FROM entity_relationships WHERE `+column+` = ?
		ORDER BY time_created, id`, guid)
	if err != nil {
		return nil, err
	}

	rels := make([]*Relationship, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, row.toRelationship())
	}
	return rels, nil
}

func (s *service) RemoveRelationship(ctx context.Context, guidOne int64, name string, guidTwo int64) error {
	r, err := s.CheckRelationship(ctx, guidOne, name, guidTwo)
	if err != nil {
		return err
	}

	// Same dual events as creation. Nothing is removed unless both allow.
	legacy := s.events.Trigger(ActionDelete, name, r)
	generic := s.events.Trigger(ActionDelete, SubjectRelationship, r)
	if !legacy || !generic {
		return &RelationshipError{GUIDOne: guidOne, Relationship: name, GUIDTwo: guidTwo, Op: "remove", Err: ErrVetoed}
	}

	if _, err := s.db.Delete(ctx, `DELETE FROM entity_relationships WHERE id = ?`, r.ID); err != nil {
		return &RelationshipError{GUIDOne: guidOne, Relationship: name, GUIDTwo: guidTwo, Op: "remove", Err: err}
	}
	return nil
}

func (s *service) RemoveRelationships(ctx context.Context, guid int64, req RemoveRelationshipsRequest) (int64, error) {
	if req.Relationship != "" {
		if err := ValidateRelationshipName(req.Relationship); err != nil {
			return 0, err
		}
	}

	subject, counterpart := "er.guid_one", "er.guid_two"
	if req.Inverse {
		subject, counterpart = "er.guid_two", "er.guid_one"
	}

	inner := query.Options{
		Wheres:          []query.Clause{query.Where(subject+" = ?", guid)},
		IncludeDisabled: true,
	}
	if req.Relationship != "" {
		inner.Wheres = append(inner.Wheres, query.Where("er.relationship = ?", req.Relationship))
	}
	if req.EntityType != "" {
		// Constrain by the counterpart's entity type; direction decides which
		// side of the edge the entities table joins on.
		inner.Joins = append(inner.Joins, "JOIN entities e ON e.guid = "+counterpart)
		inner.Wheres = append(inner.Wheres, query.Where("e.type = ?", string(req.EntityType)))
	}

	sub, args := query.BuildSelect("er.id", "entity_relationships er", inner)
	return s.db.Delete(ctx, `DELETE FROM entity_relationships WHERE id IN (`+sub+`)`, args...)
}

// Relationship-driven entity queries

func (s *service) GetEntitiesFromRelationship(ctx context.Context, q RelationshipQuery) ([]*Entity, error) {
	opts, err := s.relationshipOptions(q)
	if err != nil {
		return nil, err
	}
	return s.GetEntities(ctx, opts)
}

// GetEntitiesByRelationshipCount orders entities by how many matching edges
// point at them: users with the most friends, groups with the most members.
func (s *service) GetEntitiesByRelationshipCount(ctx context.Context, q RelationshipQuery) ([]*Entity, error) {
	q.Selects = append(q.Selects, "COUNT(e.guid) AS total")
	q.GroupBy = "r.guid_two"
	q.OrderBy = "total DESC"
	return s.GetEntitiesFromRelationship(ctx, q)
}

func (s *service) CountEntitiesFromRelationship(ctx context.Context, q RelationshipQuery) (int64, error) {
	opts, err := s.relationshipOptions(q)
	if err != nil {
		return 0, err
	}
	return s.CountEntities(ctx, opts)
}

// relationshipOptions merges the relationship filter fragments into the
// generic search options, always adding the relationship id to the selects.
func (s *service) relationshipOptions(q RelationshipQuery) (query.Options, error) {
	joinOn := q.JoinOn
	if joinOn == "" {
		joinOn = "guid"
	}
	switch joinOn {
	case "guid", "owner_guid", "container_guid":
	default:
		return query.Options{}, &RelationshipError{Op: "query", Err: ErrInvalidArgument}
	}
	if q.Relationship != "" {
		if err := ValidateRelationshipName(q.Relationship); err != nil {
			return query.Options{}, err
		}
	}

	opts := q.Options
	f := query.RelationshipFilter("e."+joinOn, q.Relationship, q.CounterpartGUID, q.Inverse)
	if !f.Empty() {
		opts.Merge(f, "r.id")
	}
	return opts, nil
}
