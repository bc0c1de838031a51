package entitystore

import (
	"context"
	"errors"
)

// Annotations and metadata share the extender row shape but differ in
// cardinality: annotations accumulate (many rows per entity and name),
// metadata is singular per (entity, name).

const extenderColumns = "id, entity_guid, name, value, value_type, owner_guid, access_id, time_created, enabled"

// SaveAnnotation inserts a new annotation when a.ID is zero and updates the
// stored row otherwise. New annotations fire a cancellable annotate event on
// the annotated entity before any row is written.
func (s *service) SaveAnnotation(ctx context.Context, a *Annotation) error {
	if a.Name == "" {
		return &ExtenderError{Kind: SubjectAnnotation, Op: "save", Err: ErrInvalidArgument}
	}
	if a.ValueType == "" {
		a.ValueType = ValueTypeText
	}

	if a.ID > 0 {
		n, err := s.db.Update(ctx, `
			UPDATE annotations
			SET name = ?, value = ?, value_type = ?, owner_guid = ?, access_id = ?
			WHERE id = ?`,
			a.Name, a.Value, string(a.ValueType), a.OwnerGUID, a.AccessID, a.ID)
		if err != nil {
			return &ExtenderError{ID: a.ID, Kind: SubjectAnnotation, Op: "save", Err: err}
		}
		if n == 0 {
			return &ExtenderError{ID: a.ID, Kind: SubjectAnnotation, Op: "save", Err: ErrNotFound}
		}
		return nil
	}

	target, err := s.GetEntity(ctx, a.EntityGUID)
	if err != nil {
		return &ExtenderError{Kind: SubjectAnnotation, Op: "save", Err: err}
	}
	if !s.events.Trigger(ActionAnnotate, string(target.Type), target) {
		return &ExtenderError{Kind: SubjectAnnotation, Op: "save", Err: ErrVetoed}
	}

	t := now()
	id, err := s.db.Insert(ctx, `
		INSERT INTO annotations (entity_guid, name, value, value_type, owner_guid, access_id, time_created, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		a.EntityGUID, a.Name, a.Value, string(a.ValueType), a.OwnerGUID, a.AccessID, t.Unix(), true)
	if err != nil {
		// An insert that yields no id is an I/O failure, not a lookup miss.
		if errors.Is(err, ErrNotFound) {
			err = ErrIO
		}
		return &ExtenderError{Kind: SubjectAnnotation, Op: "save", Err: err}
	}

	a.ID = id
	a.TimeCreated = t
	a.Enabled = true
	return nil
}

func (s *service) GetAnnotation(ctx context.Context, id int64) (*Annotation, error) {
	var row extenderRow
	err := s.db.Get(ctx, &row, `SELECT `+extenderColumns+` FROM annotations WHERE id = ?`, id)
	if err != nil {
		return nil, &ExtenderError{ID: id, Kind: SubjectAnnotation, Op: "get", Err: err}
	}
	return &Annotation{Extender: row.toExtender()}, nil
}

// GetAnnotations lists an entity's annotations oldest first. An empty name
// matches all names.
func (s *service) GetAnnotations(ctx context.Context, entityGUID int64, name string) ([]*Annotation, error) {
	q := `SELECT ` + extenderColumns + ` FROM annotations WHERE entity_guid = ?`
	args := []interface{}{entityGUID}
	if name != "" {
		q += ` AND name = ?`
		args = append(args, name)
	}
	q += ` ORDER BY time_created, id`

	var rows []extenderRow
	if err := s.db.Select(ctx, &rows, q, args...); err != nil {
		return nil, err
	}

	anns := make([]*Annotation, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, &Annotation{Extender: row.toExtender()})
	}
	return anns, nil
}

// DeleteAnnotation removes an annotation after a cancellable delete event,
// along with any river items that referenced it.
func (s *service) DeleteAnnotation(ctx context.Context, id int64) error {
	a, err := s.GetAnnotation(ctx, id)
	if err != nil {
		return err
	}

	if !s.events.Trigger(ActionDelete, SubjectAnnotation, a) {
		return &ExtenderError{ID: id, Kind: SubjectAnnotation, Op: "delete", Err: ErrVetoed}
	}

	if _, err := s.db.Delete(ctx, `DELETE FROM annotations WHERE id = ?`, id); err != nil {
		return &ExtenderError{ID: id, Kind: SubjectAnnotation, Op: "delete", Err: err}
	}
	if _, err := s.db.Delete(ctx, `DELETE FROM river WHERE annotation_id = ?`, id); err != nil {
		s.logger.Error("failed to remove river items for annotation", "annotation_id", id, "error", err)
	}
	return nil
}

func (s *service) EnableAnnotation(ctx context.Context, id int64) error {
	return s.setAnnotationEnabled(ctx, id, true)
}

func (s *service) DisableAnnotation(ctx context.Context, id int64) error {
	return s.setAnnotationEnabled(ctx, id, false)
}

func (s *service) setAnnotationEnabled(ctx context.Context, id int64, enabled bool) error {
	op := "disable"
	if enabled {
		op = "enable"
	}
	n, err := s.db.Update(ctx, `UPDATE annotations SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return &ExtenderError{ID: id, Kind: SubjectAnnotation, Op: op, Err: err}
	}
	if n == 0 {
		return &ExtenderError{ID: id, Kind: SubjectAnnotation, Op: op, Err: ErrNotFound}
	}
	return nil
}

// SaveMetadata upserts the single metadata row for (entity, name). The update
// and create paths fire their own cancellable events.
func (s *service) SaveMetadata(ctx context.Context, m *Metadata) error {
	if m.Name == "" {
		return &ExtenderError{Kind: SubjectMetadata, Op: "save", Err: ErrInvalidArgument}
	}
	if m.ValueType == "" {
		m.ValueType = ValueTypeText
	}

	existing, err := s.GetMetadata(ctx, m.EntityGUID, m.Name)
	switch {
	case err == nil:
		if !s.events.Trigger(ActionUpdate, SubjectMetadata, m) {
			return &ExtenderError{ID: existing.ID, Kind: SubjectMetadata, Op: "save", Err: ErrVetoed}
		}
		if _, err := s.db.Update(ctx, `
			UPDATE metadata SET value = ?, value_type = ?, owner_guid = ?, access_id = ?
			WHERE id = ?`,
			m.Value, string(m.ValueType), m.OwnerGUID, m.AccessID, existing.ID); err != nil {
			return &ExtenderError{ID: existing.ID, Kind: SubjectMetadata, Op: "save", Err: err}
		}
		m.ID = existing.ID
		m.TimeCreated = existing.TimeCreated
		m.Enabled = existing.Enabled
		return nil

	case errors.Is(err, ErrNotFound):
		if !s.events.Trigger(ActionCreate, SubjectMetadata, m) {
			return &ExtenderError{Kind: SubjectMetadata, Op: "save", Err: ErrVetoed}
		}
		t := now()
		id, err := s.db.Insert(ctx, `
			INSERT INTO metadata (entity_guid, name, value, value_type, owner_guid, access_id, time_created, enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			m.EntityGUID, m.Name, m.Value, string(m.ValueType), m.OwnerGUID, m.AccessID, t.Unix(), true)
		if err != nil {
			return &ExtenderError{Kind: SubjectMetadata, Op: "save", Err: err}
		}
		m.ID = id
		m.TimeCreated = t
		m.Enabled = true
		return nil

	default:
		return err
	}
}

func (s *service) GetMetadata(ctx context.Context, entityGUID int64, name string) (*Metadata, error) {
	var row extenderRow
	err := s.db.Get(ctx, &row, `
		SELECT `+extenderColumns+` FROM metadata
		WHERE entity_guid = ? AND name = ?`, entityGUID, name)
	if err != nil {
		return nil, &ExtenderError{Kind: SubjectMetadata, Op: "get", Err: err}
	}
	return &Metadata{Extender: row.toExtender()}, nil
}

func (s *service) DeleteMetadata(ctx context.Context, entityGUID int64, name string) error {
	m, err := s.GetMetadata(ctx, entityGUID, name)
	if err != nil {
		return err
	}

	if !s.events.Trigger(ActionDelete, SubjectMetadata, m) {
		return &ExtenderError{ID: m.ID, Kind: SubjectMetadata, Op: "delete", Err: ErrVetoed}
	}

	if _, err := s.db.Delete(ctx, `DELETE FROM metadata WHERE id = ?`, m.ID); err != nil {
		return &ExtenderError{ID: m.ID, Kind: SubjectMetadata, Op: "delete", Err: err}
	}
	return nil
}

// River (activity stream) operations

func (s *service) AddRiverItem(ctx context.Context, req AddRiverItemRequest) (*RiverItem, error) {
	if req.ActionType == "" || req.SubjectGUID == 0 {
		return nil, ErrInvalidArgument
	}

	t := now()
	id, err := s.db.Insert(ctx, `
		INSERT INTO river (action_type, subject_guid, object_guid, annotation_id, posted)
		VALUES (?, ?, ?, ?, ?) RETURNING id`,
		req.ActionType, req.SubjectGUID, req.ObjectGUID, req.AnnotationID, t.Unix())
	if err != nil {
		return nil, err
	}

	return &RiverItem{
		ID:           id,
		ActionType:   req.ActionType,
		SubjectGUID:  req.SubjectGUID,
		ObjectGUID:   req.ObjectGUID,
		AnnotationID: req.AnnotationID,
		Posted:       t,
	}, nil
}

func (s *service) GetRiverItems(ctx context.Context, subjectGUID int64) ([]*RiverItem, error) {
	var rows []riverRow
	err := s.db.Select(ctx, &rows, `
		SELECT id, action_type, subject_guid, object_guid, annotation_id, posted
		FROM river WHERE subject_guid = ?
		ORDER BY posted DESC, id DESC`, subjectGUID)
	if err != nil {
		return nil, err
	}

	items := make([]*RiverItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toRiverItem())
	}
	return items, nil
}
