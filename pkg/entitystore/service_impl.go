package entitystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/entity-store/pkg/entitystore/query"
)

// service implements the Service interface
type service struct {
	db     Database
	events *Dispatcher
	cache  *EntityCache
	logger *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithDatabase sets the storage gateway for the service
func WithDatabase(db Database) Option {
	return func(s *service) {
		s.db = db
	}
}

// WithDispatcher sets the lifecycle event dispatcher
func WithDispatcher(d *Dispatcher) Option {
	return func(s *service) {
		s.events = d
	}
}

// WithCache sets the entity cache
func WithCache(c *EntityCache) Option {
	return func(s *service) {
		s.cache = c
	}
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(s *service) {
		s.logger = l
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if s.events == nil {
		s.events = NewDispatcher()
	}
	if s.cache == nil {
		s.cache = NewEntityCache()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Entity operations

func (s *service) CreateEntity(ctx context.Context, req CreateEntityRequest) (*Entity, error) {
	if req.Attrs == nil {
		return nil, fmt.Errorf("%w: extension attributes are required", ErrInvalidArgument)
	}
	typ := req.Attrs.EntityType()

	t := now()
	guid, err := s.db.Insert(ctx, `
		INSERT INTO entities (type, subtype, owner_guid, container_guid, access_id, time_created, time_updated, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING guid`,
		string(typ), req.Subtype, req.OwnerGUID, req.ContainerGUID, req.AccessID,
		t.Unix(), t.Unix(), true)
	if err != nil {
		return nil, &EntityError{Op: "create", Err: err}
	}

	if err := s.insertExtension(ctx, guid, req.Attrs); err != nil {
		// The base row committed but the extension row did not. Compensate by
		// removing the orphaned base row; an entity must never exist without
		// its extension.
		if _, derr := s.db.Delete(ctx, `DELETE FROM entities WHERE guid = ?`, guid); derr != nil {
			err = errors.Join(err, derr)
		}
		return nil, &EntityError{GUID: guid, Op: "create", Err: err}
	}

	e := &Entity{
		GUID:          guid,
		Type:          typ,
		Subtype:       req.Subtype,
		OwnerGUID:     req.OwnerGUID,
		ContainerGUID: req.ContainerGUID,
		AccessID:      req.AccessID,
		TimeCreated:   t,
		TimeUpdated:   t,
		Enabled:       true,
		Attrs:         req.Attrs,
	}

	if !s.events.Trigger(ActionCreate, string(typ), e) {
		// A veto unwinds the rows that were just written.
		_, _ = s.db.Delete(ctx, `DELETE FROM `+extensionTable(typ)+` WHERE guid = ?`, guid)
		_, _ = s.db.Delete(ctx, `DELETE FROM entities WHERE guid = ?`, guid)
		return nil, &EntityError{GUID: guid, Op: "create", Err: ErrVetoed}
	}

	s.cache.Set(e)
	s.logger.Debug("entity created", "guid", guid, "type", typ)
	return e, nil
}

func (s *service) GetEntity(ctx context.Context, guid int64) (*Entity, error) {
	if e, ok := s.cache.Get(guid); ok {
		return e, nil
	}

	var row entityRow
	err := s.db.Get(ctx, &row, `
		SELECT guid, type, subtype, owner_guid, container_guid, access_id, time_created, time_updated, enabled
		FROM entities WHERE guid = ?`, guid)
	if err != nil {
		return nil, &EntityError{GUID: guid, Op: "load", Err: err}
	}

	attrs, err := s.loadExtension(ctx, EntityType(row.Type), guid)
	if err != nil {
		return nil, &EntityError{GUID: guid, Op: "load", Err: err}
	}

	e := row.toEntity(attrs)
	s.cache.Set(e)
	return e, nil
}

func (s *service) UpdateEntity(ctx context.Context, e *Entity) error {
	if e == nil || e.GUID <= 0 {
		return fmt.Errorf("%w: entity has no guid", ErrInvalidArgument)
	}
	if e.Attrs == nil {
		return fmt.Errorf("%w: extension attributes are required", ErrInvalidArgument)
	}
	if e.Attrs.EntityType() != e.Type {
		return fmt.Errorf("%w: attrs type %q does not match entity type %q",
			ErrInvalidArgument, e.Attrs.EntityType(), e.Type)
	}

	if !s.events.Trigger(ActionUpdate, string(e.Type), e) {
		return &EntityError{GUID: e.GUID, Op: "update", Err: ErrVetoed}
	}

	e.TimeUpdated = now()
	n, err := s.db.Update(ctx, `
		UPDATE entities SET subtype = ?, owner_guid = ?, container_guid = ?, access_id = ?, time_updated = ?, enabled = ?
		WHERE guid = ?`,
		e.Subtype, e.OwnerGUID, e.ContainerGUID, e.AccessID, e.TimeUpdated.Unix(), e.Enabled, e.GUID)
	if err != nil {
		return &EntityError{GUID: e.GUID, Op: "update", Err: err}
	}
	if n == 0 {
		return &EntityError{GUID: e.GUID, Op: "update", Err: ErrNotFound}
	}

	n, err = s.updateExtension(ctx, e.GUID, e.Attrs)
	if err != nil {
		return &EntityError{GUID: e.GUID, Op: "update", Err: err}
	}
	if n == 0 {
		return &EntityError{GUID: e.GUID, Op: "update", Err: ErrIncompleteRecord}
	}

	s.cache.Set(e)
	return nil
}

func (s *service) DeleteEntity(ctx context.Context, guid int64) error {
	e, err := s.GetEntity(ctx, guid)
	if err != nil {
		return err
	}

	if !s.events.Trigger(ActionDelete, string(e.Type), e) {
		return &EntityError{GUID: guid, Op: "delete", Err: ErrVetoed}
	}

	// Best-effort removal across all tables referencing the guid. Later
	// steps still run when an earlier one fails; failures are aggregated
	// into one collective result.
	var errs []error
	step := func(q string, args ...interface{}) {
		if _, serr := s.db.Delete(ctx, q, args...); serr != nil {
			errs = append(errs, serr)
		}
	}

	step(`DELETE FROM `+extensionTable(e.Type)+` WHERE guid = ?`, guid)
	step(`DELETE FROM entities WHERE guid = ?`, guid)
	step(`DELETE FROM entity_relationships WHERE guid_one = ? OR guid_two = ?`, guid, guid)
	step(`DELETE FROM annotations WHERE entity_guid = ?`, guid)
	step(`DELETE FROM metadata WHERE entity_guid = ?`, guid)
	step(`DELETE FROM river WHERE subject_guid = ? OR object_guid = ?`, guid, guid)

	s.cache.Remove(guid)

	if len(errs) > 0 {
		return &EntityError{GUID: guid, Op: "delete", Err: errors.Join(errs...)}
	}
	s.logger.Debug("entity deleted", "guid", guid, "type", e.Type)
	return nil
}

func (s *service) EnableEntity(ctx context.Context, guid int64) error {
	return s.setEntityEnabled(ctx, guid, true, ActionEnable)
}

func (s *service) DisableEntity(ctx context.Context, guid int64) error {
	return s.setEntityEnabled(ctx, guid, false, ActionDisable)
}

// setEntityEnabled flips the soft-delete flag only; related rows stay put.
func (s *service) setEntityEnabled(ctx context.Context, guid int64, enabled bool, action Action) error {
	e, err := s.GetEntity(ctx, guid)
	if err != nil {
		return err
	}

	if !s.events.Trigger(action, string(e.Type), e) {
		return &EntityError{GUID: guid, Op: string(action), Err: ErrVetoed}
	}

	n, err := s.db.Update(ctx, `UPDATE entities SET enabled = ? WHERE guid = ?`, enabled, guid)
	if err != nil {
		return &EntityError{GUID: guid, Op: string(action), Err: err}
	}
	if n == 0 {
		return &EntityError{GUID: guid, Op: string(action), Err: ErrNotFound}
	}

	// Evict so the next load observes the new flag.
	s.cache.Remove(guid)
	return nil
}

// Generic entity search

const entityColumns = "e.guid, e.type, e.subtype, e.owner_guid, e.container_guid, e.access_id, e.time_created, e.time_updated, e.enabled"

func (s *service) GetEntities(ctx context.Context, opts query.Options) ([]*Entity, error) {
	if err := validateFragments(opts); err != nil {
		return nil, err
	}
	if !opts.IncludeDisabled {
		opts.Wheres = append(opts.Wheres, query.Where("e.enabled = ?", true))
	}
	if opts.OrderBy == "" {
		opts.OrderBy = "e.time_created DESC, e.guid DESC"
	}

	q, args := query.BuildSelect(entityColumns, "entities e", opts)

	var rows []entityRow
	if err := s.db.Select(ctx, &rows, q, args...); err != nil {
		return nil, err
	}

	entities := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		if e, ok := s.cache.Get(row.GUID); ok {
			entities = append(entities, e)
			continue
		}
		attrs, err := s.loadExtension(ctx, EntityType(row.Type), row.GUID)
		if err != nil {
			return nil, &EntityError{GUID: row.GUID, Op: "load", Err: err}
		}
		e := row.toEntity(attrs)
		s.cache.Set(e)
		entities = append(entities, e)
	}
	return entities, nil
}

func (s *service) CountEntities(ctx context.Context, opts query.Options) (int64, error) {
	if err := validateFragments(opts); err != nil {
		return 0, err
	}
	if !opts.IncludeDisabled {
		opts.Wheres = append(opts.Wheres, query.Where("e.enabled = ?", true))
	}

	q, args := query.BuildCount("entities e", opts)

	var n int64
	if err := s.db.Get(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// validateFragments guards the identifier-position fragments that cannot be
// parameterized.
func validateFragments(opts query.Options) error {
	if !ValidFragment(opts.OrderBy) {
		return fmt.Errorf("%w: unsafe order by %q", ErrInvalidArgument, opts.OrderBy)
	}
	if !ValidFragment(opts.GroupBy) {
		return fmt.Errorf("%w: unsafe group by %q", ErrInvalidArgument, opts.GroupBy)
	}
	for _, sel := range opts.Selects {
		if !ValidFragment(sel) {
			return fmt.Errorf("%w: unsafe select %q", ErrInvalidArgument, sel)
		}
	}
	return nil
}

// Extension table plumbing

func extensionTable(t EntityType) string {
	switch t {
	case TypeObject:
		return "objects_entity"
	case TypeUser:
		return "users_entity"
	case TypeGroup:
		return "groups_entity"
	case TypeSite:
		return "sites_entity"
	}
	return ""
}

func (s *service) loadExtension(ctx context.Context, t EntityType, guid int64) (Extension, error) {
	var (
		attrs Extension
		err   error
	)
	switch t {
	case TypeObject:
		var r objectRow
		err = s.db.Get(ctx, &r, `SELECT guid, title, description FROM objects_entity WHERE guid = ?`, guid)
		attrs = &ObjectAttrs{Title: r.Title, Description: r.Description}
	case TypeUser:
		var r userRow
		err = s.db.Get(ctx, &r, `SELECT guid, name, username FROM users_entity WHERE guid = ?`, guid)
		attrs = &UserAttrs{Name: r.Name, Username: r.Username}
	case TypeGroup:
		var r groupRow
		err = s.db.Get(ctx, &r, `SELECT guid, name, description FROM groups_entity WHERE guid = ?`, guid)
		attrs = &GroupAttrs{Name: r.Name, Description: r.Description}
	case TypeSite:
		var r siteRow
		err = s.db.Get(ctx, &r, `SELECT guid, name, description, url FROM sites_entity WHERE guid = ?`, guid)
		attrs = &SiteAttrs{Name: r.Name, Description: r.Description, URL: r.URL}
	default:
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidArgument, t)
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// An orphaned base row is corruption, not a missing entity.
			return nil, ErrIncompleteRecord
		}
		return nil, err
	}
	return attrs, nil
}

func (s *service) insertExtension(ctx context.Context, guid int64, attrs Extension) error {
	var err error
	switch a := attrs.(type) {
	case *ObjectAttrs:
		_, err = s.db.Insert(ctx, `INSERT INTO objects_entity (guid, title, description) VALUES (?, ?, ?) RETURNING guid`,
			guid, a.Title, a.Description)
	case *UserAttrs:
		_, err = s.db.Insert(ctx, `INSERT INTO users_entity (guid, name, username) VALUES (?, ?, ?) RETURNING guid`,
			guid, a.Name, a.Username)
	case *GroupAttrs:
		_, err = s.db.Insert(ctx, `INSERT INTO groups_entity (guid, name, description) VALUES (?, ?, ?) RETURNING guid`,
			guid, a.Name, a.Description)
	case *SiteAttrs:
		_, err = s.db.Insert(ctx, `INSERT INTO sites_entity (guid, name, description, url) VALUES (?, ?, ?, ?) RETURNING guid`,
			guid, a.Name, a.Description, a.URL)
	default:
		return fmt.Errorf("%w: unknown extension type %T", ErrInvalidArgument, attrs)
	}
	return err
}

func (s *service) updateExtension(ctx context.Context, guid int64, attrs Extension) (int64, error) {
	switch a := attrs.(type) {
	case *ObjectAttrs:
		return s.db.Update(ctx, `UPDATE objects_entity SET title = ?, description = ? WHERE guid = ?`,
			a.Title, a.Description, guid)
	case *UserAttrs:
		return s.db.Update(ctx, `UPDATE users_entity SET name = ?, username = ? WHERE guid = ?`,
			a.Name, a.Username, guid)
	case *GroupAttrs:
		return s.db.Update(ctx, `UPDATE groups_entity SET name = ?, description = ? WHERE guid = ?`,
			a.Name, a.Description, guid)
	case *SiteAttrs:
		return s.db.Update(ctx, `UPDATE sites_entity SET name = ?, description = ?, url = ? WHERE guid = ?`,
			a.Name, a.Description, a.URL, guid)
	}
	return 0, fmt.Errorf("%w: unknown extension type %T", ErrInvalidArgument, attrs)
}
