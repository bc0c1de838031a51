package entitystore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/entity-store/pkg/entitystore"
	"github.com/tendant/entity-store/pkg/entitystore/query"
	"github.com/tendant/entity-store/pkg/entitystore/store/sqldb"
)

// newTestStore builds a service over a fresh in-memory SQLite database and
// returns the raw gateway for direct row manipulation in tests.
func newTestStore(t *testing.T, opts ...entitystore.Option) (entitystore.Service, *sqldb.DB) {
	t.Helper()

	db, err := sqldb.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()))

	opts = append([]entitystore.Option{entitystore.WithDatabase(db)}, opts...)
	svc, err := entitystore.New(opts...)
	require.NoError(t, err)

	return svc, db
}

func createObject(t *testing.T, svc entitystore.Service, title string) *entitystore.Entity {
	t.Helper()
	e, err := svc.CreateEntity(context.Background(), entitystore.CreateEntityRequest{
		Subtype:  "blog",
		AccessID: entitystore.AccessPublic,
		Attrs:    &entitystore.ObjectAttrs{Title: title, Description: "about " + title},
	})
	require.NoError(t, err)
	return e
}

func createUser(t *testing.T, svc entitystore.Service, username string) *entitystore.Entity {
	t.Helper()
	e, err := svc.CreateEntity(context.Background(), entitystore.CreateEntityRequest{
		AccessID: entitystore.AccessPublic,
		Attrs:    &entitystore.UserAttrs{Name: username, Username: username},
	})
	require.NoError(t, err)
	return e
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []entitystore.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []entitystore.Option{},
			expectError: true,
		},
		{
			name: "with database should succeed",
			options: func() []entitystore.Option {
				db, err := sqldb.OpenSQLite(":memory:")
				require.NoError(t, err)
				return []entitystore.Option{entitystore.WithDatabase(db)}
			}(),
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := entitystore.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateAndGetEntity(t *testing.T) {
	svc, _ := newTestStore(t)
	ctx := context.Background()

	e := createObject(t, svc, "hello")
	assert.Greater(t, e.GUID, int64(0))
	assert.Equal(t, entitystore.TypeObject, e.Type)
	assert.True(t, e.Enabled)
	assert.Equal(t, e.TimeCreated, e.TimeUpdated)

	got, err := svc.GetEntity(ctx, e.GUID)
	require.NoError(t, err)
	assert.Equal(t, e.GUID, got.GUID)

	attrs, ok := got.Attrs.(*entitystore.ObjectAttrs)
	require.True(t, ok)
	assert.Equal(t, "hello", attrs.Title)
	assert.Equal(t, "about hello", attrs.Description)
}

func TestGetEntityNotFound(t *testing.T) {
	svc, _ := newTestStore(t)

	_, err := svc.GetEntity(context.Background(), 99999)
	require.Error(t, err)
	assert.ErrorIs(t, err, entitystore.ErrNotFound)

	var entErr *entitystore.EntityError
	require.ErrorAs(t, err, &entErr)
	assert.Equal(t, int64(99999), entErr.GUID)
}

func TestGetEntityReturnsCachedInstance(t *testing.T) {
	svc, _ := newTestStore(t)
	ctx := context.Background()

	e := createObject(t, svc, "cached")

	a, err := svc.GetEntity(ctx, e.GUID)
	require.NoError(t, err)
	b, err := svc.GetEntity(ctx, e.GUID)
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestUpdateEntity(t *testing.T) {
	svc, _ := newTestStore(t)
	ctx := context.Background()

	e := createObject(t, svc, "before")
	e.Subtype = "page"
	e.Attrs = &entitystore.ObjectAttrs{Title: "after", Description: "changed"}
	require.NoError(t, svc.UpdateEntity(ctx, e))
	assert.False(t, e.TimeUpdated.Before(e.TimeCreated))

	got, err := svc.GetEntity(ctx, e.GUID)
	require.NoError(t, err)
	assert.Equal(t, "page", got.Subtype)
	assert.Equal(t, "after", got.Attrs.(*entitystore.ObjectAttrs).Title)
}

func TestUpdateEntityTypeMismatch(t *testing.T) {
	svc, _ := newTestStore(t)

	e := createObject(t, svc, "typed")
	e.Attrs = &entitystore.UserAttrs{Name: "nope"}

	err := svc.UpdateEntity(context.Background(), e)
	assert.ErrorIs(t, err, entitystore.ErrInvalidArgument)
}

func TestIncompleteRecordSurfaces(t *testing.T) {
	svc, db := newTestStore(t)
	ctx := context.Background()

	e := createObject(t, svc, "broken")

	// Corrupt the store: drop the extension row and evict the cache entry by
	// disabling and re-enabling the entity.
	_, err := db.Delete(ctx, "DELETE FROM objects_entity WHERE guid = ?", e.GUID)
	require.NoError(t, err)
	require.NoError(t, svc.DisableEntity(ctx, e.GUID))

	_, err = svc.GetEntity(ctx, e.GUID)
	require.Error(t, err)
	assert.ErrorIs(t, err, entitystore.ErrIncompleteRecord)
	assert.NotErrorIs(t, err, entitystore.ErrNotFound)
}

func TestDisableHidesFromListings(t *testing.T) {
	svc, _ := newTestStore(t)
	ctx := context.Background()

	kept := createObject(t, svc, "kept")
	hidden := createObject(t, svc, "hidden")
	require.NoError(t, svc.DisableEntity(ctx, hidden.GUID))

	entities, err := svc.GetEntities(ctx, query.Options{})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, kept.GUID, entities[0].GUID)

	// Direct load still works and reports the flag.
	got, err := svc.GetEntity(ctx, hidden.GUID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	all, err := svc.GetEntities(ctx, query.Options{IncludeDisabled: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.EnableEntity(ctx, hidden.GUID))
	entities, err = svc.GetEntities(ctx, query.Options{})
	require.NoError(t, err)
	assert.Len(t, entities, 2)
}

func TestDeleteEntityCascades(t *testing.T) {
	svc, db := newTestStore(t)
	ctx := context.Background()

	user := createUser(t, svc, "alice")
	post := createObject(t, svc, "post")

	_, err := svc.AddRelationship(ctx, user.GUID, "likes", post.GUID)
	require.NoError(t, err)

	ann := &entitystore.Annotation{Extender: entitystore.Extender{
		EntityGUID: post.GUID, Name: "comment", Value: "nice", OwnerGUID: user.GUID,
	}}
	require.NoError(t, svc.SaveAnnotation(ctx, ann))

	meta := &entitystore.Metadata{Extender: entitystore.Extender{
		EntityGUID: post.GUID, Name: "color", Value: "blue",
	}}
	require.NoError(t, svc.SaveMetadata(ctx, meta))

	require.NoError(t, svc.DeleteEntity(ctx, post.GUID))

	_, err = svc.GetEntity(ctx, post.GUID)
	assert.ErrorIs(t, err, entitystore.ErrNotFound)

	rels, err := svc.GetRelationships(ctx, user.GUID, false)
	require.NoError(t, err)
	assert.Empty(t, rels)

	anns, err := svc.GetAnnotations(ctx, post.GUID, "")
	require.NoError(t, err)
	assert.Empty(t, anns)

	_, err = svc.GetMetadata(ctx, post.GUID, "color")
	assert.ErrorIs(t, err, entitystore.ErrNotFound)

	var n int64
	require.NoError(t, db.Get(ctx, &n, "SELECT COUNT(*) FROM objects_entity WHERE guid = ?", post.GUID))
	assert.Zero(t, n)
}

func TestCreateEntityVetoLeavesNoRows(t *testing.T) {
	events := entitystore.NewDispatcher()
	events.Register(entitystore.ActionCreate, string(entitystore.TypeObject), func(entitystore.Event) entitystore.Result {
		return entitystore.Deny
	})

	svc, db := newTestStore(t, entitystore.WithDispatcher(events))
	ctx := context.Background()

	_, err := svc.CreateEntity(ctx, entitystore.CreateEntityRequest{
		Attrs: &entitystore.ObjectAttrs{Title: "vetoed"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, entitystore.ErrVetoed)

	var n int64
	require.NoError(t, db.Get(ctx, &n, "SELECT COUNT(*) FROM entities"))
	assert.Zero(t, n)
	require.NoError(t, db.Get(ctx, &n, "SELECT COUNT(*) FROM objects_entity"))
	assert.Zero(t, n)
}

func TestDeleteEntityVeto(t *testing.T) {
	events := entitystore.NewDispatcher()
	events.Register(entitystore.ActionDelete, string(entitystore.TypeObject), func(entitystore.Event) entitystore.Result {
		return entitystore.Deny
	})

	svc, _ := newTestStore(t, entitystore.WithDispatcher(events))
	ctx := context.Background()

	e := createObject(t, svc, "protected")
	err := svc.DeleteEntity(ctx, e.GUID)
	assert.ErrorIs(t, err, entitystore.ErrVetoed)

	got, err := svc.GetEntity(ctx, e.GUID)
	require.NoError(t, err)
	assert.Equal(t, e.GUID, got.GUID)
}

func TestGetEntitiesFilters(t *testing.T) {
	svc, _ := newTestStore(t)
	ctx := context.Background()

	createUser(t, svc, "bob")
	first := createObject(t, svc, "first")
	second := createObject(t, svc, "second")

	objects, err := svc.GetEntities(ctx, query.Options{
		Wheres: []query.Clause{query.Where("e.type = ?", "object")},
	})
	require.NoError(t, err)
	require.Len(t, objects, 2)

	// Newest first by default; guid breaks the tie within one second.
	assert.Equal(t, second.GUID, objects[0].GUID)
	assert.Equal(t, first.GUID, objects[1].GUID)

	n, err := svc.CountEntities(ctx, query.Options{
		Wheres: []query.Clause{query.Where("e.type = ?", "object")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	limited, err := svc.GetEntities(ctx, query.Options{Limit: 1, Offset: 1, OrderBy: "e.guid"})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestGetEntitiesRejectsUnsafeFragments(t *testing.T) {
	svc, _ := newTestStore(t)

	_, err := svc.GetEntities(context.Background(), query.Options{
		OrderBy: "e.guid; DROP TABLE entities",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entitystore.ErrInvalidArgument))
}
