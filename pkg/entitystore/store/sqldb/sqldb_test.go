package sqldb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/entity-store/pkg/entitystore"
	"github.com/tendant/entity-store/pkg/entitystore/store/sqldb"
)

func newDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
}

func TestInsertReturnsID(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	id, err := db.Insert(ctx,
		"INSERT INTO entity_relationships (guid_one, relationship, guid_two, time_created) VALUES (?, ?, ?, ?) RETURNING id",
		1, "friend", 2, 1000)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	id2, err := db.Insert(ctx,
		"INSERT INTO entity_relationships (guid_one, relationship, guid_two, time_created) VALUES (?, ?, ?, ?) RETURNING id",
		1, "friend", 3, 1000)
	require.NoError(t, err)
	assert.Greater(t, id2, id)
}

func TestGetMissingRowMapsToNotFound(t *testing.T) {
	db := newDB(t)

	var n int64
	err := db.Get(context.Background(), &n, "SELECT id FROM entity_relationships WHERE id = ?", 42)
	assert.ErrorIs(t, err, entitystore.ErrNotFound)
}

func TestUniqueViolationMapsToConflict(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	_, err := db.Insert(ctx,
		"INSERT INTO entity_relationships (guid_one, relationship, guid_two, time_created) VALUES (?, ?, ?, ?) RETURNING id",
		1, "friend", 2, 1000)
	require.NoError(t, err)

	_, err = db.Insert(ctx,
		"INSERT INTO entity_relationships (guid_one, relationship, guid_two, time_created) VALUES (?, ?, ?, ?) RETURNING id",
		1, "friend", 2, 1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, entitystore.ErrConflict)
}

func TestExecFailureWrapsIO(t *testing.T) {
	db := newDB(t)

	_, err := db.Update(context.Background(), "UPDATE no_such_table SET x = ?", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, entitystore.ErrIO)
}

func TestUpdateReportsRowsAffected(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	id, err := db.Insert(ctx,
		"INSERT INTO entity_relationships (guid_one, relationship, guid_two, time_created) VALUES (?, ?, ?, ?) RETURNING id",
		1, "friend", 2, 1000)
	require.NoError(t, err)

	n, err := db.Update(ctx, "UPDATE entity_relationships SET relationship = ? WHERE id = ?", "pal", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = db.Delete(ctx, "DELETE FROM entity_relationships WHERE id = ?", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = db.Delete(ctx, "DELETE FROM entity_relationships WHERE id = ?", id)
	require.NoError(t, err)
	assert.Zero(t, n)
}
