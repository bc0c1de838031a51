package sqldb

import (
	"context"
	"fmt"
)

// Migrate creates the store's tables if they do not exist. DDL is the one
// place the two dialects diverge (autoincrement key syntax), so each driver
// carries its own statement list.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if d.driver == "pgx" {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		guid INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		subtype TEXT NOT NULL DEFAULT '',
		owner_guid INTEGER NOT NULL DEFAULT 0,
		container_guid INTEGER NOT NULL DEFAULT 0,
		access_id INTEGER NOT NULL DEFAULT 0,
		time_created INTEGER NOT NULL,
		time_updated INTEGER NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS objects_entity (
		guid INTEGER PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS users_entity (
		guid INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS groups_entity (
		guid INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sites_entity (
		guid INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS entity_relationships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guid_one INTEGER NOT NULL,
		relationship TEXT NOT NULL,
		guid_two INTEGER NOT NULL,
		time_created INTEGER NOT NULL,
		UNIQUE (guid_one, relationship, guid_two)
	)`,
	`CREATE TABLE IF NOT EXISTS annotations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_guid INTEGER NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		value_type TEXT NOT NULL DEFAULT 'text',
		owner_guid INTEGER NOT NULL DEFAULT 0,
		access_id INTEGER NOT NULL DEFAULT 0,
		time_created INTEGER NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_guid INTEGER NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		value_type TEXT NOT NULL DEFAULT 'text',
		owner_guid INTEGER NOT NULL DEFAULT 0,
		access_id INTEGER NOT NULL DEFAULT 0,
		time_created INTEGER NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (entity_guid, name)
	)`,
	`CREATE TABLE IF NOT EXISTS river (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action_type TEXT NOT NULL,
		subject_guid INTEGER NOT NULL,
		object_guid INTEGER NOT NULL DEFAULT 0,
		annotation_id INTEGER NOT NULL DEFAULT 0,
		posted INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities (type, subtype)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_guid_two ON entity_relationships (guid_two, relationship)`,
	`CREATE INDEX IF NOT EXISTS idx_annotations_entity ON annotations (entity_guid, name)`,
	`CREATE INDEX IF NOT EXISTS idx_river_subject ON river (subject_guid)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		guid BIGSERIAL PRIMARY KEY,
		type TEXT NOT NULL,
		subtype TEXT NOT NULL DEFAULT '',
		owner_guid BIGINT NOT NULL DEFAULT 0,
		container_guid BIGINT NOT NULL DEFAULT 0,
		access_id INTEGER NOT NULL DEFAULT 0,
		time_created BIGINT NOT NULL,
		time_updated BIGINT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS objects_entity (
		guid BIGINT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS users_entity (
		guid BIGINT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS groups_entity (
		guid BIGINT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sites_entity (
		guid BIGINT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS entity_relationships (
		id BIGSERIAL PRIMARY KEY,
		guid_one BIGINT NOT NULL,
		relationship TEXT NOT NULL,
		guid_two BIGINT NOT NULL,
		time_created BIGINT NOT NULL,
		UNIQUE (guid_one, relationship, guid_two)
	)`,
	`CREATE TABLE IF NOT EXISTS annotations (
		id BIGSERIAL PRIMARY KEY,
		entity_guid BIGINT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		value_type TEXT NOT NULL DEFAULT 'text',
		owner_guid BIGINT NOT NULL DEFAULT 0,
		access_id INTEGER NOT NULL DEFAULT 0,
		time_created BIGINT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		id BIGSERIAL PRIMARY KEY,
		entity_guid BIGINT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		value_type TEXT NOT NULL DEFAULT 'text',
		owner_guid BIGINT NOT NULL DEFAULT 0,
		access_id INTEGER NOT NULL DEFAULT 0,
		time_created BIGINT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (entity_guid, name)
	)`,
	`CREATE TABLE IF NOT EXISTS river (
		id BIGSERIAL PRIMARY KEY,
		action_type TEXT NOT NULL,
		subject_guid BIGINT NOT NULL,
		object_guid BIGINT NOT NULL DEFAULT 0,
		annotation_id BIGINT NOT NULL DEFAULT 0,
		posted BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities (type, subtype)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_guid_two ON entity_relationships (guid_two, relationship)`,
	`CREATE INDEX IF NOT EXISTS idx_annotations_entity ON annotations (entity_guid, name)`,
	`CREATE INDEX IF NOT EXISTS idx_river_subject ON river (subject_guid)`,
}
