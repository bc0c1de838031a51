// Package sqldb implements the entitystore.Database gateway on top of sqlx,
// with drivers for PostgreSQL (pgx) and SQLite (modernc, cgo-free). Queries
// are written with `?` placeholders and rebound per driver.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tendant/entity-store/pkg/entitystore"
)

// DB adapts a *sqlx.DB to the entitystore.Database interface and maps driver
// errors onto the package's sentinel errors.
type DB struct {
	db     *sqlx.DB
	driver string
}

// Open connects using the given sqlx driver name and DSN. The handle is
// unsafe-scanned so joined selects may carry extra columns (relationship ids,
// aggregate counts) past the destination struct.
func Open(driverName, dsn string) (*DB, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{db: db.Unsafe(), driver: driverName}, nil
}

// OpenSQLite opens a SQLite database. A single connection is enforced so that
// ":memory:" databases see one coherent store.
func OpenSQLite(dsn string) (*DB, error) {
	db, err := Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.db.SetMaxOpenConns(1)
	return db, nil
}

// OpenPostgres opens a PostgreSQL database via the pgx stdlib driver.
func OpenPostgres(dsn string) (*DB, error) {
	return Open("pgx", dsn)
}

// Close closes the underlying pool.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := d.db.SelectContext(ctx, dest, d.db.Rebind(query), args...); err != nil {
		return d.mapError(err)
	}
	return nil
}

func (d *DB) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := d.db.GetContext(ctx, dest, d.db.Rebind(query), args...); err != nil {
		return d.mapError(err)
	}
	return nil
}

// Insert runs an INSERT ... RETURNING id statement and yields the new id.
func (d *DB) Insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := d.db.GetContext(ctx, &id, d.db.Rebind(query), args...); err != nil {
		return 0, d.mapError(err)
	}
	return id, nil
}

func (d *DB) Update(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return d.exec(ctx, query, args...)
}

func (d *DB) Delete(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return d.exec(ctx, query, args...)
}

func (d *DB) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := d.db.ExecContext(ctx, d.db.Rebind(query), args...)
	if err != nil {
		return 0, d.mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, d.mapError(err)
	}
	return n, nil
}

// mapError translates driver errors to the gateway contract: missing rows to
// ErrNotFound, uniqueness violations to ErrConflict, anything else wraps
// ErrIO.
func (d *DB) mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return entitystore.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", entitystore.ErrConflict, pgErr.ConstraintName)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %v", entitystore.ErrConflict, err)
		}
	}

	return fmt.Errorf("%w: %v", entitystore.ErrIO, err)
}
