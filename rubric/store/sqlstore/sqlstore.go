/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sqlstore stores rubrics in a SQL database.
//
// SQLite (modernc.org/sqlite, driver "sqlite") and PostgreSQL
// (github.com/jackc/pgx/v5/stdlib, driver "pgx") are supported. The schema is
// created on Open if it does not already exist.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/rubriceval/rubric"
	"chainguard.dev/rubriceval/rubric/store"
	"github.com/chainguard-dev/clog"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver: sqlite
)

// Driver selects the database backend.
type Driver string

const (
	// SQLite uses the pure-Go modernc driver.
	SQLite Driver = "sqlite"
	// Postgres uses the pgx stdlib driver.
	Postgres Driver = "postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS rubrics (
  name          TEXT PRIMARY KEY,
  criteria_json TEXT NOT NULL,
  updated_at    BIGINT NOT NULL
)`

type row struct {
	Name      string `db:"name"`
	Criteria  string `db:"criteria_json"`
	UpdatedAt int64  `db:"updated_at"`
}

// Store is a SQL-backed rubric store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ store.Interface = (*Store)(nil)

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case SQLite:
		drvName = "sqlite"
	case Postgres:
		drvName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported driver: %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}
	if driver == SQLite {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back if it fails.
func (s *Store) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// List implements store.Interface.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	if err := s.db.SelectContext(ctx, &names, `SELECT name FROM rubrics ORDER BY name`); err != nil {
		return nil, fmt.Errorf("listing rubrics: %w", err)
	}
	return names, nil
}

// Load implements store.Interface.
func (s *Store) Load(ctx context.Context, name string) (*rubric.Rubric, error) {
	var r row
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT name, criteria_json, updated_at FROM rubrics WHERE name = ?`), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("loading rubric %q: %w", name, err)
	}
	out, err := rubric.UnmarshalJSON(name, []byte(r.Criteria))
	if err != nil {
		clog.FromContext(ctx).With("rubric", name).Warnf("Stored rubric is corrupt: %v", err)
		return nil, err
	}
	return out, nil
}

// Save implements store.Interface.
func (s *Store) Save(ctx context.Context, r *rubric.Rubric) error {
	if err := store.ValidateName(r.Name); err != nil {
		return err
	}
	data, err := rubric.MarshalJSON(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
INSERT INTO rubrics (name, criteria_json, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET criteria_json = excluded.criteria_json, updated_at = excluded.updated_at`),
		r.Name, string(data), s.now().Unix())
	if err != nil {
		return fmt.Errorf("saving rubric %q: %w", r.Name, err)
	}
	return nil
}

// insert adds a rubric row unless the name is taken.
func (s *Store) insert(ctx context.Context, q sqlx.ExtContext, name, criteria string) error {
	res, err := q.ExecContext(ctx, s.db.Rebind(`
INSERT INTO rubrics (name, criteria_json, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO NOTHING`), name, criteria, s.now().Unix())
	if err != nil {
		return fmt.Errorf("creating rubric %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("creating rubric %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", store.ErrExists, name)
	}
	return nil
}

// Create implements store.Interface.
func (s *Store) Create(ctx context.Context, name string) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	data, err := rubric.MarshalJSON(&rubric.Rubric{Name: name})
	if err != nil {
		return err
	}
	return s.insert(ctx, s.db, name, string(data))
}

// Duplicate implements store.Interface.
func (s *Store) Duplicate(ctx context.Context, from, to string) error {
	if err := store.ValidateName(to); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var criteria string
		err := tx.GetContext(ctx, &criteria, s.db.Rebind(`SELECT criteria_json FROM rubrics WHERE name = ?`), from)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %q", store.ErrNotFound, from)
		} else if err != nil {
			return fmt.Errorf("loading rubric %q: %w", from, err)
		}
		return s.insert(ctx, tx, to, criteria)
	})
}

// Delete implements store.Interface.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM rubrics WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("deleting rubric %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting rubric %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", store.ErrNotFound, name)
	}
	return nil
}
