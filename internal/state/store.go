// Package state persists the local inventory of managed resources and the
// runtime dependency links between them. It backs the deletion guard's
// "what depends on this resource" query.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/azniosman/Project-Fortress/internal/logging"
)

// Record describes one managed resource in the inventory.
type Record struct {
	// Service is the resource type key (e.g. "ec2").
	Service string
	// ID is the provider-style identifier (e.g. "i-0abc...").
	ID string
	// Name is the optional human label.
	Name string
	// Attributes holds resource attributes as an opaque document.
	Attributes map[string]any
	// CreatedAt is when the record was saved.
	CreatedAt time.Time
}

// Ref identifies a resource by service and id.
type Ref struct {
	Service string
	ID      string
}

// String renders the reference in the canonical "service:id" form.
func (r Ref) String() string {
	return r.Service + ":" + r.ID
}

// ErrNotFound indicates the requested resource record does not exist.
var ErrNotFound = errors.New("resource not found")

// Store is a SQLite-backed inventory of managed resources.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the inventory database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:?mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database %q: %w", path, err)
	}

	if path != ":memory:" {
		// WAL allows concurrent reads while a write is in flight.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL on %q: %w", path, err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys on %q: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS resources (
	service    TEXT NOT NULL,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (service, id)
);
CREATE TABLE IF NOT EXISTS resource_links (
	service            TEXT NOT NULL,
	id                 TEXT NOT NULL,
	depends_on_service TEXT NOT NULL,
	depends_on_id      TEXT NOT NULL,
	PRIMARY KEY (service, id, depends_on_service, depends_on_id)
);
CREATE INDEX IF NOT EXISTS idx_links_depends_on
	ON resource_links (depends_on_service, depends_on_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply state schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a resource record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes for %s:%s: %w", rec.Service, rec.ID, err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO resources (service, id, name, attributes, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Service, rec.ID, rec.Name, string(attrs), createdAt,
	)
	if err != nil {
		return fmt.Errorf("save resource %s:%s: %w", rec.Service, rec.ID, err)
	}

	s.logger.Debug("resource saved", "service", rec.Service, "id", rec.ID, "name", rec.Name)
	return nil
}

// Get fetches one resource record. It returns ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, service, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT service, id, name, attributes, created_at FROM resources WHERE service = ? AND id = ?`,
		service, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s:%s: %w", service, id, ErrNotFound)
	}
	return rec, err
}

// List returns all records for a service ordered by creation time.
func (s *Store) List(ctx context.Context, service string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service, id, name, attributes, created_at FROM resources WHERE service = ? ORDER BY created_at, id`,
		service,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s resources: %w", service, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a resource record and any links it declared. Both deletes
// run in one transaction so a failure never leaves orphaned link rows.
func (s *Store) Delete(ctx context.Context, service, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete resource %s:%s: %w", service, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM resources WHERE service = ? AND id = ?`, service, id)
	if err != nil {
		return fmt.Errorf("delete resource %s:%s: %w", service, id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%s:%s: %w", service, id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resource_links WHERE service = ? AND id = ?`, service, id); err != nil {
		return fmt.Errorf("delete links for %s:%s: %w", service, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete resource %s:%s: %w", service, id, err)
	}

	s.logger.Debug("resource deleted", "service", service, "id", id)
	return nil
}

// Link records that `from` depends on `on`.
func (s *Store) Link(ctx context.Context, from, on Ref) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO resource_links (service, id, depends_on_service, depends_on_id) VALUES (?, ?, ?, ?)`,
		from.Service, from.ID, on.Service, on.ID,
	)
	if err != nil {
		return fmt.Errorf("link %s -> %s: %w", from, on, err)
	}
	return nil
}

// DependentsOf returns the resources that declared a dependency on the given
// resource. A non-empty result blocks deletion unless the check is skipped.
func (s *Store) DependentsOf(ctx context.Context, service, id string) ([]Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service, id FROM resource_links WHERE depends_on_service = ? AND depends_on_id = ? ORDER BY service, id`,
		service, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query dependents of %s:%s: %w", service, id, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Ref
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.Service, &ref.ID); err != nil {
			return nil, fmt.Errorf("scan dependent of %s:%s: %w", service, id, err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var attrs string
	if err := row.Scan(&rec.Service, &rec.ID, &rec.Name, &attrs, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
		return Record{}, fmt.Errorf("decode attributes for %s:%s: %w", rec.Service, rec.ID, err)
	}
	return rec, nil
}
