// Package postgres provides a homegraph.Store backed by a PostgreSQL
// database, for installations that sync the device registry from a
// home-automation hub rather than maintaining a YAML file.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hearthd/hearth/internal/homegraph"
)

// Schema is the SQL DDL for the devices table. Execute it via
// [Store.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS devices (
    id      TEXT PRIMARY KEY,
    name    TEXT NOT NULL,
    kind    TEXT NOT NULL DEFAULT 'light',
    room    TEXT NOT NULL DEFAULT '',
    aliases JSONB NOT NULL DEFAULT '[]',
    address TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_devices_kind ON devices(kind);
CREATE INDEX IF NOT EXISTS idx_devices_room ON devices(room);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a [homegraph.Store] backed by PostgreSQL. Aliases are serialised
// as JSONB.
type Store struct {
	db DB
}

// Compile-time interface check.
var _ homegraph.Store = (*Store)(nil)

// New creates a Store using the given database connection or pool. The
// caller is responsible for calling [Store.Migrate] to ensure the schema
// exists before issuing queries.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("homegraph postgres: migrate: %w", err)
	}
	return nil
}

// Add implements [homegraph.Store.Add].
func (s *Store) Add(ctx context.Context, device homegraph.Device) (homegraph.Device, error) {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}

	aliasesJSON, err := json.Marshal(emptySlice(device.Aliases))
	if err != nil {
		return homegraph.Device{}, fmt.Errorf("homegraph postgres: marshal aliases: %w", err)
	}

	const query = `
		INSERT INTO devices (id, name, kind, room, aliases, address)
		VALUES ($1,$2,$3,$4,$5,$6)`

	_, err = s.db.Exec(ctx, query,
		device.ID, device.Name, string(device.Kind), device.Room, aliasesJSON, device.Address)
	if err != nil {
		if isDuplicateKeyError(err) {
			return homegraph.Device{}, homegraph.ErrDuplicateID
		}
		return homegraph.Device{}, fmt.Errorf("homegraph postgres: add: %w", err)
	}
	return device, nil
}

// Get implements [homegraph.Store.Get].
func (s *Store) Get(ctx context.Context, id string) (homegraph.Device, error) {
	const query = `SELECT id, name, kind, room, aliases, address FROM devices WHERE id = $1`

	d, err := scanDevice(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return homegraph.Device{}, homegraph.ErrNotFound
		}
		return homegraph.Device{}, fmt.Errorf("homegraph postgres: get %q: %w", id, err)
	}
	return d, nil
}

// List implements [homegraph.Store.List].
func (s *Store) List(ctx context.Context, opts homegraph.ListOptions) ([]homegraph.Device, error) {
	query := `SELECT id, name, kind, room, aliases, address FROM devices WHERE 1=1`
	var args []any
	if opts.Kind != "" {
		args = append(args, string(opts.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if opts.Room != "" {
		args = append(args, opts.Room)
		query += fmt.Sprintf(" AND room = $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("homegraph postgres: list: %w", err)
	}
	defer rows.Close()

	var result []homegraph.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("homegraph postgres: scan: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("homegraph postgres: list rows: %w", err)
	}
	return result, nil
}

// Remove implements [homegraph.Store.Remove].
func (s *Store) Remove(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("homegraph postgres: remove %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return homegraph.ErrNotFound
	}
	return nil
}

// BulkImport implements [homegraph.Store.BulkImport].
func (s *Store) BulkImport(ctx context.Context, devices []homegraph.Device) (int, error) {
	count := 0
	for _, d := range devices {
		if _, err := s.Add(ctx, d); err != nil {
			return count, fmt.Errorf("homegraph postgres: bulk import at index %d (name %q): %w", count, d.Name, err)
		}
		count++
	}
	return count, nil
}

// scanDevice scans one devices row.
func scanDevice(row pgx.Row) (homegraph.Device, error) {
	var (
		d           homegraph.Device
		kind        string
		aliasesJSON []byte
	)
	if err := row.Scan(&d.ID, &d.Name, &kind, &d.Room, &aliasesJSON, &d.Address); err != nil {
		return homegraph.Device{}, err
	}
	d.Kind = homegraph.DeviceKind(kind)
	if err := json.Unmarshal(aliasesJSON, &d.Aliases); err != nil {
		return homegraph.Device{}, fmt.Errorf("unmarshal aliases: %w", err)
	}
	return d, nil
}

// isDuplicateKeyError reports whether err is a Postgres unique-violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// emptySlice replaces a nil slice with an empty one so JSONB columns never
// store SQL NULL.
func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
